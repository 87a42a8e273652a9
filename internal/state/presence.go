package state

// SetTyping 更新某房间的输入中名单。自己的回显事件不入名单。
func (s *Store) SetTyping(roomID, userID, username string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userID == "" || userID == s.self.ID {
		return
	}
	set := s.typing[roomID]
	if active {
		if set == nil {
			set = make(map[string]string)
			s.typing[roomID] = set
		}
		set[userID] = username
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(s.typing, roomID)
	}
}

// TypingUsers 返回某房间输入中用户的 user_id -> username 快照。
func (s *Store) TypingUsers(roomID string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.typing[roomID]
	out := make(map[string]string, len(set))
	for id, name := range set {
		out[id] = name
	}
	return out
}

// SetAITyping 标记 AI 正在为某房间生成回复，首个流式分片到达前驱动提示。
func (s *Store) SetAITyping(roomID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active {
		s.aiTyping[roomID] = true
	} else {
		delete(s.aiTyping, roomID)
	}
}

func (s *Store) AITyping(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aiTyping[roomID]
}

// SetUserOnline 把在线状态翻转扇出到所有与该用户相关的视图：
// 以其为对端的私聊房间条目与资料缓存。
func (s *Store) SetUserOnline(userID string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.OtherUserID == userID {
			r.IsOnline = online
		}
	}
	if u, ok := s.profiles[userID]; ok {
		u.IsOnline = online
	}
}

// ApplyBlockedMe 处理「对方拉黑了我」：记账并隐藏其在线状态。
func (s *Store) ApplyBlockedMe(byUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.self.BlockedBy = appendUnique(s.self.BlockedBy, byUserID)
	for _, r := range s.rooms {
		if r.OtherUserID == byUserID {
			r.BlockedByOther = true
			r.IsOnline = false
		}
	}
}

// ApplyUnblockedMe 处理「对方解除了对我的拉黑」。在线状态等下一次
// user_status_change 事件恢复，这里不猜。
func (s *Store) ApplyUnblockedMe(byUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.self.BlockedBy = removeID(s.self.BlockedBy, byUserID)
	for _, r := range s.rooms {
		if r.OtherUserID == byUserID {
			r.BlockedByOther = false
		}
	}
}

// ApplyIBlocked 处理本用户在别处会话拉黑某人后的服务端确认。
func (s *Store) ApplyIBlocked(targetUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.self.BlockedUsers = appendUnique(s.self.BlockedUsers, targetUserID)
	for _, r := range s.rooms {
		if r.OtherUserID == targetUserID {
			r.BlockedByMe = true
		}
	}
}

// ApplyIUnblocked 处理解除拉黑的服务端确认。
func (s *Store) ApplyIUnblocked(targetUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.self.BlockedUsers = removeID(s.self.BlockedUsers, targetUserID)
	for _, r := range s.rooms {
		if r.OtherUserID == targetUserID {
			r.BlockedByMe = false
		}
	}
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
