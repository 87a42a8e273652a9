package state

import (
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/models"
)

// SetOpenRoom 切换当前打开的房间并用历史消息播种其日志，未读计数清零。
func (s *Store) SetOpenRoom(roomID string, history []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openRoom = roomID
	logEntries := make([]*models.Message, 0, len(history))
	seen := make(map[string]bool, len(history))
	for i := range history {
		logEntries = append(logEntries, history[i].Clone())
		seen[history[i].ID] = true
	}
	// 装配中的流式消息尚未进入历史接口，重播种时保留在尾部，
	// 后续分片照常拼接。
	for _, m := range s.logs[roomID] {
		if m.IsStreaming && !seen[m.ID] {
			logEntries = append(logEntries, m)
		}
	}
	s.logs[roomID] = logEntries
	if r := s.roomLocked(roomID); r != nil {
		r.UnreadCount = 0
	}
}

// ClearOpenRoom 关闭当前房间。日志保留在内存里，流式装配可以继续写入。
func (s *Store) ClearOpenRoom() {
	s.mu.Lock()
	s.openRoom = ""
	s.mu.Unlock()
}

// AppendLocal 把一条本地乐观消息追加到房间日志末尾并刷新房间条目。
func (s *Store) AppendLocal(msg *models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[msg.RoomID] = append(s.logs[msg.RoomID], msg.Clone())
	s.bumpRoomLocked(msg, true)
}

// ApplyMessage 处理服务端下发的消息：自己消息的回显按关联 id 就地顶替
// 乐观占位，他人消息追加进日志；两种情况都会刷新房间条目。
// 返回 false 表示本地没有对应房间，调用方应触发一次静默的整表刷新。
func (s *Store) ApplyMessage(msg *models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromSelf := msg.SenderID == s.self.ID
	if _, haveLog := s.logs[msg.RoomID]; haveLog || s.openRoom == msg.RoomID {
		if fromSelf {
			s.reconcileLocked(msg)
		} else if s.messageLocked(msg.RoomID, msg.ID) == nil {
			s.logs[msg.RoomID] = append(s.logs[msg.RoomID], msg.Clone())
		}
	}
	return s.bumpRoomLocked(msg, fromSelf)
}

// reconcileLocked 把回显消息对齐到日志中的乐观占位：优先按 client_id
// 匹配临时条目，找不到时退回「最早一条同内容且仍为 sending 的自发消息」。
// 占位被就地改写，消息在日志中的位置不变。两者都未命中则视为
// 本端其他会话发出的消息，直接追加。
func (s *Store) reconcileLocked(msg *models.Message) {
	logEntries := s.logs[msg.RoomID]
	idx := -1
	if msg.ClientID != "" {
		for i, m := range logEntries {
			if m.ID == msg.ClientID || m.ClientID == msg.ClientID {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		for i, m := range logEntries {
			if m.Status == models.StatusSending && m.SenderID == msg.SenderID && m.Content == msg.Content {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		// 已按权威 id 存在时只覆盖，不追加副本。
		for i, m := range logEntries {
			if m.ID == msg.ID {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		s.logs[msg.RoomID] = append(logEntries, msg.Clone())
		return
	}
	replacement := msg.Clone()
	if replacement.Status == "" {
		replacement.Status = models.StatusSent
	}
	logEntries[idx] = replacement
}

// ApplyEdit 改写消息正文并级联更新引用它的回复预览与房间预览。
func (s *Store) ApplyEdit(roomID, messageID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.messageLocked(roomID, messageID)
	if m == nil {
		return
	}
	m.Content = content
	m.IsEdited = true
	s.propagateReplyPreviewLocked(roomID, messageID, content)
	s.refreshPreviewIfLastLocked(roomID, messageID)
}

// ApplyRecall 把消息替换为撤回墓碑。重复撤回为幂等操作。
func (s *Store) ApplyRecall(roomID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.messageLocked(roomID, messageID)
	if m == nil {
		return
	}
	m.IsRecalled = true
	m.Content = models.RecalledText
	m.FileURL = ""
	m.FileKind = ""
	m.FileName = ""
	s.propagateReplyPreviewLocked(roomID, messageID, models.RecalledText)
	s.refreshPreviewIfLastLocked(roomID, messageID)
}

// ApplyPin 翻转消息的置顶标记。
func (s *Store) ApplyPin(roomID, messageID string, pinned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.messageLocked(roomID, messageID); m != nil {
		m.IsPinned = pinned
	}
}

// ApplyReactions 用服务端下发的权威 reaction 映射整体替换本地值。
func (s *Store) ApplyReactions(roomID, messageID string, reactions map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.messageLocked(roomID, messageID)
	if m == nil {
		return
	}
	cp := make(map[string][]string, len(reactions))
	for emoji, users := range reactions {
		cp[emoji] = append([]string(nil), users...)
	}
	m.Reactions = cp
}

// ToggleReaction 本地乐观翻转一个表情：该用户已在名单里则移除，否则加入。
// 随后到达的 reaction 事件会整体覆盖这里的结果。
func (s *Store) ToggleReaction(roomID, messageID, emoji, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.messageLocked(roomID, messageID)
	if m == nil {
		return
	}
	if m.Reactions == nil {
		m.Reactions = make(map[string][]string)
	}
	users := m.Reactions[emoji]
	for i, id := range users {
		if id == userID {
			users = append(users[:i], users[i+1:]...)
			if len(users) == 0 {
				delete(m.Reactions, emoji)
			} else {
				m.Reactions[emoji] = users
			}
			return
		}
	}
	m.Reactions[emoji] = append(users, userID)
}

// RemoveMessage 把消息从本视角的日志中删除，必要时重算房间预览。
func (s *Store) RemoveMessage(roomID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	logEntries := s.logs[roomID]
	for i, m := range logEntries {
		if m.ID == messageID {
			s.logs[roomID] = append(logEntries[:i], logEntries[i+1:]...)
			break
		}
	}
	if r := s.roomLocked(roomID); r != nil && r.LastMessageID == messageID {
		s.refreshPreviewLocked(roomID)
	}
}

// ApplySeen 处理已读回执：对端读到某条消息时，日志中所有非对端发出的
// 消息都推进到 seen。状态单调，不会从 seen 退回。
func (s *Store) ApplySeen(roomID, readerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.logs[roomID] {
		if m.SenderID != readerID && !m.IsBot {
			m.Status = models.StatusSeen
		}
	}
}

func (s *Store) propagateReplyPreviewLocked(roomID, messageID, content string) {
	for _, m := range s.logs[roomID] {
		if m.ReplyToID == messageID {
			m.ReplyToContent = content
		}
	}
}

func (s *Store) refreshPreviewIfLastLocked(roomID, messageID string) {
	if r := s.roomLocked(roomID); r != nil && r.LastMessageID == messageID {
		s.refreshPreviewLocked(roomID)
	}
}
