package state

import (
	"sort"
	"time"

	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/models"
)

// ReplaceRooms 用服务端返回的权威列表整体替换房间索引。
// 打开中的房间若已不在列表里，打开状态随之清空。
func (s *Store) ReplaceRooms(rooms []models.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = s.rooms[:0]
	for i := range rooms {
		cp := rooms[i]
		s.rooms = append(s.rooms, &cp)
	}
	s.sortRoomsLocked()
	if s.openRoom != "" && s.roomLocked(s.openRoom) == nil {
		s.openRoom = ""
	}
}

// InsertRoom 加入一个新房间；已存在同 id 的房间时为幂等空操作，
// 因为 new_room 事件可能晚于一次整表刷新到达。
func (s *Store) InsertRoom(room models.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomLocked(room.ID) != nil {
		return
	}
	cp := room
	s.rooms = append(s.rooms, &cp)
	s.sortRoomsLocked()
}

// MergeRoom 以服务端下发的房间元数据覆盖本地条目，保留本地未读计数。
// 本地没有该房间时按新房间插入。
func (s *Store) MergeRoom(room models.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.roomLocked(room.ID)
	if existing == nil {
		cp := room
		s.rooms = append(s.rooms, &cp)
		s.sortRoomsLocked()
		return
	}
	unread := existing.UnreadCount
	*existing = room
	existing.UnreadCount = unread
	s.sortRoomsLocked()
}

// SetSupportStatus 更新客服会话的处理状态。帧可能只带线程 id 而非本地
// 房间 id，所以客服类房间一并对齐。
func (s *Store) SetSupportStatus(roomID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.ID == roomID || r.Kind == models.RoomSupport {
			r.SupportStatus = status
		}
	}
}

// RemoveRoom 删除房间及其消息日志；正打开该房间时打开状态清空。
func (s *Store) RemoveRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rooms {
		if r.ID == roomID {
			s.rooms = append(s.rooms[:i], s.rooms[i+1:]...)
			break
		}
	}
	delete(s.logs, roomID)
	delete(s.typing, roomID)
	delete(s.aiTyping, roomID)
	if s.openRoom == roomID {
		s.openRoom = ""
	}
}

// bumpRoomLocked 把一条新消息反映到房间条目上：刷新预览、活动时间与未读计数，
// 然后恢复排序。返回 false 表示本地没有这个房间。
func (s *Store) bumpRoomLocked(msg *models.Message, fromSelf bool) bool {
	r := s.roomLocked(msg.RoomID)
	if r == nil {
		return false
	}
	r.LastMessage = msg.PreviewText()
	r.LastMessageID = msg.ID
	r.LastMessageSender = msg.SenderName
	r.LastMessageAt = msg.Timestamp
	if msg.Timestamp.After(r.UpdatedAt) {
		r.UpdatedAt = msg.Timestamp
	}
	if fromSelf || s.openRoom == msg.RoomID {
		r.UnreadCount = 0
	} else {
		r.UnreadCount++
	}
	s.sortRoomsLocked()
	return true
}

// refreshPreviewLocked 在编辑/撤回/删除改动了预览来源消息后重算房间预览。
func (s *Store) refreshPreviewLocked(roomID string) {
	r := s.roomLocked(roomID)
	if r == nil {
		return
	}
	logEntries := s.logs[roomID]
	if len(logEntries) == 0 {
		r.LastMessage = ""
		r.LastMessageID = ""
		r.LastMessageSender = ""
		r.LastMessageAt = time.Time{}
		return
	}
	last := logEntries[len(logEntries)-1]
	r.LastMessage = last.PreviewText()
	r.LastMessageID = last.ID
	r.LastMessageSender = last.SenderName
	r.LastMessageAt = last.Timestamp
}

// sortRoomsLocked 维持房间索引的固定总序：置顶房间在前，
// 组内按最近活动时间降序。排序是稳定的，时间相同的条目不互相穿越。
func (s *Store) sortRoomsLocked() {
	sort.SliceStable(s.rooms, func(i, j int) bool {
		a, b := s.rooms[i], s.rooms[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})
}
