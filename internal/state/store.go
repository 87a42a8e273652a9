// Package state 持有引擎对外可观察的全部本地状态：房间索引、各房间消息日志、
// 输入中/在线状态与 AI 流式装配。所有变更都经由单一事件分发路径进入，
// 读取方只拿到快照，从不直接触碰内部结构。
package state

import (
	"sync"

	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/models"
)

type Store struct {
	mu sync.RWMutex

	self      models.User
	rooms     []*models.Room
	logs      map[string][]*models.Message
	openRoom  string
	typing    map[string]map[string]string // room_id -> user_id -> username
	aiTyping  map[string]bool
	profiles  map[string]*models.User
	connected bool
}

func NewStore() *Store {
	return &Store{
		logs:     make(map[string][]*models.Message),
		typing:   make(map[string]map[string]string),
		aiTyping: make(map[string]bool),
		profiles: make(map[string]*models.User),
	}
}

// SetSelf 记录当前登录用户，消息归属与拉黑判断都以它为准。
func (s *Store) SetSelf(u models.User) {
	s.mu.Lock()
	s.self = u
	s.self.BlockedUsers = append([]string(nil), u.BlockedUsers...)
	s.self.BlockedBy = append([]string(nil), u.BlockedBy...)
	s.mu.Unlock()
}

// Self 返回当前用户快照，拉黑名单是拷贝，与内部状态不共享底层数组。
func (s *Store) Self() models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.self
	u.BlockedUsers = append([]string(nil), s.self.BlockedUsers...)
	u.BlockedBy = append([]string(nil), s.self.BlockedBy...)
	return u
}

// SetConnected 翻转连接观测位；断开时清空各房间的输入中状态，
// 因为对端的 "stopped typing" 事件此后不会再到达。
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	if !connected {
		s.typing = make(map[string]map[string]string)
		s.aiTyping = make(map[string]bool)
	}
	s.mu.Unlock()
}

func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Rooms 返回按固定总序排列的房间快照。
func (s *Store) Rooms() []models.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, *r)
	}
	return out
}

// Room 按 id 查找房间快照。
func (s *Store) Room(id string) (models.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r := s.roomLocked(id); r != nil {
		return *r, true
	}
	return models.Room{}, false
}

func (s *Store) OpenRoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openRoom
}

// OpenRoom 返回当前打开的房间快照。
func (s *Store) OpenRoom() (models.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.openRoom == "" {
		return models.Room{}, false
	}
	if r := s.roomLocked(s.openRoom); r != nil {
		return *r, true
	}
	return models.Room{}, false
}

// Messages 返回某房间消息日志的深拷贝快照，保持日志内顺序。
func (s *Store) Messages(roomID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logEntries := s.logs[roomID]
	out := make([]models.Message, 0, len(logEntries))
	for _, m := range logEntries {
		out = append(out, *m.Clone())
	}
	return out
}

// Message 按 id 在指定房间日志中查找。
func (s *Store) Message(roomID, messageID string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m := s.messageLocked(roomID, messageID); m != nil {
		return *m.Clone(), true
	}
	return models.Message{}, false
}

// Profile 返回缓存的用户资料视图。
func (s *Store) Profile(userID string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.profiles[userID]; ok {
		return *u, true
	}
	return models.User{}, false
}

// SetProfile 缓存一份用户资料视图，presence 事件会就地更新它。
func (s *Store) SetProfile(u models.User) {
	s.mu.Lock()
	cp := u
	s.profiles[u.ID] = &cp
	s.mu.Unlock()
}

func (s *Store) roomLocked(id string) *models.Room {
	for _, r := range s.rooms {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Store) messageLocked(roomID, messageID string) *models.Message {
	for _, m := range s.logs[roomID] {
		if m.ID == messageID {
			return m
		}
	}
	return nil
}
