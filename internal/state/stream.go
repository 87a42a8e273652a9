package state

import (
	"time"

	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/models"
)

// StartStream 为一条 AI 回复建立流式装配占位：向房间日志插入一条
// 空正文的机器人消息。装配不依赖房间是否打开，分片始终写入对应日志。
func (s *Store) StartStream(roomID, messageID, sender, senderAvatar string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messageLocked(roomID, messageID) != nil {
		return
	}
	s.logs[roomID] = append(s.logs[roomID], &models.Message{
		ID:          messageID,
		RoomID:      roomID,
		SenderName:  sender,
		Content:     "",
		Timestamp:   time.Now(),
		IsBot:       true,
		IsStreaming: true,
	})
	s.aiTyping[roomID] = true
}

// AppendStreamChunk 把一个分片按到达顺序拼接到装配中的消息尾部。
// 分片不携带房间信息时，按消息 id 找到所属房间。
func (s *Store) AppendStreamChunk(roomID, messageID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.streamMessageLocked(roomID, messageID)
	if m == nil {
		return
	}
	m.Content += content
	m.IsStreaming = true
	// 首个分片到达后房间级的「AI 输入中」提示让位给逐字正文。
	delete(s.aiTyping, m.RoomID)
}

// EndStream 结束装配：清除流式标记，采用服务端给出的权威时间，
// 并把这条完成的回复反映到房间条目上。
func (s *Store) EndStream(roomID, messageID string, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.streamMessageLocked(roomID, messageID)
	if m == nil {
		return
	}
	m.IsStreaming = false
	if !ts.IsZero() {
		m.Timestamp = ts
	}
	delete(s.aiTyping, m.RoomID)
	s.bumpRoomLocked(m, s.openRoom == m.RoomID)
}

// streamMessageLocked 定位装配中的消息。roomID 可为空，此时在全部
// 日志里按消息 id 查找。
func (s *Store) streamMessageLocked(roomID, messageID string) *models.Message {
	if roomID != "" {
		return s.messageLocked(roomID, messageID)
	}
	for id := range s.logs {
		if m := s.messageLocked(id, messageID); m != nil {
			return m
		}
	}
	return nil
}
