package models

import "time"

// RoomKind 对应服务端的房间类型。
type RoomKind string

const (
	RoomPublic  RoomKind = "public"
	RoomGroup   RoomKind = "group"
	RoomDirect  RoomKind = "direct"
	RoomAI      RoomKind = "ai"
	RoomSupport RoomKind = "support"
)

// MessageStatus 只对本地用户发出的消息有意义。
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)

// RecalledText 是撤回消息的墓碑文案，撤回后正文被替换为该值。
const RecalledText = "This message has been recalled"

// 文件消息在侧边栏预览里的占位文案。
const (
	PreviewImage = "[image]"
	PreviewFile  = "[file]"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	IsOnline     bool      `json:"is_online,omitempty"`
	LastSeen     time.Time `json:"last_seen,omitempty"`
	BlockedUsers []string  `json:"blocked_users,omitempty"`
	BlockedBy    []string  `json:"blocked_by,omitempty"`
}

// HasBlocked 判断当前用户是否已拉黑 userID。
func (u *User) HasBlocked(userID string) bool {
	for _, id := range u.BlockedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// IsBlockedBy 判断当前用户是否被 userID 拉黑。
func (u *User) IsBlockedBy(userID string) bool {
	for _, id := range u.BlockedBy {
		if id == userID {
			return true
		}
	}
	return false
}

type Room struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Kind              RoomKind  `json:"type"`
	OtherUserID       string    `json:"other_user_id,omitempty"`
	AvatarURL         string    `json:"avatar_url,omitempty"`
	IsOnline          bool      `json:"is_online,omitempty"`
	IsPinned          bool      `json:"is_pinned,omitempty"`
	IsLocked          bool      `json:"is_locked,omitempty"`
	LastMessage       string    `json:"last_message,omitempty"`
	LastMessageID     string    `json:"last_message_id,omitempty"`
	LastMessageSender string    `json:"last_message_sender,omitempty"`
	LastMessageAt     time.Time `json:"last_message_at,omitempty"`
	UpdatedAt         time.Time `json:"updated_at,omitempty"`
	UnreadCount       int       `json:"unread_count,omitempty"`
	BlockedByMe       bool      `json:"blocked_by_me,omitempty"`
	BlockedByOther    bool      `json:"blocked_by_other,omitempty"`
	SupportStatus     string    `json:"support_status,omitempty"` // 仅客服房间使用
}

// FileRef 指向已上传文件，由上传接口返回并内嵌到消息里。
type FileRef struct {
	URL  string `json:"url"`
	Kind string `json:"type"` // "image" 或 "file"
	Name string `json:"filename,omitempty"`
}

type Message struct {
	ID             string              `json:"id"`
	ClientID       string              `json:"client_id,omitempty"`
	RoomID         string              `json:"room_id"`
	SenderID       string              `json:"sender_id"`
	SenderName     string              `json:"sender_name"`
	ReceiverID     string              `json:"receiver_id,omitempty"`
	Content        string              `json:"content"`
	FileURL        string              `json:"file_url,omitempty"`
	FileKind       string              `json:"file_type,omitempty"`
	FileName       string              `json:"file_name,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
	IsBot          bool                `json:"is_bot,omitempty"`
	Status         MessageStatus       `json:"status,omitempty"`
	IsStreaming    bool                `json:"is_streaming,omitempty"`
	IsEdited       bool                `json:"is_edited,omitempty"`
	IsRecalled     bool                `json:"is_recalled,omitempty"`
	IsPinned       bool                `json:"is_pinned,omitempty"`
	IsForwarded    bool                `json:"is_forwarded,omitempty"`
	ReplyToID      string              `json:"reply_to_id,omitempty"`
	ReplyToContent string              `json:"reply_to_content,omitempty"`
	Reactions      map[string][]string `json:"reactions,omitempty"`
}

// PreviewText 返回该消息在房间列表里的预览文案。
func (m *Message) PreviewText() string {
	if m.IsRecalled {
		return RecalledText
	}
	if m.Content != "" {
		return m.Content
	}
	switch m.FileKind {
	case "image":
		return PreviewImage
	case "file":
		return PreviewFile
	}
	return ""
}

// Clone 返回深拷贝，快照读取方不会与内部状态共享可变结构。
func (m *Message) Clone() *Message {
	cp := *m
	if m.Reactions != nil {
		cp.Reactions = make(map[string][]string, len(m.Reactions))
		for emoji, users := range m.Reactions {
			cp.Reactions[emoji] = append([]string(nil), users...)
		}
	}
	return &cp
}
