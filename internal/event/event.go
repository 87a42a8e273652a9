// Package event 定义与服务端之间的帧协议：入站帧解码为封闭的事件集合，
// 出站帧由构造函数生成。协议为 JSON 对象加 type 判别字段。
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/models"
)

// 入站帧的 type 取值。
const (
	TypeMessage          = "message"
	TypeReadReceipt      = "read_receipt"
	TypeEditMessage      = "edit_message"
	TypeRecallMessage    = "recall_message"
	TypePinMessage       = "pin_message"
	TypeReaction         = "reaction"
	TypeUserStatus       = "user_status_change"
	TypeForceLogout      = "force_logout"
	TypeUserBlockedMe    = "user_blocked_me"
	TypeUserUnblockedMe  = "user_unblocked_me"
	TypeUserIBlocked     = "user_i_blocked"
	TypeUserIUnblocked   = "user_i_unblocked"
	TypeTyping           = "typing"
	TypeNewRoom          = "new_room"
	TypeRoomUpdated      = "room_updated"
	TypeMemberLeft       = "member_left"
	TypeStreamStart      = "start"
	TypeStreamChunk      = "chunk"
	TypeStreamChunkAlias = "stream"
	TypeStreamEnd        = "end"
	TypeDeleteForMeAck   = "delete_for_me_success"
	TypeSupportStatus    = "support_status_update"
	TypeMembersAdded     = "members_added"
	TypeMemberRole       = "member_role_updated"
	TypePong             = "pong"

	// AI 建议族：服务端确实会下发，本客户端识别后不产生状态变更。
	TypeAISuggestion      = "ai_suggestion"
	TypeAISuggestionStart = "ai_suggestion_start"
	TypeAISuggestionChunk = "ai_suggestion_chunk"
	TypeAISuggestionEnd   = "ai_suggestion_end"
	TypeAISuggestionsList = "ai_suggestions_list"
)

var (
	ErrUnknownType = errors.New("unknown frame type")
	ErrBadFrame    = errors.New("malformed frame")
)

// Event 是入站事件联合类型，每种帧对应一个具体结构体。
type Event interface {
	isEvent()
}

// Message 既承载他人消息，也承载服务端对本地乐观消息的回显。
type Message struct {
	ID             string              `json:"message_id"`
	ClientID       string              `json:"client_id"`
	RoomID         string              `json:"room_id"`
	SenderID       string              `json:"sender_id"`
	SenderName     string              `json:"sender_name"`
	SenderAvatar   string              `json:"sender_avatar"`
	ReceiverID     string              `json:"receiver_id"`
	Content        string              `json:"content"`
	FileURL        string              `json:"file_url"`
	FileKind       string              `json:"file_type"`
	FileName       string              `json:"file_name"`
	Timestamp      time.Time           `json:"timestamp"`
	IsBot          bool                `json:"is_bot"`
	Status         string              `json:"status"`
	IsEdited       bool                `json:"is_edited"`
	IsRecalled     bool                `json:"is_recalled"`
	IsPinned       bool                `json:"is_pinned"`
	IsForwarded    bool                `json:"is_forwarded"`
	ReplyToID      string              `json:"reply_to_id"`
	ReplyToContent string              `json:"reply_to_content"`
	Reactions      map[string][]string `json:"reactions"`
}

type ReadReceipt struct {
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id"`
}

type EditMessage struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

type RecallMessage struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

type PinMessage struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	Pinned    bool   `json:"is_pinned"`
}

// Reaction 带有服务端权威的完整 reaction 映射，直接整体替换本地值。
type Reaction struct {
	RoomID    string              `json:"room_id"`
	MessageID string              `json:"message_id"`
	Reactions map[string][]string `json:"reactions"`
}

type UserStatus struct {
	UserID string `json:"user_id"`
	Online bool   `json:"is_online"`
}

type ForceLogout struct {
	Message string `json:"message"`
}

type UserBlockedMe struct {
	ByUserID string `json:"by_user_id"`
}

type UserUnblockedMe struct {
	ByUserID string `json:"by_user_id"`
}

type UserIBlocked struct {
	TargetUserID string `json:"target_user_id"`
}

type UserIUnblocked struct {
	TargetUserID string `json:"target_user_id"`
}

// Typing 的 UserID 为空时表示 AI 正在为该房间生成回复。
type Typing struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Active   bool   `json:"status"`
}

type NewRoom struct {
	Room models.Room `json:"room"`
}

type RoomUpdated struct {
	Room models.Room `json:"room"`
}

type MemberLeft struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

type StreamStart struct {
	RoomID       string `json:"room_id"`
	MessageID    string `json:"message_id"`
	Sender       string `json:"sender"`
	SenderAvatar string `json:"sender_avatar"`
}

type StreamChunk struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

type StreamEnd struct {
	RoomID    string    `json:"room_id"`
	MessageID string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

type DeleteForMeAck struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

// SupportStatusUpdate 更新客服会话的处理状态；发给用户的帧带 room_id，
// 发给管理端的帧只带 user_id。
type SupportStatusUpdate struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type MembersAdded struct {
	RoomID string `json:"room_id"`
}

type MemberRoleUpdated struct {
	RoomID  string `json:"room_id"`
	UserID  string `json:"user_id"`
	NewRole string `json:"new_role"`
}

// AISuggestion 覆盖整个 ai_suggestion 族的载荷，识别后即被丢弃。
type AISuggestion struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

type Pong struct{}

func (Message) isEvent()             {}
func (ReadReceipt) isEvent()         {}
func (EditMessage) isEvent()         {}
func (RecallMessage) isEvent()       {}
func (PinMessage) isEvent()          {}
func (Reaction) isEvent()            {}
func (UserStatus) isEvent()          {}
func (ForceLogout) isEvent()         {}
func (UserBlockedMe) isEvent()       {}
func (UserUnblockedMe) isEvent()     {}
func (UserIBlocked) isEvent()        {}
func (UserIUnblocked) isEvent()      {}
func (Typing) isEvent()              {}
func (NewRoom) isEvent()             {}
func (RoomUpdated) isEvent()         {}
func (MemberLeft) isEvent()          {}
func (StreamStart) isEvent()         {}
func (StreamChunk) isEvent()         {}
func (StreamEnd) isEvent()           {}
func (DeleteForMeAck) isEvent()      {}
func (SupportStatusUpdate) isEvent() {}
func (MembersAdded) isEvent()        {}
func (MemberRoleUpdated) isEvent()   {}
func (AISuggestion) isEvent()        {}
func (Pong) isEvent()                {}

// Decode 把一帧原始数据解析为具体事件，并返回帧的 type 字段。
// 未知类型返回 ErrUnknownType，JSON 损坏返回 ErrBadFrame；
// 调用方对两者都按丢弃处理，不得上抛。
func Decode(raw []byte) (Event, string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadFrame, err)
	}

	unmarshal := func(ev Event) (Event, string, error) {
		// ev 必须是指针才能填充字段，调用处统一传入 &T{}。
		if err := json.Unmarshal(raw, ev); err != nil {
			return nil, head.Type, fmt.Errorf("%w: %v", ErrBadFrame, err)
		}
		return ev, head.Type, nil
	}

	switch head.Type {
	case TypeMessage:
		return unmarshal(&Message{})
	case TypeReadReceipt:
		return unmarshal(&ReadReceipt{})
	case TypeEditMessage:
		return unmarshal(&EditMessage{})
	case TypeRecallMessage:
		return unmarshal(&RecallMessage{})
	case TypePinMessage:
		return unmarshal(&PinMessage{})
	case TypeReaction:
		return unmarshal(&Reaction{})
	case TypeUserStatus:
		return unmarshal(&UserStatus{})
	case TypeForceLogout:
		return unmarshal(&ForceLogout{})
	case TypeUserBlockedMe:
		return unmarshal(&UserBlockedMe{})
	case TypeUserUnblockedMe:
		return unmarshal(&UserUnblockedMe{})
	case TypeUserIBlocked:
		return unmarshal(&UserIBlocked{})
	case TypeUserIUnblocked:
		return unmarshal(&UserIUnblocked{})
	case TypeTyping:
		return unmarshal(&Typing{})
	case TypeNewRoom:
		return unmarshal(&NewRoom{})
	case TypeRoomUpdated:
		return unmarshal(&RoomUpdated{})
	case TypeMemberLeft:
		return unmarshal(&MemberLeft{})
	case TypeStreamStart:
		return unmarshal(&StreamStart{})
	case TypeStreamChunk, TypeStreamChunkAlias:
		return unmarshal(&StreamChunk{})
	case TypeStreamEnd:
		return unmarshal(&StreamEnd{})
	case TypeDeleteForMeAck:
		return unmarshal(&DeleteForMeAck{})
	case TypeSupportStatus:
		return unmarshal(&SupportStatusUpdate{})
	case TypeMembersAdded:
		return unmarshal(&MembersAdded{})
	case TypeMemberRole:
		return unmarshal(&MemberRoleUpdated{})
	case TypeAISuggestion, TypeAISuggestionStart, TypeAISuggestionChunk,
		TypeAISuggestionEnd, TypeAISuggestionsList:
		return unmarshal(&AISuggestion{})
	case TypePong:
		return &Pong{}, head.Type, nil
	}
	return nil, head.Type, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
}
