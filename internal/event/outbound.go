package event

import (
	"time"

	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/models"
)

// 出站帧的 type 取值。
const (
	OutMessage     = "message"
	OutEdit        = "edit"
	OutRecall      = "recall"
	OutDeleteForMe = "delete_for_me"
	OutPin         = "pin"
	OutReaction    = "reaction"
	OutTyping      = "typing"
	OutReadReceipt = "read_receipt"
	OutPing        = "ping"
)

// MessageFrame 携带 client_id：服务端回显该字段，本地据此把乐观消息
// 与权威回显一一对应，不依赖发送者加内容的模糊匹配。
type MessageFrame struct {
	Type        string `json:"type"`
	ClientID    string `json:"client_id,omitempty"`
	RoomID      string `json:"room_id"`
	Content     string `json:"content"`
	ReplyToID   string `json:"reply_to_id,omitempty"`
	ReceiverID  string `json:"receiver_id,omitempty"`
	FileURL     string `json:"file_url,omitempty"`
	FileKind    string `json:"file_type,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	IsForwarded bool   `json:"is_forwarded,omitempty"`
}

func NewMessageFrame(clientID, roomID, content, replyToID, receiverID string, file *models.FileRef) MessageFrame {
	f := MessageFrame{
		Type:       OutMessage,
		ClientID:   clientID,
		RoomID:     roomID,
		Content:    content,
		ReplyToID:  replyToID,
		ReceiverID: receiverID,
	}
	if file != nil {
		f.FileURL = file.URL
		f.FileKind = file.Kind
		f.FileName = file.Name
	}
	return f
}

func NewForwardFrame(roomID string, msg *models.Message) MessageFrame {
	return MessageFrame{
		Type:        OutMessage,
		RoomID:      roomID,
		Content:     msg.Content,
		FileURL:     msg.FileURL,
		FileKind:    msg.FileKind,
		FileName:    msg.FileName,
		IsForwarded: true,
	}
}

type EditFrame struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

func NewEditFrame(roomID, messageID, content string) EditFrame {
	return EditFrame{Type: OutEdit, RoomID: roomID, MessageID: messageID, Content: content}
}

type RecallFrame struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

func NewRecallFrame(roomID, messageID string) RecallFrame {
	return RecallFrame{Type: OutRecall, RoomID: roomID, MessageID: messageID}
}

type DeleteForMeFrame struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

func NewDeleteForMeFrame(roomID, messageID string) DeleteForMeFrame {
	return DeleteForMeFrame{Type: OutDeleteForMe, RoomID: roomID, MessageID: messageID}
}

type PinFrame struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

func NewPinFrame(roomID, messageID string) PinFrame {
	return PinFrame{Type: OutPin, RoomID: roomID, MessageID: messageID}
}

type ReactionFrame struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

func NewReactionFrame(roomID, messageID, emoji string) ReactionFrame {
	return ReactionFrame{Type: OutReaction, RoomID: roomID, MessageID: messageID, Emoji: emoji}
}

type TypingFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	Active bool   `json:"status"`
}

func NewTypingFrame(roomID string, active bool) TypingFrame {
	return TypingFrame{Type: OutTyping, RoomID: roomID, Active: active}
}

type ReadReceiptFrame struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id,omitempty"`
}

func NewReadReceiptFrame(roomID, messageID string) ReadReceiptFrame {
	return ReadReceiptFrame{Type: OutReadReceipt, RoomID: roomID, MessageID: messageID}
}

type PingFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func NewPingFrame(now time.Time) PingFrame {
	return PingFrame{Type: OutPing, Timestamp: now.UnixMilli()}
}
