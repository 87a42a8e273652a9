package state

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/event"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/metrics"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/models"
)

// Hooks 是分发器向外的回边：需要副作用（拉接口、登出）的事件走这里，
// store 本身保持纯状态。
type Hooks struct {
	// RefreshRooms 在收到本地未知房间的消息时被调用，静默拉取整表。
	RefreshRooms func()
	// ForceLogout 在服务端命令登出时被调用，reason 为服务端给出的文案。
	ForceLogout func(reason string)
}

// Dispatcher 是入站帧的唯一消费者：解码、计数、按事件类型写入 store。
// 帧按到达顺序串行处理，损坏或未知的帧计数后丢弃。
type Dispatcher struct {
	store *Store
	hooks Hooks
}

func NewDispatcher(store *Store, hooks Hooks) *Dispatcher {
	return &Dispatcher{store: store, hooks: hooks}
}

// HandleFrame 处理一帧原始数据。设计为直接挂在连接层的 OnFrame 上。
func (d *Dispatcher) HandleFrame(raw []byte) {
	ev, typ, err := event.Decode(raw)
	if err != nil {
		metrics.FramesDroppedTotal.Inc()
		log.Warn().Err(err).Str("type", typ).Int("bytes", len(raw)).Msg("dispatch: frame dropped")
		return
	}
	metrics.FramesTotal.WithLabelValues(typ).Inc()

	switch ev := ev.(type) {
	case *event.Message:
		d.handleMessage(ev)
	case *event.ReadReceipt:
		d.store.ApplySeen(ev.RoomID, ev.UserID)
	case *event.EditMessage:
		d.store.ApplyEdit(ev.RoomID, ev.MessageID, ev.Content)
	case *event.RecallMessage:
		d.store.ApplyRecall(ev.RoomID, ev.MessageID)
	case *event.PinMessage:
		d.store.ApplyPin(ev.RoomID, ev.MessageID, ev.Pinned)
	case *event.Reaction:
		d.store.ApplyReactions(ev.RoomID, ev.MessageID, ev.Reactions)
	case *event.UserStatus:
		d.store.SetUserOnline(ev.UserID, ev.Online)
	case *event.ForceLogout:
		if d.hooks.ForceLogout != nil {
			d.hooks.ForceLogout(ev.Message)
		}
	case *event.UserBlockedMe:
		d.store.ApplyBlockedMe(ev.ByUserID)
	case *event.UserUnblockedMe:
		d.store.ApplyUnblockedMe(ev.ByUserID)
	case *event.UserIBlocked:
		d.store.ApplyIBlocked(ev.TargetUserID)
	case *event.UserIUnblocked:
		d.store.ApplyIUnblocked(ev.TargetUserID)
	case *event.Typing:
		if ev.UserID == "" {
			d.store.SetAITyping(ev.RoomID, ev.Active)
		} else {
			d.store.SetTyping(ev.RoomID, ev.UserID, ev.Username, ev.Active)
		}
	case *event.NewRoom:
		d.store.InsertRoom(ev.Room)
	case *event.RoomUpdated:
		d.store.MergeRoom(ev.Room)
	case *event.MemberLeft:
		d.handleMemberLeft(ev)
	case *event.StreamStart:
		d.store.StartStream(ev.RoomID, ev.MessageID, ev.Sender, ev.SenderAvatar)
	case *event.StreamChunk:
		d.store.AppendStreamChunk(ev.RoomID, ev.MessageID, ev.Content)
	case *event.StreamEnd:
		d.store.EndStream(ev.RoomID, ev.MessageID, ev.Timestamp)
	case *event.DeleteForMeAck:
		d.store.RemoveMessage(ev.RoomID, ev.MessageID)
	case *event.SupportStatusUpdate:
		d.store.SetSupportStatus(ev.RoomID, ev.Status)
	case *event.MembersAdded:
		// 成员名单不在本地维护，等下一次 room_updated 或整表刷新对齐。
		log.Debug().Str("room_id", ev.RoomID).Msg("dispatch: members added")
	case *event.MemberRoleUpdated:
		log.Debug().Str("room_id", ev.RoomID).Str("user_id", ev.UserID).Str("role", ev.NewRole).Msg("dispatch: member role updated")
	case *event.AISuggestion:
		// 建议内容即抛即用，识别后不落任何状态。
	case *event.Pong:
		// 心跳应答，无状态可更新。
	}
}

func (d *Dispatcher) handleMessage(ev *event.Message) {
	msg := &models.Message{
		ID:             ev.ID,
		ClientID:       ev.ClientID,
		RoomID:         ev.RoomID,
		SenderID:       ev.SenderID,
		SenderName:     ev.SenderName,
		ReceiverID:     ev.ReceiverID,
		Content:        ev.Content,
		FileURL:        ev.FileURL,
		FileKind:       ev.FileKind,
		FileName:       ev.FileName,
		Timestamp:      ev.Timestamp,
		IsBot:          ev.IsBot,
		Status:         models.MessageStatus(ev.Status),
		IsEdited:       ev.IsEdited,
		IsRecalled:     ev.IsRecalled,
		IsPinned:       ev.IsPinned,
		IsForwarded:    ev.IsForwarded,
		ReplyToID:      ev.ReplyToID,
		ReplyToContent: ev.ReplyToContent,
		Reactions:      ev.Reactions,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if known := d.store.ApplyMessage(msg); !known && d.hooks.RefreshRooms != nil {
		// 未知房间意味着索引落后于服务端，整表刷新不阻塞分发循环。
		go d.hooks.RefreshRooms()
	}
}

func (d *Dispatcher) handleMemberLeft(ev *event.MemberLeft) {
	if ev.UserID == d.store.Self().ID {
		d.store.RemoveRoom(ev.RoomID)
		return
	}
	// 他人退出只影响成员名单，房间条目保持不变；成员数交由下一次
	// room_updated 或整表刷新校正。
	log.Debug().Str("room_id", ev.RoomID).Str("user_id", ev.UserID).Msg("dispatch: member left")
}
