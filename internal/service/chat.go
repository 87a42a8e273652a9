// Package service 汇聚用户侧动作：发送与修改消息、输入中节流、房间切换、
// 连接引导与强制登出。写路径先落本地乐观状态，再向连接层投递帧。
package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/event"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/metrics"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/models"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/state"
)

// Conn 是发送路径对连接层的最小依赖。
type Conn interface {
	Open()
	Close()
	Send(v interface{}) error
}

// API 是服务对 REST 协作方的最小依赖。
type API interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	History(ctx context.Context, roomID string) ([]models.Message, error)
	Upload(ctx context.Context, filename string, r io.Reader) (*models.FileRef, error)
}

// Tokens 只暴露登出所需的能力。
type Tokens interface {
	Clear()
}

type ChatService struct {
	store  *state.Store
	conn   Conn
	api    API
	tokens Tokens

	typingLimit *rate.Limiter

	// 测试注入点
	now   func() time.Time
	newID func() string
}

// New 组装服务。typingEvery 是输入中帧的最小发送间隔。
func New(store *state.Store, conn Conn, api API, tokens Tokens, typingEvery time.Duration) *ChatService {
	if typingEvery <= 0 {
		typingEvery = 2 * time.Second
	}
	return &ChatService{
		store:       store,
		conn:        conn,
		api:         api,
		tokens:      tokens,
		typingLimit: rate.NewLimiter(rate.Every(typingEvery), 1),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Hooks 返回分发器需要的回边，由装配方挂到 state.Dispatcher 上。
func (s *ChatService) Hooks() state.Hooks {
	return state.Hooks{
		RefreshRooms: s.RefreshRooms,
		ForceLogout:  s.HandleForceLogout,
	}
}

// Connect 发起建连，实际状态翻转经由连接层的 OnState 回调进入 HandleConnState。
func (s *ChatService) Connect() { s.conn.Open() }

// Disconnect 主动断开，不再自动重连。
func (s *ChatService) Disconnect() { s.conn.Close() }

// HandleConnState 挂在连接层的 OnState 上。每次（重）连成功后重新引导：
// 断线期间漏掉的事件不回放，本地状态以整表拉取重新对齐。
func (s *ChatService) HandleConnState(connected bool) {
	s.store.SetConnected(connected)
	if !connected {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.refreshRooms(ctx)
		if roomID := s.store.OpenRoomID(); roomID != "" {
			if err := s.reloadHistory(ctx, roomID); err != nil {
				log.Warn().Err(err).Str("room_id", roomID).Msg("service: history reload failed")
			}
		}
	}()
}

// RefreshRooms 静默拉取房间整表，失败只记日志，本地索引保持原样。
func (s *ChatService) RefreshRooms() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.refreshRooms(ctx)
}

func (s *ChatService) refreshRooms(ctx context.Context) {
	rooms, err := s.api.ListRooms(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("service: room refresh failed")
		return
	}
	s.store.ReplaceRooms(rooms)
}

// OpenRoom 切换当前房间：拉取历史播种日志、清零未读并上报已读回执。
func (s *ChatService) OpenRoom(ctx context.Context, roomID string) error {
	history, err := s.api.History(ctx, roomID)
	if err != nil {
		return err
	}
	s.store.SetOpenRoom(roomID, history)
	s.sendReadReceipt(roomID)
	return nil
}

// CloseRoom 关闭当前房间，日志保留以便流式装配继续。
func (s *ChatService) CloseRoom() { s.store.ClearOpenRoom() }

func (s *ChatService) reloadHistory(ctx context.Context, roomID string) error {
	history, err := s.api.History(ctx, roomID)
	if err != nil {
		return err
	}
	s.store.SetOpenRoom(roomID, history)
	return nil
}

// SendMessage 向当前打开的房间发送消息。校验失败不触网；校验通过后
// 先以 sending 状态落一条乐观消息再投递，服务端回显负责顶替占位。
// 投递失败时消息保留为 sending，随错误一起返回。
func (s *ChatService) SendMessage(content, replyToID string, file *models.FileRef) (*models.Message, error) {
	content = strings.TrimSpace(content)
	room, ok := s.store.OpenRoom()
	if !ok {
		return nil, ErrNoRoom
	}
	if content == "" && file == nil {
		return nil, ErrEmptyMessage
	}
	if room.BlockedByMe || room.BlockedByOther {
		return nil, ErrBlocked
	}
	if room.IsLocked {
		return nil, ErrRoomLocked
	}

	self := s.store.Self()
	clientID := "temp-" + s.newID()
	msg := &models.Message{
		ID:         clientID,
		ClientID:   clientID,
		RoomID:     room.ID,
		SenderID:   self.ID,
		SenderName: self.Username,
		ReceiverID: room.OtherUserID,
		Content:    content,
		Timestamp:  s.now(),
		Status:     models.StatusSending,
		ReplyToID:  replyToID,
	}
	if file != nil {
		msg.FileURL = file.URL
		msg.FileKind = file.Kind
		msg.FileName = file.Name
	}
	if replyToID != "" {
		if target, ok := s.store.Message(room.ID, replyToID); ok {
			msg.ReplyToContent = target.PreviewText()
		}
	}
	s.store.AppendLocal(msg)

	frame := event.NewMessageFrame(clientID, room.ID, content, replyToID, room.OtherUserID, file)
	if err := s.conn.Send(frame); err != nil {
		log.Warn().Err(err).Str("client_id", clientID).Msg("service: message send failed, kept as sending")
		return msg, err
	}
	metrics.MessagesSentTotal.Inc()
	return msg, nil
}

// SendLike 是快捷点赞：向当前房间发送一条 👍 消息。
func (s *ChatService) SendLike() (*models.Message, error) {
	return s.SendMessage("👍", "", nil)
}

// SendFile 上传文件后把返回的引用作为一条文件消息发送。
func (s *ChatService) SendFile(ctx context.Context, filename string, r io.Reader) (*models.Message, error) {
	if _, ok := s.store.OpenRoom(); !ok {
		return nil, ErrNoRoom
	}
	ref, err := s.api.Upload(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	return s.SendMessage("", "", ref)
}

// ForwardMessage 把一条已有消息转发到另一个房间，带转发标记。
func (s *ChatService) ForwardMessage(sourceRoomID, messageID, targetRoomID string) error {
	msg, ok := s.store.Message(sourceRoomID, messageID)
	if !ok {
		return ErrNotFound
	}
	if msg.IsRecalled {
		return ErrNotFound
	}
	target, ok := s.store.Room(targetRoomID)
	if !ok {
		return ErrNoRoom
	}
	if target.BlockedByMe || target.BlockedByOther {
		return ErrBlocked
	}

	self := s.store.Self()
	clientID := "temp-" + s.newID()
	local := &models.Message{
		ID:          clientID,
		ClientID:    clientID,
		RoomID:      targetRoomID,
		SenderID:    self.ID,
		SenderName:  self.Username,
		ReceiverID:  target.OtherUserID,
		Content:     msg.Content,
		FileURL:     msg.FileURL,
		FileKind:    msg.FileKind,
		FileName:    msg.FileName,
		Timestamp:   s.now(),
		Status:      models.StatusSending,
		IsForwarded: true,
	}
	s.store.AppendLocal(local)

	frame := event.NewForwardFrame(targetRoomID, &msg)
	frame.ClientID = clientID
	frame.ReceiverID = target.OtherUserID
	return s.conn.Send(frame)
}

// EditMessage 编辑当前房间里自己发出的消息，本地先行，服务端广播跟进。
func (s *ChatService) EditMessage(messageID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	roomID := s.store.OpenRoomID()
	if roomID == "" {
		return ErrNoRoom
	}
	msg, ok := s.store.Message(roomID, messageID)
	if !ok || msg.SenderID != s.store.Self().ID || msg.IsRecalled {
		return ErrNotFound
	}
	s.store.ApplyEdit(roomID, messageID, content)
	return s.conn.Send(event.NewEditFrame(roomID, messageID, content))
}

// RecallMessage 撤回当前房间里自己发出的消息。
func (s *ChatService) RecallMessage(messageID string) error {
	roomID := s.store.OpenRoomID()
	if roomID == "" {
		return ErrNoRoom
	}
	msg, ok := s.store.Message(roomID, messageID)
	if !ok || msg.SenderID != s.store.Self().ID {
		return ErrNotFound
	}
	s.store.ApplyRecall(roomID, messageID)
	return s.conn.Send(event.NewRecallFrame(roomID, messageID))
}

// DeleteForMe 只从本视角删除一条消息，对其他成员不可见。
func (s *ChatService) DeleteForMe(messageID string) error {
	roomID := s.store.OpenRoomID()
	if roomID == "" {
		return ErrNoRoom
	}
	if _, ok := s.store.Message(roomID, messageID); !ok {
		return ErrNotFound
	}
	s.store.RemoveMessage(roomID, messageID)
	return s.conn.Send(event.NewDeleteForMeFrame(roomID, messageID))
}

// PinMessage 翻转一条消息的置顶标记。
func (s *ChatService) PinMessage(messageID string) error {
	roomID := s.store.OpenRoomID()
	if roomID == "" {
		return ErrNoRoom
	}
	msg, ok := s.store.Message(roomID, messageID)
	if !ok {
		return ErrNotFound
	}
	s.store.ApplyPin(roomID, messageID, !msg.IsPinned)
	return s.conn.Send(event.NewPinFrame(roomID, messageID))
}

// ToggleReaction 本地乐观翻转表情后上报，服务端随后的广播整体覆盖。
func (s *ChatService) ToggleReaction(messageID, emoji string) error {
	roomID := s.store.OpenRoomID()
	if roomID == "" {
		return ErrNoRoom
	}
	if _, ok := s.store.Message(roomID, messageID); !ok {
		return ErrNotFound
	}
	s.store.ToggleReaction(roomID, messageID, emoji, s.store.Self().ID)
	return s.conn.Send(event.NewReactionFrame(roomID, messageID, emoji))
}

// SendTyping 上报输入中状态。开始帧按节流间隔丢弃多余的，停止帧直发。
func (s *ChatService) SendTyping(active bool) error {
	roomID := s.store.OpenRoomID()
	if roomID == "" {
		return ErrNoRoom
	}
	if active && !s.typingLimit.Allow() {
		return nil
	}
	return s.conn.Send(event.NewTypingFrame(roomID, active))
}

// SendReadReceipt 上报当前房间已读。
func (s *ChatService) SendReadReceipt() error {
	roomID := s.store.OpenRoomID()
	if roomID == "" {
		return ErrNoRoom
	}
	s.sendReadReceipt(roomID)
	return nil
}

func (s *ChatService) sendReadReceipt(roomID string) {
	messageID := ""
	if r, ok := s.store.Room(roomID); ok {
		messageID = r.LastMessageID
	}
	// 断线时静默丢弃，重连引导会重新对齐已读状态。
	if err := s.conn.Send(event.NewReadReceiptFrame(roomID, messageID)); err != nil {
		log.Debug().Err(err).Str("room_id", roomID).Msg("service: read receipt dropped")
	}
}

// HandleForceLogout 响应服务端的登出命令：清空 token 并断开，
// 连接层因 token 缺席不会再重连。
func (s *ChatService) HandleForceLogout(reason string) {
	log.Warn().Str("reason", reason).Msg("service: force logout")
	s.tokens.Clear()
	s.conn.Close()
}
