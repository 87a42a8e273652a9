// Package ws 维护到聊天服务端的唯一一条 WebSocket 连接：
// 建连握手、心跳、指数退避重连，以及出站帧的单写端。
package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/event"
	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/metrics"
)

type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusOpen
)

var (
	ErrNotConnected  = errors.New("not connected")
	ErrSendQueueFull = errors.New("send queue full")
)

// DefaultBackoff 为固定重连间隔表，超过表长后停留在最后一档。
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
}

// TokenSource 在每次建连与重连时被询问当前 token；返回空串即放弃重连。
type TokenSource interface {
	Token() string
}

// Options 注入连接参数。Dial 与 AfterFunc 可替换，重连时序不依赖真实
// 网络与真实睡眠即可测试。
type Options struct {
	URL       string        // ws 基础地址，token 作为路径段附加
	Heartbeat time.Duration // 心跳周期，默认 30s
	Backoff   []time.Duration
	Tokens    TokenSource
	OnFrame   func(raw []byte)     // 每收到一帧调用一次，按到达顺序串行
	OnState   func(connected bool) // 连接状态翻转时调用
	Dial      func(url string) (*websocket.Conn, error)
	AfterFunc func(d time.Duration, f func()) *time.Timer
}

// Manager 拥有连接的完整生命周期，其他组件不直接触碰底层连接。
type Manager struct {
	opts Options

	mu      sync.Mutex
	status  Status
	conn    *websocket.Conn
	send    chan []byte
	attempt int
	closed  bool
	retry   *time.Timer
	gen     int // 连接代次，旧连接的收尾回调据此丢弃
}

func NewManager(opts Options) *Manager {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 30 * time.Second
	}
	if len(opts.Backoff) == 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Dial == nil {
		opts.Dial = func(url string) (*websocket.Conn, error) {
			c, _, err := websocket.DefaultDialer.Dial(url, nil)
			return c, err
		}
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = time.AfterFunc
	}
	return &Manager{opts: opts}
}

// Open 发起建连。已在连接中或已打开时为幂等空操作。
func (m *Manager) Open() {
	m.mu.Lock()
	if m.status != StatusDisconnected {
		m.mu.Unlock()
		return
	}
	m.closed = false
	m.status = StatusConnecting
	m.mu.Unlock()
	go m.connect()
}

// Close 主动断开：取消挂起的重连定时器并关闭连接，之后不再自动重连。
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	conn := m.conn
	if m.status == StatusConnecting {
		m.status = StatusDisconnected
	}
	m.mu.Unlock()
	if conn != nil {
		// readPump 随之出错返回，收尾统一走 handleClose。
		_ = conn.Close()
	}
}

// Send 序列化并发送一帧。连接未打开时立即返回 ErrNotConnected，
// 调用方自行决定排队或丢弃，本层不做重试。
func (m *Manager) Send(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusOpen || m.send == nil {
		return ErrNotConnected
	}
	select {
	case m.send <- b:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Status 返回当前连接状态，仅用于观测。
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Attempt 返回当前重连计数，成功建连后归零。
func (m *Manager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

func (m *Manager) connect() {
	token := ""
	if m.opts.Tokens != nil {
		token = m.opts.Tokens.Token()
	}
	if token == "" {
		// 登出后 token 被清空，挂起的重连在这里永久放弃。
		log.Info().Msg("ws: no token available, abandoning reconnect")
		m.mu.Lock()
		m.status = StatusDisconnected
		m.attempt = 0
		m.mu.Unlock()
		return
	}

	conn, err := m.opts.Dial(m.opts.URL + "/" + token)
	if err != nil {
		log.Warn().Err(err).Msg("ws: dial failed")
		m.mu.Lock()
		if m.closed {
			m.status = StatusDisconnected
			m.mu.Unlock()
			return
		}
		m.scheduleRetryLocked()
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.gen++
	gen := m.gen
	m.conn = conn
	m.send = make(chan []byte, 256)
	m.status = StatusOpen
	m.attempt = 0
	send := m.send
	onState := m.opts.OnState
	m.mu.Unlock()

	metrics.WsConnected.Set(1)
	log.Info().Msg("ws: connected")
	if onState != nil {
		onState(true)
	}

	go m.writePump(conn, send)
	go m.readPump(conn, gen)
}

func (m *Manager) readPump(conn *websocket.Conn, gen int) {
	conn.SetReadLimit(1 << 20) // 1MB
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if m.opts.OnFrame != nil {
			m.opts.OnFrame(data)
		}
	}
	m.handleClose(gen)
}

func (m *Manager) writePump(conn *websocket.Conn, send chan []byte) {
	ticker := time.NewTicker(m.opts.Heartbeat)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case b, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			// 应用层心跳，服务端以 pong 帧应答；pong 缺席不作为断连依据。
			b, err := json.Marshal(event.NewPingFrame(time.Now()))
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}
}

// handleClose 在读循环退出后做一次性收尾：翻转状态，视情况安排重连。
func (m *Manager) handleClose(gen int) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	if m.send != nil {
		close(m.send)
		m.send = nil
	}
	m.status = StatusDisconnected
	closed := m.closed
	onState := m.opts.OnState
	if !closed {
		m.scheduleRetryLocked()
	}
	m.mu.Unlock()

	metrics.WsConnected.Set(0)
	log.Info().Bool("deliberate", closed).Msg("ws: disconnected")
	if onState != nil {
		onState(false)
	}
}

// scheduleRetryLocked 按退避表安排下一次重连，调用方需持有 m.mu。
func (m *Manager) scheduleRetryLocked() {
	idx := m.attempt
	if idx >= len(m.opts.Backoff) {
		idx = len(m.opts.Backoff) - 1
	}
	delay := m.opts.Backoff[idx]
	if m.attempt < len(m.opts.Backoff) {
		m.attempt++
	}
	m.status = StatusConnecting
	metrics.WsReconnectsTotal.Inc()
	log.Info().Dur("delay", delay).Int("attempt", m.attempt).Msg("ws: reconnect scheduled")
	m.retry = m.opts.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.closed {
			m.status = StatusDisconnected
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		m.connect()
	})
}
