package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lorrc/avisos-backend/internal/core/domain"
)

const (
	// DefaultReconnectDelay is the fixed wait between a lost connection and
	// the next attempt.
	DefaultReconnectDelay = 3 * time.Second

	defaultDialTimeout = 10 * time.Second
	echoWriteWait      = 5 * time.Second

	newCommentNotice = "New comment received"
)

var (
	ErrDestroyed       = errors.New("connection manager has been detached")
	ErrAlreadyAttached = errors.New("connection manager is already attached")
	ErrNotAttached     = errors.New("connection manager is not attached to an announcement")
	ErrEmptyComment    = errors.New("comment text is empty")
)

// State is the lifecycle state of a Manager.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Status is what observers registered with OnStatus are told.
type Status string

const (
	StatusOpen       Status = "open"
	StatusConnecting Status = "connecting"
	StatusClosed     Status = "closed"
	StatusError      Status = "error"
)

// Notification is a transient notice for the view layer.
type Notification struct {
	Message string
	Comment Comment
}

// CommentsAPI is the REST surface the manager depends on.
type CommentsAPI interface {
	ListForAnnouncement(ctx context.Context, announcementID int64) ([]Comment, error)
	CreateComment(ctx context.Context, announcementID int64, body string) (*Comment, error)
}

// Dialer opens the websocket transport. *websocket.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Options configures a Manager.
type Options struct {
	StreamURL      string
	ReconnectDelay time.Duration
	DialTimeout    time.Duration
	Dialer         Dialer
	Header         http.Header
	Logger         *slog.Logger
	OnNotify       func(Notification)
}

// Manager keeps one announcement's comment list in sync with the server.
// It loads the list over REST, then follows the comments stream, retrying
// a lost connection after a fixed delay for as long as it is attached.
type Manager struct {
	api  CommentsAPI
	opts Options

	logger *slog.Logger
	list   *CommentList

	mu             sync.Mutex
	state          State
	alive          bool
	announcementID int64
	generation     uint64
	conn           *websocket.Conn
	retry          *time.Timer
	ctx            context.Context
	cancel         context.CancelFunc

	writeMu sync.Mutex

	observersMu sync.Mutex
	observers   []func(Status)
	notify      func(Notification)
}

// NewManager creates a detached manager.
func NewManager(api CommentsAPI, opts Options) *Manager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		api:    api,
		opts:   opts,
		logger: logger.With("component", "comments_connection"),
		list:   NewCommentList(),
		state:  StateDisconnected,
		notify: opts.OnNotify,
	}
}

// Attach loads the comments of announcementID and starts following the
// stream. An announcementID of zero or less activates nothing. A failed
// initial load is returned, but the stream is followed regardless. A load
// that completes after Detach is discarded and reported as ErrDestroyed.
func (m *Manager) Attach(ctx context.Context, announcementID int64) error {
	if announcementID <= 0 {
		m.logger.Debug("no announcement context, staying inactive")
		return nil
	}

	m.mu.Lock()
	switch {
	case m.state == StateDestroyed:
		m.mu.Unlock()
		return ErrDestroyed
	case m.alive:
		m.mu.Unlock()
		return ErrAlreadyAttached
	}
	m.alive = true
	m.announcementID = announcementID
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	m.connect()

	comments, err := m.api.ListForAnnouncement(ctx, announcementID)
	if err != nil {
		m.logger.Warn("failed to load comments", "announcement_id", announcementID, "error", err)
		return fmt.Errorf("loading comments: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.alive {
		return ErrDestroyed
	}
	m.list.Merge(comments)
	return nil
}

// Detach stops the manager for good: the pending retry is cancelled, the
// transport closed and observers dropped. Later messages and timers are
// no-ops.
func (m *Manager) Detach() {
	m.mu.Lock()
	if m.state == StateDestroyed {
		m.mu.Unlock()
		return
	}
	m.alive = false
	m.generation++
	m.state = StateDestroyed
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	m.observersMu.Lock()
	m.observers = nil
	m.notify = nil
	m.observersMu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.logger.Debug("detached")
}

// OnStatus registers an observer and immediately reports the current
// status to it.
func (m *Manager) OnStatus(cb func(Status)) {
	if cb == nil {
		return
	}

	m.mu.Lock()
	state := m.state
	m.mu.Unlock()
	if state == StateDestroyed {
		return
	}

	m.observersMu.Lock()
	m.observers = append(m.observers, cb)
	m.observersMu.Unlock()

	switch state {
	case StateConnected:
		cb(StatusOpen)
	case StateConnecting:
		cb(StatusConnecting)
	default:
		cb(StatusClosed)
	}
}

// SendComment creates a comment over REST. On failure the error is returned
// and the real-time path is left alone. On success the response is echoed
// on the stream when connected; otherwise it is inserted locally.
func (m *Manager) SendComment(ctx context.Context, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	m.mu.Lock()
	alive, announcementID := m.alive, m.announcementID
	m.mu.Unlock()
	if !alive {
		return nil, ErrNotAttached
	}

	created, err := m.api.CreateComment(ctx, announcementID, text)
	if err != nil {
		return nil, err
	}

	if !m.echo(created) {
		m.mu.Lock()
		if m.alive {
			m.list.Prepend(*created)
		}
		m.mu.Unlock()
	}
	return created, nil
}

// Comments returns the current list, newest first.
func (m *Manager) Comments() []Comment {
	return m.list.Snapshot()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// echo writes the informational new_comment frame. It reports false when
// there is no open connection to write to.
func (m *Manager) echo(created *Comment) bool {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected && conn != nil
	m.mu.Unlock()
	if !connected {
		return false
	}

	payload := created.Raw
	if len(payload) == 0 {
		var err error
		if payload, err = json.Marshal(created); err != nil {
			return false
		}
	}
	frame, err := json.Marshal(struct {
		Type    domain.BroadcastType `json:"type"`
		Comment json.RawMessage      `json:"comment"`
	}{domain.BroadcastNewComment, payload})
	if err != nil {
		return false
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(echoWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		m.logger.Warn("failed to echo comment", "comment_id", created.ID, "error", err)
		return false
	}
	return true
}

// connect starts one connection attempt for a new generation.
func (m *Manager) connect() {
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return
	}
	m.generation++
	gen := m.generation
	m.state = StateConnecting
	m.retry = nil
	ctx := m.ctx
	m.mu.Unlock()

	m.emit(StatusConnecting)
	go m.run(ctx, gen)
}

func (m *Manager) run(ctx context.Context, gen uint64) {
	dialCtx, cancel := context.WithTimeout(ctx, m.opts.DialTimeout)
	conn, _, err := m.opts.Dialer.DialContext(dialCtx, m.opts.StreamURL, m.opts.Header)
	cancel()
	if err != nil {
		m.connectionLost(gen, StatusError, err)
		return
	}

	m.mu.Lock()
	if !m.alive || gen != m.generation {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.state = StateConnected
	m.mu.Unlock()

	m.logger.Info("connected to comments stream", "url", m.opts.StreamURL)
	m.emit(StatusOpen)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			status := StatusError
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				status = StatusClosed
			}
			m.connectionLost(gen, status, err)
			return
		}
		m.handleMessage(gen, data)
	}
}

// connectionLost tears down the transport of generation gen and schedules
// the single retry. Stale generations are ignored.
func (m *Manager) connectionLost(gen uint64, status Status, cause error) {
	m.mu.Lock()
	if !m.alive || gen != m.generation {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	if m.retry == nil {
		m.retry = time.AfterFunc(m.opts.ReconnectDelay, m.connect)
	}
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.logger.Warn("comments stream lost, retrying",
		"status", string(status),
		"retry_in", m.opts.ReconnectDelay,
		"error", cause,
	)
	m.emit(status)
}

func (m *Manager) handleMessage(gen uint64, data []byte) {
	event, err := domain.DecodeBroadcast(data)
	if err != nil {
		m.logger.Debug("ignoring inbound message", "error", err)
		return
	}

	switch e := event.(type) {
	case domain.WelcomeEvent:
		m.logger.Debug("welcome received", "message", e.Message)
	case domain.NewCommentEvent:
		m.accept(gen, Comment{CommentSnapshot: e.Comment})
	}
}

// accept prepends a pushed comment and notifies the view. The liveness
// check and the insert run under the same lock Detach takes.
func (m *Manager) accept(gen uint64, comment Comment) {
	m.mu.Lock()
	if !m.alive || gen != m.generation || m.state != StateConnected ||
		comment.AnnouncementID != m.announcementID {
		m.mu.Unlock()
		return
	}
	added := m.list.Prepend(comment)

	m.observersMu.Lock()
	notify := m.notify
	m.observersMu.Unlock()
	m.mu.Unlock()

	if added && notify != nil {
		notify(Notification{Message: newCommentNotice, Comment: comment})
	}
}

func (m *Manager) emit(status Status) {
	m.observersMu.Lock()
	observers := slices.Clone(m.observers)
	m.observersMu.Unlock()

	for _, cb := range observers {
		cb(status)
	}
}
