package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wsAdapter "github.com/lorrc/avisos-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/avisos-backend/internal/core/domain"
)

const (
	testDelay = 100 * time.Millisecond
	waitFor   = 2 * time.Second
	tick      = 5 * time.Millisecond
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func snapshot(id, announcementID int64, body string) domain.CommentSnapshot {
	return domain.CommentSnapshot{
		ID:             id,
		AnnouncementID: announcementID,
		Body:           body,
		CreatedAt:      "2026-10-12T09:00:00Z",
		Author:         &domain.UserInfo{ID: 3, Name: "Ana", Email: "ana@example.com"},
	}
}

// --- Fakes ---

type fakeAPI struct {
	mu        sync.Mutex
	nextID    int64
	stored    map[int64][]Comment
	listCalls atomic.Int32
	createErr error
	onCreate  func(Comment)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{nextID: 100, stored: make(map[int64][]Comment)}
}

func (f *fakeAPI) ListForAnnouncement(_ context.Context, announcementID int64) ([]Comment, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Comment(nil), f.stored[announcementID]...), nil
}

func (f *fakeAPI) CreateComment(_ context.Context, announcementID int64, body string) (*Comment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}

	f.mu.Lock()
	f.nextID++
	comment := Comment{CommentSnapshot: snapshot(f.nextID, announcementID, body)}
	f.stored[announcementID] = append([]Comment{comment}, f.stored[announcementID]...)
	f.mu.Unlock()

	raw, err := json.Marshal(comment)
	if err != nil {
		return nil, err
	}
	comment.Raw = raw

	if f.onCreate != nil {
		f.onCreate(comment)
	}
	return &comment, nil
}

type failingDialer struct {
	calls atomic.Int32
}

func (d *failingDialer) DialContext(context.Context, string, http.Header) (*websocket.Conn, *http.Response, error) {
	d.calls.Add(1)
	return nil, nil, errors.New("connection refused")
}

// streamServer serves the comments stream from a real gateway hub.
type streamServer struct {
	hub   *wsAdapter.Hub
	srv   *httptest.Server
	dials atomic.Int32
}

func newStreamServer(t *testing.T) *streamServer {
	t.Helper()

	s := &streamServer{hub: wsAdapter.NewHub(wsAdapter.DefaultConfig(), discardLogger())}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.dials.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.hub.Serve(conn)
	}))
	t.Cleanup(func() {
		s.hub.Close()
		s.srv.Close()
	})
	return s
}

func (s *streamServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// waitClients blocks until the hub has registered n open connections.
func (s *streamServer) waitClients(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.hub.ClientCount() == n }, waitFor, tick)
}

func (s *streamServer) push(t *testing.T, snap domain.CommentSnapshot) {
	t.Helper()
	require.NoError(t, s.hub.Broadcast(domain.NewCommentEvent{Comment: snap}))
}

// rawServer runs handle for every accepted connection.
func rawServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// statusLog records every status with its arrival time.
type statusLog struct {
	mu      sync.Mutex
	entries []Status
	times   []time.Time
}

func (l *statusLog) record(s Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, s)
	l.times = append(l.times, time.Now())
}

func (l *statusLog) count(s Status) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e == s {
			n++
		}
	}
	return n
}

func (l *statusLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// lastAt returns the time of the last occurrence of s.
func (l *statusLog) lastAt(s Status) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i] == s {
			return l.times[i]
		}
	}
	return time.Time{}
}

func newTestManager(t *testing.T, api CommentsAPI, opts Options) *Manager {
	t.Helper()
	if opts.ReconnectDelay == 0 {
		opts.ReconnectDelay = testDelay
	}
	opts.Logger = discardLogger()
	m := NewManager(api, opts)
	t.Cleanup(m.Detach)
	return m
}

func attachConnected(t *testing.T, m *Manager, announcementID int64) {
	t.Helper()
	require.NoError(t, m.Attach(context.Background(), announcementID))
	require.Eventually(t, func() bool { return m.State() == StateConnected }, waitFor, tick)
}

// --- Tests ---

func TestManager_AttachLoadsAndConnects(t *testing.T) {
	stream := newStreamServer(t)
	api := newFakeAPI()
	api.stored[42] = []Comment{
		{CommentSnapshot: snapshot(2, 42, "second")},
		{CommentSnapshot: snapshot(1, 42, "first")},
	}

	m := newTestManager(t, api, Options{StreamURL: stream.url()})
	attachConnected(t, m, 42)

	comments := m.Comments()
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0].Body)
	assert.Equal(t, int32(1), api.listCalls.Load())
	stream.waitClients(t, 1)
}

func TestManager_AttachWithoutAnnouncementActivatesNothing(t *testing.T) {
	dialer := &failingDialer{}
	api := newFakeAPI()
	m := newTestManager(t, api, Options{StreamURL: "ws://unused", Dialer: dialer})

	require.NoError(t, m.Attach(context.Background(), 0))

	time.Sleep(2 * testDelay)
	assert.Equal(t, StateDisconnected, m.State())
	assert.Zero(t, dialer.calls.Load())
	assert.Zero(t, api.listCalls.Load())
}

func TestManager_AttachTwiceFails(t *testing.T) {
	stream := newStreamServer(t)
	m := newTestManager(t, newFakeAPI(), Options{StreamURL: stream.url()})
	attachConnected(t, m, 42)

	assert.ErrorIs(t, m.Attach(context.Background(), 42), ErrAlreadyAttached)
}

func TestManager_ReconnectsAfterFixedDelayUnbounded(t *testing.T) {
	stream := newStreamServer(t)
	statuses := &statusLog{}

	m := newTestManager(t, newFakeAPI(), Options{StreamURL: stream.url()})
	attachConnected(t, m, 42)
	stream.waitClients(t, 1)
	m.OnStatus(statuses.record)
	require.Equal(t, int32(1), stream.dials.Load())

	const cycles = 3
	for i := 1; i <= cycles; i++ {
		stream.hub.Close()

		require.Eventually(t, func() bool { return statuses.count(StatusClosed) == i }, waitFor, tick)
		closedAt := statuses.lastAt(StatusClosed)

		require.Eventually(t, func() bool {
			return m.State() == StateConnected && stream.hub.ClientCount() == 1
		}, waitFor, tick)

		assert.Equal(t, int32(i+1), stream.dials.Load(), "exactly one attempt per lost connection")
		assert.Equal(t, i, statuses.count(StatusConnecting))
		assert.GreaterOrEqual(t, statuses.lastAt(StatusConnecting).Sub(closedAt), testDelay/2)
	}
}

func TestManager_FailedDialRetries(t *testing.T) {
	dialer := &failingDialer{}
	statuses := &statusLog{}

	m := newTestManager(t, newFakeAPI(), Options{StreamURL: "ws://unused", Dialer: dialer})
	m.OnStatus(statuses.record)
	require.NoError(t, m.Attach(context.Background(), 42))

	require.Eventually(t, func() bool { return dialer.calls.Load() >= 3 }, waitFor, tick)
	assert.GreaterOrEqual(t, statuses.count(StatusError), 2)
}

func TestManager_IgnoresOtherAnnouncements(t *testing.T) {
	stream := newStreamServer(t)
	m := newTestManager(t, newFakeAPI(), Options{StreamURL: stream.url()})
	attachConnected(t, m, 42)
	stream.waitClients(t, 1)

	stream.push(t, snapshot(10, 99, "elsewhere"))
	stream.push(t, snapshot(11, 42, "here"))

	require.Eventually(t, func() bool { return len(m.Comments()) == 1 }, waitFor, tick)
	time.Sleep(2 * testDelay)

	comments := m.Comments()
	require.Len(t, comments, 1)
	assert.Equal(t, int64(11), comments[0].ID)
}

func TestManager_PrependsAndNotifiesOncePerComment(t *testing.T) {
	stream := newStreamServer(t)
	var notes []Notification
	var mu sync.Mutex

	api := newFakeAPI()
	api.stored[42] = []Comment{{CommentSnapshot: snapshot(1, 42, "old")}}

	m := newTestManager(t, api, Options{
		StreamURL: stream.url(),
		OnNotify: func(n Notification) {
			mu.Lock()
			notes = append(notes, n)
			mu.Unlock()
		},
	})
	attachConnected(t, m, 42)
	stream.waitClients(t, 1)

	stream.push(t, snapshot(5, 42, "fresh"))
	stream.push(t, snapshot(5, 42, "fresh"))

	require.Eventually(t, func() bool { return len(m.Comments()) == 2 }, waitFor, tick)
	time.Sleep(2 * testDelay)

	comments := m.Comments()
	require.Len(t, comments, 2)
	assert.Equal(t, "fresh", comments[0].Body)
	assert.Equal(t, "old", comments[1].Body)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notes, 1)
	assert.Equal(t, "New comment received", notes[0].Message)
	assert.Equal(t, int64(5), notes[0].Comment.ID)
}

func TestManager_IgnoresInvalidMessages(t *testing.T) {
	valid, err := json.Marshal(map[string]any{"type": "new_comment", "comment": snapshot(9, 42, "valid")})
	require.NoError(t, err)

	url := rawServer(t, func(conn *websocket.Conn) {
		frames := []string{
			`{"type":"welcome","message":"hi"}`,
			`not json`,
			`{"type":"surprise","comment":{}}`,
			`{"type":"new_comment","comment":{"id":8,"announcement_id":42,"body":"no author","created_at":"2026-10-12T09:00:00Z"}}`,
			string(valid),
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		_, _, _ = conn.ReadMessage()
	})

	m := newTestManager(t, newFakeAPI(), Options{StreamURL: url})
	attachConnected(t, m, 42)

	require.Eventually(t, func() bool { return len(m.Comments()) == 1 }, waitFor, tick)
	time.Sleep(2 * testDelay)

	comments := m.Comments()
	require.Len(t, comments, 1)
	assert.Equal(t, int64(9), comments[0].ID)
	assert.Equal(t, StateConnected, m.State())
}

func TestManager_DetachStopsEverything(t *testing.T) {
	stream := newStreamServer(t)
	var calls atomic.Int32

	m := newTestManager(t, newFakeAPI(), Options{StreamURL: stream.url()})
	attachConnected(t, m, 42)
	m.OnStatus(func(Status) { calls.Add(1) })
	require.Equal(t, int32(1), calls.Load())

	m.Detach()
	assert.Equal(t, StateDestroyed, m.State())
	require.Eventually(t, func() bool { return stream.hub.ClientCount() == 0 }, waitFor, tick)

	stream.push(t, snapshot(20, 42, "too late"))
	time.Sleep(3 * testDelay)

	assert.Empty(t, m.Comments())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), stream.dials.Load())
	assert.ErrorIs(t, m.Attach(context.Background(), 42), ErrDestroyed)
}

func TestManager_DetachCancelsPendingRetry(t *testing.T) {
	stream := newStreamServer(t)
	statuses := &statusLog{}

	m := newTestManager(t, newFakeAPI(), Options{StreamURL: stream.url(), ReconnectDelay: 3 * testDelay})
	m.OnStatus(statuses.record)
	attachConnected(t, m, 42)

	stream.hub.Close()
	require.Eventually(t, func() bool { return m.State() == StateDisconnected }, waitFor, tick)
	seen := statuses.len()

	m.Detach()
	time.Sleep(5 * testDelay)

	assert.Equal(t, int32(1), stream.dials.Load())
	assert.Equal(t, seen, statuses.len())
	assert.Equal(t, StateDestroyed, m.State())
}

func TestManager_SendCommentWhileConnectedEchoesWithoutDuplicate(t *testing.T) {
	stream := newStreamServer(t)
	api := newFakeAPI()
	api.onCreate = func(c Comment) { stream.push(t, c.CommentSnapshot) }

	sender := newTestManager(t, api, Options{StreamURL: stream.url()})
	attachConnected(t, sender, 42)
	observer := newTestManager(t, api, Options{StreamURL: stream.url()})
	attachConnected(t, observer, 42)
	stream.waitClients(t, 2)

	created, err := sender.SendComment(context.Background(), "  from sender  ")
	require.NoError(t, err)
	assert.Equal(t, "from sender", created.Body)

	require.Eventually(t, func() bool {
		return len(sender.Comments()) == 1 && len(observer.Comments()) == 1
	}, waitFor, tick)
	time.Sleep(3 * testDelay)

	assert.Len(t, sender.Comments(), 1)
	assert.Len(t, observer.Comments(), 1)
	assert.Equal(t, created.ID, sender.Comments()[0].ID)
}

func TestManager_EchoCarriesRESTResponseVerbatim(t *testing.T) {
	received := make(chan []byte, 1)
	url := rawServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- data
		_, _, _ = conn.ReadMessage()
	})

	api := newFakeAPI()
	m := newTestManager(t, api, Options{StreamURL: url})
	attachConnected(t, m, 42)

	created, err := m.SendComment(context.Background(), "echo me")
	require.NoError(t, err)

	select {
	case data := <-received:
		var frame struct {
			Type    string          `json:"type"`
			Comment json.RawMessage `json:"comment"`
		}
		require.NoError(t, json.Unmarshal(data, &frame))
		assert.Equal(t, "new_comment", frame.Type)
		assert.JSONEq(t, string(created.Raw), string(frame.Comment))
	case <-time.After(waitFor):
		t.Fatal("no echo received")
	}

	// Connected: the list waits for the server push.
	assert.Empty(t, m.Comments())
}

func TestManager_SendCommentOfflineInsertsLocally(t *testing.T) {
	dialer := &failingDialer{}
	m := newTestManager(t, newFakeAPI(), Options{
		StreamURL:      "ws://unused",
		Dialer:         dialer,
		ReconnectDelay: time.Minute,
	})
	require.NoError(t, m.Attach(context.Background(), 42))
	require.Eventually(t, func() bool { return m.State() == StateDisconnected }, waitFor, tick)

	_, err := m.SendComment(context.Background(), "offline note")
	require.NoError(t, err)

	comments := m.Comments()
	require.Len(t, comments, 1)
	assert.Equal(t, "offline note", comments[0].Body)
	assert.Equal(t, int64(42), comments[0].AnnouncementID)
}

func TestManager_SendCommentErrors(t *testing.T) {
	stream := newStreamServer(t)
	api := newFakeAPI()

	m := newTestManager(t, api, Options{StreamURL: stream.url()})

	_, err := m.SendComment(context.Background(), "not yet")
	assert.ErrorIs(t, err, ErrNotAttached)

	attachConnected(t, m, 42)

	_, err = m.SendComment(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyComment)

	api.createErr = &APIError{StatusCode: http.StatusForbidden, Code: "FORBIDDEN", Message: "Action forbidden"}
	_, err = m.SendComment(context.Background(), "rejected")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Empty(t, m.Comments())
	assert.Equal(t, StateConnected, m.State())
}

func TestManager_OnStatusReportsCurrentState(t *testing.T) {
	stream := newStreamServer(t)
	m := newTestManager(t, newFakeAPI(), Options{StreamURL: stream.url()})

	var first Status
	m.OnStatus(func(s Status) {
		if first == "" {
			first = s
		}
	})
	assert.Equal(t, StatusClosed, first)

	attachConnected(t, m, 42)

	var now Status
	m.OnStatus(func(s Status) {
		if now == "" {
			now = s
		}
	})
	assert.Equal(t, StatusOpen, now)
}

// A reconnect does not fetch the comments missed while disconnected; only a
// fresh Attach reloads them.
func TestManager_ReconnectDoesNotResync(t *testing.T) {
	stream := newStreamServer(t)
	api := newFakeAPI()
	api.onCreate = func(c Comment) { stream.push(t, c.CommentSnapshot) }

	m := newTestManager(t, api, Options{StreamURL: stream.url(), ReconnectDelay: 3 * testDelay})
	attachConnected(t, m, 42)

	stream.hub.Close()
	require.Eventually(t, func() bool { return m.State() == StateDisconnected }, waitFor, tick)

	_, err := api.CreateComment(context.Background(), 42, "missed")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.State() == StateConnected }, waitFor, tick)
	time.Sleep(2 * testDelay)

	assert.Empty(t, m.Comments())
	assert.Equal(t, int32(1), api.listCalls.Load())

	fresh := newTestManager(t, api, Options{StreamURL: stream.url()})
	attachConnected(t, fresh, 42)
	require.Len(t, fresh.Comments(), 1)
	assert.Equal(t, "missed", fresh.Comments()[0].Body)
}

// gatedListAPI blocks ListForAnnouncement until release is closed.
type gatedListAPI struct {
	*fakeAPI
	started chan struct{}
	release chan struct{}
}

func (g *gatedListAPI) ListForAnnouncement(ctx context.Context, announcementID int64) ([]Comment, error) {
	close(g.started)
	<-g.release
	return g.fakeAPI.ListForAnnouncement(ctx, announcementID)
}

func TestManager_DetachDuringLoadDiscardsResult(t *testing.T) {
	api := &gatedListAPI{fakeAPI: newFakeAPI(), started: make(chan struct{}), release: make(chan struct{})}
	api.stored[42] = []Comment{{CommentSnapshot: snapshot(1, 42, "loaded late")}}

	m := newTestManager(t, api, Options{StreamURL: "ws://unused", Dialer: &failingDialer{}, ReconnectDelay: time.Minute})

	errCh := make(chan error, 1)
	go func() { errCh <- m.Attach(context.Background(), 42) }()

	<-api.started
	m.Detach()
	close(api.release)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrDestroyed)
	case <-time.After(waitFor):
		t.Fatal("Attach did not return")
	}
	assert.Empty(t, m.Comments())
	assert.Equal(t, StateDestroyed, m.State())
}

func TestManager_DetachDuringSendSkipsLocalInsert(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := newFakeAPI()
	api.onCreate = func(Comment) {
		close(started)
		<-release
	}

	m := newTestManager(t, api, Options{StreamURL: "ws://unused", Dialer: &failingDialer{}, ReconnectDelay: time.Minute})
	require.NoError(t, m.Attach(context.Background(), 42))
	require.Eventually(t, func() bool { return m.State() == StateDisconnected }, waitFor, tick)

	done := make(chan error, 1)
	go func() {
		_, err := m.SendComment(context.Background(), "in flight")
		done <- err
	}()

	<-started
	m.Detach()
	close(release)

	require.NoError(t, <-done)
	assert.Empty(t, m.Comments())
}

func TestManager_PushAfterDetachIsDropped(t *testing.T) {
	stream := newStreamServer(t)
	var notified atomic.Int32

	m := newTestManager(t, newFakeAPI(), Options{
		StreamURL: stream.url(),
		OnNotify:  func(Notification) { notified.Add(1) },
	})
	attachConnected(t, m, 42)

	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	m.accept(gen, Comment{CommentSnapshot: snapshot(30, 42, "accepted")})
	require.Len(t, m.Comments(), 1)
	require.Equal(t, int32(1), notified.Load())

	m.Detach()
	m.accept(gen, Comment{CommentSnapshot: snapshot(31, 42, "after detach")})

	assert.Len(t, m.Comments(), 1)
	assert.Equal(t, int32(1), notified.Load())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "destroyed", StateDestroyed.String())
	assert.Equal(t, "unknown", State(42).String())
}
