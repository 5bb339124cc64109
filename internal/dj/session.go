package dj

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Settings identifies the broadcast backend and the credentials for one
// station mount. Loaded once before a session starts, never mutated.
type Settings struct {
	ServerURL  string
	StationID  int
	MountPoint string
	Username   string
	Password   string
	APIKey     string
}

// StreamURL derives the DJ socket endpoint from the configured server
// address. The scheme is wss exactly when the server address is https.
func (s Settings) StreamURL() string {
	base := strings.TrimSuffix(s.ServerURL, "/")
	scheme := "ws"
	if strings.HasPrefix(base, "https") {
		scheme = "wss"
	}
	host := strings.TrimPrefix(base, "https://")
	host = strings.TrimPrefix(host, "http://")
	return fmt.Sprintf("%s://%s/api/station/%d/backend/dj", scheme, host, s.StationID)
}

func (s Settings) header() http.Header {
	if s.APIKey == "" {
		return nil
	}
	h := http.Header{}
	h.Set("X-API-Key", s.APIKey)
	return h
}

// State is the transport session's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateAuthenticating
	StateStreaming
	StateReconnecting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Quality is the discrete UI-facing classification of link health.
type Quality string

const (
	QualityExcellent    Quality = "excellent"
	QualityGood         Quality = "good"
	QualityFair         Quality = "fair"
	QualityPoor         Quality = "poor"
	QualityReconnecting Quality = "reconnecting"
	QualityOffline      Quality = "offline"
)

type eventKind int

const (
	eventOpen eventKind = iota
	eventMessage
	eventError
	eventClose
)

// event funnels every socket occurrence through one handler so the state
// machine has a single, testable entry point.
type event struct {
	kind eventKind
	data []byte
	err  error
}

// Session owns one authenticated streaming connection: connect, auth, audio
// frames out, control messages in, bounded linear-backoff reconnection, and
// teardown. One Session per engine instance; Start/Stop are not meant to be
// called concurrently with each other.
type Session struct {
	settings Settings
	dialer   Dialer
	obs      Observer
	id       string

	maxReconnects int
	backoff       time.Duration
	settle        time.Duration
	onTerminal    func() // fires after auth rejection or reconnect exhaustion

	streaming atomic.Bool
	quality   atomic.Value // Quality
	listeners atomic.Int64

	mu         sync.Mutex
	state      State
	sock       Socket
	showID     string
	reconnects int
}

// Option configures a Session.
type Option func(*Session)

// WithObserver replaces the default log-backed observer.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.obs = o }
}

// WithMaxReconnects bounds reconnect attempts per outage.
func WithMaxReconnects(n int) Option {
	return func(s *Session) { s.maxReconnects = n }
}

// WithBackoff sets the linear backoff base (delay = base * attempt).
func WithBackoff(d time.Duration) Option {
	return func(s *Session) { s.backoff = d }
}

// WithSettleDelay sets how long Start waits before judging the connection.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Session) { s.settle = d }
}

// WithTerminalHook registers a callback for unrecoverable session failures.
func WithTerminalHook(fn func()) Option {
	return func(s *Session) { s.onTerminal = fn }
}

// NewSession creates an idle session for the given backend settings.
func NewSession(settings Settings, dialer Dialer, opts ...Option) *Session {
	s := &Session{
		settings:      settings,
		dialer:        dialer,
		obs:           LogObserver{},
		id:            uuid.NewString()[:8],
		maxReconnects: 3,
		backoff:       2 * time.Second,
		settle:        2 * time.Second,
		state:         StateIdle,
	}
	s.quality.Store(QualityOffline)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start connects and authenticates for the given show. It waits the settle
// delay, then reports whether the socket is still open. A synchronous dial
// failure reports false immediately; reconnection only applies to
// established sessions that drop. A false verdict always leaves the session
// stood down, never reconnecting in the background.
func (s *Session) Start(showID string) bool {
	s.mu.Lock()
	switch s.state {
	case StateConnecting, StateAuthenticating, StateStreaming, StateReconnecting:
		s.mu.Unlock()
		s.obs.Log("warn", "start ignored: session already active")
		return false
	}
	s.showID = showID
	s.state = StateConnecting
	s.mu.Unlock()

	if !s.connect() {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		s.obs.Notice(NoticeError, "could not reach the broadcast server")
		return false
	}

	time.Sleep(s.settle)

	if !s.Open() {
		// The link died while settling. The caller is told the session
		// failed, so stand the reconnect policy down rather than let it
		// quietly bring the stream back behind their back.
		s.Stop()
		return false
	}
	s.obs.Notice(NoticeSuccess, "connected to the station stream")
	return true
}

// connect dials the backend and, on success, runs the open transition and
// spawns the read loop.
func (s *Session) connect() bool {
	url := s.settings.StreamURL()
	s.obs.Log("info", fmt.Sprintf("session %s: dialing %s", s.id, url))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sock, err := s.dialer.Dial(ctx, url, s.settings.header())
	if err != nil {
		s.obs.Log("error", fmt.Sprintf("session %s: dial failed: %v", s.id, err))
		return false
	}

	s.mu.Lock()
	if s.state == StateStopped {
		// Stop won the race while the dial was in flight.
		s.mu.Unlock()
		sock.Close()
		return false
	}
	s.sock = sock
	s.mu.Unlock()

	s.handleEvent(event{kind: eventOpen})
	go s.readLoop(sock)
	return true
}

// readLoop turns socket I/O into events for the state machine. It exits on
// the first read failure; whether that failure starts a reconnect is decided
// by the close transition.
func (s *Session) readLoop(sock Socket) {
	for {
		data, err := sock.ReadMessage()
		if err != nil {
			s.mu.Lock()
			current := s.sock == sock
			s.mu.Unlock()
			if !current {
				return // superseded or deliberately closed
			}
			if s.streaming.Load() {
				s.handleEvent(event{kind: eventError, err: err})
			}
			s.handleEvent(event{kind: eventClose, err: err})
			return
		}
		s.handleEvent(event{kind: eventMessage, data: data})
	}
}

func (s *Session) handleEvent(ev event) {
	switch ev.kind {
	case eventOpen:
		s.mu.Lock()
		if s.state == StateStopped || s.sock == nil {
			// Stop won the race while the open transition was in flight;
			// the late open must not resurrect the session.
			s.mu.Unlock()
			return
		}
		s.state = StateAuthenticating
		s.reconnects = 0
		s.streaming.Store(true)
		sock := s.sock
		auth := authRequest{
			Type:       "auth",
			Username:   s.settings.Username,
			Password:   s.settings.Password,
			MountPoint: s.settings.MountPoint,
			ShowID:     s.showID,
		}
		s.mu.Unlock()

		s.setQuality(QualityExcellent)

		if err := sock.WriteJSON(auth); err != nil {
			s.obs.Log("error", fmt.Sprintf("session %s: auth send failed: %v", s.id, err))
			return
		}
		s.obs.Log("info", fmt.Sprintf("session %s: socket open, auth sent for show %s", s.id, auth.ShowID))

	case eventMessage:
		s.handleMessage(ev.data)

	case eventError:
		s.setQuality(QualityPoor)
		s.obs.Log("error", fmt.Sprintf("session %s: socket error: %v", s.id, ev.err))
		s.obs.Notice(NoticeWarning, "stream connection issue detected")

	case eventClose:
		s.handleClose()
	}
}

func (s *Session) handleMessage(data []byte) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		s.obs.Log("debug", fmt.Sprintf("session %s: unrecognized backend message: %s", s.id, data))
		return
	}

	switch msg.Type {
	case "auth_success":
		s.mu.Lock()
		s.state = StateStreaming
		s.mu.Unlock()
		s.obs.Log("info", fmt.Sprintf("session %s: authenticated", s.id))
		s.obs.Notice(NoticeSuccess, "authenticated, you are on air")

	case "auth_failed":
		reason := msg.Reason
		if reason == "" {
			reason = "credentials rejected"
		}
		s.obs.Log("error", fmt.Sprintf("session %s: auth failed: %s", s.id, reason))
		s.obs.Notice(NoticeError, "stream authentication failed: "+reason)
		s.Stop()
		s.terminal()

	case "ping":
		// Keepalive contract: reply in the same message-handling turn.
		s.mu.Lock()
		sock := s.sock
		s.mu.Unlock()
		if sock != nil {
			if err := sock.WriteJSON(pongReply{Type: "pong"}); err != nil {
				s.obs.Log("error", fmt.Sprintf("session %s: pong failed: %v", s.id, err))
			}
		}

	case "listener_count":
		s.listeners.Store(int64(msg.Count))
		s.obs.Log("info", fmt.Sprintf("session %s: listeners: %d", s.id, msg.Count))

	case "error":
		s.obs.Log("error", fmt.Sprintf("session %s: backend error: %s", s.id, msg.Message))
		s.obs.Notice(NoticeError, "backend: "+msg.Message)

	default:
		s.obs.Log("debug", fmt.Sprintf("session %s: unrecognized backend message: %s", s.id, data))
	}
}

// handleClose runs the recovery decision: a close with the streaming flag
// already cleared was deliberate; anything else enters the reconnect policy.
func (s *Session) handleClose() {
	if !s.streaming.Load() {
		s.mu.Lock()
		s.sock = nil
		s.state = StateStopped
		s.mu.Unlock()
		return
	}
	s.scheduleReconnect()
}

func (s *Session) scheduleReconnect() {
	s.mu.Lock()
	if !s.streaming.Load() {
		// Stopped while a reconnect dial was failing.
		s.mu.Unlock()
		return
	}
	if s.reconnects >= s.maxReconnects {
		s.mu.Unlock()
		s.giveUp()
		return
	}
	s.reconnects++
	attempt := s.reconnects
	s.state = StateReconnecting
	s.sock = nil
	s.mu.Unlock()

	delay := time.Duration(attempt) * s.backoff
	s.setQuality(QualityReconnecting)
	s.obs.Log("info", fmt.Sprintf("session %s: reconnect attempt %d/%d in %v", s.id, attempt, s.maxReconnects, delay))
	s.obs.Notice(NoticeWarning, fmt.Sprintf("stream dropped, reconnecting (attempt %d/%d)", attempt, s.maxReconnects))

	time.AfterFunc(delay, func() {
		s.mu.Lock()
		if !s.streaming.Load() {
			s.mu.Unlock()
			return // stopped while waiting
		}
		s.state = StateConnecting
		s.mu.Unlock()
		if !s.connect() {
			s.scheduleReconnect()
		}
	})
}

// giveUp is the permanent-failure transition once attempts are exhausted.
func (s *Session) giveUp() {
	s.mu.Lock()
	s.streaming.Store(false)
	sock := s.sock
	s.sock = nil
	s.state = StateStopped
	s.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
	s.setQuality(QualityOffline)
	s.obs.Log("error", fmt.Sprintf("session %s: reconnect attempts exhausted", s.id))
	s.obs.Notice(NoticeError, "connection lost: could not re-establish the stream")
	s.terminal()
}

// SendAudio transmits one encoded PCM frame. Frames are dropped silently
// unless the session is streaming and the socket is open; there is no
// queueing. A failed send downgrades quality and the stream carries on.
func (s *Session) SendAudio(frame []byte) {
	if !s.streaming.Load() {
		return
	}

	s.mu.Lock()
	sock := s.sock
	open := s.state == StateAuthenticating || s.state == StateStreaming
	s.mu.Unlock()
	if sock == nil || !open {
		return
	}

	if err := sock.WriteBinary(frame); err != nil {
		s.setQuality(QualityPoor)
		s.obs.Log("error", fmt.Sprintf("session %s: frame send failed: %v", s.id, err))
	}
}

// Stop shuts the session down deliberately: clear the streaming flag and the
// socket in one critical section so pending sends, reconnect timers, and
// in-flight open transitions stand down, notify the backend, close the
// socket. Every step is guarded; calling Stop twice, or with no session
// active, is harmless.
func (s *Session) Stop() {
	s.mu.Lock()
	wasStreaming := s.streaming.Swap(false)
	sock := s.sock
	s.sock = nil
	s.state = StateStopped
	s.mu.Unlock()

	if sock != nil {
		if err := sock.WriteJSON(disconnectNotice{Type: "disconnect"}); err != nil {
			s.obs.Log("debug", fmt.Sprintf("session %s: disconnect notice failed: %v", s.id, err))
		}
		if err := sock.Close(); err != nil {
			s.obs.Log("debug", fmt.Sprintf("session %s: socket close: %v", s.id, err))
		}
	}

	s.setQuality(QualityOffline)
	if wasStreaming {
		s.obs.Log("info", fmt.Sprintf("session %s: stopped", s.id))
		s.obs.Notice(NoticeInfo, "stream stopped")
	}
}

func (s *Session) terminal() {
	if s.onTerminal != nil {
		go s.onTerminal()
	}
}

func (s *Session) setQuality(q Quality) {
	s.quality.Store(q)
}

// Open reports whether the socket is currently usable for frames.
func (s *Session) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sock != nil && (s.state == StateAuthenticating || s.state == StateStreaming)
}

// Streaming reports whether the session considers itself live.
func (s *Session) Streaming() bool {
	return s.streaming.Load()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConnectionQuality returns the last quality classification.
func (s *Session) ConnectionQuality() Quality {
	return s.quality.Load().(Quality)
}

// ListenerCount returns the most recent listener count reported by the
// backend.
func (s *Session) ListenerCount() int {
	return int(s.listeners.Load())
}

// ShowID returns the show the session last started with.
func (s *Session) ShowID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showID
}
