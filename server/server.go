// Package server exposes the therapist over the network: Connect RPC
// procedures for identity and single turns, a WebSocket endpoint for
// streaming conversations, and a health check.
//
// Conversation history for network clients is held server-side in a
// session.Store keyed by session id, so clients only send text.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/therapy/core/protocol"
	"github.com/tailored-agentic-units/therapy/identity"
	"github.com/tailored-agentic-units/therapy/observability"
	"github.com/tailored-agentic-units/therapy/session"
	"github.com/tailored-agentic-units/therapy/therapist"
)

// DefaultIdleTimeout bounds how long an unused session stays in memory.
const DefaultIdleTimeout = 30 * time.Minute

// Backend is the conversation engine the server drives.
// *therapist.Therapist satisfies it.
type Backend interface {
	Respond(ctx context.Context, text string, history []protocol.Message, userID, sessionID string) therapist.Result
	Resume(ctx context.Context, sessionID string) ([]protocol.Message, bool)
}

// Option configures a Server.
type Option func(*Server)

// WithObserver sets the observer for server events.
func WithObserver(o observability.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithIdleTimeout sets how long a session with no open connection and no
// turn in flight stays in memory. Zero keeps sessions until their
// WebSocket closes.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.idle = d }
}

// WithSessionStore replaces the server's live session store.
func WithSessionStore(store *session.Store) Option {
	return func(s *Server) { s.sessions = store }
}

// Server routes network requests to a Backend.
type Server struct {
	backend  Backend
	identity *identity.Manager
	sessions *session.Store
	observer observability.Observer
	upgrader websocket.Upgrader
	idle     time.Duration

	mu      sync.Mutex
	tracked map[string]*tracked
}

// tracked serializes turns for one live session and counts its users.
type tracked struct {
	turn     sync.Mutex
	refs     int
	lastUsed time.Time
}

// New creates a Server.
func New(backend Backend, ids *identity.Manager, opts ...Option) *Server {
	s := &Server{
		backend:  backend,
		identity: ids,
		sessions: session.NewStore(),
		observer: observability.NoOpObserver{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		idle:    DefaultIdleTimeout,
		tracked: make(map[string]*tracked),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.identity == nil {
		s.identity = identity.NewManager()
	}
	return s
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRPC(mux)
	mux.HandleFunc("/ws", s.serveWebSocket)
	mux.HandleFunc("/health", s.serveHealth)
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.emit(ctx, EventListen, observability.LevelInfo, map[string]any{"addr": addr})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// respond runs one turn against the server-held session. Turns for the
// same session are serialized.
func (s *Server) respond(ctx context.Context, text, userID, sessionID string) therapist.Result {
	s.evictIdle()

	tr := s.retain(sessionID)
	defer s.release(sessionID, tr, false)

	tr.turn.Lock()
	defer tr.turn.Unlock()

	sess, created := s.sessions.Open(sessionID, userID)
	if created {
		if restored, ok := s.backend.Resume(ctx, sessionID); ok {
			sess.Replace(restored)
		}
	}

	result := s.backend.Respond(ctx, text, sess.Messages(), userID, sessionID)
	sess.Replace(result.History)
	return result
}

// retain marks sessionID as in use so it is not evicted.
func (s *Server) retain(sessionID string) *tracked {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.tracked[sessionID]
	if !ok {
		tr = &tracked{}
		s.tracked[sessionID] = tr
	}
	tr.refs++
	return tr
}

// release drops one use of sessionID. With evict set, the session leaves
// memory once nothing else holds it; its history survives in the
// backend's checkpoints.
func (s *Server) release(sessionID string, tr *tracked, evict bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr.refs--
	tr.lastUsed = time.Now()
	if evict && tr.refs == 0 {
		s.forget(sessionID)
	}
}

// evictIdle drops sessions unused for longer than the idle timeout.
func (s *Server) evictIdle() {
	if s.idle <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, tr := range s.tracked {
		if tr.refs == 0 && now.Sub(tr.lastUsed) >= s.idle {
			s.forget(id)
		}
	}
}

// forget requires s.mu.
func (s *Server) forget(sessionID string) {
	delete(s.tracked, sessionID)
	s.sessions.Close(sessionID)
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": len(s.sessions.IDs()),
	})
}

func (s *Server) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	s.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "server",
		Data:      data,
	})
}
