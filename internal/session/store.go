// Package session tracks the backend's chat sessions and which one is open.
//
// A Store mirrors the server-side session list, owns the message log of the
// current session and signals every change on a coalescing channel so a UI
// can redraw without polling.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fakeyudi/syllabus/internal/backend"
	"github.com/fakeyudi/syllabus/internal/message"
)

var (
	// ErrEmptyTitle is returned by Rename for a blank title.
	ErrEmptyTitle = errors.New("session title must not be empty")
	// ErrNoSession is returned when an operation needs a current session.
	ErrNoSession = errors.New("no current session")
)

// Session is one entry of the session list.
type Session struct {
	ID    string
	Title string
}

// Client is the slice of the backend API the store uses.
type Client interface {
	ListSessions(ctx context.Context) ([]backend.SessionSummary, error)
	NewSession(ctx context.Context) (string, error)
	LoadSession(ctx context.Context, id string) ([]json.RawMessage, error)
	RenameSession(ctx context.Context, id, title string) error
	ClearSessions(ctx context.Context) error
}

// Store holds the session list, the current session id and its message log.
type Store struct {
	client  Client
	logger  *zap.Logger
	state   StateStore
	backend string
	changes chan struct{}
	refresh singleflight.Group

	mu       sync.RWMutex
	current  string
	sessions []Session
	log      *message.Log
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithState remembers the current session id across runs.
func WithState(st StateStore) Option {
	return func(s *Store) { s.state = st }
}

// WithBackendURL records which backend remembered sessions belong to. A
// session remembered for a different backend is not resumed.
func WithBackendURL(url string) Option {
	return func(s *Store) { s.backend = url }
}

// NewStore returns an empty store with no current session.
func NewStore(client Client, opts ...Option) *Store {
	s := &Store{
		client:  client,
		logger:  zap.NewNop(),
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.newLog(nil)
	return s
}

// Changes delivers a value after any change to the list, the current
// session or the current log. Bursts collapse into one signal.
func (s *Store) Changes() <-chan struct{} { return s.changes }

func (s *Store) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Store) newLog(msgs []message.Message) *message.Log {
	return message.NewLog(msgs, message.WithNotify(s.signal))
}

// Current returns the open session id, or "" when none is open.
func (s *Store) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Sessions returns a copy of the last fetched list.
func (s *Store) Sessions() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Title returns the listed title of id.
func (s *Store) Title(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess.Title, true
		}
	}
	return "", false
}

// Log returns the message log of the current session. The log is replaced
// wholesale when the current session changes.
func (s *Store) Log() *message.Log {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log
}

// List refreshes the session list from the backend. A failed refresh keeps
// the previous list and is only logged. Concurrent callers share one request.
func (s *Store) List(ctx context.Context) []Session {
	_, err, _ := s.refresh.Do("list", func() (any, error) {
		summaries, err := s.client.ListSessions(ctx)
		if err != nil {
			return nil, err
		}
		list := make([]Session, 0, len(summaries))
		for _, sum := range summaries {
			list = append(list, Session{ID: sum.ID, Title: sum.Title})
		}
		s.mu.Lock()
		s.sessions = list
		s.mu.Unlock()
		s.signal()
		return nil, nil
	})
	if err != nil {
		s.logger.Warn("refresh session list", zap.Error(err))
	}
	return s.Sessions()
}

// Create mints a session, makes it current with an empty log and refreshes
// the list.
func (s *Store) Create(ctx context.Context) (string, error) {
	id, err := s.client.NewSession(ctx)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	s.open(id, nil)
	s.List(ctx)
	return id, nil
}

// Load makes id current with its persisted history. On failure nothing
// changes and the error is returned.
func (s *Store) Load(ctx context.Context, id string) error {
	raws, err := s.client.LoadSession(ctx, id)
	if err != nil {
		return fmt.Errorf("load session %s: %w", id, err)
	}
	msgs := message.DecodeAll(raws)
	s.open(id, msgs)
	s.logger.Debug("session loaded", zap.String("session", id), zap.Int("messages", len(msgs)))
	return nil
}

// Resume reopens the session remembered from the last run, or creates a
// fresh one when there is none or it no longer exists.
func (s *Store) Resume(ctx context.Context) (string, error) {
	if s.state != nil {
		st, err := s.state.Load()
		switch {
		case err == nil && !s.sameBackend(st):
			s.logger.Info("remembered session belongs to another backend",
				zap.String("session", st.CurrentSessionID), zap.String("backend", st.BackendURL))
		case err == nil && st.CurrentSessionID != "":
			lerr := s.Load(ctx, st.CurrentSessionID)
			if lerr == nil {
				s.List(ctx)
				return st.CurrentSessionID, nil
			}
			s.logger.Info("remembered session unavailable",
				zap.String("session", st.CurrentSessionID), zap.Error(lerr))
		case err != nil && !errors.Is(err, ErrNoState):
			s.logger.Warn("read client state", zap.Error(err))
		}
	}
	return s.Create(ctx)
}

func (s *Store) sameBackend(st *State) bool {
	return st.BackendURL == "" || s.backend == "" || st.BackendURL == s.backend
}

// Rename retitles id and refreshes the list.
func (s *Store) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if err := s.client.RenameSession(ctx, id, title); err != nil {
		return fmt.Errorf("rename session %s: %w", id, err)
	}
	s.mu.Lock()
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions[i].Title = title
		}
	}
	s.mu.Unlock()
	s.signal()
	s.List(ctx)
	return nil
}

// ClearAll deletes every session on the server, empties the local list and
// opens a fresh session. The list is not refreshed, so the new session only
// appears after the next List.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.client.ClearSessions(ctx); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	s.mu.Lock()
	s.sessions = nil
	s.current = ""
	s.log = s.newLog(nil)
	s.mu.Unlock()
	s.signal()

	id, err := s.client.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("create session after clear: %w", err)
	}
	s.open(id, nil)
	return nil
}

func (s *Store) open(id string, msgs []message.Message) {
	s.mu.Lock()
	s.current = id
	s.log = s.newLog(msgs)
	s.mu.Unlock()
	s.signal()
	s.remember(id)
}

func (s *Store) remember(id string) {
	if s.state == nil {
		return
	}
	if err := s.state.Save(&State{CurrentSessionID: id, BackendURL: s.backend, UpdatedAt: time.Now().UTC()}); err != nil {
		s.logger.Warn("save client state", zap.Error(err))
	}
}
