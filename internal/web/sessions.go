package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/self-interview/internal/logger"
	"github.com/spigell/self-interview/internal/wizard"
)

var ErrSessionNotFound = errors.New("interview session not found")

// WizardFactory builds the wizard for a fresh session.
type WizardFactory func(code string, l *zap.Logger) *wizard.Wizard

// Session is one page load of the interview.
type Session struct {
	ID        string
	Code      string
	Wizard    *wizard.Wizard
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
	flash    *Toast
}

// SetFlash stores a toast for the next render.
func (s *Session) SetFlash(t Toast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = &t
}

// PopFlash returns and clears the pending toast.
func (s *Session) PopFlash() *Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.flash
	s.flash = nil
	return t
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry keeps the live sessions of one process in memory.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	factory     WizardFactory
	onRemove    func(id string)
	idleTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

func NewRegistry(factory WizardFactory, idleTimeout time.Duration, l *zap.Logger) *Registry {
	if l == nil {
		l = zap.NewNop()
	}
	return &Registry{
		sessions:    make(map[string]*Session),
		factory:     factory,
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      l,
	}
}

// OnRemove registers fn to run after a session is removed, reaped or
// closed on shutdown.
func (r *Registry) OnRemove(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemove = fn
}

// Create starts a new session for an admitted applicant.
func (r *Registry) Create(code string) *Session {
	id := uuid.NewString()
	now := r.now()

	s := &Session{
		ID:        id,
		Code:      code,
		Wizard:    r.factory(code, logger.WithSession(r.logger, id, code)),
		CreatedAt: now,
		lastSeen:  now,
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Info("session created", logger.SessionFields(id, code)...)

	return s
}

// Get returns a live session and marks it as seen.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	s.touch(r.now())
	return s, nil
}

// Remove closes and forgets a session. It reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	onRemove := r.onRemove
	r.mu.Unlock()

	if ok {
		r.release(s, onRemove)
		r.logger.Info("session removed", zap.String(logger.FieldSession, id))
	}
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Reap closes sessions idle for longer than the idle timeout.
func (r *Registry) Reap() int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTimeout)

	var stale []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	onRemove := r.onRemove
	r.mu.Unlock()

	for _, s := range stale {
		r.release(s, onRemove)
	}
	if len(stale) > 0 {
		r.logger.Info("reaped idle sessions", zap.Int("count", len(stale)))
	}

	return len(stale)
}

// Run reaps every interval until ctx is done, then closes all sessions.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return nil
		case <-ticker.C:
			r.Reap()
		}
	}
}

// CloseAll closes and forgets every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	onRemove := r.onRemove
	r.mu.Unlock()

	for _, s := range all {
		r.release(s, onRemove)
	}
	if len(all) > 0 {
		r.logger.Info("closed sessions", zap.Int("count", len(all)))
	}
}

func (r *Registry) release(s *Session, onRemove func(string)) {
	s.Wizard.Close()
	if onRemove != nil {
		onRemove(s.ID)
	}
}
