package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/qrstudio/render"
)

// Registry tracks the live sessions of the HTTP service.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	renderer *render.Renderer
	defaults Defaults
	ttl      time.Duration
	log      *slog.Logger
}

// NewRegistry returns an empty registry. Sessions idle for longer than ttl
// are removed by Sweep; a ttl of zero keeps sessions forever.
func NewRegistry(renderer *render.Renderer, defaults Defaults, ttl time.Duration, log *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		renderer: renderer,
		defaults: defaults,
		ttl:      ttl,
		log:      log,
	}
}

// Create starts a new session with a random id.
func (r *Registry) Create() *Session {
	s := New(uuid.NewString(), r.renderer, r.defaults, r.log)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	r.log.Debug("session created", "session", s.ID)
	return s
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete removes a session and cancels its in-flight render. It reports
// whether the session existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions untouched since now minus the ttl and returns how
// many were removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-r.ttl)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.Touched().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// StartJanitor runs a goroutine that sweeps idle sessions every interval
// until ctx is cancelled.
func StartJanitor(ctx context.Context, r *Registry, interval time.Duration, log *slog.Logger) {
	go janitorLoop(ctx, r, interval, log)
}

func janitorLoop(ctx context.Context, r *Registry, interval time.Duration, log *slog.Logger) {
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("session janitor stopped")
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				log.Info("expired idle sessions", "count", n, "live", r.Len())
			}
		}
	}
}
