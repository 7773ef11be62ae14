// Package session holds per-client generator state and re-renders the QR
// code whenever that state changes.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/openclaw/qrstudio/payload"
	"github.com/openclaw/qrstudio/render"
)

// Status describes the outcome of the latest render chain.
type Status string

const (
	StatusEmpty     Status = "empty"
	StatusRendering Status = "rendering"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
)

// Defaults are the values a session starts with and returns to on Reset.
type Defaults struct {
	Options     render.Options
	LogoPercent int
}

// DefaultDefaults returns the built-in starting values.
func DefaultDefaults() Defaults {
	return Defaults{
		Options:     render.DefaultOptions(),
		LogoPercent: render.DefaultLogoPercent,
	}
}

// State is a snapshot of a session's editable fields.
type State struct {
	Kind        payload.Kind   `json:"kind"`
	Form        payload.Form   `json:"form"`
	Options     render.Options `json:"options"`
	HasLogo     bool           `json:"has_logo"`
	LogoPercent int            `json:"logo_size"`
}

// Session owns the editing state of one generator client and the single
// current rendered code.
//
// Every mutation starts a new render chain. Chains are numbered; starting
// one cancels its predecessor and only the chain that is still the latest
// when it finishes may commit. A slow stale chain can therefore never
// overwrite a newer result.
type Session struct {
	ID string

	mu          sync.RWMutex
	kind        payload.Kind
	form        payload.Form
	opts        render.Options
	logo        []byte
	logoPercent int
	code        *render.Code
	status      Status
	lastErr     error

	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}

	defaults Defaults
	renderer *render.Renderer
	log      *slog.Logger
	created  time.Time
	touched  time.Time
}

// New creates a session in its default state. Nothing is rendered until the
// first mutation.
func New(id string, renderer *render.Renderer, defaults Defaults, log *slog.Logger) *Session {
	done := make(chan struct{})
	close(done)
	now := time.Now()
	s := &Session{
		ID:       id,
		done:     done,
		defaults: defaults,
		renderer: renderer,
		log:      log.With("session", id),
		created:  now,
		touched:  now,
	}
	s.resetLocked()
	return s
}

// SetKind switches the active input kind. Fields of other kinds are kept.
func (s *Session) SetKind(kind payload.Kind) error {
	if _, err := payload.ParseKind(string(kind)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kind = kind
	s.triggerLocked()
	return nil
}

// UpdateForm applies fn to a copy of the form and keeps the result if it
// validates.
func (s *Session) UpdateForm(fn func(*payload.Form)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.form
	fn(&f)
	if err := f.Validate(); err != nil {
		return err
	}
	s.form = f
	s.triggerLocked()
	return nil
}

// EditInput applies fn to copies of the kind and form while holding the
// session lock, so concurrent partial edits never overwrite each other. The
// result is kept only if fn succeeds and both validate.
func (s *Session) EditInput(fn func(kind *payload.Kind, form *payload.Form) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, form := s.kind, s.form
	if err := fn(&kind, &form); err != nil {
		return err
	}
	if _, err := payload.ParseKind(string(kind)); err != nil {
		return err
	}
	if err := form.Validate(); err != nil {
		return err
	}
	s.kind, s.form = kind, form
	s.triggerLocked()
	return nil
}

// EditSettings is EditInput for the render options and the logo size.
func (s *Session) EditSettings(fn func(opts *render.Options, logoPercent *int) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts, percent := s.opts, s.logoPercent
	if err := fn(&opts, &percent); err != nil {
		return err
	}
	opts, err := opts.Normalize()
	if err != nil {
		return err
	}
	if err := render.ValidateLogoPercent(percent); err != nil {
		return err
	}
	s.opts, s.logoPercent = opts, percent
	s.triggerLocked()
	return nil
}

// UpdateOptions applies fn to a copy of the options and keeps the result if
// it validates.
func (s *Session) UpdateOptions(fn func(*render.Options)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.opts
	fn(&o)
	o, err := o.Normalize()
	if err != nil {
		return err
	}
	s.opts = o
	s.triggerLocked()
	return nil
}

// SetLogo sets or replaces the logo image. The data is only decoded when a
// raster code is composited; an unreadable logo surfaces then as an
// ImageLoadError.
func (s *Session) SetLogo(data []byte) error {
	if len(data) == 0 {
		return errors.New("logo is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logo = data
	s.triggerLocked()
	return nil
}

// SetLogoSize sets the logo diameter as a percentage of the code's shorter
// side.
func (s *Session) SetLogoSize(percent int) error {
	if err := render.ValidateLogoPercent(percent); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoPercent = percent
	s.triggerLocked()
	return nil
}

// RemoveLogo drops the logo.
func (s *Session) RemoveLogo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logo = nil
	s.triggerLocked()
}

// Reset restores every field to its default and clears the code.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.triggerLocked()
}

func (s *Session) resetLocked() {
	s.kind = payload.KindText
	s.form = payload.DefaultForm()
	s.opts = s.defaults.Options
	s.logo = nil
	s.logoPercent = s.defaults.LogoPercent
	s.code = nil
	s.status = StatusEmpty
	s.lastErr = nil
}

// State returns a snapshot of the editable fields.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Kind:        s.kind,
		Form:        s.form,
		Options:     s.opts,
		HasLogo:     len(s.logo) > 0,
		LogoPercent: s.logoPercent,
	}
}

// Current returns the committed code (nil when nothing is shown), the status
// of the latest chain and its error, without waiting.
func (s *Session) Current() (*render.Code, Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code, s.status, s.lastErr
}

// Await blocks until the latest render chain has finished and returns the
// committed code and that chain's error. Chains started while waiting are
// waited for too.
func (s *Session) Await(ctx context.Context) (*render.Code, error) {
	for {
		s.mu.RLock()
		done, gen := s.done, s.gen
		s.mu.RUnlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		s.mu.RLock()
		if s.gen == gen {
			code, err := s.code, s.lastErr
			s.mu.RUnlock()
			return code, err
		}
		s.mu.RUnlock()
	}
}

// Close cancels any in-flight chain.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Touched returns the time of the last mutation.
func (s *Session) Touched() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touched
}

// Created returns the creation time of the session.
func (s *Session) Created() time.Time {
	return s.created
}

// chain is the input of one render chain, copied out under the lock.
type chain struct {
	gen     uint64
	input   payload.Input
	opts    render.Options
	logo    *render.Logo
	done    chan struct{}
	release context.CancelFunc
}

// triggerLocked starts a new render chain. The caller MUST hold s.mu.
func (s *Session) triggerLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.touched = time.Now()
	s.status = StatusRendering

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	c := chain{
		gen:     s.gen,
		input:   s.form.Input(s.kind),
		opts:    s.opts,
		done:    make(chan struct{}),
		release: cancel,
	}
	if len(s.logo) > 0 {
		c.logo = &render.Logo{Data: s.logo, SizePercent: s.logoPercent}
	}
	s.done = c.done

	go s.run(ctx, c)
}

func (s *Session) run(ctx context.Context, c chain) {
	defer close(c.done)
	defer c.release()

	text, ok := payload.Format(c.input)
	if !ok {
		s.commit(c.gen, func() {
			s.code = nil
			s.status = StatusEmpty
			s.lastErr = nil
		})
		return
	}

	code, err := s.renderer.Render(ctx, text, c.opts, c.logo)

	var loadErr *render.ImageLoadError
	switch {
	case err == nil:
		s.commit(c.gen, func() {
			s.code = code
			s.status = StatusReady
			s.lastErr = nil
		})

	case errors.Is(err, context.Canceled):
		// Superseded by a newer chain.

	case errors.As(err, &loadErr):
		s.log.Warn("logo compositing failed, keeping previous code", "source", loadErr.Source, "error", loadErr.Err)
		s.commit(c.gen, func() {
			s.status = StatusFailed
			s.lastErr = err
		})

	default:
		s.log.Warn("render failed", "error", err, "kind", c.input.Kind(), "format", c.opts.Format)
		s.commit(c.gen, func() {
			s.code = nil
			s.status = StatusFailed
			s.lastErr = err
		})
	}
}

// commit applies fn if gen is still the latest chain.
func (s *Session) commit(gen uint64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.log.Debug("discarding stale render", "generation", gen, "latest", s.gen)
		return
	}
	fn()
}
