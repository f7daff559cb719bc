// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package synthetic implements a scriptable winloop.Backend with no native
// windowing system behind it. Events are pushed from any goroutine, backend
// failures can be injected, and every window operation is recorded, which
// makes it the backend of choice for tests and headless runs.
package synthetic

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-winloop"
	"github.com/joeycumines/go-winloop/wake"
)

type (
	// Backend is a synthetic winloop.Backend. The zero value is not usable,
	// construct it with New.
	Backend struct {
		waker    wake.Waker
		windows  map[winloop.WindowID]*Window
		queue    []winloop.NativeEvent
		failures []error
		calls    []Call
		modes    []winloop.VideoMode
		mu       sync.Mutex
		polls    atomic.Int64
		waits    atomic.Int64
		// noTransparency rejects transparent windows, like a compositor-less
		// X11 session would.
		noTransparency bool
		closed         bool
	}

	// Call records a PollNext or WaitNext invocation.
	Call struct {
		At       time.Time
		Deadline time.Time
		Op       string
	}

	// Option configures a Backend.
	Option func(b *Backend)

	// Step is one entry of a script replayed by Play.
	Step struct {
		Events []winloop.NativeEvent
		// After is the delay before Events are pushed, relative to the
		// previous step.
		After time.Duration
	}
)

// WithWaker replaces the default waker, see wake.New.
func WithWaker(w wake.Waker) Option {
	return func(b *Backend) { b.waker = w }
}

// WithVideoModes restricts exclusive fullscreen to the given modes. By
// default any complete mode is accepted.
func WithVideoModes(modes ...winloop.VideoMode) Option {
	return func(b *Backend) { b.modes = append(b.modes, modes...) }
}

// WithoutTransparency makes the backend reject transparent windows.
func WithoutTransparency() Option {
	return func(b *Backend) { b.noTransparency = true }
}

// New returns a Backend with an empty queue, using wake.New unless WithWaker
// is given.
func New(opts ...Option) *Backend {
	b := &Backend{windows: make(map[winloop.WindowID]*Window)}
	for _, o := range opts {
		if o != nil {
			o(b)
		}
	}
	if b.waker == nil {
		b.waker = wake.New()
	}
	return b
}

// Push queues native events and wakes the loop. It is safe to call from any
// goroutine, events pushed after Close are discarded.
func (b *Backend) Push(events ...winloop.NativeEvent) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, events...)
	b.mu.Unlock()
	b.waker.Wake()
}

// Fail queues errors, returned one per fetch ahead of any queued event.
func (b *Backend) Fail(errs ...error) {
	b.mu.Lock()
	b.failures = append(b.failures, errs...)
	b.mu.Unlock()
	b.waker.Wake()
}

// Play pushes each step's events after its delay, returning early with the
// context's error if it is cancelled.
func (b *Backend) Play(ctx context.Context, steps []Step) error {
	for _, s := range steps {
		if s.After > 0 {
			timer := time.NewTimer(s.After)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		b.Push(s.Events...)
	}
	return nil
}

// Pending returns the number of queued native events.
func (b *Backend) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// PollNext pops the next failure or queued event without blocking.
func (b *Backend) PollNext() (winloop.NativeEvent, bool, error) {
	b.polls.Add(1)
	b.record("poll", time.Time{})
	return b.pop()
}

// WaitNext pops the next failure or queued event, blocking until one is
// pushed, Wake is called, or deadline passes.
func (b *Backend) WaitNext(deadline time.Time) (winloop.NativeEvent, bool, error) {
	b.waits.Add(1)
	b.record("wait", deadline)
	if ev, ok, err := b.pop(); ok || err != nil {
		return ev, ok, err
	}
	if !b.waker.Wait(deadline) {
		return nil, false, nil
	}
	return b.pop()
}

// Wake interrupts a blocked WaitNext.
func (b *Backend) Wake() { b.waker.Wake() }

// Translate maps the native events declared in this package to winloop
// events. Unknown values translate to nothing.
func (b *Backend) Translate(ev winloop.NativeEvent, dst []winloop.Event) []winloop.Event {
	return translate(ev, dst)
}

// CreateWindow records a new synthetic window. Transparency and exclusive
// video modes are checked against the backend's options.
func (b *Backend) CreateWindow(id winloop.WindowID, cfg winloop.WindowConfig) (winloop.NativeWindow, error) {
	if err := b.supports(cfg.Fullscreen); err != nil {
		return nil, err
	}
	if cfg.Transparent && b.noTransparency {
		return nil, fmt.Errorf("%w: transparency", winloop.ErrUnsupportedConfig)
	}
	w := &Window{backend: b, id: id, config: cfg}
	b.mu.Lock()
	b.windows[id] = w
	b.mu.Unlock()
	return w, nil
}

// Window returns the native window created for id, including destroyed ones.
func (b *Backend) Window(id winloop.WindowID) (*Window, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[id]
	return w, ok
}

// Windows returns every window ever created, in id order.
func (b *Backend) Windows() []*Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Window, 0, len(b.windows))
	for _, w := range b.windows {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b *Window) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
	return out
}

// Calls returns a copy of the fetch log.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

// PollCalls returns the number of PollNext calls.
func (b *Backend) PollCalls() int64 { return b.polls.Load() }

// WaitCalls returns the number of WaitNext calls.
func (b *Backend) WaitCalls() int64 { return b.waits.Load() }

// Close releases the waker. The loop calls it during teardown.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.queue = nil
	b.mu.Unlock()
	return b.waker.Close()
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) pop() (winloop.NativeEvent, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.failures) != 0 {
		err := b.failures[0]
		b.failures = b.failures[1:]
		return nil, false, err
	}
	if len(b.queue) == 0 {
		return nil, false, nil
	}
	ev := b.queue[0]
	b.queue[0] = nil
	b.queue = b.queue[1:]
	return ev, true, nil
}

func (b *Backend) record(op string, deadline time.Time) {
	b.mu.Lock()
	b.calls = append(b.calls, Call{Op: op, Deadline: deadline, At: time.Now()})
	b.mu.Unlock()
}

func (b *Backend) supports(fs *winloop.Fullscreen) error {
	if fs == nil || fs.Kind != winloop.FullscreenExclusive || len(b.modes) == 0 {
		return nil
	}
	if fs.Mode != nil && slices.Contains(b.modes, *fs.Mode) {
		return nil
	}
	return fmt.Errorf("%w: video mode not available", winloop.ErrUnsupportedConfig)
}
