package synthetic

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/joeycumines/go-winloop"
)

// Window is a synthetic native window. It records applied operations and
// can be told to reject the next one.
type Window struct {
	backend   *Backend
	failNext  error
	config    winloop.WindowConfig
	applied   []winloop.Operation
	id        winloop.WindowID
	mu        sync.Mutex
	destroyed bool
}

// ID returns the id the window was created for.
func (w *Window) ID() winloop.WindowID { return w.id }

// Config returns the configuration the window was created with.
func (w *Window) Config() winloop.WindowConfig { return w.config }

// Apply records op, or fails if the window was destroyed, FailNext was
// called, or op asks for an unavailable video mode.
func (w *Window) Apply(op winloop.Operation) error {
	if fs, ok := op.(winloop.SetFullscreen); ok {
		if err := w.backend.supports(fs.Fullscreen); err != nil {
			return err
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return fmt.Errorf("synthetic: %s destroyed", w.id)
	}
	if err := w.failNext; err != nil {
		w.failNext = nil
		return err
	}
	w.applied = append(w.applied, op)
	return nil
}

// Destroy marks the window destroyed. It fails on a second call.
func (w *Window) Destroy() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return errors.New("synthetic: window destroyed twice")
	}
	w.destroyed = true
	return nil
}

// FailNext makes the next Apply return err.
func (w *Window) FailNext(err error) {
	w.mu.Lock()
	w.failNext = err
	w.mu.Unlock()
}

// Applied returns the operations applied so far, in order.
func (w *Window) Applied() []winloop.Operation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.applied)
}

// Destroyed reports whether Destroy was called.
func (w *Window) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}
