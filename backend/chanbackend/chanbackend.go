// Package chanbackend adapts a channel of already-unified events into a
// winloop.Backend. It suits event sources that live off the loop goroutine,
// such as a replayed recording or a remote input feed.
//
// Closing the channel is reported to the loop as a fatal backend error, after
// every buffered event has been delivered.
package chanbackend

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/joeycumines/go-longpoll"
	"github.com/joeycumines/go-winloop"
	"github.com/joeycumines/go-winloop/wake"
)

// ErrClosed is returned once the source channel is closed and drained.
var ErrClosed = errors.New("chanbackend: event channel closed")

type (
	// Backend reads winloop.Event values from a channel. Native events are the
	// unified events themselves, Translate passes them through.
	Backend struct {
		factory winloop.WindowFactory
		events  <-chan winloop.Event
		signal  *wake.Signal
		buf     []winloop.Event
		cfg     longpoll.ChannelConfig
		eof     bool
	}

	Option func(b *Backend)
)

// WithFactory sets the window factory. The default creates headless windows
// that accept every operation.
func WithFactory(f winloop.WindowFactory) Option {
	return func(b *Backend) { b.factory = f }
}

// WithBatchSize bounds how many values a single poll moves from the channel
// into the backend's buffer. Defaults to 64.
func WithBatchSize(n int) Option {
	return func(b *Backend) {
		if n > 0 {
			b.cfg.MaxSize = n
		}
	}
}

func New(events <-chan winloop.Event, opts ...Option) *Backend {
	if events == nil {
		panic(`chanbackend: nil channel`)
	}
	b := &Backend{
		events:  events,
		signal:  wake.NewSignal(),
		factory: Headless{},
		cfg: longpoll.ChannelConfig{
			MaxSize: 64,
			// never wait for values, take what is already queued
			MinSize:        -1,
			PartialTimeout: -1,
		},
	}
	for _, o := range opts {
		if o != nil {
			o(b)
		}
	}
	return b
}

func (b *Backend) CreateWindow(id winloop.WindowID, cfg winloop.WindowConfig) (winloop.NativeWindow, error) {
	return b.factory.CreateWindow(id, cfg)
}

func (b *Backend) PollNext() (winloop.NativeEvent, bool, error) {
	if len(b.buf) == 0 && !b.eof {
		err := longpoll.Channel(context.Background(), &b.cfg, b.events, func(ev winloop.Event) error {
			b.buf = append(b.buf, ev)
			return nil
		})
		if errors.Is(err, io.EOF) {
			b.eof = true
		} else if err != nil {
			return nil, false, err
		}
	}
	return b.pop()
}

func (b *Backend) WaitNext(deadline time.Time) (winloop.NativeEvent, bool, error) {
	if ev, ok, err := b.PollNext(); ok || err != nil {
		return ev, ok, err
	}

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			return nil, false, nil
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ev, ok := <-b.events:
		if !ok {
			b.eof = true
			return nil, false, ErrClosed
		}
		return ev, true, nil
	case <-b.signal.C():
		return nil, false, nil
	case <-b.signal.Done():
		return nil, false, nil
	case <-timeout:
		return nil, false, nil
	}
}

func (b *Backend) Wake() { b.signal.Wake() }

func (b *Backend) Translate(ev winloop.NativeEvent, dst []winloop.Event) []winloop.Event {
	if e, ok := ev.(winloop.Event); ok {
		return append(dst, e)
	}
	return dst
}

func (b *Backend) Close() error { return b.signal.Close() }

func (b *Backend) pop() (winloop.NativeEvent, bool, error) {
	if len(b.buf) == 0 {
		if b.eof {
			return nil, false, ErrClosed
		}
		return nil, false, nil
	}
	ev := b.buf[0]
	b.buf[0] = nil
	b.buf = b.buf[1:]
	return ev, true, nil
}

// Headless creates windows with no native surface.
type Headless struct{}

func (Headless) CreateWindow(winloop.WindowID, winloop.WindowConfig) (winloop.NativeWindow, error) {
	return headlessWindow{}, nil
}

type headlessWindow struct{}

func (headlessWindow) Apply(winloop.Operation) error { return nil }

func (headlessWindow) Destroy() error { return nil }
