// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package recorder writes the events a winloop.Loop dispatches as JSON lines,
// and reads them back for verification and replay.
//
// A Recorder is a winloop.Observer. Encoding happens on the loop goroutine,
// writes are batched and performed on a background goroutine, so a slow
// writer delays the loop only once the batcher is saturated.
package recorder

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/joeycumines/go-microbatch"
	"github.com/joeycumines/go-winloop"
)

// Recorder encodes observed events to an io.Writer.
type Recorder struct {
	w       io.Writer
	batcher *microbatch.Batcher[[]byte]
	err     error
	buf     []byte
	seq     uint64
	mu      sync.Mutex
	closed  bool
}

var _ winloop.Observer = (*Recorder)(nil)

// Option configures a Recorder.
type Option func(cfg *microbatch.BatcherConfig)

// WithFlushInterval bounds how long an encoded line may wait before being
// written. Defaults to 50ms.
func WithFlushInterval(d time.Duration) Option {
	return func(cfg *microbatch.BatcherConfig) { cfg.FlushInterval = d }
}

// WithBatchSize sets the maximum number of lines per write. Defaults to 128.
func WithBatchSize(n int) Option {
	return func(cfg *microbatch.BatcherConfig) { cfg.MaxSize = n }
}

// New returns a Recorder writing to w. Close must be called to flush.
func New(w io.Writer, opts ...Option) *Recorder {
	cfg := microbatch.BatcherConfig{
		MaxSize:        128,
		FlushInterval:  50 * time.Millisecond,
		MaxConcurrency: 1,
	}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	// writes must stay ordered
	cfg.MaxConcurrency = 1
	r := &Recorder{w: w}
	r.batcher = microbatch.NewBatcher(&cfg, r.write)
	return r
}

// Observe implements winloop.Observer.
func (r *Recorder) Observe(iteration uint64, ev winloop.Event) {
	r.seq++
	rec := NewRecord(iteration, r.seq, ev)
	r.buf = rec.AppendJSON(r.buf[:0])
	line := make([]byte, len(r.buf)+1)
	copy(line, r.buf)
	line[len(line)-1] = '\n'

	if _, err := r.batcher.Submit(context.Background(), line); err != nil {
		r.setErr(err)
	}
}

// Err returns the first write or submit error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close flushes pending lines and stops the batcher, returning the first
// error encountered while recording.
func (r *Recorder) Close() error {
	return r.Shutdown(context.Background())
}

// Shutdown is Close bounded by ctx.
func (r *Recorder) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return r.Err()
	}
	r.closed = true
	r.mu.Unlock()

	err := r.batcher.Shutdown(ctx)
	return errors.Join(r.Err(), err)
}

func (r *Recorder) write(_ context.Context, lines [][]byte) error {
	var n int
	for _, l := range lines {
		n += len(l)
	}
	b := make([]byte, 0, n)
	for _, l := range lines {
		b = append(b, l...)
	}
	_, err := r.w.Write(b)
	if err != nil {
		r.setErr(err)
	}
	return err
}

func (r *Recorder) setErr(err error) {
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}
