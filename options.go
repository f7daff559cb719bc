// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package winloop

import (
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

// loopOptions holds configuration options for Loop creation.
type loopOptions struct {
	logger         *logiface.Logger[logiface.Event]
	observer       Observer
	now            func() time.Time
	errorRates     map[time.Duration]int
	fetchRetries   int
	maxNativeBatch int
	fatalExitCode  int
}

// --- Loop Options ---

// LoopOption configures a Loop instance.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithObserver registers an Observer, which sees every dispatched event
// before the callback does.
func WithObserver(observer Observer) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.observer = observer
		return nil
	}}
}

// WithFetchRetries sets how many times a temporary fetch error is retried
// within one iteration before the backend is considered failed.
// Defaults to 3.
func WithFetchRetries(n int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if n < 0 {
			return errors.New("winloop: fetch retries must not be negative")
		}
		opts.fetchRetries = n
		return nil
	}}
}

// WithMaxNativeBatch bounds the native events fetched per iteration, so a
// flooding backend cannot starve user events and redraws. Defaults to 256.
func WithMaxNativeBatch(n int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if n <= 0 {
			return errors.New("winloop: max native batch must be positive")
		}
		opts.maxNativeBatch = n
		return nil
	}}
}

// WithFatalExitCode sets the exit code used when the backend fails.
// Defaults to 1.
func WithFatalExitCode(code int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.fatalExitCode = code
		return nil
	}}
}

// WithErrorLogRates sets the rate limits, per error category, for warnings
// about retried fetch errors, as accepted by catrate.NewLimiter. A nil map
// disables limiting.
func WithErrorLogRates(rates map[time.Duration]int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.errorRates = rates
		return nil
	}}
}

// withClock replaces time.Now, for tests.
func withClock(now func() time.Time) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.now = now
		return nil
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		now:            time.Now,
		fetchRetries:   3,
		maxNativeBatch: 256,
		fatalExitCode:  1,
		errorRates: map[time.Duration]int{
			time.Second: 5,
			time.Minute: 60,
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
