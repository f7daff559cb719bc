package winloop

import (
	"errors"
	"os"
	"runtime"
)

type (
	// Callback receives every event, synchronously, on the loop goroutine.
	// flow holds the current ControlFlow, changes to it take effect from the
	// next fetch.
	Callback func(ev Event, reg *Registry, flow *ControlFlow)

	// Observer sees every event before the callback, with the number of the
	// iteration that produced it. Observe runs on the loop goroutine and
	// should not block.
	Observer interface {
		Observe(iteration uint64, ev Event)
	}

	// Loop drives a Backend and dispatches unified events to a Callback. A
	// Loop runs once; it must be created and run on the same goroutine.
	Loop[T any] struct {
		backend  Backend
		registry *Registry
		mailbox  *mailbox[T]
		log      *loopLogger
		opts     *loopOptions
		callback Callback
		fatal    *BackendFatalError
		raw      []NativeEvent
		native   []Event
		users    []T
		redraws  []WindowID
		flow     flowMachine
		state    fastState
		owner    owner
		// iteration counts started iterations, the first is 1.
		iteration uint64
	}
)

// osExit is replaced in tests.
var osExit = os.Exit

// New creates a loop owned by the calling goroutine. Windows may be created
// through Registry before RunReturn, from the same goroutine.
func New[T any](backend Backend, opts ...LoopOption) (*Loop[T], error) {
	if backend == nil {
		return nil, errors.New("winloop: nil backend")
	}
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}
	log, err := newLoopLogger(cfg.logger, cfg.errorRates)
	if err != nil {
		return nil, err
	}
	l := &Loop[T]{
		backend: backend,
		mailbox: newMailbox[T](),
		log:     log,
		opts:    cfg,
		owner:   currentOwner(),
	}
	l.registry = newRegistry(backend, l.owner, log, backend.Wake)
	return l, nil
}

// Proxy returns a handle for sending user events from any goroutine.
func (l *Loop[T]) Proxy() Proxy[T] {
	return Proxy[T]{mb: l.mailbox, wake: l.backend.Wake}
}

// Registry returns the loop's window registry.
func (l *Loop[T]) Registry() *Registry {
	return l.registry
}

// State returns the current lifecycle state.
func (l *Loop[T]) State() LoopState {
	return l.state.Load()
}

// Run is RunReturn followed by os.Exit with the exit code. Misuse, such as
// running a loop twice or from the wrong goroutine, panics.
func (l *Loop[T]) Run(callback Callback) {
	code, err := l.RunReturn(callback)
	var fatal *BackendFatalError
	if err != nil && !errors.As(err, &fatal) {
		panic(err)
	}
	osExit(code)
}

// RunReturn runs the loop until the callback (or a backend failure) sets
// ExitWithCode, then returns the exit code. A non-nil error is either a
// misuse error, with no events dispatched, or the *BackendFatalError that
// ended the loop.
func (l *Loop[T]) RunReturn(callback Callback) (int, error) {
	if callback == nil {
		return 0, errors.New("winloop: nil callback")
	}
	if err := l.owner.check("run"); err != nil {
		return 0, err
	}
	if !l.state.TryTransition(StateAwake, StateRunning) {
		if l.state.IsRunning() {
			return 0, ErrLoopAlreadyRunning
		}
		return 0, ErrLoopTerminated
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// a panicking callback still releases windows and closes proxies
	defer func() {
		if l.state.Load() != StateDestroyed {
			l.mailbox.close()
			l.registry.teardown()
			l.closeBackend()
			l.state.Store(StateDestroyed)
		}
	}()

	l.callback = callback
	for !l.flow.current.IsExit() {
		l.runIteration()
	}

	code := l.teardown()
	if l.fatal != nil {
		return code, l.fatal
	}
	return code, nil
}

func (l *Loop[T]) runIteration() {
	l.iteration++

	l.raw = l.raw[:0]
	l.native = l.native[:0]
	cause := l.fetch()
	l.users = l.mailbox.drain(l.users[:0])
	// operations staged before or during the wait take effect before this
	// iteration's events are translated
	l.registry.applyAll()
	for _, ev := range l.raw {
		l.native = l.backend.Translate(ev, l.native)
	}
	clear(l.raw)
	l.log.iteration(l.iteration, cause, len(l.native), len(l.users))

	l.dispatch(NewEvents{Cause: cause})
	for _, ev := range l.native {
		l.dispatchNative(ev)
	}
	clear(l.native)
	for _, v := range l.users {
		l.dispatch(UserEvent[T]{Value: v})
	}
	clear(l.users)

	if l.fatal != nil {
		l.dispatch(BackendFatal{Err: l.fatal})
		l.flow.forceExit(l.opts.fatalExitCode)
	}

	l.dispatch(MainEventsCleared{})
	l.redraws = l.registry.takeRedraws(l.redraws[:0])
	for _, id := range l.redraws {
		l.dispatch(RedrawRequested{WindowID: id})
	}
	l.dispatch(RedrawEventsCleared{})
}

// fetch collects this iteration's native events into l.raw, according to
// the current ControlFlow, and returns the start cause.
func (l *Loop[T]) fetch() StartCause {
	start := l.opts.now()
	if l.iteration == 1 {
		l.drainNative()
		return StartCause{Kind: CauseInit}
	}

	p := l.flow.plan(start)
	if !p.block {
		l.drainNative()
		if p.timed {
			return StartCause{Kind: CauseResumeTimeReached, Start: start, RequestedResume: p.deadline}
		}
		return StartCause{Kind: CausePoll}
	}

	l.state.TryTransition(StateRunning, StateSleeping)
	ev, ok := l.fetchOne("wait", func() (NativeEvent, bool, error) {
		return l.backend.WaitNext(p.deadline)
	})
	l.state.TryTransition(StateSleeping, StateRunning)

	if ok {
		l.raw = append(l.raw, ev)
	}
	if l.fatal == nil {
		l.drainNative()
	}
	if p.timed && !ok && !l.opts.now().Before(p.deadline) {
		return StartCause{Kind: CauseResumeTimeReached, Start: start, RequestedResume: p.deadline}
	}
	return StartCause{Kind: CauseWaitCancelled, Start: start, RequestedResume: p.deadline}
}

// drainNative polls until the backend is empty, the batch limit is reached,
// or the backend fails. An event already taken by WaitNext counts against the
// limit.
func (l *Loop[T]) drainNative() {
	for len(l.raw) < l.opts.maxNativeBatch && l.fatal == nil {
		ev, ok := l.fetchOne("poll", l.backend.PollNext)
		if !ok {
			return
		}
		l.raw = append(l.raw, ev)
	}
}

// fetchOne calls fn, retrying temporary errors up to the configured count.
// Other errors, or exhausting the retries, set l.fatal.
func (l *Loop[T]) fetchOne(op string, fn func() (NativeEvent, bool, error)) (NativeEvent, bool) {
	for attempt := 1; ; attempt++ {
		ev, ok, err := fn()
		if err == nil {
			return ev, ok
		}
		if !IsTemporary(err) || attempt > l.opts.fetchRetries {
			l.fatal = &BackendFatalError{Err: err, Op: op, Attempts: attempt}
			l.log.fatal(l.fatal)
			return nil, false
		}
		l.log.fetchRetry(op, attempt, err)
	}
}

func (l *Loop[T]) dispatchNative(ev Event) {
	switch e := ev.(type) {
	case RedrawRequested:
		l.registry.markRedraw(e.WindowID)
	case WindowEvent:
		if _, destroyed := e.Kind.(Destroyed); destroyed {
			l.dispatch(e)
			l.registry.observe(e)
			return
		}
		l.registry.observe(e)
		l.dispatch(e)
	case LoopDestroyed:
		// the backend's context went away
		l.flow.forceExit(l.opts.fatalExitCode)
	default:
		l.dispatch(ev)
	}
}

func (l *Loop[T]) dispatch(ev Event) {
	if l.opts.observer != nil {
		l.opts.observer.Observe(l.iteration, ev)
	}
	flow := l.flow.current
	l.callback(ev, l.registry, &flow)
	if flow.equal(l.flow.current) {
		return
	}
	prev := l.flow.current
	if l.flow.apply(flow) {
		l.log.flowChanged(prev, flow)
	} else {
		l.log.flowRejected(prev, flow)
	}
}

// teardown runs the exit sequence and returns the exit code.
func (l *Loop[T]) teardown() int {
	code, _ := l.flow.current.ExitCode()
	l.state.Store(StateExiting)
	dropped := l.mailbox.close()
	l.dispatch(LoopDestroyed{})
	l.registry.teardown()
	l.closeBackend()
	l.log.teardown(code, dropped)
	l.state.Store(StateDestroyed)
	return code
}

func (l *Loop[T]) closeBackend() {
	if c, ok := l.backend.(backendCloser); ok {
		if err := c.Close(); err != nil {
			l.log.logger.Err().Err(err).Log("winloop: failed to close backend")
		}
	}
}
