package winloop_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/go-winloop"
	"github.com/joeycumines/go-winloop/backend/synthetic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects dispatched events.
type recorder struct {
	events []winloop.Event
}

func (r *recorder) add(ev winloop.Event) { r.events = append(r.events, ev) }

func (r *recorder) count(match func(winloop.Event) bool) (n int) {
	for _, ev := range r.events {
		if match(ev) {
			n++
		}
	}
	return n
}

func isNewEvents(ev winloop.Event) bool {
	_, ok := ev.(winloop.NewEvents)
	return ok
}

type temporary struct{ msg string }

func (e temporary) Error() string   { return e.msg }
func (e temporary) Temporary() bool { return true }

func TestLoop_firstIteration(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[string](b)
	require.NoError(t, err)

	id, err := loop.Registry().Create(winloop.DefaultWindowConfig())
	require.NoError(t, err)
	b.Push(synthetic.Focus{Window: id, Focused: true}, synthetic.Expose{Window: id})
	require.NoError(t, loop.Proxy().Send("hello"))

	var rec recorder
	code, err := loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		rec.add(ev)
		if _, ok := ev.(winloop.RedrawEventsCleared); ok {
			flow.SetExitWithCode(0)
		}
	})
	require.NoError(t, err)
	assert.Zero(t, code)

	assert.Equal(t, []winloop.Event{
		winloop.NewEvents{Cause: winloop.StartCause{Kind: winloop.CauseInit}},
		winloop.WindowEvent{WindowID: id, Kind: winloop.Focused(true)},
		winloop.UserEvent[string]{Value: "hello"},
		winloop.MainEventsCleared{},
		winloop.RedrawRequested{WindowID: id},
		winloop.RedrawEventsCleared{},
		winloop.LoopDestroyed{},
	}, rec.events)
}

func TestLoop_resizeScenario(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[struct{}](b)
	require.NoError(t, err)
	cfg := winloop.DefaultWindowConfig()
	cfg.InnerSize = &winloop.Size{Width: 800, Height: 600}
	id, err := loop.Registry().Create(cfg)
	require.NoError(t, err)
	snap, ok := loop.Registry().Lookup(id)
	require.True(t, ok)
	require.Equal(t, winloop.Size{Width: 800, Height: 600}, snap.InnerSize)

	var (
		rec         recorder
		sizeOnEvent winloop.Size
	)
	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		rec.add(ev)
		switch e := ev.(type) {
		case winloop.NewEvents:
			if e.Cause.Kind == winloop.CauseInit {
				b.Push(synthetic.Resize{Window: id, Width: 640, Height: 480})
				flow.SetWait()
			}
		case winloop.WindowEvent:
			if _, ok := e.Kind.(winloop.Resized); ok {
				snap, ok := reg.Lookup(e.WindowID)
				require.True(t, ok)
				sizeOnEvent = snap.InnerSize
			}
		case winloop.RedrawRequested:
			flow.SetExit()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, winloop.Size{Width: 640, Height: 480}, sizeOnEvent)

	// second iteration: the resize, then its redraw after MainEventsCleared
	i := 0
	for ; i < len(rec.events); i++ {
		if ne, ok := rec.events[i].(winloop.NewEvents); ok && ne.Cause.Kind == winloop.CauseWaitCancelled {
			break
		}
	}
	require.Less(t, i, len(rec.events))
	assert.Equal(t, []winloop.Event{
		winloop.WindowEvent{WindowID: id, Kind: winloop.Resized{Width: 640, Height: 480}},
		winloop.MainEventsCleared{},
		winloop.RedrawRequested{WindowID: id},
		winloop.RedrawEventsCleared{},
		winloop.LoopDestroyed{},
	}, rec.events[i+1:])
}

func TestLoop_sendWakesWaitUntil(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b)
	require.NoError(t, err)
	proxy := loop.Proxy()

	var (
		sent    time.Time
		latency time.Duration
		cause   winloop.StartCauseKind
		mu      sync.Mutex
	)
	go func() {
		for loop.State() != winloop.StateSleeping {
			time.Sleep(time.Millisecond)
		}
		mu.Lock()
		sent = time.Now()
		mu.Unlock()
		assert.NoError(t, proxy.Send(42))
	}()

	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		switch e := ev.(type) {
		case winloop.NewEvents:
			if e.Cause.Kind == winloop.CauseInit {
				flow.SetWaitUntil(time.Now().Add(5 * time.Second))
			} else {
				cause = e.Cause.Kind
			}
		case winloop.UserEvent[int]:
			mu.Lock()
			latency = time.Since(sent)
			mu.Unlock()
			assert.Equal(t, 42, e.Value)
			flow.SetExit()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, winloop.CauseWaitCancelled, cause)
	assert.Less(t, latency, 50*time.Millisecond)
}

func TestLoop_waitUntilTimesOut(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b)
	require.NoError(t, err)

	var (
		deadline time.Time
		got      winloop.StartCause
	)
	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		e, ok := ev.(winloop.NewEvents)
		if !ok {
			return
		}
		if e.Cause.Kind == winloop.CauseInit {
			deadline = time.Now().Add(20 * time.Millisecond)
			flow.SetWaitUntil(deadline)
			return
		}
		got = e.Cause
		flow.SetExit()
	})
	require.NoError(t, err)
	assert.Equal(t, winloop.CauseResumeTimeReached, got.Kind)
	assert.True(t, got.RequestedResume.Equal(deadline))
	assert.False(t, time.Now().Before(deadline))
	assert.Equal(t, int64(1), b.WaitCalls())
}

func TestLoop_waitDoesNotSpin(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b)
	require.NoError(t, err)
	proxy := loop.Proxy()

	go func() {
		time.Sleep(50 * time.Millisecond)
		assert.NoError(t, proxy.Send(1))
	}()

	var rec recorder
	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		rec.add(ev)
		switch ev.(type) {
		case winloop.NewEvents:
			flow.SetWait()
		case winloop.UserEvent[int]:
			flow.SetExit()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.count(isNewEvents))
	assert.Equal(t, int64(1), b.WaitCalls())
}

func TestLoop_exitIsTerminal(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b)
	require.NoError(t, err)
	w, err := loop.Registry().CreateWindow(winloop.DefaultWindowConfig())
	require.NoError(t, err)

	var rec recorder
	code, err := loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		rec.add(ev)
		switch ev.(type) {
		case winloop.MainEventsCleared:
			flow.SetExitWithCode(3)
		case winloop.RedrawEventsCleared, winloop.LoopDestroyed:
			flow.SetPoll()
			flow.SetExitWithCode(9)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, 1, rec.count(isNewEvents))
	assert.Equal(t, winloop.LoopDestroyed{}, rec.events[len(rec.events)-1])
	assert.Equal(t, 1, rec.count(func(ev winloop.Event) bool {
		_, ok := ev.(winloop.LoopDestroyed)
		return ok
	}))

	assert.Equal(t, winloop.StateDestroyed, loop.State())
	assert.ErrorIs(t, loop.Proxy().Send(1), winloop.ErrLoopClosed)
	assert.ErrorIs(t, w.SetTitle("late"), winloop.ErrWindowNotFound)
	_, err = loop.Registry().Create(winloop.DefaultWindowConfig())
	assert.ErrorIs(t, err, winloop.ErrRegistryClosed)

	nw, ok := b.Window(w.ID())
	require.True(t, ok)
	assert.True(t, nw.Destroyed())
	assert.True(t, b.Closed())

	_, err = loop.RunReturn(func(winloop.Event, *winloop.Registry, *winloop.ControlFlow) {})
	assert.ErrorIs(t, err, winloop.ErrLoopTerminated)
}

func TestLoop_nativeBeforeUserPerIteration(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b)
	require.NoError(t, err)
	id, err := loop.Registry().Create(winloop.DefaultWindowConfig())
	require.NoError(t, err)
	proxy := loop.Proxy()

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range n {
			_ = proxy.Send(i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := range n {
			b.Push(synthetic.Move{Window: id, X: int32(i)})
		}
	}()

	var (
		rec   recorder
		users int
		moves int
	)
	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		rec.add(ev)
		switch ev.(type) {
		case winloop.UserEvent[int]:
			users++
		case winloop.WindowEvent:
			moves++
		case winloop.RedrawEventsCleared:
			if users == n && moves == n {
				flow.SetExit()
			}
		}
	})
	require.NoError(t, err)
	wg.Wait()

	seenUser := false
	nextUser, nextMove := 0, int32(0)
	for _, ev := range rec.events {
		switch e := ev.(type) {
		case winloop.NewEvents:
			seenUser = false
		case winloop.UserEvent[int]:
			seenUser = true
			require.Equal(t, nextUser, e.Value)
			nextUser++
		case winloop.WindowEvent:
			require.False(t, seenUser, "native event after a user event in one iteration")
			require.Equal(t, winloop.Moved{X: nextMove}, e.Kind)
			nextMove++
		}
	}
}

func TestLoop_closeRequestedAndDestroy(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b)
	require.NoError(t, err)
	id, err := loop.Registry().Create(winloop.DefaultWindowConfig())
	require.NoError(t, err)
	b.Push(synthetic.CloseRequest{Window: id})

	var rec recorder
	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		rec.add(ev)
		if we, ok := ev.(winloop.WindowEvent); ok {
			if _, ok := we.Kind.(winloop.CloseRequested); ok {
				require.NoError(t, reg.Destroy(we.WindowID))
				assert.Zero(t, reg.Len())
				flow.SetExit()
			}
		}
	})
	require.NoError(t, err)
	nw, _ := b.Window(id)
	assert.True(t, nw.Destroyed())
}

func TestLoop_externalDestroy(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b)
	require.NoError(t, err)
	id, err := loop.Registry().Create(winloop.DefaultWindowConfig())
	require.NoError(t, err)
	b.Push(synthetic.Destroy{Window: id})

	var present bool
	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		if we, ok := ev.(winloop.WindowEvent); ok {
			if _, ok := we.Kind.(winloop.Destroyed); ok {
				_, present = reg.Lookup(id)
			}
		}
		if _, ok := ev.(winloop.MainEventsCleared); ok {
			assert.Zero(t, reg.Len())
			flow.SetExit()
		}
	})
	require.NoError(t, err)
	assert.True(t, present, "the window is still registered while Destroyed is dispatched")
}

func TestLoop_operationsApplied(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b)
	require.NoError(t, err)
	w, err := loop.Registry().CreateWindow(winloop.DefaultWindowConfig())
	require.NoError(t, err)

	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		e, ok := ev.(winloop.NewEvents)
		if !ok {
			return
		}
		switch e.Cause.Kind {
		case winloop.CauseInit:
			go func() {
				assert.NoError(t, w.SetTitle("from another goroutine"))
			}()
			flow.SetWait()
		default:
			snap, _ := w.Attributes()
			assert.Equal(t, "from another goroutine", snap.Title)
			flow.SetExit()
		}
	})
	require.NoError(t, err)
	nw, _ := b.Window(w.ID())
	assert.Equal(t, []winloop.Operation{winloop.SetTitle{Title: "from another goroutine"}}, nw.Applied())
}

func TestLoop_fatalBackend(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b)
	require.NoError(t, err)
	id, err := loop.Registry().Create(winloop.DefaultWindowConfig())
	require.NoError(t, err)
	lost := errors.New("display connection lost")
	b.Push(synthetic.Expose{Window: id})
	b.Fail(lost)

	var rec recorder
	code, err := loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		rec.add(ev)
	})
	assert.Equal(t, 1, code)
	require.ErrorIs(t, err, lost)
	var fatal *winloop.BackendFatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "poll", fatal.Op)
	assert.Equal(t, 1, fatal.Attempts)

	assert.Equal(t, []winloop.Event{
		winloop.NewEvents{Cause: winloop.StartCause{Kind: winloop.CauseInit}},
		winloop.BackendFatal{Err: fatal},
		winloop.MainEventsCleared{},
		winloop.RedrawEventsCleared{},
		winloop.LoopDestroyed{},
	}, rec.events)

	_, ok := loop.Registry().Lookup(id)
	assert.False(t, ok)
	nw, ok := b.Window(id)
	require.True(t, ok)
	assert.True(t, nw.Destroyed())
	assert.True(t, b.Closed())
}

func TestLoop_temporaryErrorsRetried(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b, winloop.WithFetchRetries(2))
	require.NoError(t, err)
	b.Fail(temporary{"eagain"}, fmtTemp())
	b.Push(synthetic.Motion{DX: 1})

	var rec recorder
	code, err := loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		rec.add(ev)
		flow.SetExit()
	})
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Contains(t, rec.events, winloop.Event(winloop.DeviceEvent{Kind: winloop.MouseMotion{DX: 1}}))
}

func TestLoop_retriesExhausted(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b, winloop.WithFetchRetries(1), winloop.WithFatalExitCode(70))
	require.NoError(t, err)
	b.Fail(temporary{"a"}, temporary{"b"})

	code, err := loop.RunReturn(func(winloop.Event, *winloop.Registry, *winloop.ControlFlow) {})
	assert.Equal(t, 70, code)
	var fatal *winloop.BackendFatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 2, fatal.Attempts)
}

func TestLoop_fatalKeepsCallbackExitCode(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b)
	require.NoError(t, err)
	b.Fail(errors.New("gone"))

	code, err := loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		if _, ok := ev.(winloop.BackendFatal); ok {
			flow.SetExitWithCode(5)
		}
	})
	assert.Error(t, err)
	assert.Equal(t, 5, code)
}

func TestLoop_backendQuitForcesExit(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b)
	require.NoError(t, err)
	b.Push(synthetic.Quit{})

	var rec recorder
	code, err := loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		rec.add(ev)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Equal(t, winloop.LoopDestroyed{}, rec.events[len(rec.events)-1])
	assert.Equal(t, 1, rec.count(func(ev winloop.Event) bool {
		_, ok := ev.(winloop.LoopDestroyed)
		return ok
	}))
}

func TestLoop_maxNativeBatch(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b, winloop.WithMaxNativeBatch(2))
	require.NoError(t, err)
	for range 5 {
		b.Push(synthetic.Motion{DX: 1})
	}

	var perIteration []int
	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		switch ev.(type) {
		case winloop.NewEvents:
			perIteration = append(perIteration, 0)
		case winloop.DeviceEvent:
			perIteration[len(perIteration)-1]++
		case winloop.RedrawEventsCleared:
			if len(perIteration) == 3 {
				flow.SetExit()
			}
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, perIteration)
}

func TestLoop_maxNativeBatchCountsWaitedEvent(t *testing.T) {
	b := synthetic.New()
	loop, err := winloop.New[int](b, winloop.WithMaxNativeBatch(2))
	require.NoError(t, err)

	var (
		perIteration []int
		total        int
	)
	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		switch e := ev.(type) {
		case winloop.NewEvents:
			perIteration = append(perIteration, 0)
			if e.Cause.Kind == winloop.CauseInit {
				for range 6 {
					b.Push(synthetic.Motion{DX: 1})
				}
			}
			flow.SetWait()
		case winloop.DeviceEvent:
			perIteration[len(perIteration)-1]++
			total++
		case winloop.RedrawEventsCleared:
			if total == 6 {
				flow.SetExit()
			}
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 2, 2}, perIteration)
}

func TestLoop_misuse(t *testing.T) {
	_, err := winloop.New[int](nil)
	assert.Error(t, err)

	_, err = winloop.New[int](synthetic.New(), winloop.WithFetchRetries(-1))
	assert.Error(t, err)

	_, err = winloop.New[int](synthetic.New(), winloop.WithErrorLogRates(map[time.Duration]int{time.Second: 5, time.Minute: 1}))
	assert.Error(t, err, "catrate rejects decreasing rates")

	loop, err := winloop.New[int](synthetic.New())
	require.NoError(t, err)
	_, err = loop.RunReturn(nil)
	assert.Error(t, err)

	errs := make(chan error, 1)
	go func() {
		_, err := loop.RunReturn(func(winloop.Event, *winloop.Registry, *winloop.ControlFlow) {})
		errs <- err
	}()
	assert.ErrorIs(t, <-errs, winloop.ErrThreadAffinity)
	assert.Equal(t, winloop.StateAwake, loop.State())
}

func TestLoop_reentrantRun(t *testing.T) {
	loop, err := winloop.New[int](synthetic.New())
	require.NoError(t, err)

	var inner error
	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		if _, ok := ev.(winloop.NewEvents); ok {
			_, inner = loop.RunReturn(func(winloop.Event, *winloop.Registry, *winloop.ControlFlow) {})
			flow.SetExit()
		}
	})
	require.NoError(t, err)
	assert.ErrorIs(t, inner, winloop.ErrLoopAlreadyRunning)
}

type observerFunc func(iteration uint64, ev winloop.Event)

func (f observerFunc) Observe(iteration uint64, ev winloop.Event) { f(iteration, ev) }

func TestLoop_observerSeesEventsFirst(t *testing.T) {
	var observed []uint64
	var last winloop.Event
	loop, err := winloop.New[int](synthetic.New(), winloop.WithObserver(observerFunc(func(iteration uint64, ev winloop.Event) {
		observed = append(observed, iteration)
		last = ev
	})))
	require.NoError(t, err)

	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		assert.Equal(t, ev, last)
		if e, ok := ev.(winloop.NewEvents); ok && e.Cause.Kind == winloop.CausePoll {
			flow.SetExit()
		}
	})
	require.NoError(t, err)
	// two iterations of NewEvents, MainEventsCleared, RedrawEventsCleared,
	// then LoopDestroyed
	assert.Equal(t, []uint64{1, 1, 1, 2, 2, 2, 2}, observed)
}

func fmtTemp() error {
	return errors.Join(winloop.ErrTemporary, errors.New("interrupted"))
}
