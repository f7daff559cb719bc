// Package winloop provides a platform-independent windowing event loop: a
// control-flow engine that unifies native event sources into one ordered,
// typed event stream, and a registry that lets any goroutine address windows
// whose native handles live on the loop's thread.
//
// # Architecture
//
// A [Loop] owns a [Backend] (the native event source), a [Registry] of
// windows, and a mailbox of user events fed by [Proxy] values. Each iteration
// the loop:
//
//  1. fetches native events according to the current [ControlFlow]
//  2. drains the proxy mailbox
//  3. applies operations queued against each window ([Registry.EnqueueOperation]),
//     then translates the fetched native events
//  4. dispatches [NewEvents], native events, [UserEvent] values,
//     [MainEventsCleared], one [RedrawRequested] per window that asked for
//     one, then [RedrawEventsCleared]
//
// When the callback sets [ControlFlow.SetExitWithCode], the loop dispatches
// [LoopDestroyed] exactly once, drops every pending operation, destroys all
// windows and returns.
//
// # Thread Safety
//
// The loop, window creation, [Registry.ApplyPending] and [Registry.Destroy]
// are bound to the goroutine that called [New], and [Loop.RunReturn] locks
// that goroutine to its OS thread. Calls from any other goroutine fail with
// an error matching [ErrThreadAffinity]. The following are safe from any
// goroutine:
//   - [Proxy.Send]
//   - [Registry.Lookup], [Registry.EnqueueOperation], [Registry.RequestRedraw]
//   - [Loop.State]
//
// # Control Flow
//
// The callback receives a *[ControlFlow] with every event. [ControlFlow.SetPoll]
// keeps the loop spinning, [ControlFlow.SetWait] blocks until a native event
// or a wakeup, [ControlFlow.SetWaitUntil] blocks until a deadline, and
// [ControlFlow.SetExitWithCode] ends the loop. Exiting is terminal.
//
// # Usage
//
//	backend := synthetic.New()
//	loop, err := winloop.New[string](backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	proxy := loop.Proxy()
//	go func() { _ = proxy.Send("hello") }()
//
//	code, err := loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
//	    switch ev := ev.(type) {
//	    case winloop.NewEvents:
//	        if ev.Cause.Kind == winloop.CauseInit {
//	            cfg := winloop.DefaultWindowConfig()
//	            cfg.Title = "demo"
//	            _, _ = reg.Create(cfg)
//	        }
//	        flow.SetWait()
//	    case winloop.UserEvent[string]:
//	        flow.SetExitWithCode(0)
//	    }
//	})
package winloop
