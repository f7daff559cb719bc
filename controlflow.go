package winloop

import (
	"strconv"
	"time"
)

// ControlFlowKind enumerates the loop's waiting policies.
type ControlFlowKind uint8

const (
	// FlowPoll fetches without blocking and starts the next iteration at once.
	FlowPoll ControlFlowKind = iota
	// FlowWait blocks until a native event or a wakeup.
	FlowWait
	// FlowWaitUntil blocks until a native event, a wakeup or a deadline.
	FlowWaitUntil
	// FlowExit ends the loop. It is terminal.
	FlowExit
)

func (k ControlFlowKind) String() string {
	switch k {
	case FlowPoll:
		return "Poll"
	case FlowWait:
		return "Wait"
	case FlowWaitUntil:
		return "WaitUntil"
	case FlowExit:
		return "ExitWithCode"
	default:
		return "Unknown"
	}
}

// ControlFlow is the callback's directive for how the loop waits before the
// next iteration. The zero value is Poll.
//
// Once set to ExitWithCode, the setters are no-ops.
type ControlFlow struct {
	deadline time.Time
	code     int
	kind     ControlFlowKind
}

// Poll returns a Poll directive.
func Poll() ControlFlow { return ControlFlow{kind: FlowPoll} }

// Wait returns a Wait directive.
func Wait() ControlFlow { return ControlFlow{kind: FlowWait} }

// WaitUntil returns a WaitUntil directive.
func WaitUntil(deadline time.Time) ControlFlow {
	return ControlFlow{kind: FlowWaitUntil, deadline: deadline}
}

// ExitWithCode returns an exit directive.
func ExitWithCode(code int) ControlFlow { return ControlFlow{kind: FlowExit, code: code} }

// Kind returns the directive's kind.
func (c ControlFlow) Kind() ControlFlowKind { return c.kind }

// Deadline is only meaningful for FlowWaitUntil.
func (c ControlFlow) Deadline() time.Time { return c.deadline }

// ExitCode returns the exit code, and true if the directive is ExitWithCode.
func (c ControlFlow) ExitCode() (int, bool) { return c.code, c.kind == FlowExit }

// IsExit reports whether the directive is ExitWithCode.
func (c ControlFlow) IsExit() bool { return c.kind == FlowExit }

// SetPoll switches to Poll, unless exiting.
func (c *ControlFlow) SetPoll() { c.set(Poll()) }

// SetWait switches to Wait, unless exiting.
func (c *ControlFlow) SetWait() { c.set(Wait()) }

// SetWaitUntil switches to WaitUntil, unless exiting.
func (c *ControlFlow) SetWaitUntil(deadline time.Time) { c.set(WaitUntil(deadline)) }

// SetExitWithCode requests the loop exit with code. The first exit wins.
func (c *ControlFlow) SetExitWithCode(code int) { c.set(ExitWithCode(code)) }

// SetExit is SetExitWithCode(0).
func (c *ControlFlow) SetExit() { c.set(ExitWithCode(0)) }

func (c *ControlFlow) set(next ControlFlow) {
	if c.kind == FlowExit {
		return
	}
	*c = next
}

func (c ControlFlow) String() string {
	switch c.kind {
	case FlowWaitUntil:
		return "WaitUntil(" + c.deadline.Format(time.RFC3339Nano) + ")"
	case FlowExit:
		return "ExitWithCode(" + strconv.Itoa(c.code) + ")"
	default:
		return c.kind.String()
	}
}

// equal compares directives, using time.Time.Equal for deadlines.
func (c ControlFlow) equal(o ControlFlow) bool {
	return c.kind == o.kind && c.code == o.code && c.deadline.Equal(o.deadline)
}

// flowMachine holds the loop's current ControlFlow. Only the loop goroutine
// touches it.
type flowMachine struct {
	current ControlFlow
}

// apply moves to next, reporting false if the machine is already exiting and
// next would leave that state.
func (m *flowMachine) apply(next ControlFlow) bool {
	if m.current.kind == FlowExit {
		return next.kind == FlowExit && next.code == m.current.code
	}
	m.current = next
	return true
}

// forceExit is the terminal transition used on fatal backend errors. It
// keeps an exit code already chosen by the callback.
func (m *flowMachine) forceExit(code int) {
	if m.current.kind != FlowExit {
		m.current = ExitWithCode(code)
	}
}

// plan is the fetch strategy derived from a ControlFlow at a point in time.
type plan struct {
	deadline time.Time
	// block is false for Poll and for WaitUntil with an elapsed deadline.
	block bool
	// timed is true if deadline bounds the wait.
	timed bool
}

func (m *flowMachine) plan(now time.Time) plan {
	switch m.current.kind {
	case FlowWait:
		return plan{block: true}
	case FlowWaitUntil:
		if !m.current.deadline.After(now) {
			return plan{deadline: m.current.deadline, timed: true}
		}
		return plan{block: true, timed: true, deadline: m.current.deadline}
	default:
		return plan{}
	}
}
