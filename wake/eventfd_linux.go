//go:build linux

package wake

import (
	"encoding/binary"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// EventFD is a Waker backed by a non-blocking Linux eventfd, suitable for
// backends that multiplex the wakeup with other file descriptors via Fd.
type EventFD struct {
	fd int
	// pending dedupes writes: only the Wake that flips it from 0 to 1
	// writes to the fd, it is reset after the counter is read.
	pending atomic.Uint32
	closed  atomic.Bool
}

// NewEventFD creates an eventfd-backed Waker.
func NewEventFD() (*EventFD, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return &EventFD{fd: fd}, nil
}

func newPlatform() (Waker, error) {
	return NewEventFD()
}

// Fd returns the descriptor, readable while a wake is pending.
func (e *EventFD) Fd() int { return e.fd }

func (e *EventFD) Wake() {
	if e.closed.Load() || !e.pending.CompareAndSwap(0, 1) {
		return
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(e.fd, buf[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		// allow a later Wake to retry
		e.pending.Store(0)
	}
}

func (e *EventFD) Wait(deadline time.Time) bool {
	for !e.closed.Load() {
		fds := []unix.PollFd{{Fd: int32(e.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, pollTimeout(deadline))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil || n == 0 {
			return false
		}
		if e.consume() {
			return true
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return false
		}
	}
	return false
}

// consume reads the counter, then clears the pending flag. Producers push
// their payload before calling Wake, so a Wake that lost the race for the
// flag is covered by the consumer draining its queues after Wait returns.
func (e *EventFD) consume() bool {
	var buf [8]byte
	_, err := unix.Read(e.fd, buf[:])
	e.pending.Store(0)
	return err == nil
}

func (e *EventFD) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(e.fd)
}

// pollTimeout converts deadline into a poll(2) timeout in milliseconds,
// rounding up so the wait never ends early.
func pollTimeout(deadline time.Time) int {
	if deadline.IsZero() {
		return -1
	}
	d := time.Until(deadline)
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}
