package winloop

// Proxy injects user events into a Loop from any goroutine. Proxy values may
// be copied freely; all copies share the loop's mailbox.
type Proxy[T any] struct {
	mb   *mailbox[T]
	wake func()
}

// Send enqueues value and wakes the loop. It never waits for the loop, and
// fails with ErrLoopClosed once the loop has started tearing down.
func (p Proxy[T]) Send(value T) error {
	if p.mb == nil {
		return ErrLoopClosed
	}
	if err := p.mb.push(value); err != nil {
		return err
	}
	p.wake()
	return nil
}
