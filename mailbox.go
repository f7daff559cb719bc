package winloop

import (
	"sync"
)

// mailboxChunkSize is the number of values per node of the mailbox list.
const mailboxChunkSize = 64

// mailbox is the multi-producer, single-consumer queue behind Proxy. It is a
// chunked linked list, guarded by a mutex held only for O(1) pushes and for
// the consumer's swap of the whole list.
type mailbox[T any] struct { // betteralign:ignore
	mu     sync.Mutex
	head   *mailboxChunk[T]
	tail   *mailboxChunk[T]
	pool   sync.Pool
	length int
	closed bool
}

// mailboxChunk is a fixed-size node; values in [readPos, pos) are unread.
type mailboxChunk[T any] struct {
	values  [mailboxChunkSize]T
	next    *mailboxChunk[T]
	readPos int
	pos     int
}

func newMailbox[T any]() *mailbox[T] {
	m := &mailbox[T]{}
	m.pool.New = func() any { return new(mailboxChunk[T]) }
	return m
}

func (m *mailbox[T]) newChunk() *mailboxChunk[T] {
	c := m.pool.Get().(*mailboxChunk[T])
	c.next = nil
	c.readPos = 0
	c.pos = 0
	return c
}

func (m *mailbox[T]) returnChunk(c *mailboxChunk[T]) {
	var zero T
	for i := range c.pos {
		c.values[i] = zero
	}
	c.next = nil
	m.pool.Put(c)
}

// push appends v, failing with ErrLoopClosed after close.
func (m *mailbox[T]) push(v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrLoopClosed
	}
	if m.tail == nil {
		m.tail = m.newChunk()
		m.head = m.tail
	} else if m.tail.pos == len(m.tail.values) {
		next := m.newChunk()
		m.tail.next = next
		m.tail = next
	}
	m.tail.values[m.tail.pos] = v
	m.tail.pos++
	m.length++
	return nil
}

// drain appends every queued value to dst, in push order. Producers are only
// blocked while the list is detached.
func (m *mailbox[T]) drain(dst []T) []T {
	m.mu.Lock()
	head := m.head
	m.head, m.tail, m.length = nil, nil, 0
	m.mu.Unlock()

	for c := head; c != nil; {
		dst = append(dst, c.values[c.readPos:c.pos]...)
		next := c.next
		m.returnChunk(c)
		c = next
	}
	return dst
}

func (m *mailbox[T]) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.length
}

// close rejects further pushes and returns the number of values discarded.
func (m *mailbox[T]) close() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	n := m.length
	m.head, m.tail, m.length = nil, nil, 0
	return n
}
