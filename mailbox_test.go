package winloop

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_fifoAcrossChunks(t *testing.T) {
	m := newMailbox[int]()
	const n = mailboxChunkSize*3 + 7
	for i := range n {
		require.NoError(t, m.push(i))
	}
	assert.Equal(t, n, m.len())

	got := m.drain(nil)
	require.Len(t, got, n)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
	assert.Zero(t, m.len())
	assert.Empty(t, m.drain(nil))
}

func TestMailbox_concurrentProducersExactlyOnce(t *testing.T) {
	m := newMailbox[[2]int]()
	const producers, each = 50, 200

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				_ = m.push([2]int{p, i})
			}
		}()
	}

	var got [][2]int
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		got = m.drain(got)
		select {
		case <-done:
			got = m.drain(got)
			require.Len(t, got, producers*each)
			next := make([]int, producers)
			for _, v := range got {
				// per producer order is preserved
				require.Equal(t, next[v[0]], v[1])
				next[v[0]]++
			}
			return
		default:
		}
	}
}

func TestMailbox_close(t *testing.T) {
	m := newMailbox[string]()
	require.NoError(t, m.push("a"))
	require.NoError(t, m.push("b"))
	assert.Equal(t, 2, m.close())
	assert.ErrorIs(t, m.push("c"), ErrLoopClosed)
	assert.Empty(t, m.drain(nil))
	assert.Zero(t, m.close())
}

func TestProxy_zeroValueIsClosed(t *testing.T) {
	var p Proxy[int]
	assert.ErrorIs(t, p.Send(1), ErrLoopClosed)
}
