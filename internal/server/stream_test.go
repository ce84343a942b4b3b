package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Hub_Broadcast(t *testing.T) {
	h := newHub()

	_, first := h.add()
	_, second := h.add()

	require.Equal(t, 2, h.len())

	h.broadcast(streamMsg{Type: "connection", State: "connected"})

	assert.Equal(t, "connected", (<-first).State)
	assert.Equal(t, "connected", (<-second).State)
}

func Test_Hub_Remove(t *testing.T) {
	h := newHub()

	id, ch := h.add()
	h.remove(id)

	assert.Equal(t, 0, h.len())

	// the channel is closed, not leaked
	_, open := <-ch
	assert.False(t, open)

	// removing twice is a no-op
	h.remove(id)
}

// A client that stops draining its channel gets dropped instead of blocking
// the broadcast.
func Test_Hub_DropsSlowConsumer(t *testing.T) {
	h := newHub()

	_, slow := h.add()

	for i := 0; i < 70; i++ {
		h.broadcast(streamMsg{Type: "connection", State: "connecting"})
	}

	assert.Equal(t, 0, h.len())

	// the buffered messages are still readable, then the channel closes
	received := 0
	for range slow {
		received++
	}

	assert.Equal(t, 64, received)
}
