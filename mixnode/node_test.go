package mixnode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMixNodeFlushesOnBatchSize(t *testing.T) {
	cfg := Local()
	cfg.DummyProbability = 0
	out := make(chan []Message, 4)
	n := NewMixNode(cfg, out, 1, nil)

	for i := 0; i < cfg.BatchSize; i++ {
		require.NoError(t, n.Submit(Message{Data: []byte{byte(i)}}))
	}

	select {
	case batch := <-out:
		require.Len(t, batch, cfg.BatchSize)
	case <-time.After(2 * time.Second):
		t.Fatal("mix node did not flush at batch size")
	}
}

func TestMixNodeFlushesOnTimeout(t *testing.T) {
	cfg := Local()
	cfg.DummyProbability = 0
	cfg.BatchTimeout = 20 * time.Millisecond
	out := make(chan []Message, 4)
	n := NewMixNode(cfg, out, 1, nil)

	require.NoError(t, n.Submit(Message{Data: []byte("x")}))

	select {
	case batch := <-out:
		require.Len(t, batch, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("mix node did not flush on timeout")
	}
}

// TestMixNodeReleasesSizeNormalizedMessages confirms release wires Pad
// into the actual pipeline: every dispatched message, real or dummy, has
// a power-of-two length, so size alone never distinguishes them on the
// wire.
func TestMixNodeReleasesSizeNormalizedMessages(t *testing.T) {
	cfg := Local()
	cfg.DummyProbability = 1.0 // always fill to BatchSize with dummies
	out := make(chan []Message, 4)
	n := NewMixNode(cfg, out, 1, nil)

	require.NoError(t, n.Submit(Message{Data: []byte("not a power of two")}))
	n.Flush()

	select {
	case batch := <-out:
		require.NotEmpty(t, batch)
		for _, msg := range batch {
			require.Equal(t, NormalizeSize(len(msg.Data)), len(msg.Data))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mix node did not flush")
	}
}

func TestMixNodeSubmitAfterCloseFails(t *testing.T) {
	out := make(chan []Message, 4)
	n := NewMixNode(Local(), out, 1, nil)
	n.Close()
	err := n.Submit(Message{Data: []byte("x")})
	require.ErrorIs(t, err, ErrClosed)
}
