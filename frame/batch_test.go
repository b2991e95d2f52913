package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBatcherFlushesOnTimeout(t *testing.T) {
	ch := make(chan []byte, 4)
	b := NewBatcher(20*time.Millisecond, ch)

	b.Add([]byte("abc"))
	b.Add([]byte("def"))

	select {
	case out := <-ch:
		require.Equal(t, []byte("abcdef"), out)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("batch did not flush on timeout")
	}
}

func TestBatcherFlushesOnSizeThreshold(t *testing.T) {
	ch := make(chan []byte, 4)
	b := NewBatcher(time.Hour, ch)

	first := make([]byte, MaxBatchBytes-1)
	b.Add(first)

	select {
	case <-ch:
		t.Fatal("batch flushed before threshold reached")
	case <-time.After(30 * time.Millisecond):
	}

	// second would push the batch past MaxBatchBytes, so the buffered
	// first frame is flushed on its own and second starts the next batch.
	second := make([]byte, 10)
	b.Add(second)

	select {
	case out := <-ch:
		require.Len(t, out, len(first))
	case <-time.After(200 * time.Millisecond):
		t.Fatal("batch did not flush at size threshold")
	}
}

func TestBatcherManualFlush(t *testing.T) {
	ch := make(chan []byte, 4)
	b := NewBatcher(time.Hour, ch)

	b.Add([]byte("x"))
	b.Flush()

	select {
	case out := <-ch:
		require.Equal(t, []byte("x"), out)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("manual flush did not deliver batch")
	}
}

func TestBatcherFlushOnEmptyIsNoop(t *testing.T) {
	ch := make(chan []byte, 1)
	b := NewBatcher(time.Hour, ch)
	b.Flush()

	select {
	case <-ch:
		t.Fatal("flush on empty batcher should not send")
	case <-time.After(20 * time.Millisecond):
	}
}
