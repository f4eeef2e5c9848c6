package frame

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(seq uint64) *Frame {
	return &Frame{
		Width:      4,
		Height:     4,
		Format:     FormatGray,
		Data:       []byte{byte(seq)},
		Seq:        seq,
		ProducedAt: time.Now(),
	}
}

func TestChannelPutThenTake(t *testing.T) {
	ch := NewChannel()
	f := testFrame(0)

	ch.Put(f)

	got, err := ch.Take()
	require.NoError(t, err)
	assert.Same(t, f, got, "Take must return the exact frame that was Put")
}

func TestChannelLatestWins(t *testing.T) {
	ch := NewChannel()

	for seq := uint64(0); seq < 10; seq++ {
		ch.Put(testFrame(seq))
	}

	got, err := ch.Take()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), got.Seq, "only the last of N undrained frames is retrievable")
	assert.Equal(t, uint64(9), ch.Drops(), "the nine evicted frames are counted as drops")
}

func TestChannelNoDuplication(t *testing.T) {
	ch := NewChannel()
	seen := make(map[uint64]bool)

	for round := uint64(0); round < 5; round++ {
		ch.Put(testFrame(round))
		got, err := ch.Take()
		require.NoError(t, err)
		require.False(t, seen[got.Seq], "frame %d delivered twice", got.Seq)
		seen[got.Seq] = true
	}
}

func TestChannelTakeBlocksUntilPut(t *testing.T) {
	ch := NewChannel()

	type result struct {
		f   *Frame
		err error
	}
	done := make(chan result, 1)
	go func() {
		f, err := ch.Take()
		done <- result{f, err}
	}()

	// The consumer must still be parked with nothing to take.
	select {
	case <-done:
		t.Fatal("Take returned on an empty channel")
	case <-time.After(50 * time.Millisecond):
	}

	ch.Put(testFrame(7))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, uint64(7), r.f.Seq)
	case <-time.After(time.Second):
		t.Fatal("Take did not wake after Put")
	}
}

func TestChannelCloseUnblocksTake(t *testing.T) {
	ch := NewChannel()

	errCh := make(chan error, 1)
	go func() {
		_, err := ch.Take()
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	ch.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked Take was not released by Close")
	}
}

func TestChannelTakeAfterClose(t *testing.T) {
	ch := NewChannel()
	ch.Put(testFrame(1))
	ch.Close()

	// Close discards the buffered frame; teardown is terminal.
	_, err := ch.Take()
	assert.ErrorIs(t, err, ErrClosed)

	// Put after close is a silent no-op.
	ch.Put(testFrame(2))
	_, err = ch.Take()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestChannelCloseIdempotent(t *testing.T) {
	ch := NewChannel()
	ch.Close()
	ch.Close()

	_, err := ch.Take()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestChannelConcurrentProducers(t *testing.T) {
	ch := NewChannel()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				ch.Put(testFrame(uint64(p*100 + i)))
			}
		}(p)
	}
	wg.Wait()

	// Whatever survived the race, exactly one frame is buffered.
	got, err := ch.Take()
	require.NoError(t, err)
	require.NotNil(t, got)

	done := make(chan struct{})
	go func() {
		_, _ = ch.Take() // unblocked by the Close below
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	ch.Close()
	<-done
}
