package track

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hashory/tryout-webrtc-py-broadcast-vfr/pkg/frame"
)

func newTestAdapter(t *testing.T, ch *frame.Channel, enc Encoder) *Adapter {
	t.Helper()
	a, err := NewAdapter(ch, enc, "test-stream", slog.Default())
	require.NoError(t, err)
	return a
}

func frameAt(seq uint64, at time.Time) *frame.Frame {
	return &frame.Frame{
		Width:      2,
		Height:     2,
		Format:     frame.FormatGray,
		Data:       []byte{byte(seq), 1, 2, 3},
		Seq:        seq,
		ProducedAt: at,
	}
}

func TestNextSampleReturnsEncodedFrame(t *testing.T) {
	ch := frame.NewChannel()
	a := newTestAdapter(t, ch, NullEncoder{})

	at := time.UnixMilli(1_700_000_000_000)
	ch.Put(frameAt(0, at))

	s, err := a.NextSample()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3}, s.Payload)
	assert.Equal(t, at.UnixMilli(), s.PTS)
}

func TestNextSamplePTSNonDecreasing(t *testing.T) {
	ch := frame.NewChannel()
	a := newTestAdapter(t, ch, NullEncoder{})

	base := time.UnixMilli(1_700_000_000_000)

	ch.Put(frameAt(0, base))
	s0, err := a.NextSample()
	require.NoError(t, err)

	// Production clock stepped backwards; the PTS must hold, not regress.
	ch.Put(frameAt(1, base.Add(-40*time.Millisecond)))
	s1, err := a.NextSample()
	require.NoError(t, err)

	ch.Put(frameAt(2, base.Add(100*time.Millisecond)))
	s2, err := a.NextSample()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, s1.PTS, s0.PTS)
	assert.GreaterOrEqual(t, s2.PTS, s1.PTS)
	assert.Equal(t, base.UnixMilli(), s1.PTS, "regressed timestamp is clamped to the previous PTS")
	assert.Equal(t, 100*time.Millisecond, s2.Duration)
}

func TestNextSampleUnblocksOnClose(t *testing.T) {
	ch := frame.NewChannel()
	a := newTestAdapter(t, ch, NullEncoder{})

	errCh := make(chan error, 1)
	go func() {
		_, err := a.NextSample()
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	ch.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, frame.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("NextSample did not unblock on channel close")
	}
}

type failingEncoder struct{}

func (failingEncoder) Encode(*frame.Frame) ([]byte, error) {
	return nil, errors.New("encoder broke")
}

func TestNextSampleEncoderError(t *testing.T) {
	ch := frame.NewChannel()
	a := newTestAdapter(t, ch, failingEncoder{})

	ch.Put(frameAt(0, time.Now()))
	_, err := a.NextSample()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, frame.ErrClosed)
}

func TestServeExitsOnClose(t *testing.T) {
	ch := frame.NewChannel()
	a := newTestAdapter(t, ch, NullEncoder{})

	done := make(chan struct{})
	go func() {
		a.Serve()
		close(done)
	}()

	ch.Put(frameAt(0, time.Now()))
	time.Sleep(20 * time.Millisecond)
	ch.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not exit after channel close")
	}
}
