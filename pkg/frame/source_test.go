package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthSourceProduce(t *testing.T) {
	src := NewSynthSource()
	now := time.Unix(1700000000, 0)

	f := src.Produce(3, now)
	require.NotNil(t, f)

	assert.Equal(t, 640, f.Width)
	assert.Equal(t, 480, f.Height)
	assert.Equal(t, FormatI420, f.Format)
	assert.Len(t, f.Data, 640*480*3/2, "I420 buffer is 1.5 bytes per pixel")
	assert.Equal(t, uint64(3), f.Seq)
	assert.Equal(t, now, f.ProducedAt)
}

func TestSynthSourceDeterministic(t *testing.T) {
	src := NewSynthSource()
	now := time.Unix(1700000000, 0)

	a := src.Produce(5, now)
	b := src.Produce(5, now)
	assert.Equal(t, a.Data, b.Data, "same inputs must yield the same pixels")
}

func TestSynthSourceFramesDiffer(t *testing.T) {
	src := NewSynthSource()
	now := time.Unix(1700000000, 0)

	a := src.Produce(0, now)
	b := src.Produce(1, now)
	assert.NotEqual(t, a.Data, b.Data, "consecutive sequence numbers must be distinguishable")
}
