package frame

import (
	"time"
)

// PixelFormat identifies the layout of a frame's pixel buffer.
type PixelFormat string

const (
	// FormatI420 is planar YUV 4:2:0, the format the synthetic source emits.
	FormatI420 PixelFormat = "I420"
	// FormatGray is a single luma plane.
	FormatGray PixelFormat = "GRAY"
)

// Frame is one raster image produced on demand. A Frame is immutable once
// produced: whoever holds it owns it, and ownership moves with the frame
// (source -> channel slot -> track adapter -> transport). Data must not be
// modified after the frame has been handed off.
type Frame struct {
	Width  int
	Height int
	Format PixelFormat
	Data   []byte

	// Seq is the per-session sequence number, assigned by the producer.
	Seq uint64
	// ProducedAt is the wall-clock instant the frame was generated. The
	// presentation timestamp is derived from it at hand-off time.
	ProducedAt time.Time
}

// Source produces frames on request. Produce must not block and must not
// fail; it has no side effects beyond returning a new Frame. The seq and
// now arguments are supplied by the caller so that deterministic test
// doubles can stand in for the synthetic source.
type Source interface {
	Produce(seq uint64, now time.Time) *Frame
}
