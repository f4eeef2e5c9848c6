package frame

import (
	"time"
)

const (
	defaultWidth  = 640
	defaultHeight = 480
)

// SynthSource synthesizes I420 test frames. Each frame carries a moving
// vertical bar driven by the sequence number and a binary strip across the
// top encoding the sequence number and the production time, so consecutive
// frames are visually distinguishable without a real capture device.
type SynthSource struct {
	Width  int
	Height int
}

// NewSynthSource returns a source producing 640x480 frames.
func NewSynthSource() *SynthSource {
	return &SynthSource{Width: defaultWidth, Height: defaultHeight}
}

func (s *SynthSource) Produce(seq uint64, now time.Time) *Frame {
	w, h := s.Width, s.Height
	// I420: full-size luma plane plus two quarter-size chroma planes.
	data := make([]byte, w*h+2*(w/2)*(h/2))

	luma := data[:w*h]
	for i := range luma {
		luma[i] = 0x20
	}

	// Moving bar: 16px wide, advances with each frame.
	barX := int(seq*16) % w
	for y := 0; y < h; y++ {
		row := luma[y*w : (y+1)*w]
		for x := barX; x < barX+16 && x < w; x++ {
			row[x] = 0xEB
		}
	}

	// Top strip: 64 bits, sequence number then unix milliseconds, each bit
	// an 8px-wide block over the first 16 rows.
	bits := seq<<32 | uint64(now.UnixMilli())&0xFFFFFFFF
	for y := 0; y < 16 && y < h; y++ {
		row := luma[y*w : (y+1)*w]
		for b := 0; b < 64; b++ {
			v := byte(0x10)
			if bits&(1<<uint(63-b)) != 0 {
				v = 0xEB
			}
			for x := b * 8; x < (b+1)*8 && x < w; x++ {
				row[x] = v
			}
		}
	}

	// Neutral chroma.
	for i := w * h; i < len(data); i++ {
		data[i] = 0x80
	}

	return &Frame{
		Width:      w,
		Height:     h,
		Format:     FormatI420,
		Data:       data,
		Seq:        seq,
		ProducedAt: now,
	}
}
