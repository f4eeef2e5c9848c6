package track

import (
	"github.com/Hashory/tryout-webrtc-py-broadcast-vfr/pkg/frame"
)

// Encoder turns a raster frame into the payload written to the media track.
// The delivery pipeline treats the payload as opaque; a real deployment
// plugs a VP8/H.264 encoder in here.
type Encoder interface {
	Encode(f *frame.Frame) ([]byte, error)
}

// NullEncoder passes the raw pixel buffer through unchanged.
type NullEncoder struct{}

func (NullEncoder) Encode(f *frame.Frame) ([]byte, error) {
	return f.Data, nil
}
