package track

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/Hashory/tryout-webrtc-py-broadcast-vfr/pkg/frame"
)

// Sample is an encoded frame ready for hand-off to the transport layer,
// stamped with its derived presentation timestamp.
type Sample struct {
	Payload []byte
	// PTS is the presentation timestamp in milliseconds. It is derived from
	// the frame's production time and never decreases within one adapter.
	PTS int64
	// Duration is the distance to the previous sample's PTS.
	Duration time.Duration
}

// Adapter bridges the pull contract of the media transport to the
// single-slot frame channel. The transport side repeatedly asks for the
// next sample and may block as long as it likes; the adapter blocks in
// Channel.Take until the session produces a frame or tears down.
//
// NextSample follows the channel's single-consumer discipline: only the
// Serve loop calls it.
type Adapter struct {
	frames *frame.Channel
	enc    Encoder
	track  *webrtc.TrackLocalStaticSample
	log    *slog.Logger

	lastPTS int64 // -1 until the first sample
}

// NewAdapter creates the adapter and its webrtc sample track. streamID
// groups the track with its session on the remote side.
func NewAdapter(frames *frame.Channel, enc Encoder, streamID string, log *slog.Logger) (*Adapter, error) {
	t, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video",
		streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sample track: %w", err)
	}
	return &Adapter{
		frames:  frames,
		enc:     enc,
		track:   t,
		log:     log,
		lastPTS: -1,
	}, nil
}

// Track exposes the local track for PeerConnection.AddTrack.
func (a *Adapter) Track() webrtc.TrackLocal {
	return a.track
}

// NextSample blocks until a frame is available, encodes it and derives the
// presentation timestamp. It returns frame.ErrClosed once the owning
// session has been torn down.
func (a *Adapter) NextSample() (Sample, error) {
	f, err := a.frames.Take()
	if err != nil {
		return Sample{}, err
	}

	payload, err := a.enc.Encode(f)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to encode frame %d: %w", f.Seq, err)
	}

	pts := f.ProducedAt.UnixMilli()
	dur := time.Millisecond
	if a.lastPTS >= 0 {
		if pts < a.lastPTS {
			// Clock went backwards between productions; hold the timestamp
			// so delivery stays non-decreasing.
			pts = a.lastPTS
		}
		if d := time.Duration(pts-a.lastPTS) * time.Millisecond; d > 0 {
			dur = d
		}
	}
	a.lastPTS = pts

	return Sample{Payload: payload, PTS: pts, Duration: dur}, nil
}

// Serve pumps samples into the webrtc track until the frame channel
// closes. It is the per-session media-delivery task; run it in its own
// goroutine.
func (a *Adapter) Serve() {
	for {
		s, err := a.NextSample()
		if err == frame.ErrClosed {
			a.log.Debug("media delivery loop ended")
			return
		}
		if err != nil {
			a.log.Warn("skipping frame", "error", err)
			continue
		}

		if err := a.track.WriteSample(media.Sample{
			Data:     s.Payload,
			Duration: s.Duration,
		}); err != nil {
			a.log.Warn("failed to write sample", "error", err)
		}
	}
}
