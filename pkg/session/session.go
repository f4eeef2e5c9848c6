package session

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/Hashory/tryout-webrtc-py-broadcast-vfr/pkg/frame"
	"github.com/Hashory/tryout-webrtc-py-broadcast-vfr/pkg/track"
)

// ErrNegotiation wraps a rejected or malformed offer. The session is fully
// cleaned up before the error is surfaced to the HTTP layer.
var ErrNegotiation = errors.New("negotiation failed")

// State is a session's position in its connection lifecycle.
type State int32

const (
	StateNew State = iota
	StateNegotiating
	StateConnected
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// event is the fixed set of inputs the lifecycle state machine accepts.
// All transitions funnel through Session.handleEvent; no behavior hangs
// off ad-hoc callbacks.
type event int

const (
	evOffer event = iota
	evNegotiated
	evTransportDown
	evClose
)

// Transport is the slice of the external peer connection the session
// drives: one opaque negotiation call and a release.
type Transport interface {
	HandleOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	Close() error
}

// Control protocol payloads (data channel, semantics owned here; framing
// belongs to the transport).
const (
	msgRequestFrame = "send_frame"
	probePrefix     = "ping"
	probeReply      = "pong"
)

// Session is the per-client signaling state: the lifecycle state machine,
// the owned frame channel and track adapter, and the control-message
// handlers. A session registers itself on offer receipt and removes itself
// from its registry when cleanup completes.
type Session struct {
	id        string
	transport Transport
	source    frame.Source
	registry  *Registry
	frames    *frame.Channel
	adapter   *track.Adapter
	log       *slog.Logger

	mu       sync.Mutex
	state    State
	frameSeq uint64

	closeOnce sync.Once
	closedCh  chan struct{}
}

// New creates a session in StateNew. The registry may be nil (tests).
func New(transport Transport, source frame.Source, registry *Registry, log *slog.Logger) (*Session, error) {
	id := uuid.NewString()
	frames := frame.NewChannel()
	adapter, err := track.NewAdapter(frames, track.NullEncoder{}, id, log.With("session", id))
	if err != nil {
		return nil, err
	}
	return &Session{
		id:        id,
		transport: transport,
		source:    source,
		registry:  registry,
		frames:    frames,
		adapter:   adapter,
		log:       log.With("session", id),
		state:     StateNew,
		closedCh:  make(chan struct{}),
	}, nil
}

func (s *Session) ID() string { return s.id }

// Adapter exposes the owned media track adapter for wiring into the
// transport and for starting the delivery loop.
func (s *Session) Adapter() *track.Adapter { return s.adapter }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session reaches StateClosed.
func (s *Session) Done() <-chan struct{} { return s.closedCh }

// handleEvent applies one lifecycle event under the session lock. Illegal
// transitions are ignored; events are delivered asynchronously by
// collaborators and may straddle state boundaries.
func (s *Session) handleEvent(ev event) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev {
	case evOffer:
		if s.state != StateNew {
			return false
		}
		s.state = StateNegotiating
	case evNegotiated:
		if s.state != StateNegotiating {
			return false
		}
		s.state = StateConnected
	case evTransportDown, evClose:
		if s.state == StateClosing || s.state == StateClosed {
			return false
		}
		s.state = StateClosing
	}
	s.log.Info("session state changed", "state", s.state.String())
	return true
}

// Negotiate runs the signaling exchange: register, delegate the opaque
// offer/answer call to the transport, and either reach StateConnected or
// tear the session down. It is called once, from the HTTP handler.
func (s *Session) Negotiate(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if !s.handleEvent(evOffer) {
		return nil, fmt.Errorf("%w: offer in state %s", ErrNegotiation, s.State())
	}
	if s.registry != nil {
		s.registry.Register(s)
	}

	answer, err := s.transport.HandleOfferAndCreateAnswer(offer)
	if err != nil {
		// A failed negotiation must not leak the session.
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrNegotiation, err)
	}

	s.handleEvent(evNegotiated)
	return answer, nil
}

// HandleTransportState consumes the asynchronous connection-state events
// reported by the transport layer. A failed or closed underlying
// connection is terminal for the session.
func (s *Session) HandleTransportState(state webrtc.PeerConnectionState) {
	s.log.Info("transport state changed", "state", state.String())
	if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
		if s.handleEvent(evTransportDown) {
			go s.Close()
		}
	}
}

// HandleMessage processes one control message from the data channel.
// Unknown payloads are ignored for forward compatibility; messages
// arriving outside StateConnected are no-ops, not errors.
func (s *Session) HandleMessage(payload []byte, reply func(string) error) {
	if s.State() != StateConnected {
		s.log.Debug("dropping control message outside connected state")
		return
	}

	switch {
	case string(payload) == msgRequestFrame:
		s.produceFrame()
	case bytes.HasPrefix(payload, []byte(probePrefix)):
		// The suffix is everything after the 4-byte prefix; a bare "ping"
		// has an empty suffix and yields a bare "pong".
		suffix := string(payload[len(probePrefix):])
		if err := reply(probeReply + suffix); err != nil {
			s.log.Warn("failed to send probe reply", "error", err)
		}
	default:
		s.log.Debug("ignoring unknown control message", "size", len(payload))
	}
}

// produceFrame runs one production cycle: read counter, produce, put,
// increment. The lock keeps sequence numbers strictly in arrival order;
// bursts beyond the consumer's pace are absorbed by the channel's
// drop-oldest policy.
func (s *Session) produceFrame() {
	s.mu.Lock()
	seq := s.frameSeq
	s.frameSeq++
	s.mu.Unlock()

	now := time.Now()
	f := s.source.Produce(seq, now)
	s.frames.Put(f)
	s.log.Info("generated frame", "seq", seq)
}

// Close tears the session down: StateClosing, close the frame channel
// (which unblocks the delivery loop), release the transport, unregister,
// StateClosed. Safe to call from any state and from concurrent callers;
// every path through a session's lifetime ends here exactly once.
func (s *Session) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.handleEvent(evClose)

		s.frames.Close()
		if err := s.transport.Close(); err != nil {
			s.log.Warn("failed to close transport", "error", err)
			closeErr = err
		}
		if s.registry != nil {
			s.registry.Unregister(s)
		}

		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		s.log.Info("session closed")
		close(s.closedCh)
	})
	return closeErr
}
