package webrtc

import (
	"fmt"
	"log/slog"

	"github.com/pion/ice/v4"
	"github.com/pion/webrtc/v4"
)

const (
	MTU uint = 1400
)

// Config holds the configuration for creating a new connection.
type Config struct {
	ICEServers []webrtc.ICEServer
}

// WebRTCAPI owns the shared pion API object. Using NewAPI is crucial for
// managing multiple PeerConnections in one application.
type WebRTCAPI struct {
	api *webrtc.API
}

func NewWebRTCAPI() *WebRTCAPI {
	settings := webrtc.SettingEngine{}
	settings.SetICEMulticastDNSMode(ice.MulticastDNSModeQueryAndGather)
	settings.SetReceiveMTU(MTU)

	return &WebRTCAPI{
		api: webrtc.NewAPI(webrtc.WithSettingEngine(settings)),
	}
}

// AnswererConn wraps the server side of a single peer connection: it
// receives a remote offer, produces the answer and exposes the transport
// events the session layer consumes.
type AnswererConn struct {
	peerConnection *webrtc.PeerConnection
}

func (a *WebRTCAPI) NewAnswererConnection(config Config) (*AnswererConn, error) {
	if len(config.ICEServers) == 0 {
		config.ICEServers = append(config.ICEServers, webrtc.ICEServer{
			URLs: []string{"stun:stun.l.google.com:19302"},
		})
	}
	pc, err := a.api.NewPeerConnection(webrtc.Configuration{
		ICEServers: config.ICEServers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}
	return &AnswererConn{peerConnection: pc}, nil
}

// HandleOfferAndCreateAnswer processes an incoming offer and returns the
// complete local answer. ICE gathering is awaited before returning so the
// answer carries every candidate; the HTTP exchange is single-shot, there
// is no trickle path back to the client.
func (c *AnswererConn) HandleOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := c.peerConnection.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := c.peerConnection.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(c.peerConnection)
	if err := c.peerConnection.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("failed to set local description for answer: %w", err)
	}
	<-gatherComplete

	return c.peerConnection.LocalDescription(), nil
}

// AddVideoTrack attaches the outgoing media track. Must be called before
// the answer is created so the track is negotiated into the SDP.
func (c *AnswererConn) AddVideoTrack(track webrtc.TrackLocal) error {
	if _, err := c.peerConnection.AddTrack(track); err != nil {
		return fmt.Errorf("failed to add video track: %w", err)
	}
	return nil
}

func (c *AnswererConn) OnDataChannel(f func(*webrtc.DataChannel)) {
	c.peerConnection.OnDataChannel(f)
}

func (c *AnswererConn) OnConnectionStateChange(f func(webrtc.PeerConnectionState)) {
	c.peerConnection.OnConnectionStateChange(f)
}

// Close gracefully shuts down the peer connection.
func (c *AnswererConn) Close() error {
	if c.peerConnection != nil {
		slog.Debug("closing webrtc connection")
		return c.peerConnection.Close()
	}
	return nil
}
