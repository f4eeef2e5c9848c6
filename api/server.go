package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pion/webrtc/v4"

	"github.com/Hashory/tryout-webrtc-py-broadcast-vfr/pkg/frame"
	"github.com/Hashory/tryout-webrtc-py-broadcast-vfr/pkg/session"
	rtc "github.com/Hashory/tryout-webrtc-py-broadcast-vfr/pkg/webrtc"
)

// OfferPayload is the JSON body of POST /offer; AnswerPayload mirrors it
// in the response.
type OfferPayload struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

type AnswerPayload struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

// Server is the HTTP signaling surface: the offer endpoint plus the static
// demo client. It is a thin layer; negotiation is delegated to the session
// and its transport.
type Server struct {
	cfg      *Config
	mux      *http.ServeMux
	api      *rtc.WebRTCAPI
	registry *session.Registry
	source   frame.Source
	log      *slog.Logger
}

// NewServer creates and initializes the signaling server.
func NewServer(cfg *Config, registry *session.Registry, source frame.Source, log *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		api:      rtc.NewWebRTCAPI(),
		registry: registry,
		source:   source,
		log:      log,
	}
	s.registerRoutes()
	return s
}

// ServeHTTP allows the Server struct to satisfy the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("POST /offer", http.HandlerFunc(s.OfferHandler))
	s.mux.Handle("GET /{$}", http.HandlerFunc(s.IndexHandler))
	s.mux.Handle("GET /client.js", http.HandlerFunc(s.ClientJSHandler))
}

func (s *Server) webrtcConfig() rtc.Config {
	var cfg rtc.Config
	for _, url := range s.cfg.STUNServers {
		cfg.ICEServers = append(cfg.ICEServers, webrtc.ICEServer{URLs: []string{url}})
	}
	return cfg
}

// OfferHandler accepts a remote SDP offer, spins up a session and replies
// with the negotiated answer.
func (s *Server) OfferHandler(w http.ResponseWriter, r *http.Request) {
	var req OfferPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.SDP == "" || req.Type != "offer" {
		http.Error(w, "Expected a non-empty SDP offer", http.StatusBadRequest)
		return
	}

	conn, err := s.api.NewAnswererConnection(s.webrtcConfig())
	if err != nil {
		s.log.Error("failed to create peer connection", "error", err)
		http.Error(w, "Failed to create peer connection", http.StatusInternalServerError)
		return
	}

	sess, err := session.New(conn, s.source, s.registry, s.log)
	if err != nil {
		s.log.Error("failed to create session", "error", err)
		_ = conn.Close()
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	log := s.log.With("session", sess.ID())
	log.Info("session created", "remote", r.RemoteAddr)

	// The track must be part of the answer, and the event handlers must be
	// in place before negotiation starts.
	if err := conn.AddVideoTrack(sess.Adapter().Track()); err != nil {
		log.Error("failed to add video track", "error", err)
		_ = sess.Close()
		http.Error(w, "Failed to add video track", http.StatusInternalServerError)
		return
	}
	conn.OnConnectionStateChange(sess.HandleTransportState)
	conn.OnDataChannel(func(dc *webrtc.DataChannel) {
		log.Info("data channel created", "label", dc.Label())
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			sess.HandleMessage(msg.Data, dc.SendText)
		})
	})

	answer, err := sess.Negotiate(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  req.SDP,
	})
	if err != nil {
		log.Error("negotiation failed", "error", err)
		http.Error(w, "Negotiation failed", http.StatusBadRequest)
		return
	}

	// Media delivery path: parks in the frame channel until the client
	// requests frames, exits when the session closes.
	go sess.Adapter().Serve()

	log.Info("returning SDP answer")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(AnswerPayload{
		SDP:  answer.SDP,
		Type: answer.Type.String(),
	}); err != nil {
		log.Warn("failed to write answer", "error", err)
	}
}
