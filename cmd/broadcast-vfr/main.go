package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/Hashory/tryout-webrtc-py-broadcast-vfr/api"
	"github.com/Hashory/tryout-webrtc-py-broadcast-vfr/pkg/discovery"
	"github.com/Hashory/tryout-webrtc-py-broadcast-vfr/pkg/frame"
	"github.com/Hashory/tryout-webrtc-py-broadcast-vfr/pkg/session"
)

func main() {
	cfg := api.DefaultConfig()
	var verbose bool

	cmd := &cobra.Command{
		Use:   "broadcast-vfr",
		Short: "On-demand WebRTC frame broadcast server",
		Long: "Serves a browser demo client and negotiates WebRTC sessions whose video\n" +
			"frames are produced on demand via data-channel control messages.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, verbose)
		},
	}

	cmd.Flags().StringVar(&cfg.Host, "host", cfg.Host, "Host to bind the HTTP server to")
	cmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "Port to bind the HTTP server to")
	cmd.Flags().StringVar(&cfg.CertFile, "cert-file", "", "TLS certificate file (enables HTTPS)")
	cmd.Flags().StringVar(&cfg.KeyFile, "key-file", "", "TLS key file (enables HTTPS)")
	cmd.Flags().StringVar(&cfg.WebRoot, "web-root", "", "Serve the demo client from this directory instead of the embedded copy")
	cmd.Flags().StringSliceVar(&cfg.STUNServers, "stun", nil, "STUN server URLs for ICE")
	cmd.Flags().BoolVar(&cfg.MDNS, "mdns", false, "Advertise the server on the local network via mDNS")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *api.Config, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := session.NewRegistry()
	server := api.NewServer(cfg, registry, frame.NewSynthSource(), log)
	httpServer := &http.Server{Addr: cfg.Addr(), Handler: server}

	if cfg.MDNS {
		go announce(ctx, cfg, log)
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLS() {
			log.Info("listening with TLS", "addr", cfg.Addr())
			errCh <- httpServer.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
			return
		}
		log.Warn("running without HTTPS; WebRTC might not work in some browsers without HTTPS")
		log.Info("listening", "addr", cfg.Addr())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}

	// Every live session holds a transport; close them all before exiting.
	registry.CloseAll()
	log.Info("all sessions closed")
	return nil
}

func announce(ctx context.Context, cfg *api.Config, log *slog.Logger) {
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "broadcast-vfr"
	}
	adapter := &discovery.MDNSAdapter{}
	info := discovery.ServiceInfo{
		Name:   name,
		Type:   discovery.DefaultServiceType,
		Domain: discovery.DefaultDomain,
		Port:   cfg.Port,
	}
	if err := adapter.Announce(ctx, info); err != nil {
		log.Warn("mDNS advertisement failed", "error", err)
	}
}
