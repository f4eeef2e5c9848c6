package api

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
)

// Config holds the server configuration. Values are pass-through for the
// HTTP layer; no signaling logic depends on them.
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`

	// WebRoot overrides the embedded demo client with on-disk files.
	WebRoot string `json:"web_root"`

	// STUNServers configure ICE; the default pion STUN server is used when
	// empty.
	STUNServers []string `json:"stun_servers"`

	// MDNS enables LAN advertisement of the signaling endpoint.
	MDNS bool `json:"mdns"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host: "0.0.0.0",
		Port: 8080,
	}
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("cert_file and key_file must be set together")
	}
	if c.WebRoot != "" {
		info, err := os.Stat(c.WebRoot)
		if err != nil {
			return fmt.Errorf("web_root is not usable: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("web_root %q is not a directory", c.WebRoot)
		}
	}
	return nil
}

// TLS reports whether the server should serve HTTPS.
func (c *Config) TLS() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// Addr returns the host:port bind address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
