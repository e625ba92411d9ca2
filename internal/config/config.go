// Package config resolves settings from CLI flags, environment variables and
// defaults, in that order of precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Default configuration values.
const (
	DefaultDomain     = "localhost:8080"
	DefaultListenAddr = ":8080"
	DefaultSTUN       = "stun:stun.l.google.com:19302"
)

// Config holds application configuration shared by the relay and the CLI.
type Config struct {
	// Domain is the relay host the CLI connects to.
	Domain string

	// ListenAddr is the address the relay binds to.
	ListenAddr string

	// ICE servers for WebRTC.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN relay candidates.
	ForceRelay bool
}

// Options carries CLI flag overrides into Load.
type Options struct {
	Domain     string
	ListenAddr string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// Load reads configuration with flag > env > default precedence.
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		Domain:     firstOf(opts.Domain, os.Getenv("WATCH_DOMAIN"), DefaultDomain),
		ListenAddr: firstOf(opts.ListenAddr, os.Getenv("WATCH_LISTEN_ADDR"), DefaultListenAddr),
		STUNServer: firstOf(opts.STUNServer, os.Getenv("WATCH_STUN_SERVER"), DefaultSTUN),
		TURNServer: firstOf(opts.TURNServer, os.Getenv("WATCH_TURN_SERVER"), ""),
		TURNUser:   firstOf(opts.TURNUser, os.Getenv("WATCH_TURN_USERNAME"), ""),
		TURNPass:   firstOf(opts.TURNPass, os.Getenv("WATCH_TURN_PASSWORD"), ""),
		ForceRelay: opts.ForceRelay,
	}

	if cfg.ForceRelay && cfg.TURNServer == "" {
		return nil, fmt.Errorf("cannot force relay mode without a TURN server configured")
	}

	return cfg, nil
}

// WebSocketURL builds the signaling endpoint for the configured domain.
// Local domains use plain ws; anything else is assumed to sit behind TLS.
func (c *Config) WebSocketURL() string {
	scheme := "wss"
	if isLocal(c.Domain) {
		scheme = "ws"
	}
	return fmt.Sprintf("%s://%s/ws", scheme, c.Domain)
}

// RoomLink builds the invite URL a browser viewer would open.
func (c *Config) RoomLink(roomID string) string {
	scheme := "https"
	if isLocal(c.Domain) {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/?room=%s&role=viewer", scheme, c.Domain, url.QueryEscape(roomID))
}

// STUNServers returns the configured STUN URLs, or nil when disabled.
func (c *Config) STUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// TURNServers returns the configured TURN URLs, or nil when not configured.
func (c *Config) TURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{c.TURNServer}
}

// TURNCredentials returns the TURN username and password.
func (c *Config) TURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func isLocal(domain string) bool {
	host := domain
	if h, _, ok := strings.Cut(domain, ":"); ok {
		host = h
	}
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
