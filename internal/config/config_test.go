package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("WATCH_DOMAIN", "env.example.com")
	t.Setenv("WATCH_STUN_SERVER", "stun:env.example.com:3478")

	cfg, err := Load(Options{Domain: "flag.example.com"})
	require.NoError(t, err)

	assert.Equal(t, "flag.example.com", cfg.Domain, "flag beats env")
	assert.Equal(t, "stun:env.example.com:3478", cfg.STUNServer, "env beats default")
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr, "default when nothing set")
}

func TestForceRelayRequiresTURN(t *testing.T) {
	_, err := Load(Options{ForceRelay: true})
	assert.Error(t, err)

	cfg, err := Load(Options{ForceRelay: true, TURNServer: "turn:relay.example.com"})
	require.NoError(t, err)
	assert.True(t, cfg.ForceRelay)
}

func TestURLsFollowDomainLocality(t *testing.T) {
	local, err := Load(Options{Domain: "localhost:9000"})
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:9000/ws", local.WebSocketURL())
	assert.Equal(t, "http://localhost:9000/?room=team+demo&role=viewer", local.RoomLink("team demo"))

	remote, err := Load(Options{Domain: "watch.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "wss://watch.example.com/ws", remote.WebSocketURL())
	assert.Equal(t, "https://watch.example.com/?room=r1&role=viewer", remote.RoomLink("r1"))
}
