package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Network.Port)
	assert.Equal(t, 30*time.Second, cfg.Protocol.PeerTimeout.Duration)
	assert.Equal(t, 8192, cfg.Protocol.BlockSize)
	assert.Equal(t, "downloads", cfg.Storage.DownloadsDir)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p2p-share.toml")
	data := `
[network]
host = "192.168.1.20"
port = 7001
bootstrap = ["192.168.1.10:9001"]
broadcast = false

[protocol]
peerTimeout = "10s"
retryBackoff = "250ms"

[mdns]
enabled = true
instance = "desk-node"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", cfg.Network.Host)
	assert.Equal(t, 7001, cfg.Network.Port)
	assert.Equal(t, []string{"192.168.1.10:9001"}, cfg.Network.Bootstrap)
	assert.False(t, cfg.Network.Broadcast)
	assert.Equal(t, 10*time.Second, cfg.Protocol.PeerTimeout.Duration)
	assert.Equal(t, 250*time.Millisecond, cfg.Protocol.RetryBackoff.Duration)
	// untouched keys keep their defaults
	assert.Equal(t, 2, cfg.Protocol.DownloadRetries)
	assert.True(t, cfg.MDNS.Enabled)
	assert.Equal(t, "desk-node", cfg.MDNS.Instance)
}
