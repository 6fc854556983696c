package config

import "time"

// Config holds all node configuration.
type Config struct {
	Network  NetworkConfig  `toml:"network"`
	Protocol ProtocolConfig `toml:"protocol"`
	Storage  StorageConfig  `toml:"storage"`
	MDNS     MDNSConfig     `toml:"mdns"`
}

// NetworkConfig holds the node's own endpoints and the peers it contacts
// unconditionally during discovery. The transfer endpoint is always
// discovery port + 1 and is never configured separately.
type NetworkConfig struct {
	Host      string   `toml:"host"`
	Port      int      `toml:"port"`
	Bootstrap []string `toml:"bootstrap"` // host:port discovery addresses
	Broadcast bool     `toml:"broadcast"`
}

// ProtocolConfig holds the protocol constants. These are interop-sensitive:
// the defaults match the reference behavior and should only be changed for
// testing.
type ProtocolConfig struct {
	PeerTimeout      Duration `toml:"peerTimeout"`
	AnnounceInterval Duration `toml:"announceInterval"`
	IOTimeout        Duration `toml:"ioTimeout"`
	DownloadRetries  int      `toml:"downloadRetries"`
	RetryBackoff     Duration `toml:"retryBackoff"`
	BlockSize        int      `toml:"blockSize"`
}

// StorageConfig holds filesystem settings.
type StorageConfig struct {
	DownloadsDir string `toml:"downloadsDir"`
}

// MDNSConfig controls LAN presence advertisement. This is operator-facing
// only; discovered instances are never added to the address book.
type MDNSConfig struct {
	Enabled  bool   `toml:"enabled"`
	Instance string `toml:"instance"`
}

// Duration wraps time.Duration for TOML parsing.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
