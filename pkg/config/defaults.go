package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Host:      "127.0.0.1",
			Port:      9001,
			Bootstrap: []string{},
			Broadcast: true,
		},
		Protocol: ProtocolConfig{
			PeerTimeout:      Duration{30 * time.Second},
			AnnounceInterval: Duration{30 * time.Second},
			IOTimeout:        Duration{30 * time.Second},
			DownloadRetries:  2,
			RetryBackoff:     Duration{1 * time.Second},
			BlockSize:        8192,
		},
		Storage: StorageConfig{
			DownloadsDir: "downloads",
		},
		MDNS: MDNSConfig{
			Enabled:  false,
			Instance: "",
		},
	}
}
