package mdns

import (
	"context"
	"testing"
	"time"
)

func TestAdvertiseAndBrowse(t *testing.T) {
	// Skip in CI/docker environments where multicast might not work
	if testing.Short() {
		t.Skip("Skipping mDNS test in short mode")
	}

	advertiser := NewAdvertiser()
	meta := map[string]string{"version": "1"}
	port := 19001

	if err := advertiser.Start("test-node", port, meta); err != nil {
		t.Fatalf("Failed to start advertiser: %v", err)
	}
	defer advertiser.Stop()

	time.Sleep(500 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := Browse(ctx)
	if err != nil {
		t.Fatalf("Failed to browse: %v", err)
	}

	found := false
	for inst := range ch {
		if inst.Port == port && inst.Meta["version"] == "1" {
			found = true
			if len(inst.IPs) == 0 {
				t.Error("Discovered instance has no IPs")
			}
			t.Logf("Found instance: %+v", inst)
			break
		}
	}

	if !found {
		t.Error("Failed to discover the test instance")
	}
}
