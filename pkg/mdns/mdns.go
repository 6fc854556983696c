package mdns

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/grandcat/zeroconf"

	"github.com/assafd7/p2p-share/pkg/logger"
)

const (
	// ServiceType is the mDNS service type advertised by p2p-share nodes.
	ServiceType = "_p2p-share._tcp"
	// Domain is the local domain for mDNS.
	Domain = "local."
)

// Instance is one node seen on the LAN. This is operator-facing information:
// the gossip protocol is the only feed of the address book, so instances are
// surfaced through the CLI for a human to pick bootstrap addresses from.
type Instance struct {
	Name string
	Host string
	Port int
	IPs  []string
	Meta map[string]string
}

// Advertiser broadcasts this node's discovery endpoint on the LAN.
type Advertiser struct {
	server *zeroconf.Server
}

func NewAdvertiser() *Advertiser {
	return &Advertiser{}
}

// Start begins broadcasting. An empty instance name falls back to the
// hostname.
func (a *Advertiser) Start(instanceName string, port int, meta map[string]string) error {
	if instanceName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			instanceName = "p2p-share"
		} else {
			instanceName = fmt.Sprintf("p2p-share-%s", hostname)
		}
	}

	var txtRecords []string
	for k, v := range meta {
		txtRecords = append(txtRecords, fmt.Sprintf("%s=%s", k, v))
	}

	server, err := zeroconf.Register(
		instanceName,
		ServiceType,
		Domain,
		port,
		txtRecords,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	a.server = server
	return nil
}

// Stop stops broadcasting.
func (a *Advertiser) Stop() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Browse scans for p2p-share nodes until the context is canceled and sends
// each one on the returned channel.
func Browse(ctx context.Context) (<-chan *Instance, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	results := make(chan *Instance, 10)

	if err := resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse services: %w", err)
	}

	go func() {
		defer close(results)

		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}

				inst := &Instance{
					Name: entry.Instance,
					Host: entry.HostName,
					Port: entry.Port,
					Meta: make(map[string]string),
				}
				for _, ip := range entry.AddrIPv4 {
					inst.IPs = append(inst.IPs, ip.String())
				}
				for _, record := range entry.Text {
					parts := strings.SplitN(record, "=", 2)
					if len(parts) == 2 {
						inst.Meta[parts[0]] = parts[1]
					}
				}

				if len(inst.IPs) > 0 {
					logger.Sugar.Infof("[mDNS] discovered node: instance=%s ips=%v port=%d", inst.Name, inst.IPs, inst.Port)
					results <- inst
				}
			}
		}
	}()

	return results, nil
}
