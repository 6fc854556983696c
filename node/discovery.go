package node

import (
	"net"
	"time"

	"github.com/assafd7/p2p-share/pkg/logger"
	"github.com/assafd7/p2p-share/pkg/peers"
	"github.com/assafd7/p2p-share/pkg/protocol"
)

// broadcastHost is where hellos go when local-network broadcast is enabled.
const broadcastHost = "255.255.255.255"

// DiscoverPeers sends a hello to every bootstrap node and, if enabled, to
// the local broadcast address. This is the only mechanism that finds
// previously unknown peers; the flood radius is one hop.
func (n *Node) DiscoverPeers() {
	hello := protocol.DiscoveryMessage{
		Type: protocol.TypeHello,
		Host: n.self.Host,
		Port: n.self.Port,
	}
	for _, addr := range n.cfg.Bootstrap {
		if addr == n.self {
			continue
		}
		n.sendDiscovery(addr, hello)
		logger.Sugar.Infof("[Discovery] sent hello to bootstrap node %s", addr)
	}
	if n.cfg.Broadcast {
		n.sendDiscovery(peers.Addr{Host: broadcastHost, Port: n.cfg.Port}, hello)
	}
}

// sendDiscovery is fire-and-forget: discovery sends carry no deadline and
// failures are logged (throttled) and ignored.
func (n *Node) sendDiscovery(addr peers.Addr, msg protocol.DiscoveryMessage) {
	data, err := protocol.EncodeDatagram(msg)
	if err != nil {
		logger.Sugar.Errorf("[Discovery] encode %s message: %v", msg.Type, err)
		return
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr.String())
	if err != nil {
		n.tlog.Errorf("resolve-"+addr.String(), "[Discovery] resolve %s: %v", addr, err)
		return
	}
	if _, err := n.udp.WriteToUDP(data, udpAddr); err != nil {
		n.tlog.Errorf("send-"+addr.String(), "[Discovery] send %s to %s: %v", msg.Type, addr, err)
	}
}

// announceLoop re-runs peer discovery on a fixed interval until Stop.
func (n *Node) announceLoop() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.cfg.AnnounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.quitCh:
			return
		case <-ticker.C:
			n.DiscoverPeers()
		}
	}
}

// discoveryLoop blocks on the datagram socket and dispatches messages by
// type. After each processed message it sweeps expired peers, so liveness
// is only as fresh as the last inbound message. The loop exits when Stop
// closes the socket and the pending read fails.
func (n *Node) discoveryLoop() {
	defer n.wg.Done()

	buf := make([]byte, protocol.MaxDatagramSize)
	for {
		nr, src, err := n.udp.ReadFromUDP(buf)
		if err != nil {
			if !n.running.Load() {
				return
			}
			n.tlog.Errorf("udp-read", "[Discovery] read error: %v", err)
			continue
		}

		msg, err := protocol.ParseDatagram(buf[:nr])
		if err != nil {
			n.tlog.Warnf("bad-datagram", "[Discovery] dropping malformed datagram from %s: %v", src, err)
			continue
		}

		n.handleDatagram(msg, src)
		n.book.SweepExpired(n.cfg.PeerTimeout)
	}
}

// senderAddr resolves who a datagram is from. The declared host/port fields
// win over the datagram source, which may differ behind NAT; goodbye carries
// no fields, so it falls back to the source address.
func senderAddr(msg protocol.DiscoveryMessage, src *net.UDPAddr) peers.Addr {
	if msg.Host != "" && msg.Port > 0 {
		return peers.Addr{Host: msg.Host, Port: msg.Port}
	}
	return peers.Addr{Host: src.IP.String(), Port: src.Port}
}

func (n *Node) handleDatagram(msg protocol.DiscoveryMessage, src *net.UDPAddr) {
	sender := senderAddr(msg, src)
	if sender == n.self {
		// our own broadcast looping back
		return
	}

	switch msg.Type {
	case protocol.TypeHello:
		n.handleHello(sender)
	case protocol.TypeHelloResponse:
		n.handleHelloResponse(sender, msg)
	case protocol.TypeAnnounceFile:
		n.handleAnnounceFile(sender, msg)
	case protocol.TypeGoodbye:
		if n.book.Evict(sender) {
			logger.Sugar.Infof("[Discovery] peer %s has left the network", sender)
		}
	default:
		n.tlog.Warnf("unknown-type", "[Discovery] dropping message with unknown type %q from %s", msg.Type, sender)
	}
}

func (n *Node) handleHello(sender peers.Addr) {
	n.book.Touch(sender)
	logger.Sugar.Infof("[Discovery] peer discovered: %s", sender)

	n.sendDiscovery(sender, protocol.DiscoveryMessage{
		Type:  protocol.TypeHelloResponse,
		Host:  n.self.Host,
		Port:  n.self.Port,
		Files: n.catalog.LocalFiles(),
	})
}

func (n *Node) handleHelloResponse(sender peers.Addr, msg protocol.DiscoveryMessage) {
	n.book.Touch(sender)
	logger.Sugar.Infof("[Discovery] received hello response from %s (%d files)", sender, len(msg.Files))

	for hash, name := range msg.Files {
		n.catalog.RecordRemote(hash, name, sender)
	}
}

// handleAnnounceFile records the provider without touching the address book:
// announcements from never-helloed addresses are accepted, matching the
// reference behavior. This is an unauthenticated write surface; stale or
// bogus providers get cleaned up by the transfer client's eviction path.
func (n *Node) handleAnnounceFile(sender peers.Addr, msg protocol.DiscoveryMessage) {
	if msg.FileHash == "" || msg.FileName == "" {
		n.tlog.Warnf("bad-announce", "[Discovery] dropping announce_file without hash/name from %s", sender)
		return
	}
	n.catalog.RecordRemote(msg.FileHash, msg.FileName, sender)
	logger.Sugar.Infof("[Discovery] file announced: %s (%s) from %s", msg.FileName, msg.FileHash, sender)
}
