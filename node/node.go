package node

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/assafd7/p2p-share/pkg/catalog"
	"github.com/assafd7/p2p-share/pkg/config"
	"github.com/assafd7/p2p-share/pkg/logger"
	"github.com/assafd7/p2p-share/pkg/mdns"
	"github.com/assafd7/p2p-share/pkg/peers"
	"github.com/assafd7/p2p-share/pkg/protocol"
)

// Config is the node's runtime configuration, already parsed and validated.
type Config struct {
	Host      string
	Port      int
	Bootstrap []peers.Addr
	Broadcast bool

	DownloadsDir string

	PeerTimeout      time.Duration
	AnnounceInterval time.Duration
	IOTimeout        time.Duration
	DownloadRetries  int
	RetryBackoff     time.Duration
	BlockSize        int

	MDNSEnabled  bool
	MDNSInstance string
}

// ConfigFrom converts the file/flag configuration into a node Config,
// parsing the bootstrap address list.
func ConfigFrom(cfg *config.Config) (Config, error) {
	out := Config{
		Host:             cfg.Network.Host,
		Port:             cfg.Network.Port,
		Broadcast:        cfg.Network.Broadcast,
		DownloadsDir:     cfg.Storage.DownloadsDir,
		PeerTimeout:      cfg.Protocol.PeerTimeout.Duration,
		AnnounceInterval: cfg.Protocol.AnnounceInterval.Duration,
		IOTimeout:        cfg.Protocol.IOTimeout.Duration,
		DownloadRetries:  cfg.Protocol.DownloadRetries,
		RetryBackoff:     cfg.Protocol.RetryBackoff.Duration,
		BlockSize:        cfg.Protocol.BlockSize,
		MDNSEnabled:      cfg.MDNS.Enabled,
		MDNSInstance:     cfg.MDNS.Instance,
	}
	for _, s := range cfg.Network.Bootstrap {
		addr, err := peers.ParseAddr(s)
		if err != nil {
			return Config{}, fmt.Errorf("bad bootstrap address %q: %w", s, err)
		}
		out.Bootstrap = append(out.Bootstrap, addr)
	}
	return out, nil
}

// Node composes the address book, the file catalog, the discovery endpoint
// and the transfer endpoint behind the facade the UI layer calls.
type Node struct {
	cfg  Config
	self peers.Addr

	book    *peers.AddressBook
	catalog *catalog.Catalog

	udp      *net.UDPConn
	listener net.Listener

	running atomic.Bool
	quitCh  chan struct{}
	wg      sync.WaitGroup

	tlog   *logger.Throttled
	advert *mdns.Advertiser
}

// New binds both endpoints (UDP on Port, TCP on Port+1) but does not start
// the loops; call Start for that.
func New(cfg Config) (*Node, error) {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = protocol.BlockSize
	}
	if cfg.DownloadsDir == "" {
		cfg.DownloadsDir = "downloads"
	}
	if cfg.PeerTimeout <= 0 {
		cfg.PeerTimeout = 30 * time.Second
	}
	if cfg.AnnounceInterval <= 0 {
		cfg.AnnounceInterval = 30 * time.Second
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = 30 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.DownloadRetries < 0 {
		cfg.DownloadRetries = 0
	}

	n := &Node{
		cfg:     cfg,
		self:    peers.Addr{Host: cfg.Host, Port: cfg.Port},
		catalog: catalog.New(),
		quitCh:  make(chan struct{}),
		tlog:    logger.NewThrottled(5 * time.Second),
		advert:  mdns.NewAdvertiser(),
	}
	n.book = peers.NewAddressBook(n.catalog.DropPeer)

	udpAddr, err := net.ResolveUDPAddr("udp", n.self.String())
	if err != nil {
		return nil, fmt.Errorf("resolve discovery address: %w", err)
	}
	n.udp, err = net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("bind discovery socket: %w", err)
	}
	n.listener, err = net.Listen("tcp", n.self.TransferAddr())
	if err != nil {
		n.udp.Close()
		return nil, fmt.Errorf("bind transfer socket: %w", err)
	}

	logger.Sugar.Infof("[Node] initialized: discovery=%s transfer=%s", n.self, n.self.TransferAddr())
	return n, nil
}

// Start launches the discovery loop, the announce ticker and the transfer
// accept loop, then fires the initial peer discovery.
func (n *Node) Start() {
	if !n.running.CompareAndSwap(false, true) {
		return
	}

	n.wg.Add(3)
	go n.discoveryLoop()
	go n.announceLoop()
	go n.acceptLoop()

	if n.cfg.MDNSEnabled {
		meta := map[string]string{"version": "1.0.0"}
		if err := n.advert.Start(n.cfg.MDNSInstance, n.cfg.Port, meta); err != nil {
			logger.Sugar.Errorf("[Node] failed to start mDNS advertisement: %v", err)
		}
	}

	n.DiscoverPeers()
	logger.Sugar.Infof("[Node] started on %s", n.self)
}

// Stop broadcasts a goodbye to all known peers, closes both sockets and
// waits for the loops to drain. Shutdown is cooperative: a transfer handler
// mid-stream finishes its current block before its connection dies.
func (n *Node) Stop() {
	if !n.running.CompareAndSwap(true, false) {
		return
	}

	goodbye := protocol.DiscoveryMessage{Type: protocol.TypeGoodbye}
	for _, addr := range n.book.Addrs() {
		n.sendDiscovery(addr, goodbye)
		logger.Sugar.Infof("[Node] sent goodbye to peer %s", addr)
	}

	n.advert.Stop()
	close(n.quitCh)
	n.udp.Close()
	n.listener.Close()
	n.wg.Wait()

	logger.Sugar.Info("[Node] stopped")
}

// ShareFile hashes the file's bytes, records it as a local holding and
// announces it to every known peer and to bootstrap nodes that never became
// peers. Sharing identical bytes twice yields the same hash and is a no-op
// in the directory.
func (n *Node) ShareFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	name := filepath.Base(path)

	n.catalog.RecordLocal(hash, name, abs, n.self)
	n.announceFile(hash, name)

	logger.Sugar.Infof("[Node] shared file %s (%s)", name, hash)
	return hash, nil
}

// announceFile sends announce_file to every known peer, and to bootstrap
// nodes that are not currently known peers so they still learn of new
// content even if they never answered a hello.
func (n *Node) announceFile(hash, name string) {
	msg := protocol.DiscoveryMessage{
		Type:     protocol.TypeAnnounceFile,
		Host:     n.self.Host,
		Port:     n.self.Port,
		FileHash: hash,
		FileName: name,
	}
	for _, addr := range n.book.Addrs() {
		n.sendDiscovery(addr, msg)
	}
	for _, addr := range n.cfg.Bootstrap {
		if addr == n.self || n.book.Contains(addr) {
			continue
		}
		n.sendDiscovery(addr, msg)
	}
}

// PeerCount returns the number of live peers.
func (n *Node) PeerCount() int {
	return n.book.Len()
}

// Peers returns a snapshot of the address book for the UI layer.
func (n *Node) Peers() []peers.Info {
	return n.book.Snapshot()
}

// Files returns the current file directory for the UI layer.
func (n *Node) Files() []catalog.FileInfo {
	return n.catalog.Files()
}

// Self returns this node's discovery address.
func (n *Node) Self() peers.Addr {
	return n.self
}

// Status returns a human-readable summary for the interactive shell.
func (n *Node) Status() string {
	status := fmt.Sprintf("Node running on: %s (transfer %s)\n", n.self, n.self.TransferAddr())
	status += fmt.Sprintf("Known Peers: %d\n", n.book.Len())
	status += fmt.Sprintf("Known Files: %d\n", len(n.catalog.Files()))
	for _, f := range n.catalog.Files() {
		marker := ""
		if f.Local {
			marker = " [local]"
		}
		status += fmt.Sprintf(" - %s (%s) peers=%d%s\n", f.Name, f.Hash, f.PeerCount, marker)
	}
	return status
}
