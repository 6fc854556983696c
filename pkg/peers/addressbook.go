package peers

import (
	"net"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Addr identifies a peer's discovery endpoint. The transfer endpoint is
// always Port+1 on the same host; it is never configured independently.
type Addr struct {
	Host string
	Port int
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// TransferAddr returns the peer's transfer endpoint.
func (a Addr) TransferAddr() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port+1))
}

// ParseAddr parses a "host:port" discovery address.
func ParseAddr(s string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Addr{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Addr{}, err
	}
	return Addr{Host: host, Port: port}, nil
}

// Info is a read-only view of one tracked peer.
type Info struct {
	Addr     Addr
	LastSeen time.Time
}

// AddressBook tracks last-seen times for known peers. The eviction callback
// registered at construction runs for every removed address, outside the
// book's lock, so the file catalog can drop the peer in the same pass.
type AddressBook struct {
	mu      sync.RWMutex
	peers   map[Addr]time.Time
	onEvict func(Addr)
}

func NewAddressBook(onEvict func(Addr)) *AddressBook {
	return &AddressBook{
		peers:   make(map[Addr]time.Time),
		onEvict: onEvict,
	}
}

// Touch inserts or refreshes a peer's last-seen time.
func (b *AddressBook) Touch(addr Addr) {
	b.mu.Lock()
	b.peers[addr] = time.Now()
	b.mu.Unlock()
}

// Evict removes a peer and runs the eviction callback. Returns whether the
// peer was tracked. The callback runs even for untracked addresses: a peer
// can appear in file records without ever being tracked (announce_file does
// not touch the book), and it must still be purged from the catalog.
func (b *AddressBook) Evict(addr Addr) bool {
	b.mu.Lock()
	_, existed := b.peers[addr]
	delete(b.peers, addr)
	b.mu.Unlock()

	if b.onEvict != nil {
		b.onEvict(addr)
	}
	return existed
}

// SweepExpired evicts every peer whose last message is older than the
// threshold.
func (b *AddressBook) SweepExpired(threshold time.Duration) {
	b.mu.Lock()
	var expired []Addr
	now := time.Now()
	for addr, last := range b.peers {
		if now.Sub(last) > threshold {
			expired = append(expired, addr)
		}
	}
	for _, addr := range expired {
		delete(b.peers, addr)
	}
	b.mu.Unlock()

	if b.onEvict != nil {
		for _, addr := range expired {
			b.onEvict(addr)
		}
	}
}

// Contains reports whether the address is currently tracked.
func (b *AddressBook) Contains(addr Addr) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.peers[addr]
	return ok
}

// Len returns the number of tracked peers.
func (b *AddressBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.peers)
}

// Snapshot returns all tracked peers sorted by address.
func (b *AddressBook) Snapshot() []Info {
	b.mu.RLock()
	out := make([]Info, 0, len(b.peers))
	for addr, last := range b.peers {
		out = append(out, Info{Addr: addr, LastSeen: last})
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Addr.String() < out[j].Addr.String()
	})
	return out
}

// Addrs returns just the addresses of all tracked peers.
func (b *AddressBook) Addrs() []Addr {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Addr, 0, len(b.peers))
	for addr := range b.peers {
		out = append(out, addr)
	}
	return out
}
