package catalog

import (
	"sort"
	"sync"

	"github.com/assafd7/p2p-share/pkg/peers"
)

// fileRecord is one entry of the location directory. Peer order is insertion
// order: the first responder to gossip is the first candidate tried later.
type fileRecord struct {
	name     string
	provider []peers.Addr
}

// LocalFile is a file this node actually stores.
type LocalFile struct {
	Name string
	Path string
}

// FileInfo is a read-only view of one directory entry for the UI layer.
type FileInfo struct {
	Hash      string
	Name      string
	PeerCount int
	Local     bool
}

// Catalog is the file-location directory: content hash -> known providers,
// plus the node's own holdings. All methods are safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	remote map[string]*fileRecord
	local  map[string]LocalFile
}

func New() *Catalog {
	return &Catalog{
		remote: make(map[string]*fileRecord),
		local:  make(map[string]LocalFile),
	}
}

// RecordRemote registers that peer holds the file. The first sighting of a
// hash creates the record; a peer address is added at most once.
func (c *Catalog) RecordRemote(hash, name string, peer peers.Addr) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.remote[hash]
	if !ok {
		rec = &fileRecord{name: name}
		c.remote[hash] = rec
	}
	for _, p := range rec.provider {
		if p == peer {
			return
		}
	}
	rec.provider = append(rec.provider, peer)
}

// RecordLocal registers a file this node stores and inserts the node's own
// address as a provider, so the file is immediately discoverable. Sharing
// the same content twice is a no-op beyond refreshing name and path.
func (c *Catalog) RecordLocal(hash, name, path string, self peers.Addr) {
	c.mu.Lock()
	c.local[hash] = LocalFile{Name: name, Path: path}
	c.mu.Unlock()
	c.RecordRemote(hash, name, self)
}

// DropPeer removes the address from every record's provider list and deletes
// records left with no providers. This is the only path that deletes a
// directory entry.
func (c *Catalog) DropPeer(peer peers.Addr) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for hash, rec := range c.remote {
		kept := rec.provider[:0]
		for _, p := range rec.provider {
			if p != peer {
				kept = append(kept, p)
			}
		}
		rec.provider = kept
		if len(rec.provider) == 0 {
			delete(c.remote, hash)
		}
	}
}

// CandidatePeers returns the providers for a hash in insertion order.
func (c *Catalog) CandidatePeers(hash string) []peers.Addr {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.remote[hash]
	if !ok {
		return nil
	}
	out := make([]peers.Addr, len(rec.provider))
	copy(out, rec.provider)
	return out
}

// Local returns the node's own holding for a hash, if any.
func (c *Catalog) Local(hash string) (LocalFile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	lf, ok := c.local[hash]
	return lf, ok
}

// LocalFiles returns hash -> display name for every local holding, in the
// shape a hello_response carries.
func (c *Catalog) LocalFiles() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.local))
	for hash, lf := range c.local {
		out[hash] = lf.Name
	}
	return out
}

// DisplayName returns the directory-listed name for a hash.
func (c *Catalog) DisplayName(hash string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if rec, ok := c.remote[hash]; ok {
		return rec.name, true
	}
	if lf, ok := c.local[hash]; ok {
		return lf.Name, true
	}
	return "", false
}

// Files returns a snapshot of the directory sorted by name for the UI layer.
func (c *Catalog) Files() []FileInfo {
	c.mu.RLock()
	out := make([]FileInfo, 0, len(c.remote))
	for hash, rec := range c.remote {
		_, local := c.local[hash]
		out = append(out, FileInfo{
			Hash:      hash,
			Name:      rec.name,
			PeerCount: len(rec.provider),
			Local:     local,
		})
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Hash < out[j].Hash
	})
	return out
}
