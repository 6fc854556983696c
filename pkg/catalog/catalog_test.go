package catalog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assafd7/p2p-share/pkg/peers"
)

var (
	peerA = peers.Addr{Host: "10.0.0.2", Port: 9001}
	peerB = peers.Addr{Host: "10.0.0.3", Port: 9001}
	self  = peers.Addr{Host: "10.0.0.1", Port: 9001}
)

func TestRecordRemoteDedupesAndKeepsOrder(t *testing.T) {
	c := New()
	c.RecordRemote("h1", "notes.txt", peerA)
	c.RecordRemote("h1", "notes.txt", peerB)
	c.RecordRemote("h1", "notes.txt", peerA)

	assert.Equal(t, []peers.Addr{peerA, peerB}, c.CandidatePeers("h1"),
		"insertion order, no duplicates")
}

func TestRecordLocalMakesNodeItsOwnProvider(t *testing.T) {
	c := New()
	c.RecordLocal("h1", "notes.txt", "/tmp/notes.txt", self)

	lf, ok := c.Local("h1")
	require.True(t, ok)
	assert.Equal(t, "/tmp/notes.txt", lf.Path)
	assert.Equal(t, []peers.Addr{self}, c.CandidatePeers("h1"))

	// sharing the same content again must not duplicate the provider entry
	c.RecordLocal("h1", "notes.txt", "/tmp/notes.txt", self)
	assert.Equal(t, []peers.Addr{self}, c.CandidatePeers("h1"))
}

func TestDropPeerDeletesOrphanedRecords(t *testing.T) {
	c := New()
	c.RecordRemote("shared", "a.bin", peerA)
	c.RecordRemote("shared", "a.bin", peerB)
	c.RecordRemote("only-a", "b.bin", peerA)

	c.DropPeer(peerA)

	assert.Equal(t, []peers.Addr{peerB}, c.CandidatePeers("shared"),
		"record with remaining providers survives")
	assert.Empty(t, c.CandidatePeers("only-a"),
		"record with no providers left is deleted")
	_, ok := c.DisplayName("only-a")
	assert.False(t, ok)
}

func TestLocalFilesSnapshot(t *testing.T) {
	c := New()
	c.RecordLocal("h1", "notes.txt", "/tmp/notes.txt", self)
	c.RecordLocal("h2", "pic.jpg", "/tmp/pic.jpg", self)

	assert.Equal(t, map[string]string{"h1": "notes.txt", "h2": "pic.jpg"}, c.LocalFiles())
}

func TestFilesView(t *testing.T) {
	c := New()
	c.RecordLocal("h1", "notes.txt", "/tmp/notes.txt", self)
	c.RecordRemote("h2", "pic.jpg", peerA)
	c.RecordRemote("h2", "pic.jpg", peerB)

	files := c.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "notes.txt", files[0].Name)
	assert.True(t, files[0].Local)
	assert.Equal(t, 1, files[0].PeerCount)
	assert.Equal(t, "pic.jpg", files[1].Name)
	assert.False(t, files[1].Local)
	assert.Equal(t, 2, files[1].PeerCount)
}

// Mutations arrive from the discovery loop, the announce loop, and transfer
// handlers at once; the catalog must hold up under -race.
func TestConcurrentMutation(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := peers.Addr{Host: fmt.Sprintf("10.0.0.%d", i+10), Port: 9001}
			for j := 0; j < 200; j++ {
				hash := fmt.Sprintf("h%d", j%20)
				c.RecordRemote(hash, "f.bin", p)
				c.CandidatePeers(hash)
				if j%50 == 0 {
					c.DropPeer(p)
				}
				c.Files()
			}
		}(i)
	}
	wg.Wait()
}
