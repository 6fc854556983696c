package peers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchAndRefresh(t *testing.T) {
	b := NewAddressBook(nil)
	a := Addr{Host: "10.0.0.2", Port: 9001}

	b.Touch(a)
	require.True(t, b.Contains(a))
	first := b.Snapshot()[0].LastSeen

	time.Sleep(10 * time.Millisecond)
	b.Touch(a)
	assert.Equal(t, 1, b.Len(), "touch must refresh, not duplicate")
	assert.True(t, b.Snapshot()[0].LastSeen.After(first))
}

func TestEvictRunsCallback(t *testing.T) {
	var evicted []Addr
	b := NewAddressBook(func(a Addr) { evicted = append(evicted, a) })
	a := Addr{Host: "10.0.0.2", Port: 9001}

	b.Touch(a)
	assert.True(t, b.Evict(a))
	assert.False(t, b.Contains(a))
	require.Len(t, evicted, 1)
	assert.Equal(t, a, evicted[0])

	// Untracked addresses still cascade: announce_file can put an address in
	// file records without it ever being tracked here.
	untracked := Addr{Host: "10.0.0.3", Port: 9001}
	assert.False(t, b.Evict(untracked))
	assert.Len(t, evicted, 2)
}

func TestSweepExpired(t *testing.T) {
	var evicted []Addr
	b := NewAddressBook(func(a Addr) { evicted = append(evicted, a) })
	stale := Addr{Host: "10.0.0.2", Port: 9001}
	fresh := Addr{Host: "10.0.0.3", Port: 9001}

	b.Touch(stale)
	time.Sleep(30 * time.Millisecond)
	b.Touch(fresh)

	b.SweepExpired(20 * time.Millisecond)
	assert.False(t, b.Contains(stale))
	assert.True(t, b.Contains(fresh))
	require.Len(t, evicted, 1)
	assert.Equal(t, stale, evicted[0])
}

func TestAddrStrings(t *testing.T) {
	a := Addr{Host: "10.0.0.2", Port: 9001}
	assert.Equal(t, "10.0.0.2:9001", a.String())
	assert.Equal(t, "10.0.0.2:9002", a.TransferAddr())

	parsed, err := ParseAddr("10.0.0.2:9001")
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	_, err = ParseAddr("not-an-address")
	assert.Error(t, err)
}
