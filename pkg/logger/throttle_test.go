package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottledAllow(t *testing.T) {
	tl := NewThrottled(50 * time.Millisecond)

	assert.True(t, tl.allow("udp-read"), "first occurrence must pass")
	assert.False(t, tl.allow("udp-read"), "immediate repeat must be suppressed")
	assert.True(t, tl.allow("dial-fail"), "unrelated key is independent")

	time.Sleep(60 * time.Millisecond)
	assert.True(t, tl.allow("udp-read"), "repeat after interval must pass")
}

func TestThrottledZeroInterval(t *testing.T) {
	tl := NewThrottled(0)
	for i := 0; i < 3; i++ {
		assert.True(t, tl.allow("k"))
	}
}
