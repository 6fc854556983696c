package monitor

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/assafd7/p2p-share/pkg/logger"
)

// Metrics holds transfer counters for the node.
type Metrics struct {
	// Bytes served to peers
	BytesSent int64
	// Bytes downloaded or received via push
	BytesReceived int64
	// Number of completed transfers, both directions
	TransferCount int64
	// Node start time
	Start time.Time
}

// Global metrics instance
var Global = &Metrics{
	Start: time.Now(),
}

// RecordSend records a completed outbound transfer.
func RecordSend(bytes int64) {
	atomic.AddInt64(&Global.BytesSent, bytes)
	atomic.AddInt64(&Global.TransferCount, 1)
}

// RecordReceive records a completed inbound transfer.
func RecordReceive(bytes int64) {
	atomic.AddInt64(&Global.BytesReceived, bytes)
	atomic.AddInt64(&Global.TransferCount, 1)
}

// Snapshot returns the current counter values.
func Snapshot() (sent, received, count int64) {
	return atomic.LoadInt64(&Global.BytesSent),
		atomic.LoadInt64(&Global.BytesReceived),
		atomic.LoadInt64(&Global.TransferCount)
}

// LogPeriodic logs runtime metrics at the specified interval.
func LogPeriodic(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		sent, received, count := Snapshot()
		logger.Sugar.Infof("[Metrics] Goroutines=%d | HeapAlloc=%dMB | Sent=%dKB | Received=%dKB | Transfers=%d",
			runtime.NumGoroutine(),
			m.HeapAlloc/1024/1024,
			sent/1024,
			received/1024,
			count,
		)
	}
}
