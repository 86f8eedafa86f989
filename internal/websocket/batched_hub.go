package websocket

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// BatchInterval is how long snapshots of one project are coalesced
// before the latest is sent.
const BatchInterval = 100 * time.Millisecond

// BatchedHub extends Hub with snapshot coalescing. Progress ticks produce
// many snapshots per second; clients only need the latest one.
type BatchedHub struct {
	*Hub

	interval time.Duration
	mu       sync.Mutex
	pending  map[string]any
	// held across Hub.Publish so a flushed batch never lands after a
	// later PublishNow
	publishMu sync.Mutex

	// Stats
	received  int64
	sent      int64
	coalesced int64

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// BatchingStats holds batching statistics
type BatchingStats struct {
	SnapshotsReceived  int64   `json:"snapshots_received"`
	SnapshotsSent      int64   `json:"snapshots_sent"`
	SnapshotsCoalesced int64   `json:"snapshots_coalesced"`
	ReductionPercent   float64 `json:"reduction_percent"`
}

// NewBatchedHub wraps hub. interval <= 0 selects BatchInterval.
func NewBatchedHub(hub *Hub, interval time.Duration) *BatchedHub {
	if interval <= 0 {
		interval = BatchInterval
	}
	return &BatchedHub{
		Hub:      hub,
		interval: interval,
		pending:  make(map[string]any),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run starts the hub and the flush loop. It returns when the hub stops.
func (bh *BatchedHub) Run() {
	go bh.flushLoop()
	bh.Hub.Run()
}

// Stop flushes what is pending and stops the hub.
func (bh *BatchedHub) Stop() {
	bh.stopOnce.Do(func() {
		close(bh.stopChan)
		<-bh.done
		bh.logStats()
		bh.Hub.Shutdown()
	})
}

// QueueSnapshot records v as the latest snapshot of projectID. It is sent
// on the next flush.
func (bh *BatchedHub) QueueSnapshot(projectID string, v any) {
	bh.mu.Lock()
	if _, ok := bh.pending[projectID]; ok {
		bh.coalesced++
	}
	bh.pending[projectID] = v
	bh.received++
	bh.mu.Unlock()
}

// PublishNow sends v immediately, replacing anything pending for the
// project. Use it for final snapshots.
func (bh *BatchedHub) PublishNow(projectID string, v any) {
	bh.publishMu.Lock()
	defer bh.publishMu.Unlock()

	bh.mu.Lock()
	if _, ok := bh.pending[projectID]; ok {
		delete(bh.pending, projectID)
		bh.coalesced++
	}
	bh.received++
	bh.sent++
	bh.mu.Unlock()

	bh.Hub.Publish(projectID, v)
}

func (bh *BatchedHub) flushLoop() {
	defer close(bh.done)
	ticker := time.NewTicker(bh.interval)
	defer ticker.Stop()

	for {
		select {
		case <-bh.stopChan:
			bh.flush()
			return
		case <-ticker.C:
			bh.flush()
		}
	}
}

// flush sends every pending snapshot.
func (bh *BatchedHub) flush() {
	bh.publishMu.Lock()
	defer bh.publishMu.Unlock()

	bh.mu.Lock()
	if len(bh.pending) == 0 {
		bh.mu.Unlock()
		return
	}
	batch := bh.pending
	bh.pending = make(map[string]any, len(batch))
	bh.sent += int64(len(batch))
	bh.mu.Unlock()

	for projectID, v := range batch {
		bh.Hub.Publish(projectID, v)
	}
}

// GetStats returns current batching statistics
func (bh *BatchedHub) GetStats() BatchingStats {
	bh.mu.Lock()
	defer bh.mu.Unlock()

	reduction := float64(0)
	if bh.received > 0 {
		reduction = float64(bh.coalesced) / float64(bh.received) * 100
	}
	return BatchingStats{
		SnapshotsReceived:  bh.received,
		SnapshotsSent:      bh.sent,
		SnapshotsCoalesced: bh.coalesced,
		ReductionPercent:   reduction,
	}
}

func (bh *BatchedHub) logStats() {
	s := bh.GetStats()
	if s.SnapshotsReceived == 0 {
		return
	}
	bh.logger.Info("websocket batching stats",
		zap.Int64("received", s.SnapshotsReceived),
		zap.Int64("sent", s.SnapshotsSent),
		zap.Float64("reduction_percent", s.ReductionPercent),
	)
}
