package healthcheck

import (
	"sync"
	"time"
)

// Snapshot describes the latest poll cycle for the health endpoints.
type Snapshot struct {
	LastCycleTime    *time.Time `json:"last_cycle_time"`
	LastSuccessTime  *time.Time `json:"last_success_time"`
	CycleDurationMS  int64      `json:"cycle_duration_ms"`
	SnapshotsTaken   int        `json:"snapshots_taken"`
	LastSnapshotPath string     `json:"last_snapshot_path,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
}

// Tracker records cycle outcomes for health endpoints.
type Tracker struct {
	mu               sync.RWMutex
	now              func() time.Time
	lastCycle        time.Time
	lastSuccess      time.Time
	cycleDuration    time.Duration
	snapshotsTaken   int
	lastSnapshotPath string
	lastErr          string
}

// NewTracker constructs a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{now: func() time.Time { return time.Now().UTC() }}
}

// RecordCycle stores the outcome of one poll cycle. A nil err marks the
// cycle successful and the tracker ready.
func (t *Tracker) RecordCycle(duration time.Duration, err error) {
	if t == nil {
		return
	}
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastCycle = now
	t.cycleDuration = duration
	if err != nil {
		t.lastErr = err.Error()
		return
	}
	t.lastSuccess = now
	t.lastErr = ""
}

// RecordSnapshot counts a written snapshot.
func (t *Tracker) RecordSnapshot(path string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.snapshotsTaken++
	t.lastSnapshotPath = path
	t.mu.Unlock()
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Snapshot{
		LastCycleTime:    timePtr(t.lastCycle),
		LastSuccessTime:  timePtr(t.lastSuccess),
		CycleDurationMS:  int64(t.cycleDuration / time.Millisecond),
		SnapshotsTaken:   t.snapshotsTaken,
		LastSnapshotPath: t.lastSnapshotPath,
		LastError:        t.lastErr,
	}
}

// Ready reports whether at least one successful cycle has completed.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.lastSuccess.IsZero()
}

// Healthy reports whether the last successful cycle completed within 2x the poll interval.
func (t *Tracker) Healthy(now time.Time, pollInterval time.Duration) bool {
	if t == nil {
		return false
	}
	if pollInterval <= 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastSuccess.IsZero() {
		return false
	}
	return now.Sub(t.lastSuccess) <= 2*pollInterval
}

func timePtr(v time.Time) *time.Time {
	if v.IsZero() {
		return nil
	}
	return &v
}
