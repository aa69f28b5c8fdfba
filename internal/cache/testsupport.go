package cache

import "time"

// NewForTest builds a Reader with snap pre-installed, skipping the embedded
// store entirely. Exported for internal/dispatch and internal/router tests,
// which need a populated Reader but have no reason to exercise the SQLite
// load path themselves.
func NewForTest(snap *Snapshot) *Reader {
	if snap.LoadedAt.IsZero() {
		snap.LoadedAt = time.Now()
	}
	buildIndexes(snap)
	determineHealth(snap)

	r := New(Config{})
	r.snapshot = snap
	return r
}

// NewTestSnapshot returns an empty, ready-to-populate Snapshot for tests.
func NewTestSnapshot() *Snapshot {
	return newSnapshot()
}
