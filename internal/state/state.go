package state

import (
	"context"

	"github.com/nholik/save-snapper/internal/snapshot"
)

// State is the snapshot ledger: every snapshot written, oldest first.
type State struct {
	Snapshots []snapshot.Record `json:"snapshots"`
}

// Last returns the most recent record, if any.
func (s State) Last() (snapshot.Record, bool) {
	if len(s.Snapshots) == 0 {
		return snapshot.Record{}, false
	}
	return s.Snapshots[len(s.Snapshots)-1], true
}

// Store defines the interface for persisting the ledger.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}
