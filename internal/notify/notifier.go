// Package notify announces written snapshots to external systems.
package notify

import (
	"context"

	"github.com/nholik/save-snapper/internal/snapshot"
)

// Notifier delivers snapshot announcements.
type Notifier interface {
	Notify(ctx context.Context, rec snapshot.Record) error
}

// saveKey identifies one save game for rate limiting and message text.
func saveKey(rec snapshot.Record) string {
	if rec.FarmName == "" && rec.UniqueID == "" {
		return "default"
	}
	return rec.FarmName + "_" + rec.UniqueID
}
