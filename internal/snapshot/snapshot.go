// Package snapshot names and writes copies of a save file.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/nholik/save-snapper/internal/savefile"
)

// FileInfo describes a file on disk.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
	Inode   uint64
}

// Copier copies src to dst, preserving at least the modification time.
type Copier interface {
	Copy(ctx context.Context, src, dst string) (FileInfo, error)
}

// Record describes one snapshot that was written successfully.
type Record struct {
	FarmName string            `json:"farm_name"`
	UniqueID string            `json:"unique_id"`
	Date     savefile.GameDate `json:"date"`
	Path     string            `json:"path"`
	Size     int64             `json:"size"`
	ModTime  time.Time         `json:"mod_time"`
	TakenAt  time.Time         `json:"taken_at"`
}

// Name returns the snapshot filename for a save at the given date.
// Existing snapshot sets depend on this exact layout.
func Name(farmName, uniqueID string, date savefile.GameDate) string {
	return fmt.Sprintf("%s_%s_Y%s_%s_%s", farmName, uniqueID, date.Year, date.Season, date.Day)
}
