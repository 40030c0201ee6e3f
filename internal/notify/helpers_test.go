package notify

import (
	"context"
	"time"

	"github.com/nholik/save-snapper/internal/savefile"
	"github.com/nholik/save-snapper/internal/snapshot"
)

var fastTiming = Timing{
	Timeout:           time.Second,
	RateInterval:      time.Millisecond,
	RateBurst:         1,
	BackoffInitial:    time.Millisecond,
	BackoffMax:        2 * time.Millisecond,
	BackoffMaxElapsed: 50 * time.Millisecond,
}

type countingNotifier struct {
	calls int
	err   error
}

func (n *countingNotifier) Notify(context.Context, snapshot.Record) error {
	n.calls++
	return n.err
}

func makeRecord(day string) snapshot.Record {
	return snapshot.Record{
		FarmName: "Riverside",
		UniqueID: "123456789",
		Date:     savefile.GameDate{Year: "2", Season: "summer", Day: day},
		Path:     "/snaps/Riverside_123456789_Y2_summer_" + day,
		Size:     1024,
		TakenAt:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}
