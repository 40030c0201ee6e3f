package notify

import (
	"context"

	"github.com/nholik/save-snapper/internal/snapshot"
	"github.com/rs/zerolog"
)

// DryRunNotifier logs snapshots without delivering them.
type DryRunNotifier struct {
	logger zerolog.Logger
	inner  Notifier
}

// NewDryRunNotifier returns a notifier that suppresses delivery to inner and logs instead.
func NewDryRunNotifier(logger zerolog.Logger, inner Notifier) *DryRunNotifier {
	return &DryRunNotifier{logger: logger, inner: inner}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, rec snapshot.Record) error {
	event := n.logger.Info().
		Str("save", saveKey(rec)).
		Str("date", rec.Date.String()).
		Str("path", rec.Path)
	if multi, ok := n.inner.(*MultiNotifier); ok {
		event = event.Int("targets", multi.Len())
	}
	event.Msg("dry run, notification not sent")
	return nil
}
