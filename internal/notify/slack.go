package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nholik/save-snapper/internal/snapshot"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// SlackNotifier posts snapshot notifications to a Slack incoming webhook.
type SlackNotifier struct {
	logger zerolog.Logger
	poster *httpPoster
}

// NewSlackNotifier creates a Slack notifier, or a noop notifier when the webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, timing Timing) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; slack notifications disabled")
	}

	return &SlackNotifier{
		logger: logger,
		poster: newHTTPPoster(logger, "slack", webhookURL, "application/json", timing),
	}
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, rec snapshot.Record) error {
	key := saveKey(rec)
	if err := n.poster.waitForRateLimit(ctx, key); err != nil {
		return err
	}

	payload, err := json.Marshal(buildSlackMessage(rec))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	if err := n.poster.postWithRetry(ctx, payload); err != nil {
		return err
	}

	n.logger.Debug().
		Str("save", key).
		Str("path", rec.Path).
		Msg("slack notification sent")

	return nil
}

func (n *SlackNotifier) postOnce(ctx context.Context, payload []byte) error {
	return n.poster.postOnce(ctx, payload)
}

func buildSlackMessage(rec snapshot.Record) slack.WebhookMessage {
	summary := fmt.Sprintf("Snapshot taken: %s, year %s %s %s", rec.FarmName, rec.Date.Year, rec.Date.Season, rec.Date.Day)
	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, false, false))

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Farm:*\n%s", rec.FarmName), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Game ID:*\n`%s`", rec.UniqueID), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Date:*\nYear %s, %s %s", rec.Date.Year, rec.Date.Season, rec.Date.Day), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Size:*\n%d bytes", rec.Size), false, false),
	}
	section := slack.NewSectionBlock(nil, fields, nil)

	location := slack.NewContextBlock("",
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Written to `%s`", rec.Path), false, false),
	)

	blockSet := slack.Blocks{BlockSet: []slack.Block{header, section, location}}
	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &blockSet,
	}
}
