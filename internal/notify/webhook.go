package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"text/template"
	"time"

	"github.com/nholik/save-snapper/internal/snapshot"
	"github.com/rs/zerolog"
)

const defaultWebhookTemplate = `{"save":{{ toJson .Save }},"snapshot":{{ toJson .Snapshot }},"generated_at":{{ toJson .GeneratedAt }}}`

// templateFuncs are available to custom webhook templates.
var templateFuncs = template.FuncMap{
	"toJson": func(v any) (string, error) {
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	},
	"base": filepath.Base,
}

// WebhookPayload is the template context for webhook notifications.
type WebhookPayload struct {
	Save        string
	Snapshot    snapshot.Record
	GeneratedAt time.Time
}

// WebhookNotifier posts snapshot notifications to a generic webhook.
type WebhookNotifier struct {
	logger   zerolog.Logger
	template *template.Template
	poster   *httpPoster
}

// NewWebhookNotifier creates a webhook notifier rendering tmpl, or the default
// JSON body when tmpl is empty. It returns nil when webhookURL is empty.
func NewWebhookNotifier(logger zerolog.Logger, webhookURL string, tmpl string, timing Timing) (*WebhookNotifier, error) {
	if webhookURL == "" {
		return nil, nil
	}
	if tmpl == "" {
		tmpl = defaultWebhookTemplate
	}

	parsed, err := template.New("webhook").Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	return &WebhookNotifier{
		logger:   logger,
		template: parsed,
		poster:   newHTTPPoster(logger, "webhook", webhookURL, "application/json", timing),
	}, nil
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, rec snapshot.Record) error {
	if n == nil {
		return nil
	}

	key := saveKey(rec)
	if err := n.poster.waitForRateLimit(ctx, key); err != nil {
		return err
	}

	body, err := n.render(WebhookPayload{Save: key, Snapshot: rec, GeneratedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := n.poster.postWithRetry(ctx, body); err != nil {
		return err
	}

	n.logger.Debug().
		Str("save", key).
		Str("path", rec.Path).
		Msg("webhook notification sent")

	return nil
}

func (n *WebhookNotifier) render(payload WebhookPayload) ([]byte, error) {
	var buf bytes.Buffer
	if err := n.template.Execute(&buf, payload); err != nil {
		return nil, fmt.Errorf("render webhook template for %s: %w", payload.Snapshot.Path, err)
	}
	return buf.Bytes(), nil
}
