// Package publish fans an invocation record out to the configured webhook
// and archive.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"path"

	"go.uber.org/zap"

	"github.com/zinc-sig/pulse/internal/output"
	"github.com/zinc-sig/pulse/internal/upload"
	"github.com/zinc-sig/pulse/internal/webhook"
)

// EventAnalysisCompleted is sent as the webhook event for every record.
const EventAnalysisCompleted = "analysis.completed"

// Publisher delivers records. Delivery failures are recorded on the record
// and logged; they never fail the analysis.
type Publisher struct {
	webhook *webhook.Client
	archive upload.Provider
	logger  *zap.Logger
}

type Option func(*Publisher)

func WithWebhook(client *webhook.Client) Option {
	return func(p *Publisher) { p.webhook = client }
}

// WithArchive stores each record through provider, which must already be
// configured.
func WithArchive(provider upload.Provider) Option {
	return func(p *Publisher) { p.archive = provider }
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(opts ...Option) *Publisher {
	p := &Publisher{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enabled reports whether any sink is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && (p.webhook != nil || p.archive != nil)
}

// ObjectPath is the archive location of record: <date>/<id>.json.
func ObjectPath(record *output.Record) string {
	return path.Join(record.CreatedAt.UTC().Format("2006-01-02"), record.ID+".json")
}

// Publish sends record to the webhook, then archives it, updating the
// record's delivery fields along the way.
func (p *Publisher) Publish(ctx context.Context, record *output.Record) {
	if !p.Enabled() {
		return
	}
	logger := p.logger.With(zap.String("id", record.ID))

	if p.webhook != nil {
		delivery := webhook.Delivery{ID: record.ID, Event: EventAnalysisCompleted}
		if err := p.webhook.Send(ctx, delivery, record.WebhookPayload()); err != nil {
			logger.Warn("webhook delivery failed", zap.String("url", p.webhook.URL()), zap.Error(err))
			record.WebhookSent = false
			record.WebhookError = err.Error()
		} else {
			record.WebhookSent = true
		}
	}

	if p.archive != nil {
		objectPath := ObjectPath(record)
		if err := p.store(ctx, objectPath, record); err != nil {
			logger.Warn("archive failed", zap.String("provider", p.archive.Name()), zap.Error(err))
			record.ArchiveError = err.Error()
		} else {
			logger.Debug("record archived", zap.String("path", objectPath))
			record.Archived = objectPath
		}
	}
}

func (p *Publisher) store(ctx context.Context, objectPath string, record *output.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	contentType := mime.TypeByExtension(path.Ext(objectPath))
	if contentType == "" {
		contentType = "application/json"
	}

	return p.archive.Upload(ctx, bytes.NewReader(data), upload.Object{
		Path:        objectPath,
		ContentType: contentType,
		Size:        int64(len(data)),
	})
}
