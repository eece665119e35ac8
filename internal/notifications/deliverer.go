package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/metrics"
	"github.com/ecobridge/ecobridge-server/pkg/outbox/payloads"
	"github.com/ecobridge/ecobridge-server/pkg/outbox/registry"
)

// Deliverer is the drainer handler for notification_requested events. It
// writes one notification row per recipient on the drainer's transaction.
type Deliverer struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.OutboxMetrics
}

// NewDeliverer builds the handler.
func NewDeliverer(repo Repository, logg *logger.Logger, m *metrics.OutboxMetrics) (*Deliverer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &Deliverer{repo: repo, logg: logg, metrics: m}, nil
}

// Handle implements dispatcher.Handler.
func (d *Deliverer) Handle(ctx context.Context, tx *gorm.DB, event *registry.ResolvedEvent) error {
	if event == nil {
		return registry.NewNonRetryableError(fmt.Errorf("event required"))
	}
	payload, ok := event.Payload.(*payloads.NotificationRequestedEvent)
	if !ok || payload == nil {
		return registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T", event.Payload))
	}
	if payload.SenderID == uuid.Nil || payload.Message == "" {
		return registry.NewNonRetryableError(fmt.Errorf("notification payload incomplete"))
	}

	eventID, err := uuid.Parse(event.Envelope.EventID)
	if err != nil {
		return registry.NewNonRetryableError(fmt.Errorf("invalid event id: %w", err))
	}

	repo := d.repo.WithTx(tx)
	existing, err := repo.CountByEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if existing > 0 {
		if d.logg != nil {
			d.logg.Warn(d.logg.WithField(ctx, "event_id", eventID.String()), "notifications already delivered for event")
		}
		return nil
	}

	rows := make([]models.Notification, 0, len(payload.RecipientIDs))
	seen := make(map[uuid.UUID]struct{}, len(payload.RecipientIDs))
	for _, recipient := range payload.RecipientIDs {
		if recipient == uuid.Nil {
			continue
		}
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}
		id := eventID
		rows = append(rows, models.Notification{
			RecipientID: recipient,
			SenderID:    payload.SenderID,
			Message:     payload.Message,
			EventID:     &id,
		})
	}
	if err := repo.CreateBatch(ctx, rows); err != nil {
		return err
	}
	d.metrics.ObserveRecipients(len(rows))

	if d.logg != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"event_id":   eventID.String(),
			"trigger":    payload.Trigger,
			"recipients": len(rows),
		})
		d.logg.Info(logCtx, "notifications delivered")
	}
	return nil
}
