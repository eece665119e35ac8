package payloads

import (
	"github.com/google/uuid"

	"github.com/ecobridge/ecobridge-server/pkg/enums"
)

// NotificationRequestedEvent asks the drainer to write one notification per
// recipient. Recipients are resolved when the triggering transaction runs.
type NotificationRequestedEvent struct {
	Trigger      string                     `json:"trigger"`
	Audience     enums.NotificationAudience `json:"audience"`
	Message      string                     `json:"message"`
	SenderID     uuid.UUID                  `json:"sender_id"`
	RecipientIDs []uuid.UUID                `json:"recipient_ids"`
}
