package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobridge/ecobridge-server/internal/users"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/outbox"
	"github.com/ecobridge/ecobridge-server/pkg/outbox/payloads"
)

// Trigger names the action that raised a notification.
const (
	TriggerUploadCreated  = "upload_created"
	TriggerUploadDeleted  = "upload_deleted"
	TriggerUploadAccepted = "upload_accepted"
	TriggerNeedCreated    = "need_created"
	TriggerNeedUpdated    = "need_updated"
	TriggerUserLogin      = "user_login"
	TriggerUserSignup     = "user_signup"
	TriggerUserBanned     = "user_banned"
	TriggerUserUnbanned   = "user_unbanned"
	TriggerUserTerminated = "user_terminated"
	TriggerCertified      = "user_certified"
	TriggerUploadPenalty  = "upload_penalty"
)

// Intent is one message to fan out. Audience admins resolves recipients at
// trigger time; audience user sends to RecipientID only.
type Intent struct {
	Trigger       string
	Message       string
	SenderID      uuid.UUID
	Audience      enums.NotificationAudience
	RecipientID   uuid.UUID
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
}

// ToAdmins builds a broadcast intent.
func ToAdmins(trigger, message string, sender uuid.UUID, aggregate enums.OutboxAggregateType, aggregateID uuid.UUID) Intent {
	return Intent{
		Trigger:       trigger,
		Message:       message,
		SenderID:      sender,
		Audience:      enums.NotificationAudienceAdmins,
		AggregateType: aggregate,
		AggregateID:   aggregateID,
	}
}

// ToUser builds a directed intent.
func ToUser(trigger, message string, sender, recipient uuid.UUID, aggregate enums.OutboxAggregateType, aggregateID uuid.UUID) Intent {
	return Intent{
		Trigger:       trigger,
		Message:       message,
		SenderID:      sender,
		Audience:      enums.NotificationAudienceUser,
		RecipientID:   recipient,
		AggregateType: aggregate,
		AggregateID:   aggregateID,
	}
}

// Sender is what business services depend on.
type Sender interface {
	Notify(ctx context.Context, tx *gorm.DB, intent Intent) error
}

// AdminResolver lists admin ids using the caller's transaction.
type AdminResolver func(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error)

// AdminsFromUsers resolves admins through the users repository.
func AdminsFromUsers(repo *users.Repository) AdminResolver {
	return func(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error) {
		return repo.WithTx(tx).ListAdminIDs(ctx)
	}
}

// Notifier turns intents into outbox events inside the triggering transaction.
type Notifier struct {
	emitter outbox.Emitter
	admins  AdminResolver
	logg    *logger.Logger
}

// NewNotifier wires the outbox emitter and admin lookup.
func NewNotifier(emitter outbox.Emitter, admins AdminResolver, logg *logger.Logger) (*Notifier, error) {
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if admins == nil {
		return nil, fmt.Errorf("admin resolver required")
	}
	return &Notifier{emitter: emitter, admins: admins, logg: logg}, nil
}

// Notify resolves recipients and queues one notification_requested event.
// An admin broadcast with no admins is a no-op.
func (n *Notifier) Notify(ctx context.Context, tx *gorm.DB, intent Intent) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	message := strings.TrimSpace(intent.Message)
	if message == "" {
		return fmt.Errorf("notification message required")
	}
	if intent.SenderID == uuid.Nil {
		return fmt.Errorf("notification sender required")
	}

	var recipients []uuid.UUID
	switch intent.Audience {
	case enums.NotificationAudienceAdmins:
		ids, err := n.admins(ctx, tx)
		if err != nil {
			return fmt.Errorf("resolve admins: %w", err)
		}
		recipients = ids
	case enums.NotificationAudienceUser:
		if intent.RecipientID == uuid.Nil {
			return fmt.Errorf("notification recipient required")
		}
		recipients = []uuid.UUID{intent.RecipientID}
	default:
		return fmt.Errorf("unknown notification audience %q", intent.Audience)
	}

	if len(recipients) == 0 {
		if n.logg != nil {
			n.logg.Debug(n.logg.WithField(ctx, "trigger", intent.Trigger), "no notification recipients")
		}
		return nil
	}

	aggregateType := intent.AggregateType
	aggregateID := intent.AggregateID
	if aggregateType == "" || aggregateID == uuid.Nil {
		aggregateType = enums.AggregateUser
		aggregateID = intent.SenderID
	}

	return n.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Actor:         &outbox.ActorRef{UserID: intent.SenderID},
		Data: payloads.NotificationRequestedEvent{
			Trigger:      intent.Trigger,
			Audience:     intent.Audience,
			Message:      message,
			SenderID:     intent.SenderID,
			RecipientIDs: recipients,
		},
	})
}
