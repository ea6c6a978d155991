package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Outbox records notifications inside the caller's transaction so they are
// only dispatched if the state change commits.
type Outbox struct {
	repo repositories.OutboxRepository
	wake chan struct{}
}

func NewOutbox(repo repositories.OutboxRepository) *Outbox {
	return &Outbox{repo: repo, wake: make(chan struct{}, 1)}
}

// Enqueue writes the payload and audience through tx.
func (o *Outbox) Enqueue(ctx context.Context, tx *gorm.DB, payload Payload, audience models.Audience) error {
	msg, err := NewOutboxMessage(payload, audience)
	if err != nil {
		return err
	}
	if err := o.repo.WithTx(tx).Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s notification: %w", payload.Type, err)
	}
	return nil
}

// Wake nudges the dispatcher after a commit. It never blocks.
func (o *Outbox) Wake() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Woken is signalled after Wake.
func (o *Outbox) Woken() <-chan struct{} { return o.wake }

func NewOutboxMessage(payload Payload, audience models.Audience) (*models.OutboxMessage, error) {
	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	rawAudience, err := json.Marshal(audience)
	if err != nil {
		return nil, fmt.Errorf("marshal audience: %w", err)
	}
	return &models.OutboxMessage{
		Kind:     payload.Type,
		Payload:  datatypes.JSON(rawPayload),
		Audience: datatypes.JSON(rawAudience),
	}, nil
}

// DecodeOutboxMessage reverses NewOutboxMessage.
func DecodeOutboxMessage(msg *models.OutboxMessage) (Payload, models.Audience, error) {
	var payload Payload
	var audience models.Audience
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, audience, fmt.Errorf("decode payload of outbox message %d: %w", msg.ID, err)
	}
	if err := json.Unmarshal(msg.Audience, &audience); err != nil {
		return payload, audience, fmt.Errorf("decode audience of outbox message %d: %w", msg.ID, err)
	}
	return payload, audience, nil
}
