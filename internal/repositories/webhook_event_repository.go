package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coachbill/internal/models/db_models"
)

type WebhookEventRepositoryInterface interface {
	// Record inserts the event row, returning false when the (provider,
	// event id) pair already exists. The unique index is the durable
	// redelivery guard.
	Record(ctx context.Context, provider, eventID, eventType string, payload []byte) (bool, error)
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	// MarkProcessed finalizes the event; a finalized event is skipped on
	// redelivery. MarkFailed records the error but leaves the event open so
	// the provider's retry can reprocess it.
	MarkProcessed(ctx context.Context, provider, eventID string) error
	MarkFailed(ctx context.Context, provider, eventID string, processingError string) error
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepositoryInterface {
	return &WebhookEventRepository{db: db}
}

type WebhookEventRepository struct {
	db *gorm.DB
}

func (r *WebhookEventRepository) Record(ctx context.Context, provider, eventID, eventType string, payload []byte) (bool, error) {
	event := &db_models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       eventType,
		Payload:         datatypes.JSON(payload),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *WebhookEventRepository) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	var event db_models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return event.ProcessedAt != nil, nil
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, provider, eventID string) error {
	now := time.Now().Unix()
	return r.db.WithContext(ctx).
		Model(&db_models.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		Updates(map[string]interface{}{
			"processed_at":     now,
			"processing_error": "",
		}).Error
}

func (r *WebhookEventRepository) MarkFailed(ctx context.Context, provider, eventID string, processingError string) error {
	return r.db.WithContext(ctx).
		Model(&db_models.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		Update("processing_error", processingError).Error
}
