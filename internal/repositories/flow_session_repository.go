package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"coachbill/internal/models/db_models"
	"github.com/google/uuid"
)

type FlowSessionRepositoryInterface interface {
	Get(ctx context.Context, id uuid.UUID) (*db_models.FlowSession, error)
	Create(ctx context.Context, session *db_models.FlowSession) error

	// MarkCompleted stamps completed_at and merges the payment intent id
	// into the session's data blob. A completed session is never reopened.
	MarkCompleted(ctx context.Context, id uuid.UUID, paymentIntentID string) error
}

func NewFlowSessionRepository(db *gorm.DB) FlowSessionRepositoryInterface {
	return &FlowSessionRepository{db: db}
}

type FlowSessionRepository struct {
	db *gorm.DB
}

func (r *FlowSessionRepository) Get(ctx context.Context, id uuid.UUID) (*db_models.FlowSession, error) {
	var session db_models.FlowSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *FlowSessionRepository) Create(ctx context.Context, session *db_models.FlowSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *FlowSessionRepository) MarkCompleted(ctx context.Context, id uuid.UUID, paymentIntentID string) error {
	var session db_models.FlowSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return err
	}

	data := map[string]interface{}{}
	if len(session.Data) > 0 {
		_ = json.Unmarshal(session.Data, &data)
	}
	data["payment_intent_id"] = paymentIntentID
	merged, err := json.Marshal(data)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	return r.db.WithContext(ctx).
		Model(&session).
		Updates(map[string]interface{}{
			"completed_at": now,
			"data":         datatypes.JSON(merged),
		}).Error
}
