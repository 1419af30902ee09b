package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"coachbill/internal/models/db_models"
	"github.com/google/uuid"
)

type SquadRepositoryInterface interface {
	CreateMembership(ctx context.Context, userID, squadID uuid.UUID) error

	// ArchiveOtherMemberships archives every active squad membership for the
	// user except the one just assigned. Best-effort cleanup after enrollment.
	ArchiveOtherMemberships(ctx context.Context, userID, keepSquadID uuid.UUID) error
}

func NewSquadRepository(db *gorm.DB) SquadRepositoryInterface {
	return &SquadRepository{db: db}
}

type SquadRepository struct {
	db *gorm.DB
}

func (r *SquadRepository) CreateMembership(ctx context.Context, userID, squadID uuid.UUID) error {
	membership := &db_models.SquadMembership{
		UserID:  userID,
		SquadID: squadID,
		Status:  db_models.SquadMembershipActive,
	}
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *SquadRepository) ArchiveOtherMemberships(ctx context.Context, userID, keepSquadID uuid.UUID) error {
	now := time.Now().Unix()
	return r.db.WithContext(ctx).
		Model(&db_models.SquadMembership{}).
		Where("user_id = ? AND squad_id <> ? AND status = ?",
			userID, keepSquadID, db_models.SquadMembershipActive).
		Updates(map[string]interface{}{
			"status":      db_models.SquadMembershipArchived,
			"archived_at": now,
		}).Error
}
