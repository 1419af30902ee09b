package repositories

import (
	"context"
	"gorm.io/gorm"

	"coachbill/internal/models/db_models"
	"github.com/google/uuid"
)

type MembershipRepositoryInterface interface {
	// UpdateTierForPlatformBilling fans a tier change out to every active
	// membership whose access comes from platform billing, in one batch
	// update. Returns the number of rows touched.
	UpdateTierForPlatformBilling(ctx context.Context, userID uuid.UUID, tier db_models.Tier) (int64, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]db_models.OrgMembership, error)
}

func NewMembershipRepository(db *gorm.DB) MembershipRepositoryInterface {
	return &MembershipRepository{db: db}
}

type MembershipRepository struct {
	db *gorm.DB
}

func (r *MembershipRepository) UpdateTierForPlatformBilling(ctx context.Context, userID uuid.UUID, tier db_models.Tier) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db_models.OrgMembership{}).
		Where("user_id = ? AND access_source = ? AND is_active = ?",
			userID, db_models.AccessSourcePlatformBilling, true).
		Update("tier", tier)
	return res.RowsAffected, res.Error
}

func (r *MembershipRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]db_models.OrgMembership, error) {
	var memberships []db_models.OrgMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}
