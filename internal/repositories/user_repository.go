package repositories

import (
	"context"
	"errors"
	"gorm.io/gorm"

	"coachbill/internal/models/db_models"
	"github.com/google/uuid"
)

type UserRepositoryInterface interface {
	FindByID(ctx context.Context, id uuid.UUID) (*db_models.User, error)
	FindByClerkID(ctx context.Context, clerkUserID string) (*db_models.User, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*db_models.User, error)
	FindByCoachingSubscriptionID(ctx context.Context, subscriptionID string) (*db_models.User, error)

	// UpdateFields is a field-level upsert keyed by the user's primary key;
	// last write wins, which keeps subscription-state writes idempotent
	// under redelivery.
	UpdateFields(ctx context.Context, userID uuid.UUID, fields map[string]interface{}) error
}

func NewUserRepository(db *gorm.DB) UserRepositoryInterface {
	return &UserRepository{db: db}
}

type UserRepository struct {
	db *gorm.DB
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*db_models.User, error) {
	var user db_models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByClerkID(ctx context.Context, clerkUserID string) (*db_models.User, error) {
	var user db_models.User
	err := r.db.WithContext(ctx).Where("clerk_user_id = ?", clerkUserID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*db_models.User, error) {
	var user db_models.User
	err := r.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByCoachingSubscriptionID(ctx context.Context, subscriptionID string) (*db_models.User, error) {
	var user db_models.User
	err := r.db.WithContext(ctx).Where("coaching_subscription_id = ?", subscriptionID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateFields(ctx context.Context, userID uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&db_models.User{}).
		Where("id = ?", userID).
		Updates(fields).Error
}
