package repositories

import (
	"context"
	"errors"
	"gorm.io/gorm"

	"coachbill/internal/models/db_models"
)

type EnrollmentRepositoryInterface interface {
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*db_models.ProgramEnrollment, error)
	Create(ctx context.Context, enrollment *db_models.ProgramEnrollment) error

	FindPurchaseByPaymentIntent(ctx context.Context, paymentIntentID string) (*db_models.ContentPurchase, error)
	CreatePurchase(ctx context.Context, purchase *db_models.ContentPurchase) error
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepositoryInterface {
	return &EnrollmentRepository{db: db}
}

type EnrollmentRepository struct {
	db *gorm.DB
}

func (r *EnrollmentRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*db_models.ProgramEnrollment, error) {
	var enrollment db_models.ProgramEnrollment
	err := r.db.WithContext(ctx).Where("stripe_payment_intent_id = ?", paymentIntentID).First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *db_models.ProgramEnrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *EnrollmentRepository) FindPurchaseByPaymentIntent(ctx context.Context, paymentIntentID string) (*db_models.ContentPurchase, error) {
	var purchase db_models.ContentPurchase
	err := r.db.WithContext(ctx).Where("stripe_payment_intent_id = ?", paymentIntentID).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

func (r *EnrollmentRepository) CreatePurchase(ctx context.Context, purchase *db_models.ContentPurchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}
