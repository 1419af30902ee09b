package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"coachbill/internal/models/db_models"
	"github.com/google/uuid"
)

type ProgramRepositoryInterface interface {
	GetProgram(ctx context.Context, id uuid.UUID) (*db_models.Program, error)
	GetCohort(ctx context.Context, id uuid.UUID) (*db_models.Cohort, error)
	GetInvite(ctx context.Context, id uuid.UUID) (*db_models.Invite, error)

	// FindEarliestOpenCohort returns the open, upcoming-or-active cohort
	// with the earliest start date. Ties on start date break by creation
	// time ascending; that ordering is deliberate, not incidental.
	FindEarliestOpenCohort(ctx context.Context, programID uuid.UUID) (*db_models.Cohort, error)

	// IncrementCohortEnrollment and IncrementInviteUse are atomic counter
	// bumps. Their idempotency under redelivery is inherited from the
	// enrollment existence check that guards the calling path.
	IncrementCohortEnrollment(ctx context.Context, cohortID uuid.UUID) error
	IncrementInviteUse(ctx context.Context, inviteID uuid.UUID, usedBy uuid.UUID) error
}

func NewProgramRepository(db *gorm.DB) ProgramRepositoryInterface {
	return &ProgramRepository{db: db}
}

type ProgramRepository struct {
	db *gorm.DB
}

func (r *ProgramRepository) GetProgram(ctx context.Context, id uuid.UUID) (*db_models.Program, error) {
	var program db_models.Program
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&program).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &program, nil
}

func (r *ProgramRepository) GetCohort(ctx context.Context, id uuid.UUID) (*db_models.Cohort, error) {
	var cohort db_models.Cohort
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cohort).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cohort, nil
}

func (r *ProgramRepository) GetInvite(ctx context.Context, id uuid.UUID) (*db_models.Invite, error) {
	var invite db_models.Invite
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invite, nil
}

func (r *ProgramRepository) FindEarliestOpenCohort(ctx context.Context, programID uuid.UUID) (*db_models.Cohort, error) {
	var cohort db_models.Cohort
	err := r.db.WithContext(ctx).
		Where("program_id = ? AND is_open = ? AND status IN ?",
			programID, true,
			[]db_models.CohortStatus{db_models.CohortStatusUpcoming, db_models.CohortStatusActive}).
		Order("start_date ASC, created_at ASC").
		First(&cohort).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cohort, nil
}

func (r *ProgramRepository) IncrementCohortEnrollment(ctx context.Context, cohortID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&db_models.Cohort{}).
		Where("id = ?", cohortID).
		Update("current_enrollment", gorm.Expr("current_enrollment + 1")).Error
}

func (r *ProgramRepository) IncrementInviteUse(ctx context.Context, inviteID uuid.UUID, usedBy uuid.UUID) error {
	now := time.Now().Unix()
	return r.db.WithContext(ctx).
		Model(&db_models.Invite{}).
		Where("id = ?", inviteID).
		Updates(map[string]interface{}{
			"use_count": gorm.Expr("use_count + 1"),
			"used_by":   usedBy,
			"used_at":   now,
		}).Error
}
