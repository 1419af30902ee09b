package db_models

import "github.com/google/uuid"

type EnrollmentStatus string

const (
	EnrollmentStatusActive   EnrollmentStatus = "active"
	EnrollmentStatusUpcoming EnrollmentStatus = "upcoming"
)

// ProgramEnrollment is created exactly once per successful funnel payment
// intent. The unique index on StripePaymentIntentID backs the pre-insert
// existence check that makes funnel processing idempotent under webhook
// redelivery.
type ProgramEnrollment struct {
	BaseModel
	UserID         uuid.UUID  `gorm:"index"`
	ProgramID      uuid.UUID  `gorm:"index"`
	OrganizationID uuid.UUID  `gorm:"index"`
	CohortID       *uuid.UUID `gorm:"index"`
	SquadID        *uuid.UUID

	StripePaymentIntentID string `gorm:"uniqueIndex"`
	AmountPaid            int64

	Status    EnrollmentStatus `gorm:"type:varchar(16);index"`
	StartedAt int64

	LastAssignedDayIndex int32 `gorm:"default:0"`

	User    User    `gorm:"foreignKey:UserID"`
	Program Program `gorm:"foreignKey:ProgramID"`
}
