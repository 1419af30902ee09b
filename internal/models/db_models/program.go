package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ProgramType string

const (
	ProgramTypeGroup      ProgramType = "group"
	ProgramTypeIndividual ProgramType = "individual"
	ProgramTypeSelfPaced  ProgramType = "self_paced"
)

type Program struct {
	BaseModel
	OrganizationID uuid.UUID   `gorm:"index"`
	Name           string
	Type           ProgramType `gorm:"type:varchar(16);index"`
	// List price in minor units, used when the payment intent carries no amount.
	PriceMinor int64
	Currency   string `gorm:"size:3"`
	IsActive   bool   `gorm:"default:true"`

	Features datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

type CohortStatus string

const (
	CohortStatusUpcoming  CohortStatus = "upcoming"
	CohortStatusActive    CohortStatus = "active"
	CohortStatusCompleted CohortStatus = "completed"
)

type Cohort struct {
	BaseModel
	ProgramID uuid.UUID    `gorm:"index"`
	Name      string
	Status    CohortStatus `gorm:"type:varchar(16);index"`
	IsOpen    bool         `gorm:"default:true;index"`

	// Unix seconds. Enrollments created before this date are "upcoming".
	StartDate int64 `gorm:"index"`

	Capacity          int32
	CurrentEnrollment int32 `gorm:"default:0"`

	Program Program `gorm:"foreignKey:ProgramID"`
}

// Invite is a funnel entry link a coach hands out. It may pin the prospect
// to a specific cohort or squad and may mark the enrollment as pre-paid.
type Invite struct {
	BaseModel
	ProgramID      uuid.UUID  `gorm:"index"`
	OrganizationID uuid.UUID  `gorm:"index"`
	TargetCohortID *uuid.UUID
	TargetSquadID  *uuid.UUID

	PrePaid  bool
	MaxUses  int32
	UseCount int32 `gorm:"default:0"`

	UsedBy *uuid.UUID
	UsedAt *int64
}
