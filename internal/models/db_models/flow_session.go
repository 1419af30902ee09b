package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FlowSession tracks a prospect's progress through a paid funnel. It is
// created when the funnel starts and mutated exactly once, from incomplete
// to completed, by the one-time payment reconciler. Never reopened.
type FlowSession struct {
	BaseModel
	ProgramID      *uuid.UUID `gorm:"index"`
	OrganizationID uuid.UUID  `gorm:"index"`
	InviteID       *uuid.UUID

	// Funnel answers plus, once finalized, the payment intent id.
	Data datatypes.JSON `gorm:"type:jsonb;default:'{}'"`

	CompletedAt *int64
}
