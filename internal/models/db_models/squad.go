package db_models

import "github.com/google/uuid"

type SquadMembershipStatus string

const (
	SquadMembershipActive   SquadMembershipStatus = "active"
	SquadMembershipArchived SquadMembershipStatus = "archived"
)

type SquadMembership struct {
	BaseModel
	UserID  uuid.UUID `gorm:"index"`
	SquadID uuid.UUID `gorm:"index"`

	Status     SquadMembershipStatus `gorm:"type:varchar(16);index"`
	ArchivedAt *int64
}
