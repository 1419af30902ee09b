package db_models

import "github.com/google/uuid"

type AccessSource string

const (
	AccessSourcePlatformBilling AccessSource = "platform_billing"
	AccessSourceOrgGranted      AccessSource = "org_granted"
	AccessSourceInvite          AccessSource = "invite"
)

// OrgMembership is one row per user per organization. For members whose
// access comes from platform billing it carries a denormalized tier copy
// that the subscription reconciler fans out to on every tier change.
type OrgMembership struct {
	BaseModel
	UserID         uuid.UUID `gorm:"index:idx_membership_user_org"`
	OrganizationID uuid.UUID `gorm:"index:idx_membership_user_org"`

	AccessSource AccessSource `gorm:"type:varchar(24);index"`
	Tier         Tier         `gorm:"type:varchar(16);default:'free'"`
	Role         string       `gorm:"default:'client'"`
	IsActive     bool         `gorm:"default:true;index"`

	User User `gorm:"foreignKey:UserID"`
}
