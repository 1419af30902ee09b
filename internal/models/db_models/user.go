package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Tier string

const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

type BillingStatus string

const (
	BillingStatusActive   BillingStatus = "active"
	BillingStatusPastDue  BillingStatus = "past_due"
	BillingStatusCanceled BillingStatus = "canceled"
	BillingStatusTrialing BillingStatus = "trialing"
)

type BillingPlan string

const (
	BillingPlanStandard BillingPlan = "standard"
	BillingPlanPremium  BillingPlan = "premium"
)

type CoachingStatus string

const (
	CoachingStatusActive   CoachingStatus = "active"
	CoachingStatusPastDue  CoachingStatus = "past_due"
	CoachingStatusCanceled CoachingStatus = "canceled"
	CoachingStatusNone     CoachingStatus = "none"
)

type CoachingPlan string

const (
	CoachingPlanMonthly   CoachingPlan = "monthly"
	CoachingPlanQuarterly CoachingPlan = "quarterly"
)

// User mirrors the identity provider's user plus the billing and coaching
// state owned by the webhook reconcilers. Tier is denormalized here and on
// OrgMembership for cheap authorization checks.
type User struct {
	BaseModel
	ClerkUserID string `gorm:"uniqueIndex"`
	Email       string `gorm:"index"`
	Name        string

	Tier Tier `gorm:"type:varchar(16);default:'free';index"`

	// BillingState (platform membership). status != active => Tier must be free.
	BillingPlan          BillingPlan   `gorm:"type:varchar(16)"`
	StripeCustomerID     string        `gorm:"index"`
	StripeSubscriptionID string        `gorm:"index"`
	BillingStatus        BillingStatus `gorm:"type:varchar(16);index"`
	CurrentPeriodEnd     int64
	CancelAtPeriodEnd    bool
	StartedWithTrial     bool
	// Provider event timestamp of the last applied subscription update.
	// Older events are skipped to keep upserts monotonic.
	BillingSyncedAt int64

	// CoachingState (coach-to-platform add-on). Strictly decoupled from Tier.
	CoachingStatus         CoachingStatus `gorm:"type:varchar(16);default:'none'"`
	CoachingPlan           *CoachingPlan  `gorm:"type:varchar(16)"`
	CoachingSubscriptionID string         `gorm:"index"`
	CoachingEndsAt         int64

	// Pointers set by the funnel reconciler on enrollment.
	CurrentOrganizationID *uuid.UUID `gorm:"index"`
	CurrentProgramID      *uuid.UUID
	CurrentEnrollmentID   *uuid.UUID

	// Funnel-collected profile fields (fixed allow-list, see enrollment service).
	Goal       string
	Identity   string
	Obstacles  string
	Timeline   string
	Experience string

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}
