package db_models

import "github.com/google/uuid"

type ContentType string

const (
	ContentTypeArticle  ContentType = "article"
	ContentTypeCourse   ContentType = "course"
	ContentTypeVideo    ContentType = "video"
	ContentTypeDownload ContentType = "download"
	ContentTypeLink     ContentType = "link"
)

// ContentPurchase records a one-off paid content unlock. Same idempotency
// discipline as ProgramEnrollment: unique on the payment intent id.
type ContentPurchase struct {
	BaseModel
	UserID         uuid.UUID   `gorm:"index"`
	OrganizationID uuid.UUID   `gorm:"index"`
	ContentType    ContentType `gorm:"type:varchar(16)"`
	ContentID      string      `gorm:"index"`

	AmountPaid            int64
	StripePaymentIntentID string `gorm:"uniqueIndex"`
}
