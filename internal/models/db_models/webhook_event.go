package db_models

import "gorm.io/datatypes"

// WebhookEvent stores every verified provider event with dedupe metadata.
// The unique (provider, provider_event_id) index is the durable guard
// against redelivered events; the in-memory seen cache only fronts it.
type WebhookEvent struct {
	BaseModel
	Provider        string `gorm:"type:varchar(20);index:ux_webhook_provider_event,unique"`
	ProviderEventID string `gorm:"type:varchar(191);index:ux_webhook_provider_event,unique"`
	EventType       string `gorm:"type:varchar(100);index"`

	Payload datatypes.JSON `gorm:"type:jsonb"`

	ProcessedAt     *int64
	ProcessingError string `gorm:"type:text"`
}
