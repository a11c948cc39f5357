package models

import "time"

const (
	WebhookStatusReceived  = "received"
	WebhookStatusProcessed = "processed"
	WebhookStatusFailed    = "failed"
	WebhookStatusIgnored   = "ignored"
)

// Error codes stored on failed webhook events. amount_mismatch is terminal
// for that payload, user_missing resolves on a later retry, internal_error
// invites an immediate retry.
const (
	WebhookErrAmountMismatch = "amount_mismatch"
	WebhookErrUserMissing    = "user_missing"
	WebhookErrInternal       = "internal_error"
)

// WebhookEvent records one inbound delivery attempt (a delivery, not a
// fact). ProviderEventID is nullable: providers occasionally omit it, and a
// NULL key row must not collide with other NULL rows under the composite
// unique index, so every keyless delivery is stored as a fresh audit row.
//
// A second invariant lives in migrations: provider_payment_id is unique
// among rows with status = processed (functional unique key), so a payment
// fact is marked fully applied by at most one event record.
type WebhookEvent struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Provider          string     `gorm:"type:varchar(20);not null;uniqueIndex:ux_webhook_events_provider_event,priority:1;index" json:"provider"`
	ProviderEventID   *string    `gorm:"type:varchar(191);uniqueIndex:ux_webhook_events_provider_event,priority:2" json:"provider_event_id,omitempty"`
	EventType         string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	ProviderPaymentID string     `gorm:"type:varchar(191);not null;default:'';index" json:"provider_payment_id"`
	PayloadJSON       string     `gorm:"type:longtext;not null" json:"payload_json"`
	Status            string     `gorm:"type:varchar(16);not null;default:'received';index" json:"status"`
	ErrorCode         string     `gorm:"type:varchar(50);not null;default:''" json:"error_code"`
	ErrorMessage      string     `gorm:"type:text" json:"error_message"`
	ProcessedAt       *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Terminal reports whether a repeat delivery with the same key should be
// acknowledged without reprocessing. received and failed rows are the retry
// queue and are never terminal.
func (e *WebhookEvent) Terminal() bool {
	return e.Status == WebhookStatusProcessed || e.Status == WebhookStatusIgnored
}
