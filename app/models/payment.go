package models

import "time"

const (
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment records a monetary transfer reported by the provider. The unique
// index on provider_payment_id is the fact-level idempotency key: every
// write goes through an upsert keyed on it, so redelivered webhooks can
// never produce a second row for the same provider payment.
//
// SubscriptionID is attached after the subscription transition, never
// before; a non-null value is the replay guard that makes double delivery a
// pure read.
type Payment struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            *uint      `gorm:"index" json:"user_id,omitempty"`
	SubscriptionID    *uint      `gorm:"index" json:"subscription_id,omitempty"`
	ProviderPaymentID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_payments_provider_payment" json:"provider_payment_id"`
	Amount            int64      `gorm:"not null" json:"amount"`
	Currency          string     `gorm:"type:varchar(3);not null" json:"currency"`
	Status            string     `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	PaidAt            *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	RawPayloadJSON    string     `gorm:"type:longtext" json:"-"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
