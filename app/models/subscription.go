package models

import "time"

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusExpired  = "expired"
)

// Subscription is the single billing cycle a user can hold. The unique index
// on user_id enforces the one-subscription-per-user model at the storage
// layer, so concurrent first payments cannot create two rows.
type Subscription struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;uniqueIndex:ux_subscriptions_user" json:"user_id"`
	PlanID             string    `gorm:"type:varchar(50);not null;index" json:"plan_id"`
	Status             string    `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	CurrentPeriodStart time.Time `gorm:"type:timestamp;not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time `gorm:"type:timestamp;not null;index" json:"current_period_end"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
