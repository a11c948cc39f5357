package models

import "time"

const (
	BillingIntervalMonth = "month"
	BillingIntervalYear  = "year"
)

// BillingPlan is the price catalog entry payments are checked against: a
// payment is accepted only when its amount and currency match the plan
// exactly. Seeded via migrations / admin tooling, read-only for the webhook
// pipeline.
type BillingPlan struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PlanID          string    `gorm:"type:varchar(50);not null;uniqueIndex:ux_billing_plans_plan" json:"plan_id"`
	Amount          int64     `gorm:"not null" json:"amount"`
	Currency        string    `gorm:"type:varchar(3);not null" json:"currency"`
	BillingInterval string    `gorm:"type:varchar(16);not null;default:'month'" json:"billing_interval"`
	IsActive        bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PeriodEnd returns the end of a billing period starting at from.
func (p *BillingPlan) PeriodEnd(from time.Time) time.Time {
	if p.BillingInterval == BillingIntervalYear {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}
