package models

import "time"

// User is the identity anchor payments resolve against. Rows are created by
// the provisioning system, never by the webhook pipeline; this service only
// reads and matches them by external customer id or email.
type User struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Email              *string   `gorm:"uniqueIndex:ux_users_email;type:varchar(200)" json:"email,omitempty" validate:"omitempty,email,max=200"`
	ExternalCustomerID *string   `gorm:"uniqueIndex:ux_users_external_customer;type:varchar(191)" json:"external_customer_id,omitempty" validate:"omitempty,max=191"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
