package billing

import (
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/go-playground/validator/v10"
)

// WebhookPayload is the provider-agnostic shape of an inbound webhook body.
// Validation tags cover the minimum required fields; a payload failing them
// is rejected before anything is persisted.
type WebhookPayload struct {
	EventID            string     `json:"event_id"`
	EventType          string     `json:"event_type" validate:"required,max=100"`
	ProviderPaymentID  string     `json:"external_payment_id" validate:"required,max=191"`
	Amount             int64      `json:"amount" validate:"required,gt=0"`
	Currency           string     `json:"currency" validate:"required,len=3"`
	Status             string     `json:"status"`
	PaidAt             *time.Time `json:"paid_at"`
	PlanID             string     `json:"plan_id"`
	ExternalCustomerID string     `json:"external_customer_id"`
	Email              string     `json:"email"`
}

var validate = validator.New()

// Validate checks the minimum required fields. Deliveries failing this are
// rejected with 422 before anything is persisted.
func (p *WebhookPayload) Validate() error {
	return validate.Struct(p)
}

// Outcome classifies how a delivery was resolved. The controller maps these
// onto HTTP status codes.
type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"         // 200
	OutcomeAlreadyProcessed Outcome = "already_processed" // 200, terminal dedup hit
	OutcomeIgnored          Outcome = "ignored"           // 200, unhandled event type
	OutcomeDeferred         Outcome = "deferred"          // 202, user not provisioned yet
	OutcomeAmountMismatch   Outcome = "amount_mismatch"   // 409
)

// ProcessResult is what the coordinator returns for a committed unit of work.
type ProcessResult struct {
	Outcome Outcome
	Event   *models.WebhookEvent
	Payment *models.Payment
}
