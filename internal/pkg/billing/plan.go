package billing

import (
	"errors"
	"strings"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// isPaymentEvent reports whether an event type drives the payment pipeline.
// Everything else is acknowledged and stored as ignored.
func isPaymentEvent(eventType string) bool {
	t := strings.ToLower(strings.TrimSpace(eventType))
	return strings.HasPrefix(t, "payment.") || strings.HasPrefix(t, "charge.")
}

// normalizePaymentStatus maps provider wording onto the ledger's status set.
// An empty status falls back to the event type suffix, then to succeeded.
func normalizePaymentStatus(status, eventType string) string {
	v := strings.ToLower(strings.TrimSpace(status))
	if v == "" {
		if i := strings.LastIndex(eventType, "."); i >= 0 {
			v = strings.ToLower(strings.TrimSpace(eventType[i+1:]))
		}
	}
	switch v {
	case "succeeded", "success", "paid", "completed":
		return models.PaymentStatusSucceeded
	case "failed", "failure", "declined":
		return models.PaymentStatusFailed
	case "refunded", "refund":
		return models.PaymentStatusRefunded
	case "pending", "created":
		return models.PaymentStatusPending
	default:
		return models.PaymentStatusSucceeded
	}
}

// resolvePlan looks up the plan a payment claims to pay for. A missing or
// unknown plan returns (nil, nil): the caller treats that as an amount
// conflict, since the expected amount cannot be validated.
func (s *Service) resolvePlan(repo Repository, planID string) (*models.BillingPlan, error) {
	id := strings.TrimSpace(planID)
	if id == "" {
		id = s.defaultPlan
	}
	if id == "" {
		return nil, nil
	}
	plan, err := repo.FindActivePlan(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return plan, nil
}
