package billing

import (
	"errors"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// upsertPayment records a payment fact keyed on provider_payment_id, as an
// explicit read-for-update-then-write inside the caller's transaction. On an
// existing row the merge rule is: status and payload follow the latest
// delivery, paid_at is first-writer-wins so a reordered duplicate can never
// overwrite the original settlement time, and user/subscription attachment
// is untouched (that belongs to the subscription transition).
func (s *Service) upsertPayment(repo Repository, in *WebhookPayload, rawBody []byte) (*models.Payment, error) {
	status := normalizePaymentStatus(in.Status, in.EventType)

	paidAt := in.PaidAt
	if paidAt == nil && status == models.PaymentStatusSucceeded {
		now := time.Now()
		paidAt = &now
	}

	existing, err := repo.GetPaymentByProviderPaymentIDForUpdate(in.ProviderPaymentID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		payment := &models.Payment{
			ProviderPaymentID: in.ProviderPaymentID,
			Amount:            in.Amount,
			Currency:          in.Currency,
			Status:            status,
			PaidAt:            paidAt,
			RawPayloadJSON:    string(rawBody),
		}
		if err := repo.CreatePayment(payment); err != nil {
			return nil, err
		}
		return payment, nil
	}

	existing.Status = status
	existing.RawPayloadJSON = string(rawBody)
	if existing.PaidAt == nil {
		existing.PaidAt = paidAt
	}
	if err := repo.SavePayment(existing); err != nil {
		return nil, err
	}
	return existing, nil
}
