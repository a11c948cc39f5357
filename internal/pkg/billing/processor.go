package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// ProcessWebhook runs one signature-verified, field-validated delivery
// through the pipeline: precheck, received-record, then one transaction
// covering the payment upsert, the subscription transition, and the event's
// final status. The three commit or roll back together, so a crash between
// the payment write and the subscription write is always resolved the same
// way by the provider's redelivery.
//
// Once the transaction is open, ctx cancellation is not honored: the unit of
// work runs to commit or rollback so the three records never diverge.
func (s *Service) ProcessWebhook(ctx context.Context, provider string, payload *WebhookPayload, rawBody []byte) (*ProcessResult, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return nil, errors.New("provider is required")
	}

	eventID := strings.TrimSpace(payload.EventID)
	if eventID != "" {
		if status := s.terminals.GetStatus(provider, eventID); status != "" {
			return &ProcessResult{Outcome: OutcomeAlreadyProcessed}, nil
		}
		stored, err := s.repo.FindEvent(provider, eventID)
		if err == nil && stored.Terminal() {
			s.terminals.SetStatus(provider, eventID, stored.Status)
			return &ProcessResult{Outcome: OutcomeAlreadyProcessed, Event: stored}, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	event := &models.WebhookEvent{
		Provider:          provider,
		EventType:         strings.TrimSpace(payload.EventType),
		ProviderPaymentID: strings.TrimSpace(payload.ProviderPaymentID),
		PayloadJSON:       string(rawBody),
		Status:            models.WebhookStatusReceived,
	}
	if eventID != "" {
		event.ProviderEventID = &eventID
	}
	if err := s.repo.UpsertEventReceived(event); err != nil {
		return nil, err
	}

	if !isPaymentEvent(event.EventType) {
		if err := s.finalizeEvent(s.repo, event, models.WebhookStatusIgnored, "", ""); err != nil {
			return nil, err
		}
		s.cacheTerminal(event)
		return &ProcessResult{Outcome: OutcomeIgnored, Event: event}, nil
	}

	result := &ProcessResult{Event: event}
	txErr := s.repo.Transaction(ctx, func(tx Repository) error {
		user, err := s.resolveUser(tx, payload)
		if err != nil {
			return err
		}

		payment, err := s.upsertPayment(tx, payload, rawBody)
		if err != nil {
			return err
		}
		result.Payment = payment

		plan, err := s.resolvePlan(tx, payload.PlanID)
		if err != nil {
			return err
		}
		if plan == nil || plan.Amount != payload.Amount || !strings.EqualFold(plan.Currency, payload.Currency) {
			// Hard stop: the amount will not change on resend, the provider
			// has to be investigated out of band.
			result.Outcome = OutcomeAmountMismatch
			return s.finalizeEvent(tx, event, models.WebhookStatusFailed,
				models.WebhookErrAmountMismatch, amountMismatchMessage(plan, payload))
		}

		if payment.Status != models.PaymentStatusSucceeded {
			// Non-successful facts are recorded in the ledger but drive no
			// transition; only the delivery that applies a payment to a
			// subscription may carry the processed status.
			result.Outcome = OutcomeProcessed
			return s.finalizeEvent(tx, event, models.WebhookStatusIgnored, "", "")
		}

		transition, _, err := s.applySubscriptionTransition(tx, user, payment, plan)
		if err != nil {
			return err
		}
		switch transition {
		case transitionAlreadyApplied:
			result.Outcome = OutcomeAlreadyProcessed
			return s.finalizeEvent(tx, event, models.WebhookStatusIgnored, "", "")
		case transitionUserMissing:
			// Deferred completion: the unit of work commits with the payment
			// recorded, a later redelivery resumes once the user exists.
			result.Outcome = OutcomeDeferred
			return s.finalizeEvent(tx, event, models.WebhookStatusFailed,
				models.WebhookErrUserMissing, "no local user for the delivered customer reference")
		default:
			result.Outcome = OutcomeProcessed
			return s.finalizeEvent(tx, event, models.WebhookStatusProcessed, "", "")
		}
	})
	if txErr != nil {
		// The unit of work rolled back, so any cached terminal status for
		// this key is stale. Clear it before recording the failure.
		if event.ProviderEventID != nil {
			s.terminals.ClearStatus(event.Provider, *event.ProviderEventID)
		}
		// Best-effort failure record outside the rolled-back transaction so
		// the delivery stays diagnosable. This secondary write may itself
		// fail without blocking the error response.
		if ferr := s.finalizeEvent(s.repo, event, models.WebhookStatusFailed, models.WebhookErrInternal, txErr.Error()); ferr != nil {
			log.Errorf("[Billing] recovery status write failed for event %d: %v", event.ID, ferr)
		}
		return nil, txErr
	}
	s.cacheTerminal(event)
	return result, nil
}

// ReprocessEvent re-runs the pipeline for a stored non-terminal event, the
// manual entry point for draining the failed-event retry queue.
func (s *Service) ReprocessEvent(ctx context.Context, id uint) (*ProcessResult, error) {
	event, err := s.repo.FindEventByID(id)
	if err != nil {
		return nil, err
	}
	if event.Terminal() {
		return &ProcessResult{Outcome: OutcomeAlreadyProcessed, Event: event}, nil
	}

	var payload WebhookPayload
	if err := json.Unmarshal([]byte(event.PayloadJSON), &payload); err != nil {
		return nil, fmt.Errorf("stored payload is not parseable: %w", err)
	}
	if event.ProviderEventID != nil {
		payload.EventID = *event.ProviderEventID
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return s.ProcessWebhook(ctx, event.Provider, &payload, []byte(event.PayloadJSON))
}

// resolveUser matches the delivery to a local user, preferring the external
// customer id over the email. An unknown user is not an error here; the
// state machine turns it into a deferred completion.
func (s *Service) resolveUser(repo Repository, in *WebhookPayload) (*models.User, error) {
	if id := strings.TrimSpace(in.ExternalCustomerID); id != "" {
		user, err := repo.GetUserByExternalCustomerIDForUpdate(id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if email := strings.ToLower(strings.TrimSpace(in.Email)); email != "" {
		user, err := repo.GetUserByEmailForUpdate(email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func amountMismatchMessage(plan *models.BillingPlan, in *WebhookPayload) string {
	if plan == nil {
		return fmt.Sprintf("no active plan for plan_id %q", strings.TrimSpace(in.PlanID))
	}
	return fmt.Sprintf("expected %d %s for plan %s, got %d %s",
		plan.Amount, plan.Currency, plan.PlanID, in.Amount, strings.ToUpper(in.Currency))
}
