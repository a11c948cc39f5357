package billing

import (
	"errors"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

type transitionResult int

const (
	transitionApplied transitionResult = iota
	transitionAlreadyApplied
	transitionUserMissing
)

// applySubscriptionTransition applies a validated successful payment to the
// resolved user's subscription. It only ever drives a subscription into
// active; cancellation, expiry and past-due marking are owned by a separate
// scheduled job.
//
// The rules, in order:
//   - payment already attached to a subscription: replay of an applied
//     payment, pure no-op;
//   - user unresolved: the payment fact stays recorded, completion is
//     deferred until the user exists and the provider redelivers;
//   - no subscription yet: create one running [paidAt, paidAt+period);
//   - subscription exists: extend current_period_end by one period from its
//     current value, not from paidAt, so out-of-order delivery cannot
//     compound drift.
func (s *Service) applySubscriptionTransition(repo Repository, user *models.User, payment *models.Payment, plan *models.BillingPlan) (transitionResult, *models.Subscription, error) {
	if payment.SubscriptionID != nil {
		return transitionAlreadyApplied, nil, nil
	}
	if user == nil {
		return transitionUserMissing, nil, nil
	}

	sub, err := repo.GetSubscriptionByUserForUpdate(user.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil, err
		}
		paidAt := time.Now()
		if payment.PaidAt != nil {
			paidAt = *payment.PaidAt
		}
		sub = &models.Subscription{
			UserID:             user.ID,
			PlanID:             plan.PlanID,
			Status:             models.SubscriptionStatusActive,
			CurrentPeriodStart: paidAt,
			CurrentPeriodEnd:   plan.PeriodEnd(paidAt),
		}
		if err := repo.CreateSubscription(sub); err != nil {
			return 0, nil, err
		}
	} else {
		sub.CurrentPeriodEnd = plan.PeriodEnd(sub.CurrentPeriodEnd)
		sub.Status = models.SubscriptionStatusActive
		sub.PlanID = plan.PlanID
		if err := repo.SaveSubscription(sub); err != nil {
			return 0, nil, err
		}
	}

	payment.UserID = &user.ID
	payment.SubscriptionID = &sub.ID
	if err := repo.SavePayment(payment); err != nil {
		return 0, nil, err
	}
	return transitionApplied, sub, nil
}
