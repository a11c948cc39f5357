package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// fakeRepository is an in-memory Repository with the same uniqueness and
// rollback behavior the real store enforces, so the coordinator can be
// exercised without MySQL.
type fakeRepository struct {
	users    []models.User
	subs     []models.Subscription
	payments []models.Payment
	events   []models.WebhookEvent
	plans    []models.BillingPlan
	nextID   uint

	// failOn aborts the named repository method with failErr, simulating an
	// infrastructure error mid-transaction.
	failOn  string
	failErr error

	// commitErr makes Transaction roll back and fail after fn has run
	// cleanly, simulating a commit lost to a connection drop or lock-wait
	// timeout.
	commitErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{nextID: 1}
}

func (f *fakeRepository) id() uint {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeRepository) fail(method string) error {
	if f.failOn == method {
		return f.failErr
	}
	return nil
}

func (f *fakeRepository) snapshot() *fakeRepository {
	cp := &fakeRepository{nextID: f.nextID, failOn: f.failOn, failErr: f.failErr}
	cp.users = append([]models.User(nil), f.users...)
	cp.subs = append([]models.Subscription(nil), f.subs...)
	cp.payments = append([]models.Payment(nil), f.payments...)
	cp.events = append([]models.WebhookEvent(nil), f.events...)
	cp.plans = append([]models.BillingPlan(nil), f.plans...)
	return cp
}

func (f *fakeRepository) restore(s *fakeRepository) {
	f.nextID = s.nextID
	f.users = s.users
	f.subs = s.subs
	f.payments = s.payments
	f.events = s.events
	f.plans = s.plans
}

func (f *fakeRepository) Transaction(_ context.Context, fn func(Repository) error) error {
	before := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(before)
		return err
	}
	if f.commitErr != nil {
		f.restore(before)
		return f.commitErr
	}
	return nil
}

func (f *fakeRepository) GetUserByExternalCustomerIDForUpdate(externalCustomerID string) (*models.User, error) {
	for i := range f.users {
		if f.users[i].ExternalCustomerID != nil && *f.users[i].ExternalCustomerID == externalCustomerID {
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetUserByEmailForUpdate(email string) (*models.User, error) {
	for i := range f.users {
		if f.users[i].Email != nil && *f.users[i].Email == email {
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetSubscriptionByUserForUpdate(userID uint) (*models.Subscription, error) {
	for i := range f.subs {
		if f.subs[i].UserID == userID {
			s := f.subs[i]
			return &s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateSubscription(sub *models.Subscription) error {
	if err := f.fail("CreateSubscription"); err != nil {
		return err
	}
	for i := range f.subs {
		if f.subs[i].UserID == sub.UserID {
			return fmt.Errorf("duplicate key ux_subscriptions_user for user %d", sub.UserID)
		}
	}
	sub.ID = f.id()
	f.subs = append(f.subs, *sub)
	return nil
}

func (f *fakeRepository) SaveSubscription(sub *models.Subscription) error {
	if err := f.fail("SaveSubscription"); err != nil {
		return err
	}
	for i := range f.subs {
		if f.subs[i].ID == sub.ID {
			f.subs[i] = *sub
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetPaymentByProviderPaymentIDForUpdate(providerPaymentID string) (*models.Payment, error) {
	for i := range f.payments {
		if f.payments[i].ProviderPaymentID == providerPaymentID {
			p := f.payments[i]
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreatePayment(payment *models.Payment) error {
	if err := f.fail("CreatePayment"); err != nil {
		return err
	}
	for i := range f.payments {
		if f.payments[i].ProviderPaymentID == payment.ProviderPaymentID {
			return fmt.Errorf("duplicate key ux_payments_provider_payment for %s", payment.ProviderPaymentID)
		}
	}
	payment.ID = f.id()
	f.payments = append(f.payments, *payment)
	return nil
}

func (f *fakeRepository) SavePayment(payment *models.Payment) error {
	if err := f.fail("SavePayment"); err != nil {
		return err
	}
	for i := range f.payments {
		if f.payments[i].ID == payment.ID {
			f.payments[i] = *payment
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindEvent(provider, providerEventID string) (*models.WebhookEvent, error) {
	for i := range f.events {
		e := f.events[i]
		if e.Provider == provider && e.ProviderEventID != nil && *e.ProviderEventID == providerEventID {
			return &e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindEventByID(id uint) (*models.WebhookEvent, error) {
	for i := range f.events {
		if f.events[i].ID == id {
			e := f.events[i]
			return &e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpsertEventReceived(event *models.WebhookEvent) error {
	if err := f.fail("UpsertEventReceived"); err != nil {
		return err
	}
	if event.ProviderEventID != nil {
		for i := range f.events {
			e := &f.events[i]
			if e.Provider == event.Provider && e.ProviderEventID != nil && *e.ProviderEventID == *event.ProviderEventID {
				e.EventType = event.EventType
				e.ProviderPaymentID = event.ProviderPaymentID
				e.PayloadJSON = event.PayloadJSON
				e.Status = event.Status
				e.ErrorCode = event.ErrorCode
				e.ErrorMessage = event.ErrorMessage
				*event = *e
				return nil
			}
		}
	}
	event.ID = f.id()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeRepository) FinalizeEvent(id uint, status, errorCode, errorMessage string) error {
	if err := f.fail("FinalizeEvent"); err != nil {
		return err
	}
	for i := range f.events {
		if f.events[i].ID == id {
			f.events[i].Status = status
			f.events[i].ErrorCode = errorCode
			f.events[i].ErrorMessage = errorMessage
			if status == models.WebhookStatusProcessed {
				now := time.Now()
				f.events[i].ProcessedAt = &now
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListEventsByStatus(status string, limit int) ([]models.WebhookEvent, error) {
	var out []models.WebhookEvent
	for i := range f.events {
		if f.events[i].Status == status {
			out = append(out, f.events[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRepository) FindActivePlan(planID string) (*models.BillingPlan, error) {
	for i := range f.plans {
		if f.plans[i].PlanID == planID && f.plans[i].IsActive {
			p := f.plans[i]
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

var _ Repository = (*fakeRepository)(nil)

func (f *fakeRepository) addUser(email, externalCustomerID string) *models.User {
	u := models.User{ID: f.id()}
	if email != "" {
		u.Email = &email
	}
	if externalCustomerID != "" {
		u.ExternalCustomerID = &externalCustomerID
	}
	f.users = append(f.users, u)
	return &u
}

func (f *fakeRepository) addPlan(planID string, amount int64, currency, interval string) {
	f.plans = append(f.plans, models.BillingPlan{
		ID:              f.id(),
		PlanID:          planID,
		Amount:          amount,
		Currency:        currency,
		BillingInterval: interval,
		IsActive:        true,
	})
}

func (f *fakeRepository) subscriptionOf(t *testing.T, userID uint) models.Subscription {
	t.Helper()
	for i := range f.subs {
		if f.subs[i].UserID == userID {
			return f.subs[i]
		}
	}
	t.Fatalf("no subscription for user %d", userID)
	return models.Subscription{}
}

func (f *fakeRepository) paymentOf(t *testing.T, providerPaymentID string) models.Payment {
	t.Helper()
	for i := range f.payments {
		if f.payments[i].ProviderPaymentID == providerPaymentID {
			return f.payments[i]
		}
	}
	t.Fatalf("no payment %s", providerPaymentID)
	return models.Payment{}
}

func (f *fakeRepository) eventByKey(t *testing.T, provider, eventID string) models.WebhookEvent {
	t.Helper()
	ev, err := f.FindEvent(provider, eventID)
	if err != nil {
		t.Fatalf("no event %s/%s", provider, eventID)
	}
	return *ev
}

// recordingCache captures terminal-cache traffic for assertions.
type recordingCache struct {
	entries map[string]string
	cleared []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[string]string{}}
}

func (c *recordingCache) GetStatus(provider, eventID string) string {
	return c.entries[provider+"/"+eventID]
}

func (c *recordingCache) SetStatus(provider, eventID, status string) {
	c.entries[provider+"/"+eventID] = status
}

func (c *recordingCache) ClearStatus(provider, eventID string) {
	key := provider + "/" + eventID
	delete(c.entries, key)
	c.cleared = append(c.cleared, key)
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return ts
}

var errInjected = errors.New("injected store failure")
