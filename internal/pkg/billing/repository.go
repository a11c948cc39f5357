package billing

import (
	"context"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the billing service. The
// ForUpdate variants take row-level locks so that concurrent deliveries for
// the same user or subscription serialize inside Transaction; outside a
// transaction they behave like plain reads.
type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	GetUserByExternalCustomerIDForUpdate(externalCustomerID string) (*models.User, error)
	GetUserByEmailForUpdate(email string) (*models.User, error)

	GetSubscriptionByUserForUpdate(userID uint) (*models.Subscription, error)
	CreateSubscription(sub *models.Subscription) error
	SaveSubscription(sub *models.Subscription) error

	GetPaymentByProviderPaymentIDForUpdate(providerPaymentID string) (*models.Payment, error)
	CreatePayment(payment *models.Payment) error
	SavePayment(payment *models.Payment) error

	FindEvent(provider, providerEventID string) (*models.WebhookEvent, error)
	FindEventByID(id uint) (*models.WebhookEvent, error)
	UpsertEventReceived(event *models.WebhookEvent) error
	FinalizeEvent(id uint, status, errorCode, errorMessage string) error
	ListEventsByStatus(status string, limit int) ([]models.WebhookEvent, error)

	FindActivePlan(planID string) (*models.BillingPlan, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Transaction runs fn against a repository bound to a single DB transaction.
// Returning an error rolls everything back.
func (r *gormRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) GetUserByExternalCustomerIDForUpdate(externalCustomerID string) (*models.User, error) {
	var user models.User
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_customer_id = ?", externalCustomerID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetUserByEmailForUpdate(email string) (*models.User, error) {
	var user models.User
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetSubscriptionByUserForUpdate(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) SaveSubscription(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) GetPaymentByProviderPaymentIDForUpdate(providerPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_payment_id = ?", providerPaymentID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormRepository) CreatePayment(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *gormRepository) SavePayment(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

func (r *gormRepository) FindEvent(provider, providerEventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *gormRepository) FindEventByID(id uint) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// UpsertEventReceived inserts the delivery record, or resets an existing row
// for the same (provider, provider_event_id) back to received with the
// latest payload so a previously failed delivery can be reprocessed. Keyless
// events are plain inserts; no dedup is possible without a key.
func (r *gormRepository) UpsertEventReceived(event *models.WebhookEvent) error {
	if event.ProviderEventID == nil {
		return r.db.Create(event).Error
	}

	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"event_type",
			"provider_payment_id",
			"payload_json",
			"status",
			"error_code",
			"error_message",
			"updated_at",
		}),
	}).Create(event).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, *event.ProviderEventID).
		First(&stored).Error; err != nil {
		return err
	}
	*event = stored
	return nil
}

func (r *gormRepository) FinalizeEvent(id uint, status, errorCode, errorMessage string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_code":    errorCode,
		"error_message": errorMessage,
	}
	if status == models.WebhookStatusProcessed {
		now := time.Now()
		updates["processed_at"] = &now
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) ListEventsByStatus(status string, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	q := r.db.Where("status = ?", status).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&events).Error
	return events, err
}

func (r *gormRepository) FindActivePlan(planID string) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	err := r.db.Where("plan_id = ? AND is_active = ?", planID, true).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
