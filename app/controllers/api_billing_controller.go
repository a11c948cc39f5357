package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
	"github.com/ManuelReschke/PayFox/internal/pkg/database"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// HandleGetPayment returns one payment by its provider payment id.
func HandleGetPayment(c *fiber.Ctx) error {
	providerPaymentID := strings.TrimSpace(c.Params("providerPaymentID"))
	if providerPaymentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "provider_payment_id_required"})
	}

	var payment models.Payment
	err := database.GetDB().Where("provider_payment_id = ?", providerPaymentID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "payment_not_found"})
		}
		log.Errorf("[API] payment lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(payment)
}

// HandleListWebhookEvents lists webhook events by status. The default is
// failed: that list is the retry queue operators drain.
func HandleListWebhookEvents(c *fiber.Ctx) error {
	status := strings.ToLower(strings.TrimSpace(c.Query("status", models.WebhookStatusFailed)))
	switch status {
	case models.WebhookStatusReceived, models.WebhookStatusProcessed, models.WebhookStatusFailed, models.WebhookStatusIgnored:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_status"})
	}

	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}

	events, err := billing.NewRepository(database.GetDB()).ListEventsByStatus(status, limit)
	if err != nil {
		log.Errorf("[API] webhook event listing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "listing_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"events": events, "count": len(events)})
}

// HandleRetryWebhookEvent re-runs the processing pipeline for one stored
// event. Terminal events are acknowledged without reprocessing.
func HandleRetryWebhookEvent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_event_id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	svc := billing.NewServiceFromDB(database.GetDB())
	result, err := svc.ReprocessEvent(ctx, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "event_not_found"})
		}
		log.Errorf("[API] webhook event retry failed (id=%d): %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "retry_failed"})
	}
	return respondForOutcome(c, result)
}
