package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/archive"
	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
	"github.com/ManuelReschke/PayFox/internal/pkg/database"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const webhookProcessTimeout = 15 * time.Second

// HandleBillingWebhook ingests one provider delivery. Transport-level
// rejections (empty body, bad signature, missing fields) happen here before
// anything is persisted; everything after that is the billing service's
// transactional pipeline.
func HandleBillingWebhook(c *fiber.Ctx) error {
	provider := strings.ToLower(strings.TrimSpace(c.Params("provider")))
	rawBody := append([]byte(nil), c.BodyRaw()...)

	if len(bytes.TrimSpace(rawBody)) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty_body"})
	}

	signature := firstHeaderValue(c, "X-Webhook-Signature", "X-Signature", "X-Hub-Signature-256")
	if !billing.VerifyWebhookSignature(rawBody, signature, webhookSecret(provider)) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	var payload billing.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if strings.TrimSpace(payload.EventID) == "" {
		payload.EventID = firstHeaderValue(c, "X-Webhook-Event-ID", "X-Event-ID", "X-Webhook-Delivery")
	}
	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "missing_required_fields",
			"message": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookProcessTimeout)
	defer cancel()

	svc := billing.NewServiceFromDB(database.GetDB())
	result, err := svc.ProcessWebhook(ctx, provider, &payload, rawBody)
	if err != nil {
		log.Errorf("[Billing] webhook processing failed (provider=%s event=%s): %v", provider, payload.EventID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	if env.GetEnv("ARCHIVE_ENABLED", "false") == "true" {
		if _, err := archive.Enqueue(provider, rawBody); err != nil {
			log.Warnf("[Billing] payload archive enqueue failed: %v", err)
		}
	}

	return respondForOutcome(c, result)
}

func respondForOutcome(c *fiber.Ctx, result *billing.ProcessResult) error {
	switch result.Outcome {
	case billing.OutcomeAlreadyProcessed:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	case billing.OutcomeIgnored:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	case billing.OutcomeDeferred:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true, "deferred": true, "retry": true})
	case billing.OutcomeAmountMismatch:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "amount_mismatch"})
	default:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}
}

// webhookSecret resolves the shared secret for a provider, preferring a
// provider-specific variable over the global fallback.
func webhookSecret(provider string) string {
	if provider != "" {
		key := "WEBHOOK_SECRET_" + strings.ToUpper(strings.ReplaceAll(provider, "-", "_"))
		if secret := env.GetEnv(key, ""); secret != "" {
			return secret
		}
	}
	return env.GetEnv("WEBHOOK_SECRET", "")
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		v := strings.TrimSpace(c.Get(k))
		if v != "" {
			return v
		}
	}
	return ""
}
