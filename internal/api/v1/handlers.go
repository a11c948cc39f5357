package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to controllers so API and operator tooling share one behavior.
	"github.com/ManuelReschke/PayFox/app/controllers"
)

// APIServer implements the v1 admin API surface.
type APIServer struct{}

// NewAPIServer creates a new API server instance.
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint.
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// GetPayment returns a payment by provider payment id.
func (s *APIServer) GetPayment(c *fiber.Ctx) error {
	return controllers.HandleGetPayment(c)
}

// ListWebhookEvents lists webhook events, defaulting to the failed queue.
func (s *APIServer) ListWebhookEvents(c *fiber.Ctx) error {
	return controllers.HandleListWebhookEvents(c)
}

// RetryWebhookEvent reprocesses one stored webhook event.
func (s *APIServer) RetryWebhookEvent(c *fiber.Ctx) error {
	return controllers.HandleRetryWebhookEvent(c)
}

// Pong is the ping response body.
type Pong struct {
	Ping string `json:"ping"`
}

// RegisterHandlers attaches the v1 routes to the given router group.
func RegisterHandlers(r fiber.Router, s *APIServer) {
	r.Get("/ping", s.GetPing)
	r.Get("/payments/:providerPaymentID", s.GetPayment)
	r.Get("/webhook-events", s.ListWebhookEvents)
	r.Post("/webhook-events/:id/retry", s.RetryWebhookEvent)
}
