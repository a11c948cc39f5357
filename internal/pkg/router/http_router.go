package router

import (
	"github.com/ManuelReschke/PayFox/app/controllers"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Provider webhooks: no CSRF, no rate limit (providers retry on 429 and
	// the pipeline is idempotent anyway); authenticity is the HMAC signature
	// checked in the controller.
	app.Post("/webhooks/:provider", controllers.HandleBillingWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
