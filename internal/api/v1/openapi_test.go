package apiv1

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The served contract document must stay a valid OpenAPI 3 spec and keep
// describing every route RegisterHandlers mounts.
func TestOpenAPIDocumentMatchesRoutes(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile("../../../public/docs/v1/openapi.yml")
	require.NoError(t, err)
	require.NoError(t, doc.Validate(loader.Context))

	webhook := doc.Paths.Find("/webhooks/{provider}")
	require.NotNil(t, webhook, "webhook ingest path missing from document")
	assert.NotNil(t, webhook.Post)

	payments := doc.Paths.Find("/api/v1/payments/{providerPaymentID}")
	require.NotNil(t, payments)
	assert.NotNil(t, payments.Get)

	events := doc.Paths.Find("/api/v1/webhook-events")
	require.NotNil(t, events)
	assert.NotNil(t, events.Get)

	retry := doc.Paths.Find("/api/v1/webhook-events/{id}/retry")
	require.NotNil(t, retry)
	assert.NotNil(t, retry.Post)

	// The response codes the ingest endpoint documents are the ones the
	// controller can actually produce.
	for _, code := range []string{"200", "202", "400", "401", "409", "422", "500"} {
		assert.NotNil(t, webhook.Post.Responses.Value(code), "missing documented response %s", code)
	}
}
