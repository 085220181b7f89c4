package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_CountsRenderedStatus(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusConflict).SendString(err.Error())
		},
	})
	app.Use(Middleware())
	app.Get("/metrics-test/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "bad" {
			return fiber.ErrTeapot
		}
		return c.SendStatus(fiber.StatusOK)
	})

	okBefore := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/metrics-test/:id", "200"))
	errBefore := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/metrics-test/:id", "409"))

	for _, path := range []string{"/metrics-test/1", "/metrics-test/2", "/metrics-test/bad"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	assert.Equal(t, okBefore+2, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/metrics-test/:id", "200")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/metrics-test/:id", "409")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	PurchasesRemoved.Inc()

	app := fiber.New()
	app.Get("/metrics", Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "purchases_removed_total"))
}
