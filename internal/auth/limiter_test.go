package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginLimiter_Allow(t *testing.T) {
	l := NewLoginLimiter(3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1"), "attempt %d", i+1)
	}
	assert.False(t, l.Allow("10.0.0.1"))

	// other clients have their own budget
	assert.True(t, l.Allow("10.0.0.2"))
}

func TestLoginLimiter_SweepsIdleEntries(t *testing.T) {
	l := NewLoginLimiter(3)
	l.Allow("old")
	l.limiters["old"].lastAccess = time.Now().Add(-2 * limiterIdleTTL)

	l.Allow("new")

	_, ok := l.limiters["old"]
	assert.False(t, ok)
	assert.Len(t, l.limiters, 1)
}

func TestLoginLimiter_Middleware(t *testing.T) {
	app := fiber.New()
	app.Post("/login", NewLoginLimiter(1).Middleware(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
