package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func newApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(New(cfg))
	app.Get("/ledger/stats", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", func(c *fiber.Ctx) error { return c.SendString("metrics") })
	return app
}

func TestAuth(t *testing.T) {
	app := newApp(Config{ApiKey: "secret", Skip: []string{"/metrics"}})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing key", "/ledger/stats", "", fiber.StatusUnauthorized},
		{"wrong key", "/ledger/stats", "nope", fiber.StatusUnauthorized},
		{"valid key", "/ledger/stats", "secret", fiber.StatusOK},
		{"query key", "/ledger/stats?api_key=secret", "", fiber.StatusOK},
		{"skipped path", "/metrics", "", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set(HeaderName, tt.header)
			}
			resp, err := app.Test(req)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuth_Disabled(t *testing.T) {
	app := newApp(Config{})
	resp, err := app.Test(httptest.NewRequest("GET", "/ledger/stats", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
