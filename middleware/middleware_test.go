package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestGatewayAuthMiddleware(t *testing.T) {
	t.Setenv("GAME_SERVICE_TOKEN", "service-secret")

	app := fiber.New()
	app.Use(GatewayAuthMiddleware())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("ok") })

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong token", "Bearer wrong", fiber.StatusUnauthorized},
		{"bearer token", "Bearer service-secret", fiber.StatusOK},
		{"raw token", "service-secret", fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ping", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("expected status %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestUserContextMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(UserContextMiddleware())
	app.Get("/read", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/write", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})

	// Reads pass without an identity.
	resp, err := app.Test(httptest.NewRequest("GET", "/read", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected GET without X-User-ID to pass, got %d", resp.StatusCode)
	}

	// Writes without an identity are rejected.
	resp, err = app.Test(httptest.NewRequest("POST", "/write", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected POST without X-User-ID to be rejected, got %d", resp.StatusCode)
	}

	// Writes with an identity pass and expose it via locals.
	req := httptest.NewRequest("POST", "/write", nil)
	req.Header.Set("X-User-ID", "alice")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected POST with X-User-ID to pass, got %d", resp.StatusCode)
	}
}
