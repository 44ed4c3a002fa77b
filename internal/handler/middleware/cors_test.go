package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newCORSApp(t *testing.T, allowOrigins string) *fiber.App {
	t.Helper()

	app := fiber.New()
	app.Use(CORSMiddleware(allowOrigins))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	return app
}

func TestCORSMiddleware_WildcardOrigin(t *testing.T) {
	// fiber panics on wildcard + credentials; the wildcard default must
	// construct and serve without credentials instead
	app := newCORSApp(t, "*")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://example.com")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard allow-origin, got %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("credentials must not be allowed with a wildcard origin, got %q", got)
	}
}

func TestCORSMiddleware_ConcreteOrigin(t *testing.T) {
	app := newCORSApp(t, "http://localhost:3000")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow-origin: %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("concrete origins must allow credentials for the refresh cookie, got %q", got)
	}
}
