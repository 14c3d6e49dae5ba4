package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	infraPrometheus "github.com/sifan077/shortlink/internal/infra/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name string
		xff  string
		want string
	}{
		{name: "socket address", want: "0.0.0.0"},
		{name: "single forwarded", xff: "198.51.100.2", want: "198.51.100.2"},
		{name: "first of chain", xff: " 203.0.113.9 , 10.0.0.1", want: "203.0.113.9"},
		{name: "empty first entry", xff: " , 10.0.0.1", want: "0.0.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return c.SendString(ClientIP(c)) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.xff != "" {
				req.Header.Set(fiber.HeaderXForwardedFor, tt.xff)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			body := make([]byte, 64)
			n, _ := resp.Body.Read(body)
			if got := string(body[:n]); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetRequestID(c)) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "caller-id")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if got := resp.Header.Get(RequestIDHeader); got != "caller-id" {
		t.Fatalf("expected caller id to be kept, got %q", got)
	}
}

func TestRecoveryAndLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	app := fiber.New()
	app.Use(RequestID())
	app.Use(Logger(logger))
	app.Use(Recovery(logger))
	app.Get("/panic", func(c *fiber.Ctx) error { panic("boom") })
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatal("expected panic to be logged")
	}
	if entries := logs.FilterMessage("request").FilterField(zap.Int("status", 500)).All(); len(entries) != 1 || entries[0].Level != zap.ErrorLevel {
		t.Fatalf("expected one error-level access log for 500, got %v", entries)
	}

	if _, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil)); err != nil {
		t.Fatalf("request: %v", err)
	}
	if logs.FilterMessage("request").FilterField(zap.Int("status", 204)).Len() != 1 {
		t.Fatal("expected access log for 204")
	}
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS("https://app.example.com"))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://app.example.com")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get(fiber.HeaderAccessControlAllowOrigin); got != "https://app.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://evil.example.com")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if got := resp.Header.Get(fiber.HeaderAccessControlAllowOrigin); got != "" {
		t.Fatalf("expected no allow origin for unknown origin, got %q", got)
	}
}

func TestMetrics(t *testing.T) {
	metrics := infraPrometheus.NewMetrics(prometheus.NewRegistry())

	app := fiber.New()
	app.Use(Metrics(metrics))
	app.Get("/:slug", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusFound) })

	for _, path := range []string{"/aaa", "/bbb"} {
		if _, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil)); err != nil {
			t.Fatalf("request: %v", err)
		}
	}

	if n := testutil.CollectAndCount(metrics.RequestDuration); n != 1 {
		t.Fatalf("expected one series for the slug route, got %d", n)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics(nil))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	if _, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil)); err != nil {
		t.Fatalf("request: %v", err)
	}
}
