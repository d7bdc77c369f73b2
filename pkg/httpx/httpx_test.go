package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/crud-services/pkg/config"
	"github.com/sakashimaa/crud-services/pkg/metrics"
	"github.com/sakashimaa/crud-services/pkg/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type createInput struct {
	Title *string `json:"title" validate:"required"`
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))

	return out
}

func newTestApp(limits config.Limiter) *fiber.App {
	app := NewApp("test", limits, zap.NewNop())
	validate := utils.NewValidator()

	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, ok := ParseID(c, "id")
		if !ok {
			return Detail(c, fiber.StatusBadRequest, "invalid id")
		}
		return c.JSON(fiber.Map{"id": id})
	})

	app.Post("/items", func(c *fiber.Ctx) error {
		var input createInput
		if ok, err := BindJSON(c, validate, &input); !ok {
			return err
		}
		return c.JSON(fiber.Map{"title": *input.Title})
	})

	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("database exploded")
	})

	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("unexpected")
	})

	return app
}

func TestHealth(t *testing.T) {
	app := newTestApp(config.Limiter{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decodeBody(t, resp)["status"])
	require.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestParseID(t *testing.T) {
	app := newTestApp(config.Limiter{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/17", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(17), decodeBody(t, resp)["id"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/items/abc", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid id", decodeBody(t, resp)["detail"])
}

func TestBindJSON(t *testing.T) {
	app := newTestApp(config.Limiter{})

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "valid", body: `{"title":"Buy milk"}`, status: http.StatusOK},
		{name: "malformed", body: `{"title":`, status: http.StatusBadRequest},
		{name: "missing required", body: `{}`, status: http.StatusUnprocessableEntity},
		{name: "wrong type", body: `{"title":5}`, status: http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(tc.body))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestBindJSON_ValidationDetail(t *testing.T) {
	app := newTestApp(config.Limiter{})

	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	detail := decodeBody(t, resp)["detail"].(map[string]any)
	require.Equal(t, "title is required", detail["title"])
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	app := newTestApp(config.Limiter{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "internal server error", decodeBody(t, resp)["detail"])
}

func TestRecover(t *testing.T) {
	app := newTestApp(config.Limiter{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(config.Limiter{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLimiter(t *testing.T) {
	app := newTestApp(config.Limiter{Max: 2, Expiration: time.Minute})
	app.Get("/limited", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil), -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestLimiter_HealthIsExempt(t *testing.T) {
	app := newTestApp(config.Limiter{Max: 1, Expiration: time.Minute})

	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestWithMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	app := NewApp("test", config.Limiter{}, zap.NewNop(), WithMetrics(metrics.NewHTTPMetrics(reg, "test")))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "http_requests_total" {
			found = true
			require.Len(t, f.GetMetric(), 1)
			require.Equal(t, float64(1), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	require.True(t, found)
}
