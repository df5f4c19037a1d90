package middleware

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"reply_server/pkg/apperr"
	"reply_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(Recover())
	app.Use(RequestID())
	app.Use(SecurityHeaders())
	app.Use(RequestLogger())
	return app
}

func decode(t *testing.T, r io.Reader) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

func TestErrorHandlerRendersAppError(t *testing.T) {
	app := newApp()
	app.Get("/fail", func(c *fiber.Ctx) error {
		return apperr.Backend("generate", errors.New("secret upstream detail"))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/fail", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.False(t, body.Success)
	assert.Equal(t, apperr.CodeBackend, body.Error.Code)
	assert.Equal(t, "generate", body.Error.Details["stage"])
	assert.NotContains(t, body.Error.Message, "secret upstream detail")
	assert.Equal(t, resp.Header.Get(HeaderRequestID), body.RequestID)
	assert.NotEmpty(t, body.Timestamp)
}

func TestErrorHandlerUnknownAndFiberErrors(t *testing.T) {
	app := newApp()
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db password is hunter2") })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	body := decode(t, resp.Body)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, apperr.CodeInternalError, body.Error.Code)
	assert.NotContains(t, body.Error.Message, "hunter2")

	resp, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	body = decode(t, resp.Body)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, apperr.CodeNotFound, body.Error.Code)
}

func TestRecover(t *testing.T) {
	app := newApp()
	app.Get("/panic", func(c *fiber.Ctx) error { panic("bad state") })

	resp, err := app.Test(httptest.NewRequest("GET", "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, apperr.CodeInternalError, decode(t, resp.Body).Error.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	app := newApp()
	var seen string
	app.Get("/id", func(c *fiber.Ctx) error {
		seen = logger.RequestIDFromContext(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/id", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(HeaderRequestID))
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, err = app.Test(httptest.NewRequest("GET", "/id", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(HeaderRequestID), 36)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name            string
		origins         []string
		wantOrigin      string
		wantCredentials string
	}{
		{name: "wildcard", origins: []string{"*"}, wantOrigin: "*"},
		{name: "empty means any", origins: nil, wantOrigin: "*"},
		{name: "explicit", origins: []string{"chrome-extension://abc", " https://mail.example.com "}, wantOrigin: "https://mail.example.com", wantCredentials: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(CORS(tt.origins))
			app.Post("/compose", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

			req := httptest.NewRequest("OPTIONS", "/compose", nil)
			req.Header.Set("Origin", "https://mail.example.com")
			req.Header.Set("Access-Control-Request-Method", "POST")
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
			assert.Equal(t, tt.wantOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredentials, resp.Header.Get("Access-Control-Allow-Credentials"))
		})
	}
}
