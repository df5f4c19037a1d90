package http

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"reply_server/core/agent/prompt"
	"reply_server/core/service/reply"
	"reply_server/infra/middleware"
	"reply_server/pkg/metrics"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedBackend struct {
	mu      sync.Mutex
	outputs []string
	err     error
	calls   int
	pingErr error
}

func (b *scriptedBackend) Complete(context.Context, string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.calls
	b.calls++
	if b.err != nil {
		return "", b.err
	}
	if i >= len(b.outputs) {
		return "", errors.New("no scripted output")
	}
	return b.outputs[i], nil
}

func (b *scriptedBackend) Ping(context.Context) error { return b.pingErr }

func newTestApp(t *testing.T, backend *scriptedBackend) *fiber.App {
	t.Helper()
	composer, err := prompt.NewComposer()
	require.NoError(t, err)
	registry := metrics.NewRegistry(16)

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())

	NewHealthHandler(backend, registry).Register(app)
	NewReplyHandler(reply.NewService(backend, composer, registry)).Register(app)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out), "body: %s", data)
	return resp.StatusCode, out
}

func TestComposeEndpoint(t *testing.T) {
	backend := &scriptedBackend{outputs: []string{
		"Write an email requesting a meeting next week.",
		`{"subject":"Meeting Request","body":"Could we meet next week?","sender":null}`,
	}}
	app := newTestApp(t, backend)

	status, body := do(t, app, "POST", "/compose", `{"emailType":"compose","instructions":"ask for a meeting next week"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{
		"reply": map[string]any{
			"subject": "Meeting Request",
			"body":    "Could we meet next week?",
			"sender":  nil,
		},
	}, body)
}

func TestGenerateReplyEndpoint(t *testing.T) {
	backend := &scriptedBackend{outputs: []string{
		"Thank the sender.",
		"```json\n{\"subject\":\"Re: Demo\",\"body\":{\"text\":\"Thanks\"},\"sender\":\"a@b.com\"}\n```",
	}}
	app := newTestApp(t, backend)

	status, body := do(t, app, "POST", "/generate-reply",
		`{"emailType":"reply","instructions":"thank them","subject":"Demo","body":"<p>See the demo</p>","sender":""}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{
		"subject": "Re: Demo",
		"body":    "Thanks",
		"sender":  "a@b.com",
	}, body["reply"])
}

func TestGenerateReplyWithoutInstructionsOrBody(t *testing.T) {
	backend := &scriptedBackend{outputs: []string{
		"Write a polite reply.",
		`{"subject":"Re: Demo","body":"Thank you.","sender":null}`,
	}}
	app := newTestApp(t, backend)

	status, body := do(t, app, "POST", "/generate-reply",
		`{"emailType":"reply","subject":"Demo","body":"","sender":""}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Thank you.", body["reply"].(map[string]any)["body"])
	assert.Equal(t, 2, backend.calls)
}

func TestEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		backend    *scriptedBackend
		path       string
		body       string
		wantStatus int
		wantCode   string
		wantCalls  int
	}{
		{
			name:       "malformed JSON",
			backend:    &scriptedBackend{},
			path:       "/compose",
			body:       `{"emailType":`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "empty body",
			backend:    &scriptedBackend{},
			path:       "/generate-reply",
			body:       ``,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "wrong field type",
			backend:    &scriptedBackend{},
			path:       "/generate-reply",
			body:       `{"emailType":7,"instructions":"x","body":"y"}`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "unknown email type",
			backend:    &scriptedBackend{},
			path:       "/generate-reply",
			body:       `{"emailType":"forward","instructions":"x","body":"y"}`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "compose without instructions",
			backend:    &scriptedBackend{},
			path:       "/compose",
			body:       `{"emailType":"new"}`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "backend down",
			backend:    &scriptedBackend{err: errors.New("dial tcp: connection refused")},
			path:       "/compose",
			body:       `{"emailType":"new","instructions":"x"}`,
			wantStatus: fiber.StatusBadGateway,
			wantCode:   "BACKEND_ERROR",
			wantCalls:  1,
		},
		{
			name:       "non JSON output",
			backend:    &scriptedBackend{outputs: []string{"ok", "Sorry, I can't write that email."}},
			path:       "/compose",
			body:       `{"emailType":"new","instructions":"x"}`,
			wantStatus: fiber.StatusInternalServerError,
			wantCode:   "PARSE_ERROR",
			wantCalls:  2,
		},
		{
			name:       "schema violation",
			backend:    &scriptedBackend{outputs: []string{"ok", `{"subject":"x","body":""}`}},
			path:       "/compose",
			body:       `{"emailType":"new","instructions":"x"}`,
			wantStatus: fiber.StatusInternalServerError,
			wantCode:   "SCHEMA_ERROR",
			wantCalls:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, tt.backend)
			status, body := do(t, app, "POST", tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["request_id"])
			errBody, ok := body["error"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, errBody["code"])
			assert.Equal(t, tt.wantCalls, tt.backend.calls)

			raw, _ := json.Marshal(body)
			assert.NotContains(t, string(raw), "Sorry, I can't")
			assert.NotContains(t, string(raw), "connection refused")
		})
	}
}

func TestHealthIgnoresBackend(t *testing.T) {
	backend := &scriptedBackend{err: errors.New("down"), pingErr: errors.New("down")}
	app := newTestApp(t, backend)

	status, body := do(t, app, "GET", "/health", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{"status": "healthy", "message": HealthMessage}, body)
	assert.Zero(t, backend.calls)
}

func TestReady(t *testing.T) {
	t.Run("backend reachable", func(t *testing.T) {
		app := newTestApp(t, &scriptedBackend{})
		status, body := do(t, app, "GET", "/ready", "")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "ready", body["status"])
		assert.Contains(t, body, "latency")
	})

	t.Run("backend unreachable", func(t *testing.T) {
		app := newTestApp(t, &scriptedBackend{pingErr: errors.New("dial tcp 10.0.0.7:11434: connection refused")})
		status, body := do(t, app, "GET", "/ready", "")
		assert.Equal(t, fiber.StatusServiceUnavailable, status)
		assert.Equal(t, "not ready", body["status"])
		assert.Equal(t, map[string]any{"backend": "unhealthy"}, body["checks"])

		raw, _ := json.Marshal(body)
		assert.NotContains(t, string(raw), "10.0.0.7")
	})
}
