package middleware

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"reply_server/pkg/apperr"
	"reply_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	localRequestID  = "request_id"
)

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// GetRequestID returns the id assigned by RequestID.
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

func newErrorResponse(c *fiber.Ctx, code, message string, details map[string]any) ErrorResponse {
	return ErrorResponse{
		Success:   false,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// ErrorHandler is a centralized error handler for Fiber.
// Wrapped causes are logged and never serialized.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := GetRequestID(c)

		var appErr *apperr.AppError
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &appErr):
			log := logger.WithField("request_id", requestID).
				WithField("error_code", appErr.Code).
				WithError(appErr.Err)
			status := appErr.HTTPStatus()
			if status >= 500 {
				log.Error("Internal error: %s", appErr.Message)
			} else {
				log.Warn("Client error: %s", appErr.Message)
			}
			return c.Status(status).JSON(newErrorResponse(c, appErr.Code, appErr.Message, appErr.Details))

		case errors.As(err, &fiberErr):
			return c.Status(fiberErr.Code).JSON(newErrorResponse(c, mapHTTPStatusToCode(fiberErr.Code), fiberErr.Message, nil))

		default:
			logger.WithField("request_id", requestID).
				WithError(err).
				WithField("stack", string(debug.Stack())).
				Error("Unexpected error: %s", err.Error())
			return c.Status(fiber.StatusInternalServerError).
				JSON(newErrorResponse(c, apperr.CodeInternalError, "An unexpected error occurred", nil))
		}
	}
}

// RequestID adds a unique request ID to each request and to its user
// context, so service logs carry the same id.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals(localRequestID, requestID)
		c.Set(HeaderRequestID, requestID)
		c.SetUserContext(logger.ContextWithRequestID(c.UserContext(), requestID))
		return c.Next()
	}
}

// RequestLogger logs incoming requests and their responses
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		if err != nil {
			// Render now so the logged status is the one the client sees.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		log := logger.WithFields(map[string]any{
			"request_id": GetRequestID(c),
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"ip":         c.IP(),
			"user_agent": c.Get(fiber.HeaderUserAgent),
		}).WithDuration(time.Since(start))

		switch {
		case status >= 500:
			log.Error("Request failed: %s %s -> %d", c.Method(), c.Path(), status)
		case status >= 400:
			log.Warn("Request error: %s %s -> %d", c.Method(), c.Path(), status)
		default:
			log.Info("Request completed: %s %s -> %d", c.Method(), c.Path(), status)
		}

		return nil
	}
}

// Recover middleware recovers from panics
func Recover() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]any{
					"request_id": GetRequestID(c),
					"panic":      fmt.Sprintf("%v", r),
					"path":       c.Path(),
					"method":     c.Method(),
					"stack":      string(debug.Stack()),
				}).Error("Panic recovered")

				err = c.Status(fiber.StatusInternalServerError).
					JSON(newErrorResponse(c, apperr.CodeInternalError, "An unexpected error occurred", nil))
			}
		}()
		return c.Next()
	}
}

func mapHTTPStatusToCode(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return apperr.CodeValidation
	case fiber.StatusNotFound:
		return apperr.CodeNotFound
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusInternalServerError:
		return apperr.CodeInternalError
	case fiber.StatusBadGateway, fiber.StatusServiceUnavailable, fiber.StatusGatewayTimeout:
		return "SERVICE_UNAVAILABLE"
	default:
		return "UNKNOWN_ERROR"
	}
}
