package http

import (
	"strings"

	"reply_server/pkg/apperr"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// bindJSON decodes the request body into v. Decoding problems are client
// errors and are reported before any backend work starts.
func bindJSON(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return apperr.Validation("request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperr.Validation("request body must be a JSON object with the documented fields").WithError(err)
	}
	return nil
}
