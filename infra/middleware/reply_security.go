package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// SecurityHeaders adds security headers to all responses
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Set("Server", "")
		return c.Next()
	}
}

// CORS allows the browser extension to call the API. Credentials are only
// allowed when the origins are listed explicitly.
func CORS(origins []string) fiber.Handler {
	allowed := make([]string, 0, len(origins))
	wildcard := len(origins) == 0
	for _, o := range origins {
		o = strings.TrimSpace(o)
		switch o {
		case "":
		case "*":
			wildcard = true
		default:
			allowed = append(allowed, o)
		}
	}

	cfg := cors.Config{
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization," + HeaderRequestID,
		ExposeHeaders: HeaderRequestID,
		MaxAge:        3600,
	}
	if wildcard || len(allowed) == 0 {
		cfg.AllowOrigins = "*"
	} else {
		cfg.AllowOrigins = strings.Join(allowed, ",")
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
