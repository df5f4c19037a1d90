package bootstrap

import (
	"reply_server/adapter/in/http"
	"reply_server/config"
	"reply_server/infra/middleware"
	"reply_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Service: "reply-server",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := NewApp(cfg, deps)
	return app, cleanup, nil
}

// NewApp builds the fiber application from ready dependencies.
func NewApp(cfg *config.Config, deps *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit:          cfg.BodyLimit(),
		ServerHeader:       "",
		DisableDefaultDate: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(middleware.CORS(cfg.AllowedOrigins))

	http.NewHealthHandler(deps.LLMClient, deps.Latency).Register(app)
	http.NewReplyHandler(deps.ReplyService).Register(app)

	return app
}
