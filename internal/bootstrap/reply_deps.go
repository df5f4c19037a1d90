package bootstrap

import (
	"reply_server/config"
	"reply_server/core/agent/llm"
	"reply_server/core/agent/prompt"
	"reply_server/core/port/in"
	"reply_server/core/service/reply"
	"reply_server/pkg/logger"
	"reply_server/pkg/metrics"
	"reply_server/pkg/resilience"
)

// latencyWindow is the number of samples kept per pipeline stage.
const latencyWindow = 1000

// Dependencies is built once at startup; everything in it is read-only
// afterwards and shared by all requests.
type Dependencies struct {
	Config *config.Config

	LLMClient *llm.Client
	Breaker   *resilience.Breaker
	Latency   *metrics.Registry
	Composer  *prompt.Composer

	ReplyService in.ReplyService
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}

	composer, err := prompt.NewComposer()
	if err != nil {
		return nil, nil, err
	}
	deps.Composer = composer

	deps.Breaker = resilience.NewBreaker(resilience.BreakerConfig{
		Name:             "llm",
		FailureThreshold: uint32(cfg.LLMBreakerFailures),
		Cooldown:         cfg.LLMBreakerCooldown(),
	})

	deps.LLMClient = llm.NewClient(llm.ClientConfig{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout(),
		Breaker:     deps.Breaker,
	})
	logger.WithFields(map[string]any{
		"base_url":    cfg.LLMBaseURL,
		"model":       deps.LLMClient.Model(),
		"temperature": deps.LLMClient.Temperature(),
	}).Info("LLM client initialized")

	deps.Latency = metrics.NewRegistry(latencyWindow)
	deps.ReplyService = reply.NewService(deps.LLMClient, composer, deps.Latency)

	cleanup := func() {
		logger.Info("Dependencies released")
	}
	return deps, cleanup, nil
}
