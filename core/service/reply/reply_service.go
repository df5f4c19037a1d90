// Package reply runs the two-stage generation pipeline: the caller's
// instructions are always optimized first, then the optimized text drives
// the reply, thread or compose prompt.
package reply

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"reply_server/core/agent/parser"
	"reply_server/core/agent/prompt"
	"reply_server/core/domain"
	"reply_server/core/port/in"
	"reply_server/core/port/out"
	"reply_server/pkg/apperr"
	"reply_server/pkg/logger"
	"reply_server/pkg/metrics"
	"reply_server/pkg/sanitize"
)

// Pipeline stages, used for metrics and error details.
const (
	StageOptimize = "optimize"
	StageGenerate = "generate"
)

// maxLoggedOutput bounds how much rejected backend output reaches the logs.
const maxLoggedOutput = 2000

var _ in.ReplyService = (*Service)(nil)

type Service struct {
	completer out.Completer
	composer  *prompt.Composer
	latency   *metrics.Registry
}

// NewService wires the pipeline. latency may be nil.
func NewService(completer out.Completer, composer *prompt.Composer, latency *metrics.Registry) *Service {
	return &Service{
		completer: completer,
		composer:  composer,
		latency:   latency,
	}
}

// GenerateReply answers a single email or the latest message of a thread.
func (s *Service) GenerateReply(ctx context.Context, req *domain.EmailRequest) (*domain.Email, error) {
	if req == nil {
		return nil, apperr.Validation("request body is required")
	}

	emailType := domain.ParseEmailType(sanitize.StripMarkup(req.EmailType))
	if emailType == "" {
		return nil, apperr.MissingField("emailType")
	}
	templateID, err := prompt.ForEmailType(emailType)
	if err != nil {
		return nil, apperr.InvalidField("emailType", "must be one of reply, thread").WithError(err)
	}

	// Instructions and body may be blank: the mail client sends "" when it
	// has nothing to pass. Optimization still runs on the empty value.
	instructions := strings.TrimSpace(sanitize.StripMarkup(req.Instructions))
	body := strings.TrimSpace(sanitize.Text(req.Body))
	subject := strings.TrimSpace(sanitize.StripMarkup(req.Subject))
	sender := strings.TrimSpace(sanitize.StripMarkup(req.Sender))

	optimized, err := s.OptimizeInstructions(ctx, instructions)
	if err != nil {
		return nil, err
	}

	return s.generate(ctx, templateID, map[string]string{
		prompt.KeyInstructions: optimized,
		prompt.KeySubject:      subject,
		prompt.KeyBody:         body,
		prompt.KeySender:       sender,
	})
}

// Compose writes a new email from instructions only.
func (s *Service) Compose(ctx context.Context, req *domain.EmailCompose) (*domain.Email, error) {
	if req == nil {
		return nil, apperr.Validation("request body is required")
	}
	if strings.TrimSpace(sanitize.StripMarkup(req.EmailType)) == "" {
		return nil, apperr.MissingField("emailType")
	}
	instructions := strings.TrimSpace(sanitize.StripMarkup(req.Instructions))
	if instructions == "" {
		return nil, apperr.MissingField("instructions")
	}

	optimized, err := s.OptimizeInstructions(ctx, instructions)
	if err != nil {
		return nil, err
	}

	return s.generate(ctx, prompt.TemplateCompose, map[string]string{
		prompt.KeyInstructions: optimized,
	})
}

// OptimizeInstructions is the first stage. Its plain-text output is
// sanitized and trimmed before it feeds the second prompt.
func (s *Service) OptimizeInstructions(ctx context.Context, instructions string) (string, error) {
	text, err := s.composer.Compose(prompt.TemplateOptimize, map[string]string{
		prompt.KeyRawInstructions: instructions,
	})
	if err != nil {
		return "", apperr.InternalWithError(err)
	}

	raw, err := s.complete(ctx, StageOptimize, text)
	if err != nil {
		return "", err
	}

	optimized := strings.TrimSpace(sanitize.StripMarkup(raw))
	if optimized == "" {
		return "", apperr.Backend(StageOptimize, errors.New("optimized instructions are empty"))
	}
	return optimized, nil
}

// generate is the second stage: render, complete, parse.
func (s *Service) generate(ctx context.Context, id prompt.TemplateID, values map[string]string) (*domain.Email, error) {
	text, err := s.composer.Compose(id, values)
	if err != nil {
		return nil, apperr.InternalWithError(err)
	}

	raw, err := s.complete(ctx, StageGenerate, text)
	if err != nil {
		return nil, err
	}

	email, err := parser.Parse(raw)
	if err != nil {
		logger.WithContext(ctx).
			WithError(err).
			WithFields(map[string]any{
				"template":   string(id),
				"raw_output": truncate(raw, maxLoggedOutput),
			}).
			Warn("backend output rejected")
		return nil, err
	}

	logger.WithContext(ctx).
		WithFields(map[string]any{"template": string(id), "subject": email.SubjectOrEmpty()}).
		Debug("email generated")
	return email, nil
}

func (s *Service) complete(ctx context.Context, stage, text string) (string, error) {
	start := time.Now()
	raw, err := s.completer.Complete(ctx, text)
	elapsed := time.Since(start)

	if s.latency != nil {
		s.latency.Record(stage, elapsed, err != nil)
	}

	if err != nil {
		logger.WithContext(ctx).WithError(err).WithDuration(elapsed).
			WithField("stage", stage).
			Error("backend call failed")
		return "", apperr.Backend(stage, err)
	}

	logger.WithContext(ctx).WithDuration(elapsed).WithField("stage", stage).Debug("backend call completed")
	return raw, nil
}

// truncate keeps at most n bytes of s without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
