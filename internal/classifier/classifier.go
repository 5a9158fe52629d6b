package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/observability"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util/errorutil"
)

// maxCategoryLen matches the width of tickets.category.
const maxCategoryLen = 2000

// Classification outcomes reported to metrics.
const (
	outcomeOK            = "ok"
	outcomeUnavailable   = "unavailable"
	outcomeConfiguration = "configuration_error"
)

// Classifier picks a category for a ticket description. It keeps no state
// between calls beyond its outbound rate limiter.
type Classifier struct {
	generator TextGenerator
	limiter   *rate.Limiter
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// New builds a Gemini-backed classifier. A missing API key is not an error here:
// every Classify call then fails with a ConfigurationError so no ticket is stored
// without a category.
func New(ctx context.Context, cfg config.ClassifierConfig, logger *zap.Logger, metrics *observability.Metrics) (*Classifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("GEMINI_API_KEY not set; ticket creation will fail until it is configured")
		return NewWithGenerator(nil, cfg, logger, metrics), nil
	}

	gen, err := newGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("category classifier ready", zap.String("model", cfg.Model))
	return NewWithGenerator(gen, cfg, logger, metrics), nil
}

// NewWithGenerator builds a classifier around any TextGenerator. A nil generator
// behaves like a missing credential.
func NewWithGenerator(gen TextGenerator, cfg config.ClassifierConfig, logger *zap.Logger, metrics *observability.Metrics) *Classifier {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	return &Classifier{
		generator: gen,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		timeout:   cfg.Timeout(),
		logger:    logger,
		metrics:   metrics,
	}
}

// Classify returns the category for description given the categories already in
// use. The reply is trimmed; a reply naming a known category in different case
// is mapped onto that category. Any other non-empty reply becomes a new category.
func (c *Classifier) Classify(ctx context.Context, description string, known []string) (string, error) {
	if c.generator == nil {
		c.logger.Error("category classifier has no credential; set GEMINI_API_KEY")
		c.metrics.RecordClassification(outcomeConfiguration)
		return "", apperrors.NewConfigurationError("classifier credential GEMINI_API_KEY is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", c.unavailable(fmt.Errorf("rate limit wait: %w", err))
	}

	start := time.Now()
	raw, err := c.generator.GenerateText(ctx, buildPrompt(description, known))
	if err != nil {
		return "", c.unavailable(err)
	}

	category, err := normalizeCategory(raw, known)
	if err != nil {
		return "", c.unavailable(err)
	}

	c.metrics.RecordClassification(outcomeOK)
	c.logger.Debug("ticket classified",
		zap.String("category", category),
		zap.Int("known_categories", len(known)),
		zap.Duration("elapsed", time.Since(start)))
	return category, nil
}

func (c *Classifier) unavailable(err error) error {
	c.metrics.RecordClassification(outcomeUnavailable)
	c.logger.Warn("category classification failed", zap.Error(err))
	return apperrors.NewClassifierUnavailable(err)
}

func normalizeCategory(raw string, known []string) (string, error) {
	label := strings.TrimSpace(raw)
	if label == "" {
		return "", errors.New("classifier returned an empty category")
	}
	if utf8.RuneCountInString(label) > maxCategoryLen {
		return "", fmt.Errorf("classifier returned a category longer than %d characters", maxCategoryLen)
	}
	for _, existing := range known {
		if strings.EqualFold(existing, label) {
			return existing, nil
		}
	}
	return label, nil
}
