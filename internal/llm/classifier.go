package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Fr3nn3r/deckung/internal/audit"
	"github.com/Fr3nn3r/deckung/internal/model"
)

const classifierMaxRetriesDefault = 3

// classifierSleepFunc is the sleep function used between retries (injectable for tests)
var classifierSleepFunc = time.Sleep

// ItemVerdict is the parsed per-item classification
type ItemVerdict struct {
	Status     string  `json:"status"`
	Component  string  `json:"component"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// PrimaryVerdict is the parsed primary-repair arbitration
type PrimaryVerdict struct {
	Component  string  `json:"component"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// AssociationVerdict is one re-evaluated denied part
type AssociationVerdict struct {
	Index      int     `json:"index"`
	Covered    bool    `json:"covered"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type associationResponse struct {
	Items []AssociationVerdict `json:"items"`
}

// Classifier wraps a Provider with retries, rate limiting, JSON parsing and
// audit recording. It is the only path to the model: every call is recorded
// synchronously with its correlation id and token counts.
type Classifier struct {
	provider   Provider
	recorder   audit.Recorder
	limiter    *rate.Limiter
	logger     *zap.Logger
	maxRetries int
}

// NewClassifier creates a classifier over the given provider. A nil provider
// yields a disabled classifier; callers check Enabled() before use.
func NewClassifier(provider Provider, recorder audit.Recorder, cfg model.LLMConfig, logger *zap.Logger) *Classifier {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = classifierMaxRetriesDefault
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 5
	}

	return &Classifier{
		provider:   provider,
		recorder:   recorder,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Enabled reports whether a provider is configured
func (c *Classifier) Enabled() bool {
	return c != nil && c.provider != nil
}

// ProviderName returns the backing provider's name, or "" when disabled
func (c *Classifier) ProviderName() string {
	if !c.Enabled() {
		return ""
	}
	return c.provider.Name()
}

// ClassifyItem classifies one unresolved line item
func (c *Classifier) ClassifyItem(ctx context.Context, item model.LineItem, coveredComponents map[string][]string, coveredSiblings []string) (*ItemVerdict, error) {
	prompt := BuildClassifyPrompt(item, coveredComponents, coveredSiblings)

	var verdict ItemVerdict
	if err := c.completeJSON(ctx, "classify_item", prompt, &verdict); err != nil {
		return nil, err
	}

	verdict.Status = strings.ToUpper(strings.TrimSpace(verdict.Status))
	if verdict.Status != string(model.StatusCovered) && verdict.Status != string(model.StatusNotCovered) {
		return nil, fmt.Errorf("model returned unknown status %q", verdict.Status)
	}
	return &verdict, nil
}

// IdentifyPrimaryRepair asks the model for the claim's primary repair
func (c *Classifier) IdentifyPrimaryRepair(ctx context.Context, items []model.LineItem, coveredComponents map[string][]string) (*PrimaryVerdict, error) {
	prompt := BuildPrimaryRepairPrompt(items, coveredComponents)

	var verdict PrimaryVerdict
	if err := c.completeJSON(ctx, "primary_repair", prompt, &verdict); err != nil {
		return nil, err
	}
	if verdict.Component == "" {
		return nil, fmt.Errorf("model returned empty component")
	}
	return &verdict, nil
}

// ReviewAssociations re-evaluates denied parts against the primary repair
func (c *Classifier) ReviewAssociations(ctx context.Context, denied []model.LineItem, primary model.PrimaryRepairResult, all []model.LineItem) ([]AssociationVerdict, error) {
	prompt := BuildAssociationPrompt(denied, primary, all)

	var resp associationResponse
	if err := c.completeJSON(ctx, "association_review", prompt, &resp); err != nil {
		return nil, err
	}
	for _, v := range resp.Items {
		if v.Index < 0 || v.Index >= len(denied) {
			return nil, fmt.Errorf("model returned out-of-range index %d", v.Index)
		}
	}
	return resp.Items, nil
}

// completeJSON performs the call with retries, parses the JSON payload into
// out, and records every attempt to the audit sink.
func (c *Classifier) completeJSON(ctx context.Context, operation, prompt string, out interface{}) error {
	if !c.Enabled() {
		return fmt.Errorf("llm provider not configured")
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		// Each attempt gets its own correlation id so audit records map
		// one-to-one onto outbound calls.
		correlationID := audit.NewCorrelationID()

		resp, err := c.provider.Complete(ctx, CompletionRequest{
			System:    classifySystem,
			Prompt:    prompt,
			ForceJSON: true,
		})

		rec := audit.Record{
			CorrelationID: correlationID,
			Operation:     operation,
		}
		if resp != nil {
			rec.Model = resp.Model
			rec.Response = resp.Content
			rec.PromptTokens = resp.PromptTokens
			rec.CompletionTokens = resp.CompletionTokens
			rec.TotalTokens = resp.TotalTokens
		}
		rec.Prompt = prompt
		if err != nil {
			rec.Err = err.Error()
		}
		c.recorder.Record(rec)

		if err == nil {
			if parseErr := json.Unmarshal([]byte(extractJSON(resp.Content)), out); parseErr == nil {
				return nil
			} else {
				err = fmt.Errorf("parse model response: %w", parseErr)
			}
		}

		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < c.maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			c.logger.Warn("llm call failed, retrying",
				zap.String("operation", operation),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			classifierSleepFunc(backoff)
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", operation, c.maxRetries, lastErr)
}

// extractJSON trims markdown fences some models wrap around JSON output
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	// Fall back to the outermost braces if the model added prose
	if !strings.HasPrefix(s, "{") {
		if start := strings.Index(s, "{"); start >= 0 {
			if end := strings.LastIndex(s, "}"); end > start {
				s = s[start : end+1]
			}
		}
	}
	return s
}
