// Package inference turns a system and user prompt into one short line of
// coaching text through an OpenAI-compatible chat model.
package inference

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/okian/clutch/pkg/logger"
	"github.com/okian/clutch/pkg/metrics"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Generator is the part of llms.Model the client needs.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Client calls a Generator under a per-call timeout and a request budget.
type Client struct {
	gen     Generator
	cfg     Config
	limiter *rate.Limiter
	logger  logger.Logger
}

// New wraps gen.
func New(gen Generator, opts ...Option) *Client {
	c := &Client{
		gen:    gen,
		cfg:    DefaultConfig(),
		logger: logger.Get().Named("inference"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.limiter = rate.NewLimiter(rate.Limit(c.cfg.RequestsPerMinute/60), c.cfg.Burst)
	return c
}

// NewOpenAI builds a Client backed by an OpenAI-compatible endpoint.
func NewOpenAI(cfg Config, opts ...Option) (*Client, error) {
	merged := merge(cfg)
	llmOpts := []openai.Option{
		openai.WithToken(merged.APIKey),
		openai.WithModel(merged.Model),
	}
	if merged.BaseURL != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(merged.BaseURL))
	}
	llm, err := openai.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference provider: %w", err)
	}
	return New(llm, append([]Option{WithConfig(cfg)}, opts...)...), nil
}

// Invoke sends one prompt pair and returns the cleaned response text.
func (c *Client) Invoke(ctx context.Context, system, user string, call CallConfig) (string, error) {
	if !c.limiter.Allow() {
		metrics.RecordInferenceError("budget")
		return "", fmt.Errorf("%w: local request budget exhausted", ErrThrottled)
	}

	maxTokens := call.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	temperature := call.Temperature
	if temperature <= 0 {
		temperature = c.cfg.Temperature
	}
	maxLength := call.MaxLength
	if maxLength <= 0 {
		maxLength = c.cfg.MaxLength
	}

	var messages []llms.MessageContent
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, user))

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.gen.GenerateContent(callCtx, messages,
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(temperature),
	)
	metrics.RecordInferenceLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		kind, wrapped := classify(err)
		metrics.RecordInferenceError(kind)
		c.logger.Warn(ctx, "inference call failed", logger.String("kind", kind), logger.Error(err))
		return "", wrapped
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		metrics.RecordInferenceError("empty")
		return "", ErrEmptyResponse
	}
	text := Clean(resp.Choices[0].Content, maxLength)
	if text == "" {
		metrics.RecordInferenceError("empty")
		return "", ErrEmptyResponse
	}
	return text, nil
}

var throttleMarkers = []string{
	"429", "rate limit", "rate_limit", "ratelimit", "too many requests",
	"throttl", "quota", "resource_exhausted", "resource exhausted",
}

func classify(err error) (string, error) {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled", fmt.Errorf("%w: %w", ErrProvider, err)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", fmt.Errorf("%w: %w", ErrProvider, err)
	}
	msg := strings.ToLower(err.Error())
	for _, m := range throttleMarkers {
		if strings.Contains(msg, m) {
			return "throttled", fmt.Errorf("%w: %w", ErrThrottled, err)
		}
	}
	return "provider", fmt.Errorf("%w: %w", ErrProvider, err)
}

var (
	speakerPrefix = regexp.MustCompile(`(?i)^(coach|ai|response|assistant)\s*:\s*`)
	bold          = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italic        = regexp.MustCompile(`\*(.*?)\*`)
	code          = regexp.MustCompile("`(.*?)`")
	whitespace    = regexp.MustCompile(`\s+`)
)

// Clean trims the text, strips a leading speaker label and inline markdown,
// collapses whitespace and truncates to maxLength runes with an ellipsis.
func Clean(text string, maxLength int) string {
	out := strings.TrimSpace(text)
	out = speakerPrefix.ReplaceAllString(out, "")
	out = bold.ReplaceAllString(out, "$1")
	out = italic.ReplaceAllString(out, "$1")
	out = code.ReplaceAllString(out, "$1")
	out = strings.TrimSpace(whitespace.ReplaceAllString(out, " "))

	if maxLength > 3 && utf8.RuneCountInString(out) > maxLength {
		r := []rune(out)
		out = strings.TrimSpace(string(r[:maxLength-3])) + "..."
	}
	return out
}
