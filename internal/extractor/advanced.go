package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"call-insights-go/internal/logger"
	"call-insights-go/internal/types"
)

const systemPrompt = "You are a helpful AI assistant that outputs JSON."

// BuildPrompt asks for every analysis field in a single JSON object.
func BuildPrompt(transcript string) string {
	prompt := `You are an expert Sales Call Analyst. Analyze the transcript below.

Transcript:
"%s"

Your task is to extract the following structured data:
1. Summary: A concise 2-sentence summary.
2. Tags: A list of categories (e.g., "voicemail", "wrong number", "sales", "complaint", "follow-up-needed").
3. Sentiment Score: A float from -1.0 (Negative) to 1.0 (Positive).
4. Sentiment Label: "Positive", "Negative", or "Neutral".
5. Intent: What was the caller's primary goal? (e.g., "Buy product", "Get support").
6. Speaker Roles: Identify likely speakers (e.g., ["Agent", "Customer"]).
7. Key Insights: A list of 2-3 bullet points of actionable info.

Return strictly JSON.
`
	return fmt.Sprintf(prompt, transcript)
}

// DefaultAnalysis is served in mock mode and whenever the model call fails.
func DefaultAnalysis() types.Analysis {
	return types.Analysis{
		Summary:        types.Ptr("Mock summary: User wants to upgrade."),
		Tags:           []string{"sales", "positive"},
		SpeakerRoles:   []string{"Agent", "Customer"},
		SentimentScore: types.Ptr(0.8),
		SentimentLabel: types.Ptr("Positive"),
		Intent:         types.Ptr("Upgrade Purchase"),
		KeyInsights:    []string{"Customer is ready to buy", "Price is not an objection"},
	}
}

// Source tells where an analysis came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceMock     Source = "mock"
	SourceFallback Source = "fallback"
)

type Result struct {
	Analysis types.Analysis
	Source   Source
	Err      error // set when Source is SourceFallback
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client extracts structured call analysis from a transcript.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	log     *logger.Logger
}

func New(cfg Config, log *logger.Logger) *Client {
	c := &Client{
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     log.Component("extractor"),
	}
	if c.model == "" {
		c.model = openai.GPT3Dot5Turbo
	}
	if cfg.APIKey != "" {
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		c.api = openai.NewClientWithConfig(oc)
	}
	return c
}

// Analyze never fails: mock mode and every error path yield DefaultAnalysis.
// No retry is attempted.
func (c *Client) Analyze(ctx context.Context, transcript string) Result {
	if c.api == nil {
		c.log.Info("no api key configured, returning mock analysis")
		return Result{Analysis: DefaultAnalysis(), Source: SourceMock}
	}

	analysis, err := c.complete(ctx, transcript)
	if err != nil {
		c.log.WithError(err).Warn("analysis failed, using default analysis")
		return Result{Analysis: DefaultAnalysis(), Source: SourceFallback, Err: err}
	}
	return Result{Analysis: analysis, Source: SourceLive}
}

func (c *Client) complete(ctx context.Context, transcript string) (types.Analysis, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(transcript)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return types.Analysis{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return types.Analysis{}, errors.New("chat completion returned no choices")
	}

	content := extractJSON(resp.Choices[0].Message.Content)
	if content == "" {
		return types.Analysis{}, errors.New("no JSON found in model output")
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return types.Analysis{}, fmt.Errorf("decode model output: %w", err)
	}

	c.log.WithField("duration_ms", time.Since(start).Milliseconds()).
		WithField("keys", len(raw)).
		Debug("model output parsed")
	return Normalize(raw), nil
}

// extractJSON finds the first balanced JSON object in a string and returns it.
// A markdown fence wrapping the whole output is dropped first; fences inside
// string values are left alone.
func extractJSON(s string) string {
	s = trimFence(strings.ReplaceAll(s, "\r\n", "\n"))

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}

func trimFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
