package transcription

import (
	"context"
	"errors"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"call-insights-go/internal/logger"
)

// MockTranscript is returned when no API key is configured.
const MockTranscript = "MOCK TRANSCRIPT [No API Key]: Agent: Hello, calling from Altur. " +
	"Customer: Yes, I'm interested in your premium plan. " +
	"Agent: Great! I can help you with that upgrade right now."

// FailedTranscript stands in for the transcript when the service call fails.
const FailedTranscript = "Error: Transcription failed."

// Source tells where a transcript came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceMock     Source = "mock"
	SourceFallback Source = "fallback"
)

type Result struct {
	Text   string
	Source Source
	Err    error // set when Source is SourceFallback
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client transcribes audio files with an OpenAI-compatible Whisper endpoint.
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
		log:     log.Component("transcription"),
	}
	if c.model == "" {
		c.model = openai.Whisper1
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

// Transcribe never fails: without credentials it returns MockTranscript and on
// any service error it returns FailedTranscript. No retry is attempted.
func (c *Client) Transcribe(ctx context.Context, audioPath string) Result {
	log := c.log.WithField("audio_path", audioPath)
	if c.api == nil {
		log.Info("no api key configured, returning mock transcript")
		return Result{Text: MockTranscript, Source: SourceMock}
	}

	if _, err := os.Stat(audioPath); err != nil {
		log.WithField("error", err.Error()).Warn("audio file not readable")
		return Result{Text: FailedTranscript, Source: SourceFallback, Err: err}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log = log.WithField("timeout", c.timeout.String())
		}
		log.WithField("error", err.Error()).Warn("transcription failed")
		return Result{Text: FailedTranscript, Source: SourceFallback, Err: err}
	}

	log.WithField("chars", len(resp.Text)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("transcription complete")
	return Result{Text: resp.Text, Source: SourceLive}
}
