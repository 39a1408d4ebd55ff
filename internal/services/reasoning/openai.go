package reasoning

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"SignalSmith/internal/domain/models"
	domsvc "SignalSmith/internal/domain/service"
	applogger "SignalSmith/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ChatCompleter is the part of *openai.Client the reasoner uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds reasoner settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	MaxElapsed  time.Duration
	RPS         float64
}

// OpenAIReasoner asks a chat completion model for a JSON signal proposal.
type OpenAIReasoner struct {
	client  ChatCompleter
	cfg     Config
	limiter *rate.Limiter
	log     *applogger.Logger
}

// NewOpenAIClient builds the go-openai client from cfg.
func NewOpenAIClient(cfg Config) *openai.Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(oc)
}

func NewOpenAIReasoner(client ChatCompleter, cfg Config, log *applogger.Logger) *OpenAIReasoner {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	r := &OpenAIReasoner{client: client, cfg: cfg, log: log}
	if cfg.RPS > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return r
}

func (r *OpenAIReasoner) Name() string { return "openai:" + r.cfg.Model }

// Reason sends the bundle and headlines and parses the model's JSON answer.
// Rate limits and server errors are retried with exponential backoff; malformed answers are not.
func (r *OpenAIReasoner) Reason(ctx context.Context, req models.ReasoningRequest) (models.Proposal, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserPrompt(req)},
		},
	}

	var (
		proposal models.Proposal
		attempt  int
	)
	op := func() error {
		attempt++
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()

		resp, err := r.client.CreateChatCompletion(callCtx, chatReq)
		if err != nil {
			r.log.Warn("reasoning call failed",
				applogger.String("symbol", req.Symbol),
				applogger.Int("attempt", attempt),
				applogger.Error(err),
			)
			if !retryable(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("reasoning service returned no choices")
		}
		p, err := ParseProposal(resp.Choices[0].Message.Content)
		if err != nil {
			return backoff.Permanent(err)
		}
		proposal = p
		r.log.Debug("reasoning completed",
			applogger.String("symbol", req.Symbol),
			applogger.String("direction", string(p.Direction)),
			applogger.Int("prompt_tokens", resp.Usage.PromptTokens),
			applogger.Int("completion_tokens", resp.Usage.CompletionTokens),
		)
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = 500 * time.Millisecond
	strategy.MaxElapsedTime = r.cfg.MaxElapsed
	if strategy.MaxElapsedTime <= 0 {
		strategy.MaxElapsedTime = 2 * r.cfg.Timeout
	}

	if err := backoff.Retry(op, backoff.WithContext(strategy, ctx)); err != nil {
		return models.Proposal{}, fmt.Errorf("reasoning for %s: %w", req.Symbol, err)
	}
	return proposal, nil
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled)
}

var _ domsvc.Reasoner = (*OpenAIReasoner)(nil)
