// Package llm is a small client for an OpenAI-compatible chat completions gateway.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/metrics"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Config configures the gateway client
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	RatePerSecond float64
}

// Message is a single chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Client calls the gateway behind a rate limiter and a circuit breaker
type Client struct {
	apiKey  string
	model   string
	client  *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
}

// NewClient creates a gateway client. A client without an API key is valid
// but disabled: every call returns ErrDisabled.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ratePerSecond := cfg.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}

	c := &Client{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		client: resty.New().
			SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond)+1),
	}

	c.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "llm-gateway",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Only gateway-side trouble should trip the breaker
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("LLM circuit breaker changed state")
		},
	})

	return c
}

// IsEnabled reports whether the gateway key is configured
func (c *Client) IsEnabled() bool {
	return c != nil && c.apiKey != ""
}

// Complete sends a system + user prompt and returns the assistant text
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.IsEnabled() {
		return "", ErrDisabled
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	content, err := c.breaker.Execute(func() (string, error) {
		return c.send(ctx, system, user)
	})
	metrics.LLMRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.LLMRequests.WithLabelValues("error").Inc()
		return "", err
	}

	metrics.LLMRequests.WithLabelValues("success").Inc()
	return content, nil
}

func (c *Client) send(ctx context.Context, system, user string) (string, error) {
	var result chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []Message{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			Temperature: 0,
		}).
		SetResult(&result).
		Post("/chat/completions")

	if err != nil {
		return "", NewTransientError(fmt.Errorf("llm request failed: %w", err))
	}

	if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500 {
		return "", NewTransientError(fmt.Errorf("llm gateway returned status %d", resp.StatusCode()))
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("llm gateway returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	if len(result.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return result.Choices[0].Message.Content, nil
}
