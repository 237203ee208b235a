package rater

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/MedAnkiGer/scid-interview-service/prompts"
)

// Config contains scoring service client configuration
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// ClientStats represents scoring client statistics
type ClientStats struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	FailedRequests  uint64  `json:"failed_requests"`
	SuccessRate     float64 `json:"success_rate"`
}

// Client submits transcripts to the scoring service and returns the raw
// response text. Parsing and repair of that text belong to Normalize.
type Client struct {
	config Config
	api    *anthropic.Client

	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64

	mu sync.RWMutex
}

// NewClient creates a new scoring service client
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	if config.Model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}

	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}

	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	client := anthropic.NewClient(option.WithAPIKey(config.APIKey))

	return &Client{
		config: config,
		api:    &client,
	}, nil
}

// Evaluate submits a transcript with its criterion context and returns the
// raw response text from the scoring service.
func (c *Client) Evaluate(ctx context.Context, transcript, criterionDescription, followupQuestion, language string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	c.mu.Lock()
	c.totalRequests++
	c.mu.Unlock()

	userMessage := buildUserMessage(transcript, criterionDescription, followupQuestion, language)

	message, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.Model),
		MaxTokens:   int64(c.config.MaxTokens),
		Temperature: anthropic.Float(0),
		System: []anthropic.TextBlockParam{
			{Text: prompts.RaterSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	})
	if err != nil {
		c.mu.Lock()
		c.failedRequests++
		c.mu.Unlock()
		return "", fmt.Errorf("scoring request failed: %w", err)
	}

	text, err := extractText(message)
	if err != nil {
		c.mu.Lock()
		c.failedRequests++
		c.mu.Unlock()
		return "", err
	}

	c.mu.Lock()
	c.successRequests++
	c.mu.Unlock()
	return text, nil
}

// EvaluateWithClarification re-scores a criterion with the original and
// clarification transcripts combined under clear delimiters.
func (c *Client) EvaluateWithClarification(ctx context.Context, originalTranscript, clarificationTranscript, criterionDescription, followupQuestion, language string) (string, error) {
	combined := CombineTranscripts(originalTranscript, clarificationTranscript)
	return c.Evaluate(ctx, combined, criterionDescription, followupQuestion, language)
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
	}
}

func extractText(message *anthropic.Message) (string, error) {
	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in scoring response")
}
