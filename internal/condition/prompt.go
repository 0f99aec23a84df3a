package condition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/roomwatch/internal/model"
)

const promptSystem = "You screen housing postings for a renter. Answer with a single word: yes or no."

// LLMConfig configures the OpenAI-compatible endpoint used by the prompt
// condition
type LLMConfig struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Prompt asks a chat model whether a posting meets a free-text criterion.
// Failures accept the posting.
type Prompt struct {
	client    *openai.Client
	model     string
	timeout   time.Duration
	criterion string
	logger    *slog.Logger
}

// NewPrompt creates a prompt condition
func NewPrompt(cfg LLMConfig, criterion string, logger *slog.Logger) (*Prompt, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("prompt condition needs llm.api_key")
	}
	if strings.TrimSpace(criterion) == "" {
		return nil, errors.New("prompt condition needs a prompt")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Prompt{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     modelName,
		timeout:   timeout,
		criterion: criterion,
		logger:    logger,
	}, nil
}

func (*Prompt) Name() string { return "prompt" }

func (c *Prompt) Check(ctx context.Context, p model.EnrichedPosting) bool {
	answer, err := c.ask(ctx, p)
	if err != nil {
		c.logger.Warn("prompt condition failed, accepting posting", "posting_id", p.ID, "error", err)
		return true
	}
	return strings.HasPrefix(strings.ToLower(answer), "yes")
}

func (c *Prompt) ask(ctx context.Context, p model.EnrichedPosting) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: promptSystem},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(c.criterion, p)},
		},
		MaxTokens:   5,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from model")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt describes p and asks whether it satisfies criterion
func BuildPrompt(criterion string, p model.EnrichedPosting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Criterion: %s\n\n", strings.TrimSpace(criterion))
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	if p.HasPrice() {
		fmt.Fprintf(&b, "Price: %.0f\n", p.PriceValue)
	}
	if p.Where != "" {
		fmt.Fprintf(&b, "Location: %s\n", p.Where)
	}
	if p.Area != "" {
		fmt.Fprintf(&b, "Neighborhood: %s\n", p.Area)
	}
	if p.HasTransitDistance() {
		fmt.Fprintf(&b, "Nearest transit: %.2f km\n", p.TransitDistance)
	}
	fmt.Fprintf(&b, "URL: %s\n\n", p.URL)
	b.WriteString("Does this posting meet the criterion?")
	return b.String()
}
