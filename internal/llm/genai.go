package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GenAIConfig configures the Gemini-backed client.
type GenAIConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultGenAIConfig returns sensible defaults for short extraction calls.
func DefaultGenAIConfig(apiKey string) GenAIConfig {
	return GenAIConfig{
		APIKey:  apiKey,
		Model:   "gemini-2.5-flash",
		Timeout: 15 * time.Second,
	}
}

// GenAIClient implements Client against the Gemini API.
type GenAIClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGenAIClient creates a Gemini-backed extraction client.
func NewGenAIClient(cfg GenAIConfig) (*GenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	return &GenAIClient{client: client, model: cfg.Model, timeout: cfg.Timeout}, nil
}

const targetPrompt = `You extract UI targets from desktop automation commands.
Given the command below, answer with ONLY the single most salient phrase the
user wants to locate on screen, preserving its original language and casing.
Answer with an empty string if the command has no on-screen target.
Command: %s`

const typingPrompt = `You extract typing payloads from desktop automation commands.
Given the command below, answer with ONLY the literal text the user wants
typed, without surrounding quotes. Answer with an empty string if there is
nothing to type.
Command: %s`

const fallbackPrompt = `You compile desktop automation commands into primitive calls.
Allowed primitives, one per line:
  move(x, y)
  click()
  double_click()
  right_click()
  type("text")
  press("key")
  scroll(n)
  sleep(seconds)
Visible UI elements:
%s
Compile this command into primitives. Answer with ONLY the primitive lines.
Command: %s`

func (c *GenAIClient) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return strings.TrimSpace(result.Text()), nil
}

func (c *GenAIClient) ExtractTarget(ctx context.Context, stepText string) (string, error) {
	out, err := c.generate(ctx, fmt.Sprintf(targetPrompt, stepText))
	if err != nil {
		return "", err
	}
	return strings.Trim(out, `"'`), nil
}

func (c *GenAIClient) ExtractTypingText(ctx context.Context, stepText string) (string, error) {
	out, err := c.generate(ctx, fmt.Sprintf(typingPrompt, stepText))
	if err != nil {
		return "", err
	}
	return strings.Trim(out, `"'`), nil
}

func (c *GenAIClient) PlanFallback(ctx context.Context, instruction, uiSummary string) (string, error) {
	if uiSummary == "" {
		uiSummary = "(none)"
	}
	return c.generate(ctx, fmt.Sprintf(fallbackPrompt, uiSummary, instruction))
}
