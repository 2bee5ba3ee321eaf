package pipeline

import (
	"context"
	"strings"

	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
)

// Stub clients return deterministic canned output so the full pipeline
// and outreach flow can run offline, without API keys.

// StubPerplexityClient implements perplexity.Client.
type StubPerplexityClient struct{}

func (c *StubPerplexityClient) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	var prompt string
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}

	var body string
	switch {
	case strings.Contains(prompt, "CEO"):
		body = `{"contact_name": "Jane Doe", "contact_email": "jane.doe@example.com"}`
	case strings.Contains(prompt, "annual revenue"):
		body = `{"revenue": "$12M"}`
	case strings.Contains(prompt, "basic facts"):
		body = `{"employee_count": "85", "founding_year": "2009"}`
	case strings.Contains(prompt, "market focus"):
		body = `{"target_industries": ["Manufacturing", "Logistics"],
 "target_company_size": ["50-200"],
 "target_geography": ["Southeast US"],
 "client_examples": [{"name": "Acme Corp", "website": "https://acme.example.com"}],
 "service_focus": ["Supply chain consulting"]}`
	default:
		body = `{"contact_name": "Jane Doe", "contact_email": "jane.doe@example.com",
 "revenue": "$12M", "employee_count": "85", "founding_year": "2009",
 "target_industries": ["Manufacturing"], "target_company_size": ["50-200"],
 "target_geography": ["Southeast US"], "client_examples": [],
 "service_focus": ["Consulting"]}`
	}

	return &perplexity.ChatCompletionResponse{
		ID:      "stub",
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: "```json\n" + body + "\n```"}}},
		Usage:   perplexity.Usage{PromptTokens: 100, CompletionTokens: 50},
	}, nil
}

// StubAnthropicClient implements anthropic.Client.
type StubAnthropicClient struct{}

func (c *StubAnthropicClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	var prompt string
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}

	var body string
	if strings.Contains(strings.ToLower(req.System+prompt), "subject") {
		body = `{"subject": "Quick question about your growth plans",
 "body": "Hi,\n\nI came across your company and was impressed by your work.\nWould you be open to a short call?\n\nBest regards"}`
	} else {
		body = `{"ranking": "85", "reasoning": "Strong fit on size, sector and geography."}`
	}

	return &anthropic.MessageResponse{
		ID:    "stub",
		Model: req.Model,
		Text:  "```json\n" + body + "\n```",
		Usage: anthropic.TokenUsage{InputTokens: 200, OutputTokens: 80},
	}, nil
}
