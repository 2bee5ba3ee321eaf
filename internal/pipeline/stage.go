package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
)

// StageOutput is the raw result of one stage execution.
type StageOutput struct {
	Text  string
	Usage model.TokenUsage
	Cost  float64
}

// Stage is one independent research step. Stages are stateless and
// constructed once; Execute is invoked per record.
type Stage interface {
	Name() string
	// OutputKey is the namespace for this stage's fields in the final
	// aggregate, or "" for a flat merge.
	OutputKey() string
	Execute(ctx context.Context, pctx *Context) (*StageOutput, error)
}

const (
	leadershipPrompt = `Research the leadership of the company %q (website: %s).
Identify the CEO or most senior decision maker and their best publicly available email address.
Respond with a JSON object:
{"contact_name": "...", "contact_email": "..."}
Use "" for anything you cannot find. Respond with the JSON object only.`

	financialsPrompt = `Research the financials of the company %q (website: %s).
Estimate its most recent annual revenue as a short human-readable string (e.g. "$12M").
Respond with a JSON object:
{"revenue": "..."}
Use "" if unknown. Respond with the JSON object only.`

	companyStatsPrompt = `Research basic facts about the company %q (website: %s).
Respond with a JSON object:
{"employee_count": "...", "founding_year": "..."}
Use "" for anything you cannot find. Respond with the JSON object only.`

	marketFocusPrompt = `Research the market focus of the company %q (website: %s).
The company's primary contact is %q. Respond with a JSON object:
{"target_industries": [...], "target_company_size": [...], "target_geography": [...],
 "client_examples": [{"name": "...", "website": "..."}], "service_focus": [...]}
Use empty lists for anything you cannot find. Respond with the JSON object only.`

	rankingSystem = `You rank acquisition prospects for an M&A advisory firm.
You compare a reference document describing the ideal prospect against a
researched company profile and produce a 0-100 fit ranking.`

	rankingPrompt = `Reference document:
%s

Researched profile of %q:
- contact: %s
- revenue: %s
- employees: %s
- founded: %s

Respond with a JSON object:
{"ranking": "<0-100>", "reasoning": "<one paragraph>"}
Respond with the JSON object only.`

	fallbackPrompt = `Research the company %q (website: %s) and fill in as many of the
following fields as possible. Respond with a single JSON object:
{"contact_name": "", "contact_email": "", "revenue": "", "employee_count": "",
 "founding_year": "", "target_industries": [], "target_company_size": [],
 "target_geography": [], "client_examples": [], "service_focus": []}
Use "" or [] for anything you cannot find. Respond with the JSON object only.`
)

// researchStage runs a Perplexity web-research query.
type researchStage struct {
	name      string
	outputKey string
	client    perplexity.Client
	costs     *cost.Calculator
	prompt    func(pctx *Context) string
}

func (s *researchStage) Name() string      { return s.name }
func (s *researchStage) OutputKey() string { return s.outputKey }

func (s *researchStage) Execute(ctx context.Context, pctx *Context) (*StageOutput, error) {
	policy := resilience.DefaultPolicy()
	policy.OnRetry = resilience.RetryLogger("perplexity", s.name)

	resp, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return s.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Messages: []perplexity.Message{{Role: "user", Content: s.prompt(pctx)}},
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: stage %s", s.name)
	}

	return &StageOutput{
		Text: resp.Text(),
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		Cost: s.costs.PerplexityQuery(),
	}, nil
}

// rankingStage scores the aggregated profile against the reference
// document using Claude. It runs last so the prompt can reference fields
// written by the research stages.
type rankingStage struct {
	client anthropic.Client
	model  string
	costs  *cost.Calculator
}

func (s *rankingStage) Name() string      { return "ranking" }
func (s *rankingStage) OutputKey() string { return "ranking" }

func (s *rankingStage) Execute(ctx context.Context, pctx *Context) (*StageOutput, error) {
	prompt := fmt.Sprintf(rankingPrompt,
		pctx.GetString("document_content"),
		pctx.GetString("company_name"),
		pctx.GetString("contact_name"),
		pctx.GetString("revenue"),
		pctx.GetString("employee_count"),
		pctx.GetString("founding_year"),
	)

	policy := resilience.DefaultPolicy()
	policy.OnRetry = resilience.RetryLogger("anthropic", "ranking")

	resp, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.model,
			MaxTokens: 1024,
			System:    rankingSystem,
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: stage ranking")
	}

	usage := model.TokenUsage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	return &StageOutput{
		Text:  resp.Text,
		Usage: usage,
		Cost:  s.costs.Claude(s.model, usage.InputTokens, usage.OutputTokens),
	}, nil
}

// fallbackStage runs one combined research query when the primary stages
// produced nothing. Its output merges flat, with no namespace.
type fallbackStage struct {
	client perplexity.Client
	costs  *cost.Calculator
}

func (s *fallbackStage) Name() string      { return "fallback" }
func (s *fallbackStage) OutputKey() string { return "" }

func (s *fallbackStage) Execute(ctx context.Context, pctx *Context) (*StageOutput, error) {
	policy := resilience.DefaultPolicy()
	policy.OnRetry = resilience.RetryLogger("perplexity", "fallback")

	resp, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return s.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Messages: []perplexity.Message{{
				Role:    "user",
				Content: fmt.Sprintf(fallbackPrompt, pctx.GetString("company_name"), pctx.GetString("website")),
			}},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fallback")
	}

	return &StageOutput{
		Text: resp.Text(),
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		Cost: s.costs.PerplexityQuery(),
	}, nil
}

// NewStages builds the ordered research stage sequence.
func NewStages(pc perplexity.Client, ac anthropic.Client, anthropicModel string, costs *cost.Calculator) []Stage {
	return []Stage{
		&researchStage{
			name: "leadership", outputKey: "leadership", client: pc, costs: costs,
			prompt: func(pctx *Context) string {
				return fmt.Sprintf(leadershipPrompt, pctx.GetString("company_name"), pctx.GetString("website"))
			},
		},
		&researchStage{
			name: "financials", outputKey: "financials", client: pc, costs: costs,
			prompt: func(pctx *Context) string {
				return fmt.Sprintf(financialsPrompt, pctx.GetString("company_name"), pctx.GetString("website"))
			},
		},
		&researchStage{
			name: "company_stats", outputKey: "company_stats", client: pc, costs: costs,
			prompt: func(pctx *Context) string {
				return fmt.Sprintf(companyStatsPrompt, pctx.GetString("company_name"), pctx.GetString("website"))
			},
		},
		&researchStage{
			name: "market_focus", outputKey: "market_focus", client: pc, costs: costs,
			prompt: func(pctx *Context) string {
				return fmt.Sprintf(marketFocusPrompt,
					pctx.GetString("company_name"), pctx.GetString("website"), pctx.GetString("contact_name"))
			},
		},
		&rankingStage{client: ac, model: anthropicModel, costs: costs},
	}
}

// NewFallback builds the fallback research path.
func NewFallback(pc perplexity.Client, costs *cost.Calculator) Stage {
	return &fallbackStage{client: pc, costs: costs}
}
