package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prospect-cli/internal/config"
)

func testCalculator() *Calculator {
	return NewCalculator(config.PricingConfig{
		Anthropic: map[string]config.ModelPricing{
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		Perplexity: config.PerplexityPricing{PerQuery: 0.005},
	})
}

func TestClaudeCost(t *testing.T) {
	c := testCalculator()

	// 1M input + 1M output at the configured rates.
	assert.InDelta(t, 18.00, c.Claude("claude-sonnet-4-5-20250929", 1_000_000, 1_000_000), 1e-9)
	assert.InDelta(t, 0.0036, c.Claude("claude-sonnet-4-5-20250929", 200, 200), 1e-9)
	assert.Zero(t, c.Claude("claude-sonnet-4-5-20250929", 0, 0))
}

func TestClaudeUnknownModel(t *testing.T) {
	c := testCalculator()
	assert.Zero(t, c.Claude("some-future-model", 1_000_000, 1_000_000))
}

func TestPerplexityQueryCost(t *testing.T) {
	c := testCalculator()
	assert.InDelta(t, 0.005, c.PerplexityQuery(), 1e-9)
}
