package outreach

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/pipeline"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

// Identity is who outreach emails are written as. It is passed in
// explicitly so content generation never reads sender details from the
// environment mid-run.
type Identity struct {
	Name string
	Role string
}

// WaveContent is one generated outreach email.
type WaveContent struct {
	Subject string
	Body    string
}

// Generator produces wave content for a prospect. Follow-up waves are
// conditioned on the previous wave's subject for tone continuity.
type Generator interface {
	Initial(ctx context.Context, company string, profile model.Profile, sender Identity) (*WaveContent, error)
	FollowUp(ctx context.Context, company string, profile model.Profile, sender Identity, prevSubject string, wave model.Wave) (*WaveContent, error)
}

const (
	contentSystem = `You write concise, personal B2B outreach emails for an M&A
advisory firm. Respond with a JSON object {"subject": "...", "body": "..."}
and nothing else.`

	initialPrompt = `Write an initial outreach email from %s (%s) to %s at the
company %q. Relevant research:
- revenue: %s
- employees: %s
- service focus: %s

Keep it under 120 words, warm and specific. Subject line under 60 characters.`

	followUpPrompt = `Write follow-up email number %d from %s (%s) to %s at the
company %q. The previous email had the subject %q. Reference it lightly,
stay friendly, and keep it under 80 words.`
)

// claudeGenerator implements Generator with Claude message calls.
type claudeGenerator struct {
	client anthropic.Client
	model  string
}

// NewGenerator creates a content generator backed by Claude.
func NewGenerator(client anthropic.Client, model string) Generator {
	return &claudeGenerator{client: client, model: model}
}

func (g *claudeGenerator) Initial(ctx context.Context, company string, profile model.Profile, sender Identity) (*WaveContent, error) {
	prompt := fmt.Sprintf(initialPrompt,
		sender.Name, sender.Role, contactOrDefault(profile), company,
		profile.Revenue, profile.EmployeeCount, strings.Join(profile.ServiceFocus, ", "),
	)
	return g.generate(ctx, prompt)
}

func (g *claudeGenerator) FollowUp(ctx context.Context, company string, profile model.Profile, sender Identity, prevSubject string, wave model.Wave) (*WaveContent, error) {
	prompt := fmt.Sprintf(followUpPrompt,
		int(wave)-1, sender.Name, sender.Role, contactOrDefault(profile), company, prevSubject,
	)
	return g.generate(ctx, prompt)
}

func (g *claudeGenerator) generate(ctx context.Context, prompt string) (*WaveContent, error) {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: 1024,
		System:    contentSystem,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "content: generate")
	}

	parsed, ok := pipeline.ExtractJSON(resp.Text)
	if !ok {
		return nil, eris.New("content: unparseable model output")
	}

	subject, _ := parsed["subject"].(string)
	body, _ := parsed["body"].(string)
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(body) == "" {
		return nil, eris.New("content: empty subject or body")
	}

	return &WaveContent{Subject: subject, Body: body}, nil
}

func contactOrDefault(profile model.Profile) string {
	if profile.ContactName != "" {
		return profile.ContactName
	}
	return "the team"
}
