package outreach

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/gmail"
)

// DispatchResult reports what the delivery gateway did.
type DispatchResult struct {
	Success bool
	Detail  string
}

// Gateway is the send/draft primitive. The scheduler only interprets
// success or failure; a failure is retryable on the next pass, never
// fatal to the batch.
type Gateway interface {
	Dispatch(ctx context.Context, to, subject, body string) (DispatchResult, error)
}

// GmailGateway dispatches through the Gmail API, either composing a
// draft (default, so a human reviews before anything leaves the mailbox)
// or sending directly.
type GmailGateway struct {
	client gmail.Client
	send   bool
}

// NewGmailGateway creates a gateway over the Gmail client. When send is
// false, dispatches create drafts.
func NewGmailGateway(client gmail.Client, send bool) *GmailGateway {
	return &GmailGateway{client: client, send: send}
}

func (g *GmailGateway) Dispatch(ctx context.Context, to, subject, body string) (DispatchResult, error) {
	policy := resilience.DefaultPolicy()
	policy.OnRetry = resilience.RetryLogger("gmail", "dispatch")

	id, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (string, error) {
		if g.send {
			return g.client.SendMessage(ctx, to, subject, body)
		}
		return g.client.CreateDraft(ctx, to, subject, body)
	})
	if err != nil {
		return DispatchResult{Success: false, Detail: err.Error()}, eris.Wrap(err, "gateway: dispatch")
	}

	mode := "draft"
	if g.send {
		mode = "sent"
	}
	return DispatchResult{Success: true, Detail: mode + " " + id}, nil
}

// StubGateway accepts every dispatch without delivering anything. Used
// in offline mode.
type StubGateway struct{}

func (g *StubGateway) Dispatch(_ context.Context, to, subject, _ string) (DispatchResult, error) {
	zap.L().Info("stub dispatch",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return DispatchResult{Success: true, Detail: "stub"}, nil
}
