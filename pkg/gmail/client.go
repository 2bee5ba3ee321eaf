// Package gmail is a thin client over the Gmail API for composing
// outreach drafts and sending messages.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Client defines the Gmail operations used by the delivery gateway.
type Client interface {
	// CreateDraft composes a draft in the authenticated mailbox and
	// returns the draft ID.
	CreateDraft(ctx context.Context, to, subject, body string) (string, error)
	// SendMessage sends an email and returns the message ID.
	SendMessage(ctx context.Context, to, subject, body string) (string, error)
}

type apiClient struct {
	svc *gmailapi.Service
}

// NewClient creates a Gmail client from a credentials file. The "me"
// alias resolves to the authenticated user on every call.
func NewClient(ctx context.Context, credentialsFile string) (Client, error) {
	svc, err := gmailapi.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gmailapi.GmailComposeScope),
	)
	if err != nil {
		return nil, eris.Wrap(err, "gmail: create service")
	}
	return &apiClient{svc: svc}, nil
}

func (c *apiClient) CreateDraft(ctx context.Context, to, subject, body string) (string, error) {
	draft, err := c.svc.Users.Drafts.Create("me", &gmailapi.Draft{
		Message: encodeMessage(to, subject, body),
	}).Context(ctx).Do()
	if err != nil {
		return "", eris.Wrap(err, "gmail: create draft")
	}
	return draft.Id, nil
}

func (c *apiClient) SendMessage(ctx context.Context, to, subject, body string) (string, error) {
	msg, err := c.svc.Users.Messages.Send("me", encodeMessage(to, subject, body)).Context(ctx).Do()
	if err != nil {
		return "", eris.Wrap(err, "gmail: send message")
	}
	return msg.Id, nil
}

// encodeMessage builds the base64url RFC 822 payload the API expects.
func encodeMessage(to, subject, body string) *gmailapi.Message {
	var raw strings.Builder
	fmt.Fprintf(&raw, "To: %s\r\n", to)
	fmt.Fprintf(&raw, "Subject: %s\r\n", subject)
	raw.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	raw.WriteString("\r\n")
	raw.WriteString(body)

	return &gmailapi.Message{
		Raw: base64.RawURLEncoding.EncodeToString([]byte(raw.String())),
	}
}
