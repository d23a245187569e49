package chat

import (
	"context"

	"github.com/petr-muller/jira-chat/internal/adf"
	"github.com/petr-muller/jira-chat/internal/jira"
)

// Submitter posts replies back to the tracker as issue comments. It never
// touches feed state; the engine re-syncs after a successful send.
type Submitter struct {
	client *jira.Client
}

// NewSubmitter creates a submitter using the given client.
func NewSubmitter(client *jira.Client) *Submitter {
	return &Submitter{client: client}
}

// Send wraps the text into the minimal structured document and creates a
// comment on the issue. Callers are expected to reject empty or
// whitespace-only text before calling.
func (s *Submitter) Send(ctx context.Context, issueKey, text string) error {
	return s.client.AddComment(ctx, issueKey, adf.NewDocument(text))
}
