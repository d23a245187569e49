// Package chat turns the tracker's nested issue data into a flat,
// chronologically ordered conversational feed and keeps it fresh. The feed
// aggregator flattens issues into messages, the submitter posts replies, and
// the engine in engine.go orchestrates the sync cycles.
package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/petr-muller/jira-chat/internal/jira"
)

const (
	// DefaultProject is the project scope the feed is built from unless
	// overridden.
	DefaultProject = "DP"

	maxIssues = 25
)

var searchFields = []string{"summary", "description", "project", "comment", "attachment"}

// Message is one entry of the feed: a single issue comment carrying its
// parent issue's context. Its ID is stable across refreshes and unique
// within a fetch.
type Message struct {
	ID               string
	ProjectName      string
	AuthorName       string
	IssueKey         string
	IssueSummary     string
	IssueDescription string
	CommentText      string
	CreatedAt        string
	Attachments      []Attachment
	IssueLink        string
}

// Attachment is a classified issue attachment. The whole list hangs off the
// parent issue, so every message under the same issue shares it.
type Attachment struct {
	ID       string
	Filename string
	MimeType string
	URL      string
	IsImage  bool
}

// Feed aggregates the tracker's issues, comments and attachments into the
// message list. Each fetch is all-or-nothing: a failed cycle returns no
// partial results.
type Feed struct {
	client  *jira.Client
	project string
}

// NewFeed creates a feed scoped to one project. An empty project selects the
// default scope.
func NewFeed(client *jira.Client, project string) *Feed {
	if project == "" {
		project = DefaultProject
	}

	return &Feed{
		client:  client,
		project: project,
	}
}

// Fetch runs one feed query and returns the flattened, sorted message list.
func (f *Feed) Fetch(ctx context.Context) ([]Message, error) {
	jql := fmt.Sprintf("project = %s ORDER BY updated DESC", f.project)

	issues, err := f.client.SearchIssues(ctx, jql, maxIssues, searchFields)
	if err != nil {
		return nil, err
	}

	return buildMessages(issues, f.client.BrowseURL), nil
}

// buildMessages flattens issues into messages. Comments whose normalized
// text is empty produce no message. The result is globally sorted by
// creation time descending; the timestamps are fixed-width ISO-8601 strings,
// so lexicographic comparison orders them correctly.
func buildMessages(issues []jira.Issue, browseURL func(issueKey string) string) []Message {
	var messages []Message

	for _, issue := range issues {
		description := strings.TrimSpace(issue.Fields.Description.PlainText())
		link := browseURL(issue.Key)
		attachments := classifyAttachments(issue.Fields.Attachment)

		for _, comment := range issue.Fields.Comment.Comments {
			text := strings.TrimSpace(comment.Body.PlainText())
			if text == "" {
				continue
			}

			author := "Unknown"
			if comment.Author != nil && comment.Author.DisplayName != "" {
				author = comment.Author.DisplayName
			}

			messages = append(messages, Message{
				ID:               issue.Key + "_" + comment.ID,
				ProjectName:      issue.Fields.Project.Name,
				AuthorName:       author,
				IssueKey:         issue.Key,
				IssueSummary:     issue.Fields.Summary,
				IssueDescription: description,
				CommentText:      text,
				CreatedAt:        comment.Created,
				Attachments:      attachments,
				IssueLink:        link,
			})
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt > messages[j].CreatedAt
	})

	return messages
}

func classifyAttachments(attachments []jira.Attachment) []Attachment {
	var result []Attachment
	for _, a := range attachments {
		result = append(result, Attachment{
			ID:       a.ID,
			Filename: a.Filename,
			MimeType: a.MimeType,
			URL:      a.Content,
			IsImage:  isImageMime(a.MimeType),
		})
	}

	return result
}

// isImageMime reports whether a mime type denotes an image. An absent mime
// type is never an image.
func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
