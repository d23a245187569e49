// Package jira is the authenticated client for the tracker's REST API. It
// binds one session to a base URL and Basic auth header and exposes the
// fixed v3 surface the chat feed uses: myself, issue search, project search
// and comment creation. All failures are mapped to the error taxonomy in
// errors.go.
package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gojira "github.com/andygrunwald/go-jira"

	"github.com/petr-muller/jira-chat/internal/adf"
	"github.com/petr-muller/jira-chat/internal/auth"
)

const requestTimeout = 15 * time.Second

// Client wraps the go-jira client with the v3 endpoints this project needs.
type Client struct {
	jiraClient *gojira.Client
	domain     string
}

// NewClient creates a client bound to the session's tracker domain and
// Basic email:token credentials. The client never retries; retry policy is
// the caller's responsibility.
func NewClient(session auth.Session) (*Client, error) {
	domain := NormalizeDomain(session.Domain)
	return newClient(session, domain, "https://"+domain)
}

// newClient exists so tests can point the client at a local server.
func newClient(session auth.Session, domain, baseURL string) (*Client, error) {
	transport := gojira.BasicAuthTransport{
		Username: strings.TrimSpace(session.Email),
		Password: strings.TrimSpace(session.APIToken),
	}

	httpClient := transport.Client()
	httpClient.Timeout = requestTimeout

	jiraClient, err := gojira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, fmt.Errorf("cannot create jira client: %w", err)
	}

	return &Client{
		jiraClient: jiraClient,
		domain:     domain,
	}, nil
}

// NormalizeDomain strips a leading http:// or https:// scheme
// (case-insensitively) and any trailing slashes from a user-entered domain.
func NormalizeDomain(value string) string {
	domain := strings.TrimSpace(value)

	for _, scheme := range []string{"https://", "http://"} {
		if len(domain) >= len(scheme) && strings.EqualFold(domain[:len(scheme)], scheme) {
			domain = domain[len(scheme):]
			break
		}
	}

	return strings.TrimRight(domain, "/")
}

// BrowseURL returns the web link for an issue key on this client's tracker.
func (c *Client) BrowseURL(issueKey string) string {
	return fmt.Sprintf("https://%s/browse/%s", c.domain, issueKey)
}

// Myself returns the identity of the authenticated user. It doubles as the
// credential check during login.
func (c *Client) Myself(ctx context.Context) (auth.Myself, error) {
	req, err := c.jiraClient.NewRequestWithContext(ctx, http.MethodGet, "rest/api/3/myself", nil)
	if err != nil {
		return auth.Myself{}, fmt.Errorf("cannot build myself request: %w", err)
	}

	var me auth.Myself
	if err := c.do(req, &me); err != nil {
		return auth.Myself{}, err
	}

	return me, nil
}

// Issue is a tracker issue with the fields the feed requests.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

type IssueFields struct {
	Summary     string       `json:"summary"`
	Description *adf.Node    `json:"description"`
	Project     ProjectRef   `json:"project"`
	Comment     CommentPage  `json:"comment"`
	Attachment  []Attachment `json:"attachment"`
}

type ProjectRef struct {
	Name string `json:"name"`
}

type CommentPage struct {
	Comments []Comment `json:"comments"`
}

// Comment is one issue comment. Author is optional on the wire; Body is an
// externally controlled structured document.
type Comment struct {
	ID      string    `json:"id"`
	Created string    `json:"created"`
	Author  *UserRef  `json:"author"`
	Body    *adf.Node `json:"body"`
}

type UserRef struct {
	DisplayName string `json:"displayName"`
}

type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"`
}

type searchResponse struct {
	Issues []Issue `json:"issues"`
}

// SearchIssues runs a JQL query and returns the matching issues with the
// requested fields embedded.
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int, fields []string) ([]Issue, error) {
	query := url.Values{}
	query.Set("jql", jql)
	query.Set("maxResults", strconv.Itoa(maxResults))
	query.Set("fields", strings.Join(fields, ","))

	req, err := c.jiraClient.NewRequestWithContext(ctx, http.MethodGet, "rest/api/3/search/jql?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("cannot build search request: %w", err)
	}

	var response searchResponse
	if err := c.do(req, &response); err != nil {
		return nil, err
	}

	return response.Issues, nil
}

// Project is one tracker project as returned by project search.
type Project struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Name    string `json:"name"`
	TypeKey string `json:"projectTypeKey"`
	Style   string `json:"style"`
}

type projectSearchResponse struct {
	Values []Project `json:"values"`
}

// ListProjects returns the projects visible to the session, up to maxResults.
func (c *Client) ListProjects(ctx context.Context, maxResults int) ([]Project, error) {
	query := url.Values{}
	query.Set("maxResults", strconv.Itoa(maxResults))

	req, err := c.jiraClient.NewRequestWithContext(ctx, http.MethodGet, "rest/api/3/project/search?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("cannot build project search request: %w", err)
	}

	var response projectSearchResponse
	if err := c.do(req, &response); err != nil {
		return nil, err
	}

	return response.Values, nil
}

type commentRequest struct {
	Body adf.Node `json:"body"`
}

// AddComment creates a comment with the given structured-document body on an
// issue. It does not touch any local state.
func (c *Client) AddComment(ctx context.Context, issueKey string, body adf.Node) error {
	path := fmt.Sprintf("rest/api/3/issue/%s/comment", issueKey)
	req, err := c.jiraClient.NewRequestWithContext(ctx, http.MethodPost, path, commentRequest{Body: body})
	if err != nil {
		return fmt.Errorf("cannot build comment request: %w", err)
	}

	return c.do(req, nil)
}

// do executes a request and maps any failure into the error taxonomy.
func (c *Client) do(req *http.Request, v interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.jiraClient.Do(req, v)
	if err != nil {
		return mapFailure(resp, err)
	}

	return nil
}
