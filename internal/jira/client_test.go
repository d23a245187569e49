package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/petr-muller/jira-chat/internal/adf"
	"github.com/petr-muller/jira-chat/internal/auth"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare domain",
			input:    "example.atlassian.net",
			expected: "example.atlassian.net",
		},
		{
			name:     "https scheme and trailing slash",
			input:    "https://Example.atlassian.net/",
			expected: "Example.atlassian.net",
		},
		{
			name:     "http scheme",
			input:    "http://example.atlassian.net",
			expected: "example.atlassian.net",
		},
		{
			name:     "uppercase scheme",
			input:    "HTTPS://example.atlassian.net",
			expected: "example.atlassian.net",
		},
		{
			name:     "multiple trailing slashes",
			input:    "example.atlassian.net///",
			expected: "example.atlassian.net",
		},
		{
			name:     "surrounding whitespace",
			input:    "  example.atlassian.net  ",
			expected: "example.atlassian.net",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDomain(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func testSession() auth.Session {
	return auth.Session{
		Domain:   "example.atlassian.net",
		Email:    "me@example.com",
		APIToken: "token",
	}
}

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := newClient(testSession(), "example.atlassian.net", server.URL)
	if err != nil {
		t.Fatalf("cannot create client: %v", err)
	}

	return client
}

func expectedAuthHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte("me@example.com:token"))
}

func TestBrowseURL(t *testing.T) {
	client, err := NewClient(auth.Session{Domain: "https://Example.atlassian.net/", Email: "me@example.com", APIToken: "token"})
	if err != nil {
		t.Fatalf("cannot create client: %v", err)
	}

	expected := "https://Example.atlassian.net/browse/DP-1"
	if got := client.BrowseURL("DP-1"); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestMyself(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/rest/api/3/myself" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != expectedAuthHeader() {
			t.Errorf("unexpected Authorization header %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("unexpected Accept header %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accountId":"abc123","displayName":"Jane Doe","emailAddress":"jane@example.com"}`))
	}))

	me, err := client.Myself(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := auth.Myself{AccountID: "abc123", DisplayName: "Jane Doe", EmailAddress: "jane@example.com"}
	if me != expected {
		t.Errorf("expected %+v, got %+v", expected, me)
	}
}

func TestSearchIssues(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/search/jql" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		query := r.URL.Query()
		if got := query.Get("jql"); got != "project = DP ORDER BY updated DESC" {
			t.Errorf("unexpected jql %q", got)
		}
		if got := query.Get("maxResults"); got != "25" {
			t.Errorf("unexpected maxResults %q", got)
		}
		if got := query.Get("fields"); got != "summary,description,project,comment,attachment" {
			t.Errorf("unexpected fields %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"issues": [
				{
					"id": "1000",
					"key": "DP-1",
					"fields": {
						"summary": "Broken login",
						"description": {"type":"doc","version":1,"content":[{"type":"paragraph","content":[{"type":"text","text":"Steps to reproduce"}]}]},
						"project": {"name": "Demo Project"},
						"comment": {
							"comments": [
								{"id": "10", "created": "2024-01-01T00:00:00.000+0000", "author": {"displayName": "Jane"}, "body": {"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hello"}]}]}}
							]
						},
						"attachment": [
							{"id": "att-1", "filename": "screen.png", "mimeType": "image/png", "content": "https://example.atlassian.net/att-1"}
						]
					}
				}
			]
		}`))
	}))

	issues, err := client.SearchIssues(context.Background(), "project = DP ORDER BY updated DESC", 25, []string{"summary", "description", "project", "comment", "attachment"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}

	issue := issues[0]
	if issue.Key != "DP-1" {
		t.Errorf("unexpected key %q", issue.Key)
	}
	if got := issue.Fields.Description.PlainText(); got != "Steps to reproduce" {
		t.Errorf("unexpected description %q", got)
	}
	if issue.Fields.Project.Name != "Demo Project" {
		t.Errorf("unexpected project name %q", issue.Fields.Project.Name)
	}
	if len(issue.Fields.Comment.Comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(issue.Fields.Comment.Comments))
	}
	comment := issue.Fields.Comment.Comments[0]
	if got := comment.Body.PlainText(); got != "hello" {
		t.Errorf("unexpected comment body %q", got)
	}
	if comment.Author == nil || comment.Author.DisplayName != "Jane" {
		t.Errorf("unexpected comment author %+v", comment.Author)
	}
	if len(issue.Fields.Attachment) != 1 || issue.Fields.Attachment[0].MimeType != "image/png" {
		t.Errorf("unexpected attachments %+v", issue.Fields.Attachment)
	}
}

func TestListProjects(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/project/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("maxResults"); got != "100" {
			t.Errorf("unexpected maxResults %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"values":[{"id":"1","key":"DP","name":"Demo Project","projectTypeKey":"software","style":"next-gen"}]}`))
	}))

	projects, err := client.ListProjects(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := Project{ID: "1", Key: "DP", Name: "Demo Project", TypeKey: "software", Style: "next-gen"}
	if len(projects) != 1 || projects[0] != expected {
		t.Errorf("expected [%+v], got %+v", expected, projects)
	}
}

func TestAddComment(t *testing.T) {
	var gotBody map[string]any

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/rest/api/3/issue/DP-1/comment" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("cannot decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"42"}`))
	}))

	if err := client.AddComment(context.Background(), "DP-1", adf.NewDocument("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, ok := gotBody["body"].(map[string]any)
	if !ok {
		t.Fatalf("request carries no document body: %+v", gotBody)
	}
	if body["type"] != "doc" {
		t.Errorf("unexpected document type %v", body["type"])
	}
	if body["version"] != float64(1) {
		t.Errorf("unexpected document version %v", body["version"])
	}
}

func TestFailureMapping(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		expectedKind FailureKind
		expectedMsg  string
	}{
		{
			name:         "unauthorized",
			status:       http.StatusUnauthorized,
			expectedKind: FailureUnauthorized,
			expectedMsg:  "Unauthorized (401). Check email or API token.",
		},
		{
			name:         "forbidden",
			status:       http.StatusForbidden,
			expectedKind: FailureForbidden,
			expectedMsg:  "Forbidden (403). You do not have access.",
		},
		{
			name:         "not found",
			status:       http.StatusNotFound,
			expectedKind: FailureNotFound,
			expectedMsg:  "Not found (404).",
		},
		{
			name:         "gone",
			status:       http.StatusGone,
			expectedKind: FailureGone,
			expectedMsg:  "Endpoint is gone (410).",
		},
		{
			name:         "rate limited",
			status:       http.StatusTooManyRequests,
			expectedKind: FailureRateLimited,
			expectedMsg:  "Too many requests (429). Try again later.",
		},
		{
			name:         "other status carries the code",
			status:       http.StatusBadGateway,
			expectedKind: FailureHTTP,
			expectedMsg:  "Request failed (502).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := client.Myself(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			if !IsFailureKind(err, tt.expectedKind) {
				t.Errorf("expected failure kind %q, got %v", tt.expectedKind, err)
			}
			if err.Error() != tt.expectedMsg {
				t.Errorf("expected message %q, got %q", tt.expectedMsg, err.Error())
			}
		})
	}
}

func TestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := newClient(testSession(), "example.atlassian.net", url)
	if err != nil {
		t.Fatalf("cannot create client: %v", err)
	}

	_, err = client.Myself(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsFailureKind(err, FailureNetwork) {
		t.Errorf("expected a network failure, got %v", err)
	}
	if err.Error() != "Network error. Check your connection." {
		t.Errorf("unexpected message %q", err.Error())
	}
}
