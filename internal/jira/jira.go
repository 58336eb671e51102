package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/prlens/internal/prctx"
)

// NotFoundError means the issue key does not exist or is not visible to the
// configured account.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("jira issue %s not found", e.Key)
}

// AuthError means Jira rejected the configured credentials.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("jira authentication failed (status %d)", e.Status)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Client fetches issues from the Jira REST API (v3) using basic auth with an
// account email and API token.
type Client struct {
	baseURL string
	email   string
	token   string
	httpCli *http.Client
}

// NewClient creates a Jira client. All three settings are required.
func NewClient(baseURL, email, token string, timeout time.Duration) (*Client, error) {
	if baseURL == "" || email == "" || token == "" {
		return nil, errors.New("jira requires a base URL, account email, and API token")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   email,
		token:   token,
		httpCli: &http.Client{Timeout: timeout},
	}, nil
}

// FetchIssue returns the key, summary, and plain-text description of one
// issue.
func (c *Client) FetchIssue(ctx context.Context, key string) (prctx.IssueRecord, error) {
	url := fmt.Sprintf("%s/rest/api/3/issue/%s", c.baseURL, key)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return prctx.IssueRecord{}, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return prctx.IssueRecord{}, fmt.Errorf("fetching issue %s: %w", key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return prctx.IssueRecord{}, fmt.Errorf("reading issue %s: %w", key, err)
	}

	switch resp.StatusCode {
	case 200:
	case 404:
		return prctx.IssueRecord{}, &NotFoundError{Key: key}
	case 401, 403:
		return prctx.IssueRecord{}, &AuthError{Status: resp.StatusCode}
	default:
		return prctx.IssueRecord{}, fmt.Errorf("jira returned status %d for issue %s", resp.StatusCode, key)
	}

	var payload issuePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return prctx.IssueRecord{}, fmt.Errorf("parsing issue %s: %w", key, err)
	}

	return prctx.IssueRecord{
		Key:         payload.Key,
		Summary:     payload.Fields.Summary,
		Description: descriptionText(payload.Fields.Description),
	}, nil
}

type issuePayload struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string          `json:"summary"`
		Description json.RawMessage `json:"description"`
	} `json:"fields"`
}

// descriptionText handles both description encodings Jira serves: a plain
// string (API v2 sites) or an Atlassian Document Format tree (v3).
func descriptionText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return adfText(raw)
}
