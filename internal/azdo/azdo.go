package azdo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dshills/prlens/internal/prctx"
)

const apiVersion = "7.0"

// NotFoundError means the repository or pull request does not exist.
type NotFoundError struct {
	Repo     string
	ChangeID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pull request %d not found in repository %q", e.ChangeID, e.Repo)
}

// AuthError means Azure DevOps rejected the configured PAT. Azure DevOps
// answers a bad PAT with 203 and an HTML sign-in page, so 203 counts too.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("azure devops authentication failed (status %d)", e.Status)
}

// ChangeSet is everything the change source returns for one pull request.
type ChangeSet struct {
	Commits []prctx.CommitRecord
	Files   []prctx.FileChange
}

// Client fetches pull request data from the Azure DevOps Git REST API.
type Client struct {
	organization string
	project      string
	pat          string
	baseURL      string
	httpCli      *http.Client
}

// NewClient creates an Azure DevOps client for one organization and project.
func NewClient(organization, project, pat string, timeout time.Duration) (*Client, error) {
	if organization == "" || project == "" || pat == "" {
		return nil, errors.New("azure devops requires an organization, project, and PAT")
	}
	return &Client{
		organization: organization,
		project:      project,
		pat:          pat,
		baseURL:      "https://dev.azure.com/" + organization,
		httpCli:      &http.Client{Timeout: timeout},
	}, nil
}

// FetchChange returns the commit list and per-file diff content for one pull
// request. Diffs and line counts are computed client-side from the base and
// target blob contents.
func (c *Client) FetchChange(ctx context.Context, repo string, changeID int) (ChangeSet, error) {
	pr, err := c.fetchPullRequest(ctx, repo, changeID)
	if err != nil {
		return ChangeSet{}, err
	}

	commits, err := c.fetchCommits(ctx, repo, changeID)
	if err != nil {
		return ChangeSet{}, err
	}

	target := strings.TrimPrefix(pr.TargetRefName, "refs/heads/")
	source := strings.TrimPrefix(pr.SourceRefName, "refs/heads/")

	changes, err := c.fetchDiffEntries(ctx, repo, target, source)
	if err != nil {
		return ChangeSet{}, err
	}

	var files []prctx.FileChange
	for _, ch := range changes {
		if ch.Item.IsFolder {
			continue
		}
		fc, err := c.fileChange(ctx, repo, ch)
		if err != nil {
			return ChangeSet{}, err
		}
		files = append(files, fc)
	}

	return ChangeSet{Commits: commits, Files: files}, nil
}

func (c *Client) fileChange(ctx context.Context, repo string, ch diffEntry) (prctx.FileChange, error) {
	var before, after string
	var err error

	// changeType can be compound ("edit, rename"); go by which object IDs
	// are present rather than parsing the label.
	if ch.Item.OriginalObjectID != "" {
		before, err = c.fetchBlob(ctx, repo, ch.Item.OriginalObjectID)
		if err != nil {
			return prctx.FileChange{}, fmt.Errorf("fetching base blob for %s: %w", ch.Item.Path, err)
		}
	}
	if ch.Item.ObjectID != "" && !strings.Contains(ch.ChangeType, "delete") {
		after, err = c.fetchBlob(ctx, repo, ch.Item.ObjectID)
		if err != nil {
			return prctx.FileChange{}, fmt.Errorf("fetching target blob for %s: %w", ch.Item.Path, err)
		}
	}

	diff, added, deleted := renderDiff(before, after)
	return prctx.FileChange{
		Path:         ch.Item.Path,
		Diff:         diff,
		LinesAdded:   added,
		LinesDeleted: deleted,
	}, nil
}

func (c *Client) fetchPullRequest(ctx context.Context, repo string, changeID int) (*pullRequest, error) {
	u := fmt.Sprintf("%s/%s/_apis/git/repositories/%s/pullrequests/%d?api-version=%s",
		c.baseURL, url.PathEscape(c.project), url.PathEscape(repo), changeID, apiVersion)

	var pr pullRequest
	if err := c.getJSON(ctx, u, &pr, repo, changeID); err != nil {
		return nil, err
	}
	return &pr, nil
}

func (c *Client) fetchCommits(ctx context.Context, repo string, changeID int) ([]prctx.CommitRecord, error) {
	u := fmt.Sprintf("%s/%s/_apis/git/repositories/%s/pullrequests/%d/commits?api-version=%s",
		c.baseURL, url.PathEscape(c.project), url.PathEscape(repo), changeID, apiVersion)

	var payload commitList
	if err := c.getJSON(ctx, u, &payload, repo, changeID); err != nil {
		return nil, err
	}

	// Order is preserved exactly as the API returned it.
	commits := make([]prctx.CommitRecord, 0, len(payload.Value))
	for _, cm := range payload.Value {
		ts, _ := time.Parse(time.RFC3339, cm.Author.Date)
		commits = append(commits, prctx.CommitRecord{
			ID:        cm.CommitID,
			Message:   cm.Comment,
			Author:    cm.Author.Name,
			Timestamp: ts,
		})
	}
	return commits, nil
}

func (c *Client) fetchDiffEntries(ctx context.Context, repo, base, target string) ([]diffEntry, error) {
	u := fmt.Sprintf("%s/%s/_apis/git/repositories/%s/diffs/commits?baseVersion=%s&targetVersion=%s&%s=1000&api-version=%s",
		c.baseURL, url.PathEscape(c.project), url.PathEscape(repo),
		url.QueryEscape(base), url.QueryEscape(target), url.QueryEscape("$top"), apiVersion)

	var payload diffList
	if err := c.getJSON(ctx, u, &payload, repo, 0); err != nil {
		return nil, err
	}
	return payload.Changes, nil
}

func (c *Client) fetchBlob(ctx context.Context, repo, objectID string) (string, error) {
	u := fmt.Sprintf("%s/%s/_apis/git/repositories/%s/blobs/%s?%s=text&api-version=%s",
		c.baseURL, url.PathEscape(c.project), url.PathEscape(repo), url.PathEscape(objectID),
		url.QueryEscape("$format"), apiVersion)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth("", c.pat)
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching blob %s: %w", objectID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading blob %s: %w", objectID, err)
	}
	if err := c.checkStatus(resp.StatusCode, "", 0); err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any, repo string, changeID int) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth("", c.pat)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := c.checkStatus(resp.StatusCode, repo, changeID); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response from %s: %w", u, err)
	}
	return nil
}

func (c *Client) checkStatus(status int, repo string, changeID int) error {
	switch {
	case status == 200:
		return nil
	case status == 404:
		return &NotFoundError{Repo: repo, ChangeID: changeID}
	case status == 203 || status == 401 || status == 403:
		return &AuthError{Status: status}
	default:
		return fmt.Errorf("azure devops returned status %d", status)
	}
}

type pullRequest struct {
	SourceRefName string `json:"sourceRefName"`
	TargetRefName string `json:"targetRefName"`
}

type commitList struct {
	Value []struct {
		CommitID string `json:"commitId"`
		Comment  string `json:"comment"`
		Author   struct {
			Name string `json:"name"`
			Date string `json:"date"`
		} `json:"author"`
	} `json:"value"`
}

type diffList struct {
	Changes []diffEntry `json:"changes"`
}

type diffEntry struct {
	ChangeType string `json:"changeType"`
	Item       struct {
		Path             string `json:"path"`
		IsFolder         bool   `json:"isFolder"`
		ObjectID         string `json:"objectId"`
		OriginalObjectID string `json:"originalObjectId"`
	} `json:"item"`
}
