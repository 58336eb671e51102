package azdo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeAzDO serves the four endpoints FetchChange touches for one PR with a
// single edited file.
func fakeAzDO(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if _, pat, ok := r.BasicAuth(); !ok || pat != "test-pat" {
			w.WriteHeader(401)
			return
		}
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/pullrequests/42"):
			fmt.Fprint(w, `{"sourceRefName":"refs/heads/feature","targetRefName":"refs/heads/main"}`)
		case strings.HasSuffix(path, "/pullrequests/42/commits"):
			fmt.Fprint(w, `{"value":[
				{"commitId":"c1","comment":"first","author":{"name":"dev","date":"2025-03-01T10:00:00Z"}},
				{"commitId":"c2","comment":"second","author":{"name":"dev","date":"2025-03-01T11:00:00Z"}}
			]}`)
		case strings.Contains(path, "/diffs/commits"):
			if r.URL.Query().Get("baseVersion") != "main" || r.URL.Query().Get("targetVersion") != "feature" {
				t.Errorf("diff query = %q", r.URL.RawQuery)
			}
			fmt.Fprint(w, `{"changes":[
				{"changeType":"edit","item":{"path":"/src/app.go","objectId":"new1","originalObjectId":"old1"}},
				{"changeType":"edit","item":{"path":"/src","isFolder":true,"objectId":"x"}}
			]}`)
		case strings.Contains(path, "/blobs/old1"):
			fmt.Fprint(w, "a\nb\n")
		case strings.Contains(path, "/blobs/new1"):
			fmt.Fprint(w, "a\nc\n")
		default:
			t.Errorf("unexpected request path %q", path)
			w.WriteHeader(404)
		}
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient("myorg", "My Project", "test-pat", 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.baseURL = server.URL
	return c
}

func TestFetchChange(t *testing.T) {
	c := newTestClient(t, fakeAzDO(t))

	cs, err := c.FetchChange(context.Background(), "MyRepo", 42)
	if err != nil {
		t.Fatalf("FetchChange: %v", err)
	}

	if len(cs.Commits) != 2 {
		t.Fatalf("got %d commits, want 2", len(cs.Commits))
	}
	if cs.Commits[0].ID != "c1" || cs.Commits[1].ID != "c2" {
		t.Errorf("commit order not preserved: %+v", cs.Commits)
	}
	if cs.Commits[0].Timestamp.IsZero() {
		t.Error("commit timestamp not parsed")
	}

	if len(cs.Files) != 1 {
		t.Fatalf("got %d files, want 1 (folder entries skipped)", len(cs.Files))
	}
	f := cs.Files[0]
	if f.Path != "/src/app.go" {
		t.Errorf("Path = %q", f.Path)
	}
	if f.LinesAdded != 1 || f.LinesDeleted != 1 {
		t.Errorf("lines added/deleted = %d/%d, want 1/1", f.LinesAdded, f.LinesDeleted)
	}
	if !strings.Contains(f.Diff, "-b") || !strings.Contains(f.Diff, "+c") {
		t.Errorf("diff content wrong:\n%s", f.Diff)
	}
}

func TestFetchChangeNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	})

	_, err := c.FetchChange(context.Background(), "MyRepo", 999)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.ChangeID != 999 {
		t.Errorf("ChangeID = %d, want 999", nf.ChangeID)
	}
}

func TestFetchChangeBadPAT(t *testing.T) {
	// Azure DevOps answers bad PATs with 203 and a sign-in page.
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(203)
		w.Write([]byte("<html>Sign in</html>"))
	})

	_, err := c.FetchChange(context.Background(), "MyRepo", 42)
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if ae.Status != 203 {
		t.Errorf("Status = %d, want 203", ae.Status)
	}
}

func TestNewClientMissingSettings(t *testing.T) {
	if _, err := NewClient("", "proj", "pat", time.Second); err == nil {
		t.Error("expected error for missing organization")
	}
	if _, err := NewClient("org", "proj", "", time.Second); err == nil {
		t.Error("expected error for missing PAT")
	}
}
