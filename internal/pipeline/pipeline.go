package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/prlens/internal/azdo"
	"github.com/dshills/prlens/internal/jira"
	"github.com/dshills/prlens/internal/output"
	"github.com/dshills/prlens/internal/prctx"
	"github.com/dshills/prlens/internal/prompt"
	"github.com/dshills/prlens/internal/providers"
)

// IssueSource fetches one issue. *jira.Client satisfies it.
type IssueSource interface {
	FetchIssue(ctx context.Context, key string) (prctx.IssueRecord, error)
}

// ChangeSource fetches a pull request's commits and files. *azdo.Client
// satisfies it.
type ChangeSource interface {
	FetchChange(ctx context.Context, repo string, changeID int) (azdo.ChangeSet, error)
}

// TextGenerator is the generation capability the pipeline drives.
// *providers.Chain satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, req providers.Request) (providers.Response, error)
}

// Options configures one pipeline run. Every collaborator is passed in; the
// pipeline owns no ambient state.
type Options struct {
	Repo     string
	ChangeID int
	IssueKey string

	GenerateDocs   bool
	GenerateReview bool

	DocPromptOverride    string
	ReviewPromptOverride string

	Issues    IssueSource
	Changes   ChangeSource
	Generator TextGenerator
	Writer    *output.Writer
	Builder   *prompt.Builder

	// Logf receives progress lines; nil disables them.
	Logf func(format string, args ...any)
}

// Result reports what one run produced. Per-artifact and per-destination
// failures live here; Run only returns an error when the whole run is lost.
type Result struct {
	RunID        string
	Context      *prctx.AnalysisContext
	Artifacts    []prctx.GeneratedArtifact
	TaskErrors   map[prctx.ArtifactKind]error
	WriteErrors  []output.WriteError
	SkippedIssue bool
}

type task struct {
	kind     prctx.ArtifactKind
	promptTk prompt.Task
	override string
}

// Run executes the full pipeline: fetch, aggregate, generate, persist. The
// context built here lives only for this run.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if err := validate(opts); err != nil {
		return nil, err
	}
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	res := &Result{
		RunID:      uuid.NewString(),
		TaskErrors: make(map[prctx.ArtifactKind]error),
	}

	issue, changeSet, skipped, err := fetchSources(ctx, opts, logf)
	if err != nil {
		return nil, err
	}
	res.SkippedIssue = skipped

	actx, err := prctx.Aggregate(issue, opts.Repo, opts.ChangeID, changeSet.Commits, changeSet.Files)
	if err != nil {
		return nil, err
	}
	res.Context = actx
	logf("aggregated context: %d commits, %d files", len(actx.Commits), len(actx.Files))

	tasks := requestedTasks(opts)

	// Prompts are built up front so a budget failure surfaces before any
	// provider call.
	prompts := make(map[prctx.ArtifactKind]string, len(tasks))
	for _, tk := range tasks {
		p, err := opts.Builder.Build(actx, tk.promptTk, tk.override)
		if err != nil {
			return nil, fmt.Errorf("building %s prompt: %w", tk.kind, err)
		}
		prompts[tk.kind] = p
	}

	res.Artifacts = generate(ctx, opts.Generator, tasks, prompts, res.TaskErrors, logf)

	if len(res.Artifacts) == 0 {
		var errs []error
		for _, tk := range tasks {
			if err := res.TaskErrors[tk.kind]; err != nil {
				errs = append(errs, err)
			}
		}
		return res, fmt.Errorf("every requested artifact failed: %w", errors.Join(errs...))
	}

	res.WriteErrors = opts.Writer.Write(res.RunID, actx, res.Artifacts)
	for _, we := range res.WriteErrors {
		logf("write failed: %v", &we)
	}

	if allArtifactsLost(tasks, res) {
		return res, errors.New("every requested artifact failed to generate or persist")
	}
	return res, nil
}

func validate(opts Options) error {
	switch {
	case opts.Repo == "":
		return errors.New("repository is required")
	case opts.ChangeID <= 0:
		return errors.New("a positive change request id is required")
	case !opts.GenerateDocs && !opts.GenerateReview:
		return errors.New("nothing to do: neither documentation nor code review requested")
	case opts.Changes == nil:
		return errors.New("change source is required")
	case opts.Generator == nil:
		return providers.ErrNoProvider
	case opts.Writer == nil:
		return errors.New("output writer is required")
	case opts.Builder == nil:
		return errors.New("prompt builder is required")
	case opts.IssueKey != "" && opts.Issues == nil:
		return errors.New("an issue key was given but no issue source is configured")
	}
	return nil
}

// fetchSources queries the issue and change sources concurrently; neither
// depends on the other's result. A missing issue degrades to a context
// without one, any other source failure aborts the run.
func fetchSources(ctx context.Context, opts Options, logf func(string, ...any)) (*prctx.IssueRecord, azdo.ChangeSet, bool, error) {
	var (
		wg        sync.WaitGroup
		issue     *prctx.IssueRecord
		issueErr  error
		skipped   bool
		changeSet azdo.ChangeSet
		changeErr error
	)

	if opts.IssueKey != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logf("fetching issue %s", opts.IssueKey)
			rec, err := opts.Issues.FetchIssue(ctx, opts.IssueKey)
			if err != nil {
				if jira.IsNotFound(err) {
					logf("issue %s not found, continuing without issue data", opts.IssueKey)
					skipped = true
					return
				}
				issueErr = fmt.Errorf("fetching issue %s: %w", opts.IssueKey, err)
				return
			}
			issue = &rec
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logf("fetching change %d from %s", opts.ChangeID, opts.Repo)
		cs, err := opts.Changes.FetchChange(ctx, opts.Repo, opts.ChangeID)
		if err != nil {
			changeErr = fmt.Errorf("fetching change %d: %w", opts.ChangeID, err)
			return
		}
		changeSet = cs
	}()

	wg.Wait()

	// No context can be built without change data.
	if changeErr != nil {
		return nil, azdo.ChangeSet{}, false, changeErr
	}
	if issueErr != nil {
		return nil, azdo.ChangeSet{}, false, issueErr
	}
	return issue, changeSet, skipped, nil
}

func requestedTasks(opts Options) []task {
	var tasks []task
	if opts.GenerateDocs {
		tasks = append(tasks, task{
			kind:     prctx.KindDocumentation,
			promptTk: prompt.TaskDocumentation,
			override: opts.DocPromptOverride,
		})
	}
	if opts.GenerateReview {
		tasks = append(tasks, task{
			kind:     prctx.KindCodeReview,
			promptTk: prompt.TaskCodeReview,
			override: opts.ReviewPromptOverride,
		})
	}
	return tasks
}

// generate runs the requested tasks concurrently against the same generator.
// The chain keeps provider choice sticky, so concurrent tasks still land on
// one backend.
func generate(ctx context.Context, gen TextGenerator, tasks []task, prompts map[prctx.ArtifactKind]string, taskErrs map[prctx.ArtifactKind]error, logf func(string, ...any)) []prctx.GeneratedArtifact {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		artifacts []prctx.GeneratedArtifact
	)

	for _, tk := range tasks {
		wg.Add(1)
		go func(tk task) {
			defer wg.Done()
			logf("generating %s", tk.kind)
			resp, err := gen.Generate(ctx, providers.Request{Prompt: prompts[tk.kind]})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				taskErrs[tk.kind] = err
				logf("%s failed: %v", tk.kind, err)
				return
			}
			artifacts = append(artifacts, prctx.GeneratedArtifact{
				Kind:         tk.kind,
				Content:      resp.Content,
				ProviderUsed: resp.Provider,
			})
			logf("%s generated by %s", tk.kind, resp.Provider)
		}(tk)
	}
	wg.Wait()

	// Keep artifact order stable regardless of completion order.
	ordered := make([]prctx.GeneratedArtifact, 0, len(artifacts))
	for _, tk := range tasks {
		for _, art := range artifacts {
			if art.Kind == tk.kind {
				ordered = append(ordered, art)
			}
		}
	}
	return ordered
}

// allArtifactsLost reports whether every requested artifact either failed to
// generate or failed to persist.
func allArtifactsLost(tasks []task, res *Result) bool {
	failedWrites := make(map[string]bool, len(res.WriteErrors))
	for _, we := range res.WriteErrors {
		failedWrites[we.Dest] = true
	}

	for _, tk := range tasks {
		if res.TaskErrors[tk.kind] != nil {
			continue
		}
		dest := output.DocumentationFile
		if tk.kind == prctx.KindCodeReview {
			dest = output.CodeReviewFile
		}
		if !failedWrites[dest] {
			return false
		}
	}
	return true
}
