package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/prlens/internal/azdo"
	"github.com/dshills/prlens/internal/config"
	"github.com/dshills/prlens/internal/jira"
	"github.com/dshills/prlens/internal/output"
	"github.com/dshills/prlens/internal/pipeline"
	"github.com/dshills/prlens/internal/prompt"
	"github.com/dshills/prlens/internal/providers"
)

// sourceTimeout bounds individual issue and change source HTTP calls.
const sourceTimeout = 30 * time.Second

var (
	flagRepo             string
	flagPR               int
	flagIssue            string
	flagNoDocs           bool
	flagNoReview         bool
	flagDocPromptFile    string
	flagReviewPromptFile string
	flagProviders        string
	flagOut              string
	flagSerial           bool
	flagMaxCommits       int
	flagFileDiffChars    int
	flagTotalChars       int
	flagNoRedact         bool
	flagVerbose          bool
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a pull request and generate documentation and review artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		if flagNoDocs && flagNoReview {
			fmt.Fprintln(os.Stderr, "Error: both artifacts disabled, nothing to do")
			exitCode = ExitUsageError
			return nil
		}

		docOverride, err := readPromptFile(flagDocPromptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}
		reviewOverride, err := readPromptFile(flagReviewPromptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		var issues pipeline.IssueSource
		if flagIssue != "" {
			jc, err := jira.NewClient(cfg.Jira.URL, cfg.Jira.Email, cfg.Jira.APIToken, sourceTimeout)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				exitCode = ExitUsageError
				return nil
			}
			issues = jc
		}

		changes, err := azdo.NewClient(cfg.AzDO.Organization, cfg.AzDO.Project, cfg.AzDO.PAT, sourceTimeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		ctx := context.Background()

		chain, err := providers.NewChain(ctx, cfg.ProviderSettings())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, providers.ErrNoProvider) {
				exitCode = ExitAuthError
			} else {
				exitCode = ExitRuntimeError
			}
			return nil
		}

		outDir := cfg.OutputDir
		if outDir == "" {
			outDir = "."
		}

		opts := pipeline.Options{
			Repo:                 flagRepo,
			ChangeID:             flagPR,
			IssueKey:             flagIssue,
			GenerateDocs:         !flagNoDocs,
			GenerateReview:       !flagNoReview,
			DocPromptOverride:    docOverride,
			ReviewPromptOverride: reviewOverride,
			Issues:               issues,
			Changes:              changes,
			Generator:            chain,
			Writer:               output.NewWriter(outDir),
			Builder:              &prompt.Builder{Budget: cfg.PromptBudget(), NoRedact: flagNoRedact},
		}
		if flagVerbose {
			opts.Logf = func(format string, args ...any) {
				fmt.Fprintf(os.Stderr, format+"\n", args...)
			}
		}
		if flagNoRedact {
			fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
		}

		res, err := pipeline.Run(ctx, opts)
		if err != nil {
			errColor.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = classifyExit(err)
			return nil
		}

		reportRun(res, outDir)
		return nil
	},
}

func classifyExit(err error) int {
	var jiraAuth *jira.AuthError
	var azdoAuth *azdo.AuthError
	if providers.IsAuthError(err) || errors.As(err, &jiraAuth) || errors.As(err, &azdoAuth) {
		return ExitAuthError
	}
	if errors.Is(err, providers.ErrNoProvider) {
		return ExitAuthError
	}
	return ExitRuntimeError
}

func reportRun(res *pipeline.Result, outDir string) {
	if res.SkippedIssue {
		warnColor.Fprintln(os.Stderr, "Issue not found, analysis ran without issue data")
	}
	for _, art := range res.Artifacts {
		okColor.Fprintf(os.Stdout, "✓ %s generated by %s\n", art.Kind, art.ProviderUsed)
	}
	for kind, err := range res.TaskErrors {
		warnColor.Fprintf(os.Stderr, "✗ %s failed: %v\n", kind, err)
	}
	for i := range res.WriteErrors {
		warnColor.Fprintf(os.Stderr, "✗ %v\n", &res.WriteErrors[i])
	}
	fmt.Fprintf(os.Stdout, "Run %s written to %s\n", res.RunID, outDir)
}

func readPromptFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt file: %w", err)
	}
	return string(data), nil
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProviders != "" {
		m["providers.order"] = flagProviders
	}
	if flagOut != "" {
		m["outputDir"] = flagOut
	}
	if flagSerial {
		m["providers.serialized"] = "true"
	}
	if flagMaxCommits > 0 {
		m["budget.maxCommits"] = fmt.Sprintf("%d", flagMaxCommits)
	}
	if flagFileDiffChars > 0 {
		m["budget.fileDiffChars"] = fmt.Sprintf("%d", flagFileDiffChars)
	}
	if flagTotalChars > 0 {
		m["budget.totalChars"] = fmt.Sprintf("%d", flagTotalChars)
	}
	return m
}

func init() {
	analyzeCmd.Flags().StringVar(&flagRepo, "repo", "", "Repository name in Azure DevOps")
	analyzeCmd.Flags().IntVar(&flagPR, "pr", 0, "Pull request id")
	analyzeCmd.Flags().StringVar(&flagIssue, "issue", "", "Jira issue key (e.g. PROJ-123)")
	analyzeCmd.Flags().BoolVar(&flagNoDocs, "no-docs", false, "Skip the documentation artifact")
	analyzeCmd.Flags().BoolVar(&flagNoReview, "no-review", false, "Skip the code review artifact")
	analyzeCmd.Flags().StringVar(&flagDocPromptFile, "doc-prompt-file", "", "File with a custom documentation instruction header")
	analyzeCmd.Flags().StringVar(&flagReviewPromptFile, "review-prompt-file", "", "File with a custom review instruction header")
	analyzeCmd.Flags().StringVar(&flagProviders, "providers", "", "Provider order (comma-separated: anthropic, openai, ollama)")
	analyzeCmd.Flags().StringVar(&flagOut, "out", "", "Output directory (default: current directory)")
	analyzeCmd.Flags().BoolVar(&flagSerial, "serial", false, "Serialize provider calls instead of running them concurrently")
	analyzeCmd.Flags().IntVar(&flagMaxCommits, "max-commits", 0, "Maximum commits included in the prompt")
	analyzeCmd.Flags().IntVar(&flagFileDiffChars, "file-diff-chars", 0, "Maximum characters per file diff")
	analyzeCmd.Flags().IntVar(&flagTotalChars, "total-chars", 0, "Maximum characters for the whole prompt")
	analyzeCmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	analyzeCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Print progress to stderr")

	_ = analyzeCmd.MarkFlagRequired("repo")
	_ = analyzeCmd.MarkFlagRequired("pr")
}
