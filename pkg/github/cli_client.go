package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	criterrors "thoreinstein.com/crit/pkg/errors"
)

// CLIClient implements the Client interface using the gh CLI.
// This is the primary implementation as most users have gh CLI installed
// and it handles authentication automatically.
type CLIClient struct {
	verbose bool
	token   string // Optional token for GITHUB_TOKEN env override
	logger  *slog.Logger
}

// CLIClientOption is a functional option for configuring CLIClient.
type CLIClientOption func(*CLIClient)

// WithToken sets a token to be used via GITHUB_TOKEN environment variable.
func WithToken(token string) CLIClientOption {
	return func(c *CLIClient) {
		c.token = token
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) CLIClientOption {
	return func(c *CLIClient) {
		c.logger = logger
	}
}

// NewCLIClient creates a new gh CLI-based GitHub client.
func NewCLIClient(verbose bool, opts ...CLIClientOption) (*CLIClient, error) {
	c := &CLIClient{
		verbose: verbose,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	// Verify gh CLI is available
	if _, err := exec.LookPath("gh"); err != nil {
		return nil, criterrors.NewGitHubErrorWithCause("NewCLIClient", "gh CLI not found in PATH", err)
	}

	return c, nil
}

// IsAuthenticated checks if gh CLI is authenticated with GitHub.
func (c *CLIClient) IsAuthenticated() bool {
	cmd := exec.Command("gh", "auth", "status")
	if c.token != "" {
		cmd.Env = append(os.Environ(), "GITHUB_TOKEN="+c.token)
	}
	return cmd.Run() == nil
}

// GetCurrentRepo returns the owner and repo name for the current repository.
func (c *CLIClient) GetCurrentRepo(ctx context.Context) (owner, repo string, err error) {
	args := []string{"repo", "view", "--json", "owner,name"}

	c.logDebug("getting current repo")

	output, err := c.runGH(ctx, args...)
	if err != nil {
		return "", "", criterrors.NewGitHubErrorWithCause("GetCurrentRepo", "failed to get repo info", err)
	}

	var resp ghRepoResponse
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		return "", "", criterrors.NewGitHubErrorWithCause("GetCurrentRepo", "failed to parse repo response", err)
	}

	return resp.Owner.Login, resp.Name, nil
}

// ListPRs lists pull requests filtered by state and optionally by author.
func (c *CLIClient) ListPRs(ctx context.Context, opts ListPRsOptions) ([]PRInfo, error) {
	fields := prJSONFields()
	args := []string{
		"pr", "list",
		"--json", strings.Join(fields, ","),
	}

	if opts.State != "" && opts.State != "all" {
		args = append(args, "--state", opts.State)
	}

	if opts.Author != "" {
		args = append(args, "--author", opts.Author)
	}

	if opts.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(opts.Limit))
	}

	// Note: gh pr list doesn't support --page directly.
	// If page > 1, we would need to use gh api or fetch all and slice.
	// For now, we only support --limit.
	if opts.Page > 1 {
		c.logDebug("pagination (page > 1) is not supported by gh CLI client, ignoring page parameter")
	}

	c.logDebug("listing PRs", "state", opts.State, "author", opts.Author, "limit", opts.Limit)

	output, err := c.runGH(ctx, args...)
	if err != nil {
		return nil, criterrors.NewGitHubErrorWithCause("ListPRs", "failed to list PRs", err)
	}

	var responses []ghPRResponse
	if err := json.Unmarshal([]byte(output), &responses); err != nil {
		return nil, criterrors.NewGitHubErrorWithCause("ListPRs", "failed to parse PR list response", err)
	}

	prs := make([]PRInfo, 0, len(responses))
	for _, resp := range responses {
		prs = append(prs, *resp.toPRInfo())
	}

	return prs, nil
}

// GetPR retrieves pull request information by number.
func (c *CLIClient) GetPR(ctx context.Context, number int) (*PRInfo, error) {
	fields := prJSONFields()
	args := []string{
		"pr", "view", strconv.Itoa(number),
		"--json", strings.Join(fields, ","),
	}

	c.logDebug("getting PR", "number", number)

	output, err := c.runGH(ctx, args...)
	if err != nil {
		return nil, criterrors.NewGitHubErrorWithCause("GetPR", fmt.Sprintf("failed to get PR #%d", number), err)
	}

	var resp ghPRResponse
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		return nil, criterrors.NewGitHubErrorWithCause("GetPR", "failed to parse PR response", err)
	}

	return resp.toPRInfo(), nil
}

// ListPRFiles returns the changed files of a pull request.
// Uses the REST endpoint via gh api because gh pr view --json files
// does not include per-file patches.
func (c *CLIClient) ListPRFiles(ctx context.Context, number int) ([]PRFile, error) {
	owner, repo, err := c.GetCurrentRepo(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("repos/%s/%s/pulls/%d/files", owner, repo, number)
	args := []string{"api", endpoint, "--paginate"}

	c.logDebug("listing PR files", "number", number, "endpoint", endpoint)

	output, err := c.runGH(ctx, args...)
	if err != nil {
		return nil, criterrors.NewGitHubErrorWithCause("ListPRFiles", fmt.Sprintf("failed to list files for PR #%d", number), err)
	}

	// gh api --paginate emits one JSON array per page, concatenated.
	// Decode arrays until the stream is exhausted.
	dec := json.NewDecoder(strings.NewReader(output))
	var files []PRFile
	for dec.More() {
		var page []ghFileResponse
		if err := dec.Decode(&page); err != nil {
			return nil, criterrors.NewGitHubErrorWithCause("ListPRFiles", "failed to parse file list response", err)
		}
		for _, resp := range page {
			files = append(files, resp.toPRFile())
		}
	}

	return files, nil
}

// GetPRDiff returns the full unified diff of a pull request.
func (c *CLIClient) GetPRDiff(ctx context.Context, number int) (string, error) {
	args := []string{"pr", "diff", strconv.Itoa(number)}

	c.logDebug("getting PR diff", "number", number)

	output, err := c.runGH(ctx, args...)
	if err != nil {
		return "", criterrors.NewGitHubErrorWithCause("GetPRDiff", fmt.Sprintf("failed to get diff for PR #%d", number), err)
	}

	return output, nil
}

// GetFileDiff returns the unified diff of a single file within a pull request.
func (c *CLIClient) GetFileDiff(ctx context.Context, number int, path string) (string, error) {
	if path == "" {
		return "", criterrors.NewGitHubError("GetFileDiff", "file path is required")
	}

	diff, err := c.GetPRDiff(ctx, number)
	if err != nil {
		return "", err
	}

	for _, fd := range SplitDiff(diff) {
		if fd.Path == path {
			return fd.Diff, nil
		}
	}

	return "", criterrors.NewGitHubError("GetFileDiff",
		fmt.Sprintf("file %s not found in diff of PR #%d", path, number))
}

// SubmitReview submits a review on a pull request via the REST endpoint.
// gh pr review only supports a single body, so line comments go through gh api.
func (c *CLIClient) SubmitReview(ctx context.Context, number int, req ReviewRequest) (*ReviewResult, error) {
	event, ok := NormalizeEvent(req.Event)
	if !ok {
		return nil, criterrors.NewGitHubError("SubmitReview", "invalid review event: "+req.Event)
	}
	req.Event = event

	owner, repo, err := c.GetCurrentRepo(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, criterrors.NewGitHubErrorWithCause("SubmitReview", "failed to encode review request", err)
	}

	endpoint := fmt.Sprintf("repos/%s/%s/pulls/%d/reviews", owner, repo, number)
	args := []string{"api", endpoint, "-X", "POST", "--input", "-"}

	c.logDebug("submitting review", "number", number, "event", req.Event, "comments", len(req.Comments))

	output, err := c.runGHWithInput(ctx, body, args...)
	if err != nil {
		return nil, criterrors.NewGitHubErrorWithCause("SubmitReview", fmt.Sprintf("failed to submit review on PR #%d", number), err)
	}

	var resp ghReviewResponse
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		return nil, criterrors.NewGitHubErrorWithCause("SubmitReview", "failed to parse review response", err)
	}

	return resp.toReviewResult(), nil
}

// runGH executes a gh command and returns its output.
func (c *CLIClient) runGH(ctx context.Context, args ...string) (string, error) {
	return c.runGHWithInput(ctx, nil, args...)
}

// runGHWithInput executes a gh command with the given bytes on stdin.
func (c *CLIClient) runGHWithInput(ctx context.Context, input []byte, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)

	// Set GITHUB_TOKEN if configured
	if c.token != "" {
		cmd.Env = append(os.Environ(), "GITHUB_TOKEN="+c.token)
	}

	if input != nil {
		cmd.Stdin = bytes.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		// Check for specific error patterns to determine retryability
		ghErr := criterrors.NewGitHubError("gh", errMsg)
		if isRetryableGHError(errMsg) {
			ghErr.Retryable = true
		}
		return "", ghErr
	}

	return stdout.String(), nil
}

// logDebug logs a debug message if verbose mode is enabled.
func (c *CLIClient) logDebug(msg string, args ...any) {
	if c.verbose {
		c.logger.Debug(msg, args...)
	}
}

// prJSONFields returns the list of fields to request from gh pr view/list.
func prJSONFields() []string {
	return []string{
		"number",
		"title",
		"body",
		"state",
		"isDraft",
		"url",
		"author",
		"headRefName",
		"baseRefName",
		"mergeable",
		"mergeStateStatus",
		"createdAt",
		"updatedAt",
		"additions",
		"deletions",
		"changedFiles",
		"reviewRequests",
		"reviews",
		"statusCheckRollup",
	}
}

// ExtractPRNumber extracts the PR number from a GitHub PR URL.
func ExtractPRNumber(url string) (int, error) {
	// URL format: https://github.com/owner/repo/pull/123
	parts := strings.Split(url, "/")
	if len(parts) < 2 {
		return 0, criterrors.NewGitHubError("ExtractPRNumber", "invalid PR URL format")
	}
	numberStr := parts[len(parts)-1]
	number, err := strconv.Atoi(numberStr)
	if err != nil {
		return 0, criterrors.NewGitHubErrorWithCause("ExtractPRNumber", "failed to parse PR number", err)
	}
	return number, nil
}

// isRetryableGHError checks if a gh CLI error message indicates a retryable error.
func isRetryableGHError(errMsg string) bool {
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"network",
		"502",
		"503",
		"504",
	}

	lowerErr := strings.ToLower(errMsg)
	for _, pattern := range retryablePatterns {
		if strings.Contains(lowerErr, pattern) {
			return true
		}
	}
	return false
}
