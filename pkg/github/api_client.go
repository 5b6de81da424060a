package github

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	criterrors "thoreinstein.com/crit/pkg/errors"
)

// APIClient implements Client using GitHub REST API.
type APIClient struct {
	client  *gh.Client
	verbose bool
	logger  *slog.Logger
}

// APIClientOption is a functional option for configuring APIClient.
type APIClientOption func(*APIClient)

// WithAPILogger sets a custom logger for the API client.
func WithAPILogger(logger *slog.Logger) APIClientOption {
	return func(c *APIClient) {
		c.logger = logger
	}
}

// NewAPIClient creates a GitHub API client with the given token.
func NewAPIClient(token string, verbose bool, opts ...APIClientOption) (*APIClient, error) {
	if token == "" {
		return nil, criterrors.NewGitHubError("NewAPIClient", "token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	client := &APIClient{
		client:  gh.NewClient(tc),
		verbose: verbose,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// IsAuthenticated checks if the client is authenticated with GitHub.
func (c *APIClient) IsAuthenticated() bool {
	ctx := context.Background()
	_, _, err := c.client.Users.Get(ctx, "")
	return err == nil
}

// GetCurrentRepo returns the owner and repo name for the current repository.
// This parses the git remote URL to determine owner/repo.
func (c *APIClient) GetCurrentRepo(ctx context.Context) (owner, repo string, err error) {
	// Parse from git remote
	owner, repo, err = parseGitRemote()
	if err != nil {
		return "", "", criterrors.NewGitHubErrorWithCause("GetCurrentRepo", "failed to parse git remote", err)
	}
	return owner, repo, nil
}

// ListPRs lists pull requests filtered by state and optionally by author.
func (c *APIClient) ListPRs(ctx context.Context, opts ListPRsOptions) ([]PRInfo, error) {
	owner, repo, err := c.GetCurrentRepo(ctx)
	if err != nil {
		return nil, err
	}

	c.logDebug("listing PRs", "state", opts.State, "author", opts.Author, "limit", opts.Limit, "page", opts.Page)

	ghOpts := &gh.PullRequestListOptions{
		State: opts.State,
	}
	if opts.State == "" || opts.State == "all" {
		ghOpts.State = "all"
	}

	if opts.Limit > 0 {
		ghOpts.PerPage = opts.Limit
	}
	if opts.Page > 0 {
		ghOpts.Page = opts.Page
	}

	prs, resp, err := c.client.PullRequests.List(ctx, owner, repo, ghOpts)
	if err != nil {
		return nil, toGitHubError("ListPRs", resp, err)
	}

	// Get current user login if author is "@me"
	filterAuthor := opts.Author
	if opts.Author == "@me" {
		user, _, err := c.client.Users.Get(ctx, "")
		if err != nil {
			return nil, toGitHubError("ListPRs", nil, err)
		}
		filterAuthor = user.GetLogin()
	}

	result := make([]PRInfo, 0, len(prs))
	for _, pr := range prs {
		info := prInfoFromGitHub(pr)
		// Filter by author if specified
		if filterAuthor != "" && info.Author != filterAuthor {
			continue
		}
		result = append(result, *info)
	}

	return result, nil
}

// GetPR retrieves pull request information by number.
func (c *APIClient) GetPR(ctx context.Context, number int) (*PRInfo, error) {
	owner, repo, err := c.GetCurrentRepo(ctx)
	if err != nil {
		return nil, err
	}

	c.logDebug("getting PR", "number", number)

	pr, resp, err := c.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, toGitHubError("GetPR", resp, err)
	}

	info := prInfoFromGitHub(pr)

	// Fetch reviews to determine approval status
	reviews, _, reviewErr := c.client.PullRequests.ListReviews(ctx, owner, repo, number, nil)
	if reviewErr == nil {
		info.Approved = hasApprovedReview(reviews)
	}

	// Fetch status checks
	ref := pr.GetHead().GetSHA()
	if ref != "" {
		combined, _, statusErr := c.client.Repositories.GetCombinedStatus(ctx, owner, repo, ref, nil)
		if statusErr == nil {
			info.ChecksPassing = combined.GetState() == "success"
		}
	}

	return info, nil
}

// ListPRFiles returns the changed files of a pull request, following
// pagination until all files are fetched.
func (c *APIClient) ListPRFiles(ctx context.Context, number int) ([]PRFile, error) {
	owner, repo, err := c.GetCurrentRepo(ctx)
	if err != nil {
		return nil, err
	}

	c.logDebug("listing PR files", "number", number)

	ghOpts := &gh.ListOptions{PerPage: 100}
	var files []PRFile
	for {
		page, resp, err := c.client.PullRequests.ListFiles(ctx, owner, repo, number, ghOpts)
		if err != nil {
			return nil, toGitHubError("ListPRFiles", resp, err)
		}
		for _, f := range page {
			files = append(files, PRFile{
				Path:      f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Patch:     f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		ghOpts.Page = resp.NextPage
	}

	return files, nil
}

// GetPRDiff returns the full unified diff of a pull request.
func (c *APIClient) GetPRDiff(ctx context.Context, number int) (string, error) {
	owner, repo, err := c.GetCurrentRepo(ctx)
	if err != nil {
		return "", err
	}

	c.logDebug("getting PR diff", "number", number)

	diff, resp, err := c.client.PullRequests.GetRaw(ctx, owner, repo, number, gh.RawOptions{Type: gh.Diff})
	if err != nil {
		return "", toGitHubError("GetPRDiff", resp, err)
	}

	return diff, nil
}

// GetFileDiff returns the unified diff of a single file within a pull request.
func (c *APIClient) GetFileDiff(ctx context.Context, number int, path string) (string, error) {
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

	return "", criterrors.NewGitHubError("GetFileDiff", "file "+path+" not found in diff")
}

// SubmitReview submits a review with an event, optional summary body, and
// line-scoped comments.
func (c *APIClient) SubmitReview(ctx context.Context, number int, req ReviewRequest) (*ReviewResult, error) {
	event, ok := NormalizeEvent(req.Event)
	if !ok {
		return nil, criterrors.NewGitHubError("SubmitReview", "invalid review event: "+req.Event)
	}

	owner, repo, err := c.GetCurrentRepo(ctx)
	if err != nil {
		return nil, err
	}

	c.logDebug("submitting review", "number", number, "event", event, "comments", len(req.Comments))

	ghReq := &gh.PullRequestReviewRequest{
		Event: gh.Ptr(event),
	}
	if req.Body != "" {
		ghReq.Body = gh.Ptr(req.Body)
	}

	for _, comment := range req.Comments {
		side := comment.Side
		if side == "" {
			side = "RIGHT"
		}
		ghReq.Comments = append(ghReq.Comments, &gh.DraftReviewComment{
			Path: gh.Ptr(comment.Path),
			Line: gh.Ptr(comment.Line),
			Side: gh.Ptr(side),
			Body: gh.Ptr(comment.Body),
		})
	}

	review, resp, err := c.client.PullRequests.CreateReview(ctx, owner, repo, number, ghReq)
	if err != nil {
		return nil, toGitHubError("SubmitReview", resp, err)
	}

	return &ReviewResult{
		ID:          review.GetID(),
		State:       review.GetState(),
		URL:         review.GetHTMLURL(),
		SubmittedAt: review.GetSubmittedAt().Time,
	}, nil
}

func (c *APIClient) logDebug(msg string, args ...any) {
	if c.verbose {
		c.logger.Debug(msg, args...)
	}
}

// Helper functions

func prInfoFromGitHub(pr *gh.PullRequest) *PRInfo {
	info := &PRInfo{
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Body:         pr.GetBody(),
		State:        pr.GetState(),
		Draft:        pr.GetDraft(),
		URL:          pr.GetHTMLURL(),
		Author:       pr.GetUser().GetLogin(),
		CreatedAt:    pr.GetCreatedAt().Time,
		UpdatedAt:    pr.GetUpdatedAt().Time,
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
	}

	if pr.Head != nil {
		info.HeadBranch = pr.GetHead().GetRef()
	}
	if pr.Base != nil {
		info.BaseBranch = pr.GetBase().GetRef()
	}

	// Map mergeable status
	if pr.Mergeable != nil {
		if *pr.Mergeable {
			info.Mergeable = "MERGEABLE"
		} else {
			info.Mergeable = "CONFLICTING"
		}
	} else {
		info.Mergeable = "UNKNOWN"
	}

	// Map mergeable state
	info.MergeableState = strings.ToUpper(pr.GetMergeableState())

	return info
}

func hasApprovedReview(reviews []*gh.PullRequestReview) bool {
	approvers := make(map[string]bool)
	for _, review := range reviews {
		if review.GetState() == "APPROVED" {
			approvers[review.GetUser().GetLogin()] = true
		}
	}
	return len(approvers) > 0
}

func toGitHubError(operation string, resp *gh.Response, err error) error {
	if resp != nil && resp.StatusCode > 0 {
		return criterrors.NewGitHubErrorWithStatus(operation, resp.StatusCode, err.Error())
	}
	return criterrors.NewGitHubErrorWithCause(operation, "API request failed", err)
}

func parseGitRemote() (owner, repo string, err error) {
	cmd := exec.Command("git", "remote", "get-url", "origin")
	output, err := cmd.Output()
	if err != nil {
		return "", "", err
	}

	url := strings.TrimSpace(string(output))
	return parseGitHubURL(url)
}

func parseGitHubURL(url string) (owner, repo string, err error) {
	// Handle SSH format: git@github.com:owner/repo.git
	if strings.HasPrefix(url, "git@") {
		parts := strings.Split(url, ":")
		if len(parts) != 2 {
			return "", "", criterrors.NewGitHubError("parseGitHubURL", "invalid SSH URL format")
		}
		path := strings.TrimSuffix(parts[1], ".git")
		segments := strings.Split(path, "/")
		if len(segments) != 2 {
			return "", "", criterrors.NewGitHubError("parseGitHubURL", "invalid repository path")
		}
		return segments[0], segments[1], nil
	}

	// Handle HTTPS format: https://github.com/owner/repo.git
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimSuffix(url, ".git")

	parts := strings.Split(url, "/")
	if len(parts) < 3 {
		return "", "", criterrors.NewGitHubError("parseGitHubURL", "invalid HTTPS URL format")
	}

	return parts[1], parts[2], nil
}
