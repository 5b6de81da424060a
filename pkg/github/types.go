// Package github provides GitHub integration for PR review.
//
// This package implements the Client interface for interacting with GitHub,
// supporting operations like listing PRs, fetching changed files and diffs,
// and submitting reviews. The primary implementation uses the gh CLI tool
// for maximum compatibility.
package github

import "time"

// AuthMethod represents the authentication method for GitHub.
type AuthMethod string

const (
	// AuthToken uses a personal access token for authentication.
	AuthToken AuthMethod = "token"
	// AuthOAuth uses OAuth for authentication.
	AuthOAuth AuthMethod = "oauth"
	// AuthGHCLI uses the gh CLI's stored credentials.
	AuthGHCLI AuthMethod = "gh_cli"
)

// Review events as the GitHub API spells them.
const (
	EventApprove        = "APPROVE"
	EventRequestChanges = "REQUEST_CHANGES"
	EventComment        = "COMMENT"
)

// PRInfo represents pull request information.
type PRInfo struct {
	Number         int       `json:"number"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	State          string    `json:"state"`            // "open", "closed", "merged"
	Draft          bool      `json:"isDraft"`          // gh CLI uses isDraft
	URL            string    `json:"url"`
	Author         string    `json:"-"`                // Populated from author.login
	HeadBranch     string    `json:"headRefName"`      // gh CLI uses headRefName
	BaseBranch     string    `json:"baseRefName"`      // gh CLI uses baseRefName
	Mergeable      string    `json:"mergeable"`        // gh CLI returns string: "MERGEABLE", "CONFLICTING", "UNKNOWN"
	MergeableState string    `json:"mergeStateStatus"` // gh CLI uses mergeStateStatus: "CLEAN", "DIRTY", "BLOCKED", etc.
	Additions      int       `json:"additions"`
	Deletions      int       `json:"deletions"`
	ChangedFiles   int       `json:"changedFiles"`
	Reviewers      []string  `json:"-"` // Populated from reviewRequests
	Approved       bool      `json:"-"` // Computed from reviews
	ChecksPassing  bool      `json:"-"` // Computed from statusCheckRollup
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IsMergeable returns true if the PR has no merge conflicts.
func (pr *PRInfo) IsMergeable() bool {
	return pr.Mergeable == "MERGEABLE"
}

// IsClean returns true if the PR is in a clean state (checks pass, reviews approved).
func (pr *PRInfo) IsClean() bool {
	return pr.MergeableState == "CLEAN"
}

// PRFile represents one changed file in a pull request.
type PRFile struct {
	Path      string `json:"filename"`
	Status    string `json:"status"` // "added", "modified", "removed", "renamed"
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch,omitempty"` // Unified diff hunks; empty for binary files
}

// ListPRsOptions holds options for listing pull requests.
type ListPRsOptions struct {
	State  string // "open", "closed", "merged", "all" (defaults to "open")
	Author string // Filter by author login; "@me" means the authenticated user
	Limit  int    // Maximum number of PRs to return
	Page   int    // Page number (API client only; the gh CLI does not paginate)
}

// ReviewComment is a line-scoped comment attached to a review submission.
type ReviewComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Side string `json:"side,omitempty"` // "LEFT" or "RIGHT"; defaults to "RIGHT"
	Body string `json:"body"`
}

// ReviewRequest holds a review submission: the event, an optional summary
// body, and zero or more line-scoped comments.
type ReviewRequest struct {
	Event    string          `json:"event"` // APPROVE, REQUEST_CHANGES, or COMMENT
	Body     string          `json:"body,omitempty"`
	Comments []ReviewComment `json:"comments,omitempty"`
}

// ReviewResult describes a submitted review.
type ReviewResult struct {
	ID          int64     `json:"id"`
	State       string    `json:"state"`
	URL         string    `json:"html_url"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NormalizeEvent maps a user-facing event name ("approve", "request-changes",
// "comment") to the API spelling. The empty string maps to COMMENT.
func NormalizeEvent(event string) (string, bool) {
	switch event {
	case "approve", EventApprove:
		return EventApprove, true
	case "request-changes", "request_changes", EventRequestChanges:
		return EventRequestChanges, true
	case "comment", "", EventComment:
		return EventComment, true
	default:
		return "", false
	}
}

// ghPRResponse represents the JSON response from gh pr view/list.
// Used internally for JSON parsing before converting to PRInfo.
type ghPRResponse struct {
	Number           int       `json:"number"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	State            string    `json:"state"`
	IsDraft          bool      `json:"isDraft"`
	URL              string    `json:"url"`
	HeadRefName      string    `json:"headRefName"`
	BaseRefName      string    `json:"baseRefName"`
	Mergeable        string    `json:"mergeable"`
	MergeStateStatus string    `json:"mergeStateStatus"`
	Additions        int       `json:"additions"`
	Deletions        int       `json:"deletions"`
	ChangedFiles     int       `json:"changedFiles"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Author           struct {
		Login string `json:"login"`
	} `json:"author"`
	ReviewRequests []struct {
		Login string `json:"login"`
	} `json:"reviewRequests"`
	Reviews []struct {
		State  string `json:"state"`
		Author struct {
			Login string `json:"login"`
		} `json:"author"`
	} `json:"reviews"`
	StatusCheckRollup []struct {
		Context    string `json:"context"`
		State      string `json:"state"`
		Conclusion string `json:"conclusion"`
	} `json:"statusCheckRollup"`
}

// toPRInfo converts a ghPRResponse to PRInfo with computed fields.
func (r *ghPRResponse) toPRInfo() *PRInfo {
	pr := &PRInfo{
		Number:         r.Number,
		Title:          r.Title,
		Body:           r.Body,
		State:          r.State,
		Draft:          r.IsDraft,
		URL:            r.URL,
		Author:         r.Author.Login,
		HeadBranch:     r.HeadRefName,
		BaseBranch:     r.BaseRefName,
		Mergeable:      r.Mergeable,
		MergeableState: r.MergeStateStatus,
		Additions:      r.Additions,
		Deletions:      r.Deletions,
		ChangedFiles:   r.ChangedFiles,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}

	// Extract reviewers
	for _, req := range r.ReviewRequests {
		if req.Login != "" {
			pr.Reviewers = append(pr.Reviewers, req.Login)
		}
	}

	// Check if approved (any APPROVED review from a unique reviewer)
	approvedBy := make(map[string]bool)
	for _, review := range r.Reviews {
		if review.State == "APPROVED" {
			approvedBy[review.Author.Login] = true
		}
	}
	pr.Approved = len(approvedBy) > 0

	// Check if all checks pass
	pr.ChecksPassing = true
	for _, check := range r.StatusCheckRollup {
		if check.State == "FAILURE" || check.State == "ERROR" ||
			check.Conclusion == "FAILURE" || check.Conclusion == "ERROR" {
			pr.ChecksPassing = false
			break
		}
	}

	return pr
}

// ghFileResponse represents one entry of the REST pulls/files response,
// as returned by gh api.
type ghFileResponse struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch"`
}

func (r *ghFileResponse) toPRFile() PRFile {
	return PRFile{
		Path:      r.Filename,
		Status:    r.Status,
		Additions: r.Additions,
		Deletions: r.Deletions,
		Patch:     r.Patch,
	}
}

// ghRepoResponse represents the JSON response from gh repo view.
type ghRepoResponse struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// ghReviewResponse represents the JSON response from posting a review via gh api.
type ghReviewResponse struct {
	ID          int64     `json:"id"`
	State       string    `json:"state"`
	HTMLURL     string    `json:"html_url"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (r *ghReviewResponse) toReviewResult() *ReviewResult {
	return &ReviewResult{
		ID:          r.ID,
		State:       r.State,
		URL:         r.HTMLURL,
		SubmittedAt: r.SubmittedAt,
	}
}
