package reviewlog

import "time"

// Submission is one recorded review submission.
type Submission struct {
	ID          int64
	Repo        string // owner/name
	PR          int
	Event       string // APPROVE, REQUEST_CHANGES, or COMMENT
	Comments    int    // number of comments included in the review
	Summary     string
	SubmittedAt time.Time
}

// QueryOptions defines filtering options for review log queries.
type QueryOptions struct {
	Repo  string
	Since *time.Time
	Limit int
}
