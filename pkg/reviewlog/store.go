// Package reviewlog records submitted reviews in a local sqlite database so
// past submissions can be queried without hitting the GitHub API.
package reviewlog

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	criterrors "thoreinstein.com/crit/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS reviews (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	repo         TEXT NOT NULL,
	pr           INTEGER NOT NULL,
	event        TEXT NOT NULL,
	comments     INTEGER NOT NULL,
	summary      TEXT NOT NULL DEFAULT '',
	submitted_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reviews_repo ON reviews(repo);
CREATE INDEX IF NOT EXISTS idx_reviews_submitted_at ON reviews(submitted_at);
`

// Log is a handle to the review submission database.
type Log struct {
	db      *sql.DB
	path    string
	verbose bool
	logger  *slog.Logger
}

// DefaultPath returns the standard location of the review database.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "state", "crit", "reviews.db")
}

// Open opens (creating if necessary) the review database at path.
func Open(path string, verbose bool) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, criterrors.Wrapf(err, "failed to create directory for %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, criterrors.Wrapf(err, "failed to open review log %s", path)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, criterrors.Wrapf(err, "failed to initialize review log %s", path)
	}

	return &Log{
		db:      db,
		path:    path,
		verbose: verbose,
		logger:  slog.Default(),
	}, nil
}

// Path returns the database file path.
func (l *Log) Path() string {
	return l.path
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Record inserts a submission and returns its row ID. A zero SubmittedAt is
// stamped with the current time.
func (l *Log) Record(ctx context.Context, s Submission) (int64, error) {
	if s.Repo == "" {
		return 0, criterrors.New("submission repo is empty")
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now()
	}

	l.logDebug("recording review submission", "repo", s.Repo, "pr", s.PR, "event", s.Event)

	result, err := l.db.ExecContext(ctx,
		`INSERT INTO reviews (repo, pr, event, comments, summary, submitted_at) VALUES (?, ?, ?, ?, ?, ?)`,
		s.Repo, s.PR, s.Event, s.Comments, s.Summary, s.SubmittedAt.Unix(),
	)
	if err != nil {
		return 0, criterrors.Wrap(err, "failed to record review submission")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, criterrors.Wrap(err, "failed to read submission ID")
	}
	return id, nil
}

// Query returns submissions matching the options, newest first.
func (l *Log) Query(ctx context.Context, options QueryOptions) ([]Submission, error) {
	query, args := l.buildQuery(options)
	l.logDebug("querying review log", "query", query)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, criterrors.Wrap(err, "failed to query review log")
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var s Submission
		var submittedAt int64
		if err := rows.Scan(&s.ID, &s.Repo, &s.PR, &s.Event, &s.Comments, &s.Summary, &submittedAt); err != nil {
			return nil, criterrors.Wrap(err, "failed to scan review row")
		}
		s.SubmittedAt = time.Unix(submittedAt, 0)
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, criterrors.Wrap(err, "failed to read review rows")
	}

	return subs, nil
}

// buildQuery assembles the SELECT for the given options.
func (l *Log) buildQuery(options QueryOptions) (string, []any) {
	query := "SELECT id, repo, pr, event, comments, summary, submitted_at FROM reviews"

	var conds []string
	var args []any
	if options.Repo != "" {
		conds = append(conds, "repo = ?")
		args = append(args, options.Repo)
	}
	if options.Since != nil {
		conds = append(conds, "submitted_at >= ?")
		args = append(args, options.Since.Unix())
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY submitted_at DESC, id DESC"

	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)
	}

	return query, args
}

// logDebug logs a debug message if verbose mode is enabled.
func (l *Log) logDebug(msg string, args ...any) {
	if l.verbose {
		l.logger.Debug(msg, args...)
	}
}
