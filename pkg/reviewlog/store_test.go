package reviewlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "reviews.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state", "reviews.db")

	l, err := Open(path, false)

	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, path, l.Path())
}

func TestRecordAndQuery(t *testing.T) {
	l := openTestLog(t)
	ctx := t.Context()

	id, err := l.Record(ctx, Submission{
		Repo:     "octocat/hello",
		PR:       42,
		Event:    "APPROVE",
		Comments: 3,
		Summary:  "ship it",
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	subs, err := l.Query(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "octocat/hello", subs[0].Repo)
	assert.Equal(t, 42, subs[0].PR)
	assert.Equal(t, "APPROVE", subs[0].Event)
	assert.Equal(t, 3, subs[0].Comments)
	assert.Equal(t, "ship it", subs[0].Summary)
	assert.False(t, subs[0].SubmittedAt.IsZero(), "a zero timestamp is stamped on record")
}

func TestRecord_EmptyRepo(t *testing.T) {
	l := openTestLog(t)

	_, err := l.Record(t.Context(), Submission{PR: 1, Event: "COMMENT"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "repo is empty")
}

func TestQuery_Filters(t *testing.T) {
	l := openTestLog(t)
	ctx := t.Context()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	fixtures := []Submission{
		{Repo: "octocat/hello", PR: 1, Event: "COMMENT", SubmittedAt: base},
		{Repo: "octocat/hello", PR: 2, Event: "APPROVE", SubmittedAt: base.Add(24 * time.Hour)},
		{Repo: "octocat/other", PR: 9, Event: "REQUEST_CHANGES", SubmittedAt: base.Add(48 * time.Hour)},
	}
	for _, s := range fixtures {
		_, err := l.Record(ctx, s)
		require.NoError(t, err)
	}

	t.Run("newest first", func(t *testing.T) {
		subs, err := l.Query(ctx, QueryOptions{})
		require.NoError(t, err)
		require.Len(t, subs, 3)
		assert.Equal(t, 9, subs[0].PR)
		assert.Equal(t, 2, subs[1].PR)
		assert.Equal(t, 1, subs[2].PR)
	})

	t.Run("by repo", func(t *testing.T) {
		subs, err := l.Query(ctx, QueryOptions{Repo: "octocat/hello"})
		require.NoError(t, err)
		require.Len(t, subs, 2)
		for _, s := range subs {
			assert.Equal(t, "octocat/hello", s.Repo)
		}
	})

	t.Run("since", func(t *testing.T) {
		since := base.Add(12 * time.Hour)
		subs, err := l.Query(ctx, QueryOptions{Since: &since})
		require.NoError(t, err)
		require.Len(t, subs, 2)
		assert.Equal(t, 9, subs[0].PR)
	})

	t.Run("limit", func(t *testing.T) {
		subs, err := l.Query(ctx, QueryOptions{Limit: 1})
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, 9, subs[0].PR)
	})
}

func TestBuildQuery(t *testing.T) {
	l := &Log{}

	t.Run("no filters", func(t *testing.T) {
		query, args := l.buildQuery(QueryOptions{})
		assert.NotContains(t, query, "WHERE")
		assert.Contains(t, query, "ORDER BY submitted_at DESC")
		assert.Empty(t, args)
	})

	t.Run("repo filter", func(t *testing.T) {
		query, args := l.buildQuery(QueryOptions{Repo: "octocat/hello"})
		assert.Contains(t, query, "repo = ?")
		require.Len(t, args, 1)
		assert.Equal(t, "octocat/hello", args[0])
	})

	t.Run("since filter", func(t *testing.T) {
		since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		query, args := l.buildQuery(QueryOptions{Since: &since})
		assert.Contains(t, query, "submitted_at >= ?")
		require.Len(t, args, 1)
		assert.Equal(t, since.Unix(), args[0])
	})

	t.Run("combined", func(t *testing.T) {
		since := time.Now()
		query, args := l.buildQuery(QueryOptions{Repo: "a/b", Since: &since, Limit: 10})
		assert.Contains(t, query, "repo = ? AND submitted_at >= ?")
		assert.Contains(t, query, "LIMIT ?")
		assert.Len(t, args, 3)
	})
}

func TestQueryPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.db")
	ctx := t.Context()

	l, err := Open(path, false)
	require.NoError(t, err)
	_, err = l.Record(ctx, Submission{Repo: "octocat/hello", PR: 7, Event: "COMMENT"})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	reopened, err := Open(path, false)
	require.NoError(t, err)
	defer reopened.Close()

	subs, err := reopened.Query(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, 7, subs[0].PR)
}
