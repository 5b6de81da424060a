package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHistory_DefaultBound(t *testing.T) {
	assert.Equal(t, DefaultMaxEntries, NewHistory(0).Max)
	assert.Equal(t, DefaultMaxEntries, NewHistory(-1).Max)
	assert.Equal(t, 50, NewHistory(50).Max)
}

func TestHistoryAppend(t *testing.T) {
	h := NewHistory(10)

	h.Append("prs")
	h.Append("pr 42")
	h.Append("diff")

	assert.Equal(t, 3, h.Len())
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, "diff", last)
}

func TestHistoryAppend_SkipsBlankAndTrims(t *testing.T) {
	h := NewHistory(10)

	h.Append("")
	h.Append("   ")
	h.Append("  files  ")

	require.Equal(t, 1, h.Len())
	entry, ok := h.Entry(1)
	require.True(t, ok)
	assert.Equal(t, "files", entry)
}

func TestHistoryAppend_SkipsConsecutiveDuplicates(t *testing.T) {
	h := NewHistory(10)

	h.Append("next")
	h.Append("next")
	h.Append("diff")
	h.Append("next")

	assert.Equal(t, 3, h.Len(), "only back-to-back repeats are collapsed")
}

func TestHistoryAppend_TrimsOldestBeyondMax(t *testing.T) {
	h := NewHistory(3)

	for i := 1; i <= 5; i++ {
		h.Append(fmt.Sprintf("cmd%d", i))
	}

	require.Equal(t, 3, h.Len())
	first, ok := h.Entry(1)
	require.True(t, ok)
	assert.Equal(t, "cmd3", first, "the oldest entries are dropped first")
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, "cmd5", last)
}

func TestHistoryEntry_OneBased(t *testing.T) {
	h := NewHistory(10)
	h.Append("prs")
	h.Append("pr 7")

	_, ok := h.Entry(0)
	assert.False(t, ok)

	entry, ok := h.Entry(1)
	require.True(t, ok)
	assert.Equal(t, "prs", entry)

	entry, ok = h.Entry(2)
	require.True(t, ok)
	assert.Equal(t, "pr 7", entry)

	_, ok = h.Entry(3)
	assert.False(t, ok)
}

func TestHistoryLast_Empty(t *testing.T) {
	h := NewHistory(10)

	_, ok := h.Last()

	assert.False(t, ok)
}

func TestHistorySetMax_TrimsExisting(t *testing.T) {
	h := NewHistory(10)
	for i := 1; i <= 6; i++ {
		h.Append(fmt.Sprintf("cmd%d", i))
	}

	h.SetMax(2)

	require.Equal(t, 2, h.Len())
	first, ok := h.Entry(1)
	require.True(t, ok)
	assert.Equal(t, "cmd5", first)

	h.SetMax(0)
	assert.Equal(t, DefaultMaxEntries, h.Max)
}
