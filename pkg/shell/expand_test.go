package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_NoReference(t *testing.T) {
	hist := []string{"files", "diff"}

	tests := []struct {
		name string
		line string
	}{
		{"plain command", "comment looks good"},
		{"empty line", ""},
		{"bare bang", "!"},
		{"bang word", "!files"},
		{"bang digits with suffix", "!2x"},
		{"reference not in first field", "comment see !2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, expanded, err := Expand(tt.line, hist)
			require.NoError(t, err)
			assert.False(t, expanded)
			assert.Equal(t, tt.line, got)
		})
	}
}

func TestExpand_BangBang(t *testing.T) {
	got, expanded, err := Expand("!!", []string{"files", "diff"})
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.Equal(t, "diff", got)
}

func TestExpand_BangN(t *testing.T) {
	hist := []string{"files", "diff", "comments"}

	got, expanded, err := Expand("!1", hist)
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.Equal(t, "files", got)

	got, expanded, err = Expand("!3", hist)
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.Equal(t, "comments", got)
}

func TestExpand_AppendsRemainder(t *testing.T) {
	got, expanded, err := Expand("!1 closed", []string{"prs"})
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.Equal(t, "prs closed", got)
}

func TestExpand_Whitespace(t *testing.T) {
	got, expanded, err := Expand("   !!   ", []string{"status"})
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.Equal(t, "status", got)
}

func TestExpand_EmptyHistory(t *testing.T) {
	_, _, err := Expand("!!", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history is empty")
}

func TestExpand_OutOfRange(t *testing.T) {
	hist := []string{"files", "diff"}

	for _, line := range []string{"!0", "!3", "!99"} {
		_, _, err := Expand(line, hist)
		require.Error(t, err, line)
		assert.Contains(t, err.Error(), "no such history entry")
	}
}

func TestExpand_NotRecursive(t *testing.T) {
	// An entry that itself looks like a reference comes back literally.
	got, expanded, err := Expand("!1", []string{"!2", "diff"})
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.Equal(t, "!2", got)
}
