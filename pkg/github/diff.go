package github

import (
	"regexp"
	"strconv"
	"strings"
)

// FileDiff is one file's section of a unified diff.
type FileDiff struct {
	Path    string // New-side path; falls back to the old path for deleted files
	OldPath string // Old-side path; empty for added files
	Diff    string // Full section text including the diff --git header
}

// hunkHeaderRE matches a unified diff hunk header and captures the
// new-side start line. The count is omitted when it is 1.
var hunkHeaderRE = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// SplitDiff splits a multi-file unified diff into per-file sections,
// preserving the order of the input.
func SplitDiff(diff string) []FileDiff {
	lines := strings.Split(diff, "\n")

	var starts []int
	for i, line := range lines {
		if strings.HasPrefix(line, "diff --git ") {
			starts = append(starts, i)
		}
	}

	out := make([]FileDiff, 0, len(starts))
	for si, start := range starts {
		end := len(lines)
		if si+1 < len(starts) {
			end = starts[si+1]
		}
		out = append(out, parseFileDiff(lines[start:end]))
	}

	return out
}

// parseFileDiff extracts paths from one file section's header lines.
// Header parsing stops at the first hunk because hunk content lines can
// themselves start with "---" or "+++".
func parseFileDiff(section []string) FileDiff {
	fd := FileDiff{Diff: strings.Join(section, "\n")}

	for _, line := range section {
		if strings.HasPrefix(line, "@@") {
			break
		}
		switch {
		case strings.HasPrefix(line, "--- "):
			fd.OldPath = trimDiffPath(strings.TrimPrefix(line, "--- "), "a/")
		case strings.HasPrefix(line, "+++ "):
			fd.Path = trimDiffPath(strings.TrimPrefix(line, "+++ "), "b/")
		}
	}

	// Deleted files have "+++ /dev/null"
	if fd.Path == "" && fd.OldPath != "" {
		fd.Path = fd.OldPath
	}

	// Binary and mode-only changes have no ---/+++ lines at all
	if fd.Path == "" && len(section) > 0 {
		fd.Path = pathFromDiffHeader(section[0])
	}

	return fd
}

// trimDiffPath cleans a path taken from a ---/+++ header line.
func trimDiffPath(p, prefix string) string {
	p = strings.TrimSuffix(p, "\t")
	if p == "/dev/null" {
		return ""
	}
	return strings.TrimPrefix(p, prefix)
}

// pathFromDiffHeader extracts the new-side path from a "diff --git a/x b/y" line.
func pathFromDiffHeader(header string) string {
	rest := strings.TrimPrefix(header, "diff --git ")
	if idx := strings.LastIndex(rest, " b/"); idx >= 0 {
		return rest[idx+len(" b/"):]
	}
	return ""
}

// ChangedLines returns the set of new-side line numbers added by a file
// patch. Accepts either bare hunks (as returned by the files API) or a
// full file section including headers.
func ChangedLines(patch string) map[int]bool {
	added := make(map[int]bool)
	newLine := 0
	inHunk := false

	for _, line := range strings.Split(patch, "\n") {
		if m := hunkHeaderRE.FindStringSubmatch(line); m != nil {
			newLine, _ = strconv.Atoi(m[3])
			inHunk = true
			continue
		}
		if strings.HasPrefix(line, "diff --git ") {
			inHunk = false
			continue
		}
		if !inHunk {
			continue
		}

		switch {
		case strings.HasPrefix(line, "+"):
			added[newLine] = true
			newLine++
		case strings.HasPrefix(line, "-"):
			// Old-side line; does not advance the new file
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file" marker
		default:
			// Context line
			newLine++
		}
	}

	return added
}
