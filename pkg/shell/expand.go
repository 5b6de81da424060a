package shell

import (
	"regexp"
	"strconv"
	"strings"

	criterrors "thoreinstein.com/crit/pkg/errors"
)

// expandRE matches a history back-reference as the entire first field: `!!`
// or `!n`. A bare `!` or anything like `!x` falls through to normal dispatch.
var expandRE = regexp.MustCompile(`^!(!|\d+)$`)

// Expand resolves a history back-reference in line against hist (oldest
// first). `!!` is the most recent entry, `!n` the n-th entry using the same
// 1-based numbering the history command prints. The remainder of the line is
// appended after the expansion. The bool reports whether an expansion
// happened; expansion is not recursive.
func Expand(line string, hist []string) (string, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return line, false, nil
	}

	fields := strings.Fields(trimmed)
	m := expandRE.FindStringSubmatch(fields[0])
	if m == nil {
		return line, false, nil
	}

	var entry string
	if m[1] == "!" {
		if len(hist) == 0 {
			return "", false, criterrors.NewDispatchError(fields[0], "history is empty")
		}
		entry = hist[len(hist)-1]
	} else {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(hist) {
			return "", false, criterrors.NewDispatchError(fields[0], "no such history entry (see 'history')")
		}
		entry = hist[n-1]
	}

	if rest := strings.TrimSpace(trimmed[len(fields[0]):]); rest != "" {
		entry = entry + " " + rest
	}
	return entry, true, nil
}
