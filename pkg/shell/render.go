package shell

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"thoreinstein.com/crit/pkg/github"
	"thoreinstein.com/crit/pkg/session"
)

// writePRList formats a PR table.
func writePRList(w io.Writer, prs []github.PRInfo) {
	const titleWidth = 50

	fmt.Fprintf(w, "%-6s  %-6s  %-*s  %-14s  %s\n", "#", "STATE", titleWidth, "TITLE", "AUTHOR", "UPDATED")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, pr := range prs {
		state := strings.ToLower(pr.State)
		if pr.Draft && state == "open" {
			state = "draft"
		}

		fmt.Fprintf(w, "#%-5d  %-6s  %-*s  %-14s  %s\n",
			pr.Number,
			state,
			titleWidth, truncate(pr.Title, titleWidth),
			truncate(pr.Author, 14),
			humanize.Time(pr.UpdatedAt),
		)
	}

	fmt.Fprintf(w, "\nTotal: %d PR(s)\n", len(prs))
}

// writeFileList prints the changed files, 1-based as the file command takes
// them, with a marker on the selection and per-file stats when available.
func writeFileList(w io.Writer, st *session.State, details []github.PRFile) {
	byPath := make(map[string]github.PRFile, len(details))
	for _, f := range details {
		byPath[f.Path] = f
	}

	for i, path := range st.Files {
		marker := " "
		if st.HasFile() && *st.FileIndex == i {
			marker = ">"
		}

		line := fmt.Sprintf("%s %3d  %s", marker, i+1, path)
		if f, ok := byPath[path]; ok {
			line += fmt.Sprintf("  [%s +%d -%d]", statusLetter(f.Status), f.Additions, f.Deletions)
		}
		if n := st.FileCommentCount(path); n > 0 {
			line += fmt.Sprintf("  (%d comments)", n)
		}
		fmt.Fprintln(w, line)
	}
}

func statusLetter(status string) string {
	switch status {
	case "added":
		return "A"
	case "removed":
		return "D"
	case "renamed":
		return "R"
	case "modified":
		return "M"
	case "":
		return "?"
	default:
		return strings.ToUpper(status[:1])
	}
}

// writeComments lists pending comments with the short IDs uncomment takes.
func writeComments(w io.Writer, comments []session.Comment) {
	for _, c := range comments {
		position := "(review)"
		if !c.IsGlobal() {
			position = fmt.Sprintf("%s:%d", c.Path, c.Line)
		}
		fmt.Fprintf(w, "[%s]  %-40s  %s\n", c.ShortID(), position, c.Body)
	}
	fmt.Fprintf(w, "\n%d pending comment(s)\n", len(comments))
}

func writeHelp(w io.Writer, commands []*Command) {
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		name := cmd.Name
		if len(cmd.Aliases) > 0 {
			name += " (" + strings.Join(cmd.Aliases, ", ") + ")"
		}
		fmt.Fprintf(w, "  %-26s %s\n", name, cmd.Short)
	}
	fmt.Fprintln(w, "\n!! repeats the last command; !n runs entry n from 'history'.")
}

// truncate shortens s to max characters, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
