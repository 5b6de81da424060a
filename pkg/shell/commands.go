package shell

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	criterrors "thoreinstein.com/crit/pkg/errors"
	"thoreinstein.com/crit/pkg/github"
	"thoreinstein.com/crit/pkg/reviewlog"
	"thoreinstein.com/crit/pkg/session"
)

const reviewSystemPrompt = `You are a careful code reviewer. You are shown unified diffs from a GitHub pull request and asked questions about them.

Guidelines:
- Ground every claim in the diff you were shown. Say so when the diff does not contain the answer.
- Point at files and line numbers when discussing specific changes.
- Distinguish defects from style preferences.
- Be concise.`

// registerBuiltins adds the built-in command set to the dispatcher.
func registerBuiltins(d *Dispatcher) error {
	commands := []*Command{
		{Name: "prs", Short: "List pull requests", Usage: "prs [open|closed|merged|all]", Aliases: []string{"list"}, Run: cmdPRs},
		{Name: "pr", Short: "Select a pull request", Usage: "pr <number|url>", Aliases: []string{"select"}, MinArgs: 1, Run: cmdPR},
		{Name: "status", Short: "Show session status", Usage: "status", Aliases: []string{"st"}, Run: cmdStatus},
		{Name: "files", Short: "List the PR's changed files", Usage: "files", Aliases: []string{"ls"}, Run: cmdFiles},
		{Name: "file", Short: "Select a file by number or path", Usage: "file <number|path>", Aliases: []string{"f"}, MinArgs: 1, Run: cmdFile},
		{Name: "next", Short: "Select the next file", Usage: "next", Aliases: []string{"n"}, Run: cmdNext},
		{Name: "prev", Short: "Select the previous file", Usage: "prev", Aliases: []string{"p"}, Run: cmdPrev},
		{Name: "diff", Short: "Show the selected file's diff, or the whole PR's", Usage: "diff", Aliases: []string{"d"}, Run: cmdDiff},
		{Name: "comment", Short: "Add a review comment (line form needs a selected file)", Usage: "comment <text> | comment <line> <text>", Aliases: []string{"c"}, MinArgs: 1, Run: cmdComment},
		{Name: "comments", Short: "List pending comments", Usage: "comments", Run: cmdComments},
		{Name: "uncomment", Short: "Remove a pending comment", Usage: "uncomment <id-prefix>", MinArgs: 1, Run: cmdUncomment},
		{Name: "search", Short: "Search file paths by regex; no argument clears", Usage: "search [pattern]", Run: cmdSearch},
		{Name: "submit", Short: "Submit pending comments as a review", Usage: "submit [approve|request-changes|comment] [summary...]", Aliases: []string{"review"}, Run: cmdSubmit},
		{Name: "ask", Short: "Ask the AI assistant about the current diff", Usage: "ask <question>", Aliases: []string{"ai"}, MinArgs: 1, Run: cmdAsk},
		{Name: "history", Short: "Show command history", Usage: "history", Run: cmdHistory},
		{Name: "quit", Short: "Save the session and exit", Usage: "quit", Aliases: []string{"exit", "q"}, Run: cmdQuit},
	}

	for _, cmd := range commands {
		if err := d.Register(cmd); err != nil {
			return err
		}
	}

	// help closes over the dispatcher to list whatever is registered,
	// macros included
	return d.Register(&Command{
		Name:    "help",
		Short:   "Show available commands",
		Usage:   "help",
		Aliases: []string{"?"},
		Run: func(_ context.Context, env *Env, _ []string) error {
			writeHelp(env.Out, d.Commands())
			return nil
		},
	})
}

func cmdPRs(ctx context.Context, env *Env, args []string) error {
	state := "open"
	if len(args) > 0 {
		state = args[0]
	}

	prs, err := env.GitHub.ListPRs(ctx, github.ListPRsOptions{State: state, Limit: 30})
	if err != nil {
		return err
	}
	if len(prs) == 0 {
		fmt.Fprintln(env.Out, "No pull requests found.")
		return nil
	}

	writePRList(env.Out, prs)
	return nil
}

func cmdPR(ctx context.Context, env *Env, args []string) error {
	number, err := parsePRArg(args[0])
	if err != nil {
		return err
	}

	pr, err := env.GitHub.GetPR(ctx, number)
	if err != nil {
		return err
	}
	files, err := env.GitHub.ListPRFiles(ctx, number)
	if err != nil {
		return err
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Path
	}

	dropped := env.State.SelectPR(number, names)
	env.SetChangedFiles(number, files)

	fmt.Fprintf(env.Out, "PR #%d: %s\n", pr.Number, pr.Title)
	fmt.Fprintf(env.Out, "%s -> %s by %s, %d files (+%d -%d)\n",
		pr.HeadBranch, pr.BaseBranch, pr.Author, len(files), pr.Additions, pr.Deletions)
	reportDropped(env.Out, dropped)
	return nil
}

// parsePRArg accepts a plain number or a pasted PR URL.
func parsePRArg(arg string) (int, error) {
	if number, err := strconv.Atoi(arg); err == nil {
		if number < 1 {
			return 0, criterrors.Newf("invalid PR number: %d", number)
		}
		return number, nil
	}
	return github.ExtractPRNumber(arg)
}

func reportDropped(w io.Writer, dropped []session.Comment) {
	for _, c := range dropped {
		fmt.Fprintf(w, "Dropped comment on %s:%d (file no longer in PR): %s\n",
			c.Path, c.Line, truncate(c.Body, 40))
	}
}

func cmdStatus(_ context.Context, env *Env, _ []string) error {
	fmt.Fprintln(env.Out, env.State.Summary())
	if s := env.State.Search; s != nil {
		fmt.Fprintf(env.Out, "search: %q (%d matches)\n", s.Pattern, len(s.Matches))
	}
	if pushed := len(env.State.AllComments()) - len(env.State.LocalComments()); pushed > 0 {
		fmt.Fprintf(env.Out, "%d comments already pushed\n", pushed)
	}
	return nil
}

func cmdFiles(ctx context.Context, env *Env, _ []string) error {
	if !env.State.HasPR() {
		return criterrors.New("no PR selected")
	}
	if len(env.State.Files) == 0 {
		fmt.Fprintln(env.Out, "No changed files.")
		return nil
	}

	// per-file stats are a nicety; the listing works without them
	details, err := env.ChangedFiles(ctx)
	if err != nil && env.Verbose {
		fmt.Fprintf(env.Out, "Warning: file details unavailable: %v\n", err)
	}

	writeFileList(env.Out, env.State, details)
	return nil
}

func cmdFile(_ context.Context, env *Env, args []string) error {
	arg := strings.Join(args, " ")
	if index, err := strconv.Atoi(arg); err == nil {
		if err := env.State.SelectFile(index - 1); err != nil {
			return err
		}
	} else if err := env.State.SelectFileByName(arg); err != nil {
		return err
	}

	printSelectedFile(env)
	return nil
}

func cmdNext(_ context.Context, env *Env, _ []string) error {
	if err := env.State.NextFile(); err != nil {
		return err
	}
	printSelectedFile(env)
	return nil
}

func cmdPrev(_ context.Context, env *Env, _ []string) error {
	if err := env.State.PrevFile(); err != nil {
		return err
	}
	printSelectedFile(env)
	return nil
}

func printSelectedFile(env *Env) {
	st := env.State
	fmt.Fprintf(env.Out, "[%d/%d] %s\n", *st.FileIndex+1, len(st.Files), st.FileName)
}

func cmdDiff(ctx context.Context, env *Env, _ []string) error {
	st := env.State
	if !st.HasPR() {
		return criterrors.New("no PR selected")
	}

	var diff string
	var err error
	if st.HasFile() {
		diff, err = env.GitHub.GetFileDiff(ctx, *st.PR, st.FileName)
	} else {
		diff, err = env.GitHub.GetPRDiff(ctx, *st.PR)
	}
	if err != nil {
		return err
	}

	fmt.Fprint(env.Out, diff)
	if !strings.HasSuffix(diff, "\n") {
		fmt.Fprintln(env.Out)
	}
	return nil
}

func cmdComment(ctx context.Context, env *Env, args []string) error {
	st := env.State

	if line, err := strconv.Atoi(args[0]); err == nil && st.HasFile() {
		if len(args) < 2 {
			return criterrors.NewDispatchErrorWithUsage("comment", "comment <line> <text>", "missing comment text")
		}
		c, err := st.AddLineComment(st.FileName, line, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		warnUnchangedLine(ctx, env, c.Path, c.Line)
		fmt.Fprintf(env.Out, "Added comment %s on %s:%d\n", c.ShortID(), c.Path, c.Line)
		return nil
	}

	c, err := st.AddGlobalComment(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Added review comment %s\n", c.ShortID())
	return nil
}

// warnUnchangedLine warns when a line comment targets a line the PR does not
// add; GitHub rejects review comments outside the diff at submit time.
func warnUnchangedLine(ctx context.Context, env *Env, path string, line int) {
	files, err := env.ChangedFiles(ctx)
	if err != nil {
		return
	}
	for _, f := range files {
		if f.Path != path {
			continue
		}
		if f.Patch == "" {
			return // binary or oversized file, no line data to check against
		}
		if !github.ChangedLines(f.Patch)[line] {
			fmt.Fprintf(env.Out, "Warning: line %d of %s is not an added line in this PR; GitHub may reject it on submit\n",
				line, path)
		}
		return
	}
}

func cmdComments(_ context.Context, env *Env, _ []string) error {
	comments := env.State.LocalComments()
	if len(comments) == 0 {
		fmt.Fprintln(env.Out, "No pending comments.")
		return nil
	}
	writeComments(env.Out, comments)
	return nil
}

func cmdUncomment(_ context.Context, env *Env, args []string) error {
	removed, err := env.State.RemoveComment(args[0])
	if err != nil {
		return err
	}

	if removed.IsGlobal() {
		fmt.Fprintf(env.Out, "Removed review comment %s\n", removed.ShortID())
	} else {
		fmt.Fprintf(env.Out, "Removed comment %s on %s:%d\n", removed.ShortID(), removed.Path, removed.Line)
	}
	return nil
}

func cmdSearch(_ context.Context, env *Env, args []string) error {
	st := env.State
	if len(args) == 0 {
		st.ClearSearch()
		fmt.Fprintln(env.Out, "Search cleared.")
		return nil
	}
	if !st.HasPR() {
		return criterrors.New("no PR selected")
	}

	pattern := strings.Join(args, " ")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return criterrors.Newf("invalid pattern %q: %v", pattern, err)
	}

	var matches []int
	for i, path := range st.Files {
		if re.MatchString(path) {
			matches = append(matches, i)
		}
	}
	if err := st.SetSearch(pattern, matches); err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "%d of %d files match %q\n", len(matches), len(st.Files), pattern)
	printSelectedFile(env)
	return nil
}

func cmdSubmit(ctx context.Context, env *Env, args []string) error {
	st := env.State
	if !st.HasPR() {
		return criterrors.New("no PR selected")
	}

	event := ""
	if env.Config != nil {
		event = env.Config.Review.DefaultEvent
	}
	if len(args) > 0 {
		if _, ok := github.NormalizeEvent(args[0]); ok {
			event = args[0]
			args = args[1:]
		}
	}
	summary := strings.Join(args, " ")

	pending := st.LocalComments()
	req := buildReviewRequest(event, summary, pending)

	normalized, _ := github.NormalizeEvent(event)
	if normalized == github.EventComment && req.Body == "" && len(req.Comments) == 0 {
		return criterrors.New("nothing to submit; add comments or a summary first")
	}

	result, err := env.GitHub.SubmitReview(ctx, *st.PR, req)
	if err != nil {
		return err
	}

	ids := make([]string, len(pending))
	for i, c := range pending {
		ids[i] = c.ID
	}
	st.MarkPushed(ids)

	fmt.Fprintf(env.Out, "Review %s submitted", strings.ToLower(result.State))
	if result.URL != "" {
		fmt.Fprintf(env.Out, ": %s", result.URL)
	}
	fmt.Fprintln(env.Out)

	recordSubmission(ctx, env, normalized, req.Body, len(pending))
	return nil
}

// buildReviewRequest folds global comments into the review body and maps
// line comments to review comments.
func buildReviewRequest(event, summary string, pending []session.Comment) github.ReviewRequest {
	var bodyParts []string
	if summary != "" {
		bodyParts = append(bodyParts, summary)
	}

	var comments []github.ReviewComment
	for _, c := range pending {
		if c.IsGlobal() {
			bodyParts = append(bodyParts, c.Body)
		} else {
			comments = append(comments, github.ReviewComment{Path: c.Path, Line: c.Line, Body: c.Body})
		}
	}

	return github.ReviewRequest{
		Event:    event,
		Body:     strings.Join(bodyParts, "\n\n"),
		Comments: comments,
	}
}

// recordSubmission writes the review log entry. Failures only warn; the
// review itself already went through.
func recordSubmission(ctx context.Context, env *Env, event, body string, commentCount int) {
	if env.Reviews == nil {
		return
	}

	repo, err := env.Repo(ctx)
	if err != nil {
		fmt.Fprintf(env.Out, "Warning: review not logged: %v\n", err)
		return
	}

	_, err = env.Reviews.Record(ctx, reviewlog.Submission{
		Repo:     repo,
		PR:       *env.State.PR,
		Event:    event,
		Comments: commentCount,
		Summary:  truncate(body, 200),
	})
	if err != nil {
		fmt.Fprintf(env.Out, "Warning: review not logged: %v\n", err)
	}
}

func cmdAsk(ctx context.Context, env *Env, args []string) error {
	conv, err := env.Conversation()
	if err != nil {
		return err
	}

	content, err := askContext(ctx, env, strings.Join(args, " "))
	if err != nil {
		return err
	}
	conv.AddUserMessage(content)

	chunks, err := conv.Stream(ctx)
	if err != nil {
		return err
	}
	for chunk := range chunks {
		if chunk.Error != nil {
			fmt.Fprintln(env.Out)
			return chunk.Error
		}
		fmt.Fprint(env.Out, chunk.Content)
	}
	fmt.Fprintln(env.Out)
	return nil
}

// askContext prefixes the question with the current diff the first time the
// assistant is asked about a given selection. Later questions about the same
// selection ride on the conversation history.
func askContext(ctx context.Context, env *Env, prompt string) (string, error) {
	st := env.State
	if !st.HasPR() {
		return prompt, nil
	}

	key := fmt.Sprintf("%d:%s", *st.PR, st.FileName)
	if env.chatContext == key {
		return prompt, nil
	}

	var diff string
	var err error
	if st.HasFile() {
		diff, err = env.GitHub.GetFileDiff(ctx, *st.PR, st.FileName)
	} else {
		diff, err = env.GitHub.GetPRDiff(ctx, *st.PR)
	}
	if err != nil {
		return "", err
	}

	maxLines := 0
	if env.Config != nil {
		maxLines = env.Config.Review.MaxDiffLines
	}
	env.chatContext = key
	return fmt.Sprintf("Here is the diff under review:\n\n```diff\n%s\n```\n\n%s", capDiff(diff, maxLines), prompt), nil
}

// capDiff bounds the number of diff lines handed to the assistant.
func capDiff(diff string, maxLines int) string {
	if maxLines <= 0 {
		return diff
	}
	lines := strings.Split(diff, "\n")
	if len(lines) <= maxLines {
		return diff
	}
	return strings.Join(lines[:maxLines], "\n") + "\n... (diff truncated)"
}

func cmdHistory(_ context.Context, env *Env, _ []string) error {
	if env.History.Len() == 0 {
		fmt.Fprintln(env.Out, "No history yet.")
		return nil
	}
	for i, entry := range env.History.Entries {
		fmt.Fprintf(env.Out, "%4d  %s\n", i+1, entry)
	}
	return nil
}

func cmdQuit(_ context.Context, _ *Env, _ []string) error {
	return ErrQuit
}
