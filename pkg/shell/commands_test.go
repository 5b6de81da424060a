package shell

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoreinstein.com/crit/pkg/ai"
	"thoreinstein.com/crit/pkg/config"
	criterrors "thoreinstein.com/crit/pkg/errors"
	"thoreinstein.com/crit/pkg/github"
	"thoreinstein.com/crit/pkg/reviewlog"
	"thoreinstein.com/crit/pkg/session"
)

// mainPatch adds lines 2 and 3 on the new side.
const mainPatch = "@@ -1,3 +1,5 @@\n package main\n+\n+func retry() {}\n \n func main() {}"

// mockClient implements github.Client with canned review data. Tests override
// individual calls through the func fields.
type mockClient struct {
	getRepoFunc      func(ctx context.Context) (string, string, error)
	listPRsFunc      func(ctx context.Context, opts github.ListPRsOptions) ([]github.PRInfo, error)
	getPRFunc        func(ctx context.Context, number int) (*github.PRInfo, error)
	listPRFilesFunc  func(ctx context.Context, number int) ([]github.PRFile, error)
	getPRDiffFunc    func(ctx context.Context, number int) (string, error)
	getFileDiffFunc  func(ctx context.Context, number int, path string) (string, error)
	submitReviewFunc func(ctx context.Context, number int, req github.ReviewRequest) (*github.ReviewResult, error)
}

func (m *mockClient) IsAuthenticated() bool { return true }

func (m *mockClient) GetCurrentRepo(ctx context.Context) (string, string, error) {
	if m.getRepoFunc != nil {
		return m.getRepoFunc(ctx)
	}
	return "octocat", "hello", nil
}

func (m *mockClient) ListPRs(ctx context.Context, opts github.ListPRsOptions) ([]github.PRInfo, error) {
	if m.listPRsFunc != nil {
		return m.listPRsFunc(ctx, opts)
	}
	return []github.PRInfo{
		{Number: 42, Title: "Add retry to fetcher", State: "OPEN", Author: "octocat", UpdatedAt: time.Now()},
	}, nil
}

func (m *mockClient) GetPR(ctx context.Context, number int) (*github.PRInfo, error) {
	if m.getPRFunc != nil {
		return m.getPRFunc(ctx, number)
	}
	return &github.PRInfo{
		Number:     number,
		Title:      "Add retry to fetcher",
		State:      "OPEN",
		Author:     "octocat",
		HeadBranch: "feature/retry",
		BaseBranch: "main",
		Additions:  10,
		Deletions:  2,
	}, nil
}

func (m *mockClient) ListPRFiles(ctx context.Context, number int) ([]github.PRFile, error) {
	if m.listPRFilesFunc != nil {
		return m.listPRFilesFunc(ctx, number)
	}
	return []github.PRFile{
		{Path: "main.go", Status: "modified", Additions: 2, Deletions: 0, Patch: mainPatch},
		{Path: "docs/readme.md", Status: "added", Additions: 8, Deletions: 0},
	}, nil
}

func (m *mockClient) GetPRDiff(ctx context.Context, number int) (string, error) {
	if m.getPRDiffFunc != nil {
		return m.getPRDiffFunc(ctx, number)
	}
	return "diff --git a/main.go b/main.go\n" + mainPatch + "\n", nil
}

func (m *mockClient) GetFileDiff(ctx context.Context, number int, path string) (string, error) {
	if m.getFileDiffFunc != nil {
		return m.getFileDiffFunc(ctx, number, path)
	}
	return "diff --git a/" + path + " b/" + path + "\n" + mainPatch + "\n", nil
}

func (m *mockClient) SubmitReview(ctx context.Context, number int, req github.ReviewRequest) (*github.ReviewResult, error) {
	if m.submitReviewFunc != nil {
		return m.submitReviewFunc(ctx, number, req)
	}
	return &github.ReviewResult{ID: 99, State: "COMMENTED"}, nil
}

func newTestEnv(t *testing.T, client github.Client) (*Env, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}
	return &Env{
		Config: &config.Config{
			Review:  config.ReviewConfig{DefaultEvent: "comment", MaxDiffLines: 400},
			History: config.HistoryConfig{MaxEntries: 100},
		},
		GitHub:  client,
		State:   &session.State{},
		History: session.NewHistory(100),
		Store:   session.NewStore(t.TempDir()),
		Out:     out,
	}, out
}

func selectPR(t *testing.T, env *Env, number int) {
	t.Helper()
	require.NoError(t, cmdPR(t.Context(), env, []string{strconv.Itoa(number)}))
}

func TestCmdPR(t *testing.T) {
	env, out := newTestEnv(t, &mockClient{})

	require.NoError(t, cmdPR(t.Context(), env, []string{"42"}))

	require.True(t, env.State.HasPR())
	assert.Equal(t, 42, *env.State.PR)
	assert.Equal(t, []string{"main.go", "docs/readme.md"}, env.State.Files)
	assert.Contains(t, out.String(), "PR #42: Add retry to fetcher")
	assert.Contains(t, out.String(), "feature/retry -> main by octocat, 2 files (+10 -2)")
}

func TestCmdPR_AcceptsURL(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})

	require.NoError(t, cmdPR(t.Context(), env, []string{"https://github.com/octocat/hello/pull/7"}))
	assert.Equal(t, 7, *env.State.PR)
}

func TestCmdPR_ReportsDroppedComments(t *testing.T) {
	client := &mockClient{}
	env, out := newTestEnv(t, client)
	selectPR(t, env, 42)

	_, err := env.State.AddLineComment("main.go", 3, "retry needs a cap")
	require.NoError(t, err)

	// Re-select after a force-push that removed main.go from the PR.
	client.listPRFilesFunc = func(context.Context, int) ([]github.PRFile, error) {
		return []github.PRFile{{Path: "docs/readme.md", Status: "added"}}, nil
	}
	out.Reset()
	selectPR(t, env, 42)

	assert.Contains(t, out.String(), "Dropped comment on main.go:3 (file no longer in PR): retry needs a cap")
	assert.Empty(t, env.State.LocalComments())
}

func TestParsePRArg(t *testing.T) {
	number, err := parsePRArg("42")
	require.NoError(t, err)
	assert.Equal(t, 42, number)

	number, err = parsePRArg("https://github.com/octocat/hello/pull/7")
	require.NoError(t, err)
	assert.Equal(t, 7, number)

	_, err = parsePRArg("0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PR number")

	_, err = parsePRArg("not-a-pr")
	require.Error(t, err)
}

func TestCmdPRs(t *testing.T) {
	var gotOpts github.ListPRsOptions
	client := &mockClient{
		listPRsFunc: func(_ context.Context, opts github.ListPRsOptions) ([]github.PRInfo, error) {
			gotOpts = opts
			return []github.PRInfo{
				{Number: 42, Title: "Add retry to fetcher", State: "OPEN", Author: "octocat", UpdatedAt: time.Now()},
				{Number: 41, Title: "Fix flaky watcher test", State: "OPEN", Draft: true, Author: "hubot", UpdatedAt: time.Now().Add(-time.Hour)},
			}, nil
		},
	}
	env, out := newTestEnv(t, client)

	require.NoError(t, cmdPRs(t.Context(), env, nil))
	assert.Equal(t, "open", gotOpts.State)
	assert.Equal(t, 30, gotOpts.Limit)
	assert.Contains(t, out.String(), "#42")
	assert.Contains(t, out.String(), "draft")
	assert.Contains(t, out.String(), "Total: 2 PR(s)")

	require.NoError(t, cmdPRs(t.Context(), env, []string{"closed"}))
	assert.Equal(t, "closed", gotOpts.State)
}

func TestCmdPRs_Empty(t *testing.T) {
	client := &mockClient{
		listPRsFunc: func(context.Context, github.ListPRsOptions) ([]github.PRInfo, error) {
			return nil, nil
		},
	}
	env, out := newTestEnv(t, client)

	require.NoError(t, cmdPRs(t.Context(), env, nil))
	assert.Contains(t, out.String(), "No pull requests found.")
}

func TestCmdStatus(t *testing.T) {
	env, out := newTestEnv(t, &mockClient{})

	require.NoError(t, cmdStatus(t.Context(), env, nil))
	assert.Contains(t, out.String(), "no PR selected")

	selectPR(t, env, 42)
	_, err := env.State.AddGlobalComment("pending one")
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, cmdStatus(t.Context(), env, nil))
	assert.Contains(t, out.String(), "PR #42, 2 files, 1 pending comments")
}

func TestCmdFiles(t *testing.T) {
	env, out := newTestEnv(t, &mockClient{})
	selectPR(t, env, 42)
	require.NoError(t, cmdFile(t.Context(), env, []string{"2"}))
	_, err := env.State.AddLineComment("main.go", 3, "cap retries")
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, cmdFiles(t.Context(), env, nil))

	assert.Contains(t, out.String(), "   1  main.go  [M +2 -0]  (1 comments)")
	assert.Contains(t, out.String(), ">   2  docs/readme.md  [A +8 -0]")
}

func TestCmdFiles_NoPR(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})

	err := cmdFiles(t.Context(), env, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PR selected")
}

func TestCmdFile(t *testing.T) {
	env, out := newTestEnv(t, &mockClient{})
	selectPR(t, env, 42)

	require.NoError(t, cmdFile(t.Context(), env, []string{"2"}))
	assert.Equal(t, "docs/readme.md", env.State.FileName)
	assert.Contains(t, out.String(), "[2/2] docs/readme.md")

	require.NoError(t, cmdFile(t.Context(), env, []string{"main.go"}))
	assert.Equal(t, "main.go", env.State.FileName)
}

func TestCmdNextPrev(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})
	selectPR(t, env, 42)

	require.NoError(t, cmdNext(t.Context(), env, nil))
	assert.Equal(t, "main.go", env.State.FileName)
	require.NoError(t, cmdNext(t.Context(), env, nil))
	assert.Equal(t, "docs/readme.md", env.State.FileName)
	require.NoError(t, cmdNext(t.Context(), env, nil))
	assert.Equal(t, "main.go", env.State.FileName, "next should wrap around")
	require.NoError(t, cmdPrev(t.Context(), env, nil))
	assert.Equal(t, "docs/readme.md", env.State.FileName, "prev should wrap around")
}

func TestCmdDiff(t *testing.T) {
	var gotPath string
	prDiffCalls := 0
	client := &mockClient{
		getPRDiffFunc: func(context.Context, int) (string, error) {
			prDiffCalls++
			return "pr diff\n", nil
		},
		getFileDiffFunc: func(_ context.Context, _ int, path string) (string, error) {
			gotPath = path
			return "file diff", nil
		},
	}
	env, out := newTestEnv(t, client)
	selectPR(t, env, 42)

	// No file selected: whole-PR diff.
	require.NoError(t, cmdDiff(t.Context(), env, nil))
	assert.Equal(t, 1, prDiffCalls)
	assert.Contains(t, out.String(), "pr diff\n")

	require.NoError(t, cmdFile(t.Context(), env, []string{"1"}))
	out.Reset()
	require.NoError(t, cmdDiff(t.Context(), env, nil))
	assert.Equal(t, "main.go", gotPath)
	assert.Equal(t, "file diff\n", out.String(), "missing trailing newline should be added")
}

func TestCmdDiff_NoPR(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})

	err := cmdDiff(t.Context(), env, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PR selected")
}

func TestCmdComment_Global(t *testing.T) {
	env, out := newTestEnv(t, &mockClient{})
	selectPR(t, env, 42)

	require.NoError(t, cmdComment(t.Context(), env, []string{"overall", "looks", "fine"}))

	comments := env.State.LocalComments()
	require.Len(t, comments, 1)
	assert.Equal(t, "overall looks fine", comments[0].Body)
	assert.True(t, comments[0].IsGlobal())
	assert.Contains(t, out.String(), "Added review comment")
}

func TestCmdComment_Line(t *testing.T) {
	env, out := newTestEnv(t, &mockClient{})
	selectPR(t, env, 42)
	require.NoError(t, cmdFile(t.Context(), env, []string{"1"}))

	require.NoError(t, cmdComment(t.Context(), env, []string{"3", "retry", "needs", "a", "cap"}))

	comments := env.State.LocalComments()
	require.Len(t, comments, 1)
	assert.Equal(t, "main.go", comments[0].Path)
	assert.Equal(t, 3, comments[0].Line)
	assert.Equal(t, "retry needs a cap", comments[0].Body)
	assert.Contains(t, out.String(), "on main.go:3")
	assert.NotContains(t, out.String(), "Warning", "line 3 is an added line")
}

func TestCmdComment_WarnsUnchangedLine(t *testing.T) {
	env, out := newTestEnv(t, &mockClient{})
	selectPR(t, env, 42)
	require.NoError(t, cmdFile(t.Context(), env, []string{"1"}))

	require.NoError(t, cmdComment(t.Context(), env, []string{"5", "nit"}))

	assert.Contains(t, out.String(), "line 5 of main.go is not an added line")
	assert.Len(t, env.State.LocalComments(), 1, "the comment is still recorded")
}

func TestCmdComment_LineNeedsText(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})
	selectPR(t, env, 42)
	require.NoError(t, cmdFile(t.Context(), env, []string{"1"}))

	err := cmdComment(t.Context(), env, []string{"3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing comment text")
}

func TestCmdComment_NumberWithoutFileIsGlobal(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})
	selectPR(t, env, 42)

	require.NoError(t, cmdComment(t.Context(), env, []string{"3"}))

	comments := env.State.LocalComments()
	require.Len(t, comments, 1)
	assert.True(t, comments[0].IsGlobal())
	assert.Equal(t, "3", comments[0].Body)
}

func TestCmdComments(t *testing.T) {
	env, out := newTestEnv(t, &mockClient{})

	require.NoError(t, cmdComments(t.Context(), env, nil))
	assert.Contains(t, out.String(), "No pending comments.")

	selectPR(t, env, 42)
	_, err := env.State.AddGlobalComment("solid change")
	require.NoError(t, err)
	_, err = env.State.AddLineComment("main.go", 3, "cap the retries")
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, cmdComments(t.Context(), env, nil))
	assert.Contains(t, out.String(), "(review)")
	assert.Contains(t, out.String(), "main.go:3")
	assert.Contains(t, out.String(), "2 pending comment(s)")
}

func TestCmdUncomment(t *testing.T) {
	env, out := newTestEnv(t, &mockClient{})
	selectPR(t, env, 42)
	c, err := env.State.AddGlobalComment("drop me")
	require.NoError(t, err)

	require.NoError(t, cmdUncomment(t.Context(), env, []string{c.ShortID()}))
	assert.Contains(t, out.String(), "Removed review comment")
	assert.Empty(t, env.State.LocalComments())
}

func TestCmdSearch(t *testing.T) {
	client := &mockClient{
		listPRFilesFunc: func(context.Context, int) ([]github.PRFile, error) {
			return []github.PRFile{{Path: "a.go"}, {Path: "b.md"}, {Path: "c.go"}}, nil
		},
	}
	env, out := newTestEnv(t, client)
	selectPR(t, env, 42)

	require.NoError(t, cmdSearch(t.Context(), env, []string{`\.go$`}))
	assert.Contains(t, out.String(), `2 of 3 files match "\.go$"`)
	assert.Equal(t, "a.go", env.State.FileName)

	// next and prev walk the matches only.
	require.NoError(t, cmdNext(t.Context(), env, nil))
	assert.Equal(t, "c.go", env.State.FileName)
	require.NoError(t, cmdNext(t.Context(), env, nil))
	assert.Equal(t, "a.go", env.State.FileName)

	out.Reset()
	require.NoError(t, cmdSearch(t.Context(), env, nil))
	assert.Contains(t, out.String(), "Search cleared.")
	assert.Nil(t, env.State.Search)
}

func TestCmdSearch_NoMatch(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})
	selectPR(t, env, 42)

	err := cmdSearch(t.Context(), env, []string{"zzz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no files match "zzz"`)
}

func TestCmdSearch_InvalidPattern(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})
	selectPR(t, env, 42)

	err := cmdSearch(t.Context(), env, []string{"["})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestCmdSubmit(t *testing.T) {
	var captured github.ReviewRequest
	client := &mockClient{
		submitReviewFunc: func(_ context.Context, _ int, req github.ReviewRequest) (*github.ReviewResult, error) {
			captured = req
			return &github.ReviewResult{ID: 7, State: "APPROVED", URL: "https://github.com/octocat/hello/pull/42#pullrequestreview-7"}, nil
		},
	}
	env, out := newTestEnv(t, client)
	selectPR(t, env, 42)

	_, err := env.State.AddGlobalComment("solid change")
	require.NoError(t, err)
	_, err = env.State.AddLineComment("main.go", 3, "cap the retries")
	require.NoError(t, err)

	require.NoError(t, cmdSubmit(t.Context(), env, []string{"approve", "ship", "it"}))

	assert.Equal(t, "approve", captured.Event)
	assert.Equal(t, "ship it\n\nsolid change", captured.Body)
	require.Len(t, captured.Comments, 1)
	assert.Equal(t, github.ReviewComment{Path: "main.go", Line: 3, Body: "cap the retries"}, captured.Comments[0])

	assert.Contains(t, out.String(), "Review approved submitted: https://github.com/octocat/hello/pull/42#pullrequestreview-7")
	assert.Empty(t, env.State.LocalComments(), "submitted comments are marked pushed")
	assert.Len(t, env.State.AllComments(), 2)
}

func TestCmdSubmit_BareApprove(t *testing.T) {
	var captured github.ReviewRequest
	client := &mockClient{
		submitReviewFunc: func(_ context.Context, _ int, req github.ReviewRequest) (*github.ReviewResult, error) {
			captured = req
			return &github.ReviewResult{ID: 7, State: "APPROVED"}, nil
		},
	}
	env, _ := newTestEnv(t, client)
	selectPR(t, env, 42)

	require.NoError(t, cmdSubmit(t.Context(), env, []string{"approve"}))
	assert.Equal(t, "approve", captured.Event)
	assert.Empty(t, captured.Body)
	assert.Empty(t, captured.Comments)
}

func TestCmdSubmit_DefaultEvent(t *testing.T) {
	var captured github.ReviewRequest
	client := &mockClient{
		submitReviewFunc: func(_ context.Context, _ int, req github.ReviewRequest) (*github.ReviewResult, error) {
			captured = req
			return &github.ReviewResult{ID: 7, State: "COMMENTED"}, nil
		},
	}
	env, _ := newTestEnv(t, client)
	selectPR(t, env, 42)

	// First word is not an event name, so the whole line is the summary.
	require.NoError(t, cmdSubmit(t.Context(), env, []string{"looks", "good"}))
	assert.Equal(t, "comment", captured.Event)
	assert.Equal(t, "looks good", captured.Body)
}

func TestCmdSubmit_NothingToSubmit(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})
	selectPR(t, env, 42)

	err := cmdSubmit(t.Context(), env, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to submit")
}

func TestCmdSubmit_NoPR(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})

	err := cmdSubmit(t.Context(), env, []string{"approve"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PR selected")
}

func TestCmdSubmit_RecordsLog(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})
	log, err := reviewlog.Open(filepath.Join(t.TempDir(), "reviews.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	env.Reviews = log

	selectPR(t, env, 42)
	_, err = env.State.AddGlobalComment("nice")
	require.NoError(t, err)
	require.NoError(t, cmdSubmit(t.Context(), env, nil))

	subs, err := log.Query(t.Context(), reviewlog.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "octocat/hello", subs[0].Repo)
	assert.Equal(t, 42, subs[0].PR)
	assert.Equal(t, github.EventComment, subs[0].Event)
	assert.Equal(t, 1, subs[0].Comments)
	assert.Equal(t, "nice", subs[0].Summary)
}

func TestCmdSubmit_LogFailureOnlyWarns(t *testing.T) {
	client := &mockClient{
		getRepoFunc: func(context.Context) (string, string, error) {
			return "", "", criterrors.New("not a git repository")
		},
	}
	env, out := newTestEnv(t, client)
	log, err := reviewlog.Open(filepath.Join(t.TempDir(), "reviews.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	env.Reviews = log

	selectPR(t, env, 42)
	_, err = env.State.AddGlobalComment("nice")
	require.NoError(t, err)

	require.NoError(t, cmdSubmit(t.Context(), env, nil), "a log failure must not fail the submit")
	assert.Contains(t, out.String(), "Warning: review not logged")

	subs, err := log.Query(t.Context(), reviewlog.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestBuildReviewRequest(t *testing.T) {
	pending := []session.Comment{
		{ID: "1", Body: "global one"},
		{ID: "2", Body: "needs a test", Path: "a.go", Line: 4},
		{ID: "3", Body: "global two"},
	}

	req := buildReviewRequest("approve", "summary line", pending)

	assert.Equal(t, "approve", req.Event)
	assert.Equal(t, "summary line\n\nglobal one\n\nglobal two", req.Body)
	require.Len(t, req.Comments, 1)
	assert.Equal(t, github.ReviewComment{Path: "a.go", Line: 4, Body: "needs a test"}, req.Comments[0])
}

func TestBuildReviewRequest_Empty(t *testing.T) {
	req := buildReviewRequest("comment", "", nil)
	assert.Empty(t, req.Body)
	assert.Empty(t, req.Comments)
}

func TestCapDiff(t *testing.T) {
	diff := "a\nb\nc\nd"

	assert.Equal(t, diff, capDiff(diff, 0), "zero means no cap")
	assert.Equal(t, diff, capDiff(diff, 4))
	assert.Equal(t, diff, capDiff(diff, 10))
	assert.Equal(t, "a\nb\n... (diff truncated)", capDiff(diff, 2))
}

func TestCmdHistory(t *testing.T) {
	env, out := newTestEnv(t, &mockClient{})

	require.NoError(t, cmdHistory(t.Context(), env, nil))
	assert.Contains(t, out.String(), "No history yet.")

	env.History.Append("prs")
	env.History.Append("pr 42")
	out.Reset()
	require.NoError(t, cmdHistory(t.Context(), env, nil))
	assert.Contains(t, out.String(), "   1  prs\n")
	assert.Contains(t, out.String(), "   2  pr 42\n")
}

func TestCmdQuit(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})

	err := cmdQuit(t.Context(), env, nil)
	assert.True(t, criterrors.Is(err, ErrQuit))
}

// fakeProvider streams canned chunks and records the messages it was sent.
type fakeProvider struct {
	lastMessages []ai.Message
	chunks       []string
}

func (p *fakeProvider) IsAvailable() bool { return true }
func (p *fakeProvider) Name() string      { return "fake" }

func (p *fakeProvider) Chat(_ context.Context, messages []ai.Message) (*ai.Response, error) {
	p.lastMessages = messages
	return &ai.Response{Content: strings.Join(p.chunks, "")}, nil
}

func (p *fakeProvider) StreamChat(_ context.Context, messages []ai.Message) (<-chan ai.StreamChunk, error) {
	p.lastMessages = messages
	ch := make(chan ai.StreamChunk, len(p.chunks)+1)
	for _, c := range p.chunks {
		ch <- ai.StreamChunk{Content: c}
	}
	ch <- ai.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func TestCmdAsk_NoProvider(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})

	err := cmdAsk(t.Context(), env, []string{"what", "changed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no AI provider configured")
}

func TestCmdAsk_SeedsDiffOncePerSelection(t *testing.T) {
	provider := &fakeProvider{chunks: []string{"looks ", "fine"}}
	env, out := newTestEnv(t, &mockClient{})
	env.AI = provider
	selectPR(t, env, 42)

	require.NoError(t, cmdAsk(t.Context(), env, []string{"any", "risks?"}))
	assert.Contains(t, out.String(), "looks fine")

	// The first question about a selection carries the diff.
	last := provider.lastMessages[len(provider.lastMessages)-1]
	assert.Contains(t, last.Content, "```diff")
	assert.Contains(t, last.Content, "any risks?")

	require.NoError(t, cmdAsk(t.Context(), env, []string{"sure?"}))
	last = provider.lastMessages[len(provider.lastMessages)-1]
	assert.Equal(t, "sure?", last.Content, "same selection rides on conversation history")

	// Selecting a file changes the context, so the diff is sent again.
	require.NoError(t, cmdFile(t.Context(), env, []string{"1"}))
	require.NoError(t, cmdAsk(t.Context(), env, []string{"and", "here?"}))
	last = provider.lastMessages[len(provider.lastMessages)-1]
	assert.Contains(t, last.Content, "```diff")
}

func TestEnvChangedFiles_Caches(t *testing.T) {
	calls := 0
	client := &mockClient{
		listPRFilesFunc: func(context.Context, int) ([]github.PRFile, error) {
			calls++
			return []github.PRFile{{Path: "a.go"}}, nil
		},
	}
	env, _ := newTestEnv(t, client)
	selectPR(t, env, 42)
	require.Equal(t, 1, calls, "selecting the PR fetches the files once")

	_, err := env.ChangedFiles(t.Context())
	require.NoError(t, err)
	_, err = env.ChangedFiles(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "repeat lookups hit the cache")

	env.InvalidateFiles()
	_, err = env.ChangedFiles(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestEnvRepo(t *testing.T) {
	env, _ := newTestEnv(t, &mockClient{})

	repo, err := env.Repo(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "octocat/hello", repo)
}
