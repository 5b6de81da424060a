package shell

import (
	"context"
	"fmt"
	"io"

	"thoreinstein.com/crit/pkg/ai"
	"thoreinstein.com/crit/pkg/config"
	criterrors "thoreinstein.com/crit/pkg/errors"
	"thoreinstein.com/crit/pkg/github"
	"thoreinstein.com/crit/pkg/reviewlog"
	"thoreinstein.com/crit/pkg/session"
)

// ErrQuit signals the shell loop to stop after the current command.
var ErrQuit = criterrors.New("quit")

// Env is the shared environment handlers run against: configuration, the
// clients, the session, and the output writer.
type Env struct {
	Config  *config.Config
	GitHub  github.Client
	State   *session.State
	History *session.History
	Store   *session.Store
	AI      ai.Provider    // nil when no provider is configured
	Reviews *reviewlog.Log // nil when the review log is unavailable
	Verbose bool
	Out     io.Writer

	// changed-file details for the selected PR, fetched on demand; the
	// session itself only persists the file names
	prFiles    []github.PRFile
	prFilesFor int

	// owner/name of the repository this process runs in
	repoName string

	chat        *ai.Conversation
	chatContext string // pr+file the conversation context was last seeded with
}

// ChangedFiles returns the changed-file details for the selected PR, fetching
// them from GitHub on first use after a selection or a restart.
func (e *Env) ChangedFiles(ctx context.Context) ([]github.PRFile, error) {
	if !e.State.HasPR() {
		return nil, criterrors.New("no PR selected")
	}

	number := *e.State.PR
	if e.prFiles != nil && e.prFilesFor == number {
		return e.prFiles, nil
	}

	files, err := e.GitHub.ListPRFiles(ctx, number)
	if err != nil {
		return nil, err
	}
	e.prFiles = files
	e.prFilesFor = number
	return files, nil
}

// SetChangedFiles primes the changed-file cache after a fresh fetch.
func (e *Env) SetChangedFiles(number int, files []github.PRFile) {
	e.prFiles = files
	e.prFilesFor = number
}

// InvalidateFiles drops the changed-file cache.
func (e *Env) InvalidateFiles() {
	e.prFiles = nil
	e.prFilesFor = 0
}

// Repo returns the owner/name of the current repository, caching the lookup.
func (e *Env) Repo(ctx context.Context) (string, error) {
	if e.repoName != "" {
		return e.repoName, nil
	}

	owner, repo, err := e.GitHub.GetCurrentRepo(ctx)
	if err != nil {
		return "", err
	}
	e.repoName = fmt.Sprintf("%s/%s", owner, repo)
	return e.repoName, nil
}

// Conversation returns the session's AI conversation, creating it on first
// use. Returns an error when no provider is configured.
func (e *Env) Conversation() (*ai.Conversation, error) {
	if e.AI == nil {
		return nil, criterrors.New("no AI provider configured (set [ai] provider in config)")
	}
	if e.chat == nil {
		e.chat = ai.NewConversation(e.AI, reviewSystemPrompt)
	}
	return e.chat, nil
}
