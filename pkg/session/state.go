// Package session holds the mutable review session: the selected PR, the
// changed-file list and cursor, accumulated local comments, and search
// results, plus the command history and the JSON persistence for both.
package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	criterrors "thoreinstein.com/crit/pkg/errors"
)

// CommentStatus tracks whether a comment has been sent to GitHub.
type CommentStatus string

const (
	// StatusLocal marks a comment held only in the session, not yet sent.
	StatusLocal CommentStatus = "local"
	// StatusPushed marks a comment that was submitted as part of a review.
	StatusPushed CommentStatus = "pushed"
)

// Comment is a review comment accumulated during a session. Global comments
// carry no position (empty Path, zero Line); line comments are scoped to a
// file and line of the PR diff.
type Comment struct {
	ID        string        `json:"id"`
	Body      string        `json:"body"`
	Path      string        `json:"path,omitempty"`
	Line      int           `json:"line,omitempty"`
	Status    CommentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// IsGlobal reports whether the comment has no file position.
func (c *Comment) IsGlobal() bool {
	return c.Path == ""
}

// ShortID returns an abbreviated comment ID for display and prefix matching.
func (c *Comment) ShortID() string {
	if len(c.ID) > 8 {
		return c.ID[:8]
	}
	return c.ID
}

// SearchState holds the result of a file-path search: the matching file
// indices and a cursor into them.
type SearchState struct {
	Pattern string `json:"pattern"`
	Matches []int  `json:"matches"`
	Cursor  int    `json:"cursor"`
}

// State is the mutable record of one review session.
//
// FileIndex always indexes into Files; FileName is kept alongside so a stale
// selection is detectable after the file list is refreshed. Search.Matches
// are indices into Files and are invalidated whenever Files changes.
type State struct {
	PR        *int                 `json:"pr_number,omitempty"`
	FileIndex *int                 `json:"file_index,omitempty"`
	FileName  string               `json:"file_name,omitempty"`
	Files     []string             `json:"files,omitempty"`
	Global    []Comment            `json:"global_comments,omitempty"`
	ByFile    map[string][]Comment `json:"file_comments,omitempty"`
	Search    *SearchState         `json:"search,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// HasPR reports whether a PR is selected.
func (s *State) HasPR() bool {
	return s.PR != nil
}

// HasFile reports whether a file is selected.
func (s *State) HasFile() bool {
	return s.FileIndex != nil
}

// SelectPR selects a pull request and installs its changed-file list.
// Selecting a different PR clears the file selection, all comments, and any
// search state; re-selecting the current PR behaves like RefreshFiles and
// returns the comments dropped because their file disappeared.
func (s *State) SelectPR(number int, files []string) []Comment {
	if s.PR != nil && *s.PR == number {
		return s.RefreshFiles(files)
	}

	n := number
	s.PR = &n
	s.Files = files
	s.FileIndex = nil
	s.FileName = ""
	s.Global = nil
	s.ByFile = nil
	s.Search = nil
	return nil
}

// ClearPR drops the selected PR and everything scoped to it.
func (s *State) ClearPR() {
	s.PR = nil
	s.Files = nil
	s.FileIndex = nil
	s.FileName = ""
	s.Global = nil
	s.ByFile = nil
	s.Search = nil
}

// RefreshFiles replaces the changed-file list, keeping the file selection
// when the selected file still exists. Line comments whose file disappeared
// are dropped and returned, sorted by path and line, so the caller can
// report them. Search results are invalidated because their indices no
// longer refer to the same list.
func (s *State) RefreshFiles(files []string) []Comment {
	s.Files = files

	if s.FileName != "" {
		if idx := indexOf(files, s.FileName); idx >= 0 {
			i := idx
			s.FileIndex = &i
		} else {
			s.FileIndex = nil
			s.FileName = ""
		}
	}

	var dropped []Comment
	if len(s.ByFile) > 0 {
		present := make(map[string]bool, len(files))
		for _, f := range files {
			present[f] = true
		}
		for path, comments := range s.ByFile {
			if !present[path] {
				dropped = append(dropped, comments...)
				delete(s.ByFile, path)
			}
		}
	}
	sort.Slice(dropped, func(i, j int) bool {
		if dropped[i].Path != dropped[j].Path {
			return dropped[i].Path < dropped[j].Path
		}
		return dropped[i].Line < dropped[j].Line
	})

	s.Search = nil

	return dropped
}

// SelectFile selects a file by index into Files.
func (s *State) SelectFile(index int) error {
	if len(s.Files) == 0 {
		return criterrors.New("no files loaded; select a PR first")
	}
	if index < 0 || index >= len(s.Files) {
		return criterrors.Newf("file %d does not exist (PR has %d files)", index+1, len(s.Files))
	}

	i := index
	s.FileIndex = &i
	s.FileName = s.Files[index]
	return nil
}

// SelectFileByName selects a file by its path.
func (s *State) SelectFileByName(name string) error {
	idx := indexOf(s.Files, name)
	if idx < 0 {
		return criterrors.Newf("file %q is not in the PR's changed files", name)
	}
	return s.SelectFile(idx)
}

// NextFile advances the file selection, wrapping at the end. When a search
// is active, navigation moves through the matches instead of the full list.
func (s *State) NextFile() error {
	return s.stepFile(1)
}

// PrevFile moves the file selection backwards, wrapping at the start.
func (s *State) PrevFile() error {
	return s.stepFile(-1)
}

func (s *State) stepFile(delta int) error {
	if len(s.Files) == 0 {
		return criterrors.New("no files loaded; select a PR first")
	}

	if s.Search != nil && len(s.Search.Matches) > 0 {
		n := len(s.Search.Matches)
		s.Search.Cursor = ((s.Search.Cursor+delta)%n + n) % n
		return s.SelectFile(s.Search.Matches[s.Search.Cursor])
	}

	n := len(s.Files)
	cur := 0
	switch {
	case s.FileIndex != nil:
		cur = *s.FileIndex + delta
	case delta < 0:
		// prev with nothing selected lands on the last file
		cur = n - 1
	}
	cur = ((cur % n) + n) % n
	return s.SelectFile(cur)
}

// AddGlobalComment appends a review-level comment with no position.
func (s *State) AddGlobalComment(body string) (*Comment, error) {
	if !s.HasPR() {
		return nil, criterrors.New("no PR selected")
	}
	if body == "" {
		return nil, criterrors.New("comment text is empty")
	}

	c := Comment{
		ID:        uuid.NewString(),
		Body:      body,
		Status:    StatusLocal,
		CreatedAt: time.Now(),
	}
	s.Global = append(s.Global, c)
	return &c, nil
}

// AddLineComment appends a line-scoped comment. The path must be in the
// current PR's file list; a line comment is only meaningful while its file
// exists there.
func (s *State) AddLineComment(path string, line int, body string) (*Comment, error) {
	if !s.HasPR() {
		return nil, criterrors.New("no PR selected")
	}
	if body == "" {
		return nil, criterrors.New("comment text is empty")
	}
	if line < 1 {
		return nil, criterrors.Newf("line %d is not a valid line number", line)
	}
	if indexOf(s.Files, path) < 0 {
		return nil, criterrors.Newf("file %q is not in the PR's changed files", path)
	}

	c := Comment{
		ID:        uuid.NewString(),
		Body:      body,
		Path:      path,
		Line:      line,
		Status:    StatusLocal,
		CreatedAt: time.Now(),
	}
	if s.ByFile == nil {
		s.ByFile = make(map[string][]Comment)
	}
	s.ByFile[path] = append(s.ByFile[path], c)
	return &c, nil
}

// RemoveComment removes the single local comment whose ID starts with
// idPrefix. An ambiguous prefix, an unknown prefix, and a comment that was
// already pushed are all errors.
func (s *State) RemoveComment(idPrefix string) (*Comment, error) {
	if idPrefix == "" {
		return nil, criterrors.New("comment ID is required")
	}

	type location struct {
		path  string // "" for global
		index int
	}
	var found []location
	for i := range s.Global {
		if hasIDPrefix(&s.Global[i], idPrefix) {
			found = append(found, location{index: i})
		}
	}
	for path, comments := range s.ByFile {
		for i := range comments {
			if hasIDPrefix(&comments[i], idPrefix) {
				found = append(found, location{path: path, index: i})
			}
		}
	}

	switch len(found) {
	case 0:
		return nil, criterrors.Newf("no comment matching %q", idPrefix)
	case 1:
		// fall through
	default:
		return nil, criterrors.Newf("comment ID %q is ambiguous (%d matches)", idPrefix, len(found))
	}

	loc := found[0]
	var removed Comment
	if loc.path == "" {
		removed = s.Global[loc.index]
		if removed.Status == StatusPushed {
			return nil, criterrors.Newf("comment %s was already pushed", removed.ShortID())
		}
		s.Global = append(s.Global[:loc.index], s.Global[loc.index+1:]...)
	} else {
		comments := s.ByFile[loc.path]
		removed = comments[loc.index]
		if removed.Status == StatusPushed {
			return nil, criterrors.Newf("comment %s was already pushed", removed.ShortID())
		}
		comments = append(comments[:loc.index], comments[loc.index+1:]...)
		if len(comments) == 0 {
			delete(s.ByFile, loc.path)
		} else {
			s.ByFile[loc.path] = comments
		}
	}

	return &removed, nil
}

// LocalComments returns all comments not yet pushed: global comments first
// in insertion order, then line comments sorted by path and line. This is
// the order they are submitted and listed in.
func (s *State) LocalComments() []Comment {
	var out []Comment
	for _, c := range s.Global {
		if c.Status == StatusLocal {
			out = append(out, c)
		}
	}

	paths := make([]string, 0, len(s.ByFile))
	for path := range s.ByFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		comments := s.ByFile[path]
		line := make([]Comment, 0, len(comments))
		for _, c := range comments {
			if c.Status == StatusLocal {
				line = append(line, c)
			}
		}
		sort.SliceStable(line, func(i, j int) bool { return line[i].Line < line[j].Line })
		out = append(out, line...)
	}

	return out
}

// AllComments returns every comment in the session, local and pushed, in
// the same order LocalComments uses.
func (s *State) AllComments() []Comment {
	var out []Comment
	out = append(out, s.Global...)

	paths := make([]string, 0, len(s.ByFile))
	for path := range s.ByFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		comments := append([]Comment(nil), s.ByFile[path]...)
		sort.SliceStable(comments, func(i, j int) bool { return comments[i].Line < comments[j].Line })
		out = append(out, comments...)
	}

	return out
}

// FileCommentCount returns the number of local comments on a file.
func (s *State) FileCommentCount(path string) int {
	count := 0
	for _, c := range s.ByFile[path] {
		if c.Status == StatusLocal {
			count++
		}
	}
	return count
}

// MarkPushed flips the named comments to pushed after a successful submit.
func (s *State) MarkPushed(ids []string) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	for i := range s.Global {
		if set[s.Global[i].ID] {
			s.Global[i].Status = StatusPushed
		}
	}
	for _, comments := range s.ByFile {
		for i := range comments {
			if set[comments[i].ID] {
				comments[i].Status = StatusPushed
			}
		}
	}
}

// SetSearch installs a new search result and selects its first match.
func (s *State) SetSearch(pattern string, matches []int) error {
	if len(matches) == 0 {
		return criterrors.Newf("no files match %q", pattern)
	}
	for _, m := range matches {
		if m < 0 || m >= len(s.Files) {
			return criterrors.Newf("search match index %d out of range", m)
		}
	}

	s.Search = &SearchState{Pattern: pattern, Matches: matches, Cursor: 0}
	return s.SelectFile(matches[0])
}

// ClearSearch drops the active search.
func (s *State) ClearSearch() {
	s.Search = nil
}

// Summary returns a one-line description of the session for prompts and
// status output.
func (s *State) Summary() string {
	if !s.HasPR() {
		return "no PR selected"
	}
	summary := fmt.Sprintf("PR #%d, %d files", *s.PR, len(s.Files))
	if s.HasFile() {
		summary += fmt.Sprintf(", viewing %s", s.FileName)
	}
	if pending := len(s.LocalComments()); pending > 0 {
		summary += fmt.Sprintf(", %d pending comments", pending)
	}
	return summary
}

func indexOf(files []string, name string) int {
	for i, f := range files {
		if f == name {
			return i
		}
	}
	return -1
}

func hasIDPrefix(c *Comment, prefix string) bool {
	return len(c.ID) >= len(prefix) && c.ID[:len(prefix)] == prefix
}
