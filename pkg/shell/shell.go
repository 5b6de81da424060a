package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	criterrors "thoreinstein.com/crit/pkg/errors"
)

// Shell is the interactive review loop.
type Shell struct {
	dispatcher *Dispatcher
	env        *Env
	reader     io.Reader
	writer     io.Writer
	ignore     []*regexp.Regexp // history ignore patterns, pre-compiled
	macroDepth int
}

// New creates a shell with the built-in commands registered.
func New(env *Env) (*Shell, error) {
	d := NewDispatcher()
	if err := registerBuiltins(d); err != nil {
		return nil, err
	}

	s := &Shell{
		dispatcher: d,
		env:        env,
		reader:     os.Stdin,
		writer:     os.Stdout,
	}
	if env.Out == nil {
		env.Out = s.writer
	}

	// Patterns were validated at config load
	if env.Config != nil {
		for _, pattern := range env.Config.History.IgnorePatterns {
			if re, err := regexp.Compile(pattern); err == nil {
				s.ignore = append(s.ignore, re)
			}
		}
	}
	return s, nil
}

// WithIO sets custom reader and writer for testing.
func (s *Shell) WithIO(r io.Reader, w io.Writer) *Shell {
	s.reader = r
	s.writer = w
	s.env.Out = w
	return s
}

// Dispatcher exposes the command registry so macro packs can register into
// it before the loop starts.
func (s *Shell) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Run reads lines until quit or EOF. Each line is history-expanded, recorded,
// and dispatched; the session and history are persisted after every command
// so an interrupted review loses nothing.
func (s *Shell) Run(ctx context.Context) error {
	reader := bufio.NewReader(s.reader)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(s.writer, s.prompt())

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(s.writer)
				return s.save()
			}
			return err
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		expanded, didExpand, err := Expand(line, s.env.History.Entries)
		if err != nil {
			s.printError(err)
			continue
		}
		if didExpand {
			fmt.Fprintln(s.writer, expanded)
		}

		trimmed := strings.TrimSpace(expanded)
		if trimmed == "" {
			continue
		}
		if !s.historyIgnored(trimmed) {
			s.env.History.Append(trimmed)
		}

		err = s.dispatcher.Dispatch(ctx, s.env, trimmed)
		if criterrors.Is(err, ErrQuit) {
			return s.save()
		}
		if err != nil {
			s.printError(err)
		}

		s.autoSave()
	}
}

// historyIgnored reports whether a line matches a history ignore pattern.
// Ignored lines still execute; they are just never recorded.
func (s *Shell) historyIgnored(line string) bool {
	for _, re := range s.ignore {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func (s *Shell) prompt() string {
	if s.env.State.HasPR() {
		return fmt.Sprintf("crit #%d> ", *s.env.State.PR)
	}
	return "crit> "
}

func (s *Shell) printError(err error) {
	fmt.Fprintln(s.writer, criterrors.FormatUserError(err))
}

// autoSave persists the session and history, warning instead of killing the
// loop when a write fails.
func (s *Shell) autoSave() {
	if err := s.env.Store.SaveSession(s.env.State); err != nil {
		fmt.Fprintf(s.writer, "Warning: %v\n", err)
	}
	if err := s.env.Store.SaveHistory(s.env.History); err != nil {
		fmt.Fprintf(s.writer, "Warning: %v\n", err)
	}
}

func (s *Shell) save() error {
	if err := s.env.Store.SaveSession(s.env.State); err != nil {
		return err
	}
	return s.env.Store.SaveHistory(s.env.History)
}
