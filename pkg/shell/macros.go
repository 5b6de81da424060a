package shell

import (
	"context"
	"fmt"

	criterrors "thoreinstein.com/crit/pkg/errors"
	"thoreinstein.com/crit/pkg/macro"
)

// Steps run through the dispatcher, so macros can invoke other macros.
// maxMacroDepth caps the nesting.
const maxMacroDepth = 8

// RegisterMacros adds the commands of every ready pack to the dispatcher.
// Built-ins always win: a macro whose name is already registered is skipped,
// and a taken alias is dropped while the command itself still registers.
// Skips are reported on the shell writer in verbose mode.
func (s *Shell) RegisterMacros(packs []*macro.Pack) {
	for _, p := range packs {
		if p.Status != macro.StatusReady || p.Manifest == nil {
			continue
		}

		for _, mc := range p.Manifest.Commands {
			if owner, taken := s.dispatcher.Owner(mc.Name); taken {
				if s.env.Verbose {
					fmt.Fprintf(s.writer, "Warning: skipping macro %q from pack %q: already registered by %q\n", mc.Name, p.Name, owner)
				}
				continue
			}

			var aliases []string
			for _, alias := range mc.Aliases {
				if owner, taken := s.dispatcher.Owner(alias); taken {
					if s.env.Verbose {
						fmt.Fprintf(s.writer, "Warning: skipping alias %q for macro %q (pack %q): already registered by %q\n", alias, mc.Name, p.Name, owner)
					}
					continue
				}
				aliases = append(aliases, alias)
			}

			short := mc.Description
			if short == "" {
				short = fmt.Sprintf("Macro from pack %q", p.Name)
			}

			err := s.dispatcher.Register(&Command{
				Name:    mc.Name,
				Short:   short,
				Usage:   mc.Name,
				Aliases: aliases,
				Run:     s.macroHandler(p.Name, mc),
			})
			if err != nil && s.env.Verbose {
				fmt.Fprintf(s.writer, "Warning: failed to register macro %q from pack %q: %v\n", mc.Name, p.Name, err)
			}
		}
	}
}

// macroHandler returns a Run function that executes the macro's steps in
// order. Arguments substitute into each step, and the expanded line is echoed
// before it runs, the same way history expansion echoes the line it resolved
// to. A failing step stops the macro; quit propagates unwrapped so the shell
// loop still recognizes it.
func (s *Shell) macroHandler(pack string, mc macro.Command) func(context.Context, *Env, []string) error {
	return func(ctx context.Context, env *Env, args []string) error {
		if s.macroDepth >= maxMacroDepth {
			return criterrors.NewMacroError(pack, mc.Name, fmt.Sprintf("macro nesting exceeds %d levels", maxMacroDepth))
		}
		s.macroDepth++
		defer func() { s.macroDepth-- }()

		for i, step := range mc.Steps {
			line := macro.ExpandArgs(step, args)
			fmt.Fprintln(env.Out, line)

			err := s.dispatcher.Dispatch(ctx, env, line)
			if criterrors.Is(err, ErrQuit) {
				return err
			}
			if err != nil {
				return criterrors.NewMacroError(pack, mc.Name, fmt.Sprintf("step %d failed", i+1)).WithCause(err)
			}
		}
		return nil
	}
}
