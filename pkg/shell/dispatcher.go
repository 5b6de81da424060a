// Package shell implements the interactive review shell: a line dispatcher
// with alias and history-reference resolution, the built-in command set, and
// the read-eval loop that binds the session to the GitHub and AI clients.
package shell

import (
	"context"
	"sort"
	"strings"

	criterrors "thoreinstein.com/crit/pkg/errors"
)

// Handler executes one shell command. args holds the fields after the
// command name.
type Handler func(ctx context.Context, env *Env, args []string) error

// Command describes a dispatchable shell command.
type Command struct {
	Name    string
	Short   string
	Usage   string
	Aliases []string
	MinArgs int
	Run     Handler
}

// Dispatcher routes input lines to registered commands. Names and aliases
// share one namespace; a collision is rejected at Register time so a macro
// can never shadow a built-in.
type Dispatcher struct {
	registry map[string]*Command // name and alias lookup
	owner    map[string]string   // name/alias -> owning command name
	names    []string            // primary names in registration order
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		registry: make(map[string]*Command),
		owner:    make(map[string]string),
	}
}

// Register adds a command, rejecting any name or alias that is already
// taken.
func (d *Dispatcher) Register(cmd *Command) error {
	if cmd == nil || cmd.Name == "" {
		return criterrors.New("command has no name")
	}
	if cmd.Run == nil {
		return criterrors.Newf("command %q has no handler", cmd.Name)
	}

	keys := append([]string{cmd.Name}, cmd.Aliases...)
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key == "" {
			return criterrors.Newf("command %q has an empty alias", cmd.Name)
		}
		if seen[key] {
			return criterrors.Newf("command %q repeats name or alias %q", cmd.Name, key)
		}
		seen[key] = true
		if owner, exists := d.owner[key]; exists {
			return criterrors.Newf("%q is already registered by %q", key, owner)
		}
	}

	for _, key := range keys {
		d.registry[key] = cmd
		d.owner[key] = cmd.Name
	}
	d.names = append(d.names, cmd.Name)
	return nil
}

// Resolve looks up a command by name or alias.
func (d *Dispatcher) Resolve(name string) (*Command, bool) {
	cmd, ok := d.registry[name]
	return cmd, ok
}

// Owner reports which command holds a name or alias.
func (d *Dispatcher) Owner(key string) (string, bool) {
	name, ok := d.owner[key]
	return name, ok
}

// Commands returns all registered commands sorted by name.
func (d *Dispatcher) Commands() []*Command {
	out := make([]*Command, 0, len(d.names))
	for _, name := range d.names {
		out = append(out, d.registry[name])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch splits a line into fields and runs the matching command. An empty
// line is a no-op. Unknown commands and missing arguments are DispatchErrors.
func (d *Dispatcher) Dispatch(ctx context.Context, env *Env, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name := fields[0]
	cmd, ok := d.Resolve(name)
	if !ok {
		return criterrors.NewDispatchError(name, "unknown command (try 'help')")
	}

	args := fields[1:]
	if len(args) < cmd.MinArgs {
		return criterrors.NewDispatchErrorWithUsage(name, cmd.Usage, "missing arguments")
	}

	return cmd.Run(ctx, env, args)
}
