// Package macro loads user-defined review commands from macro packs.
//
// A pack is a directory holding a macros.yaml manifest. Each command in the
// manifest expands to a sequence of shell lines that run through the review
// shell's dispatcher with $1..$9 and $* argument substitution. System packs
// live under ~/.config/crit/macros; a repository can carry project packs
// under <git root>/.crit/macros, which override system packs by name.
package macro

import "time"

// Status is the load state of a discovered pack.
type Status string

const (
	StatusReady        Status = "Ready"
	StatusIncompatible Status = "Incompatible"
	StatusDisabled     Status = "Disabled"
	StatusError        Status = "Error"
)

// Manifest mirrors macros.yaml.
type Manifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Requires    struct {
		Crit string `yaml:"crit"` // semver constraint on the crit version
	} `yaml:"requires"`
	Commands []Command `yaml:"commands"`
}

// Command is one macro command definition.
type Command struct {
	Name        string   `yaml:"name"`
	Aliases     []string `yaml:"aliases,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Steps       []string `yaml:"steps"`
}

// Pack is a discovered macro pack.
type Pack struct {
	Name        string
	Version     string
	Description string
	Path        string
	Source      string // "system" or "project"
	Status      Status
	Manifest    *Manifest
	Err         error
}

// Result is the outcome of a discovery scan.
type Result struct {
	Packs    []*Pack
	Scanned  int
	Duration time.Duration
}
