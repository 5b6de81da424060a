package macro

import (
	"github.com/Masterminds/semver/v3"

	criterrors "thoreinstein.com/crit/pkg/errors"
)

// ValidateCompatibility checks the pack's requires.crit constraint against
// the running crit version, updating the pack's status. Dev builds satisfy
// every constraint.
func ValidateCompatibility(p *Pack, critVersion string) error {
	if p.Manifest == nil || p.Manifest.Requires.Crit == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(p.Manifest.Requires.Crit)
	if err != nil {
		p.Status = StatusError
		p.Err = criterrors.NewMacroError(p.Name, "validate", "invalid crit version constraint").WithCause(err)
		return p.Err
	}

	if critVersion == "dev" || critVersion == "" {
		return nil
	}

	v, err := semver.NewVersion(critVersion)
	if err != nil {
		p.Status = StatusError
		p.Err = criterrors.NewMacroError(p.Name, "validate", "invalid crit version "+critVersion).WithCause(err)
		return p.Err
	}

	if !constraint.Check(v) {
		p.Status = StatusIncompatible
		p.Err = criterrors.NewMacroError(p.Name, "validate",
			"requires crit "+p.Manifest.Requires.Crit+", but running "+critVersion)
		return p.Err
	}
	return nil
}

// Disable marks packs named in the config's disabled list.
func Disable(packs []*Pack, disabled []string) {
	if len(disabled) == 0 {
		return
	}
	names := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		names[name] = true
	}
	for _, p := range packs {
		if names[p.Name] {
			p.Status = StatusDisabled
		}
	}
}
