package macro

import (
	"os"

	"gopkg.in/yaml.v3"

	criterrors "thoreinstein.com/crit/pkg/errors"
)

// loadManifest reads and parses a macros.yaml file.
func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// validate rejects manifests the shell could not register.
func (m *Manifest) validate() error {
	if len(m.Commands) == 0 {
		return criterrors.NewMacroError(m.Name, "validate", "manifest defines no commands")
	}
	for _, c := range m.Commands {
		if c.Name == "" {
			return criterrors.NewMacroError(m.Name, "validate", "command with no name")
		}
		if len(c.Steps) == 0 {
			return criterrors.NewMacroError(m.Name, "validate", "command "+c.Name+" has no steps")
		}
		for _, alias := range c.Aliases {
			if alias == "" {
				return criterrors.NewMacroError(m.Name, "validate", "command "+c.Name+" has an empty alias")
			}
		}
	}
	return nil
}
