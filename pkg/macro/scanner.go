package macro

import (
	"os"
	"path/filepath"
	"time"

	criterrors "thoreinstein.com/crit/pkg/errors"
)

const manifestName = "macros.yaml"

// Scanner discovers macro packs under one or more roots. Roots are scanned
// in order and later roots override earlier ones by pack name, so listing
// the project root last gives project packs precedence.
type Scanner struct {
	Paths []string
}

// NewScanner creates a scanner over the system macro directory.
func NewScanner() (*Scanner, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, criterrors.Wrap(err, "failed to determine home directory")
	}
	return &Scanner{
		Paths: []string{filepath.Join(home, ".config", "crit", "macros")},
	}, nil
}

// NewScannerWithProjectRoot creates a scanner over the system macro
// directory plus the repository's .crit/macros directory.
func NewScannerWithProjectRoot(gitRoot string) (*Scanner, error) {
	s, err := NewScanner()
	if err != nil {
		return nil, err
	}
	s.Paths = append(s.Paths, filepath.Join(gitRoot, ".crit", "macros"))
	return s, nil
}

// Scan walks the roots and loads every pack directory holding a
// macros.yaml. Packs whose manifest fails to load are still returned, with
// StatusError set, so listings can report them.
func (s *Scanner) Scan() (*Result, error) {
	start := time.Now()
	var packs []*Pack
	byName := make(map[string]int)
	scanned := 0

	for i, root := range s.Paths {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, criterrors.Wrapf(err, "failed to read macro directory %s", root)
		}

		source := "system"
		if i > 0 {
			source = "project"
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(root, entry.Name())
			manifestPath := filepath.Join(dir, manifestName)
			if _, err := os.Stat(manifestPath); err != nil {
				continue
			}
			scanned++

			pack := &Pack{
				Name:   entry.Name(),
				Path:   dir,
				Source: source,
				Status: StatusReady,
			}

			manifest, err := loadManifest(manifestPath)
			if err != nil {
				pack.Status = StatusError
				pack.Err = criterrors.Wrap(err, "failed to load manifest")
			} else {
				pack.Manifest = manifest
				if manifest.Name != "" {
					pack.Name = manifest.Name
				}
				pack.Version = manifest.Version
				pack.Description = manifest.Description
			}

			if j, ok := byName[pack.Name]; ok {
				packs[j] = pack
				continue
			}
			byName[pack.Name] = len(packs)
			packs = append(packs, pack)
		}
	}

	return &Result{
		Packs:    packs,
		Scanned:  scanned,
		Duration: time.Since(start),
	}, nil
}
