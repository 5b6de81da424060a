package macro

import (
	"os"
	"path/filepath"
	"testing"
)

func writePack(t *testing.T, root, dir, manifest string) {
	t.Helper()
	packDir := filepath.Join(root, dir)
	if err := os.MkdirAll(packDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(packDir, "macros.yaml"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	s := &Scanner{Paths: []string{filepath.Join(t.TempDir(), "does-not-exist")}}

	result, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(result.Packs) != 0 {
		t.Errorf("len(Packs) = %d, want 0", len(result.Packs))
	}
	if result.Scanned != 0 {
		t.Errorf("Scanned = %d, want 0", result.Scanned)
	}
}

func TestScan_LoadsPack(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "quick", `
name: quick-review
version: 2.0.0
description: shortcuts
commands:
  - name: lgtm
    steps: [submit approve]
`)

	s := &Scanner{Paths: []string{root}}
	result, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(result.Packs) != 1 {
		t.Fatalf("len(Packs) = %d, want 1", len(result.Packs))
	}
	if result.Scanned != 1 {
		t.Errorf("Scanned = %d, want 1", result.Scanned)
	}

	p := result.Packs[0]
	if p.Name != "quick-review" {
		t.Errorf("Name = %q, want %q (manifest name wins over directory)", p.Name, "quick-review")
	}
	if p.Version != "2.0.0" {
		t.Errorf("Version = %q, want %q", p.Version, "2.0.0")
	}
	if p.Source != "system" {
		t.Errorf("Source = %q, want %q", p.Source, "system")
	}
	if p.Status != StatusReady {
		t.Errorf("Status = %v, want Ready", p.Status)
	}
	if p.Manifest == nil || len(p.Manifest.Commands) != 1 {
		t.Errorf("Manifest not loaded: %+v", p.Manifest)
	}
}

func TestScan_SkipsNonPackEntries(t *testing.T) {
	root := t.TempDir()

	// A stray file and a directory without a manifest are not packs.
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "empty-dir"), 0755); err != nil {
		t.Fatal(err)
	}
	writePack(t, root, "real", "name: real\ncommands:\n  - name: go\n    steps: [files]\n")

	s := &Scanner{Paths: []string{root}}
	result, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(result.Packs) != 1 {
		t.Fatalf("len(Packs) = %d, want 1", len(result.Packs))
	}
	if result.Scanned != 1 {
		t.Errorf("Scanned = %d, want 1", result.Scanned)
	}
}

func TestScan_ManifestErrorStillListed(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "broken", "name: [unclosed\n")

	s := &Scanner{Paths: []string{root}}
	result, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(result.Packs) != 1 {
		t.Fatalf("len(Packs) = %d, want 1", len(result.Packs))
	}

	p := result.Packs[0]
	if p.Status != StatusError {
		t.Errorf("Status = %v, want Error", p.Status)
	}
	if p.Err == nil {
		t.Error("Err should be set for a broken manifest")
	}
	if p.Name != "broken" {
		t.Errorf("Name = %q, want directory name %q", p.Name, "broken")
	}
}

func TestScan_ProjectOverridesSystem(t *testing.T) {
	system := t.TempDir()
	project := t.TempDir()

	writePack(t, system, "quick", "name: quick\nversion: 1.0.0\ncommands:\n  - name: a\n    steps: [files]\n")
	writePack(t, project, "quick", "name: quick\nversion: 9.9.9\ncommands:\n  - name: a\n    steps: [status]\n")
	writePack(t, system, "only-system", "name: only-system\ncommands:\n  - name: b\n    steps: [files]\n")

	s := &Scanner{Paths: []string{system, project}}
	result, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(result.Packs) != 2 {
		t.Fatalf("len(Packs) = %d, want 2", len(result.Packs))
	}
	if result.Scanned != 3 {
		t.Errorf("Scanned = %d, want 3", result.Scanned)
	}

	var quick *Pack
	for _, p := range result.Packs {
		if p.Name == "quick" {
			quick = p
		}
	}
	if quick == nil {
		t.Fatal("quick pack not found")
	}
	if quick.Version != "9.9.9" {
		t.Errorf("Version = %q, want project's %q", quick.Version, "9.9.9")
	}
	if quick.Source != "project" {
		t.Errorf("Source = %q, want %q", quick.Source, "project")
	}
}
