package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"thoreinstein.com/crit/pkg/macro"
)

// macrosCmd lists discovered macro packs.
var macrosCmd = &cobra.Command{
	Use:   "macros",
	Short: "List discovered macro packs",
	Long: `Scan the macro directories and list all discovered packs.

System packs are loaded from ~/.config/crit/macros.
When inside a git repository, project packs are also loaded from
<git root>/.crit/macros. Project packs override system packs with the
same name. Packs named in macros.disabled are listed but never loaded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMacrosCommand()
	},
}

func init() {
	rootCmd.AddCommand(macrosCmd)
}

func runMacrosCommand() error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	scanner, err := newMacroScanner()
	if err != nil {
		return errors.Wrap(err, "failed to initialize macro scanner")
	}

	result, err := scanner.Scan()
	if err != nil {
		return errors.Wrap(err, "failed to scan for macro packs")
	}

	if len(result.Packs) == 0 {
		fmt.Printf("No macro packs found in %s\n", strings.Join(scanner.Paths, ", "))
		return nil
	}

	for _, p := range result.Packs {
		_ = macro.ValidateCompatibility(p, GetVersion())
	}
	macro.Disable(result.Packs, cfg.Macros.Disabled)

	fmt.Printf("Found %d macro pack(s) in %s:\n\n", len(result.Packs), strings.Join(scanner.Paths, ", "))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tSOURCE\tSTATUS\tPATH")

	for _, p := range result.Packs {
		version := p.Version
		if version == "" {
			version = "unknown"
		}

		source := p.Source
		if source == "" {
			source = "system"
		}

		status := string(p.Status)
		if p.Status != macro.StatusReady && p.Err != nil {
			status = fmt.Sprintf("%s (%v)", status, p.Err)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, version, source, status, p.Path)
	}
	w.Flush()

	return nil
}
