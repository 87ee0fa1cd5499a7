package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/vhdl"
)

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	var unitName string

	cmd := &cobra.Command{
		Use:   "read <spec>",
		Short: "Print the source of a catalog IP",
		Long: `Print VHDL source from an installed or queued IP without copying it out.

With --unit, prints only the file declaring that primary design unit.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(rootOpts, cmd, args[0], unitName)
		},
	}
	cmd.Flags().StringVar(&unitName, "unit", "", "primary design unit to locate")
	return cmd
}

func runRead(opts *RootOptions, cmd *cobra.Command, spec, unitName string) error {
	formatter := newFormatter(opts, cmd)

	entry, err := findEntry(opts, spec)
	if err != nil {
		return err
	}

	var files []string
	if unitName != "" {
		ident, err := ip.ParseIdent(unitName)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid unit name", err)
		}
		units, err := vhdl.CollectUnits(entry.Root)
		if err != nil {
			return WrapExitError(ExitFailure, "indexing design units", err)
		}
		unit, ok := units[ident.Key()]
		if !ok {
			return NewExitError(ExitFailure, fmt.Sprintf("no unit %s in %s", ident, entry.Man.Name))
		}
		files = []string{unit.File}
	} else {
		all, err := ip.GatherFiles(entry.Root)
		if err != nil {
			return WrapExitError(ExitFailure, "listing files", err)
		}
		for _, rel := range all {
			if vhdl.IsVhdlFile(rel) {
				files = append(files, rel)
			}
		}
	}

	out := cmd.OutOrStdout()
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(entry.Root, filepath.FromSlash(rel)))
		if err != nil {
			return WrapExitError(ExitFailure, "reading "+rel, err)
		}
		formatter.VerboseLog("-- %s", rel)
		fmt.Fprint(out, string(data))
	}
	return nil
}
