package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/orbit"
)

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	var library string

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new IP in a new directory",
		Long: `Create a directory named after the IP and write a starter manifest into it.

The name must be a valid identifier: a letter followed by letters, digits,
dashes, or underscores.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(rootOpts, cmd, args[0], library, false)
		},
	}
	cmd.Flags().StringVar(&library, "library", "", "HDL library name (defaults to the IP name)")
	return cmd
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var library string

	cmd := &cobra.Command{
		Use:   "init [name]",
		Short: "Initialize an IP in the current directory",
		Long: `Write a starter manifest into the working directory.

The IP name defaults to the directory's base name.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runNew(rootOpts, cmd, name, library, true)
		},
	}
	cmd.Flags().StringVar(&library, "library", "", "HDL library name (defaults to the IP name)")
	return cmd
}

func runNew(opts *RootOptions, cmd *cobra.Command, name, library string, inPlace bool) error {
	formatter := newFormatter(opts, cmd)

	root := opts.Path
	if inPlace {
		abs, err := filepath.Abs(root)
		if err != nil {
			return WrapExitError(ExitCommandError, "resolving path", err)
		}
		if name == "" {
			name = filepath.Base(abs)
		}
		root = abs
	}

	ident, err := ip.ParseIdent(name)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid IP name", err)
	}
	if !inPlace {
		root = filepath.Join(opts.Path, name)
		if _, err := os.Stat(root); err == nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("directory %s already exists", root))
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return WrapExitError(ExitCommandError, "creating directory", err)
		}
	}

	manifestPath := filepath.Join(root, orbit.ManifestFile)
	if _, err := os.Stat(manifestPath); err == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s already exists", manifestPath))
	}
	contents := ip.TemplateManifest(ident)
	if library != "" {
		lib, err := ip.ParseIdent(library)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid library name", err)
		}
		contents = ip.TemplateManifestWithLibrary(ident, lib)
	}
	if err := os.WriteFile(manifestPath, []byte(contents), 0o644); err != nil {
		return WrapExitError(ExitCommandError, "writing manifest", err)
	}

	formatter.VerboseLog("wrote %s", manifestPath)
	return formatter.Success(fmt.Sprintf("created IP %s at %s", ident, root))
}
