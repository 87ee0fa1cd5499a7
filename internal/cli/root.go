// Package cli wires the orbit subcommands. Each command resolves its own
// context and working IP so tests can point ORBIT_HOME at a scratch
// directory and drive commands directly.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/orbit"
)

// Version is stamped at build time.
var Version = "dev"

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
	Force   bool
	Format  string // "text" | "json" | "yaml"
	Path    string // working directory override
	IpSpec  string // target IP override ("name[:version]")
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the orbit CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "orbit",
		Short:   "Orbit - a package manager for HDL projects",
		Long:    "Orbit resolves, installs, and plans VHDL IP dependencies from content-addressed storage.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&opts.Force, "force", false, "bypass caches and regenerate state")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.Path, "path", ".", "working directory")
	cmd.PersistentFlags().StringVar(&opts.IpSpec, "ip", "", "target IP (name[:version])")

	// Add subcommands
	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewReadCommand(opts))
	cmd.AddCommand(NewDownloadCommand(opts))
	cmd.AddCommand(NewInstallCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewPublishCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newFormatter builds the formatter for one command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // verbose logs go to stderr to avoid corrupting structured output
		Verbose:   opts.Verbose,
	}
}

// loadContext builds the invocation context from the environment.
func loadContext() (*orbit.Context, error) {
	ctx, err := orbit.NewContext()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "initializing orbit home", err)
	}
	return ctx, nil
}

// loadWorking finds the working IP from the --path flag.
func loadWorking(opts *RootOptions) (*ip.Ip, error) {
	working, err := ip.FindWorkingIp(opts.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("no %s found from %s", orbit.ManifestFile, opts.Path), err)
	}
	return working, nil
}
