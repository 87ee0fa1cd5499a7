package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/resolver"
)

// NewInstallCommand creates the install command.
func NewInstallCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the working IP or its dependency set",
		Long: `Install the working IP into its content-addressed cache slot.

With --all, resolves the working IP's dependencies instead: missing
releases are downloaded and installed, and the lockfile is written. Use
--force to reinstall a corrupt slot or regenerate a stale lockfile.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(rootOpts, cmd, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "install the dependency set instead of the working IP")
	return cmd
}

func runInstall(opts *RootOptions, cmd *cobra.Command, all bool) error {
	formatter := newFormatter(opts, cmd)

	ctx, err := loadContext()
	if err != nil {
		return err
	}
	working, err := loadWorking(opts)
	if err != nil {
		return err
	}

	if !all {
		result, err := catalog.Install(ctx, working, catalog.InstallOptions{Force: opts.Force})
		if err != nil {
			return WrapExitError(ExitFailure, "installing", err)
		}
		if !result.Installed {
			return formatter.Success(fmt.Sprintf("%s is already installed at %s", working.Man.Name, result.Slot))
		}
		return formatter.Success(fmt.Sprintf("installed %s to %s", working.Man.Name, result.Slot))
	}

	r := resolver.New(ctx, working)
	res, err := r.Resolve(resolver.Options{Force: opts.Force})
	if err != nil {
		return WrapExitError(ExitFailure, "resolving", err)
	}
	if !res.FromLock {
		formatter.VerboseLog("lockfile regenerated")
		if err := r.InstallLocked(res.Lock, resolver.Options{Force: opts.Force}); err != nil {
			return WrapExitError(ExitFailure, "installing dependencies", err)
		}
	}
	n := len(res.Lock.Entries()) - 1
	if n < 0 {
		n = 0
	}
	return formatter.Success(fmt.Sprintf("installed %d dependency release(s)", n))
}
