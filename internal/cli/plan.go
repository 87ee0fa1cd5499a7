package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbit-hdl/orbit/internal/blueprint"
	"github.com/orbit-hdl/orbit/internal/resolver"
)

// defaultBuildDir is where the blueprint lands relative to the IP root.
const defaultBuildDir = "build"

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	var outDir, scheme string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Produce the blueprint for the working IP",
		Long: `Resolve the dependency set, run the symbol transformation over duplicate
identifiers, and write the ordered file list the target tool consumes.

The blueprint lists one file per line: fileset tag, logical library, and
absolute path, dependencies before dependents.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, cmd, outDir, scheme)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", defaultBuildDir, "output directory, relative to the IP root")
	cmd.Flags().StringVar(&scheme, "scheme", "synthesis", "fileset scheme (synthesis|simulation)")
	return cmd
}

func runPlan(opts *RootOptions, cmd *cobra.Command, outDir, schemeName string) error {
	formatter := newFormatter(opts, cmd)

	sch, ok := blueprint.ParseScheme(schemeName)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown scheme %q", schemeName))
	}
	ctx, err := loadContext()
	if err != nil {
		return err
	}
	working, err := loadWorking(opts)
	if err != nil {
		return err
	}

	r := resolver.New(ctx, working)
	res, err := r.Resolve(resolver.Options{Force: opts.Force})
	if err != nil {
		return WrapExitError(ExitFailure, "resolving", err)
	}
	if !res.FromLock {
		if err := r.InstallLocked(res.Lock, resolver.Options{Force: opts.Force}); err != nil {
			return WrapExitError(ExitFailure, "installing dependencies", err)
		}
		// rebuild node roots on the cache slots so the blueprint is the
		// same whether this run or a later one resolved the set
		res.Graph, err = r.GraphFromLock(res.Lock)
		if err != nil {
			return WrapExitError(ExitFailure, "loading locked graph", err)
		}
	}
	linked, err := r.Transform(res.Graph)
	if err != nil {
		return WrapExitError(ExitFailure, "transforming symbols", err)
	}

	bp, err := blueprint.Emit(res.Graph, linked, nil, sch)
	if err != nil {
		return WrapExitError(ExitFailure, "emitting blueprint", err)
	}
	path, err := bp.Save(resolveOut(working.Root, outDir))
	if err != nil {
		return WrapExitError(ExitFailure, "writing blueprint", err)
	}
	formatter.VerboseLog("%d file(s) planned", len(bp.Entries))
	return formatter.Success(fmt.Sprintf("wrote %s", path))
}
