package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orbit-hdl/orbit/internal/blueprint"
)

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	var outDir, command string

	cmd := &cobra.Command{
		Use:     "build [-- args...]",
		Aliases: []string{"target"},
		Short:   "Invoke the configured target on the planned blueprint",
		Long: `Run the target command inside the build directory.

The blueprint must exist (run plan first, or rely on the target reading
ORBIT_BLUEPRINT). Everything after -- is passed to the target verbatim.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(rootOpts, cmd, outDir, command, args)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", defaultBuildDir, "build directory, relative to the IP root")
	cmd.Flags().StringVar(&command, "command", "", "target command (overrides the EDITOR-style default)")
	return cmd
}

func runBuild(opts *RootOptions, cmd *cobra.Command, outDir, command string, extra []string) error {
	formatter := newFormatter(opts, cmd)

	ctx, err := loadContext()
	if err != nil {
		return err
	}
	working, err := loadWorking(opts)
	if err != nil {
		return err
	}

	buildDir := resolveOut(working.Root, outDir)
	bpPath := filepath.Join(buildDir, blueprint.FileName)
	if _, err := os.Stat(bpPath); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("no blueprint at %s; run plan first", bpPath))
	}

	if command == "" {
		return NewExitError(ExitCommandError, "no target command given; pass --command")
	}
	fields := strings.Fields(command)
	target := exec.Command(ctx.CommandName(fields[0]), append(fields[1:], extra...)...)
	target.Dir = buildDir
	target.Env = append(os.Environ(), "ORBIT_BLUEPRINT="+bpPath)
	target.Stdout = cmd.OutOrStdout()
	target.Stderr = cmd.ErrOrStderr()

	formatter.VerboseLog("running %s in %s", command, buildDir)
	if err := target.Run(); err != nil {
		return WrapExitError(ExitFailure, "target command failed", err)
	}
	return nil
}

// resolveOut anchors a possibly relative output directory at the IP root.
func resolveOut(root, out string) string {
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(root, out)
}
