package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/vhdl"
)

// PublishResult is the structured payload of the publish command.
type PublishResult struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Source  string `json:"source" yaml:"source"`
	Sum     string `json:"sum" yaml:"sum"`
}

func (r PublishResult) String() string {
	return fmt.Sprintf("%s %s is ready to publish\n  source: %s\n  checksum: %s",
		r.Name, r.Version, r.Source, r.Sum)
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Verify the working IP is fit for release",
		Long: `Check that the working IP can be consumed by others: the manifest
declares a source, the unit index builds without duplicates, and the
content checksum is computable. Prints the release record on success.
Actual registry upload is delegated to the source's protocol.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(rootOpts, cmd)
		},
	}
	return cmd
}

func runPublish(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	working, err := loadWorking(opts)
	if err != nil {
		return err
	}
	if working.Man.Source == nil {
		return NewExitError(ExitFailure, "manifest declares no source; consumers cannot fetch this IP")
	}
	if _, err := vhdl.CollectUnits(working.Root); err != nil {
		return WrapExitError(ExitFailure, "unit index", err)
	}
	sum, err := catalog.ComputeSum(working.Root)
	if err != nil {
		return WrapExitError(ExitFailure, "computing checksum", err)
	}

	return formatter.Success(PublishResult{
		Name:    working.Man.Name.String(),
		Version: working.Man.Version.String(),
		Source:  working.Man.Source.String(),
		Sum:     sum.String(),
	})
}
