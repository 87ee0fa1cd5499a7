package cli

import (
	"github.com/spf13/cobra"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/ip"
)

// NewDownloadCommand creates the download command.
func NewDownloadCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Fetch locked dependencies into the queue",
		Long: `Fetch the working IP's locked dependencies that are neither cached nor
queued, by invoking the configured protocol command once with the full URL
list. With --all, every locked entry with a source is fetched regardless
of local state.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(rootOpts, cmd, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "fetch every locked source")
	return cmd
}

func runDownload(opts *RootOptions, cmd *cobra.Command, all bool) error {
	formatter := newFormatter(opts, cmd)

	ctx, err := loadContext()
	if err != nil {
		return err
	}
	working, err := loadWorking(opts)
	if err != nil {
		return err
	}
	lock, err := ip.LoadLockFile(working.Root)
	if err != nil {
		return WrapExitError(ExitFailure, "reading lockfile", err)
	}
	if lock.IsEmpty() {
		return formatter.Success("nothing to download: lockfile is empty")
	}
	cat, err := catalog.NewCatalog(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "scanning catalog", err)
	}

	var sources []*ip.Source
	for _, e := range lock.Entries() {
		if e.Source == nil || e.Sum == nil {
			continue
		}
		if !all {
			slot, _ := e.SlotName()
			if cat.IsCached(slot) {
				continue
			}
			if _, ok := cat.Get(e.Name, ip.AnyFrom(e.Version)); ok {
				continue
			}
		}
		sources = append(sources, e.Source)
	}
	if len(sources) == 0 {
		return formatter.Success("nothing to download")
	}

	formatter.VerboseLog("fetching %d source(s)", len(sources))
	if err := catalog.Download(ctx, sources); err != nil {
		return WrapExitError(ExitFailure, "downloading", err)
	}
	return formatter.Success("downloaded sources into the queue")
}
