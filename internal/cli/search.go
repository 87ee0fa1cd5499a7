package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/index"
	"github.com/orbit-hdl/orbit/internal/ip"
)

// SearchResult is the structured payload of the search command.
type SearchResult struct {
	Query string      `json:"query" yaml:"query"`
	Hits  []index.Hit `json:"hits" yaml:"hits"`
}

func (r SearchResult) String() string {
	if len(r.Hits) == 0 {
		return "no matches"
	}
	var sb strings.Builder
	for _, h := range r.Hits {
		fmt.Fprintf(&sb, "%-24s %-10s %s", h.Name, h.Version, h.Tier)
		if h.Description != "" {
			fmt.Fprintf(&sb, "  %s", h.Description)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the catalog by name, description, or unit",
		Long: `Search installed and queued IPs.

The search index is rebuilt from the catalog before querying, so results
always reflect the filesystem. An empty query lists everything.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runSearch(rootOpts, cmd, query)
		},
	}
	return cmd
}

func runSearch(opts *RootOptions, cmd *cobra.Command, query string) error {
	formatter := newFormatter(opts, cmd)

	ctx, err := loadContext()
	if err != nil {
		return err
	}
	cat, err := catalog.NewCatalog(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "scanning catalog", err)
	}
	if working, err := ip.FindWorkingIp(opts.Path); err == nil {
		cat = cat.WithWorking(working)
	}

	ix, err := index.OpenAt(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "opening search index", err)
	}
	defer ix.Close()

	formatter.VerboseLog("rebuilding search index")
	if err := ix.Rebuild(cmd.Context(), cat); err != nil {
		return WrapExitError(ExitFailure, "rebuilding search index", err)
	}
	hits, err := ix.Search(cmd.Context(), query)
	if err != nil {
		return WrapExitError(ExitFailure, "searching", err)
	}
	return formatter.Success(SearchResult{Query: query, Hits: hits})
}
