package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/vhdl"
)

// ShowResult is the structured payload of the show command.
type ShowResult struct {
	Name         string   `json:"name" yaml:"name"`
	Version      string   `json:"version" yaml:"version"`
	Tier         string   `json:"tier" yaml:"tier"`
	Library      string   `json:"library" yaml:"library"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Source       string   `json:"source,omitempty" yaml:"source,omitempty"`
	Sum          string   `json:"sum,omitempty" yaml:"sum,omitempty"`
	Root         string   `json:"root" yaml:"root"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Units        []string `json:"units,omitempty" yaml:"units,omitempty"`
}

func (r ShowResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s (%s)\n", r.Name, r.Version, r.Tier)
	if r.Description != "" {
		fmt.Fprintf(&sb, "  %s\n", r.Description)
	}
	fmt.Fprintf(&sb, "  library: %s\n", r.Library)
	if r.Source != "" {
		fmt.Fprintf(&sb, "  source: %s\n", r.Source)
	}
	if r.Sum != "" {
		fmt.Fprintf(&sb, "  checksum: %s\n", r.Sum)
	}
	fmt.Fprintf(&sb, "  root: %s\n", r.Root)
	if len(r.Dependencies) > 0 {
		fmt.Fprintf(&sb, "  dependencies:\n")
		for _, d := range r.Dependencies {
			fmt.Fprintf(&sb, "    %s\n", d)
		}
	}
	if len(r.Units) > 0 {
		fmt.Fprintf(&sb, "  units:\n")
		for _, u := range r.Units {
			fmt.Fprintf(&sb, "    %s\n", u)
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	var withUnits bool

	cmd := &cobra.Command{
		Use:     "show [spec]",
		Aliases: []string{"view"},
		Short:   "Show details about an IP",
		Long: `Show the manifest, checksum, and design units of an IP.

Without an argument, shows the working IP. With a "name[:version]" spec,
shows the highest matching release in the catalog.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := rootOpts.IpSpec
			if len(args) == 1 {
				spec = args[0]
			}
			return runShow(rootOpts, cmd, spec, withUnits)
		},
	}
	cmd.Flags().BoolVar(&withUnits, "units", false, "list primary design units")
	return cmd
}

func runShow(opts *RootOptions, cmd *cobra.Command, spec string, withUnits bool) error {
	formatter := newFormatter(opts, cmd)

	entry, err := findEntry(opts, spec)
	if err != nil {
		return err
	}

	result := ShowResult{
		Name:        entry.Man.Name.String(),
		Version:     entry.Man.Version.String(),
		Tier:        entry.Tier.String(),
		Library:     entry.Man.HdlLibrary(),
		Description: entry.Man.Description,
		Root:        entry.Root,
	}
	if entry.Man.Source != nil {
		result.Source = entry.Man.Source.String()
	}
	if entry.Sum != nil {
		result.Sum = entry.Sum.String()
	}
	for _, d := range entry.Man.DepsList(true) {
		result.Dependencies = append(result.Dependencies, d.Name.String()+" "+d.Version.String())
	}
	if withUnits {
		units, err := vhdl.CollectUnits(entry.Root)
		if err != nil {
			return WrapExitError(ExitFailure, "indexing design units", err)
		}
		for _, name := range vhdl.UnitNames(units) {
			unit := units[name.Key()]
			result.Units = append(result.Units, fmt.Sprintf("%s (%s)", name, unit.Kind))
		}
	}
	return formatter.Success(result)
}

// findEntry resolves a "name[:version]" spec against the catalog, or the
// working IP when spec is empty. Unknown names get a closest-match hint.
func findEntry(opts *RootOptions, spec string) (*catalog.Entry, error) {
	if spec == "" {
		working, err := loadWorking(opts)
		if err != nil {
			return nil, err
		}
		return &catalog.Entry{Ip: working, Tier: catalog.TierWorking}, nil
	}

	parsed, err := ip.ParseSpec(spec)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid spec", err)
	}
	ctx, err := loadContext()
	if err != nil {
		return nil, err
	}
	cat, err := catalog.NewCatalog(ctx)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "scanning catalog", err)
	}
	if working, err := ip.FindWorkingIp(opts.Path); err == nil {
		cat = cat.WithWorking(working)
	}
	entry, ok := cat.Get(parsed.Name, parsed.Version)
	if !ok {
		msg := fmt.Sprintf("no IP matches %s", spec)
		if hint, ok := suggestName(cat, parsed.Name); ok {
			msg += fmt.Sprintf("; did you mean %s?", hint)
		}
		return nil, NewExitError(ExitFailure, msg)
	}
	return entry, nil
}
