package cmd

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-wasm-relayer/config"
)

const flagJSON = "json"

// familyInfo describes a chain family compiled into the binary and the Go
// module it was built from.
type familyInfo struct {
	Family  string `json:"family"`
	Config  string `json:"config"`
	Module  string `json:"module"`
	Version string `json:"version"`
}

func modulesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "show the chain families compiled into the relayer",
		RunE:  noCommand,
	}
	cmd.AddCommand(showModulesCmd(ctx))
	return cmd
}

func showModulesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List each chain family with its config type and source module",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bi, _ := debug.ReadBuildInfo()
			families := describeFamilies(bi, ctx.Modules)

			asJSON, err := cmd.Flags().GetBool(flagJSON)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), families)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FAMILY\tCONFIG\tMODULE\tVERSION")
			for _, f := range families {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Family, f.Config, f.Module, f.Version)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool(flagJSON, false, "output as json")
	return cmd
}

// describeFamilies resolves the source module of every family, ordered by
// family name. A family whose module cannot be located is reported as unknown
// rather than failing the listing.
func describeFamilies(bi *debug.BuildInfo, modules []config.ModuleI) []familyInfo {
	families := make([]familyInfo, 0, len(modules))
	for _, m := range modules {
		path, version := sourceModule(bi, reflect.TypeOf(m).PkgPath())
		families = append(families, familyInfo{
			Family:  m.Name(),
			Config:  reflect.TypeOf(m.NewChainConfig()).String(),
			Module:  path,
			Version: version,
		})
	}
	slices.SortFunc(families, func(a, b familyInfo) int {
		return strings.Compare(a.Family, b.Family)
	})
	return families
}

func sourceModule(bi *debug.BuildInfo, pkgPath string) (path, version string) {
	const unknown = "unknown"
	if bi == nil {
		return unknown, unknown
	}
	m := &bi.Main
	if m.Path == "" || !strings.HasPrefix(pkgPath, m.Path) {
		i := slices.IndexFunc(bi.Deps, func(dm *debug.Module) bool {
			return strings.HasPrefix(pkgPath, dm.Path)
		})
		if i == -1 {
			return unknown, unknown
		}
		m = bi.Deps[i]
	}
	if m.Replace != nil {
		m = m.Replace
	}
	if m.Version == "" {
		// local builds and directory replacements carry no version
		return m.Path, "(devel)"
	}
	return m.Path, m.Version
}
