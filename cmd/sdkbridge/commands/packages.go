package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openfroyo/sdkbridge/pkg/modules"
	"github.com/openfroyo/sdkbridge/pkg/modules/awsv2"
	"github.com/openfroyo/sdkbridge/pkg/naming"
)

func newPackagesCommand(version string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "packages [service]",
		Short: "List bundled client packages or show a package's exports",
		Long: `Without arguments, list the bundled client packages and the legacy service
names that map onto client packages.

With a service name (legacy or package form), resolve it and list the
client and command exports of its bundled module.`,
		Example: `  sdkbridge packages
  sdkbridge packages S3
  sdkbridge packages @aws-sdk/client-dynamodb --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := modules.NewRegistry()
			if err := awsv2.Register(registry); err != nil {
				return err
			}
			if len(args) == 0 {
				return listPackages(cmd.OutOrStdout(), registry, jsonOutput)
			}
			return showPackage(cmd, registry, args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

type packageListing struct {
	Bundled []string          `json:"bundled"`
	Legacy  map[string]string `json:"legacy"`
}

func listPackages(w io.Writer, registry *modules.Registry, jsonOutput bool) error {
	listing := packageListing{
		Bundled: registry.List(),
		Legacy:  make(map[string]string),
	}
	for _, name := range naming.LegacyServices() {
		pkg, err := naming.ResolvePackageName(name)
		if err != nil {
			return err
		}
		listing.Legacy[name] = pkg
	}

	if jsonOutput {
		return writeJSON(w, listing)
	}

	fmt.Fprintln(w, "Bundled packages:")
	for _, pkg := range listing.Bundled {
		fmt.Fprintf(w, "  %s\n", pkg)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tPACKAGE\tBUNDLED")
	for _, name := range naming.LegacyServices() {
		pkg := listing.Legacy[name]
		fmt.Fprintf(tw, "%s\t%s\t%t\n", name, pkg, registry.Has(pkg))
	}
	return tw.Flush()
}

type packageExports struct {
	Package  string   `json:"package"`
	Clients  []string `json:"clients"`
	Commands []string `json:"commands"`
}

func showPackage(cmd *cobra.Command, registry *modules.Registry, service string, jsonOutput bool) error {
	pkg, err := naming.ResolvePackageName(service)
	if err != nil {
		return err
	}

	m, err := registry.Get(cmd.Context(), pkg)
	if err != nil {
		return err
	}

	out := packageExports{Package: m.Package}
	for _, e := range m.Exports() {
		if e.IsClient() {
			out.Clients = append(out.Clients, e.Name)
		} else {
			out.Commands = append(out.Commands, e.Name)
		}
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(w, out)
	}

	fmt.Fprintf(w, "Package: %s\n", out.Package)
	fmt.Fprintf(w, "Clients: %v\n", out.Clients)
	fmt.Fprintf(w, "Commands (%d):\n", len(out.Commands))
	for _, name := range out.Commands {
		fmt.Fprintf(w, "  %s\n", name)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
