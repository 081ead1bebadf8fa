// Command espalier is the manifest toolchain for the command engine:
// validate manifests, export their tree structure, and try them out in
// an interactive console with echo handlers.
//
// Applications embed the library and bind real handlers; this binary
// binds printing stubs so a manifest can be exercised standalone.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/espalier-cmd/espalier/pkgs/command"
	"github.com/espalier-cmd/espalier/pkgs/console"
	"github.com/espalier-cmd/espalier/pkgs/manifest"
	"github.com/espalier-cmd/espalier/pkgs/registry"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "espalier",
		Short:         "Command-tree manifest toolchain",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCheckCmd(), newExportCmd(), newRunCmd())
	return root
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <manifest.json>",
		Short: "Validate a manifest and build its command trees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			m, err := manifest.Parse(data)
			if err != nil {
				return err
			}
			roots, err := manifest.Build(m, manifest.StubBindings(m))
			if err != nil {
				return err
			}
			reg := registry.New()
			for _, r := range roots {
				if err := reg.Register(r); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d commands (%s)\n",
				args[0], len(roots), strings.Join(reg.Words(), ", "))
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <manifest.json>",
		Short: "Export a manifest's tree structure as JSON or CBOR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			m, err := manifest.Parse(data)
			if err != nil {
				return err
			}
			roots, err := manifest.Build(m, manifest.StubBindings(m))
			if err != nil {
				return err
			}
			reg := registry.New()
			for _, r := range roots {
				if err := reg.Register(r); err != nil {
					return err
				}
			}

			var out []byte
			switch format {
			case "json":
				out, err = manifest.ExportJSON(manifest.Snapshot(reg))
			case "cbor":
				out, err = manifest.ExportCBOR(manifest.Snapshot(reg))
			default:
				return fmt.Errorf("unsupported format %q, use json or cbor", format)
			}
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return os.WriteFile(output, out, 0o644)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or cbor")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run <manifest.json>",
		Short: "Open an interactive console over a manifest with echo handlers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := console.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg.Manifest = args[0]

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			m, err := manifest.Parse(data)
			if err != nil {
				return err
			}

			reg := registry.New()
			return console.New(reg, cfg, nil).Run(echoBindings(m))
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Console config file (TOML)")
	return cmd
}

// echoBindings binds every run name in the manifest to a handler that
// prints the name and the parsed argument values.
func echoBindings(m manifest.Manifest) manifest.Bindings {
	b := manifest.StubBindings(m)
	for name := range b.Runs {
		name := name
		b.Runs[name] = func(src command.Source, ctx *command.Context) {
			parts := make([]string, 0, ctx.Len())
			for _, key := range ctx.Names() {
				v, _ := ctx.Get(key)
				parts = append(parts, fmt.Sprintf("%s=%v", key, v))
			}
			sort.Strings(parts)
			fmt.Printf("%s(%s)\n", name, strings.Join(parts, ", "))
		}
	}
	return b
}
