package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nconklindev/kbnsheet/internal/converter"
	"github.com/nconklindev/kbnsheet/internal/schema"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInferCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "infer <input>",
		Short: "Print a schema guessed from the first rows of a file",
		Long: `Print a schema guessed from the first rows of a file.

The yaml and json formats can be edited and passed back with
--schema-file; the types format prints a plain type list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}

			data, err := converter.ReadFileData(args[0], opts)
			if err != nil {
				return err
			}
			defs := schema.Infer(data)

			out := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(defs); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(defs.Descriptors())
			case "types":
				_, err := fmt.Fprintln(out, strings.Join(typeTags(defs), ","))
				return err
			default:
				return fmt.Errorf("unknown format %q (want yaml, json or types)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml, json or types")

	return cmd
}
