package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nconklindev/kbnsheet/internal/converter"
	"github.com/nconklindev/kbnsheet/internal/schema"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		sf         schemaFlags
		headerRows int
		delimiter  string
		encoding   string
		sheetName  string
	)

	cmd := &cobra.Command{
		Use:   "convert <input> [output]",
		Short: "Convert a delimited file to xlsx",
		Long: `Convert a delimited file to an xlsx workbook.

The output defaults to the input path with an .xlsx extension. Without
--schema or --schema-file the column types are inferred from the first
rows of the file.`,
		Example: `  kbnsheet convert orders.csv -s "int,str,date,kbn_list"
  kbnsheet convert export.tsv out.xlsx --delimiter tab --encoding shift_jis
  kbnsheet convert orders.csv --schema-file orders.schema.yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			output := strings.TrimSuffix(input, filepath.Ext(input)) + ".xlsx"
			if len(args) == 2 {
				output = args[1]
			}

			flags := cmd.Flags()
			if flags.Changed("header-rows") {
				a.cfg.HeaderRows = headerRows
			}
			if flags.Changed("delimiter") {
				a.cfg.Delimiter = delimiter
			}
			if flags.Changed("encoding") {
				a.cfg.Encoding = encoding
			}
			if flags.Changed("sheet") {
				a.cfg.SheetName = sheetName
			}

			opts, err := a.options()
			if err != nil {
				return err
			}

			defs, err := sf.load()
			if err != nil {
				return err
			}
			if defs == nil {
				data, err := converter.ReadFileData(input, opts)
				if err != nil {
					return err
				}
				defs = schema.Infer(data)
				a.logger.Info("inferred schema", zap.Strings("types", typeTags(defs)))
			}

			result, err := converter.Convert(input, output, defs, opts, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Converted %s -> %s\n", result.InputFile, result.OutputFile)
			fmt.Fprintf(out, "Rows: %d (+%d header)\n", result.RowsProcessed, result.HeaderRows)
			fmt.Fprintf(out, "Dropdowns: %d\n", result.Dropdowns())
			for _, v := range result.Validations {
				if v.Skipped {
					fmt.Fprintf(out, "  column %d skipped: %s\n", v.Column+1, v.Reason)
				}
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().IntVar(&headerRows, "header-rows", converter.DefaultHeaderRows, "rows copied verbatim before the data")
	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", string(converter.DefaultDelimiter), `field delimiter ("tab" for \t)`)
	cmd.Flags().StringVarP(&encoding, "encoding", "e", converter.DefaultEncoding, "input text encoding")
	cmd.Flags().StringVar(&sheetName, "sheet", "", "worksheet name")

	return cmd
}

func typeTags(defs schema.Schema) []string {
	tags := make([]string, len(defs))
	for i, def := range defs {
		tags[i] = def.Type.Tag()
	}
	return tags
}
