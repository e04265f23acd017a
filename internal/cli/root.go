// Package cli wires the kbnsheet commands together.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/nconklindev/kbnsheet/internal/config"
	"github.com/nconklindev/kbnsheet/internal/converter"
	"github.com/nconklindev/kbnsheet/internal/logging"
	"github.com/nconklindev/kbnsheet/internal/schema"
	"github.com/nconklindev/kbnsheet/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// BuildInfo is stamped into the binary at release time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

// schemaFlags selects the column definitions for a conversion.
type schemaFlags struct {
	desc string
	file string
}

func (f *schemaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.desc, "schema", "s", "", `type list ("int,date,kbn_list") or JSON descriptor list`)
	cmd.Flags().StringVar(&f.file, "schema-file", "", "schema file (.yaml, .json or a plain type list)")
}

// load returns nil when neither flag is set, meaning the schema is inferred.
func (f *schemaFlags) load() (schema.Schema, error) {
	switch {
	case f.desc != "" && f.file != "":
		return nil, errors.New("--schema and --schema-file are mutually exclusive")
	case f.file != "":
		return schema.LoadFile(f.file)
	case f.desc != "":
		return schema.Parse(f.desc)
	}
	return nil, nil
}

// Execute runs the root command.
func Execute(info BuildInfo) error {
	return NewRootCmd(info).Execute()
}

// NewRootCmd builds the command tree. Without a subcommand it starts the
// interactive converter.
func NewRootCmd(info BuildInfo) *cobra.Command {
	a := &app{}
	var sf schemaFlags

	root := &cobra.Command{
		Use:   "kbnsheet",
		Short: "Convert delimited text into Excel workbooks with dropdown lists",
		Long: `kbnsheet converts CSV and other delimited text into an xlsx workbook.

Each column follows a schema entry: str, int, date or kbn_list.
kbn_list columns get an in-cell dropdown built from a fixed set of
values or from the values found in the data.

Run without a command to pick a file and review column types
interactively.`,
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Root() == cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, err := sf.load()
			if err != nil {
				return err
			}
			opts, err := a.options()
			if err != nil {
				return err
			}

			p := tea.NewProgram(ui.InitialModel(opts, preset), tea.WithAltScreen(), tea.WithMouseCellMotion())
			_, err = p.Run()
			return err
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("kbnsheet %s\ncommit: %s\nbuilt: %s\n", info.Version, info.Commit, info.Date))

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "config file")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "debug logging")
	sf.register(root)

	root.AddCommand(
		newConvertCmd(a),
		newInferCmd(a),
		newServeCmd(a),
	)

	return root
}

// setup loads .env, the config file and the logger. The interactive mode
// owns the terminal, so it logs to the configured file or nowhere.
func (a *app) setup(interactive bool) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	a.cfg = cfg

	switch {
	case interactive && cfg.Logging.File == "":
		a.logger = zap.NewNop()
	case interactive:
		a.logger, err = logging.NewFile(cfg.Logging.Level, cfg.Logging.File)
	default:
		a.logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	return err
}

// options returns converter options from the config after the command's
// overrides have been applied.
func (a *app) options() (converter.Options, error) {
	return a.cfg.ConverterOptions(a.logger)
}
