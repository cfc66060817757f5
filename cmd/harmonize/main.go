package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Big-Life-Lab/cchsflow-sub003/internal/config"
	"github.com/Big-Life-Lab/cchsflow-sub003/internal/logging"
	"github.com/Big-Life-Lab/cchsflow-sub003/pkg/catalog"
	"github.com/Big-Life-Lab/cchsflow-sub003/pkg/missing"
)

var version = "0.1.0"

// app holds what every subcommand needs. It is populated by the root
// command's PersistentPreRunE.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *missing.Registry
	detector *catalog.Detector
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "harmonize",
		Short: "Missing-data harmonization for survey variables",
		Long: `Harmonize classifies, propagates and converts missing values in
health-survey variables.

Each variable follows a missing-value pattern that maps sentinel codes
(e.g. 996-999) and tagged nulls (NA(a), NA(b), ...) onto categories such as
not applicable and missing data. Patterns come from a YAML file, falling back
to the built-in defaults.

Environment:
  CCHSFLOW_PATTERNS_FILE  patterns YAML tried before the default locations
  CCHSFLOW_CATALOG_FILE   variable catalogue (CSV or XLSX)
  CCHSFLOW_RULES_FILE     naming rules YAML replacing the built-in rules
  CCHSFLOW_LOG_LEVEL      debug, info, warn or error (default warn)
  CCHSFLOW_WATCH          reload patterns when the file changes`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.registry != nil {
				a.registry.StopWatch()
			}
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().String("patterns", "", "Missing-value patterns YAML file")
	rootCmd.PersistentFlags().String("catalog", "", "Variable catalogue (CSV or XLSX)")
	rootCmd.PersistentFlags().String("rules", "", "Naming rules YAML file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(patternsCmd(a))
	rootCmd.AddCommand(detectCmd(a))
	rootCmd.AddCommand(classifyCmd(a))
	rootCmd.AddCommand(propagateCmd(a))
	rootCmd.AddCommand(validateCmd(a))
	rootCmd.AddCommand(deriveCmd(a))
	rootCmd.AddCommand(convertCmd(a))

	return rootCmd
}

// setup loads the environment config, applies flag overrides and builds the
// registry and detector.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("patterns") {
		cfg.PatternsFile, _ = flags.GetString("patterns")
	}
	if flags.Changed("catalog") {
		cfg.CatalogFile, _ = flags.GetString("catalog")
	}
	if flags.Changed("rules") {
		cfg.RulesFile, _ = flags.GetString("rules")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if cfg.PatternsFile != "" {
		if _, err := os.Stat(cfg.PatternsFile); err != nil {
			return fmt.Errorf("%w: %w", missing.ErrConfigNotFound, err)
		}
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = logger

	a.registry = missing.NewRegistry(
		missing.WithLogger(logger),
		missing.WithSources(cfg.PatternsFile),
		missing.WithSources(missing.DefaultSources()...),
		missing.WithEmbeddedDefaults(),
	)

	var rules *catalog.RuleSet
	if cfg.RulesFile != "" {
		rules, err = catalog.LoadRules(cfg.RulesFile)
		if err != nil {
			return err
		}
	}
	var cat *catalog.Catalog
	if cfg.CatalogFile != "" {
		cat, err = catalog.OpenCatalog(cfg.CatalogFile, logger)
		if err != nil {
			return err
		}
	}
	a.detector = catalog.NewDetector(cat, rules, logger)
	return nil
}

// handler builds a Handler from the shared --pattern, --variable, --format
// and --output flags.
func (a *app) handler(cmd *cobra.Command, inputs ...[]missing.Value) (*missing.Handler, error) {
	explicit, _ := cmd.Flags().GetString("pattern")
	variable, _ := cmd.Flags().GetString("variable")
	formatStr, _ := cmd.Flags().GetString("format")
	outputStr, _ := cmd.Flags().GetString("output")

	name, err := a.detector.Resolve(variable, explicit, "")
	if err != nil {
		return nil, err
	}
	format, err := missing.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}
	output, err := missing.ParseOutput(outputStr)
	if err != nil {
		return nil, err
	}

	h, err := missing.NewHandler(a.registry, missing.HandlerOptions{
		Pattern:    name,
		Output:     output,
		FormatHint: format,
	}, inputs...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("handler ready",
		zap.String("pattern", name),
		zap.Stringer("format", h.Format()),
		zap.Stringer("output", h.Output()))
	return h, nil
}

func addHandlerFlags(cmd *cobra.Command, withOutput bool) {
	cmd.Flags().StringP("pattern", "p", "", "Missing-value pattern (detected from --variable when omitted)")
	cmd.Flags().String("variable", "", "Variable name used to detect the pattern")
	cmd.Flags().String("format", "auto", "Input format: auto, raw, tagged or mixed")
	if withOutput {
		cmd.Flags().String("output", "auto", "Output format: auto, raw or tagged")
	}
}
