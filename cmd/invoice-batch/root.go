package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-batch/internal/common"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	workDir    string

	cfg    *common.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "invoice-batch",
		Short: "Classify PDF invoices, extract their line items and merge them into spreadsheets",
		Long: `invoice-batch processes every PDF in the input folder exactly once: it classifies the
document, extracts line items with an LLM, routes the file into a per-run outcome folder
and writes batch workbooks. A second pass merges all batches, harmonizes units and
numbers and assigns categories, reusing earlier category logs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML config file overlaid on the environment")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "json", "log format: json or text")
	cmd.PersistentFlags().StringVarP(&opts.workDir, "work-dir", "w", "", "working directory (overrides WORK_DIR)")

	cmd.AddCommand(
		newRunCmd(opts),
		newEnrichCmd(opts),
		newWatchCmd(opts),
		newProbeCmd(opts),
		newClassifyCmd(opts),
		newLedgerCmd(opts),
	)
	return cmd
}

func (o *rootOptions) setup() error {
	level, err := parseLevel(o.logLevel)
	if err != nil {
		return err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(o.logFormat) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	case "json", "":
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		return fmt.Errorf("unknown log format %q", o.logFormat)
	}
	o.logger = slog.New(handler)
	slog.SetDefault(o.logger)

	cfg := common.LoadConfig()
	if o.configFile != "" {
		if err := cfg.ApplyFile(o.configFile); err != nil {
			return err
		}
	}
	if o.workDir != "" {
		cfg.Paths.WorkDir = o.workDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
