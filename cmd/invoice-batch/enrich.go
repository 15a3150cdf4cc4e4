package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-batch/internal/export"
	"github.com/joseph-ayodele/invoice-batch/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-batch/internal/pipeline"
)

func newEnrichCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Merge the existing batch workbooks without processing new input",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger := root.cfg, root.logger
			if err := cfg.RequireLLM(); err != nil {
				return err
			}
			wb := export.NewWorkbook(logger)
			client := openai.NewClient(openai.ConfigFrom(cfg), logger)
			rc := pipeline.NewRunContext(time.Now(), cfg.Paths.OutputPath(), wb, logger)

			res, err := newEnricher(cfg, wb, client, logger).Run(ctx, rc)
			out := cmd.OutOrStdout()
			if err == nil {
				printEnrichResult(out, res)
				printErrors(out, rc.Errors())
			} else {
				rc.AddError("Anreicherung fehlgeschlagen: %v", err)
			}
			if path, wErr := rc.WriteErrorLog(cfg.Paths.Resolve(cfg.Paths.ErrorLogFile)); wErr != nil {
				logger.Error("enrich.error_log.write_error", "error", wErr)
			} else if path != "" {
				fmt.Fprintf(out, "Fehlerprotokoll: %s\n", path)
			}
			return err
		},
	}
}
