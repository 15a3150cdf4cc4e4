package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-batch/internal/enrich"
	"github.com/joseph-ayodele/invoice-batch/internal/ingest"
	"github.com/joseph-ayodele/invoice-batch/internal/pipeline"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		noProgress bool
		skipEnrich bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the input folder once and enrich all batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, root.cfg, root.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.runOnce(ctx, cmd.OutOrStdout(), runOptions{progress: !noProgress, enrich: !skipEnrich})
		},
	}
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	cmd.Flags().BoolVar(&skipEnrich, "skip-enrich", false, "only run the per-file loop")
	return cmd
}

type runOptions struct {
	progress bool
	enrich   bool
}

// runOnce runs the control loop over the input folder followed by the enrichment
// pass. The error log is written whenever the run collected errors, also when the
// run itself fails.
func (a *app) runOnce(ctx context.Context, out io.Writer, opts runOptions) (err error) {
	rc := pipeline.NewRunContext(time.Now(), a.cfg.Paths.OutputPath(), a.workbook, a.logger)
	defer func() {
		if err != nil {
			rc.AddError("Lauf fehlgeschlagen: %v", err)
		}
		path, wErr := rc.WriteErrorLog(a.cfg.Paths.Resolve(a.cfg.Paths.ErrorLogFile))
		if wErr != nil {
			a.logger.Error("run.error_log.write_error", "error", wErr)
			return
		}
		if path != "" {
			fmt.Fprintf(out, "Fehlerprotokoll: %s\n", path)
		}
	}()

	input := a.cfg.Paths.InputPath()
	files, stats, err := ingest.ListInput(input)
	if err != nil {
		return fmt.Errorf("list input: %w", err)
	}
	a.logger.Info("run.input", "dir", input, "scanned", stats.Scanned, "matched", stats.Matched, "skipped", stats.Skipped)

	var progress pipeline.Progress
	if opts.progress && len(files) > 0 {
		progress = newProgressBar(len(files))
	}

	if err := a.newProcessor(rc, progress).Run(ctx, rc, files); err != nil {
		fmt.Fprint(out, rc.Summary())
		if isCancelled(err) {
			fmt.Fprintln(out, "Lauf unterbrochen; nicht gespeicherte Positionen liegen in der Sicherungsdatei.")
		}
		return err
	}
	fmt.Fprint(out, rc.Summary())

	if !opts.enrich {
		return nil
	}
	res, err := newEnricher(a.cfg, a.workbook, a.client, a.logger).Run(ctx, rc)
	if err != nil {
		return err
	}
	printEnrichResult(out, res)
	printErrors(out, rc.Errors())
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription("Rechnungen"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("Dateien"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printEnrichResult(out io.Writer, res enrich.Result) {
	if res.FinalPath == "" {
		fmt.Fprintln(out, "Keine Batch-Dateien gefunden, keine Gesamtdatei geschrieben.")
		return
	}
	fmt.Fprintf(out, "Gesamtdatei: %s (%d Positionen aus %d Batches)\n", res.FinalPath, res.Rows, res.Batches)
	fmt.Fprintf(out, "  Kategorien übernommen / neu / offen: %d / %d / %d\n", res.Reused, res.Derived, res.Uncategorized)
	if res.Corrections > 0 {
		fmt.Fprintf(out, "  Zahlenkorrekturen:   %d\n", res.Corrections)
	}
	if res.CategoryLogPath != "" {
		fmt.Fprintf(out, "  Kategorielog:        %s\n", res.CategoryLogPath)
	}

	fmt.Fprintln(out, "Nächste Schritte:")
	if res.MappingCreated {
		fmt.Fprintln(out, "  - Einheiten-Mapping wurde neu angelegt; bitte Zuordnungen ergänzen.")
	}
	if len(res.UnknownUnits) > 0 {
		fmt.Fprintf(out, "  - %d unbekannte Einheiten prüfen: %s\n", len(res.UnknownUnits), res.UnknownUnitsPath)
	}
	if res.Uncategorized > 0 {
		fmt.Fprintf(out, "  - %d Positionen ohne Kategorie nachpflegen.\n", res.Uncategorized)
	}
	fmt.Fprintln(out, "  - Problemrechnungen im Ordner *_problemrechnungen sichten.")
}

func printErrors(out io.Writer, errs []string) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(out, "%d Fehler während des Laufs:\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(out, "  - %s\n", e)
	}
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
