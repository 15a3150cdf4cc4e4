package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-batch/internal/ingest"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline whenever new PDFs land in the input folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, root.cfg, root.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			input := a.cfg.Paths.InputPath()
			if err := os.MkdirAll(input, 0o755); err != nil {
				return err
			}
			triggers, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
				Dir:         input,
				InitialScan: true,
				Debounce:    debounce,
			}, a.logger)
			if err != nil {
				return err
			}
			a.logger.Info("watch.start", "dir", input, "debounce", debounce.String())

			// runs are serial: a trigger arriving mid-run is coalesced into the next one
			for {
				select {
				case <-ctx.Done():
					a.logger.Info("watch.stop")
					return nil
				case werr, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					a.logger.Warn("watch.error", "error", werr)
				case _, ok := <-triggers:
					if !ok {
						return nil
					}
					if err := a.runOnce(ctx, cmd.OutOrStdout(), runOptions{enrich: true}); err != nil {
						if isCancelled(err) {
							return nil
						}
						a.logger.Error("watch.run.error", "error", err)
					}
				}
			}
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period after the last file event before a run starts")
	return cmd
}
