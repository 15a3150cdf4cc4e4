package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-batch/internal/export"
)

func newLedgerCmd(root *rootOptions) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Check the processed-file ledger and report its size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := root.cfg, root.logger
			store, err := openLedger(cmd.Context(), cfg, export.NewWorkbook(logger), logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					logger.Warn("ledger.close.error", "error", err)
				}
			}()

			seen, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("ledger: FAIL (%w)", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ledger (%s): OK, %d verarbeitete Dateien\n", cfg.Ledger.Backend, len(seen))
			if list {
				names := make([]string, 0, len(seen))
				for name := range seen {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, n := range names {
					fmt.Fprintln(out, n)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print every recorded file name")
	return cmd
}
