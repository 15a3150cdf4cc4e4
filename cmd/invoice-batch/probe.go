package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-batch/internal/ocr"
)

func newProbeCmd(root *rootOptions) *cobra.Command {
	var showText bool
	cmd := &cobra.Command{
		Use:   "probe <file.pdf>",
		Short: "Show whether a PDF takes the text or the image path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			patterns, err := cfg.CompiledRejectPatterns()
			if err != nil {
				return err
			}
			path := args[0]
			res, err := newExtractor(cfg, root.logger).ExtractText(cmd.Context(), path)
			if err != nil {
				return err
			}
			text := ocr.Normalize(res.Text)
			verdict := ocr.Probe(text, ocr.ProbeConfig{MinChars: cfg.Pipeline.MinTextChars, RejectPatterns: patterns})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Datei:      %s\n", filepath.Base(path))
			fmt.Fprintf(out, "Verfahren:  %s (%d Seiten, %dms)\n", res.Method, res.Pages, res.Duration.Milliseconds())
			fmt.Fprintf(out, "Zeichen:    %d\n", verdict.Chars)
			if verdict.Readable {
				fmt.Fprintf(out, "Ergebnis:   Text (Konfidenz %.2f)\n", verdict.Confidence)
			} else {
				fmt.Fprintf(out, "Ergebnis:   Bild (%s)\n", verdict.Reason)
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "Warnung:    %s\n", w)
			}
			if showText {
				fmt.Fprintln(out, "---")
				fmt.Fprintln(out, text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showText, "text", false, "print the normalized text layer")
	return cmd
}
