package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
	"github.com/joseph-ayodele/invoice-batch/internal/export"
	"github.com/joseph-ayodele/invoice-batch/internal/llm"
	"github.com/joseph-ayodele/invoice-batch/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-batch/internal/ocr"
	"github.com/joseph-ayodele/invoice-batch/internal/parse"
	"github.com/joseph-ayodele/invoice-batch/internal/plausibility"
)

// newClassifyCmd runs classification and extraction on one document without moving
// it or touching the ledger.
func newClassifyCmd(root *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "classify <file.pdf>",
		Short: "Dry-run classification and line-item extraction for a single PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := root.cfg, root.logger
			if err := cfg.RequireLLM(); err != nil {
				return err
			}
			patterns, err := cfg.CompiledRejectPatterns()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			path := args[0]
			start := time.Now()

			extractor := newExtractor(cfg, logger)
			client := openai.NewClient(openai.ConfigFrom(cfg), logger)

			doc := llm.Document{FileName: filepath.Base(path)}
			method := constants.MethodText
			res, err := extractor.ExtractText(ctx, path)
			if err != nil {
				logger.Warn("classify.text.error", "error", err)
			}
			text := ocr.Normalize(res.Text)
			if ocr.Probe(text, ocr.ProbeConfig{MinChars: cfg.Pipeline.MinTextChars, RejectPatterns: patterns}).Readable {
				doc.Text = text
			} else {
				method = constants.MethodImageOCR
				img, err := extractor.RenderFirstPage(ctx, path)
				if err != nil {
					return err
				}
				doc.ImageBase64 = img
			}

			out := cmd.OutOrStdout()
			label, err := client.Classify(ctx, doc)
			if err != nil && !errors.Is(err, llm.ErrUnknownLabel) {
				return err
			}
			fmt.Fprintf(out, "Dokumententyp: %s (%s)\n", label, method)
			if !label.IsInvoice() {
				return nil
			}

			raw, err := client.ExtractItems(ctx, doc)
			if err != nil {
				return err
			}
			rows, err := parse.New(cfg.Pipeline.KnownSuppliers, cfg.Pipeline.Subsidiaries).Parse(raw, parse.Meta{
				SourceFile:   doc.FileName,
				DocumentType: string(label),
				Method:       method,
				Duration:     time.Since(start).Seconds(),
				DocumentText: doc.Text,
			})
			if err != nil {
				fmt.Fprintln(out, raw)
				return err
			}
			plausibility.Tag(rows)
			for _, r := range rows {
				fmt.Fprintf(out, "%-40s %8s %-8s %10s  %s\n", r.Description, r.Quantity, r.Unit, r.TotalPrice, r.PlausibilityStatus)
			}

			if outPath != "" {
				data := make([][]any, len(rows))
				for i, r := range rows {
					data[i] = r.BatchValues()
				}
				if err := export.NewWorkbook(logger).Write(outPath, export.DefaultSheet, entity.BatchColumns, data); err != nil {
					return err
				}
				fmt.Fprintf(out, "geschrieben: %s\n", outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "also write the rows to this workbook")
	return cmd
}
