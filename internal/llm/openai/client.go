package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/common"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
	"github.com/joseph-ayodele/invoice-batch/internal/llm"
)

var (
	_ llm.Classifier      = (*Client)(nil)
	_ llm.ItemExtractor   = (*Client)(nil)
	_ llm.Categorizer     = (*Client)(nil)
	_ llm.NumberCorrector = (*Client)(nil)
)

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify labels a document. Answers outside the vocabulary come back as
// LabelUnknown together with an error wrapping llm.ErrUnknownLabel.
func (c *Client) Classify(ctx context.Context, doc llm.Document) (constants.DocumentLabel, error) {
	start := time.Now()
	labels := constants.DocumentLabels()
	messages := []map[string]any{
		{"role": "system", "content": llm.BuildClassifySystemPrompt(labels)},
		{"role": "user", "content": llm.UserContent(doc, "Welcher Dokumenttyp liegt vor?", c.cfg.ClassifyChars)},
	}

	content, err := c.chat(ctx, "classify", messages, true)
	if err != nil {
		return constants.LabelUnknown, err
	}
	if vErr := llm.ValidateJSONAgainstSchema(llm.ClassificationSchema(labels), []byte(content)); vErr != nil {
		c.logger.Warn("llm.classify.schema_mismatch", "file", doc.FileName, "error", vErr, "content", llm.TruncateRunes(content, 200))
	}
	label, ok := llm.ParseLabel(content)
	if !ok {
		c.logger.Warn("llm.classify.unknown_label", "file", doc.FileName, "content", llm.TruncateRunes(content, 200))
		return constants.LabelUnknown, fmt.Errorf("%w: %q", llm.ErrUnknownLabel, llm.TruncateRunes(content, 80))
	}

	c.logger.Info("llm.classify.ok",
		"file", doc.FileName,
		"label", label,
		"image", doc.IsImage(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return label, nil
}

// ExtractItems returns the delimited item table for an invoice.
func (c *Client) ExtractItems(ctx context.Context, doc llm.Document) (string, error) {
	start := time.Now()
	messages := []map[string]any{
		{"role": "system", "content": llm.BuildExtractSystemPrompt()},
		{"role": "user", "content": llm.UserContent(doc, "Extrahiere alle Rechnungspositionen.", c.cfg.ExtractChars)},
	}

	content, err := c.chat(ctx, "extract", messages, false)
	if err != nil {
		return "", err
	}
	content = llm.StripCodeFence(content)
	if reason, refused := llm.DetectRefusal(content); refused {
		c.logger.Warn("llm.extract.refused", "file", doc.FileName, "reason", reason)
		return "", fmt.Errorf("%w: %s", llm.ErrExtractionRefused, reason)
	}

	c.logger.Info("llm.extract.ok",
		"file", doc.FileName,
		"image", doc.IsImage(),
		"bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// Categorize sends all descriptions in a single request.
func (c *Client) Categorize(ctx context.Context, descriptions []string) ([]entity.CategoryAssignment, error) {
	if len(descriptions) == 0 {
		return nil, nil
	}
	start := time.Now()
	messages := []map[string]any{
		{"role": "system", "content": llm.BuildCategorizeSystemPrompt()},
		{"role": "user", "content": llm.BuildCategorizeUserPrompt(descriptions)},
	}

	content, err := c.chat(ctx, "categorize", messages, false)
	if err != nil {
		return nil, err
	}
	rows := llm.ParseCategoryRows(content)

	c.logger.Info("llm.categorize.ok",
		"requested", len(descriptions),
		"returned", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rows, nil
}

// FixNumber asks the model to repair an ambiguous number.
func (c *Client) FixNumber(ctx context.Context, raw string) (float64, error) {
	messages := []map[string]any{
		{"role": "system", "content": llm.BuildNumberFixSystemPrompt()},
		{"role": "user", "content": raw},
	}

	content, err := c.chat(ctx, "fix_number", messages, true)
	if err != nil {
		return 0, err
	}
	if vErr := llm.ValidateJSONAgainstSchema(llm.NumberSchema(), []byte(content)); vErr != nil {
		return 0, fmt.Errorf("%w: %v", llm.ErrNoNumber, vErr)
	}
	var reply struct {
		Value *json.Number `json:"value"`
	}
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(&reply); err != nil {
		return 0, fmt.Errorf("%w: %v", llm.ErrNoNumber, err)
	}
	if reply.Value == nil {
		return 0, llm.ErrNoNumber
	}
	d, err := decimal.NewFromString(reply.Value.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", llm.ErrNoNumber, err)
	}
	v, _ := d.Float64()

	c.logger.Debug("llm.fix_number.ok", "raw", raw, "value", v)
	return v, nil
}

// chat posts one chat/completions request under a per-call timeout with retries
// and returns the trimmed content of the first choice.
func (c *Client) chat(ctx context.Context, op string, messages []map[string]any, jsonMode bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages":    messages,
	}
	if jsonMode {
		body["response_format"] = map[string]any{"type": "json_object"}
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	var content string
	err := common.WithRetry(ctx, func() error {
		raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
		if err != nil {
			return classifyHTTPError(err)
		}
		var cc chatResponse
		if err := json.Unmarshal(raw, &cc); err != nil {
			return common.Permanent(fmt.Errorf("decode openai response: %w", err))
		}
		if len(cc.Choices) == 0 {
			return common.Permanent(errors.New("no choices in openai response"))
		}
		content = strings.TrimSpace(cc.Choices[0].Message.Content)
		return nil
	}, common.RetryOptions{
		MaxAttempts:  c.cfg.MaxRetries,
		InitialDelay: c.cfg.RetryDelay,
		MaxDelay:     c.cfg.Timeout / 2,
	})
	if err != nil {
		attrs := append([]any{"model", c.cfg.Model, "error", err}, common.LogAttrs(ctx)...)
		c.logger.Error("llm."+op+".failed", attrs...)
		return "", common.GatewayError(op, err)
	}
	return content, nil
}

func classifyHTTPError(err error) error {
	var se *llm.StatusError
	if errors.As(err, &se) {
		if se.StatusCode == 429 {
			return fmt.Errorf("%w: %v", common.ErrRateLimit, err)
		}
		if !se.Retryable() {
			return common.Permanent(err)
		}
	}
	return err
}
