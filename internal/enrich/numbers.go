package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-batch/internal/llm"
)

// ErrNoCorrector is returned when a number needs repair but no corrector is configured.
var ErrNoCorrector = errors.New("no number corrector configured")

var numberCleaner = strings.NewReplacer("€", "", ",", ".", " ", "", "\u00a0", "", "\t", "")

// CleanNumber strips currency symbols and whitespace and turns decimal commas into points.
func CleanNumber(raw string) string {
	return strings.TrimSpace(numberCleaner.Replace(raw))
}

type correction struct {
	value *float64
	err   error
}

// NumberCoercer parses invoice numbers. Values that stay ambiguous after cleaning
// (more than one point, or otherwise unparseable) go to the corrector once per
// distinct value and run; a failed repair yields nil, never zero.
type NumberCoercer struct {
	corrector llm.NumberCorrector
	cache     map[string]correction
	logger    *slog.Logger
}

func NewNumberCoercer(corrector llm.NumberCorrector, logger *slog.Logger) *NumberCoercer {
	if logger == nil {
		logger = slog.Default()
	}
	return &NumberCoercer{corrector: corrector, cache: map[string]correction{}, logger: logger}
}

// Coerce returns the numeric value of raw, or nil when raw is empty or irreparable.
func (n *NumberCoercer) Coerce(ctx context.Context, raw string) (*float64, error) {
	cleaned := CleanNumber(raw)
	if isMissingNumber(cleaned) {
		return nil, nil
	}
	if strings.Count(cleaned, ".") <= 1 {
		if d, err := decimal.NewFromString(cleaned); err == nil {
			v := d.InexactFloat64()
			return &v, nil
		}
	}

	if c, ok := n.cache[cleaned]; ok {
		return c.value, c.err
	}
	c := n.correct(ctx, cleaned)
	n.cache[cleaned] = c
	return c.value, c.err
}

// Corrections is the number of distinct values sent to the corrector.
func (n *NumberCoercer) Corrections() int {
	return len(n.cache)
}

func (n *NumberCoercer) correct(ctx context.Context, cleaned string) correction {
	if n.corrector == nil {
		return correction{err: ErrNoCorrector}
	}
	v, err := n.corrector.FixNumber(ctx, cleaned)
	if err != nil {
		n.logger.Warn("enrich.numbers.correction_failed", "value", cleaned, "error", err)
		return correction{err: fmt.Errorf("correct %q: %w", cleaned, err)}
	}
	n.logger.Debug("enrich.numbers.corrected", "value", cleaned, "result", v)
	return correction{value: &v}
}

func isMissingNumber(s string) bool {
	switch strings.ToLower(s) {
	case "", "none", "nan", "null", "-":
		return true
	}
	return false
}
