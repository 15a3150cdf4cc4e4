package llm

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
)

var (
	// ErrExtractionRefused is returned when the model answers with its error marker
	// instead of a table.
	ErrExtractionRefused = errors.New("extraction refused")
	// ErrNoNumber is returned when the corrector cannot produce a number.
	ErrNoNumber = errors.New("no number")
	// ErrUnknownLabel is returned when the classifier answer is outside the vocabulary.
	ErrUnknownLabel = errors.New("unknown document label")
)

// Document is what the control loop hands to a gateway: either extracted text or a
// base64 PNG of the first page.
type Document struct {
	Text        string
	ImageBase64 string
	FileName    string
}

// IsImage reports whether the document is sent as an image.
func (d Document) IsImage() bool {
	return d.ImageBase64 != ""
}

// Classifier labels a whole document.
type Classifier interface {
	Classify(ctx context.Context, doc Document) (constants.DocumentLabel, error)
}

// ItemExtractor returns the line items of an invoice as semicolon delimited text.
// A refusal is reported as an error wrapping ErrExtractionRefused.
type ItemExtractor interface {
	ExtractItems(ctx context.Context, doc Document) (string, error)
}

// Categorizer assigns category and subcategory to item descriptions in one request.
type Categorizer interface {
	Categorize(ctx context.Context, descriptions []string) ([]entity.CategoryAssignment, error)
}

// NumberCorrector repairs a number whose separators are ambiguous.
type NumberCorrector interface {
	FixNumber(ctx context.Context, raw string) (float64, error)
}
