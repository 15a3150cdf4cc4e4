package openai

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/common"
	"github.com/joseph-ayodele/invoice-batch/internal/llm"
)

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"content": content}}},
	})
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fixedReply(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, chatReply(content))
	}
}

func TestClassify(t *testing.T) {
	t.Run("label from json", func(t *testing.T) {
		var gotAuth string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			assert.Equal(t, "/chat/completions", r.URL.Path)
			_, _ = io.WriteString(w, chatReply(`{"label": "rechnung"}`))
		})
		label, err := c.Classify(t.Context(), llm.Document{Text: "Rechnung Nr. 1", FileName: "a.pdf"})
		require.NoError(t, err)
		assert.Equal(t, constants.LabelInvoice, label)
		assert.Equal(t, "Bearer test-key", gotAuth)
	})

	t.Run("reminder is not an invoice", func(t *testing.T) {
		c := newTestClient(t, fixedReply(`{"label": "mahnung"}`))
		label, err := c.Classify(t.Context(), llm.Document{Text: "Mahnung"})
		require.NoError(t, err)
		assert.False(t, label.IsInvoice())
	})

	t.Run("unknown answer", func(t *testing.T) {
		c := newTestClient(t, fixedReply(`{"label": "quittungsblock"}`))
		label, err := c.Classify(t.Context(), llm.Document{Text: "x"})
		require.ErrorIs(t, err, llm.ErrUnknownLabel)
		assert.Equal(t, constants.LabelUnknown, label)
	})

	t.Run("image document sends image part", func(t *testing.T) {
		var body string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			body = string(b)
			_, _ = io.WriteString(w, chatReply(`{"label": "rechnung"}`))
		})
		_, err := c.Classify(t.Context(), llm.Document{ImageBase64: "iVBORw0KGgo=", FileName: "scan.pdf"})
		require.NoError(t, err)
		assert.Contains(t, body, "data:image/png;base64,iVBORw0KGgo=")
		assert.Contains(t, body, `"json_object"`)
	})
}

func TestExtractItems(t *testing.T) {
	t.Run("strips code fence", func(t *testing.T) {
		c := newTestClient(t, fixedReply("```csv\nArtikelbezeichnung;Menge\nBausand;2\n```"))
		out, err := c.ExtractItems(t.Context(), llm.Document{Text: "Rechnung"})
		require.NoError(t, err)
		assert.Equal(t, "Artikelbezeichnung;Menge\nBausand;2", out)
	})

	t.Run("refusal", func(t *testing.T) {
		c := newTestClient(t, fixedReply("FEHLER: keine Positionen erkennbar"))
		_, err := c.ExtractItems(t.Context(), llm.Document{Text: "Rechnung"})
		require.ErrorIs(t, err, llm.ErrExtractionRefused)
		assert.Contains(t, err.Error(), "keine Positionen erkennbar")
	})
}

func TestCategorize(t *testing.T) {
	c := newTestClient(t, fixedReply("Artikelbezeichnung;Hauptkategorie;Unterkategorie\nBausand 0/2;Baustoffe;Sand\nContainer 10m3;Entsorgung;Container"))
	rows, err := c.Categorize(t.Context(), []string{"Bausand 0/2", "Container 10m3"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bausand 0/2", rows[0].Description)
	assert.Equal(t, "Baustoffe", rows[0].Category)
	assert.Equal(t, "Container", rows[1].Subcategory)

	empty, err := c.Categorize(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFixNumber(t *testing.T) {
	t.Run("value", func(t *testing.T) {
		c := newTestClient(t, fixedReply(`{"value": 4473.39}`))
		v, err := c.FixNumber(t.Context(), "4.473.39")
		require.NoError(t, err)
		assert.InDelta(t, 4473.39, v, 1e-9)
	})

	t.Run("null", func(t *testing.T) {
		c := newTestClient(t, fixedReply(`{"value": null}`))
		_, err := c.FixNumber(t.Context(), "abc")
		require.ErrorIs(t, err, llm.ErrNoNumber)
	})
}

func TestChatRetries(t *testing.T) {
	t.Run("server error is retried", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				http.Error(w, "upstream", http.StatusBadGateway)
				return
			}
			_, _ = io.WriteString(w, chatReply(`{"label": "gutschrift"}`))
		})
		label, err := c.Classify(t.Context(), llm.Document{Text: "Gutschrift"})
		require.NoError(t, err)
		assert.Equal(t, constants.LabelCreditNote, label)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("client error is permanent", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
		})
		_, err := c.ExtractItems(t.Context(), llm.Document{Text: "Rechnung"})
		require.ErrorIs(t, err, common.ErrGateway)
		assert.Equal(t, int32(1), calls.Load())
		assert.True(t, strings.Contains(err.Error(), "400"))
	})
}
