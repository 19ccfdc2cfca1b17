package pdf

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/freelancehub/internal/model"
)

func sampleDocument() model.AgreementDocument {
	phone := "+77011234567"
	days := 7
	fixed := int64(50000)
	return model.AgreementDocument{
		Assignment: model.Assignment{ID: uuid.New(), CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		Proposal: model.Proposal{
			ID:          uuid.New(),
			BidAmount:   decimal.RequireFromString("45000.5"),
			Days:        &days,
			CoverLetter: "I have built many landing pages.",
		},
		Job: model.Job{
			Title:        "Landing page",
			Category:     "Web",
			Description:  "One page site with a contact form.",
			BudgetType:   model.BudgetFixed,
			BudgetFixed:  &fixed,
			DeadlineType: model.DeadlineFlexible,
		},
		Customer: model.User{FirstName: "Aida", LastName: "Sarsen", Email: "aida@example.com", Phone: &phone},
		Executor: model.User{FirstName: "Dias", LastName: "Omar", Email: "dias@example.com"},
	}
}

func TestGenerateWithEmbeddedFont(t *testing.T) {
	gen, err := NewGenerator("")
	require.NoError(t, err)

	data, err := gen.Generate(sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.True(t, bytes.Contains(data, []byte("%%EOF")))
}

// pdfText renders s the way gofpdf writes UTF-8 font text into a content stream.
func pdfText(s string) []byte {
	var buf bytes.Buffer
	for _, unit := range utf16.Encode([]rune(s)) {
		buf.WriteByte(byte(unit >> 8))
		buf.WriteByte(byte(unit))
	}
	escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, "\r", `\r`).Replace(buf.String())
	return []byte(escaped)
}

func TestGenerateKeepsCyrillicText(t *testing.T) {
	gen, err := NewGenerator("")
	require.NoError(t, err)
	gen.compress = false

	for _, category := range model.Categories {
		t.Run(category, func(t *testing.T) {
			doc := sampleDocument()
			doc.Job.Category = category
			doc.Job.Title = "Лендинг для кофейни"
			doc.Executor.FirstName = "Диас"

			data, err := gen.Generate(doc)
			require.NoError(t, err)
			assert.True(t, bytes.Contains(data, pdfText(fmt.Sprintf("Category: %s", category))))
			assert.True(t, bytes.Contains(data, pdfText("Лендинг для кофейни")))
			assert.True(t, bytes.Contains(data, pdfText("Диас Omar")))
		})
	}
}

func TestNewGeneratorMissingFont(t *testing.T) {
	_, err := NewGenerator(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.ErrorContains(t, err, "read pdf font")
}

func TestFormatters(t *testing.T) {
	low, high := int64(100), int64(300)
	assert.Equal(t, "100 - 300", formatBudget(model.Job{BudgetType: model.BudgetRange, BudgetMin: &low, BudgetMax: &high}))
	assert.Equal(t, "-", formatBudget(model.Job{BudgetType: model.BudgetRange}))
	assert.Equal(t, "-", formatDays(nil))
	assert.Equal(t, "-", safeValue("  "))
	assert.Equal(t, "-", formatDate(time.Time{}))
	assert.Equal(t, "01.05.2024", formatDate(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
}
