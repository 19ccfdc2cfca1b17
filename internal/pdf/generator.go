package pdf

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/freelancehub/internal/model"
)

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	dejaVuRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	dejaVuBold []byte
)

type Generator struct {
	fontName string
	regular  []byte
	bold     []byte
	compress bool
}

// NewGenerator uses the embedded DejaVu Sans fonts. A non-empty fontPath
// replaces them with a single TTF used for both regular and bold text.
func NewGenerator(fontPath string) (*Generator, error) {
	if strings.TrimSpace(fontPath) == "" {
		if len(dejaVuRegular) == 0 || len(dejaVuBold) == 0 {
			return nil, fmt.Errorf("font data is empty")
		}
		return &Generator{fontName: "DejaVuSans", regular: dejaVuRegular, bold: dejaVuBold, compress: true}, nil
	}
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read pdf font: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("font data is empty")
	}
	return &Generator{fontName: "Agreement", regular: data, bold: data, compress: true}, nil
}

func (g *Generator) Generate(doc model.AgreementDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetCompression(g.compress)
	pdf.AddPage()

	pdf.AddUTF8FontFromBytes(g.fontName, "", g.regular)
	pdf.AddUTF8FontFromBytes(g.fontName, "B", g.bold)

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "Assignment agreement", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("No. %s of %s", doc.Assignment.ID, formatDate(doc.Assignment.CreatedAt)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	addPartyBlock(pdf, g.fontName, "Customer", doc.Customer)
	pdf.Ln(2)
	addPartyBlock(pdf, g.fontName, "Executor", doc.Executor)
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Job", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	lines := []string{
		doc.Job.Title,
		fmt.Sprintf("Category: %s", safeValue(doc.Job.Category)),
		fmt.Sprintf("Budget: %s", formatBudget(doc.Job)),
		fmt.Sprintf("Deadline: %s (%s)", safeValue(doc.Job.Deadline), doc.Job.DeadlineType),
		fmt.Sprintf("Location: %s", safeValue(doc.Job.Location)),
	}
	for _, line := range lines {
		pdf.MultiCell(0, 5, line, "", "L", false)
	}
	pdf.Ln(2)
	pdf.MultiCell(0, 5, doc.Job.Description, "", "L", false)
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Terms", "", 1, "L", false, 0, "")

	headers := []string{"Proposal", "Bid amount", "Days", "Accepted"}
	colWidths := []float64{80, 35, 25, 40}
	drawTableRow(pdf, g.fontName, headers, colWidths, true)
	drawTableRow(pdf, g.fontName, []string{
		doc.Proposal.ID.String()[:8],
		doc.Proposal.BidAmount.StringFixed(2),
		formatDays(doc.Proposal.Days),
		formatDate(doc.Assignment.CreatedAt),
	}, colWidths, false)

	if letter := strings.TrimSpace(doc.Proposal.CoverLetter); letter != "" {
		pdf.Ln(2)
		pdf.SetFont(g.fontName, "", 10)
		pdf.MultiCell(0, 5, letter, "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Signatures", "", 1, "L", false, 0, "")
	signatureBlock(pdf, g.fontName, "Customer", doc.Customer.FullName())
	signatureBlock(pdf, g.fontName, "Executor", doc.Executor.FullName())

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addPartyBlock(pdf *gofpdf.Fpdf, fontName, title string, user model.User) {
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	phone := ""
	if user.Phone != nil {
		phone = *user.Phone
	}
	lines := []string{
		user.FullName(),
		fmt.Sprintf("Email: %s", safeValue(user.Email)),
		fmt.Sprintf("Phone: %s", safeValue(phone)),
	}
	for _, line := range lines {
		pdf.MultiCell(0, 5, line, "", "L", false)
	}
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func signatureBlock(pdf *gofpdf.Fpdf, fontName, label, name string) {
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s: ______________________ /%s/", label, safeValue(name)), "", 1, "L", false, 0, "")
}

func formatBudget(job model.Job) string {
	low, high := job.BudgetBounds()
	switch {
	case job.BudgetType == model.BudgetFixed && low != nil:
		return fmt.Sprintf("%d (fixed)", *low)
	case low != nil && high != nil:
		return fmt.Sprintf("%d - %d", *low, *high)
	default:
		return "-"
	}
}

func formatDays(days *int) string {
	if days == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *days)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}
