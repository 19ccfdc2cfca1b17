package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/freelancehub/internal/model"
)

const (
	summarySheet = "Сводка"
	jobsSheet    = "Заказы"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(report model.JobsReport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := g.writeSummary(file, report); err != nil {
		return nil, err
	}

	if _, err := file.NewSheet(jobsSheet); err != nil {
		return nil, err
	}
	if err := g.writeJobs(file, report); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, report model.JobsReport) error {
	var active, canceled, proposals, accepted int64
	for _, row := range report.Rows {
		if row.Job.Status() == model.JobStatusCanceled {
			canceled++
		} else {
			active++
		}
		proposals += row.Total
		accepted += row.Accepted
	}

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(summarySheet, cell, value)
	}

	set("A1", "Заказчик")
	set("B1", report.Owner.FullName())
	set("A2", "Email")
	set("B2", report.Owner.Email)
	set("A3", "Дата выгрузки")
	set("B3", formatDateTime(report.GeneratedAt))
	set("A4", "Всего заказов")
	set("B4", len(report.Rows))
	set("A5", "Активных")
	set("B5", active)
	set("A6", "Отменённых")
	set("B6", canceled)
	set("A7", "Откликов")
	set("B7", proposals)
	set("A8", "Принятых откликов")
	set("B8", accepted)

	_ = file.SetColWidth(summarySheet, "A", "A", 24)
	_ = file.SetColWidth(summarySheet, "B", "B", 40)
	return nil
}

func (g *Generator) writeJobs(file *excelize.File, report model.JobsReport) error {
	headers := []string{
		"Создан",
		"Название",
		"Категория",
		"Бюджет",
		"Срок",
		"Статус",
		"Откликов",
		"Отправлено",
		"В избранном",
		"Принято",
		"Отклонено",
		"Отозвано",
		"Исполнитель",
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		_ = file.SetCellValue(jobsSheet, cell, header)
	}

	for i, row := range report.Rows {
		values := []interface{}{
			formatDateTime(row.Job.CreatedAt),
			row.Job.Title,
			row.Job.Category,
			formatBudget(row.Job),
			formatDeadline(row.Job),
			statusLabel(row.Job.Status()),
			row.Total,
			row.Sent,
			row.Shortlisted,
			row.Accepted,
			row.Rejected,
			row.Withdrawn,
			executorName(row.Executor),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			_ = file.SetCellValue(jobsSheet, cell, value)
		}
	}

	_ = file.SetColWidth(jobsSheet, "A", "A", 20)
	_ = file.SetColWidth(jobsSheet, "B", "B", 40)
	_ = file.SetColWidth(jobsSheet, "C", "E", 22)
	_ = file.SetColWidth(jobsSheet, "F", "L", 12)
	_ = file.SetColWidth(jobsSheet, "M", "M", 32)
	return nil
}

func formatBudget(job model.Job) string {
	low, high := job.BudgetBounds()
	switch {
	case job.BudgetType == model.BudgetFixed && low != nil:
		return fmt.Sprintf("%d", *low)
	case low != nil && high != nil:
		return fmt.Sprintf("%d - %d", *low, *high)
	default:
		return ""
	}
}

func formatDeadline(job model.Job) string {
	deadline := strings.TrimSpace(job.Deadline)
	if deadline == "" {
		return ""
	}
	if job.DeadlineType == model.DeadlineStrict {
		return deadline + " (строго)"
	}
	return deadline
}

func statusLabel(status model.JobStatus) string {
	if status == model.JobStatusCanceled {
		return "Отменён"
	}
	return "Активен"
}

func executorName(card *model.UserCard) string {
	if card == nil {
		return ""
	}
	return card.FullName
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
