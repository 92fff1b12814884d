// Package export собирает выгрузку задач и чек-листов пациента в xlsx.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const TasksSheet = "Tasks"
const ChecklistSheet = "Daily Checklist"

var TasksHeader = []string{"Task", "Type", "Difficulty", "Status", "Assigned At", "Completed At", "Score", "Analysis"}
var ChecklistHeader = []string{"Date", "Checked Items", "Mood", "Memory Entry", "Submitted By"}

var tasksWidths = []float64{28, 22, 12, 14, 20, 20, 10, 40}
var checklistWidths = []float64{14, 24, 20, 50, 24}

type TaskRow struct {
	Title       string
	Type        string
	Difficulty  string
	Status      string
	AssignedAt  time.Time
	CompletedAt *time.Time
	Score       *float64
	Analysis    string
}

type ChecklistRow struct {
	Date        time.Time
	Checked     []int
	Mood        string
	MemoryEntry string
	SubmittedBy string
}

// Workbook строит книгу с листами задач и чек-листов; пустые данные дают листы только с заголовком
func Workbook(tasks []TaskRow, checklists []ChecklistRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(TasksSheet)
	if err != nil {
		return nil, fmt.Errorf("создание листа %s: %w", TasksSheet, err)
	}
	if _, err := f.NewSheet(ChecklistSheet); err != nil {
		return nil, fmt.Errorf("создание листа %s: %w", ChecklistSheet, err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("удаление листа по умолчанию: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("стиль заголовка: %w", err)
	}

	if err := writeHeader(f, TasksSheet, TasksHeader, tasksWidths, headerStyle); err != nil {
		return nil, err
	}
	for i, row := range tasks {
		values := []any{
			row.Title,
			row.Type,
			row.Difficulty,
			row.Status,
			formatTime(&row.AssignedAt),
			formatTime(row.CompletedAt),
			"",
			row.Analysis,
		}
		if row.Score != nil {
			values[6] = *row.Score
		}
		if err := writeRow(f, TasksSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	if err := writeHeader(f, ChecklistSheet, ChecklistHeader, checklistWidths, headerStyle); err != nil {
		return nil, err
	}
	for i, row := range checklists {
		values := []any{
			row.Date.Format(time.DateOnly),
			joinInts(row.Checked),
			row.Mood,
			row.MemoryEntry,
			row.SubmittedBy,
		}
		if err := writeRow(f, ChecklistSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("запись книги: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, widths []float64, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("координаты заголовка: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("заголовок %s!%s: %w", sheet, cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("стиль заголовка %s!%s: %w", sheet, cell, err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("номер колонки: %w", err)
		}
		if col < len(widths) {
			if err := f.SetColWidth(sheet, name, name, widths[col]); err != nil {
				return fmt.Errorf("ширина колонки %s: %w", name, err)
			}
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("координаты строки: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("строка %s!%d: %w", sheet, row, err)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func joinInts(items []int) string {
	parts := make([]string, len(items))
	for i, n := range items {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
