package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mkoehler/docsort/internal/core/domain"
)

const sheetName = "Auftrag"

var headers = []string{
	"Datei",
	"Status",
	"Kategorie",
	"Quelle",
	"Vorlage",
	"Neuer Dateiname",
	"Zielpfad",
	"Tags",
	"Fehler",
}

// Reporter renders a finished batch job as an .xlsx summary, one row per
// task.
type Reporter struct{}

func NewReporter() *Reporter {
	return &Reporter{}
}

func (r *Reporter) Render(job *domain.BatchJob) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, task := range job.Tasks {
		values := taskRow(task)
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("task cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("write task row: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize report: %w", err)
	}
	return buf.Bytes(), nil
}

func taskRow(task domain.BatchTask) []string {
	row := []string{
		task.Path,
		string(task.Status),
		"", "", "", "", "", "",
		task.Error,
	}
	if task.Result != nil {
		row[2] = task.Result.Category
		row[3] = string(task.Result.Source)
		row[4] = task.Result.TemplateID
		row[5] = task.Result.SuggestedFilename
		row[6] = task.Result.TargetPath
		row[7] = strings.Join(task.Result.Tags, ", ")
	}
	return row
}
