package services

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"annotate/internal/models"
)

var exportHeader = []interface{}{"Question", "Answer", "Line", "Speaker", "Utterance"}

// ExportSheet is one question of a submission with its supporting lines.
type ExportSheet struct {
	Question string
	Answer   string
	Lines    []*models.Line
}

func SheetName(index int) string {
	return fmt.Sprintf("Q%d", index+1)
}

// normalizeLines sorts by line ordinal and drops repeated line ids.
func normalizeLines(lines []*models.Line) []*models.Line {
	out := make([]*models.Line, 0, len(lines))
	seen := map[int64]struct{}{}
	for _, l := range lines {
		if l == nil {
			continue
		}
		if _, ok := seen[l.ID]; ok {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// BuildWorkbook writes one sheet per entry, in order. Every sheet has at least one data row.
func BuildWorkbook(sheets []ExportSheet) (*excelize.File, error) {
	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)

	for i, sheet := range sheets {
		name := SheetName(i)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}

		if err := f.SetSheetRow(name, "A1", &exportHeader); err != nil {
			return nil, err
		}

		lines := normalizeLines(sheet.Lines)
		if len(lines) == 0 {
			row := []interface{}{sheet.Question, sheet.Answer, "", "", ""}
			if err := f.SetSheetRow(name, "A2", &row); err != nil {
				return nil, err
			}
			continue
		}

		for j, l := range lines {
			question, answer := "", ""
			if j == 0 {
				question, answer = sheet.Question, sheet.Answer
			}
			row := []interface{}{question, answer, l.Line, l.Speaker, l.Utterance}
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return nil, err
			}
		}

		// nolint:errcheck
		f.SetColWidth(name, "A", "B", 40)
		// nolint:errcheck
		f.SetColWidth(name, "E", "E", 80)
	}

	f.SetActiveSheet(0)
	return f, nil
}
