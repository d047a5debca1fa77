package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/xuri/excelize/v2"
)

const (
	COLUMN_LINE      = "line"
	COLUMN_SPEAKER   = "speaker"
	COLUMN_UTTERANCE = "utterance"
	COLUMN_SEGMENT   = "segment"
	COLUMN_CATEGORY  = "category"
	COLUMN_CONTENT   = "content"
)

var (
	transcriptColumns = []string{COLUMN_LINE, COLUMN_SPEAKER, COLUMN_UTTERANCE}
	llmColumns        = []string{COLUMN_LINE, COLUMN_CATEGORY, COLUMN_CONTENT}
)

// ImportedLine is one data row of a transcript spreadsheet.
type ImportedLine struct {
	Line      int
	Speaker   string
	Utterance string
	Segment   string
}

type ImportedAnnotation struct {
	Line     int
	Category string
	Content  string
}

// readRows reads the first sheet of an .xlsx file or the records of a .csv file.
func readRows(filename string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, errorx.Wrap(fmt.Errorf("invalid csv: %w", err), errorx.Invalid)
		}
		return rows, nil
	case ".xlsx":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, errorx.Wrap(fmt.Errorf("invalid xlsx: %w", err), errorx.Invalid)
		}
		// nolint:errcheck
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errorx.Wrap(errors.New("spreadsheet has no sheets"), errorx.Invalid)
		}
		return f.GetRows(sheets[0])
	default:
		return nil, errorx.Wrap(errors.New("unsupported file type, expected .csv or .xlsx"), errorx.Invalid)
	}
}

func normalizeHeader(cell string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
}

// resolveHeader maps column names to indexes. Matching is case-insensitive and trimmed.
func resolveHeader(header []string, required []string) (map[string]int, error) {
	columns := map[string]int{}
	for i, cell := range header {
		name := normalizeHeader(cell)
		if name == "" {
			continue
		}
		if _, ok := columns[name]; !ok {
			columns[name] = i
		}
	}

	missing := []string{}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errorx.Wrap(errors.New("missing required columns: "+strings.Join(missing, ", ")), errorx.Invalid)
	}
	return columns, nil
}

func cellAt(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseLineNumber(value string, rowNumber int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, errorx.Wrap(fmt.Errorf("row %d: invalid line number %q", rowNumber, value), errorx.Invalid)
	}
	return n, nil
}

func ParseTranscriptRows(rows [][]string) ([]ImportedLine, error) {
	if len(rows) == 0 {
		return nil, errorx.Wrap(errors.New("spreadsheet is empty"), errorx.Invalid)
	}
	columns, err := resolveHeader(rows[0], transcriptColumns)
	if err != nil {
		return nil, err
	}

	lines := []ImportedLine{}
	seen := map[int]int{}
	for i, row := range rows[1:] {
		rowNumber := i + 2
		if blankRow(row) {
			continue
		}

		n, err := parseLineNumber(cellAt(row, columns, COLUMN_LINE), rowNumber)
		if err != nil {
			return nil, err
		}
		if first, ok := seen[n]; ok {
			return nil, errorx.Wrap(fmt.Errorf("row %d: line %d already defined in row %d", rowNumber, n, first), errorx.Invalid)
		}
		seen[n] = rowNumber

		lines = append(lines, ImportedLine{
			Line:      n,
			Speaker:   cellAt(row, columns, COLUMN_SPEAKER),
			Utterance: cellAt(row, columns, COLUMN_UTTERANCE),
			Segment:   cellAt(row, columns, COLUMN_SEGMENT),
		})
	}

	if len(lines) == 0 {
		return nil, errorx.Wrap(errors.New("spreadsheet has no lines"), errorx.Invalid)
	}
	return lines, nil
}

func ParseAnnotationRows(rows [][]string) ([]ImportedAnnotation, error) {
	if len(rows) == 0 {
		return nil, errorx.Wrap(errors.New("spreadsheet is empty"), errorx.Invalid)
	}
	columns, err := resolveHeader(rows[0], llmColumns)
	if err != nil {
		return nil, err
	}

	annotations := []ImportedAnnotation{}
	for i, row := range rows[1:] {
		rowNumber := i + 2
		if blankRow(row) {
			continue
		}
		n, err := parseLineNumber(cellAt(row, columns, COLUMN_LINE), rowNumber)
		if err != nil {
			return nil, err
		}
		content := cellAt(row, columns, COLUMN_CONTENT)
		if content == "" {
			return nil, errorx.Wrap(fmt.Errorf("row %d: content is empty", rowNumber), errorx.Invalid)
		}
		annotations = append(annotations, ImportedAnnotation{
			Line:     n,
			Category: cellAt(row, columns, COLUMN_CATEGORY),
			Content:  content,
		})
	}
	return annotations, nil
}
