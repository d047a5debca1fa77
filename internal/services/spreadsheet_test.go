package services

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestResolveHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		wantErr string
	}{
		{"exact", []string{"line", "speaker", "utterance"}, ""},
		{"case and spaces", []string{" Line ", "SPEAKER", "Utterance", "Segment"}, ""},
		{"bom", []string{"\ufeffline", "speaker", "utterance"}, ""},
		{"missing one", []string{"line", "utterance"}, "missing required columns: speaker"},
		{"missing all", []string{"foo"}, "missing required columns: line, speaker, utterance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			columns, err := resolveHeader(tt.header, transcriptColumns)
			if tt.wantErr != "" {
				assert.True(t, isKind(err, errorx.Invalid))
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, columns, COLUMN_LINE)
		})
	}
}

func TestParseTranscriptRows(t *testing.T) {
	rows := [][]string{
		{"Segment", "Line", "Speaker", "Utterance"},
		{"Intro", "1", "Teacher", " Good morning "},
		{"", "", "", ""},
		{"Intro", "2", "Student"},
		{"Work", "3", "Teacher", "Open your books"},
	}
	lines, err := ParseTranscriptRows(rows)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, ImportedLine{Line: 1, Speaker: "Teacher", Utterance: "Good morning", Segment: "Intro"}, lines[0])
	assert.Equal(t, "", lines[1].Utterance)
	assert.Equal(t, "Work", lines[2].Segment)
}

func TestParseTranscriptRowsErrors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want string
	}{
		{"empty", nil, "spreadsheet is empty"},
		{"no lines", [][]string{{"line", "speaker", "utterance"}}, "spreadsheet has no lines"},
		{"not a number", [][]string{{"line", "speaker", "utterance"}, {"x", "a", "b"}}, `row 2: invalid line number "x"`},
		{"zero", [][]string{{"line", "speaker", "utterance"}, {"0", "a", "b"}}, `row 2: invalid line number "0"`},
		{"duplicate", [][]string{{"line", "speaker", "utterance"}, {"1", "a", "b"}, {"1", "c", "d"}}, "row 3: line 1 already defined in row 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTranscriptRows(tt.rows)
			assert.True(t, isKind(err, errorx.Invalid))
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestReadRowsCSV(t *testing.T) {
	rows, err := readRows("lesson.CSV", strings.NewReader("line,speaker,utterance\n1,Teacher,\"Hello, class\"\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"line", "speaker", "utterance"}, {"1", "Teacher", "Hello, class"}}, rows)
}

func TestReadRowsXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Line", "Speaker", "Utterance"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{1, "Teacher", "Hi"}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	rows, err := readRows("lesson.xlsx", &buf)
	require.NoError(t, err)
	lines, err := ParseTranscriptRows(rows)
	require.NoError(t, err)
	assert.Equal(t, []ImportedLine{{Line: 1, Speaker: "Teacher", Utterance: "Hi"}}, lines)
}

func TestReadRowsUnsupported(t *testing.T) {
	_, err := readRows("lesson.txt", strings.NewReader("x"))
	assert.True(t, isKind(err, errorx.Invalid))
}

func TestParseAnnotationRows(t *testing.T) {
	rows := [][]string{
		{"line", "category", "content"},
		{"2", "questioning", "open question"},
	}
	got, err := ParseAnnotationRows(rows)
	require.NoError(t, err)
	assert.Equal(t, []ImportedAnnotation{{Line: 2, Category: "questioning", Content: "open question"}}, got)

	_, err = ParseAnnotationRows([][]string{{"line", "category", "content"}, {"2", "x", ""}})
	assert.True(t, isKind(err, errorx.Invalid))
}
