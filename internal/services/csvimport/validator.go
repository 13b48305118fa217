package csvimport

import (
	"fmt"
	"strings"
)

// Validate maps parsed rows onto the consultation schema and collects per-row
// issues. A file without a header plus at least one data row, or without the
// original_text column, is rejected outright with a single file-level error.
//
// Per data row: an empty original_text excludes the row (error); empty
// optional identity fields keep the row but produce one warning naming them.
func Validate(rows [][]string) Result {
	if len(rows) < 2 {
		return Result{
			Errors: []RowIssue{{Row: 0, Message: "CSV 파일에 헤더와 데이터가 필요합니다", Kind: KindError}},
		}
	}

	index := buildHeaderIndex(rows[0])
	if _, ok := index[ColOriginalText]; !ok {
		return Result{
			Errors: []RowIssue{{Row: 0, Message: fmt.Sprintf("필수 컬럼 누락: %s", ColOriginalText), Kind: KindError}},
		}
	}

	var result Result
	for i, row := range rows[1:] {
		lineNo := i + 2 // header is visual row 1

		record := DraftRow{
			CustomerID:     fieldAt(row, index, ColCustomerID),
			CustomerName:   fieldAt(row, index, ColCustomerName),
			CustomerEmail:  fieldAt(row, index, ColCustomerEmail),
			CustomerLineID: fieldAt(row, index, ColCustomerLineID),
			OriginalText:   fieldAt(row, index, ColOriginalText),
		}

		if record.OriginalText == "" {
			result.Errors = append(result.Errors, RowIssue{
				Row:     lineNo,
				Message: fmt.Sprintf("필수 필드 누락: %s", ColOriginalText),
				Kind:    KindError,
			})
			continue
		}

		var missing []string
		for _, col := range optionalColumns {
			if fieldAt(row, index, col) == "" {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			result.Warnings = append(result.Warnings, RowIssue{
				Row:     lineNo,
				Message: fmt.Sprintf("선택 필드 비어있음: %s", strings.Join(missing, ", ")),
				Kind:    KindWarning,
			})
		}

		result.ValidRecords = append(result.ValidRecords, record)
	}

	return result
}

// buildHeaderIndex maps normalized column names to their positions. Header
// cells are trimmed, lowercased and stripped of a leading UTF-8 BOM so that
// files exported from spreadsheet tools still match the schema.
func buildHeaderIndex(header []string) map[string]int {
	index := make(map[string]int, len(schemaColumns))
	normalized := make([]string, len(header))
	for i, cell := range header {
		cell = strings.TrimPrefix(cell, "\uFEFF")
		normalized[i] = strings.ToLower(strings.TrimSpace(cell))
	}
	for _, col := range schemaColumns {
		for i, name := range normalized {
			if name == col {
				index[col] = i
				break
			}
		}
	}
	return index
}

// fieldAt looks up a schema column in a data row, tolerating short rows and
// absent columns, and trims the value
func fieldAt(row []string, index map[string]int, col string) string {
	pos, ok := index[col]
	if !ok || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

// ParseAndValidate is the full staging pipeline for an uploaded CSV file
func ParseAndValidate(text string) Result {
	return Validate(Parse(text))
}

// PreviewRows returns at most PreviewCap records for the staging table
func PreviewRows(records []DraftRow) []DraftRow {
	if len(records) <= PreviewCap {
		return records
	}
	return records[:PreviewCap]
}
