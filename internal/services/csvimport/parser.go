package csvimport

import "strings"

// Parse tokenizes raw CSV text into rows of fields. Quoted fields follow the
// RFC 4180 rules: a doubled quote inside a quoted field is a literal quote,
// and commas, CRs and LFs inside quotes are field content, which is what
// allows multi-line consultation transcripts in a single cell.
//
// The parser never trims field content; trimming is the validator's job.
// Rows whose fields are all blank after trimming are dropped.
func Parse(text string) [][]string {
	var rows [][]string
	var fields []string
	var current strings.Builder
	inQuotes := false

	endField := func() {
		fields = append(fields, current.String())
		current.Reset()
	}

	endRow := func() {
		endField()
		for _, f := range fields {
			if strings.TrimSpace(f) != "" {
				rows = append(rows, fields)
				break
			}
		}
		fields = nil
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inQuotes {
			switch ch {
			case '"':
				if i+1 < len(text) && text[i+1] == '"' {
					// Escaped quote
					current.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			default:
				current.WriteByte(ch)
			}
			continue
		}

		switch ch {
		case '"':
			inQuotes = true
		case ',':
			endField()
		case '\r':
			// Discarded; the matching LF ends the row
		case '\n':
			endRow()
		default:
			current.WriteByte(ch)
		}
	}

	// Flush whatever is pending at EOF; the blank-row rule still applies
	endRow()

	return rows
}
