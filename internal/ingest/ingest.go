// Package ingest normalizes the accepted upload shapes into canonical
// keyword rows. Every adapter ends in domain.KeywordRow; nothing past this
// package sees the original payload.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

// Format names an accepted upload shape.
type Format string

// Accepted formats.
const (
	// FormatRows is an array of canonical rows.
	FormatRows Format = "rows"
	// FormatList is an array of {"keyword", "ai_overview": {...}} objects.
	FormatList Format = "list"
	// FormatKeyed is an object keyed by keyword.
	FormatKeyed Format = "keyed"
	// FormatDataForSEO is a raw DataForSEO task response.
	FormatDataForSEO Format = "dataforseo"
	// FormatCSV is a CSV file with a keyword header column.
	FormatCSV Format = "csv"
)

// wrapperKeys are object keys that hold a plain array of entries.
var wrapperKeys = []string{"keywords", "results", "rows"}

// Parse detects the format of data and returns its rows, deduplicated by
// keyword. It returns port.ErrUnsupportedFormat when the shape is not
// recognized and port.ErrNoKeywords when it holds no usable keyword.
func Parse(data []byte) ([]domain.KeywordRow, Format, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, "", port.ErrNoKeywords
	}

	var (
		rows   []domain.KeywordRow
		format Format
		err    error
	)
	switch trimmed[0] {
	case '[':
		rows, format, err = parseArray(trimmed)
	case '{':
		rows, format, err = parseObject(trimmed)
	default:
		rows, err = parseCSV(trimmed)
		format = FormatCSV
	}
	if err != nil {
		return nil, "", err
	}

	rows = Dedup(rows)
	if len(rows) == 0 {
		return nil, format, port.ErrNoKeywords
	}
	return rows, format, nil
}

// Dedup keeps one row per keyword. The last row wins but keeps the position
// of the first occurrence.
func Dedup(rows []domain.KeywordRow) []domain.KeywordRow {
	index := make(map[string]int, len(rows))
	out := make([]domain.KeywordRow, 0, len(rows))
	for _, r := range rows {
		if i, ok := index[r.Keyword]; ok {
			out[i] = r
			continue
		}
		index[r.Keyword] = len(out)
		out = append(out, r)
	}
	return out
}

func parseArray(data []byte) ([]domain.KeywordRow, Format, error) {
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, "", fmt.Errorf("%w: %v", port.ErrUnsupportedFormat, err)
	}
	return entriesToRows(entries)
}

func parseObject(data []byte) ([]domain.KeywordRow, Format, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, "", fmt.Errorf("%w: %v", port.ErrUnsupportedFormat, err)
	}

	if _, ok := probe["tasks"]; ok {
		var resp TaskResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, "", fmt.Errorf("%w: %v", port.ErrUnsupportedFormat, err)
		}
		return resp.Rows(), FormatDataForSEO, nil
	}

	if len(probe) == 1 {
		for _, key := range wrapperKeys {
			if raw, ok := probe[key]; ok && isArray(raw) {
				return parseArray(raw)
			}
		}
	}

	entries, err := decodeKeyed(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", port.ErrUnsupportedFormat, err)
	}
	rows, _, err := entriesToRows(entries)
	return rows, FormatKeyed, err
}

// decodeKeyed walks the object token by token so keywords keep file order.
func decodeKeyed(data []byte) ([]entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var entries []entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var e entry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		if strings.TrimSpace(e.Keyword) == "" {
			e.Keyword = key
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func entriesToRows(entries []entry) ([]domain.KeywordRow, Format, error) {
	format := FormatRows
	rows := make([]domain.KeywordRow, 0, len(entries))
	for _, e := range entries {
		row, nested, ok, err := e.row()
		if err != nil {
			return nil, "", fmt.Errorf("%w: keyword %q: %v", port.ErrUnsupportedFormat, e.Keyword, err)
		}
		if !ok {
			continue
		}
		if nested {
			format = FormatList
		}
		rows = append(rows, row)
	}
	return rows, format, nil
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func strPtr(s string) *string {
	return &s
}
