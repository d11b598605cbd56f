package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

// parseCSV reads canonical rows from a CSV file. The header must name a
// keyword column; has_ai_overview, aio_markdown and aio_references are
// optional.
func parseCSV(data []byte) ([]domain.KeywordRow, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", port.ErrUnsupportedFormat, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["keyword"]; !ok {
		return nil, fmt.Errorf("%w: csv has no keyword column", port.ErrUnsupportedFormat)
	}

	field := func(rec []string, name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return "", false
		}
		return rec[i], true
	}

	var rows []domain.KeywordRow
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %v", port.ErrUnsupportedFormat, err)
		}

		e := entry{}
		e.Keyword, _ = field(rec, "keyword")
		if md, ok := field(rec, "aio_markdown"); ok && md != "" {
			e.AIOMarkdown = strPtr(md)
		}
		if v, ok := field(rec, "has_ai_overview"); ok {
			var b flexBool
			if err := b.UnmarshalJSON([]byte(v)); err != nil {
				return nil, fmt.Errorf("%w: keyword %q: %v", port.ErrUnsupportedFormat, e.Keyword, err)
			}
			e.HasAIOverview = &b
		}

		row, _, ok, err := e.row()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if refs, present := field(rec, "aio_references"); present && row.HasAIOverview && strings.TrimSpace(refs) != "" {
			row.AIOReferences = strPtr(refs)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
