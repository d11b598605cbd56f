package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/arturoeanton/aio-tracker/internal/domain"
)

// entry is the union of the canonical row and the nested-overview list item.
type entry struct {
	Keyword       string          `json:"keyword"`
	HasAIOverview *flexBool       `json:"has_ai_overview"`
	AIOMarkdown   *string         `json:"aio_markdown"`
	AIOReferences json.RawMessage `json:"aio_references"`
	AIOverview    json.RawMessage `json:"ai_overview"`
}

// overview is the nested "ai_overview" object of the list format.
type overview struct {
	Markdown   string      `json:"markdown"`
	References []Reference `json:"references"`
}

// row converts the entry. nested reports whether the list format was used;
// ok is false for entries without a keyword.
func (e entry) row() (row domain.KeywordRow, nested, ok bool, err error) {
	row.Keyword = strings.TrimSpace(e.Keyword)
	if row.Keyword == "" {
		return row, false, false, nil
	}

	if e.AIOverview != nil {
		if isNull(e.AIOverview) {
			return row, true, true, nil
		}
		var ov overview
		if err := json.Unmarshal(e.AIOverview, &ov); err != nil {
			return row, true, false, fmt.Errorf("decode ai_overview: %w", err)
		}
		row.HasAIOverview = true
		row.AIOMarkdown = strPtr(ov.Markdown)
		row.AIOReferences = strPtr(encodeReferences(ov.References))
		return row, true, true, nil
	}

	if e.HasAIOverview != nil {
		row.HasAIOverview = bool(*e.HasAIOverview)
	} else {
		row.HasAIOverview = e.AIOMarkdown != nil && strings.TrimSpace(*e.AIOMarkdown) != ""
	}
	if !row.HasAIOverview {
		return row, false, true, nil
	}

	row.AIOMarkdown = e.AIOMarkdown
	refs, err := rawReferences(e.AIOReferences)
	if err != nil {
		return row, false, false, err
	}
	row.AIOReferences = refs
	return row, false, true, nil
}

// rawReferences accepts the reference list either as a JSON string holding
// the array or as the array itself, and returns the array text.
func rawReferences(raw json.RawMessage) (*string, error) {
	if isNull(raw) {
		return nil, nil
	}
	t := bytes.TrimSpace(raw)
	switch t[0] {
	case '"':
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return nil, fmt.Errorf("decode aio_references: %w", err)
		}
		return &s, nil
	case '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, t); err != nil {
			return nil, fmt.Errorf("compact aio_references: %w", err)
		}
		return strPtr(buf.String()), nil
	default:
		return nil, fmt.Errorf("aio_references must be a string or an array")
	}
}

// flexBool accepts true/false, 0/1 and their string forms.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	t := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	switch strings.ToLower(t) {
	case "", "null":
		*b = false
		return nil
	case "yes", "y":
		*b = true
		return nil
	case "no", "n":
		*b = false
		return nil
	}
	if v, err := strconv.ParseBool(t); err == nil {
		*b = flexBool(v)
		return nil
	}
	if n, err := strconv.ParseFloat(t, 64); err == nil {
		*b = n != 0
		return nil
	}
	return fmt.Errorf("invalid boolean %q", t)
}
