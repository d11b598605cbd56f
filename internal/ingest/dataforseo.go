package ingest

import (
	"strings"

	"github.com/arturoeanton/aio-tracker/internal/citation"
	"github.com/arturoeanton/aio-tracker/internal/domain"
)

// ItemTypeAIOverview is the SERP item type carrying an AI Overview.
const ItemTypeAIOverview = "ai_overview"

// TaskResponse is the envelope of a DataForSEO SERP API response.
type TaskResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []Task `json:"tasks"`
}

// Task is one search task of a response.
type Task struct {
	ID            string   `json:"id"`
	StatusCode    int      `json:"status_code"`
	StatusMessage string   `json:"status_message"`
	Data          TaskData `json:"data"`
	Result        []Result `json:"result"`
}

// TaskData echoes the request parameters of a task.
type TaskData struct {
	Keyword string `json:"keyword"`
}

// Result is the result page of one keyword.
type Result struct {
	Keyword string `json:"keyword"`
	Items   []Item `json:"items"`
}

// Item is one SERP feature. Only AI Overview items are read.
type Item struct {
	Type       string      `json:"type"`
	Markdown   string      `json:"markdown"`
	Text       string      `json:"text"`
	References []Reference `json:"references"`
	Items      []Item      `json:"items"`
}

// Reference is one source cited by an AI Overview.
type Reference struct {
	Source string `json:"source"`
	Domain string `json:"domain"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

// Rows flattens every task result into keyword rows. Tasks without a result
// contribute nothing.
func (r TaskResponse) Rows() []domain.KeywordRow {
	var rows []domain.KeywordRow
	for _, task := range r.Tasks {
		for _, res := range task.Result {
			if res.Keyword == "" {
				res.Keyword = task.Data.Keyword
			}
			if row, ok := res.Row(); ok {
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// Row converts a result page. ok is false when the keyword is missing.
func (res Result) Row() (domain.KeywordRow, bool) {
	row := domain.KeywordRow{Keyword: strings.TrimSpace(res.Keyword)}
	if row.Keyword == "" {
		return row, false
	}

	for _, it := range res.Items {
		if it.Type != ItemTypeAIOverview {
			continue
		}
		row.HasAIOverview = true
		row.AIOMarkdown = strPtr(it.markdown())
		row.AIOReferences = strPtr(encodeReferences(it.references()))
		break
	}
	return row, true
}

// markdown returns the item's markdown, or its elements' text joined by
// blank lines when the top-level field is empty.
func (it Item) markdown() string {
	if it.Markdown != "" {
		return it.Markdown
	}
	var parts []string
	for _, sub := range it.Items {
		switch {
		case sub.Markdown != "":
			parts = append(parts, sub.Markdown)
		case sub.Text != "":
			parts = append(parts, sub.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// references returns the item-level references, or the elements' references
// in order when the item has none of its own.
func (it Item) references() []Reference {
	if len(it.References) > 0 {
		return it.References
	}
	var refs []Reference
	for _, sub := range it.Items {
		refs = append(refs, sub.References...)
	}
	return refs
}

// encodeReferences stores references in the canonical array shape. Domains
// are normalized, falling back to the URL host.
func encodeReferences(refs []Reference) string {
	out := make([]domain.Reference, 0, len(refs))
	for _, r := range refs {
		dom := r.Domain
		if dom == "" {
			dom = r.URL
		}
		out = append(out, domain.Reference{
			Domain: citation.NormalizeDomain(dom),
			Source: strings.TrimSpace(r.Source),
			URL:    r.URL,
		})
	}
	return citation.EncodeReferences(out)
}
