package citation

import (
	"encoding/json"
	"strings"

	"github.com/arturoeanton/aio-tracker/internal/domain"
)

type rawReference struct {
	Domain string `json:"domain"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

// ExtractReferences decodes a stored reference array into ranked references.
// Rank is the 1-based array position. Empty, null or invalid JSON yields an
// empty slice.
func ExtractReferences(raw string) []domain.Reference {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []domain.Reference{}
	}

	var items []rawReference
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []domain.Reference{}
	}

	refs := make([]domain.Reference, len(items))
	for i, it := range items {
		refs[i] = domain.Reference{
			Rank:   i + 1,
			Domain: it.Domain,
			Source: it.Source,
			URL:    it.URL,
		}
	}
	return refs
}

// EncodeReferences is the inverse of ExtractReferences: it stores references
// as a JSON array in rank order, dropping the rank itself.
func EncodeReferences(refs []domain.Reference) string {
	items := make([]rawReference, len(refs))
	for i, r := range refs {
		items[i] = rawReference{Domain: r.Domain, Source: r.Source, URL: r.URL}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
