package citation

import (
	"strings"

	"github.com/arturoeanton/aio-tracker/internal/domain"
)

// BuildRecord derives a KeywordRecord from a stored row for the given brand.
// Rows without an AI Overview carry no markdown and no references.
func BuildRecord(row domain.KeywordRow, brand domain.Brand) domain.KeywordRecord {
	rec := domain.KeywordRecord{
		Keyword:       row.Keyword,
		HasAIOverview: row.HasAIOverview,
		References:    []domain.Reference{},
	}
	if !row.HasAIOverview {
		return rec
	}

	rec.AIOMarkdown = row.AIOMarkdown
	if row.AIOReferences != nil {
		rec.References = ExtractReferences(*row.AIOReferences)
	}
	rec.BrandRank = BrandRank(rec.References, brand)
	return rec
}

// BuildRecords applies BuildRecord to every row.
func BuildRecords(rows []domain.KeywordRow, brand domain.Brand) []domain.KeywordRecord {
	out := make([]domain.KeywordRecord, len(rows))
	for i, row := range rows {
		out[i] = BuildRecord(row, brand)
	}
	return out
}

// BrandRank returns the rank of the first reference whose raw domain contains
// the brand domain or whose source contains the brand name, both compared
// case-insensitively. It returns nil when nothing matches or no brand is set.
func BrandRank(refs []domain.Reference, brand domain.Brand) *int {
	name := strings.ToLower(strings.TrimSpace(brand.Name))
	dom := strings.ToLower(strings.TrimSpace(brand.Domain))
	if name == "" && dom == "" {
		return nil
	}
	for _, ref := range refs {
		if dom != "" && strings.Contains(strings.ToLower(ref.Domain), dom) {
			rank := ref.Rank
			return &rank
		}
		if name != "" && strings.Contains(strings.ToLower(ref.Source), name) {
			rank := ref.Rank
			return &rank
		}
	}
	return nil
}
