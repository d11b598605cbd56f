package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arturoeanton/aio-tracker/internal/domain"
)

var (
	keywordsCSVHeader    = []string{"keyword", "has_ai_overview", "brand_rank", "reference_count", "cited_domains"}
	competitorsCSVHeader = []string{"source", "cited_count", "mentioned_count", "unique_domains", "average_rank", "cited_in_prompts", "prompt_cited_rate", "mention_rate", "is_brand"}
)

// WriteKeywordsCSV writes one line per keyword record.
func WriteKeywordsCSV(w io.Writer, records []domain.KeywordRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(keywordsCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		rank := ""
		if r.BrandRank != nil {
			rank = strconv.Itoa(*r.BrandRank)
		}
		domains := make([]string, 0, len(r.References))
		for _, ref := range r.References {
			domains = append(domains, ref.Domain)
		}
		if err := cw.Write([]string{
			r.Keyword,
			strconv.FormatBool(r.HasAIOverview),
			rank,
			strconv.Itoa(len(r.References)),
			strings.Join(domains, ";"),
		}); err != nil {
			return fmt.Errorf("write keyword %q: %w", r.Keyword, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCompetitorsCSV writes one line per competitor in ranking order.
func WriteCompetitorsCSV(w io.Writer, competitors []domain.CompetitorMetrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(competitorsCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range competitors {
		if err := cw.Write([]string{
			c.Brand,
			strconv.Itoa(c.CitedCount),
			strconv.Itoa(c.MentionedCount),
			strings.Join(c.UniqueDomains, ";"),
			strconv.FormatFloat(c.AverageRank, 'f', 2, 64),
			strconv.Itoa(c.CitedInPrompts),
			strconv.FormatFloat(c.PromptCitedRate, 'f', 4, 64),
			strconv.FormatFloat(c.MentionRate, 'f', 4, 64),
			strconv.FormatBool(c.IsBrand),
		}); err != nil {
			return fmt.Errorf("write competitor %q: %w", c.Brand, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
