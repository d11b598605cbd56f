// Package analytics aggregates keyword records into competitive metrics,
// session-to-session changes and trend summaries.
package analytics

import (
	"regexp"
	"sort"
	"strings"

	"github.com/arturoeanton/aio-tracker/internal/domain"
)

// CompetitorReport is the competitor ranking for one keyword set.
type CompetitorReport struct {
	TotalAIOKeywords int                        `json:"total_aio_keywords"`
	Competitors      []domain.CompetitorMetrics `json:"competitors"`
}

type competitorAcc struct {
	name      string
	cited     int
	domains   []string
	domainSet map[string]struct{}
	ranks     []int
	citedIn   map[string]struct{}
	mentioned map[string]struct{}
}

// AggregateCompetitors ranks every cited source name across the records that
// have an AI Overview. Records without one are ignored.
//
// Citations are keyed by source name; references with an empty source are
// skipped. Mentions are only searched for names already seen as citations,
// so a source is never reported for mentions alone. Rates divide by the
// number of AIO records and are 0 when there are none. Rows are sorted by
// cited+mentioned descending, ties keep discovery order.
func AggregateCompetitors(records []domain.KeywordRecord) CompetitorReport {
	var aio []domain.KeywordRecord
	for _, r := range records {
		if r.HasAIOverview {
			aio = append(aio, r)
		}
	}

	accs := make(map[string]*competitorAcc)
	var order []*competitorAcc

	for _, rec := range aio {
		for _, ref := range rec.References {
			if ref.Source == "" {
				continue
			}
			acc, ok := accs[ref.Source]
			if !ok {
				acc = &competitorAcc{
					name:      ref.Source,
					domainSet: make(map[string]struct{}),
					citedIn:   make(map[string]struct{}),
					mentioned: make(map[string]struct{}),
				}
				accs[ref.Source] = acc
				order = append(order, acc)
			}
			acc.cited++
			acc.ranks = append(acc.ranks, ref.Rank)
			acc.citedIn[rec.Keyword] = struct{}{}
			if ref.Domain != "" {
				if _, seen := acc.domainSet[ref.Domain]; !seen {
					acc.domainSet[ref.Domain] = struct{}{}
					acc.domains = append(acc.domains, ref.Domain)
				}
			}
		}
	}

	// TODO: names that only appear in markdown are never discovered here;
	// decide with product whether uncited mentions should create rows.
	for _, acc := range order {
		pattern := mentionPattern(acc.name)
		for _, rec := range aio {
			if rec.AIOMarkdown == nil {
				continue
			}
			if pattern.MatchString(*rec.AIOMarkdown) {
				acc.mentioned[rec.Keyword] = struct{}{}
			}
		}
	}

	total := len(aio)
	out := make([]domain.CompetitorMetrics, 0, len(order))
	for _, acc := range order {
		m := domain.CompetitorMetrics{
			Brand:          acc.name,
			CitedCount:     acc.cited,
			MentionedCount: len(acc.mentioned),
			UniqueDomains:  acc.domains,
			CitedInPrompts: len(acc.citedIn),
			AverageRank:    mean(acc.ranks),
		}
		if m.UniqueDomains == nil {
			m.UniqueDomains = []string{}
		}
		if total > 0 {
			m.PromptCitedRate = float64(m.CitedInPrompts) / float64(total)
			m.MentionRate = float64(m.MentionedCount) / float64(total)
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CitedCount+out[i].MentionedCount > out[j].CitedCount+out[j].MentionedCount
	})

	return CompetitorReport{TotalAIOKeywords: total, Competitors: out}
}

// FlagBrand marks the rows that belong to the tracked brand: the source name
// contains the brand name or one of the domains contains the brand domain.
func FlagBrand(metrics []domain.CompetitorMetrics, brand domain.Brand) {
	name := strings.ToLower(strings.TrimSpace(brand.Name))
	dom := strings.ToLower(strings.TrimSpace(brand.Domain))
	for i := range metrics {
		m := &metrics[i]
		m.IsBrand = false
		if name != "" && strings.Contains(strings.ToLower(m.Brand), name) {
			m.IsBrand = true
			continue
		}
		if dom == "" {
			continue
		}
		for _, d := range m.UniqueDomains {
			if strings.Contains(strings.ToLower(d), dom) {
				m.IsBrand = true
				break
			}
		}
	}
}

// mentionPattern matches name as a whole word, case-insensitively.
func mentionPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
