package analytics

import (
	"time"

	"github.com/arturoeanton/aio-tracker/internal/domain"
)

// SessionSnapshot is one session with its keyword records.
type SessionSnapshot struct {
	Session domain.CheckSession
	Records []domain.KeywordRecord
}

// SessionSummary is the headline statistics of one session.
type SessionSummary struct {
	SessionID         string    `json:"session_id"`
	Name              *string   `json:"name"`
	CreatedAt         time.Time `json:"created_at"`
	TotalKeywords     int       `json:"total_keywords"`
	WithAIO           int       `json:"with_aio"`
	AIORate           float64   `json:"aio_rate"`
	BrandCitations    int       `json:"brand_citations"`
	BrandCitationRate float64   `json:"brand_citation_rate"`
	AvgBrandRank      *float64  `json:"avg_brand_rank"`
	TopRanked         int       `json:"top_ranked"`
}

// RankPoint is one session's value in a keyword's rank history.
// Present is false when the keyword was not part of that session.
type RankPoint struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Present   bool      `json:"present"`
	HasAIO    bool      `json:"has_aio"`
	Rank      *int      `json:"rank"`
}

// Trend is the window summary plus rank history of the current session's keywords.
type Trend struct {
	Summaries   []SessionSummary       `json:"summaries"`
	CurrentID   string                 `json:"current_id"`
	RankHistory map[string][]RankPoint `json:"rank_history"`
}

// topRankCutoff is the best brand rank still counted as "top ranked".
const topRankCutoff = 3

// SummarizeSession folds one session's records into summary statistics.
// AvgBrandRank averages only the keywords citing the brand and is nil when
// the brand was never cited.
func SummarizeSession(s SessionSnapshot) SessionSummary {
	sum := SessionSummary{
		SessionID:     s.Session.ID,
		Name:          s.Session.Name,
		CreatedAt:     s.Session.CreatedAt,
		TotalKeywords: len(s.Records),
	}

	rankTotal := 0
	for _, r := range s.Records {
		if r.HasAIOverview {
			sum.WithAIO++
		}
		if r.BrandRank == nil {
			continue
		}
		sum.BrandCitations++
		rankTotal += *r.BrandRank
		if *r.BrandRank <= topRankCutoff {
			sum.TopRanked++
		}
	}

	if sum.TotalKeywords > 0 {
		sum.AIORate = float64(sum.WithAIO) / float64(sum.TotalKeywords)
	}
	if sum.WithAIO > 0 {
		sum.BrandCitationRate = float64(sum.BrandCitations) / float64(sum.WithAIO)
	}
	if sum.BrandCitations > 0 {
		avg := float64(rankTotal) / float64(sum.BrandCitations)
		sum.AvgBrandRank = &avg
	}
	return sum
}

// BuildTrend summarizes a newest-first window of sessions and, for the
// keywords of the session identified by currentID, collects their rank
// history oldest-first. An empty currentID selects the newest session. When
// the current session is not in the window the history is empty.
func BuildTrend(window []SessionSnapshot, currentID string) Trend {
	t := Trend{
		Summaries:   make([]SessionSummary, 0, len(window)),
		RankHistory: make(map[string][]RankPoint),
	}
	for _, s := range window {
		t.Summaries = append(t.Summaries, SummarizeSession(s))
	}
	if len(window) == 0 {
		return t
	}
	if currentID == "" {
		currentID = window[0].Session.ID
	}
	t.CurrentID = currentID

	var current *SessionSnapshot
	for i := range window {
		if window[i].Session.ID == currentID {
			current = &window[i]
			break
		}
	}
	if current == nil {
		return t
	}

	for _, rec := range current.Records {
		t.RankHistory[rec.Keyword] = make([]RankPoint, 0, len(window))
	}
	for i := len(window) - 1; i >= 0; i-- {
		s := window[i]
		byKeyword := make(map[string]domain.KeywordRecord, len(s.Records))
		for _, r := range s.Records {
			byKeyword[r.Keyword] = r
		}
		for kw := range t.RankHistory {
			p := RankPoint{SessionID: s.Session.ID, CreatedAt: s.Session.CreatedAt}
			if r, ok := byKeyword[kw]; ok {
				p.Present = true
				p.HasAIO = r.HasAIOverview
				p.Rank = r.BrandRank
			}
			t.RankHistory[kw] = append(t.RankHistory[kw], p)
		}
	}
	return t
}
