package domain

// CompetitorMetrics aggregates citations and mentions of one source name
// across the AI-Overview keywords of a session.
type CompetitorMetrics struct {
	Brand           string   `json:"brand"`
	CitedCount      int      `json:"cited_count"`
	MentionedCount  int      `json:"mentioned_count"`
	UniqueDomains   []string `json:"unique_domains"`
	AverageRank     float64  `json:"average_rank"`
	CitedInPrompts  int      `json:"cited_in_prompts"`
	PromptCitedRate float64  `json:"prompt_cited_rate"`
	MentionRate     float64  `json:"mention_rate"`
	IsBrand         bool     `json:"is_brand"`
}

// ChangeType classifies one keyword's delta between two sessions.
type ChangeType string

// Change types.
const (
	ChangeNew          ChangeType = "new"
	ChangeRemoved      ChangeType = "removed"
	ChangeAIOGained    ChangeType = "aio_gained"
	ChangeAIOLost      ChangeType = "aio_lost"
	ChangeRankImproved ChangeType = "rank_improved"
	ChangeRankDeclined ChangeType = "rank_declined"
	ChangeNone         ChangeType = "no_change"
)

// SessionChange is one keyword's delta between an older and a newer session.
type SessionChange struct {
	Keyword    string     `json:"keyword"`
	ChangeType ChangeType `json:"change_type"`
	OldHasAIO  bool       `json:"old_has_aio"`
	NewHasAIO  bool       `json:"new_has_aio"`
	OldRank    *int       `json:"old_rank"`
	NewRank    *int       `json:"new_rank"`
}
