package domain

// KeywordRow is the persisted, canonical shape of one keyword inside a session.
// AIOReferences holds the raw JSON array of {domain, source, url} in citation
// rank order.
type KeywordRow struct {
	Keyword       string  `json:"keyword"         db:"keyword"`
	HasAIOverview bool    `json:"has_ai_overview" db:"has_ai_overview"`
	AIOMarkdown   *string `json:"aio_markdown"    db:"aio_markdown"`
	AIOReferences *string `json:"aio_references"  db:"aio_references"`
}

// Reference is one cited source within one AI Overview.
//
// Rank is the 1-based position in the stored reference array. It is assigned
// once from array order and never recomputed, so within one keyword-session
// Rank is unique and equals index+1.
type Reference struct {
	Rank   int    `json:"rank"`
	Domain string `json:"domain"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

// KeywordRecord is one keyword's result within one session, with the brand
// rank derived for the current brand configuration.
type KeywordRecord struct {
	Keyword       string      `json:"keyword"`
	HasAIOverview bool        `json:"has_ai_overview"`
	AIOMarkdown   *string     `json:"aio_markdown"`
	References    []Reference `json:"references"`
	BrandRank     *int        `json:"brand_rank"`
}
