package port

import (
	"context"

	"github.com/arturoeanton/aio-tracker/internal/domain"
)

// SERPQuery identifies one search to run against a SERP provider.
type SERPQuery struct {
	Keyword      string
	LocationCode int
	LanguageCode string
}

// SERPProvider abstracts the search-results API that reports AI Overviews.
type SERPProvider interface {
	// ProviderName returns the name of this provider (e.g. "dataforseo").
	ProviderName() string

	// FetchKeyword runs one search and returns the canonical keyword row.
	// A result page without an AI Overview is not an error.
	FetchKeyword(ctx context.Context, q SERPQuery) (domain.KeywordRow, error)
}
