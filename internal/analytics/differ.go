package analytics

import (
	"sort"

	"github.com/arturoeanton/aio-tracker/internal/domain"
)

// changePriority orders changes for "top changes" summaries.
var changePriority = map[domain.ChangeType]int{
	domain.ChangeRankImproved: 0,
	domain.ChangeRankDeclined: 1,
	domain.ChangeAIOGained:    2,
	domain.ChangeAIOLost:      3,
	domain.ChangeNew:          4,
	domain.ChangeRemoved:      5,
}

// OrderSessions returns a and b as (older, newer) by creation time.
// Equal timestamps keep the argument order.
func OrderSessions(a, b domain.CheckSession) (older, newer domain.CheckSession) {
	if b.CreatedAt.Before(a.CreatedAt) {
		return b, a
	}
	return a, b
}

// DiffSessions classifies every keyword present in either session.
//
// The result lists newer's keywords in their input order followed by the
// keywords only present in older. A keyword repeated within one session is
// reported once, at its first position, using its last record. Only
// HasAIOverview and BrandRank take part in the classification.
func DiffSessions(older, newer []domain.KeywordRecord) []domain.SessionChange {
	oldByKeyword := make(map[string]domain.KeywordRecord, len(older))
	for _, r := range older {
		oldByKeyword[r.Keyword] = r
	}
	newByKeyword := make(map[string]domain.KeywordRecord, len(newer))
	for _, r := range newer {
		newByKeyword[r.Keyword] = r
	}
	seen := make(map[string]struct{}, len(newer))

	changes := make([]domain.SessionChange, 0, len(newer)+len(older))
	for _, r := range newer {
		if _, dup := seen[r.Keyword]; dup {
			continue
		}
		seen[r.Keyword] = struct{}{}
		n := newByKeyword[r.Keyword]

		o, ok := oldByKeyword[n.Keyword]
		if !ok {
			changes = append(changes, domain.SessionChange{
				Keyword:    n.Keyword,
				ChangeType: domain.ChangeNew,
				NewHasAIO:  n.HasAIOverview,
				NewRank:    n.BrandRank,
			})
			continue
		}
		changes = append(changes, domain.SessionChange{
			Keyword:    n.Keyword,
			ChangeType: classify(o, n),
			OldHasAIO:  o.HasAIOverview,
			NewHasAIO:  n.HasAIOverview,
			OldRank:    o.BrandRank,
			NewRank:    n.BrandRank,
		})
	}

	for _, r := range older {
		if _, ok := seen[r.Keyword]; ok {
			continue
		}
		seen[r.Keyword] = struct{}{}
		o := oldByKeyword[r.Keyword]
		changes = append(changes, domain.SessionChange{
			Keyword:    o.Keyword,
			ChangeType: domain.ChangeRemoved,
			OldHasAIO:  o.HasAIOverview,
			OldRank:    o.BrandRank,
		})
	}
	return changes
}

func classify(o, n domain.KeywordRecord) domain.ChangeType {
	switch {
	case !o.HasAIOverview && n.HasAIOverview:
		return domain.ChangeAIOGained
	case o.HasAIOverview && !n.HasAIOverview:
		return domain.ChangeAIOLost
	case o.BrandRank != nil && n.BrandRank != nil:
		switch {
		case *n.BrandRank < *o.BrandRank:
			return domain.ChangeRankImproved
		case *n.BrandRank > *o.BrandRank:
			return domain.ChangeRankDeclined
		}
	case o.BrandRank == nil && n.BrandRank != nil:
		return domain.ChangeRankImproved
	case o.BrandRank != nil && n.BrandRank == nil:
		return domain.ChangeRankDeclined
	}
	return domain.ChangeNone
}

// TopChanges drops unchanged keywords and orders the rest by change priority
// (rank improved, rank declined, AIO gained, AIO lost, new, removed), keeping
// input order within a type. A limit <= 0 returns all of them.
func TopChanges(changes []domain.SessionChange, limit int) []domain.SessionChange {
	out := make([]domain.SessionChange, 0, len(changes))
	for _, c := range changes {
		if c.ChangeType != domain.ChangeNone {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return changePriority[out[i].ChangeType] < changePriority[out[j].ChangeType]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SummarizeChanges counts changes per type. Every type is present in the map.
func SummarizeChanges(changes []domain.SessionChange) map[domain.ChangeType]int {
	counts := map[domain.ChangeType]int{
		domain.ChangeNew:          0,
		domain.ChangeRemoved:      0,
		domain.ChangeAIOGained:    0,
		domain.ChangeAIOLost:      0,
		domain.ChangeRankImproved: 0,
		domain.ChangeRankDeclined: 0,
		domain.ChangeNone:         0,
	}
	for _, c := range changes {
		counts[c.ChangeType]++
	}
	return counts
}
