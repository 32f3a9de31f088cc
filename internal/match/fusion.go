package match

import (
	"sort"

	"reclaim/internal/models"
)

// Candidate is one retrieved item with its per-modality similarity
// signals. HasImageScore marks that both the query and this candidate
// carried image vectors and an image similarity was actually computed;
// a zero ImageScore alone cannot encode that (cosine can be zero or
// negative for real vector pairs).
type Candidate struct {
	Item          models.Item
	TextScore     float64
	ImageScore    float64
	HasImageScore bool
}

// Options holds the fusion and ranking knobs.
type Options struct {
	TextWeight   float64
	ImageWeight  float64
	MinScore     float64
	Limit        int // requested by the caller; 0 means DefaultLimit
	DefaultLimit int
	MaxLimit     int
}

// Rank fuses per-candidate similarity signals into one ranked, filtered
// result list. Pure and deterministic: no I/O, no mutation of inputs.
//
// The image term contributes only when both the query item and the
// candidate have image vectors; otherwise the fused score is the text
// score alone, without weight renormalization.
func Rank(query models.Item, candidates []Candidate, opts Options) models.MatchResult {
	limit := opts.Limit
	if limit <= 0 {
		limit = opts.DefaultLimit
	}
	if limit > opts.MaxLimit {
		limit = opts.MaxLimit
	}

	queryHasImage := query.HasImageVector()

	selfMatches := 0
	scored := make([]models.Match, 0, len(candidates))

	for _, c := range candidates {
		// Self-match rule: tallied, never returned.
		if c.Item.ReportedBy == query.ReportedBy {
			selfMatches++
			continue
		}

		fused := opts.TextWeight * c.TextScore
		if queryHasImage && c.HasImageScore {
			fused += opts.ImageWeight * c.ImageScore
		}

		if fused < opts.MinScore {
			continue
		}

		scored = append(scored, models.MatchFromItem(c.Item, fused))
	}

	// Stable sort keeps retrieval order for equal scores, so repeated
	// calls over an unchanged corpus return the same ranking.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	return models.MatchResult{
		Matches:        scored,
		SelfMatchCount: selfMatches,
	}
}
