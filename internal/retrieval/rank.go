package retrieval

import (
	"math"
	"sort"

	"github.com/starford/moonshine/internal/models"
	"github.com/starford/moonshine/internal/vector"
)

type scored struct {
	res models.SimilarResult
	sim float64
}

// Rank scores candidates against query, keeps those with similarity >=
// threshold, sorts them most similar first and truncates to topK.
//
// The threshold test and the sort use the exact similarity; the returned
// value is rounded to 4 decimals. Equal similarities keep candidate order.
func Rank(query []float32, candidates []models.EmbeddedMash, threshold float64, topK int) []models.SimilarResult {
	hits := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		sim := vector.Cosine(query, vector.Decode(c.Embedding))
		if sim < threshold {
			continue
		}
		hits = append(hits, scored{
			res: models.SimilarResult{
				ID:         c.ID,
				Type:       c.Type,
				Summary:    c.Summary,
				Context:    c.Context,
				Memo:       c.Memo,
				Similarity: math.Round(sim*10000) / 10000,
			},
			sim: sim,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].sim > hits[j].sim })
	if topK >= 0 && len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]models.SimilarResult, len(hits))
	for i, h := range hits {
		out[i] = h.res
	}
	return out
}
