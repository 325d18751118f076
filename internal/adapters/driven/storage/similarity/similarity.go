// Package similarity ranks stored vectors against a query by cosine similarity.
package similarity

import (
	"math"
	"sort"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

// Candidate is a stored vector considered for ranking.
type Candidate struct {
	ID       string
	Text     string
	Position int
	Vector   []float32
}

// Cosine returns the cosine similarity of a and b.
// Mismatched lengths and zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank returns the topK candidates most similar to query, best first.
// Candidates must be supplied in insertion order; equal scores keep that order.
func Rank(candidates []Candidate, query []float32, topK int) []domain.ScoredPassage {
	if topK <= 0 || len(candidates) == 0 {
		return []domain.ScoredPassage{}
	}

	scored := make([]domain.ScoredPassage, len(candidates))
	for i, c := range candidates {
		scored[i] = domain.ScoredPassage{
			ID:       c.ID,
			Text:     c.Text,
			Score:    Cosine(query, c.Vector),
			Position: c.Position,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
