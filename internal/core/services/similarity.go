package services

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/telemetry"
)

// DefaultSearchLimit applies when a query passes limit <= 0.
const DefaultSearchLimit = 10

// Cosine returns the cosine similarity of a and b, computed in float64.
// Vectors of different length, and vectors with zero norm, score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push parallel vectors just past the range.
	return math.Max(-1, math.Min(1, score))
}

// validVector reports whether every component is finite and the vector is
// non-empty.
func validVector(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// SimilarityEngine scores, filters, ranks and truncates candidates.
// It is stateless apart from its configuration and safe for concurrent use.
type SimilarityEngine struct {
	defaultLimit int
	metrics      *telemetry.Metrics
}

// NewSimilarityEngine creates an engine. defaultLimit <= 0 uses DefaultSearchLimit.
func NewSimilarityEngine(defaultLimit int, metrics *telemetry.Metrics) *SimilarityEngine {
	if defaultLimit <= 0 {
		defaultLimit = DefaultSearchLimit
	}
	return &SimilarityEngine{defaultLimit: defaultLimit, metrics: metrics}
}

// DefaultLimit returns the limit used when a query passes limit <= 0.
func (e *SimilarityEngine) DefaultLimit() int {
	return e.defaultLimit
}

// Rank returns the candidates scoring at least opts.Threshold against
// query, ordered by descending score with ties broken by ascending chunk
// id, truncated to the limit. The threshold is applied before truncation.
//
// Stale candidates and candidates of another dimensionality are never
// compared. Candidates whose embedding is unreadable are skipped with a
// warning. If candidates existed but every one was excluded for its
// dimensionality, Rank returns domain.ErrDimensionMismatch.
func (e *SimilarityEngine) Rank(
	query []float32, candidates []domain.EmbeddedChunk, opts domain.SearchOptions,
) ([]domain.ScoredChunk, error) {
	if !validVector(query) {
		return nil, fmt.Errorf("%w: query embedding is empty or not finite", domain.ErrInvalidInput)
	}
	if math.IsNaN(opts.Threshold) {
		return nil, fmt.Errorf("%w: threshold is NaN", domain.ErrInvalidInput)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = e.defaultLimit
	}

	var (
		results    []domain.ScoredChunk
		compared   int
		mismatched int
	)
	for i := range candidates {
		c := &candidates[i]
		switch {
		case c.Stale:
			e.metrics.SkipChunk(telemetry.SkipStale)
			continue
		case c.Corrupt || !validVector(c.Embedding):
			logger.Warn("Skipping chunk %s: stored embedding is unreadable", c.ID)
			e.metrics.SkipChunk(telemetry.SkipCorrupt)
			continue
		case len(c.Embedding) != len(query):
			mismatched++
			e.metrics.SkipChunk(telemetry.SkipDimension)
			continue
		}

		compared++
		score := Cosine(query, c.Embedding)
		if score >= opts.Threshold {
			results = append(results, domain.ScoredChunk{EmbeddedChunk: *c, Score: score})
		}
	}

	if compared == 0 && mismatched > 0 {
		return nil, fmt.Errorf("%w: query has %d dimensions, %d candidates excluded",
			domain.ErrDimensionMismatch, len(query), mismatched)
	}

	slices.SortFunc(results, func(a, b domain.ScoredChunk) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []domain.ScoredChunk{}
	}
	return results, nil
}
