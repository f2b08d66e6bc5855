package similarity

import (
	"math"
	"sort"
	"strings"

	"SampleFinder/model"
)

const (
	embeddingWeight = 0.6
	lexicalWeight   = 0.3
	durationWeight  = 0.1
)

// Result pairs a candidate with its blended score.
type Result struct {
	Asset model.Asset `json:"asset"`
	Score float64     `json:"score"`
}

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 for mismatched, empty or zero vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (magA * magB)
}

// TokenSimilarity is the Jaccard index of the lower-cased whitespace token sets.
func TokenSimilarity(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// DurationSimilarity returns min/max of the two durations, 0 if either is 0.
func DurationSimilarity(a, b int64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	return float64(min(a, b)) / float64(max(a, b))
}

func lexicalText(a model.Asset) string {
	return a.Descriptor + " " + strings.Join(a.Tags, " ")
}

// CombinedSimilarity blends embedding, lexical and duration similarity.
// Inactive terms drop out and the remaining weights are renormalized.
func CombinedSimilarity(target, candidate model.Asset, useEmbeddings bool) float64 {
	var score, weights float64

	if useEmbeddings && target.Embedding != nil && candidate.Embedding != nil {
		score += CosineSimilarity(target.Embedding, candidate.Embedding) * embeddingWeight
		weights += embeddingWeight
	}

	score += TokenSimilarity(lexicalText(target), lexicalText(candidate)) * lexicalWeight
	weights += lexicalWeight

	score += DurationSimilarity(target.DurationMs, candidate.DurationMs) * durationWeight
	weights += durationWeight

	return score / weights
}

// RankSimilar scores every candidate against target and returns at most limit
// results, best first. Ties keep the candidates' input order and the target
// itself is never returned.
func RankSimilar(target model.Asset, candidates []model.Asset, limit int, useEmbeddings bool) []Result {
	if limit <= 0 {
		return []Result{}
	}

	results := make([]Result, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == target.ID {
			continue
		}
		results = append(results, Result{
			Asset: candidate,
			Score: CombinedSimilarity(target, candidate, useEmbeddings),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
