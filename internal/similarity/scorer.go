// internal/similarity/scorer.go

// Package similarity scores how likely two websites are to share a page
// template. The score is a fixed-weight combination of four sub-metrics
// over derived structural views; it is pure CPU work and never fails —
// malformed or empty inputs degrade to partial scores.
package similarity

import (
	"github.com/yout0703/web-collector/internal/features"
	"github.com/yout0703/web-collector/internal/models"
)

// Sub-metric weights. Fixed constants of the policy, summing to 1.0.
const (
	WeightDOM        = 0.5
	WeightCSS        = 0.3
	WeightResponsive = 0.1
	WeightLayout     = 0.1
)

// MaxBreakpointDelta is the pixel tolerance when matching responsive
// breakpoints across two sites.
const MaxBreakpointDelta = 100

// maxChildCountDelta is the tolerance on direct-child counts when
// comparing layout-trace positions.
const maxChildCountDelta = 2

// Breakdown carries the per-metric scores alongside the weighted total.
type Breakdown struct {
	DOM        float64 `json:"dom"`
	CSS        float64 `json:"css"`
	Responsive float64 `json:"responsive"`
	Layout     float64 `json:"layout"`
	Total      float64 `json:"total"`
}

// Scorer computes similarity between two feature vectors.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns the weighted similarity in [0,1]. Symmetric and, for any
// non-empty vector, reflexive at 1.0.
func (s *Scorer) Score(a, b *models.FeatureVector) float64 {
	return s.Compare(a, b).Total
}

// Compare returns the full per-metric breakdown.
func (s *Scorer) Compare(a, b *models.FeatureVector) Breakdown {
	if a == nil || b == nil {
		return Breakdown{}
	}

	bd := Breakdown{
		DOM: structuralSimilarity(
			features.LayoutSequence(a.DOMStructure),
			features.LayoutSequence(b.DOMStructure),
		),
		CSS: classSimilarity(
			features.LayoutClasses(a.CSSClasses),
			features.LayoutClasses(b.CSSClasses),
		),
		Responsive: responsiveSimilarity(
			features.Breakpoints(a.ResponsiveFeatures.MediaQueries),
			features.Breakpoints(b.ResponsiveFeatures.MediaQueries),
		),
		Layout: layoutSimilarity(
			features.LayoutTrace(a.DOMStructure),
			features.LayoutTrace(b.DOMStructure),
		),
	}

	bd.Total = bd.DOM*WeightDOM +
		bd.CSS*WeightCSS +
		bd.Responsive*WeightResponsive +
		bd.Layout*WeightLayout
	return bd
}

// structuralSimilarity aligns the two layout sequences with a longest
// common subsequence and normalizes by the combined length: 2L/(n+m).
func structuralSimilarity(seqA, seqB []string) float64 {
	n, m := len(seqA), len(seqB)
	if n+m == 0 {
		return 0
	}

	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if seqA[i-1] == seqB[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[m]
	return 2 * float64(lcs) / float64(n+m)
}

// classSimilarity is the Jaccard index of the two layout-class sets,
// defined as 0 when either side has no layout classes at all.
func classSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for cls := range a {
		if b[cls] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// responsiveSimilarity fuzzily matches breakpoint sets: each left-side
// breakpoint consumes the first right-side breakpoint within the pixel
// tolerance, and the match count is normalized by the larger set.
func responsiveSimilarity(a, b []int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	matched := 0
	for _, x := range a {
		for _, y := range b {
			if abs(x-y) <= MaxBreakpointDelta {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(max(len(a), len(b)))
}

// layoutSimilarity compares the two traces position by position up to the
// shorter length; a position matches when parent and own layout types are
// equal and the child counts are within tolerance. Normalized by the
// longer trace.
func layoutSimilarity(a, b []features.TraceEntry) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	minLen := min(len(a), len(b))
	matches := 0
	for i := 0; i < minLen; i++ {
		if a[i].Parent == b[i].Parent &&
			a[i].Type == b[i].Type &&
			abs(a[i].ChildCount-b[i].ChildCount) <= maxChildCountDelta {
			matches++
		}
	}
	return float64(matches) / float64(max(len(a), len(b)))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
