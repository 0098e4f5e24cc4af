package gesture

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/pantomime/internal/pose"
)

// Metric selects how a query is scored against a reference.
type Metric int

const (
	// MetricCosine scores by the cosine of the angle between descriptors.
	MetricCosine Metric = iota
	// MetricDot scores by the raw dot product.
	MetricDot
)

// ParseMetric accepts "cosine" or "dot".
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine", "":
		return MetricCosine, nil
	case "dot":
		return MetricDot, nil
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

func (m Metric) String() string {
	if m == MetricDot {
		return "dot"
	}
	return "cosine"
}

// Match is the outcome of scoring one query.
type Match struct {
	Name  Name    `json:"name"`
	Score float64 `json:"score"`
}

// Match scans every reference in load order and returns the best scoring
// one. A later reference must score strictly higher to replace the current
// best, so ties go to whichever was loaded first. There is no acceptance
// threshold: some gesture is always returned.
func (l *Library) Match(query pose.Descriptor, metric Metric) (Match, error) {
	var best Match
	found := false
	err := l.score(query, metric, func(i int, score float64) {
		if !found || score > best.Score {
			best = Match{Name: l.entries[i].Name, Score: score}
			found = true
		}
	})
	if err != nil {
		return Match{}, err
	}
	return best, nil
}

// Rank scores every reference and returns them best first. Equal scores
// keep load order.
func (l *Library) Rank(query pose.Descriptor, metric Metric) ([]Match, error) {
	ranked := make([]Match, 0, len(l.entries))
	err := l.score(query, metric, func(i int, score float64) {
		ranked = append(ranked, Match{Name: l.entries[i].Name, Score: score})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

func (l *Library) score(query pose.Descriptor, metric Metric, visit func(i int, score float64)) error {
	if len(query) != pose.DescriptorLen {
		return fmt.Errorf("%w: query has %d values, want %d", ErrDimensionMismatch, len(query), pose.DescriptorLen)
	}

	var qNorm float64
	if metric == MetricCosine {
		qNorm = floats.Norm(query, 2)
		if qNorm == 0 {
			return &DegenerateInputError{Operand: "query"}
		}
	}

	for i, e := range l.entries {
		dot := floats.Dot(query, e.Descriptor)
		if metric == MetricDot {
			visit(i, dot)
			continue
		}
		if l.norms[i] == 0 {
			return &DegenerateInputError{Operand: string(e.Name)}
		}
		visit(i, dot/(qNorm*l.norms[i]))
	}
	return nil
}
