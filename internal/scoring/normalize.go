package scoring

import (
	"sort"
	"strings"
)

// Normalizer translates raw model labels into the canonical vocabulary. The
// mapping is copied at construction and matched case-insensitively; raw
// labels without a mapping pass through lower-cased unchanged.
type Normalizer struct {
	mapping map[string]string
}

// NewNormalizer builds a Normalizer from a raw->canonical table.
func NewNormalizer(mapping map[string]string) *Normalizer {
	lowered := make(map[string]string, len(mapping))
	for k, v := range mapping {
		lowered[strings.ToLower(k)] = v
	}
	return &Normalizer{mapping: lowered}
}

// Normalize rewrites a raw distribution under canonical labels. When two raw
// labels collapse onto the same canonical label the higher score wins, so
// the outcome does not depend on map iteration order.
func (n *Normalizer) Normalize(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for raw, score := range scores {
		canonical, ok := n.mapping[strings.ToLower(raw)]
		if !ok {
			canonical = strings.ToLower(raw)
		}
		if existing, dup := out[canonical]; !dup || score > existing {
			out[canonical] = score
		}
	}
	return out
}

// TopLabel picks the entry with the maximum confidence. Labels are scanned
// in sorted order so ties deterministically break toward the
// lexicographically smallest label.
func TopLabel(scores map[string]float64) (string, float64) {
	labels := make([]string, 0, len(scores))
	for label := range scores {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var (
		top  string
		best float64
	)
	for _, label := range labels {
		if top == "" || scores[label] > best {
			top = label
			best = scores[label]
		}
	}
	return top, best
}
