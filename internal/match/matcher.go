package match

import (
	"fmt"
	"math"
	"math/bits"
	"sort"
	"strings"

	"github.com/ironsheep/image-features-mcp/internal/feature"
)

// Metric selects the descriptor distance.
type Metric string

const (
	// MetricAuto picks Hamming for binary descriptors and L2 for float ones.
	MetricAuto    Metric = "auto"
	MetricHamming Metric = "hamming"
	MetricL2      Metric = "l2"
)

// ParseMetric parses a metric name. The empty string means MetricAuto.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MetricAuto, nil
	case MetricAuto, MetricHamming, MetricL2:
		return m, nil
	default:
		return "", fmt.Errorf("unknown metric %q (use auto, hamming or l2)", s)
	}
}

// Options configures the matcher.
type Options struct {
	// Metric is the descriptor distance, MetricAuto by default.
	Metric Metric `json:"metric"`

	// Ratio is the nearest/second-nearest distance ratio a match must beat.
	// 0 disables the ratio test.
	Ratio float64 `json:"ratio"`

	// MaxDistance rejects matches farther than this. 0 means unbounded.
	MaxDistance float64 `json:"max_distance"`

	// CrossCheck keeps a match only when the query feature is also the
	// nearest neighbour of its train feature.
	CrossCheck bool `json:"cross_check"`
}

// DefaultOptions returns the matcher defaults: automatic metric, ratio 0.75,
// no distance bound, no cross-check.
func DefaultOptions() Options {
	return Options{
		Metric: MetricAuto,
		Ratio:  0.75,
	}
}

// Correspondence pairs a query feature with a train feature.
type Correspondence struct {
	QueryIdx int     `json:"query_idx"`
	TrainIdx int     `json:"train_idx"`
	Distance float64 `json:"distance"`
}

// DistanceFunc computes the distance between two descriptors of equal length.
type DistanceFunc func(a, b []float64) float64

// Hamming counts differing bits between two byte descriptors.
func Hamming(a, b []float64) float64 {
	n := 0
	for i := range a {
		n += bits.OnesCount8(uint8(a[i]) ^ uint8(b[i]))
	}
	return float64(n)
}

// L2 is the Euclidean distance.
func L2(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// resolveMetric returns the distance function for the sets' descriptor type.
func resolveMetric(m Metric, dt feature.DescriptorType) (DistanceFunc, error) {
	switch m {
	case "", MetricAuto:
		if dt == feature.DescriptorBinary {
			return Hamming, nil
		}
		return L2, nil
	case MetricHamming:
		if dt != feature.DescriptorBinary {
			return nil, fmt.Errorf("%w: hamming distance needs binary descriptors, got %s", feature.ErrDescriptorMismatch, dt)
		}
		return Hamming, nil
	case MetricL2:
		return L2, nil
	default:
		return nil, fmt.Errorf("unknown metric %q", m)
	}
}

type candidate struct {
	train  int
	best   float64
	second float64
}

// Match finds, for every query feature, its nearest train feature and keeps
// the pairs that pass the configured filters.
//
// Ties on distance go to the lower train index. Each train feature is used by
// at most one correspondence: when several query features pick the same train
// feature the closest one keeps it (lower query index on ties). The result is
// sorted by distance, then query index. Empty input yields an empty result.
func Match(query, train feature.Set, opts Options) ([]Correspondence, error) {
	if query.Empty() || train.Empty() {
		return []Correspondence{}, nil
	}
	if query.DescriptorType != train.DescriptorType {
		return nil, fmt.Errorf("%w: query descriptors are %s, train descriptors are %s",
			feature.ErrDescriptorMismatch, query.DescriptorType, train.DescriptorType)
	}
	if query.DescriptorLength() != train.DescriptorLength() {
		return nil, fmt.Errorf("%w: query descriptor length %d, train descriptor length %d",
			feature.ErrDescriptorMismatch, query.DescriptorLength(), train.DescriptorLength())
	}

	dist, err := resolveMetric(opts.Metric, query.DescriptorType)
	if err != nil {
		return nil, err
	}

	qd := query.Descriptors()
	td := train.Descriptors()

	// Full distance table; cross-check reads it column-wise.
	table := make([][]float64, len(qd))
	for i, q := range qd {
		row := make([]float64, len(td))
		for j, t := range td {
			row[j] = dist(q, t)
		}
		table[i] = row
	}

	candidates := make([]candidate, len(qd))
	for i, row := range table {
		c := candidate{train: -1, best: math.Inf(1), second: math.Inf(1)}
		for j, d := range row {
			if d < c.best {
				c.second = c.best
				c.best = d
				c.train = j
			} else if d < c.second {
				c.second = d
			}
		}
		candidates[i] = c
	}

	// claimed[j] is the query index holding train feature j.
	claimed := make(map[int]int)
	for i, c := range candidates {
		if !accept(c, opts) {
			continue
		}
		if opts.CrossCheck && nearestQuery(table, c.train) != i {
			continue
		}
		if prev, ok := claimed[c.train]; ok && candidates[prev].best <= c.best {
			continue
		}
		claimed[c.train] = i
	}

	out := make([]Correspondence, 0, len(claimed))
	for j, i := range claimed {
		out = append(out, Correspondence{QueryIdx: i, TrainIdx: j, Distance: candidates[i].best})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Distance != out[b].Distance {
			return out[a].Distance < out[b].Distance
		}
		return out[a].QueryIdx < out[b].QueryIdx
	})
	return out, nil
}

func accept(c candidate, opts Options) bool {
	if c.train < 0 {
		return false
	}
	if opts.MaxDistance > 0 && c.best > opts.MaxDistance {
		return false
	}
	// A lone train feature has no second neighbour to compare against.
	if opts.Ratio > 0 && !math.IsInf(c.second, 1) && c.best >= opts.Ratio*c.second {
		return false
	}
	return true
}

// nearestQuery returns the query index closest to train feature j, the lowest
// index on ties.
func nearestQuery(table [][]float64, j int) int {
	best, idx := math.Inf(1), -1
	for i, row := range table {
		if row[j] < best {
			best, idx = row[j], i
		}
	}
	return idx
}
