// Package score computes an advisory anomaly score from the per-chromosome
// progress of a GATK run. A healthy run spends time on chromosomes roughly
// in proportion to their size; the score grows as the observed count, time
// and read distributions flatten out or drift from a reference run. Lower
// is more reference-like. The score never fails a sample by itself.
package score

import (
	"math"
	"sort"
)

// Distribution maps a chromosome name (without the "chr" prefix) to a
// non-negative value.
type Distribution map[string]float64

// Max returns the largest value, or 0 for an empty distribution.
func (d Distribution) Max() float64 {
	max := 0.0
	first := true
	for _, v := range d {
		if first || v > max {
			max, first = v, false
		}
	}
	return max
}

// Normalize returns d scaled so that its maximum is exactly 1. A
// distribution whose maximum is not positive is returned unchanged (as a
// copy).
func Normalize(d Distribution) Distribution {
	out := make(Distribution, len(d))
	max := d.Max()
	for k, v := range d {
		if max > 0 {
			v /= max
		}
		out[k] = v
	}
	return out
}

// maxEntropyScore is returned by Entropy when every term vanishes.
const maxEntropyScore = 5

// Entropy returns 1/|Σ v·ln v|. Zero values contribute nothing. If the sum
// is zero (e.g. every value is 0 or 1) the result is 5.
func Entropy(d Distribution) float64 {
	sum := 0.0
	for _, v := range d {
		if v > 0 {
			sum += v * math.Log(v)
		}
	}
	if sum == 0 {
		return maxEntropyScore
	}
	return 1 / math.Abs(sum)
}

// Std returns the population standard deviation of the values.
func Std(d Distribution) float64 {
	if len(d) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range d {
		mean += v
	}
	mean /= float64(len(d))
	ss := 0.0
	for _, v := range d {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(d)))
}

// KLDivergence returns |Σ p·log2(p/q)| over the keys of ref, where p is
// the observed value (0 when the key is absent) and q the reference value.
// Terms with p = 0 or q = 0 contribute nothing. Observed keys absent from
// ref are ignored.
func KLDivergence(p, ref Distribution) float64 {
	sum := 0.0
	for k, q := range ref {
		pv := p[k]
		if pv <= 0 || q <= 0 {
			continue
		}
		sum += pv * math.Log2(pv/q)
	}
	return math.Abs(sum)
}

// ChromStats holds the per-chromosome progress of one run: the number of
// progress rows, the minutes elapsed and the reads processed.
type ChromStats struct {
	Count Distribution
	Time  Distribution
	Reads Distribution
}

// NewChromStats returns empty statistics.
func NewChromStats() ChromStats {
	return ChromStats{Count: Distribution{}, Time: Distribution{}, Reads: Distribution{}}
}

// Components are the nine terms of the anomaly score, in the order count,
// time, reads.
type Components struct {
	Entropy [3]float64
	Std     [3]float64
	KL      [3]float64
}

// Sum adds up the components.
func (c Components) Sum() float64 {
	s := 0.0
	for i := 0; i < 3; i++ {
		s += c.Entropy[i] + c.Std[i] + c.KL[i]
	}
	return s
}

// Compute returns the score components of obs against ref. Observed
// distributions are normalized first; ref is used as given.
func Compute(obs, ref ChromStats) Components {
	var c Components
	o := [3]Distribution{obs.Count, obs.Time, obs.Reads}
	r := [3]Distribution{ref.Count, ref.Time, ref.Reads}
	for i := range o {
		n := Normalize(o[i])
		c.Entropy[i] = Entropy(n)
		c.Std[i] = Std(n)
		c.KL[i] = KLDivergence(n, r[i])
	}
	return c
}

// AnomalyScore returns the sum of the nine components.
func AnomalyScore(obs, ref ChromStats) float64 {
	return Compute(obs, ref).Sum()
}

// Sample is a scored sample.
type Sample struct {
	Name  string
	Stage string
	Score float64
}

// Rank sorts samples by increasing score, most reference-like first. Ties
// keep their input order.
func Rank(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Score < samples[j].Score
	})
}
