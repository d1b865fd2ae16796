package benchmark

import (
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"
)

// Interval is the right-closed input size interval (Lo, Hi], in GB.
type Interval struct {
	Lo, Hi float64
}

func (iv Interval) String() string {
	return fmt.Sprintf("(%s,%s]", strconv.FormatFloat(iv.Lo, 'f', -1, 64), strconv.FormatFloat(iv.Hi, 'f', -1, 64))
}

// Contains reports whether size falls in iv.
func (iv Interval) Contains(size float64) bool {
	return size > iv.Lo && size <= iv.Hi
}

// DefaultEdges are the edges of the 5 GB size buckets.
var DefaultEdges = []float64{0, 5, 10, 15, 20, 25}

// FineBuckets are the 1 GB size intervals whose per-stage means are
// reported.
var FineBuckets = []Interval{{5, 6}, {10, 11}, {22, 23}}

// Group holds the mean times of the samples in a size interval.
type Group struct {
	Interval
	// N is the number of samples in the interval. Means and Total are zero
	// when N is zero.
	N int
	// Means holds the mean minutes of each stage, in the order of Stages.
	Means []float64
	// Total is the mean total minutes.
	Total float64
}

func group(rows []Row, iv Interval) Group {
	g := Group{Interval: iv, Means: make([]float64, len(Stages))}
	for _, r := range rows {
		if !iv.Contains(r.SizeGB) {
			continue
		}
		g.N++
		for i, m := range r.times() {
			g.Means[i] += m
		}
		g.Total += r.Total
	}
	if g.N == 0 {
		return g
	}
	for i := range g.Means {
		g.Means[i] = round2(g.Means[i] / float64(g.N))
	}
	g.Total = round2(g.Total / float64(g.N))
	return g
}

// Bucket groups rows by the intervals between consecutive edges. Every
// interval is returned, empty or not. Rows outside all intervals are
// ignored.
func Bucket(rows []Row, edges []float64) []Group {
	var groups []Group
	for i := 1; i < len(edges); i++ {
		groups = append(groups, group(rows, Interval{edges[i-1], edges[i]}))
	}
	return groups
}

// StageMeans groups rows by the given intervals and drops the empty ones.
func StageMeans(rows []Row, intervals []Interval) []Group {
	var groups []Group
	for _, iv := range intervals {
		if g := group(rows, iv); g.N > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

func formatMinutes(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}

// WriteReport writes one row per sample.
func WriteReport(w io.Writer, rows []Row) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("id")
	for _, s := range Stages {
		tw.WriteString(s)
	}
	tw.WriteString("size (GB)\ttotal time (min)")
	if err := tw.EndLine(); err != nil {
		return err
	}
	for _, r := range rows {
		tw.WriteString(r.ID)
		for _, m := range r.times() {
			tw.WriteString(formatMinutes(m))
		}
		tw.WriteString(formatMinutes(r.SizeGB))
		tw.WriteString(formatMinutes(r.Total))
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteBuckets writes one row per group. The time columns of empty groups
// are left blank.
func WriteBuckets(w io.Writer, groups []Group) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("size (GB)\tsamples")
	for _, s := range Stages {
		tw.WriteString(s)
	}
	tw.WriteString("total time (min)")
	if err := tw.EndLine(); err != nil {
		return err
	}
	for _, g := range groups {
		tw.WriteString(g.Interval.String())
		tw.WriteString(strconv.Itoa(g.N))
		for _, m := range g.Means {
			if g.N == 0 {
				tw.WriteString("")
			} else {
				tw.WriteString(formatMinutes(m))
			}
		}
		if g.N == 0 {
			tw.WriteString("")
		} else {
			tw.WriteString(formatMinutes(g.Total))
		}
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}
