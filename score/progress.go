package score

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Layout locates the fields of a ProgressMeter row such as
//
//	10:21:50.123 INFO  ProgressMeter -          chr1:14452961              0.3                 48000         160000.0
type Layout struct {
	Fields  int
	Locus   int
	Minutes int
	Reads   int
}

// DefaultLayout is the GATK 4.1 row layout.
var DefaultLayout = Layout{Fields: 8, Locus: 4, Minutes: 5, Reads: 6}

// Progress is one parsed ProgressMeter row.
type Progress struct {
	Contig   string
	Position int64
	Minutes  float64
	Reads    int64
}

// Chrom returns the contig name without the "chr" prefix.
func (p Progress) Chrom() string {
	return strings.TrimPrefix(p.Contig, "chr")
}

// ParseProgress parses one table row.
func ParseProgress(line string, l Layout) (Progress, error) {
	var p Progress
	fields := strings.Fields(line)
	if len(fields) != l.Fields {
		return p, fmt.Errorf("progress row has %d fields, want %d: %q", len(fields), l.Fields, line)
	}
	locus := fields[l.Locus]
	i := strings.LastIndexByte(locus, ':')
	if i < 0 {
		return p, fmt.Errorf("progress row locus %q is not contig:position", locus)
	}
	p.Contig = locus[:i]
	var err error
	if p.Position, err = strconv.ParseInt(locus[i+1:], 10, 64); err != nil {
		return p, fmt.Errorf("progress row position: %v", err)
	}
	if p.Minutes, err = strconv.ParseFloat(fields[l.Minutes], 64); err != nil {
		return p, fmt.Errorf("progress row minutes: %v", err)
	}
	if p.Reads, err = strconv.ParseInt(fields[l.Reads], 10, 64); err != nil {
		return p, fmt.Errorf("progress row reads: %v", err)
	}
	return p, nil
}

// ParseTable parses every row.
func ParseTable(lines []string, l Layout) ([]Progress, error) {
	rows := make([]Progress, 0, len(lines))
	for _, line := range lines {
		p, err := ParseProgress(line, l)
		if err != nil {
			return nil, err
		}
		rows = append(rows, p)
	}
	return rows, nil
}

// Fold accumulates rows into per-chromosome statistics.
func Fold(rows []Progress) ChromStats {
	s := NewChromStats()
	for _, r := range rows {
		c := r.Chrom()
		s.Count[c]++
		s.Time[c] += r.Minutes
		s.Reads[c] += float64(r.Reads)
	}
	return s
}

// Contigs returns the distinct contigs of rows in order of first
// appearance.
func Contigs(rows []Progress) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range rows {
		if !seen[r.Contig] {
			seen[r.Contig] = true
			out = append(out, r.Contig)
		}
	}
	return out
}

var warnLocus = regexp.MustCompile(`chr([0-9A-Za-z_]+):`)

// OtherWarning is the type of warnings that match none of the listed types.
const OtherWarning = "other"

// WarningStats tallies WARN lines by warning type and, within a type, by
// chromosome.
type WarningStats struct {
	ByType  map[string]int
	ByChrom map[string]map[string]int
}

// Warnings classifies lines by the first of types they mention. Lines that
// mention none are tallied as OtherWarning; lines without a locus only
// count towards their type.
func Warnings(lines []string, types []string) WarningStats {
	s := WarningStats{ByType: map[string]int{}, ByChrom: map[string]map[string]int{}}
	for _, line := range lines {
		typ := OtherWarning
		for _, t := range types {
			if strings.Contains(line, t) {
				typ = t
				break
			}
		}
		s.ByType[typ]++
		m := warnLocus.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if s.ByChrom[typ] == nil {
			s.ByChrom[typ] = map[string]int{}
		}
		s.ByChrom[typ][m[1]]++
	}
	return s
}
