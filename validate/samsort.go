package validate

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/JuanMataNaranjo/CINECA-repo/format"
	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
	"github.com/JuanMataNaranjo/CINECA-repo/section"
)

// SamSort validates the samblaster log and the samtools sort log.
type SamSort struct {
	*base
	table *dupTable
}

// NewSamSort returns a loaded SamSort validator.
func NewSamSort(ctx context.Context, opts Opts) (*SamSort, error) {
	b, err := newBase(format.SamSort, opts)
	if err != nil {
		return nil, err
	}
	v := &SamSort{base: b}
	v.checks = []Check{
		{Name: "check_lines", Run: func(context.Context) error { return v.lineCount("check_lines", v.main()) }},
		b.assertions("check_start_statement", "does not have the correct log starting statement"),
		b.assertions("check_finish_statement", "does not have the final statement we expected"),
		b.assertions("check_correct_sample", "should be processed however another sample has been processed instead"),
		b.assertions("check_third_line", "does not have the expected output in line 3"),
		{Name: "check_unmated", Run: v.checkUnmated},
		b.assertions("check_header", "does not have the expected table header"),
		{Name: "check_rows", Run: v.checkRows},
		{Name: "check_table_sums", Run: v.checkTableSums},
		{Name: "check_removals", Run: v.checkRemovals},
		b.outputExists(),
	}
	if err := v.Load(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// Load implements Validator.
func (v *SamSort) Load(ctx context.Context) error {
	v.table = nil
	return v.load(ctx, true)
}

// checkUnmated checks "Found 0 of N (0.000%) total read ids are marked
// paired yet are unmated": both the count and the percentage must be 0.
func (v *SamSort) checkUnmated(context.Context) error {
	const name = "check_unmated"
	line, err := v.offsetLine(name, "unmated")
	if err != nil {
		return err
	}
	ints, nums := integers(line), decimals(line)
	t1 := len(ints) == 0 || ints[0] != 0
	t2 := len(nums) == 0 || nums[len(nums)-1] != 0
	if t1 || t2 {
		e := qcerr.E(qcerr.NumericInvariantViolation, name, "", "has mated pairs when it should not have them yet")
		e.Conditions = qcerr.Conditions(t1, t2)
		return e
	}
	return nil
}

// dupTable is the parsed duplicate statistics table.
type dupTable struct {
	labels []string
	rows   [][]float64
}

// parseTable splits each row, from Column on, into its label (the
// non-numeric tokens) and its values.
func parseTable(lines section.Section, t *format.Table) *dupTable {
	tab := &dupTable{}
	for _, line := range lines.Slice(t.From, t.To) {
		var (
			label []string
			row   []float64
		)
		if len(line) > t.Column {
			for _, tok := range strings.Fields(line[t.Column:]) {
				if isNumber(tok) {
					row = append(row, number(tok))
				} else {
					label = append(label, tok)
				}
			}
		}
		tab.labels = append(tab.labels, strings.Join(label, " "))
		tab.rows = append(tab.rows, row)
	}
	return tab
}

func (v *SamSort) parsedTable(check string) (*dupTable, error) {
	if v.table != nil {
		return v.table, nil
	}
	if v.desc.Table == nil {
		return nil, qcerr.Errorf(qcerr.Configuration, check, "", "has no table layout in format %s", v.opts.Format.Version)
	}
	v.table = parseTable(section.Section(v.main().Lines), v.desc.Table)
	return v.table, nil
}

func (v *SamSort) checkRows(context.Context) error {
	const name = "check_rows"
	tab, err := v.parsedTable(name)
	if err != nil {
		return err
	}
	want := v.desc.Table.Labels.For(v.paired)
	if !equalStrings(tab.labels, want) {
		return qcerr.Errorf(qcerr.MarkerMismatch, name, "",
			"does not have the expected row names: got %q, want %q (%s)", tab.labels, want, mode(v.paired))
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// checkTableSums checks that the table adds up within the tolerance. In
// "columns" mode the body rows add up to the totals row in every additive
// column; in "rows" mode the leading values of each row add up to its last
// value.
func (v *SamSort) checkTableSums(context.Context) error {
	const name = "check_table_sums"
	tab, err := v.parsedTable(name)
	if err != nil {
		return err
	}
	t := v.desc.Table
	if len(tab.rows) == 0 {
		return qcerr.E(qcerr.SectionLengthMismatch, name, "", "has an empty table")
	}
	width := len(tab.rows[0])
	for i, row := range tab.rows {
		if len(row) != width || width == 0 {
			return qcerr.Errorf(qcerr.NumericInvariantViolation, name, "", "row %d has %d values, want %d", i, len(row), width)
		}
	}
	near := func(a, b float64) bool { return math.Abs(a-b) <= t.Tolerance }
	switch t.Sum {
	case "rows":
		for i, row := range tab.rows {
			sum := 0.0
			for _, x := range row[:width-1] {
				sum += x
			}
			if !near(sum, row[width-1]) {
				return qcerr.Errorf(qcerr.NumericInvariantViolation, name, "",
					"has a mismatch in the total sums: row %q adds up to %g, not %g", tab.labels[i], sum, row[width-1])
			}
		}
	case "", "columns":
		skip := map[int]bool{}
		for _, c := range t.NonAdditive {
			skip[c] = true
		}
		body, total := tab.rows[:len(tab.rows)-1], tab.rows[len(tab.rows)-1]
		for c := 0; c < width; c++ {
			if skip[c] {
				continue
			}
			sum := 0.0
			for _, row := range body {
				sum += row[c]
			}
			if !near(sum, total[c]) {
				return qcerr.Errorf(qcerr.NumericInvariantViolation, name, "",
					"has a mismatch in the total sums: column %d adds up to %g, not %g", c, sum, total[c])
			}
		}
	default:
		return qcerr.Errorf(qcerr.Configuration, name, "", "has unknown sum mode %q", t.Sum)
	}
	return nil
}

// duplicates returns the duplicate count of the totals row.
func (tab *dupTable) duplicates(col int) (int64, error) {
	if len(tab.rows) == 0 {
		return 0, fmt.Errorf("empty table")
	}
	total := tab.rows[len(tab.rows)-1]
	if col >= len(total) {
		return 0, fmt.Errorf("totals row has no column %d", col)
	}
	return int64(total[col]), nil
}

// checkRemovals checks that the duplicates removed on the last line match
// the table and that its numbers are non-negative.
func (v *SamSort) checkRemovals(context.Context) error {
	const name = "check_removals"
	tab, err := v.parsedTable(name)
	if err != nil {
		return err
	}
	dups, err := tab.duplicates(v.desc.Table.Duplicates)
	if err != nil {
		e := qcerr.E(qcerr.NumericInvariantViolation, name, "", "has no duplicate count")
		e.Err = err
		return e
	}
	line, err := v.offsetLine(name, "removals")
	if err != nil {
		return err
	}
	nums := decimals(line)
	t1 := len(nums) == 0 || int64(nums[0]) != dups
	t2 := anyNegative(nums)
	if t1 || t2 {
		e := qcerr.E(qcerr.NumericInvariantViolation, name, "", "has some issue (text or numeric related)")
		e.Conditions = qcerr.Conditions(t1, t2)
		return e
	}
	return nil
}
