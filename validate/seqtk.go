package validate

import (
	"context"

	"github.com/JuanMataNaranjo/CINECA-repo/format"
	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
)

// Seqtk validates the trimming log.
type Seqtk struct {
	*base
}

// NewSeqtk returns a loaded Seqtk validator.
func NewSeqtk(ctx context.Context, opts Opts) (*Seqtk, error) {
	b, err := newBase(format.Seqtk, opts)
	if err != nil {
		return nil, err
	}
	v := &Seqtk{base: b}
	v.checks = []Check{
		{Name: "check_lines", Run: func(context.Context) error { return v.lineCount("check_lines", v.main()) }},
		{Name: "check_num_sequence", Run: v.checkNumSequence},
		{Name: "check_consistency", Run: v.checkConsistency},
	}
	if err := v.Load(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// Load implements Validator. The seqtk log has the same shape in both
// pairing modes.
func (v *Seqtk) Load(ctx context.Context) error {
	return v.load(ctx, false)
}

// checkNumSequence checks that the read counts are non-negative.
func (v *Seqtk) checkNumSequence(context.Context) error {
	const name = "check_num_sequence"
	line, err := v.offsetLine(name, "reads")
	if err != nil {
		return err
	}
	for _, n := range integers(line) {
		if n < 0 {
			return qcerr.E(qcerr.NumericInvariantViolation, name, "", "did not read a positive number of sequences")
		}
	}
	return nil
}

// checkConsistency checks that the reads equal the sum of the breakdown
// line.
func (v *Seqtk) checkConsistency(context.Context) error {
	const name = "check_consistency"
	reads, err := v.offsetLine(name, "reads")
	if err != nil {
		return err
	}
	breakdown, err := v.offsetLine(name, "breakdown")
	if err != nil {
		return err
	}
	total := integers(reads)
	if len(total) == 0 {
		return qcerr.E(qcerr.NumericInvariantViolation, name, "", "has no read count")
	}
	if sum := sumInts(integers(breakdown)); sum != total[0] {
		return qcerr.Errorf(qcerr.NumericInvariantViolation, name, "",
			"has inconsistency in terms of paired-end and single-end sequences: %d != %d", total[0], sum)
	}
	return nil
}
