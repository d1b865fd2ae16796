package validate

import (
	"context"

	"github.com/JuanMataNaranjo/CINECA-repo/encoding/fastq"
	"github.com/JuanMataNaranjo/CINECA-repo/format"
	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// Inputs validates the FASTQ files of a sample. The descriptor logs name
// the R1 and R2 files; they are counted, never read as logs.
type Inputs struct {
	*base
	r1, r2 fastq.Counts
}

// NewInputs returns a loaded Inputs validator.
func NewInputs(ctx context.Context, opts Opts) (*Inputs, error) {
	b, err := newBase(format.Inputs, opts)
	if err != nil {
		return nil, err
	}
	v := &Inputs{base: b}
	v.checks = []Check{
		{Name: "check_sample_length", Run: v.checkSampleLength},
	}
	if err := v.Load(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// Load implements Validator. It only resolves the pairing mode.
func (v *Inputs) Load(ctx context.Context) error {
	v.r1, v.r2 = fastq.Counts{}, fastq.Counts{}
	if err := v.resolvePairing(ctx); err != nil {
		return v.tag("single_paired", err)
	}
	return nil
}

// Counts returns the R1 and R2 counts of the last check_sample_length
// run. R2 is zero for single-end samples.
func (v *Inputs) Counts() (r1, r2 fastq.Counts) { return v.r1, v.r2 }

// input returns the path of the named input, or an OutputMissing error if
// it does not exist.
func (v *Inputs) input(ctx context.Context, check, name string) (string, error) {
	l, ok := v.desc.Log(name)
	if !ok {
		return "", qcerr.Errorf(qcerr.Configuration, check, "", "has no %s input in format %s", name, v.opts.Format.Version)
	}
	path := v.path(l.Pattern)
	if _, err := file.Stat(ctx, path); err != nil {
		e := qcerr.Errorf(qcerr.OutputMissing, check, "", "has no %s input %s", name, file.Base(path))
		e.Err = err
		return "", e
	}
	return path, nil
}

// checkSampleLength checks that a paired sample has as many R1 as R2
// lines and that every input holds whole records.
func (v *Inputs) checkSampleLength(ctx context.Context) error {
	const name = "check_sample_length"
	r1, err := v.input(ctx, name, "R1")
	if err != nil {
		return err
	}
	if !v.paired {
		c, err := fastq.Count(ctx, r1)
		if err != nil {
			return countError(name, err)
		}
		v.r1 = c
		if !c.Whole() {
			return qcerr.Errorf(qcerr.NumericInvariantViolation, name, "",
				"has %d lines, not a multiple of 4 (single)", c.Lines)
		}
		return nil
	}
	r2, err := v.input(ctx, name, "R2")
	if err != nil {
		return err
	}
	c1, c2, err := fastq.CountPair(ctx, r1, r2)
	v.r1, v.r2 = c1, c2
	if err != nil {
		return countError(name, err)
	}
	if !c1.Whole() || !c2.Whole() {
		e := qcerr.Errorf(qcerr.NumericInvariantViolation, name, "",
			"has truncated records: R1 %d lines, R2 %d lines (paired)", c1.Lines, c2.Lines)
		e.Conditions = qcerr.Conditions(!c1.Whole(), !c2.Whole())
		return e
	}
	return nil
}

func countError(check string, err error) error {
	kind := qcerr.Other
	switch errors.Cause(err) {
	case fastq.ErrDiscordant:
		kind = qcerr.NumericInvariantViolation
	case fastq.ErrInvalid:
		kind = qcerr.MarkerMismatch
	}
	e := qcerr.E(kind, check, "", "the input files are not consistent in length")
	e.Err = err
	return e
}
