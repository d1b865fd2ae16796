package validate

import (
	"context"

	"github.com/JuanMataNaranjo/CINECA-repo/format"
	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
)

// FastQC validates the FastQC logs, one per read end.
type FastQC struct {
	*base
}

// NewFastQC returns a loaded FastQC validator.
func NewFastQC(ctx context.Context, opts Opts) (*FastQC, error) {
	b, err := newBase(format.FastQC, opts)
	if err != nil {
		return nil, err
	}
	v := &FastQC{base: b}
	v.checks = []Check{
		{Name: "check_lines", Run: v.checkLines},
		{Name: "check_start_end", Run: v.checkStartEnd},
		b.outputExists(),
	}
	if err := v.Load(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// Load implements Validator.
func (v *FastQC) Load(ctx context.Context) error {
	return v.load(ctx, true)
}

// checkLines checks the length of every log. A paired sample must have a
// log for each end.
func (v *FastQC) checkLines(context.Context) error {
	const name = "check_lines"
	for _, l := range v.desc.Logs {
		doc := v.docs[l.Name]
		if doc == nil {
			if v.paired {
				return qcerr.Errorf(qcerr.OutputMissing, name, "", "is paired but has no %s log", l.Name)
			}
			continue
		}
		if err := v.lineCount(name, doc); err != nil {
			return err
		}
	}
	return nil
}

func (v *FastQC) checkStartEnd(context.Context) error {
	const name = "check_start_end"
	group, ok := v.desc.Checks[name]
	if !ok {
		return qcerr.Errorf(qcerr.Configuration, name, "", "has no assertions in format %s", v.opts.Format.Version)
	}
	for _, l := range v.desc.Logs {
		doc := v.docs[l.Name]
		if doc == nil {
			continue
		}
		tripped := make([]bool, len(group))
		failed := false
		for i, a := range group {
			tripped[i] = !a.Holds(doc.Lines, v.opts.Sample)
			failed = failed || tripped[i]
		}
		if failed {
			e := qcerr.Errorf(qcerr.MarkerMismatch, name, "", "%s does not seem to have been processed properly", l.Name)
			e.Conditions = qcerr.Conditions(tripped...)
			return e
		}
	}
	return nil
}
