// Package golden compares a captured configuration dump, such as the JVM
// global flags printed by GATK, with a reference copy.
package golden

import (
	"context"
	"fmt"
	"sort"

	"github.com/JuanMataNaranjo/CINECA-repo/logfile"
	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
)

// Exemptions is the set of line indices allowed to differ.
type Exemptions map[int]bool

// NewExemptions builds an Exemptions set.
func NewExemptions(indices ...int) Exemptions {
	e := make(Exemptions, len(indices))
	for _, i := range indices {
		e[i] = true
	}
	return e
}

// Indices returns the exempt indices in increasing order.
func (e Exemptions) Indices() []int {
	out := make([]int, 0, len(e))
	for i := range e {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Template is a reference dump.
type Template struct {
	Path  string
	Lines []string
}

// Read loads a template.
func Read(ctx context.Context, path string) (*Template, error) {
	lines, err := logfile.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Template{Path: path, Lines: lines}, nil
}

// Mismatch describes the first differing line.
type Mismatch struct {
	Index    int
	Observed string
	Expected string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("line %d is %q, want %q", m.Index, m.Observed, m.Expected)
}

// Compare returns the first mismatch between observed and expected at an
// index not in exempt. ok is false when there is none. Compare assumes
// equal lengths and compares the common prefix otherwise.
func Compare(observed, expected []string, exempt Exemptions) (Mismatch, bool) {
	n := len(observed)
	if len(expected) < n {
		n = len(expected)
	}
	for i := 0; i < n; i++ {
		if observed[i] != expected[i] && !exempt[i] {
			return Mismatch{Index: i, Observed: observed[i], Expected: expected[i]}, true
		}
	}
	return Mismatch{}, false
}

// Diff checks observed against the template lines. The two must have the
// same length, or Diff returns a qcerr.SectionLengthMismatch error; the
// first difference at a non-exempt index is a qcerr.TemplateMismatch error.
// The returned errors carry the check name; the caller fills in the sample
// and stage.
func Diff(observed, expected []string, exempt Exemptions) error {
	const check = "check_global_flags_variables"
	if len(observed) != len(expected) {
		return qcerr.Errorf(qcerr.SectionLengthMismatch, check, "",
			"has %d lines to compare with a template of %d", len(observed), len(expected))
	}
	if m, ok := Compare(observed, expected, exempt); ok {
		return qcerr.Errorf(qcerr.TemplateMismatch, check, "", "does not have the right global flags: %s", m)
	}
	return nil
}
