// Package qcerr defines the failures raised by the log validators. Every
// failure carries the stage, the check and the sample it was raised for, so a
// batch driver can report it without parsing the message.
package qcerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a validation failure.
type Kind int

const (
	// Other is an unclassified failure, typically I/O.
	Other Kind = iota
	// MetadataUnavailable means the paired/single mode of a sample could not
	// be resolved.
	MetadataUnavailable
	// Configuration means the metadata or format descriptors are inconsistent,
	// e.g. a sample matches neither one nor two input entries.
	Configuration
	// SectionLengthMismatch means a classified section (or a whole log) does
	// not have the expected number of lines.
	SectionLengthMismatch
	// MarkerMismatch means a fixed banner, header or footer differs.
	MarkerMismatch
	// NumericInvariantViolation means an extracted number is negative where
	// it must not be, or two numbers that must agree do not.
	NumericInvariantViolation
	// MissingReferenceItem means a member of a canonical set (chromosome,
	// covariate, filter, resource file) is absent.
	MissingReferenceItem
	// TemplateMismatch means a global-flags line differs from the golden
	// template at a non-exempt index.
	TemplateMismatch
	// OutputMissing means an expected artifact file does not exist.
	OutputMissing
	// StaleArtifact means temporary files were left behind by a stage.
	StaleArtifact
)

var kindNames = [...]string{
	Other:                     "other",
	MetadataUnavailable:       "metadata unavailable",
	Configuration:             "configuration error",
	SectionLengthMismatch:     "section length mismatch",
	MarkerMismatch:            "marker mismatch",
	NumericInvariantViolation: "numeric invariant violation",
	MissingReferenceItem:      "missing reference item",
	TemplateMismatch:          "template mismatch",
	OutputMissing:             "output missing",
	StaleArtifact:             "stale artifact",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Error is a tagged validation failure. It is never recovered inside the
// validators.
type Error struct {
	Kind   Kind
	Stage  string
	Check  string
	Sample string
	// Conditions lists the short tags ("t1", "t3", ...) of the sub-conditions
	// that tripped, for checks that test several things at once.
	Conditions []string
	// Cause is a human readable description.
	Cause string
	// Err is the underlying error, if any.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(e.Stage)
		b.WriteString(" ")
	}
	b.WriteString(e.Check)
	b.WriteString(": ")
	b.WriteString(e.Sample)
	if e.Cause != "" {
		b.WriteString(" ")
		b.WriteString(e.Cause)
	}
	if len(e.Conditions) > 0 {
		b.WriteString(". Issue in condition/s: ")
		b.WriteString(strings.Join(e.Conditions, ","))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// E constructs an Error. Stage and sample are usually filled in by the
// validator that runs the check.
func E(kind Kind, check, sample, cause string) *Error {
	return &Error{Kind: kind, Check: check, Sample: sample, Cause: cause}
}

// Errorf is E with a formatted cause.
func Errorf(kind Kind, check, sample, format string, args ...interface{}) *Error {
	return E(kind, check, sample, fmt.Sprintf(format, args...))
}

// Conditions returns the tags t1..tn of the true entries of tripped, in
// order. It returns nil when nothing tripped.
func Conditions(tripped ...bool) []string {
	var tags []string
	for i, t := range tripped {
		if t {
			tags = append(tags, fmt.Sprintf("t%d", i+1))
		}
	}
	return tags
}

// KindOf returns the Kind of the first *Error in err's chain, or Other.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// Is reports whether err's chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
