// Package validate checks the console logs that each pipeline stage wrote
// for one sample. A Validator reads and segments the stage logs once, then
// runs an ordered battery of checks. The first failing check stops the run
// and is returned as a *qcerr.Error tagged with the stage, the check and
// the sample.
//
// The literal markers, offsets and counts that the checks assert come from
// a format.Descriptor, so a tool upgrade that moves a marker only needs a
// new descriptor version.
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/JuanMataNaranjo/CINECA-repo/format"
	"github.com/JuanMataNaranjo/CINECA-repo/logfile"
	"github.com/JuanMataNaranjo/CINECA-repo/metadata"
	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
	"github.com/JuanMataNaranjo/CINECA-repo/section"
	"github.com/grailbio/base/file"
)

// Check is one named check of a battery.
type Check struct {
	Name string
	// Optional checks are skipped by a default run. They run when named
	// explicitly.
	Optional bool
	Run      func(ctx context.Context) error
}

// Validator validates the logs of one stage of one sample.
type Validator interface {
	Stage() format.Stage
	Sample() string
	// Load reads and segments the stage logs. Constructors call it; calling
	// it again re-reads the logs.
	Load(ctx context.Context) error
	// Checks lists the battery in run order.
	Checks() []Check
	// Check runs the named checks in the given order, or the non-optional
	// checks of the battery if names is empty. It stops at the first
	// failure.
	Check(ctx context.Context, names ...string) error
}

// Opts configures a validator.
type Opts struct {
	// Dir is the sample directory. Stage logs live in the subdirectory named
	// by the stage descriptor.
	Dir    string
	Sample string
	// Metadata resolves the pairing mode. Stages whose layout depends on it
	// fail to load with qcerr.MetadataUnavailable when it is nil.
	Metadata metadata.Resolver
	// Format selects the log layout; nil means format.Load("").
	Format *format.Set
	// Template is the path of the global flags template of the GATK stages.
	Template string
	// References are the distributions used by GATK.Score; nil means the
	// embedded ones.
	References format.References
	// PairThreshold is the minimum number of pairs for bwa to analyze an
	// orientation. Non-positive values select the descriptor's threshold.
	PairThreshold int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	PairThreshold: 10,
}

// New returns the validator of stage.
func New(ctx context.Context, stage format.Stage, opts Opts) (Validator, error) {
	switch stage {
	case format.FastQC:
		return NewFastQC(ctx, opts)
	case format.Seqtk:
		return NewSeqtk(ctx, opts)
	case format.Bwa:
		return NewBwa(ctx, opts)
	case format.SamSort:
		return NewSamSort(ctx, opts)
	case format.BaseRecalibrator, format.ApplyBQSR, format.Haplotype:
		return NewGATK(ctx, stage, opts)
	case format.Inputs:
		return NewInputs(ctx, opts)
	}
	return nil, qcerr.Errorf(qcerr.Configuration, "new", opts.Sample, "unknown stage %q", stage)
}

// base holds what every stage validator shares: the descriptor, the
// pairing mode, the loaded logs and their sections.
type base struct {
	stage  format.Stage
	opts   Opts
	desc   *format.Descriptor
	paired bool

	docs     map[string]*logfile.Document
	sections section.Sections
	// final is the tail of the main log described by desc.Final.
	final  section.Section
	checks []Check
}

func newBase(stage format.Stage, opts Opts) (*base, error) {
	if opts.Format == nil {
		set, err := format.Load("")
		if err != nil {
			e := qcerr.E(qcerr.Configuration, "format", opts.Sample, "cannot load the default format")
			e.Stage, e.Err = string(stage), err
			return nil, e
		}
		opts.Format = set
	}
	desc, err := opts.Format.Stage(stage)
	if err != nil {
		e := qcerr.E(qcerr.Configuration, "format", opts.Sample, "")
		e.Stage, e.Err = string(stage), err
		return nil, e
	}
	return &base{stage: stage, opts: opts, desc: desc}, nil
}

// Stage implements Validator.
func (b *base) Stage() format.Stage { return b.stage }

// Sample implements Validator.
func (b *base) Sample() string { return b.opts.Sample }

// Checks implements Validator.
func (b *base) Checks() []Check { return b.checks }

// Paired reports the pairing mode resolved at load time. It is false for
// stages that do not depend on it.
func (b *base) Paired() bool { return b.paired }

// Check implements Validator.
func (b *base) Check(ctx context.Context, names ...string) error {
	run, err := b.selectChecks(names)
	if err != nil {
		return b.tag("check", err)
	}
	for _, c := range run {
		if err := c.Run(ctx); err != nil {
			return b.tag(c.Name, err)
		}
	}
	return nil
}

func (b *base) selectChecks(names []string) ([]Check, error) {
	if len(names) == 0 {
		var run []Check
		for _, c := range b.checks {
			if !c.Optional {
				run = append(run, c)
			}
		}
		return run, nil
	}
	byName := make(map[string]Check, len(b.checks))
	for _, c := range b.checks {
		byName[c.Name] = c
	}
	seen := map[string]bool{}
	run := make([]Check, 0, len(names))
	for _, name := range names {
		c, ok := byName[name]
		if !ok {
			return nil, qcerr.Errorf(qcerr.Configuration, name, "", "is not a check of stage %s", b.stage)
		}
		if seen[name] {
			return nil, qcerr.Errorf(qcerr.Configuration, name, "", "is requested twice")
		}
		seen[name] = true
		run = append(run, c)
	}
	return run, nil
}

// tag fills in the identity of a failure. Errors that are not a
// *qcerr.Error are wrapped as qcerr.Other.
func (b *base) tag(check string, err error) error {
	e, ok := qcerr.As(err)
	if !ok {
		return &qcerr.Error{Kind: qcerr.Other, Stage: string(b.stage), Check: check, Sample: b.opts.Sample, Err: err}
	}
	if e.Stage == "" {
		e.Stage = string(b.stage)
	}
	if e.Check == "" {
		e.Check = check
	}
	if e.Sample == "" {
		e.Sample = b.opts.Sample
	}
	return e
}

// dir returns the stage directory.
func (b *base) dir() string {
	if b.desc.Dir == "" {
		return b.opts.Dir
	}
	return file.Join(b.opts.Dir, b.desc.Dir)
}

// path returns the path of a file pattern of the stage directory.
func (b *base) path(pattern string) string {
	return file.Join(b.dir(), format.Expand(pattern, b.opts.Sample))
}

func (b *base) resolvePairing(ctx context.Context) error {
	if b.opts.Metadata == nil {
		return qcerr.E(qcerr.MetadataUnavailable, "single_paired", b.opts.Sample, "has no metadata source")
	}
	paired, err := b.opts.Metadata.Paired(ctx, b.opts.Sample)
	if err != nil {
		return err
	}
	b.paired = paired
	return nil
}

// load resolves the pairing mode if needed, reads the stage logs and
// segments the main one.
func (b *base) load(ctx context.Context, pairing bool) error {
	if pairing {
		if err := b.resolvePairing(ctx); err != nil {
			return b.tag("single_paired", err)
		}
	}
	docs := map[string]*logfile.Document{}
	for _, l := range b.desc.Logs {
		doc, err := b.loadLog(ctx, l)
		if err != nil {
			return b.tag("read_log", err)
		}
		if doc != nil {
			docs[l.Name] = doc
		}
	}
	b.docs = docs
	main := b.main()
	b.sections, b.final = nil, nil
	if len(b.desc.Sections) > 0 {
		c, err := section.Compile(b.desc.Sections)
		if err != nil {
			return b.tag("read_log", qcerr.Errorf(qcerr.Configuration, "read_log", "", "bad sections: %v", err))
		}
		b.sections = c.Split(main.Lines)
	}
	if b.desc.Final != nil {
		b.final = section.Section(main.Tail(b.desc.Final.Lines))
	}
	return nil
}

// loadLog reads one log, trying the plain file name first and then each
// prefixed name. A missing optional log yields (nil, nil).
func (b *base) loadLog(ctx context.Context, l format.Log) (*logfile.Document, error) {
	name := l.File(b.opts.Sample)
	candidates := []string{name}
	for _, p := range l.Prefixes {
		candidates = append(candidates, p+name)
	}
	var lastErr error
	for _, c := range candidates {
		doc, err := logfile.Load(ctx, file.Join(b.dir(), c), b.opts.Sample, string(b.stage), l.Name)
		if err == nil {
			return doc, nil
		}
		lastErr = err
	}
	if l.Optional {
		return nil, nil
	}
	e := qcerr.Errorf(qcerr.OutputMissing, "read_log", "", "has no %s log %s", l.Name, name)
	e.Err = lastErr
	return nil, e
}

// main returns the first log of the descriptor.
func (b *base) main() *logfile.Document {
	return b.docs[b.desc.Logs[0].Name]
}

// lines returns the lines an assertion applies to.
func (b *base) lines(a format.Assertion) []string {
	doc := b.main()
	if a.Log != "" {
		if doc = b.docs[a.Log]; doc == nil {
			return nil
		}
	}
	switch a.Section {
	case "":
		return doc.Lines
	case format.SectionFinal:
		return b.final
	}
	return b.sections.Get(a.Section)
}

// offsetLine returns the main log line at the named offset.
func (b *base) offsetLine(check, offset string) (string, error) {
	off, err := b.desc.Offset(offset)
	if err != nil {
		return "", qcerr.Errorf(qcerr.Configuration, check, "", "%v", err)
	}
	line, ok := b.main().Line(off)
	if !ok {
		return "", qcerr.Errorf(qcerr.SectionLengthMismatch, check, "", "has no line %d", off)
	}
	return line, nil
}

// condition is an extra sub-condition of a check. It reports whether it
// tripped.
type condition func() bool

// assertions returns a check that evaluates the named assertion group of
// the descriptor followed by extra. Sub-conditions are tagged t1..tn in
// that order. The failure is a MarkerMismatch if any assertion tripped and
// a NumericInvariantViolation otherwise.
func (b *base) assertions(name, cause string, extra ...condition) Check {
	return Check{Name: name, Run: func(context.Context) error {
		group, ok := b.desc.Checks[name]
		if !ok {
			return qcerr.Errorf(qcerr.Configuration, name, "", "has no assertions in format %s", b.opts.Format.Version)
		}
		tripped := make([]bool, 0, len(group)+len(extra))
		var marker, numeric bool
		for _, a := range group {
			t := !a.Holds(b.lines(a), b.opts.Sample)
			marker = marker || t
			tripped = append(tripped, t)
		}
		for _, c := range extra {
			t := c()
			numeric = numeric || t
			tripped = append(tripped, t)
		}
		if !marker && !numeric {
			return nil
		}
		kind := qcerr.MarkerMismatch
		if !marker {
			kind = qcerr.NumericInvariantViolation
		}
		e := qcerr.E(kind, name, "", cause)
		if len(tripped) > 1 {
			e.Conditions = qcerr.Conditions(tripped...)
		}
		return e
	}}
}

func optional(c Check) Check {
	c.Optional = true
	return c
}

// outputExists returns the optional check that every output of the stage
// exists.
func (b *base) outputExists() Check {
	const name = "check_output_exists"
	return Check{Name: name, Optional: true, Run: func(ctx context.Context) error {
		for _, pattern := range b.desc.Outputs {
			path := b.path(pattern)
			if _, err := file.Stat(ctx, path); err != nil {
				e := qcerr.Errorf(qcerr.OutputMissing, name, "", "did not generate %s", file.Base(path))
				e.Err = err
				return e
			}
		}
		return nil
	}}
}

// tmpFiles returns the check that no temporary file was left in the stage
// directory.
func (b *base) tmpFiles() Check {
	const name = "check_tmp_files"
	return Check{Name: name, Run: func(ctx context.Context) error {
		var stale []string
		lister := file.List(ctx, b.dir(), false)
		for lister.Scan() {
			if lister.IsDir() {
				continue
			}
			if f := file.Base(lister.Path()); strings.Contains(f, "tmp") {
				stale = append(stale, f)
			}
		}
		if err := lister.Err(); err != nil {
			return err
		}
		if len(stale) > 0 {
			return qcerr.Errorf(qcerr.StaleArtifact, name, "", "still has some tmp files laying around: %s", strings.Join(stale, ", "))
		}
		return nil
	}}
}

// lineCount checks the length of a log against the accepted counts.
func (b *base) lineCount(name string, doc *logfile.Document) error {
	if b.desc.Lines == nil {
		return qcerr.Errorf(qcerr.Configuration, name, "", "has no line counts in format %s", b.opts.Format.Version)
	}
	if !b.desc.Lines.Accepts(b.paired, doc.Len()) {
		return qcerr.Errorf(qcerr.SectionLengthMismatch, name, "",
			"%s log has %d lines, want %s (%s)", doc.End, doc.Len(), counts(b.desc.Lines.For(b.paired)), mode(b.paired))
	}
	return nil
}

func counts(ns []int) string {
	s := make([]string, len(ns))
	for i, n := range ns {
		s[i] = fmt.Sprint(n)
	}
	return strings.Join(s, " or ")
}

func mode(paired bool) string {
	if paired {
		return "paired"
	}
	return "single"
}
