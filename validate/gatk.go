package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/JuanMataNaranjo/CINECA-repo/format"
	"github.com/JuanMataNaranjo/CINECA-repo/golden"
	"github.com/JuanMataNaranjo/CINECA-repo/logfile"
	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
	"github.com/JuanMataNaranjo/CINECA-repo/score"
	"github.com/JuanMataNaranjo/CINECA-repo/util"
)

// GATK validates the log of a GATK tool: BaseRecalibrator, ApplyBQSR or
// HaplotypeCaller. The three logs share their global flags dump, progress
// meter, feature manager and final summary; they differ in the tool's own
// section, which holds the engine lifecycle and the covariates and read
// filters in use.
type GATK struct {
	*base
	template *golden.Template
	warnings *score.WarningStats
}

// NewGATK returns a loaded GATK validator for stage.
func NewGATK(ctx context.Context, stage format.Stage, opts Opts) (*GATK, error) {
	switch stage {
	case format.BaseRecalibrator, format.ApplyBQSR, format.Haplotype:
	default:
		return nil, qcerr.Errorf(qcerr.Configuration, "new", opts.Sample, "%s is not a GATK stage", stage)
	}
	b, err := newBase(stage, opts)
	if err != nil {
		return nil, err
	}
	v := &GATK{base: b}
	v.checks = v.battery()
	if err := v.Load(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// Load implements Validator.
func (v *GATK) Load(ctx context.Context) error {
	v.warnings = nil
	return v.load(ctx, false)
}

func (v *GATK) battery() []Check {
	b := v.base
	var (
		running   = b.assertions("check_running", "did not start running...")
		sample    = b.assertions("check_correct_sample", "should be processed however another sample has been processed instead")
		flags     = b.assertions("check_global_flags_start", "defining the global flags did not seem to work")
		flagsLen  = Check{Name: "check_global_flags_length", Run: v.checkGlobalFlagsLength}
		flagsVars = Check{Name: "check_global_flags_variables", Run: v.checkGlobalFlagsVariables}
		others    = Check{Name: "check_final_section_others", Run: v.checkFinalSectionOthers}
		features  = Check{Name: "check_featuremanager_files", Run: v.checkFeatureManagerFiles}
		chroms    = Check{Name: "check_progressmeter_chromosomes", Run: v.checkProgressMeterChromosomes}
		startEnd  = b.assertions("check_progressmeter_start_end",
			"does not have the correct start and end statements in the ProgressMeter section", v.traversalNumbers)
	)
	switch v.stage {
	case format.BaseRecalibrator:
		return []Check{
			running, sample, flags,
			b.assertions("check_final_section_success", "has not been successful during BaseRecalibration"),
			others, flagsLen, flagsVars,
			v.stageLength("check_baserecalibrator_len"),
			b.assertions("check_baserecalibrator_engine", "baserecalibrator engine did not work properly"),
			b.assertions("check_baserecalibrator_covariates", "not all the covariates have been used"),
			b.assertions("check_baserecalibrator_filters", "not all the correct filters have been used on the base recalibrator"),
			b.assertions("check_baserecalibrator_quantization", "the quantization part did not work properly", v.recalibratedReads),
			features, chroms, startEnd,
			b.outputExists(),
		}
	case format.ApplyBQSR:
		return []Check{
			running, sample, flags, others, flagsLen, flagsVars,
			v.stageLength("check_applybqsr_len"),
			b.assertions("check_applybqsr_engine", "applybqsr engine did not work properly"),
			b.assertions("check_applybqsr_quantization", "the quantization part did not work properly"),
			features,
			optional(chroms),
			startEnd,
			b.outputExists(),
		}
	}
	return []Check{
		v.stageLength("check_len"),
		running, sample,
		b.assertions("check_haplotype_engine", "haplotype engine did not work properly"),
		b.assertions("check_haplotype_filters", "not all the correct filters have been used on the haplotype"),
		features,
		{Name: "check_warnings", Run: v.checkWarnings},
		chroms, startEnd,
		b.outputExists(),
	}
}

// stageLength returns the check that the tool's own section has at least
// the minimum number of lines.
func (v *GATK) stageLength(name string) Check {
	return Check{Name: name, Run: func(context.Context) error {
		want, ok := v.desc.MinLines[format.SectionStage]
		if !ok {
			return qcerr.Errorf(qcerr.Configuration, name, "", "has no minimum length in format %s", v.opts.Format.Version)
		}
		if n := v.sections.Get(format.SectionStage).Len(); n < want {
			return qcerr.Errorf(qcerr.SectionLengthMismatch, name, "",
				"%s section is not as long as expected: %d lines, want at least %d", v.stage, n, want)
		}
		return nil
	}}
}

func (v *GATK) checkGlobalFlagsLength(context.Context) error {
	const name = "check_global_flags_length"
	gf := v.desc.GlobalFlags
	if gf == nil {
		return qcerr.Errorf(qcerr.Configuration, name, "", "has no global flags layout in format %s", v.opts.Format.Version)
	}
	if n := v.sections.Get(format.SectionGlobalFlags).Len(); n != gf.Length {
		return qcerr.Errorf(qcerr.SectionLengthMismatch, name, "", "does not have the expected number of rows: %d, want %d", n, gf.Length)
	}
	return nil
}

func (v *GATK) checkGlobalFlagsVariables(ctx context.Context) error {
	const name = "check_global_flags_variables"
	gf := v.desc.GlobalFlags
	if gf == nil {
		return qcerr.Errorf(qcerr.Configuration, name, "", "has no global flags layout in format %s", v.opts.Format.Version)
	}
	if v.template == nil {
		if v.opts.Template == "" {
			return qcerr.E(qcerr.Configuration, name, "", "has no global flags template")
		}
		t, err := golden.Read(ctx, v.opts.Template)
		if err != nil {
			return err
		}
		v.template = t
	}
	return golden.Diff(v.sections.Get(format.SectionGlobalFlags), v.template.Lines, golden.NewExemptions(gf.Exempt...))
}

// wordCount returns the number of whole word occurrences of s in text.
func wordCount(text, s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for i := 0; i < len(text); {
		j := strings.Index(text[i:], s)
		if j < 0 {
			break
		}
		start, end := i+j, i+j+len(s)
		if boundary(text, start) && boundary(text, end) {
			n++
			i = end
		} else {
			i = start + 1
		}
	}
	return n
}

// boundary reports whether offset i of text is a word boundary, as in a
// regexp `\b`.
func boundary(text string, i int) bool {
	return (i > 0 && isWord(text[i-1])) != (i < len(text) && isWord(text[i]))
}

func isWord(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// checkFinalSectionOthers checks that every memory pool marker appears
// exactly once in the final summary.
func (v *GATK) checkFinalSectionOthers(context.Context) error {
	const name = "check_final_section_others"
	f := v.desc.Final
	if f == nil {
		return qcerr.Errorf(qcerr.Configuration, name, "", "has no final section layout in format %s", v.opts.Format.Version)
	}
	text := v.final.Slice(f.From, 0).Text()
	var bad []string
	for _, m := range f.Markers {
		if n := wordCount(text, m); n != 1 {
			bad = append(bad, fmt.Sprintf("%s (%d times)", m, n))
		}
	}
	if len(bad) > 0 {
		return qcerr.Errorf(qcerr.MissingReferenceItem, name, "",
			"not all the expected fields are present in the last part of the log: %s", strings.Join(bad, ", "))
	}
	return nil
}

// checkFeatureManagerFiles checks that the feature manager read every
// expected resource and nothing else.
func (v *GATK) checkFeatureManagerFiles(context.Context) error {
	const name = "check_featuremanager_files"
	f := v.desc.Features
	if f == nil {
		return qcerr.Errorf(qcerr.Configuration, name, "", "has no resource list in format %s", v.opts.Format.Version)
	}
	text := v.sections.Get(format.SectionFeature).Text()
	var (
		total   int
		missing []string
	)
	for _, r := range f.Resources {
		n := wordCount(text, r)
		if n == 0 {
			missing = append(missing, r)
		}
		total += n
	}
	if total != f.Want() || len(missing) > 0 {
		e := qcerr.Errorf(qcerr.MissingReferenceItem, name, "",
			"did not get the features from the correct input files: %d references, want %d", total, f.Want())
		if len(missing) > 0 {
			e.Cause += "; missing " + strings.Join(missing, ", ")
		}
		return e
	}
	return nil
}

// recalibratedReads trips when the count of "BaseRecalibrator was able to
// recalibrate N reads" is negative or absent.
func (v *GATK) recalibratedReads() bool {
	for _, a := range v.desc.Checks["check_baserecalibrator_quantization"] {
		if a.Match != format.Masked {
			continue
		}
		line, ok := logfile.Line(v.lines(a), a.Offset)
		if !ok || a.From > len(line) {
			return true
		}
		n := integers(line[a.From:])
		return len(n) == 0 || n[0] < 0
	}
	return false
}

// traversalNumbers trips when a number after "Traversal complete.
// Processed" is negative.
func (v *GATK) traversalNumbers() bool {
	pm := v.desc.ProgressMeter
	if pm == nil {
		return false
	}
	last, ok := v.sections.Get(format.SectionProgressMeter).Line(-1)
	if !ok {
		return false
	}
	i := strings.Index(last, pm.Complete)
	if i < 0 {
		return false
	}
	return anyNegative(decimals(last[i+len(pm.Complete):]))
}

func (v *GATK) layout() score.Layout {
	pm := v.desc.ProgressMeter
	return score.Layout{Fields: pm.Fields, Locus: pm.Locus, Minutes: pm.Minutes, Reads: pm.Reads}
}

// Progress parses the body of the progress meter table.
func (v *GATK) Progress() ([]score.Progress, error) {
	pm := v.desc.ProgressMeter
	if pm == nil {
		return nil, fmt.Errorf("format %s has no progress meter layout for %s", v.opts.Format.Version, v.stage)
	}
	body := v.sections.Get(format.SectionProgressMeter).Slice(pm.Head, -pm.Tail)
	return score.ParseTable(body, v.layout())
}

// checkProgressMeterChromosomes checks that the progress meter traverses
// exactly the canonical chromosomes, in order, at non-negative positions
// and read counts.
func (v *GATK) checkProgressMeterChromosomes(context.Context) error {
	const name = "check_progressmeter_chromosomes"
	rows, err := v.Progress()
	if err != nil {
		e := qcerr.E(qcerr.NumericInvariantViolation, name, "", "has a malformed progress meter")
		e.Err = err
		return e
	}
	want := v.desc.ProgressMeter.Chromosomes
	got := score.Contigs(rows)
	var t1, t2, t3 bool
	t1 = !equalStrings(got, want)
	for _, r := range rows {
		t2 = t2 || r.Position < 0
		t3 = t3 || r.Reads < 0
	}
	if !t1 && !t2 && !t3 {
		return nil
	}
	e := qcerr.E(qcerr.NumericInvariantViolation, name, "",
		"has some strange chromosome values or is missing some chromosomes to be inspected")
	e.Conditions = qcerr.Conditions(t1, t2, t3)
	if t1 {
		e.Kind = qcerr.MissingReferenceItem
		e.Cause += " --> " + chromosomeDiff(got, want)
	}
	return e
}

// chromosomeDiff describes how got differs from want: the missing
// chromosomes, then the unexpected ones with the closest canonical name.
func chromosomeDiff(got, want []string) string {
	var parts []string
	for _, c := range util.Missing(got, want) {
		parts = append(parts, "missing "+c)
	}
	for _, c := range util.Missing(want, got) {
		if best, _ := util.Closest(c, want); best != "" {
			parts = append(parts, fmt.Sprintf("unexpected %s (closest %s)", c, best))
		} else {
			parts = append(parts, "unexpected "+c)
		}
	}
	if len(parts) == 0 {
		return "chromosomes out of order"
	}
	return strings.Join(parts, ", ")
}

// checkWarnings tallies the WARN lines. It never fails.
func (v *GATK) checkWarnings(context.Context) error {
	v.WarningStats()
	return nil
}

// WarningStats returns the WARN lines tallied by type and chromosome.
func (v *GATK) WarningStats() score.WarningStats {
	if v.warnings == nil {
		var types []string
		if v.desc.Warnings != nil {
			types = v.desc.Warnings.Types
		}
		s := score.Warnings(v.sections.Get(format.SectionWarning), types)
		v.warnings = &s
	}
	return *v.warnings
}

// ChromStats folds the progress meter into per-chromosome statistics.
func (v *GATK) ChromStats() (score.ChromStats, error) {
	rows, err := v.Progress()
	if err != nil {
		return score.ChromStats{}, err
	}
	return score.Fold(rows), nil
}

// Score returns the anomaly score of the progress meter against the
// reference distributions of the stage. Lower is more reference-like.
func (v *GATK) Score() (float64, error) {
	refs := v.opts.References
	if refs == nil {
		var err error
		if refs, err = format.LoadReferences(); err != nil {
			return 0, err
		}
	}
	ref, err := refs.Stage(v.stage)
	if err != nil {
		return 0, err
	}
	obs, err := v.ChromStats()
	if err != nil {
		return 0, err
	}
	return score.AnomalyScore(obs, score.ChromStats{
		Count: score.Distribution(ref.Count),
		Time:  score.Distribution(ref.Time),
		Reads: score.Distribution(ref.Reads),
	}), nil
}
