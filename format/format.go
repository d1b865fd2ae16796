// Package format holds the per-stage, per-version description of the pipeline
// logs: where each log lives, how it is segmented into sections, and the
// literal markers, offsets and constants each validator asserts. Tool
// upgrades that move a marker are absorbed here as data.
//
// The descriptors ship embedded in the binary. A Set is selected by version
// name with Load, or read from a YAML file with LoadFile.
package format

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/JuanMataNaranjo/CINECA-repo/section"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var assets embed.FS

// Stage names a pipeline step.
type Stage string

const (
	FastQC           Stage = "fastqc"
	Seqtk            Stage = "seqtk"
	Bwa              Stage = "bwa"
	SamSort          Stage = "samsort"
	BaseRecalibrator Stage = "baserecalibrator"
	ApplyBQSR        Stage = "applybqsr"
	Haplotype        Stage = "haplotype"
	Inputs           Stage = "inputs"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{FastQC, Seqtk, Bwa, SamSort, BaseRecalibrator, ApplyBQSR, Haplotype, Inputs}

// ParseStage converts a stage name.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// Names of the sections that validators look up. The descriptors may define
// other sections, but these carry meaning in code.
const (
	SectionGlobalFlags   = "global_flags"
	SectionStage         = "stage"
	SectionProgressMeter = "progress_meter"
	SectionFeature       = "feature_manager"
	SectionWarning       = "warning"
	SectionProcess       = "process"
	SectionPestat        = "mem_pestat"
	SectionProcessSeqs   = "mem_process_seqs"
	// SectionFinal is not produced by the classifier. It is the last
	// Final.Lines lines of the main log.
	SectionFinal = "final"
)

// DefaultVersion is the version selected by Load("").
const DefaultVersion = "gatk-4.1-cicompiler"

// Set is the full collection of descriptors for one log format version.
type Set struct {
	Version string                `yaml:"version"`
	Stages  map[Stage]*Descriptor `yaml:"stages"`
}

// Descriptor describes the logs of one stage.
type Descriptor struct {
	// Dir is the stage directory relative to the sample directory.
	Dir string `yaml:"dir"`
	// Logs are the files read by the validator. The first one is the main
	// log.
	Logs []Log `yaml:"logs"`
	// Outputs are artifacts (patterns relative to Dir) that must exist when
	// the output check runs.
	Outputs []string `yaml:"outputs,omitempty"`
	// Sections segment the main log.
	Sections []section.Rule `yaml:"sections,omitempty"`
	// Checks are assertion groups keyed by check name. Within a group the
	// assertions map, in order, to the condition tags t1..tn.
	Checks map[string][]Assertion `yaml:"checks,omitempty"`
	// Lines are the accepted line counts of each log.
	Lines *LineCount `yaml:"lines,omitempty"`
	// MinLines gives the minimum length of named sections.
	MinLines map[string]int `yaml:"min_lines,omitempty"`
	// Offsets names the lines, of the main log, that numeric checks read.
	Offsets map[string]int `yaml:"offsets,omitempty"`

	GlobalFlags   *GlobalFlags   `yaml:"global_flags,omitempty"`
	ProgressMeter *ProgressMeter `yaml:"progress_meter,omitempty"`
	Features      *Features      `yaml:"features,omitempty"`
	Final         *Final         `yaml:"final,omitempty"`
	Warnings      *Warnings      `yaml:"warnings,omitempty"`
	Pairs         *Pairs         `yaml:"pairs,omitempty"`
	Table         *Table         `yaml:"table,omitempty"`
}

// Log names one file of a stage. Pattern contains the "{sample}"
// placeholder. Prefixes lists alternative file name prefixes tried in order
// when the plain name does not exist (e.g. "tmp_" for logs of a still
// running step).
type Log struct {
	Name     string   `yaml:"name"`
	Pattern  string   `yaml:"pattern"`
	Prefixes []string `yaml:"prefixes,omitempty"`
	// Optional logs may be absent. Validators treat a missing optional log
	// as not produced.
	Optional bool `yaml:"optional,omitempty"`
}

// File returns the log file name for sample.
func (l Log) File(sample string) string {
	return Expand(l.Pattern, sample)
}

// Expand substitutes the "{sample}" placeholder.
func Expand(pattern, sample string) string {
	return strings.Replace(pattern, "{sample}", sample, -1)
}

// LineCount lists the accepted line counts per pairing mode.
type LineCount struct {
	Paired []int `yaml:"paired"`
	Single []int `yaml:"single"`
}

// Accepts reports whether n is an accepted count.
func (c *LineCount) Accepts(paired bool, n int) bool {
	for _, v := range c.For(paired) {
		if v == n {
			return true
		}
	}
	return false
}

// For returns the accepted counts for the pairing mode.
func (c *LineCount) For(paired bool) []int {
	if paired {
		return c.Paired
	}
	return c.Single
}

// GlobalFlags describes the JVM flags dump that GATK prints after
// "[Global flags]".
type GlobalFlags struct {
	Length int `yaml:"length"`
	// Exempt are the indices, within the section, of lines that depend on
	// the machine (heap sizes, compiler thread count).
	Exempt []int `yaml:"exempt"`
}

// ProgressMeter describes the GATK traversal progress table.
type ProgressMeter struct {
	// Chromosomes is the canonical ordered set of contigs that must be
	// traversed.
	Chromosomes []string `yaml:"chromosomes"`
	// Head and Tail are the number of lines before and after the table body.
	Head int `yaml:"head"`
	Tail int `yaml:"tail"`
	// Fields is the number of whitespace separated fields of a body row.
	// Locus, Minutes and Reads are field indices.
	Fields  int `yaml:"fields"`
	Locus   int `yaml:"locus"`
	Minutes int `yaml:"minutes"`
	Reads   int `yaml:"reads"`
	// Complete is the phrase of the last line; the numbers after it must be
	// non-negative.
	Complete string `yaml:"complete"`
}

// Features lists the resources the GATK feature manager must report.
type Features struct {
	Resources []string `yaml:"resources"`
	// Matches is the expected number of resource references in the section.
	// Zero means len(Resources).
	Matches int `yaml:"matches,omitempty"`
}

// Want returns the expected number of references.
func (f *Features) Want() int {
	if f.Matches > 0 {
		return f.Matches
	}
	return len(f.Resources)
}

// Final describes the summary at the end of a GATK log.
type Final struct {
	Lines int `yaml:"lines"`
	// Markers must all appear in the final section starting at line From,
	// as whole words, exactly once each.
	From    int      `yaml:"from"`
	Markers []string `yaml:"markers"`
}

// Warnings lists the HaplotypeCaller warning kinds tallied by type.
type Warnings struct {
	Types []string `yaml:"types"`
}

// Pairs describes the bwa insert size statistics blocks.
type Pairs struct {
	// Threshold is the minimum number of pairs for an orientation to be
	// analyzed. Opts may override it.
	Threshold int `yaml:"threshold"`
	// Candidate starts a batch; the line ends with the
	// "(FF, FR, RF, RR): (a, b, c, d)" counts.
	Candidate string `yaml:"candidate"`
	// Skip and SkipReason frame "skip orientation XX as there are ...".
	Skip       string `yaml:"skip"`
	SkipReason string `yaml:"skip_reason"`
	// Analyze is the suffix of the line announcing an analyzed orientation,
	// the orientation being the two characters before it.
	Analyze string `yaml:"analyze"`
	// Steps are the line prefixes that follow an analyzed orientation.
	Steps []string `yaml:"steps"`
}

// Table describes the samblaster duplicate statistics table.
type Table struct {
	// From and To delimit the rows as in section.Section.Slice.
	From int `yaml:"from"`
	To   int `yaml:"to"`
	// Column is the byte offset at which row content starts.
	Column int `yaml:"column"`
	// Labels are the expected row labels per pairing mode; the last one is
	// the totals row.
	Labels LabelSet `yaml:"labels"`
	// NonAdditive lists columns that are ratios and do not sum.
	NonAdditive []int   `yaml:"non_additive,omitempty"`
	Tolerance   float64 `yaml:"tolerance"`
	// Duplicates is the column of the totals row that holds the duplicate
	// count reported on the last line of the log.
	Duplicates int `yaml:"duplicates"`
	// Sum selects what adds up: "columns" (body rows add up to the totals
	// row, per column) or "rows" (each row's leading columns add up to its
	// last column).
	Sum string `yaml:"sum,omitempty"`
}

// LabelSet holds per pairing mode labels.
type LabelSet struct {
	Paired []string `yaml:"paired"`
	Single []string `yaml:"single"`
}

// For returns the labels for the pairing mode.
func (l LabelSet) For(paired bool) []string {
	if paired {
		return l.Paired
	}
	return l.Single
}

// Offset returns the named line offset.
func (d *Descriptor) Offset(name string) (int, error) {
	off, ok := d.Offsets[name]
	if !ok {
		return 0, fmt.Errorf("no offset %q", name)
	}
	return off, nil
}

// Log returns the log called name.
func (d *Descriptor) Log(name string) (Log, bool) {
	for _, l := range d.Logs {
		if l.Name == name {
			return l, true
		}
	}
	return Log{}, false
}

// Stage returns the descriptor of stage.
func (s *Set) Stage(stage Stage) (*Descriptor, error) {
	d, ok := s.Stages[stage]
	if !ok {
		return nil, fmt.Errorf("format %s: no descriptor for stage %s", s.Version, stage)
	}
	return d, nil
}

type versionTable struct {
	Default  string                    `yaml:"default"`
	Versions map[string]versionOverlay `yaml:"versions"`
}

type versionOverlay struct {
	Exempt []int `yaml:"exempt"`
}

func readVersions() (versionTable, error) {
	var t versionTable
	data, err := assets.ReadFile("data/versions.yaml")
	if err != nil {
		return t, err
	}
	err = decode(bytes.NewReader(data), &t)
	return t, err
}

// Versions lists the embedded format versions.
func Versions() []string {
	t, err := readVersions()
	if err != nil {
		panic(err)
	}
	var names []string
	for name := range t.Versions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load returns the embedded descriptors for version; "" selects
// DefaultVersion.
func Load(version string) (*Set, error) {
	t, err := readVersions()
	if err != nil {
		return nil, err
	}
	if version == "" {
		version = t.Default
	}
	overlay, ok := t.Versions[version]
	if !ok {
		return nil, fmt.Errorf("unknown format version %q (have %s)", version, strings.Join(Versions(), ", "))
	}
	data, err := assets.ReadFile("data/stages.yaml")
	if err != nil {
		return nil, err
	}
	set, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	set.Version = version
	for _, d := range set.Stages {
		if d.GlobalFlags != nil {
			d.GlobalFlags.Exempt = append([]int(nil), overlay.Exempt...)
		}
	}
	return set, nil
}

// MustLoad is Load that panics on error.
func MustLoad(version string) *Set {
	set, err := Load(version)
	if err != nil {
		panic(err)
	}
	return set
}

// LoadFile reads a complete descriptor set from a YAML file.
func LoadFile(ctx context.Context, path string) (set *Set, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open format", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	set, err = Parse(in.Reader(ctx))
	if err != nil {
		return nil, errors.E(errors.Invalid, err, path)
	}
	if set.Version == "" {
		set.Version = file.Base(path)
	}
	return set, nil
}

// Parse decodes and validates a descriptor set.
func Parse(r io.Reader) (*Set, error) {
	set := &Set{}
	if err := decode(r, set); err != nil {
		return nil, err
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	return set, nil
}

func decode(r io.Reader, v interface{}) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	return dec.Decode(v)
}

func (s *Set) validate() error {
	for stage, d := range s.Stages {
		if _, err := ParseStage(string(stage)); err != nil {
			return err
		}
		if len(d.Logs) == 0 {
			return fmt.Errorf("stage %s: no logs", stage)
		}
		if _, err := section.Compile(d.Sections); err != nil {
			return fmt.Errorf("stage %s: %v", stage, err)
		}
		for name, group := range d.Checks {
			for i, a := range group {
				if err := a.validate(); err != nil {
					return fmt.Errorf("stage %s check %s assertion %d: %v", stage, name, i+1, err)
				}
			}
		}
	}
	return nil
}
