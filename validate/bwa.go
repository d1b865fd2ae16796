package validate

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/JuanMataNaranjo/CINECA-repo/format"
	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
	"github.com/JuanMataNaranjo/CINECA-repo/section"
)

// Bwa validates the bwa mem log.
type Bwa struct {
	*base
}

// NewBwa returns a loaded Bwa validator.
func NewBwa(ctx context.Context, opts Opts) (*Bwa, error) {
	b, err := newBase(format.Bwa, opts)
	if err != nil {
		return nil, err
	}
	v := &Bwa{base: b}
	v.checks = []Check{
		{Name: "check_process", Run: v.checkProcess},
		{Name: "check_mem_process_seqs", Run: v.checkMemProcessSeqs},
		{Name: "check_mem_pestat", Run: v.checkMemPestat},
		b.assertions("check_start_statement", "does not have the correct log starting statement"),
		b.assertions("check_correct_sample", "should be processed however another sample has been processed instead"),
		b.tmpFiles(),
		{Name: "check_consistency", Optional: true, Run: v.checkConsistency},
		optional(b.assertions("check_finish_statement", "does not have the final statement we expected", v.finishTimes)),
		b.outputExists(),
	}
	if err := v.Load(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// Load implements Validator.
func (v *Bwa) Load(ctx context.Context) error {
	return v.load(ctx, true)
}

// batches splits the process records into (read, breakdown) pairs.
func (v *Bwa) batches() [][]string {
	process := v.sections.Get(format.SectionProcess)
	var out [][]string
	for i := 0; i < len(process); i += 2 {
		end := i + 2
		if end > len(process) {
			end = len(process)
		}
		out = append(out, process[i:end])
	}
	return out
}

// checkProcess checks that every "read N sequences" record has
// non-negative counts.
func (v *Bwa) checkProcess(context.Context) error {
	for _, batch := range v.batches() {
		for _, n := range integers(batch[0]) {
			if n < 0 {
				return qcerr.E(qcerr.NumericInvariantViolation, "check_num_sequence", "", "did not read a positive number of sequences")
			}
		}
	}
	return nil
}

// checkConsistency checks, for paired samples, that the sequences read
// equal the sum of the single-end and paired-end breakdown that follows.
func (v *Bwa) checkConsistency(context.Context) error {
	const name = "check_consistency"
	if !v.paired {
		return nil
	}
	for _, batch := range v.batches() {
		if len(batch) < 2 {
			return qcerr.E(qcerr.SectionLengthMismatch, name, "", "has a read record without a breakdown")
		}
		read := integers(batch[0])
		if len(read) == 0 {
			return qcerr.E(qcerr.NumericInvariantViolation, name, "", "has no sequence count")
		}
		if sum := sumInts(integers(batch[1])); sum != read[0] {
			return qcerr.Errorf(qcerr.NumericInvariantViolation, name, "",
				"has inconsistency in terms of paired-end and single-end sequences: %d != %d", read[0], sum)
		}
	}
	return nil
}

// checkMemProcessSeqs checks that every processed batch reports positive
// counts and times.
func (v *Bwa) checkMemProcessSeqs(context.Context) error {
	for _, line := range v.sections.Get(format.SectionProcessSeqs) {
		if anyNonPositive(decimals(line)) {
			return qcerr.E(qcerr.NumericInvariantViolation, "check_positive_nums", "", "did not process a positive number of sequences")
		}
	}
	return nil
}

// finishTimes trips when the real or CPU time of the last line is not
// positive.
func (v *Bwa) finishTimes() bool {
	lines := v.main().Lines
	if len(lines) == 0 {
		return true
	}
	return anyNonPositive(decimals(lines[len(lines)-1]))
}

func (v *Bwa) threshold() int {
	if v.opts.PairThreshold > 0 {
		return v.opts.PairThreshold
	}
	return v.desc.Pairs.Threshold
}

// candidateRE matches "(FF, FR, RF, RR): (0, 173316, 0, 0)".
var candidateRE = regexp.MustCompile(`\(([A-Z, ]+)\):\s*\(([-+0-9, ]+)\)`)

// pestatBatches splits the insert size statistics into one batch per
// candidate line. Lines before the first candidate line are dropped.
func pestatBatches(lines section.Section, candidate string) [][]string {
	var out [][]string
	for _, line := range lines {
		if strings.HasPrefix(line, candidate) {
			out = append(out, nil)
		}
		if n := len(out); n > 0 {
			out[n-1] = append(out[n-1], line)
		}
	}
	return out
}

// orientations parses the pair counts of a candidate line.
func orientations(line string) (map[string]int, error) {
	m := candidateRE.FindStringSubmatch(line)
	if m == nil {
		return nil, qcerr.Errorf(qcerr.MarkerMismatch, "check_mem_pestat", "", "has a malformed candidate line %q", line)
	}
	names, values := strings.Split(m[1], ","), strings.Split(m[2], ",")
	if len(names) != len(values) {
		return nil, qcerr.Errorf(qcerr.MarkerMismatch, "check_mem_pestat", "", "has a malformed candidate line %q", line)
	}
	counts := make(map[string]int, len(names))
	for i := range names {
		n, err := strconv.Atoi(strings.TrimSpace(values[i]))
		if err != nil {
			return nil, qcerr.Errorf(qcerr.MarkerMismatch, "check_mem_pestat", "", "has a malformed candidate line %q", line)
		}
		if n < 0 {
			return nil, qcerr.Errorf(qcerr.NumericInvariantViolation, "check_mem_pestat", "", "has %d pairs for %s", n, strings.TrimSpace(names[i]))
		}
		counts[strings.TrimSpace(names[i])] = n
	}
	return counts, nil
}

// checkMemPestat checks, for paired samples, every insert size batch: an
// orientation is skipped only when it has at most threshold pairs, and an
// analyzed orientation has at least threshold pairs followed by the four
// summary steps.
func (v *Bwa) checkMemPestat(context.Context) error {
	if !v.paired {
		return nil
	}
	p := v.desc.Pairs
	if p == nil {
		return qcerr.Errorf(qcerr.Configuration, "check_mem_pestat", "", "has no pair layout in format %s", v.opts.Format.Version)
	}
	threshold := v.threshold()
	for _, batch := range pestatBatches(v.sections.Get(format.SectionPestat), p.Candidate) {
		counts, err := orientations(batch[0])
		if err != nil {
			return err
		}
		if err := notEnoughPairs(batch, counts, p, threshold); err != nil {
			return err
		}
		if err := enoughPairs(batch, counts, p, threshold); err != nil {
			return err
		}
	}
	return nil
}

func notEnoughPairs(batch []string, counts map[string]int, p *format.Pairs, threshold int) error {
	const name = "check_not_enough_pairs"
	for _, line := range batch[1:] {
		if !strings.HasPrefix(line, p.Skip) || !strings.Contains(line, p.SkipReason) {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, p.Skip))
		if len(fields) == 0 {
			continue
		}
		if counts[fields[0]] > threshold {
			return qcerr.Errorf(qcerr.NumericInvariantViolation, name, "",
				"has skipped orientation %s with %d pairs, more than %d", fields[0], counts[fields[0]], threshold)
		}
	}
	return nil
}

func enoughPairs(batch []string, counts map[string]int, p *format.Pairs, threshold int) error {
	const name = "check_enough_pairs"
	for i, line := range batch {
		line = strings.TrimRight(line, " ")
		if !strings.HasSuffix(line, p.Analyze) || len(line) < len(p.Analyze)+2 {
			continue
		}
		end := len(line) - len(p.Analyze)
		o := line[end-2 : end]
		if n := counts[o]; n < threshold {
			return qcerr.Errorf(qcerr.NumericInvariantViolation, name, "",
				"not enough pairs for orientation %s (%d < %d), however it has been analyzed anyway", o, n, threshold)
		}
		tripped := make([]bool, len(p.Steps))
		failed := false
		for j, step := range p.Steps {
			k := i + 1 + j
			tripped[j] = k >= len(batch) || !strings.HasPrefix(batch[k], step)
			failed = failed || tripped[j]
		}
		if failed {
			e := qcerr.Errorf(qcerr.MarkerMismatch, name, "", "not all the steps of BWA have been executed for orientation %s", o)
			e.Conditions = qcerr.Conditions(tripped...)
			return e
		}
	}
	return nil
}
