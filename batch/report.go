package batch

import (
	"io"
	"strconv"

	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
	"github.com/JuanMataNaranjo/CINECA-repo/score"
	"github.com/grailbio/base/tsv"
)

// Summary counts results by outcome.
type Summary struct {
	Passed int
	Failed int
	// ByKind counts the failures by kind.
	ByKind map[qcerr.Kind]int
}

// Summarize counts results.
func Summarize(results []Result) Summary {
	s := Summary{ByKind: map[qcerr.Kind]int{}}
	for _, r := range results {
		if r.Err == nil {
			s.Passed++
			continue
		}
		s.Failed++
		s.ByKind[qcerr.KindOf(r.Err)]++
	}
	return s
}

// WriteReport writes one row per result: the sample id, the stage, "ok" or
// the failure kind, the failing check and the message.
func WriteReport(w io.Writer, results []Result) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("id\tstage\tstatus\tcheck\tmessage")
	if err := tw.EndLine(); err != nil {
		return err
	}
	for _, r := range results {
		tw.WriteString(r.Sample.ID())
		tw.WriteString(string(r.Stage))
		if r.Err == nil {
			tw.WriteString("ok")
			tw.WriteString("")
			tw.WriteString("")
		} else {
			check := ""
			if e, ok := qcerr.As(r.Err); ok {
				check = e.Check
			}
			tw.WriteString(qcerr.KindOf(r.Err).String())
			tw.WriteString(check)
			tw.WriteString(r.Err.Error())
		}
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Scores returns the scored results ranked most reference-like first.
func Scores(results []Result) []score.Sample {
	var samples []score.Sample
	for _, r := range results {
		if r.Scored {
			samples = append(samples, score.Sample{Name: r.Sample.ID(), Stage: string(r.Stage), Score: r.Score})
		}
	}
	score.Rank(samples)
	return samples
}

// WriteScores writes the ranked scores.
func WriteScores(w io.Writer, samples []score.Sample) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("rank\tid\tstage\tscore")
	if err := tw.EndLine(); err != nil {
		return err
	}
	for i, s := range samples {
		tw.WriteString(strconv.Itoa(i + 1))
		tw.WriteString(s.Name)
		tw.WriteString(s.Stage)
		tw.WriteString(strconv.FormatFloat(s.Score, 'f', 4, 64))
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}
