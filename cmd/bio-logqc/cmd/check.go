package cmd

import (
	"context"
	"io"

	"github.com/JuanMataNaranjo/CINECA-repo/batch"
	"github.com/JuanMataNaranjo/CINECA-repo/validate"
	"github.com/grailbio/base/log"
)

type checkOpts struct {
	format      formatFlags
	stages      *string
	path        *string
	centers     *string
	metadata    *string
	threshold   *int
	parallelism *int
	score       *bool
	scoreOut    *string
	out         *string
}

func check(ctx context.Context, opts checkOpts) error {
	stages, err := parseStages(*opts.stages)
	if err != nil {
		return err
	}
	set, refs, err := opts.format.load(ctx)
	if err != nil {
		return err
	}
	samples, err := batch.Discover(ctx, *opts.path, splitList(*opts.centers))
	if err != nil {
		return err
	}
	log.Printf("checking %d samples, stages %v, format %s", len(samples), stages, set.Version)

	vopts := validate.DefaultOpts
	vopts.Format = set
	vopts.References = refs
	vopts.Template = *opts.format.template
	vopts.PairThreshold = *opts.threshold
	results, err := batch.Run(ctx, samples, stages, batch.Opts{
		Validate:      vopts,
		MetadataTable: *opts.metadata,
		Parallelism:   *opts.parallelism,
		Score:         *opts.score,
		Emit: func(r batch.Result) {
			if r.Err != nil {
				log.Error.Printf("%s %v", r.Sample.ID(), r.Err)
			}
		},
	})
	if err != nil {
		return err
	}
	if err := writeOutput(ctx, *opts.out, func(w io.Writer) error { return batch.WriteReport(w, results) }); err != nil {
		return err
	}
	sum := batch.Summarize(results)
	log.Printf("%d passed, %d failed", sum.Passed, sum.Failed)
	for kind, n := range sum.ByKind {
		log.Printf("  %s: %d", kind, n)
	}
	if !*opts.score {
		return nil
	}
	ranked := batch.Scores(results)
	return writeOutput(ctx, *opts.scoreOut, func(w io.Writer) error { return batch.WriteScores(w, ranked) })
}
