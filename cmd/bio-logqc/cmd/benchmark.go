package cmd

import (
	"context"
	"io"

	"github.com/JuanMataNaranjo/CINECA-repo/batch"
	"github.com/JuanMataNaranjo/CINECA-repo/benchmark"
	"github.com/grailbio/base/log"
)

type benchmarkOpts struct {
	path        *string
	centers     *string
	out         *string
	buckets     *string
	parallelism *int
}

func collectBenchmarks(ctx context.Context, opts benchmarkOpts) error {
	samples, err := batch.Discover(ctx, *opts.path, splitList(*opts.centers))
	if err != nil {
		return err
	}
	rows, err := benchmark.Collect(ctx, samples, *opts.parallelism)
	if err != nil {
		return err
	}
	log.Printf("collected benchmarks of %d samples", len(rows))
	if err := writeOutput(ctx, *opts.out, func(w io.Writer) error { return benchmark.WriteReport(w, rows) }); err != nil {
		return err
	}
	if *opts.buckets == "" {
		return nil
	}
	groups := append(benchmark.Bucket(rows, benchmark.DefaultEdges), benchmark.StageMeans(rows, benchmark.FineBuckets)...)
	return writeOutput(ctx, *opts.buckets, func(w io.Writer) error { return benchmark.WriteBuckets(w, groups) })
}
