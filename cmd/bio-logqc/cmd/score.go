package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/JuanMataNaranjo/CINECA-repo/format"
	"github.com/JuanMataNaranjo/CINECA-repo/validate"
)

type scoreOpts struct {
	format formatFlags
	stage  *string
	dir    *string
	sample *string
	check  *bool
}

func printScore(ctx context.Context, w io.Writer, opts scoreOpts) error {
	stage, err := format.ParseStage(*opts.stage)
	if err != nil {
		return err
	}
	set, refs, err := opts.format.load(ctx)
	if err != nil {
		return err
	}
	vopts := validate.DefaultOpts
	vopts.Dir, vopts.Sample = *opts.dir, *opts.sample
	vopts.Format, vopts.References = set, refs
	vopts.Template = *opts.format.template
	v, err := validate.NewGATK(ctx, stage, vopts)
	if err != nil {
		return err
	}
	if *opts.check {
		if err := v.Check(ctx); err != nil {
			return err
		}
	}
	s, err := v.Score()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "score\t%.4f\n", s)
	stats := v.WarningStats()
	types := make([]string, 0, len(stats.ByType))
	for t := range stats.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "warning\t%s\t%d\n", t, stats.ByType[t])
	}
	return nil
}
