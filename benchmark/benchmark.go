// Package benchmark collects the wall-clock benchmark files the pipeline
// writes next to each stage log and aggregates them per sample and per
// input size.
//
// A benchmark file is tab separated with a header row; the "s" column holds
// the elapsed seconds. Files that do not exist count as zero minutes.
package benchmark

import (
	"context"
	"io"
	"math"
	"runtime"
	"sort"
	"strings"

	"github.com/JuanMataNaranjo/CINECA-repo/batch"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/tsv"
	"v.io/x/lib/vlog"
)

// Row is the benchmark summary of one sample. Stage times are in minutes.
type Row struct {
	ID         string
	FastQC     float64
	Bwa        float64
	Samblaster float64
	SamSort    float64
	Base       float64
	Apply      float64
	Haplo      float64
	// SizeGB is the total size of the input FASTQ files.
	SizeGB float64
	// Total is the sum of the stage times.
	Total float64
}

// Stages names the stage columns of Row, in order.
var Stages = []string{"fastqc", "bwa", "samblaster", "samsort", "base", "apply", "haplo"}

// times returns the stage columns of r in the order of Stages.
func (r Row) times() []float64 {
	return []float64{r.FastQC, r.Bwa, r.Samblaster, r.SamSort, r.Base, r.Apply, r.Haplo}
}

type timing struct {
	S float64 `tsv:"s"`
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Minutes returns the elapsed minutes recorded in the benchmark file at
// path, rounded to two decimals. The s column is summed over every row, so
// a rule benchmarked with repeats reports its total time. A file that
// cannot be stat'ed yields zero.
func Minutes(ctx context.Context, path string) (m float64, err error) {
	if _, err := file.Stat(ctx, path); err != nil {
		vlog.VI(2).Infof("benchmark %s: %v", path, err)
		return 0, nil
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return 0, errors.E(err, "open benchmark", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := tsv.NewReader(in.Reader(ctx))
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	var seconds float64
	for {
		var t timing
		if err = r.Read(&t); err != nil {
			if err == io.EOF {
				break
			}
			return 0, errors.E(err, "read benchmark", path)
		}
		seconds += t.S
	}
	return round2(seconds / 60), nil
}

// hasDir reports whether dir has a subdirectory called name.
func hasDir(ctx context.Context, dir, name string) (bool, error) {
	lister := file.List(ctx, dir, false)
	for lister.Scan() {
		if lister.IsDir() && file.Base(lister.Path()) == name {
			return true, nil
		}
	}
	if err := lister.Err(); err != nil {
		return false, errors.E(err, "list", dir)
	}
	return false, nil
}

// dirMinutes sums the benchmark files of the stage directory sub of dir. A
// missing directory yields zero.
func dirMinutes(ctx context.Context, dir, sub string) (float64, error) {
	if ok, err := hasDir(ctx, dir, sub); err != nil || !ok {
		return 0, err
	}
	dir = file.Join(dir, sub)
	var paths []string
	lister := file.List(ctx, dir, false)
	for lister.Scan() {
		if !lister.IsDir() && strings.HasSuffix(lister.Path(), ".benchmark") {
			paths = append(paths, lister.Path())
		}
	}
	if err := lister.Err(); err != nil {
		return 0, errors.E(err, "list benchmarks", dir)
	}
	sort.Strings(paths)
	var total float64
	for _, path := range paths {
		m, err := Minutes(ctx, path)
		if err != nil {
			return 0, err
		}
		total += m
	}
	return total, nil
}

// sizeGB returns the size of path in gigabytes, rounded to two decimals,
// or zero if it cannot be stat'ed.
func sizeGB(ctx context.Context, path string) float64 {
	info, err := file.Stat(ctx, path)
	if err != nil {
		vlog.VI(2).Infof("input %s: %v", path, err)
		return 0
	}
	return round2(float64(info.Size()) * 1e-9)
}

// Read returns the benchmark row of sample s.
func Read(ctx context.Context, s batch.Sample) (Row, error) {
	row := Row{ID: s.ID()}
	fastqc, err := dirMinutes(ctx, s.Dir, "fastqc")
	if err != nil {
		return row, err
	}
	row.FastQC = fastqc
	for _, f := range []struct {
		dst  *float64
		path string
	}{
		{&row.Bwa, file.Join(s.Dir, "bwa", s.Name+".benchmark")},
		{&row.Samblaster, file.Join(s.Dir, "bwa", s.Name+"_samblaster.benchmark")},
		{&row.SamSort, file.Join(s.Dir, "bwa", s.Name+"_sort_nodup.sam.benchmark")},
		{&row.Base, file.Join(s.Dir, "gatk_bsr", s.Name+"_sort_nodup.recaldat.benchmark")},
		{&row.Apply, file.Join(s.Dir, "gatk_bsr", s.Name+"_sort_nodup.bqsr.benchmark")},
		{&row.Haplo, file.Join(s.Dir, "gatk_gvcf", "tmp_"+s.Name+"_sort_nodup.g.vcf.benchmark")},
	} {
		if *f.dst, err = Minutes(ctx, f.path); err != nil {
			return row, err
		}
	}
	for _, end := range []string{"R1", "R2"} {
		row.SizeGB += sizeGB(ctx, file.Join(s.Dir, s.Name+"_"+end+".fastq.gz"))
	}
	row.SizeGB = round2(row.SizeGB)
	for _, m := range row.times() {
		row.Total += m
	}
	row.Total = round2(row.Total)
	return row, nil
}

// Collect reads the benchmark rows of samples, parallelism at a time. The
// rows are in the order of samples.
func Collect(ctx context.Context, samples []batch.Sample, parallelism int) ([]Row, error) {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(samples) {
		parallelism = len(samples)
	}
	rows := make([]Row, len(samples))
	if len(samples) == 0 {
		return rows, nil
	}
	var once errors.Once
	err := traverse.Each(parallelism, func(job int) error {
		for i := job; i < len(samples); i += parallelism {
			var err error
			if rows[i], err = Read(ctx, samples[i]); err != nil {
				once.Set(err)
				return nil
			}
		}
		return nil
	})
	once.Set(err)
	return rows, once.Err()
}
