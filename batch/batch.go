// Package batch walks a pipeline output tree laid out as
// root/center/study/sample and validates the stage logs of every sample.
// A failing sample never stops the batch: every (sample, stage) pair gets
// a Result, and results come out in input order.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/JuanMataNaranjo/CINECA-repo/format"
	"github.com/JuanMataNaranjo/CINECA-repo/metadata"
	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
	"github.com/JuanMataNaranjo/CINECA-repo/validate"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/syncqueue"
	"github.com/grailbio/base/traverse"
	"v.io/x/lib/vlog"
)

// readSuffixes are the FASTQ name endings stripped to get the sample name.
var readSuffixes = []string{"_R1.fastq.gz", "_R2.fastq.gz"}

// Sample is one sample directory of the output tree.
type Sample struct {
	Center string
	Study  string
	// Dir is the sample directory.
	Dir string
	// Name is the name the stage logs are called after. It comes from the
	// FASTQ files and may differ from the directory name.
	Name string
}

// ID returns "center||study||sample", the sample directory identity used
// in reports.
func (s Sample) ID() string {
	return s.Center + "||" + s.Study + "||" + file.Base(s.Dir)
}

// subdirs returns the sorted paths of the directories directly under dir.
func subdirs(ctx context.Context, dir string) ([]string, error) {
	var dirs []string
	lister := file.List(ctx, dir, false)
	for lister.Scan() {
		if lister.IsDir() {
			dirs = append(dirs, lister.Path())
		}
	}
	if err := lister.Err(); err != nil {
		return nil, errors.E(err, "list", dir)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// SampleName returns the sample name of a sample directory: the name of
// its first FASTQ file, in lexical order, without the read suffix. ok is
// false when the directory holds no FASTQ file.
func SampleName(ctx context.Context, dir string) (name string, ok bool, err error) {
	var gz []string
	lister := file.List(ctx, dir, false)
	for lister.Scan() {
		if !lister.IsDir() && strings.HasSuffix(lister.Path(), ".gz") {
			gz = append(gz, file.Base(lister.Path()))
		}
	}
	if err := lister.Err(); err != nil {
		return "", false, errors.E(err, "list", dir)
	}
	sort.Strings(gz)
	for _, base := range gz {
		for _, suffix := range readSuffixes {
			if strings.HasSuffix(base, suffix) {
				return strings.TrimSuffix(base, suffix), true, nil
			}
		}
	}
	return "", false, nil
}

// Discover lists the samples of the tree at root. An empty centers list
// selects every center directory. Sample directories without FASTQ files
// are logged and skipped.
func Discover(ctx context.Context, root string, centers []string) ([]Sample, error) {
	var dirs []string
	if len(centers) == 0 {
		var err error
		if dirs, err = subdirs(ctx, root); err != nil {
			return nil, err
		}
	} else {
		for _, c := range centers {
			dirs = append(dirs, file.Join(root, c))
		}
	}
	var samples []Sample
	for _, centerDir := range dirs {
		studies, err := subdirs(ctx, centerDir)
		if err != nil {
			return nil, err
		}
		for _, studyDir := range studies {
			sampleDirs, err := subdirs(ctx, studyDir)
			if err != nil {
				return nil, err
			}
			for _, dir := range sampleDirs {
				s := Sample{Center: file.Base(centerDir), Study: file.Base(studyDir), Dir: dir}
				name, ok, err := SampleName(ctx, dir)
				if err != nil {
					return nil, err
				}
				if !ok {
					log.Printf("%s: cannot find .gz files for this sample", s.ID())
					continue
				}
				s.Name = name
				samples = append(samples, s)
			}
		}
	}
	return samples, nil
}

// Opts configures Run.
type Opts struct {
	// Validate is the template of the per-sample validator options. Dir and
	// Sample are set for each sample. When Metadata is nil each sample
	// resolves its pairing mode from MetadataTable, falling back to the
	// FASTQ files of its directory.
	Validate      validate.Opts
	MetadataTable string
	// Checks restricts the checks run per stage; stages not listed run
	// their default battery.
	Checks map[format.Stage][]string
	// Parallelism is the number of samples validated concurrently. Zero
	// means runtime.NumCPU().
	Parallelism int
	// Score computes the anomaly score of the GATK stages that pass.
	Score bool
	// Emit, if set, is called with each result in input order as soon as
	// it is available.
	Emit func(Result)
}

// Result is the outcome of one stage of one sample.
type Result struct {
	Sample Sample
	Stage  format.Stage
	// Err is nil when every check passed.
	Err    error
	Scored bool
	Score  float64
}

// Run validates stages for every sample. Errors of a sample are recorded in
// its results; Run itself fails only if the result queue does.
func Run(ctx context.Context, samples []Sample, stages []format.Stage, opts Opts) ([]Result, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(samples) {
		parallelism = len(samples)
	}
	var (
		results []Result
		once    errors.Once
		done    = make(chan struct{})
		q       = syncqueue.NewOrderedQueue(2 * parallelism)
	)
	go func() {
		defer close(done)
		for {
			v, ok, err := q.Next()
			if err != nil {
				once.Set(err)
				return
			}
			if !ok {
				return
			}
			for _, r := range v.([]Result) {
				if opts.Emit != nil {
					opts.Emit(r)
				}
				results = append(results, r)
			}
		}
	}()
	err := traverse.Each(parallelism, func(job int) error {
		for i := job; i < len(samples); i += parallelism {
			if err := q.Insert(i, runSample(ctx, samples[i], stages, opts)); err != nil {
				return err
			}
		}
		return nil
	})
	once.Set(q.Close(err))
	<-done
	return results, once.Err()
}

func runSample(ctx context.Context, s Sample, stages []format.Stage, opts Opts) []Result {
	vopts := opts.Validate
	vopts.Dir, vopts.Sample = s.Dir, s.Name
	if vopts.Metadata == nil {
		vopts.Metadata = metadata.New(opts.MetadataTable, s.Dir)
	}
	results := make([]Result, len(stages))
	for i, stage := range stages {
		results[i] = runStage(ctx, s, stage, vopts, opts)
	}
	return results
}

func runStage(ctx context.Context, s Sample, stage format.Stage, vopts validate.Opts, opts Opts) (r Result) {
	r = Result{Sample: s, Stage: stage}
	defer func() {
		if p := recover(); p != nil {
			r.Err = &qcerr.Error{Kind: qcerr.Other, Stage: string(stage), Check: "panic", Sample: s.Name, Err: fmt.Errorf("%v", p)}
		}
	}()
	v, err := validate.New(ctx, stage, vopts)
	if err == nil {
		err = v.Check(ctx, opts.Checks[stage]...)
	}
	if err != nil {
		r.Err = err
		vlog.VI(1).Infof("%s %s: %v", s.ID(), stage, err)
		return
	}
	vlog.VI(1).Infof("%s %s: ok", s.ID(), stage)
	if g, ok := v.(*validate.GATK); ok && opts.Score {
		if r.Score, err = g.Score(); err != nil {
			log.Error.Printf("%s %s: score: %v", s.ID(), stage, err)
		} else {
			r.Scored = true
		}
	}
	return
}
