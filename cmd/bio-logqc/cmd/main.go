// Package cmd implements the bio-logqc subcommands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/JuanMataNaranjo/CINECA-repo/format"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

// defaultStages are checked when -checks is not given. The inputs stage
// reads whole FASTQ files and must be asked for.
const defaultStages = "fastqc,seqtk,bwa,samsort,baserecalibrator,applybqsr,haplotype"

// formatFlags selects the log format descriptors and the GATK inputs shared
// by the check and score commands.
type formatFlags struct {
	version    *string
	file       *string
	template   *string
	references *string
}

func newFormatFlags(cmd *cmdline.Command) formatFlags {
	return formatFlags{
		version: cmd.Flags.String("format", "", fmt.Sprintf(
			"Log format version, one of %s. By default the newest supported GATK layout.",
			strings.Join(format.Versions(), ", "))),
		file:       cmd.Flags.String("format-file", "", "YAML file with the stage descriptors. Overrides -format."),
		template:   cmd.Flags.String("template", "", "Reference global flags file the GATK [Global flags] sections are compared against"),
		references: cmd.Flags.String("references", "", "YAML file with the per-chromosome reference distributions. By default the built-in ones."),
	}
}

func (f formatFlags) load(ctx context.Context) (*format.Set, format.References, error) {
	var (
		set  *format.Set
		refs format.References
		err  error
	)
	if *f.file != "" {
		set, err = format.LoadFile(ctx, *f.file)
	} else {
		set, err = format.Load(*f.version)
	}
	if err != nil {
		return nil, nil, err
	}
	if *f.references != "" {
		if refs, err = format.LoadReferencesFile(ctx, *f.references); err != nil {
			return nil, nil, err
		}
	}
	return set, refs, nil
}

func parseStages(s string) ([]format.Stage, error) {
	var stages []format.Stage
	for _, name := range splitList(s) {
		stage, err := format.ParseStage(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("no stages in %q", s)
	}
	return stages, nil
}

func splitList(s string) []string {
	var list []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return list
}

// writeOutput calls fn with a writer to path, or to stdout if path is empty
// or "-".
func writeOutput(ctx context.Context, path string, fn func(io.Writer) error) (err error) {
	if path == "" || path == "-" {
		return fn(os.Stdout)
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	return fn(out.Writer(ctx))
}

func newCmdCheck() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "check",
		Short: "Validate the stage logs of every sample under a pipeline output tree",
		Long: `
Check walks path/center/study/sample, runs the structural checks of each
selected stage on every sample and writes one line per sample and stage.
A failing sample never stops the run; the exit status is non-zero only if
the run cannot be set up.`,
	}
	opts := checkOpts{
		format:      newFormatFlags(cmd),
		stages:      cmd.Flags.String("checks", defaultStages, "Comma-separated list of stages to validate"),
		path:        cmd.Flags.String("path", "", "Root of the pipeline output tree"),
		centers:     cmd.Flags.String("centers", "", "Comma-separated list of centers. By default every directory under -path."),
		metadata:    cmd.Flags.String("metadata", "", "CSV table with a Sample column, one row per input FASTQ file. By default the FASTQ files of each sample directory are counted."),
		threshold:   cmd.Flags.Int("threshold", 10, "Minimum number of pairs for bwa to analyze a pair orientation"),
		parallelism: cmd.Flags.Int("parallelism", 0, "Number of samples validated concurrently. By default the number of CPUs."),
		score:       cmd.Flags.Bool("score", false, "Rank the samples by the anomaly score of the GATK stages"),
		scoreOut:    cmd.Flags.String("score-out", "", "Path of the score ranking. By default stdout."),
		out:         cmd.Flags.String("out", "", "Path of the report. By default stdout."),
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return env.UsageErrorf("check takes no arguments, but got %v", argv)
		}
		if *opts.path == "" {
			return env.UsageErrorf("-path is required")
		}
		return check(vcontext.Background(), opts)
	})
	return cmd
}

func newCmdBenchmark() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "benchmark",
		Short: "Collect the per-stage run times of every sample under a pipeline output tree",
	}
	opts := benchmarkOpts{
		path:        cmd.Flags.String("path", "", "Root of the pipeline output tree"),
		centers:     cmd.Flags.String("centers", "", "Comma-separated list of centers. By default every directory under -path."),
		out:         cmd.Flags.String("out", "", "Path of the per-sample report. By default stdout."),
		buckets:     cmd.Flags.String("buckets", "", "Path of the report of mean times per input size. Not written if empty."),
		parallelism: cmd.Flags.Int("parallelism", 0, "Number of samples read concurrently. By default the number of CPUs."),
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return env.UsageErrorf("benchmark takes no arguments, but got %v", argv)
		}
		if *opts.path == "" {
			return env.UsageErrorf("-path is required")
		}
		return collectBenchmarks(vcontext.Background(), opts)
	})
	return cmd
}

func newCmdScore() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "score",
		Short: "Print the anomaly score of one GATK stage log",
	}
	opts := scoreOpts{
		format: newFormatFlags(cmd),
		stage:  cmd.Flags.String("stage", "haplotype", "GATK stage: baserecalibrator, applybqsr or haplotype"),
		dir:    cmd.Flags.String("dir", "", "Sample directory"),
		sample: cmd.Flags.String("sample", "", "Sample name the logs are called after"),
		check:  cmd.Flags.Bool("check", true, "Validate the log before scoring it"),
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return env.UsageErrorf("score takes no arguments, but got %v", argv)
		}
		if *opts.dir == "" || *opts.sample == "" {
			return env.UsageErrorf("-dir and -sample are required")
		}
		return printScore(vcontext.Background(), env.Stdout, opts)
	})
	return cmd
}

// Run runs bio-logqc with the process arguments and returns the exit code.
func Run() int {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	env := cmdline.EnvFromOS()
	err := cmdline.ParseAndRun(
		&cmdline.Command{
			Name:     "bio-logqc",
			Short:    "Quality control of genomics pipeline logs",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdCheck(),
				newCmdBenchmark(),
				newCmdScore(),
			},
		}, env, os.Args[1:])
	return cmdline.ExitCode(err, env.Stderr)
}
