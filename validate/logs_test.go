package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JuanMataNaranjo/CINECA-repo/format"
	"github.com/stretchr/testify/require"
)

const sample = "HSRR062625"

// writeLines writes lines to dir/sub/name.
func writeLines(t *testing.T, dir, sub, name string, lines []string) string {
	t.Helper()
	d := filepath.Join(dir, sub)
	require.NoError(t, os.MkdirAll(d, 0755))
	path := filepath.Join(d, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func touch(t *testing.T, dir, sub, name string) {
	t.Helper()
	writeLines(t, dir, sub, name, []string{""})
}

func bwaLog() []string {
	return []string{
		"[M::bwa_idx_load_from_disk] read 3171 ALT contigs",
		"[M::process] read 200000 sequences (20000000 bp)...",
		"[M::process] 0 single-end sequences; 200000 paired-end sequences",
		"[M::mem_pestat] # candidate unique pairs for (FF, FR, RF, RR): (0, 86000, 2, 0)",
		"[M::mem_pestat] skip orientation FF as there are not enough pairs",
		"[M::mem_pestat] analyzing insert size distribution for orientation FR...",
		"[M::mem_pestat] (25, 50, 75) percentile: (300, 350, 400)",
		"[M::mem_pestat] low and high boundaries for computing mean and std.dev: (100, 600)",
		"[M::mem_pestat] mean and std.dev: (350.00, 70.00)",
		"[M::mem_pestat] low and high boundaries for proper pairs: (1, 700)",
		"[M::mem_pestat] skip orientation RF as there are not enough pairs",
		"[M::mem_pestat] skip orientation RR as there are not enough pairs",
		"[M::mem_process_seqs] Processed 200000 reads in 150.000 CPU sec, 10.000 real sec",
		"[main] Version: 0.7.17-r1188",
		"[main] CMD: bwa mem -t 16 -K 10000000 ref.fa " + sample + "_R1.fastq.gz " + sample + "_R2.fastq.gz",
		"[main] Real time: 12.345 sec; CPU: 160.123 sec",
	}
}

func samblasterLog(paired bool) []string {
	lines := []string{
		"samblaster: Version 0.1.26",
		"samblaster: Opening " + sample + ".sam for read.",
		"samblaster: Outputting to stdout",
		"samblaster: Loading SAM header.",
		"samblaster: Found          0 of     200000 (0.000%) total read ids are marked paired yet are unmated.",
		"samblaster: Please double check that input is sorted by read ids.",
		"samblaster: Pair Type          Type_ID_Count  %Type/All_IDs  Dup_ID_Count  %Dups/Type_ID_Count  %Dups/All_Dups  %Dups/All_IDs",
		"samblaster: -------------------------------------------------------------------------------------------------------------",
	}
	if paired {
		lines = append(lines,
			"samblaster: Both Unmapped          1000     1.000%          0     0.000%     0.000%    0.000%",
			"samblaster: Orphan/Singleton       2000     2.000%        100     5.000%    10.000%    0.100%",
			"samblaster: Both Mapped           97000    97.000%        900     0.928%    90.000%    0.900%",
			"samblaster: Total                100000   100.000%       1000     1.000%   100.000%    1.000%",
		)
	} else {
		lines = append(lines,
			"samblaster: Unmapped Orphan/Singleton      5000     5.000%          0     0.000%     0.000%    0.000%",
			"samblaster: Mapped Orphan/Singleton       95000    95.000%       1000     1.053%   100.000%    1.000%",
			"samblaster: Total                        100000   100.000%       1000     1.000%   100.000%    1.000%",
		)
	}
	return append(lines,
		"samblaster: Marked 1000 of 100000 (1.000%) read ids as duplicates",
		"samblaster: Removed     1000 of     100000 ( 1.000%) read ids as duplicates using 2000k memory in 1.0S CPU seconds and 2S wall time.",
	)
}

func sortLog() []string {
	return []string{
		"[bam_sort_core] merging from 4 files and 1 in-memory blocks...",
	}
}

func fastqcLog(end string, n int) []string {
	fq := sample + "_" + end + ".fastq.gz"
	lines := []string{"Started analysis of " + fq}
	for i := 1; i < n-1; i++ {
		lines = append(lines, fmt.Sprintf("Approx %d%% complete for %s", i*5, fq))
	}
	return append(lines, "Analysis complete for "+fq)
}

func seqtkLog() []string {
	lines := []string{
		"[M::main] Version: 1.3-r106",
		"[M::process] read 200000 sequences",
		"[M::process] 150000 paired-end and 50000 single-end sequences",
	}
	for len(lines) < 16 {
		lines = append(lines, fmt.Sprintf("[M::trimfq] trimmed batch %d", len(lines)))
	}
	return lines
}

// gatkLog builds the console log of a GATK tool.
type gatkLog struct {
	tool string
	// flags is the number of global flags lines.
	flags int
	// stage holds the tool's own lines; the last one is printed after the
	// progress meter.
	stage     []string
	resources []string
	chroms    []string
	warnings  []string
	final     []string
}

const clock = "10:21:50.123 "

func (g *gatkLog) lines() []string {
	out := []string{
		"Using GATK jar /gatk/gatk-package-4.1.4.1-local.jar",
		"Running:",
		"    java -Xmx8g -jar /gatk/gatk-package-4.1.4.1-local.jar " + g.tool + " -I " + sample + "_sort_nodup.bam",
		"[Global flags]",
	}
	for i := 0; i < g.flags; i++ {
		out = append(out, flagLine(i))
	}
	out = append(out, "2021-03-01 10:21:50 global flags done")
	info := func(s string) string { return clock + "INFO  " + g.tool + " - " + s }
	n := len(g.stage)
	for _, s := range g.stage[:n-1] {
		out = append(out, info(s))
	}
	for _, r := range g.resources {
		out = append(out, clock+"INFO  FeatureManager - Using codec VCFCodec to read file file:///ref/"+r)
	}
	out = append(out,
		clock+"INFO  ProgressMeter - Starting traversal",
		clock+"INFO  ProgressMeter -        Current Locus  Elapsed Minutes       Reads Processed     Reads/Minute",
	)
	for i, c := range g.chroms {
		out = append(out, fmt.Sprintf("%sINFO  ProgressMeter -   %s:%d   %.1f   %d   %.1f", clock, c, 1000000*(i+1), 0.1*float64(i+1), 10000*(i+1), 100000.0))
	}
	for _, w := range g.warnings {
		out = append(out, clock+"WARN  "+w)
	}
	out = append(out, clock+"INFO  ProgressMeter - Traversal complete. Processed 230000 total reads in 2.3 minutes.")
	out = append(out, info(g.stage[n-1]))
	return append(out, g.final...)
}

func flagLine(i int) string {
	return fmt.Sprintf("     bool Flag%d                                    = false                               {product} {default}", i)
}

func flagLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = flagLine(i)
	}
	return lines
}

func filler(lines []string, n int) []string {
	for len(lines) < n {
		lines = append(lines, fmt.Sprintf("HTSJDK Defaults.OPTION_%d : false", len(lines)))
	}
	return lines
}

func memoryPools(head ...string) []string {
	return append(head,
		"Heap",
		" PSYoungGen      total 2446848K, used 1234567K",
		"  eden space 2097664K, 58% used",
		"  from space 349184K, 0% used",
		"  to   space 349184K, 0% used",
		" ParOldGen       total 5592576K, used 12345K",
		"  object space 5592576K, 0% used",
		" Metaspace       used 45000K, capacity 46000K",
		"  class space    used 5000K, capacity 5300K",
	)
}

var canonical = format.MustLoad("").Stages[format.BaseRecalibrator].ProgressMeter.Chromosomes

func recalLog() *gatkLog {
	stage := filler(nil, 19)
	stage = append(stage, "Initializing engine", "Done initializing engine", "The covariates being used here: ",
		"	ReadGroupCovariate", "	QualityScoreCovariate", "	ContextCovariate", "	CycleCovariate")
	stage = filler(stage, 27)
	stage = append(stage,
		"0 read(s) filtered by: MappingQualityAvailableReadFilter",
		"0 read(s) filtered by: MappedReadFilter",
		"0 read(s) filtered by: NotSecondaryAlignmentReadFilter",
		"0 read(s) filtered by: NotDuplicateReadFilter",
		"0 read(s) filtered by: PassesVendorQualityCheckReadFilter",
		"0 read(s) filtered by: WellformedReadFilter",
		"Calculating quantized quality scores...",
		"Writing recalibration report...",
		"...done!",
		"BaseRecalibrator was able to recalibrate 230000 reads",
		"Shutting down engine",
	)
	return &gatkLog{
		tool:  "BaseRecalibrator",
		flags: 722,
		stage: stage,
		resources: []string{
			"hg38_resources/dbsnp_reannotated.vcf",
			"hg38_resources/Mills_and_1000G_gold_standard.indels.hg38.vcf",
			"hg38_resources/1000G_omni2.5.hg38.vcf",
			"hg38_resources/wgs_calling_regions.hg38.interval_list",
		},
		chroms: canonical,
		final:  memoryPools("Tool returned:", "SUCCESS"),
	}
}

func applyLog() *gatkLog {
	stage := filler(nil, 19)
	stage = append(stage, "Initializing engine", "Done initializing engine")
	stage = filler(stage, 22)
	stage = append(stage, "0 read(s) filtered by: WellformedReadFilter", "Shutting down engine")
	return &gatkLog{
		tool:      "ApplyBQSR",
		flags:     722,
		stage:     stage,
		resources: []string{"hg38_resources/wgs_calling_regions.hg38.interval_list"},
		chroms:    canonical,
		final:     memoryPools(),
	}
}

func haplotypeLog() *gatkLog {
	stage := filler(nil, 19)
	stage = append(stage, "Initializing engine", "Done initializing engine")
	stage = filler(stage, 25)
	stage = append(stage,
		"0 read(s) filtered by: MappingQualityAvailableReadFilter",
		"0 read(s) filtered by: MappedReadFilter",
		"0 read(s) filtered by: NotSecondaryAlignmentReadFilter",
		"0 read(s) filtered by: NotDuplicateReadFilter",
		"0 read(s) filtered by: PassesVendorQualityCheckReadFilter",
		"0 read(s) filtered by: NonZeroReferenceLengthAlignmentReadFilter",
		"0 read(s) filtered by: GoodCigarReadFilter",
		"0 read(s) filtered by: WellformedReadFilter",
		"Shutting down engine",
	)
	return &gatkLog{
		tool:      "HaplotypeCaller",
		stage:     stage,
		resources: []string{"hg38_resources/wgs_calling_regions.hg38.interval_list"},
		chroms:    canonical,
		warnings: []string{
			"DepthPerSampleHC - Annotation will not be calculated, genotype is not called at chr1:14452961",
			"StrandBiasBySample - Annotation will not be calculated, genotype is not called at chr1:14452980",
			"InbreedingCoeff - Annotation will not be calculated, must provide at least 10 samples",
			"HaplotypeCaller - unusual event at chr2:1000",
		},
	}
}
