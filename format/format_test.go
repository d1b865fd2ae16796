package format

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JuanMataNaranjo/CINECA-repo/section"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	expect.EQ(t, Versions(), []string{"gatk-4.1", "gatk-4.1-cicompiler"})

	set, err := Load("")
	require.NoError(t, err)
	expect.EQ(t, set.Version, DefaultVersion)
	for _, stage := range Stages {
		_, err := set.Stage(stage)
		assert.NoError(t, err, "stage %s", stage)
	}

	bsr, err := set.Stage(BaseRecalibrator)
	require.NoError(t, err)
	expect.EQ(t, bsr.GlobalFlags.Length, 722)
	expect.EQ(t, bsr.GlobalFlags.Exempt, []int{55, 257, 304, 316, 349, 360})
	expect.EQ(t, len(bsr.ProgressMeter.Chromosomes), 23)
	expect.EQ(t, bsr.ProgressMeter.Chromosomes[22], "chrX")
	expect.EQ(t, bsr.Features.Want(), 4)
	expect.EQ(t, bsr.Final.Markers, []string{"PSYoungGen", "ParOldGen", "Metaspace"})
	expect.EQ(t, len(bsr.Checks["check_baserecalibrator_filters"]), 6)

	hc, err := set.Stage(Haplotype)
	require.NoError(t, err)
	expect.EQ(t, len(hc.Checks["check_haplotype_filters"]), 8)
	expect.EQ(t, hc.Features.Want(), 1)
	expect.EQ(t, hc.ProgressMeter.Chromosomes, bsr.ProgressMeter.Chromosomes)
	expect.True(t, hc.GlobalFlags == nil)

	old, err := Load("gatk-4.1")
	require.NoError(t, err)
	apply, err := old.Stage(ApplyBQSR)
	require.NoError(t, err)
	expect.EQ(t, apply.GlobalFlags.Exempt, []int{257, 304, 316, 349, 360})

	_, err = Load("gatk-3.8")
	assert.Error(t, err)
}

func TestSectionsCompile(t *testing.T) {
	set := MustLoad(DefaultVersion)
	for stage, d := range set.Stages {
		c, err := section.Compile(d.Sections)
		require.NoError(t, err, "stage %s", stage)
		if d.GlobalFlags != nil {
			expect.EQ(t, c.Names()[0], SectionGlobalFlags)
		}
	}
}

func TestLineCount(t *testing.T) {
	set := MustLoad("")
	d, err := set.Stage(SamSort)
	require.NoError(t, err)
	expect.True(t, d.Lines.Accepts(true, 14))
	expect.False(t, d.Lines.Accepts(true, 13))
	expect.True(t, d.Lines.Accepts(false, 13))
	expect.EQ(t, d.Table.Labels.For(false), []string{"Unmapped Orphan/Singleton", "Mapped Orphan/Singleton", "Total"})
	off, err := d.Offset("unmated")
	require.NoError(t, err)
	expect.EQ(t, off, 4)
	_, err = d.Offset("nope")
	assert.Error(t, err)
	l, ok := d.Log("sort")
	expect.True(t, ok)
	expect.EQ(t, l.File("S1"), "S1_sort_nodup.sam.log")
}

func TestAssertion(t *testing.T) {
	lines := []string{
		"samblaster: Version 0.1.26",
		"samblaster: Opening S1/bwa/S1.sam for read.",
		"samblaster: Pair Type    Type_ID_Count  %Type/All_IDs",
		"10:22:01.123 INFO  BaseRecalibrator - BaseRecalibrator was able to recalibrate 371510 reads",
		"[bam_sort_core] merging from 12 files and 4 in-memory blocks...",
		"10:21:40.001 INFO  BaseRecalibrator - MappedReadFilter ",
	}
	for i, test := range []struct {
		a    Assertion
		want bool
	}{
		{Assertion{Offset: 0, Match: Equal, Text: "samblaster: Version 0.1.26"}, true},
		{Assertion{Offset: 0, Match: Equal, Text: "samblaster: Version 0.1.27"}, false},
		{Assertion{Offset: 1, Match: Contains, Text: "{sample}"}, true},
		{Assertion{Offset: 1, Match: Contains, Text: "S2"}, false},
		{Assertion{Offset: 2, Match: Compact, Text: "samblaster:PairTypeType_ID_Count%Type/All_IDs"}, true},
		{Assertion{Offset: 3, Match: Masked, From: 38, Text: "BaseRecalibrator was able to recalibrate  reads"}, true},
		{Assertion{Offset: 3, Match: Masked, From: 300, Text: ""}, false},
		{Assertion{Offset: 4, Match: Masked, Mask: ` \d+`, Text: "[bam_sort_core] merging from files and in-memory blocks..."}, true},
		{Assertion{Offset: -1, Match: Suffix, Text: "MappedReadFilter"}, true},
		{Assertion{Offset: -1, Match: Prefix, Text: "10:21"}, true},
		{Assertion{Offset: 6, Match: Prefix, Text: ""}, false},
		{Assertion{Offset: -7, Match: Prefix, Text: ""}, false},
	} {
		assert.Equal(t, test.want, test.a.Holds(lines, "S1"), "case %d: %+v", i, test.a)
	}
}

func TestParseErrors(t *testing.T) {
	for _, doc := range []string{
		"stages:\n  bwa:\n    dir: bwa\n",
		"stages:\n  nosuch:\n    logs: [{name: main, pattern: x}]\n",
		"stages:\n  bwa:\n    logs: [{name: main, pattern: x}]\n    checks:\n      c: [{offset: 0, match: fuzzy, text: x}]\n",
		"stages:\n  bwa:\n    logs: [{name: main, pattern: x}]\n    unknown_field: 1\n",
		"stages:\n  bwa:\n    logs: [{name: main, pattern: x}]\n    sections: [{name: a, open: [{prefix: x, equal: y}]}]\n",
	} {
		_, err := Parse(strings.NewReader(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadFile(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	path := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
stages:
  seqtk:
    dir: trim
    logs:
      - name: main
        pattern: "{sample}.trim.log"
    lines: {paired: [17], single: [17]}
    offsets: {reads: 1, breakdown: 2}
`), 0644))
	set, err := LoadFile(ctx, path)
	require.NoError(t, err)
	expect.EQ(t, set.Version, "site.yaml")
	d, err := set.Stage(Seqtk)
	require.NoError(t, err)
	expect.EQ(t, d.Dir, "trim")
	expect.EQ(t, d.Logs[0].File("S1"), "S1.trim.log")
	_, err = set.Stage(Bwa)
	assert.Error(t, err)

	_, err = LoadFile(ctx, filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestReferences(t *testing.T) {
	refs, err := LoadReferences()
	require.NoError(t, err)
	for _, stage := range []Stage{BaseRecalibrator, ApplyBQSR, Haplotype} {
		ref, err := refs.Stage(stage)
		require.NoError(t, err)
		expect.EQ(t, len(ref.Count), 24)
		expect.EQ(t, len(ref.Time), 24)
		expect.EQ(t, len(ref.Reads), 24)
	}
	base, _ := refs.Stage(BaseRecalibrator)
	expect.EQ(t, base.Count["2"], 1.0)
	expect.EQ(t, base.Time["X"], 1.0)
	_, err = refs.Stage(Bwa)
	assert.Error(t, err)

	_, err = ParseReferences(strings.NewReader("haplotype:\n  count: {\"1\": 1}\n"))
	assert.Error(t, err)
}
