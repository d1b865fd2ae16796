package validate

import (
	"context"
	"testing"

	"github.com/JuanMataNaranjo/CINECA-repo/metadata"
	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastQC(t *testing.T) {
	ctx := context.Background()
	for _, test := range []struct {
		r1, r2 int
		paired bool
		check  string
	}{
		{21, 21, true, ""},
		{22, 21, true, ""},
		{21, 0, false, ""},
		{20, 21, true, "check_lines"},
		{21, 23, true, "check_lines"},
		{21, 0, true, "check_lines"},
	} {
		dir, cleanup := testutil.TempDir(t, "", "")
		writeLines(t, dir, "fastqc", sample+"_R1_fastqc.log", fastqcLog("R1", test.r1))
		if test.r2 > 0 {
			writeLines(t, dir, "fastqc", sample+"_R2_fastqc.log", fastqcLog("R2", test.r2))
		}
		v, err := NewFastQC(ctx, Opts{Dir: dir, Sample: sample, Metadata: metadata.Fixed(test.paired)})
		require.NoError(t, err)
		err = v.Check(ctx)
		if test.check == "" {
			assert.NoError(t, err, "%+v", test)
		} else {
			e, _ := qcerr.As(err)
			require.NotNil(t, e, "%+v", test)
			expect.EQ(t, e.Check, test.check)
		}
		cleanup()
	}
}

func TestFastQCStartEnd(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	r2 := fastqcLog("R2", 21)
	r2[len(r2)-1] = "Approx 100% complete for " + sample + "_R2.fastq.gz"
	writeLines(t, dir, "fastqc", sample+"_R1_fastqc.log", fastqcLog("R1", 21))
	writeLines(t, dir, "fastqc", sample+"_R2_fastqc.log", r2)
	v, err := NewFastQC(ctx, Opts{Dir: dir, Sample: sample, Metadata: metadata.Fixed(true)})
	require.NoError(t, err)
	e, _ := qcerr.As(v.Check(ctx))
	require.NotNil(t, e)
	expect.EQ(t, e.Check, "check_start_end")
	expect.EQ(t, e.Kind, qcerr.MarkerMismatch)
	expect.EQ(t, e.Conditions, []string{"t2"})
	assert.Contains(t, e.Cause, "R2")

	err = v.Check(ctx, "check_output_exists")
	expect.EQ(t, qcerr.KindOf(err), qcerr.OutputMissing)
	touch(t, dir, "fastqc", sample+"_R1_fastqc.html")
	touch(t, dir, "fastqc", sample+"_R1_fastqc.zip")
	require.NoError(t, v.Check(ctx, "check_output_exists"))
}

func TestSeqtk(t *testing.T) {
	ctx := context.Background()
	for _, test := range []struct {
		line  int
		text  string
		check string
		kind  qcerr.Kind
	}{
		{1, "[M::process] read -200000 sequences", "check_num_sequence", qcerr.NumericInvariantViolation},
		{2, "[M::process] 150000 paired-end and 49999 single-end sequences", "check_consistency", qcerr.NumericInvariantViolation},
		{16, "[M::trimfq] one line too many", "check_lines", qcerr.SectionLengthMismatch},
	} {
		dir, cleanup := testutil.TempDir(t, "", "")
		lines := seqtkLog()
		if test.line < len(lines) {
			lines[test.line] = test.text
		} else {
			lines = append(lines, test.text)
		}
		writeLines(t, dir, "seqtk", sample+".log", lines)
		v, err := NewSeqtk(ctx, Opts{Dir: dir, Sample: sample})
		require.NoError(t, err)
		e, _ := qcerr.As(v.Check(ctx))
		require.NotNil(t, e, test.check)
		expect.EQ(t, e.Check, test.check)
		expect.EQ(t, e.Kind, test.kind)
		expect.EQ(t, e.Stage, "seqtk")
		cleanup()
	}
}
