package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const table = `Sample,Center,File
HSRR062625,BSC,HSRR062625_R1.fastq.gz
HSRR062625,BSC,HSRR062625_R2.fastq.gz
HSRR062650,BSC,HSRR062650_R1.fastq.gz
HSRR000001,CRG,a.fastq.gz
HSRR000001,CRG,b.fastq.gz
HSRR000001,CRG,c.fastq.gz
`

func TestTable(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	path := filepath.Join(dir, "fastq.csv")
	require.NoError(t, os.WriteFile(path, []byte(table), 0644))

	src := New(path, "")
	for _, test := range []struct {
		sample string
		paired bool
	}{
		{"HSRR062625", true},
		{"HSRR062650", false},
		// Cached answers are stable.
		{"HSRR062625", true},
		{"HSRR062650", false},
	} {
		paired, err := src.Paired(ctx, test.sample)
		require.NoError(t, err)
		expect.EQ(t, paired, test.paired)
	}

	for _, sample := range []string{"HSRR000001", "missing"} {
		_, err := src.Paired(ctx, sample)
		assert.True(t, qcerr.Is(err, qcerr.Configuration), "%s: %v", sample, err)
	}

	// The answer does not change when the table is rewritten.
	require.NoError(t, os.WriteFile(path, []byte("Sample\nHSRR062625\n"), 0644))
	paired, err := src.Paired(ctx, "HSRR062625")
	require.NoError(t, err)
	expect.True(t, paired)
}

func TestDirFallback(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	paired := filepath.Join(dir, "paired")
	single := filepath.Join(dir, "single")
	empty := filepath.Join(dir, "empty")
	for _, d := range []string{paired, single, empty, filepath.Join(single, "old.gz")} {
		require.NoError(t, os.MkdirAll(d, 0755))
	}
	for _, f := range []string{
		filepath.Join(paired, "S1_R1.fastq.gz"),
		filepath.Join(paired, "S1_R2.fastq.gz"),
		filepath.Join(paired, "notes.txt"),
		filepath.Join(single, "S2_R1.fastq.gz"),
	} {
		require.NoError(t, os.WriteFile(f, nil, 0644))
	}

	// A missing table falls back to the directory.
	got, err := New(filepath.Join(dir, "fastq.csv"), paired).Paired(ctx, "S1")
	require.NoError(t, err)
	expect.True(t, got)

	// A table path naming a directory is listed.
	got, err = New(single, "").Paired(ctx, "S2")
	require.NoError(t, err)
	expect.False(t, got)

	// A directory without inputs is listed, but matches no entries.
	_, err = New("", empty).Paired(ctx, "S3")
	assert.True(t, qcerr.Is(err, qcerr.Configuration), "%v", err)

	_, err = New(filepath.Join(dir, "fastq.csv"), filepath.Join(dir, "nowhere")).Paired(ctx, "S3")
	assert.True(t, qcerr.Is(err, qcerr.MetadataUnavailable), "%v", err)

	_, err = New("", "").Paired(ctx, "S3")
	assert.True(t, qcerr.Is(err, qcerr.MetadataUnavailable), "%v", err)
}

func TestCountInputs(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "S1_R1.fastq.gz"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "S1_R2.fastq.gz"), nil, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "backup.gz"), 0755))

	n, err := CountInputs(ctx, dir)
	require.NoError(t, err)
	expect.EQ(t, n, 2)
	n, err = CountInputs(ctx, dir+"/")
	require.NoError(t, err)
	expect.EQ(t, n, 2)

	_, err = CountInputs(ctx, filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestFixed(t *testing.T) {
	paired, err := Fixed(true).Paired(context.Background(), "any")
	require.NoError(t, err)
	expect.True(t, paired)
}
