package fastq

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fq = `@NB500956:89:HW2FHBGX2:1:11101:25648:1069 1:N:0:ATCACG
ATACAGGCCTGANCCACTGTGCCCAGNCTANNTNATTANTGAANANAGAATNGTTNTAAATANANNNNNTNTNNNC
+
AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEE#EEEE#E#EEEEE#EEE#EEEAEE#A#####E#E###E
@NB500956:89:HW2FHBGX2:1:11101:13871:1070 1:N:0:ATCACG
CTCAACTCTGAGNCAGACAGAAATACNTTTNNTNTGAGTTACANCNTTCTTTTTCNACATATNCNNNNNTNGNNNT
+
AAAAAEEEEEEE#EEEEEEEEEEEEE#EEE##E#EEEEEEEEE#E#EEEEEEEEE#EAEEEE#A#####E#A###E
@NB500956:89:HW2FHBGX2:1:11101:9975:1070 1:N:0:ATCACG
GAGTAACCACGTNCCCATGGCCACAGNTGANNGNGTCACACCTNANCCGGGAGAGNCAATCCNGNNNNNGNANNNC
+
AAAAAEEEEEEE#EEEEEEEEEAEEE#EEA##E#EEEEEEEE<#E#<EEEEEEEE#<EEEA/#/#####A#E###A
`

func TestCountReader(t *testing.T) {
	c, err := CountReader(strings.NewReader(fq))
	require.NoError(t, err)
	expect.EQ(t, c, Counts{Lines: 12, Records: 3})
	expect.True(t, c.Whole())

	c, err = CountReader(strings.NewReader(fq + "@truncated\nACGT\n"))
	require.NoError(t, err)
	expect.EQ(t, c, Counts{Lines: 14, Records: 3})
	expect.False(t, c.Whole())

	c, err = CountReader(strings.NewReader(""))
	require.NoError(t, err)
	expect.EQ(t, c, Counts{})
	expect.True(t, c.Whole())

	for _, bad := range []string{"12312#", "@id\nACGT\n-\nIIII\n"} {
		_, err = CountReader(strings.NewReader(bad))
		expect.EQ(t, errors.Cause(err), ErrInvalid)
	}
}

func writeGzip(t *testing.T, path, data string) {
	f, err := os.Create(path)
	require.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestCountFiles(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	r1 := filepath.Join(dir, "S1_R1.fastq.gz")
	r2 := filepath.Join(dir, "S1_R2.fastq.gz")
	plain := filepath.Join(dir, "S1_R2.fastq")
	short := filepath.Join(dir, "S2_R2.fastq.gz")
	writeGzip(t, r1, fq)
	writeGzip(t, r2, fq)
	writeGzip(t, short, strings.Join(strings.Split(fq, "\n")[:8], "\n")+"\n")
	require.NoError(t, os.WriteFile(plain, []byte(fq), 0644))

	c, err := Count(ctx, plain)
	require.NoError(t, err)
	expect.EQ(t, c.Records, int64(3))

	c1, c2, err := CountPair(ctx, r1, r2)
	require.NoError(t, err)
	expect.EQ(t, c1, c2)
	expect.EQ(t, c1.Records, int64(3))

	c1, c2, err = CountPair(ctx, r1, short)
	expect.EQ(t, errors.Cause(err), ErrDiscordant)
	expect.EQ(t, c1.Records, int64(3))
	expect.EQ(t, c2.Records, int64(2))

	_, _, err = CountPair(ctx, r1, filepath.Join(dir, "missing.fastq.gz"))
	assert.Error(t, err)
}
