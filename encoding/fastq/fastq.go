// Package fastq counts the records of FASTQ files, plain or gzip
// compressed, to check that the inputs of a sample are complete.
package fastq

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const linesPerRead = 4

var (
	// ErrInvalid is returned when a record does not start with "@" or its
	// third line does not start with "+".
	ErrInvalid = errors.New("invalid FASTQ file")
	// ErrDiscordant is returned by CountPair when R1 and R2 hold a different
	// number of records.
	ErrDiscordant = errors.New("discordant FASTQ pairs")
)

// Counts is the size of a FASTQ stream.
type Counts struct {
	Lines   int64
	Records int64
}

// Whole reports whether the stream holds only complete records.
func (c Counts) Whole() bool { return c.Lines%linesPerRead == 0 }

// CountReader counts the lines and complete records of r. A truncated last
// record is counted in Lines but not in Records; the caller decides whether
// that is an error.
func CountReader(r io.Reader) (Counts, error) {
	var c Counts
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		switch c.Lines % linesPerRead {
		case 0:
			if len(line) == 0 || line[0] != '@' {
				return c, errors.Wrapf(ErrInvalid, "line %d: record does not start with @", c.Lines+1)
			}
		case 2:
			if len(line) == 0 || line[0] != '+' {
				return c, errors.Wrapf(ErrInvalid, "line %d: separator does not start with +", c.Lines+1)
			}
		case 3:
			c.Records++
		}
		c.Lines++
	}
	return c, sc.Err()
}

// Count counts the records of the FASTQ file at path. Files ending in
// ".gz" are decompressed.
func Count(ctx context.Context, path string) (c Counts, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return c, errors.Wrapf(err, "open %s", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return c, errors.Wrapf(err, "gunzip %s", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	c, err = CountReader(r)
	if err != nil {
		return c, errors.Wrapf(err, "read %s", path)
	}
	return c, nil
}

// CountPair counts R1 and R2 concurrently. It returns ErrDiscordant (with
// both counts) when they differ.
func CountPair(ctx context.Context, r1, r2 string) (c1, c2 Counts, err error) {
	var g errgroup.Group
	g.Go(func() (err error) {
		c1, err = Count(ctx, r1)
		return
	})
	g.Go(func() (err error) {
		c2, err = Count(ctx, r2)
		return
	})
	if err = g.Wait(); err != nil {
		return
	}
	if c1.Lines != c2.Lines {
		err = errors.Wrapf(ErrDiscordant, "R1 has %d lines, R2 has %d", c1.Lines, c2.Lines)
	}
	return
}
