// Package logfile reads the console log captured for one pipeline stage of
// one sample. Logs are read whole: the expected scale is a few thousand
// lines, and every validator needs random access to fixed offsets.
package logfile

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// maxLineLen bounds a single log line. GATK echoes its full command line on
// one line, which can exceed bufio's default token size.
const maxLineLen = 16 << 20

// Document is an ordered sequence of lines read from one stage log of one
// sample. It is identified by (Sample, Stage, End). Lines carry no
// trailing newline. A Document is never modified after Load.
type Document struct {
	Sample string
	Stage  string
	// End names the log within its stage: "R1" or "R2" for stages that
	// write one log per read end, the log name otherwise.
	End   string
	Path  string
	Lines []string
}

// Len returns the number of lines.
func (d *Document) Len() int { return len(d.Lines) }

// Line returns the line at offset. A negative offset counts from the end,
// as in Line(-1) for the last line. ok is false if offset is out of range.
func (d *Document) Line(offset int) (string, bool) {
	return Line(d.Lines, offset)
}

// Tail returns the last n lines, or all lines if there are fewer.
func (d *Document) Tail(n int) []string {
	if n >= len(d.Lines) {
		return d.Lines
	}
	return d.Lines[len(d.Lines)-n:]
}

// Line returns lines[offset], where a negative offset counts from the end.
func Line(lines []string, offset int) (string, bool) {
	if offset < 0 {
		offset += len(lines)
	}
	if offset < 0 || offset >= len(lines) {
		return "", false
	}
	return lines[offset], true
}

// Load reads the log at path and tags it with its identity.
func Load(ctx context.Context, path, sample, stage, end string) (*Document, error) {
	lines, err := Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Document{Sample: sample, Stage: stage, End: end, Path: path, Lines: lines}, nil
}

// Read reads every line of the file at path. Compressed files (.gz, .bz2,
// .zst) are decompressed transparently.
func Read(ctx context.Context, path string) (lines []string, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open log", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		defer u.Close() // nolint: errcheck
		r = u
	}
	lines, err = Split(r)
	if err != nil {
		return nil, errors.E(err, "read log", path)
	}
	return lines, nil
}

// Split reads r to the end and returns its lines with line terminators
// removed. A final line without a terminator is kept.
func Split(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLineLen)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	return lines, sc.Err()
}
