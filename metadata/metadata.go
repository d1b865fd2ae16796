// Package metadata resolves whether a sample was sequenced paired-end (two
// FASTQ files, R1 and R2) or single-end (R1 only).
package metadata

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/JuanMataNaranjo/CINECA-repo/qcerr"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

const check = "single_paired"

// Resolver answers the pairing mode of a sample.
type Resolver interface {
	// Paired returns true if the sample has two input files and false if it
	// has one. Any other count is a qcerr.Configuration error.
	Paired(ctx context.Context, sample string) (bool, error)
}

// Fixed is a Resolver for callers that already know the pairing mode.
type Fixed bool

// Paired implements Resolver.
func (f Fixed) Paired(context.Context, string) (bool, error) { return bool(f), nil }

// Source resolves the pairing mode from a CSV table with a "Sample" column,
// one row per input file. When the table cannot be read (it does not exist,
// or Table names a directory), Source counts the compressed files in Dir
// instead, or in Table itself if Dir is empty.
//
// Results are cached per sample. Source is safe for concurrent use.
type Source struct {
	Table string
	Dir   string

	mu    sync.Mutex
	cache map[string]bool
}

// New returns a Source reading table, falling back to dir.
func New(table, dir string) *Source {
	return &Source{Table: table, Dir: dir}
}

// Paired implements Resolver.
func (s *Source) Paired(ctx context.Context, sample string) (bool, error) {
	s.mu.Lock()
	paired, ok := s.cache[sample]
	s.mu.Unlock()
	if ok {
		return paired, nil
	}
	n, err := s.count(ctx, sample)
	if err != nil {
		return false, err
	}
	switch n {
	case 1:
		paired = false
	case 2:
		paired = true
	default:
		return false, qcerr.Errorf(qcerr.Configuration, check, sample, "matches %d input entries, want 1 or 2", n)
	}
	s.mu.Lock()
	if s.cache == nil {
		s.cache = map[string]bool{}
	}
	s.cache[sample] = paired
	s.mu.Unlock()
	return paired, nil
}

func (s *Source) count(ctx context.Context, sample string) (int, error) {
	var tableErr error
	if s.Table != "" {
		n, err := CountRows(ctx, s.Table, sample)
		if err == nil {
			return n, nil
		}
		tableErr = err
	}
	dir := s.Dir
	if dir == "" {
		dir = s.Table
	}
	if dir == "" {
		return 0, qcerr.E(qcerr.MetadataUnavailable, check, sample, "no metadata table or input directory")
	}
	n, err := CountInputs(ctx, dir)
	if err != nil {
		e := qcerr.E(qcerr.MetadataUnavailable, check, sample, "cannot read metadata")
		e.Err = err
		if tableErr != nil {
			e.Err = errors.E(err, tableErr.Error())
		}
		return 0, e
	}
	return n, nil
}

type row struct {
	Sample string
}

// CountRows counts the rows of the comma separated table at path whose
// Sample column equals sample.
func CountRows(ctx context.Context, path, sample string) (n int, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return 0, errors.E(err, "open metadata", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := tsv.NewReader(in.Reader(ctx))
	r.Comma = ','
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	for {
		var rec row
		if err = r.Read(&rec); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return 0, errors.E(err, "read metadata", path)
		}
		if rec.Sample == sample {
			n++
		}
	}
}

// CountInputs counts the gzip compressed files directly under dir. A dir
// that does not exist is an error.
func CountInputs(ctx context.Context, dir string) (int, error) {
	n, entries := 0, 0
	lister := file.List(ctx, dir, false)
	for lister.Scan() {
		entries++
		if !lister.IsDir() && strings.HasSuffix(lister.Path(), ".gz") {
			n++
		}
	}
	if err := lister.Err(); err != nil {
		return 0, errors.E(err, "list inputs", dir)
	}
	if entries == 0 {
		// The lister skips a missing prefix, so look for it in its parent.
		if ok, err := exists(ctx, dir); err != nil || !ok {
			if err == nil {
				err = errors.E(errors.NotExist, "no such directory")
			}
			return 0, errors.E(err, "list inputs", dir)
		}
	}
	return n, nil
}

func exists(ctx context.Context, path string) (bool, error) {
	path = strings.TrimSuffix(path, "/")
	base := file.Base(path)
	lister := file.List(ctx, file.Dir(path), false)
	for lister.Scan() {
		if file.Base(lister.Path()) == base {
			return true, nil
		}
	}
	return false, lister.Err()
}
