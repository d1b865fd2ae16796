package format

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Reference holds the expected per-chromosome progress distributions of a
// healthy run of one GATK stage, each normalized to a maximum of 1. Keys are
// chromosome names without the "chr" prefix.
type Reference struct {
	Count map[string]float64 `yaml:"count"`
	Time  map[string]float64 `yaml:"time"`
	Reads map[string]float64 `yaml:"reads"`
}

// References maps a stage to its reference distributions.
type References map[Stage]*Reference

// Stage returns the reference of stage.
func (r References) Stage(stage Stage) (*Reference, error) {
	ref, ok := r[stage]
	if !ok {
		return nil, fmt.Errorf("no reference distributions for stage %s", stage)
	}
	return ref, nil
}

// LoadReferences returns the embedded reference distributions.
func LoadReferences() (References, error) {
	data, err := assets.ReadFile("data/references.yaml")
	if err != nil {
		return nil, err
	}
	return ParseReferences(bytes.NewReader(data))
}

// LoadReferencesFile reads reference distributions from a YAML file.
func LoadReferencesFile(ctx context.Context, path string) (refs References, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open references", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	refs, err = ParseReferences(in.Reader(ctx))
	if err != nil {
		return nil, errors.E(errors.Invalid, err, path)
	}
	return refs, nil
}

// ParseReferences decodes reference distributions.
func ParseReferences(r io.Reader) (References, error) {
	refs := References{}
	if err := decode(r, &refs); err != nil {
		return nil, err
	}
	for stage, ref := range refs {
		if _, err := ParseStage(string(stage)); err != nil {
			return nil, err
		}
		if ref == nil || len(ref.Count) == 0 || len(ref.Time) == 0 || len(ref.Reads) == 0 {
			return nil, fmt.Errorf("references for stage %s: count, time and reads are required", stage)
		}
	}
	return refs, nil
}
