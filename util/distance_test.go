package util

import (
	"reflect"
	"testing"
)

func TestClosest(t *testing.T) {
	canonical := []string{"chr1", "chr2", "chr10", "chrX"}
	tests := []struct {
		s          string
		candidates []string
		want       string
		distance   int
	}{
		{"chr1", canonical, "chr1", 0},
		{"chr01", canonical, "chr1", 1},
		{"chrXX", canonical, "chrX", 1},
		{"chr11", canonical, "chr1", 1},
		{"1", canonical, "chr1", 3},
		// Ties keep the first candidate.
		{"chr3", canonical, "chr1", 1},
		{"chr1", nil, "", -1},
	}

	for _, test := range tests {
		got, d := Closest(test.s, test.candidates)
		if got != test.want || d != test.distance {
			t.Errorf("Closest(%q): got %q (%d), want %q (%d)", test.s, got, d, test.want, test.distance)
		}
	}
}

func TestMissing(t *testing.T) {
	tests := []struct {
		got, want []string
		missing   []string
	}{
		{[]string{"chr1", "chr2"}, []string{"chr1", "chr2"}, nil},
		{[]string{"chr2"}, []string{"chr1", "chr2", "chr3"}, []string{"chr1", "chr3"}},
		{nil, []string{"chrX"}, []string{"chrX"}},
		{[]string{"chrY"}, nil, nil},
	}

	for _, test := range tests {
		got := Missing(test.got, test.want)
		if !reflect.DeepEqual(got, test.missing) {
			t.Errorf("Missing(%v, %v): got %v, want %v", test.got, test.want, got, test.missing)
		}
	}
	if Contains(nil, "") {
		t.Error("Contains(nil) must be false")
	}
}
