package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// decimalRE matches signed decimals and integers, decimals first so
	// that "0.000" is one number.
	decimalRE = regexp.MustCompile(`[-+]?\d*\.\d+|[-+]?\d+`)
	integerRE = regexp.MustCompile(`[-+]?\d+`)
)

// decimals returns every number of s in order.
func decimals(s string) []float64 {
	var out []float64
	for _, tok := range decimalRE.FindAllString(s, -1) {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// integers returns every run of digits of s, with its sign, in order. A
// decimal such as "0.75" yields two integers.
func integers(s string) []int64 {
	var out []int64
	for _, tok := range integerRE.FindAllString(s, -1) {
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func anyNegative(vs []float64) bool {
	for _, v := range vs {
		if v < 0 {
			return true
		}
	}
	return false
}

func anyNonPositive(vs []float64) bool {
	for _, v := range vs {
		if v <= 0 {
			return true
		}
	}
	return false
}

func sumInts(vs []int64) int64 {
	var s int64
	for _, v := range vs {
		s += v
	}
	return s
}

// isNumber reports whether a table token is numeric. Percentages count.
func isNumber(tok string) bool {
	_, err := strconv.ParseFloat(strings.TrimSuffix(tok, "%"), 64)
	return err == nil
}

// number parses a numeric table token.
func number(tok string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSuffix(tok, "%"), 64)
	return v
}
