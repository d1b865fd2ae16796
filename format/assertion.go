package format

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Match selects how an Assertion compares a line with its text.
type Match string

const (
	// Equal compares the whole line.
	Equal Match = "equal"
	// Prefix and Suffix compare an end of the line.
	Prefix Match = "prefix"
	Suffix Match = "suffix"
	// Contains looks for the text anywhere in the line.
	Contains Match = "contains"
	// Masked deletes every match of Mask from line[From:] and compares the
	// rest with the text.
	Masked Match = "masked"
	// Compact deletes all whitespace from the line and compares the rest
	// with the text.
	Compact Match = "compact"
)

const defaultMask = `[0-9]`

// Assertion states that one line of a log (or of a section of it) matches a
// literal. Trailing blanks of the line are ignored except by Masked and
// Compact.
type Assertion struct {
	// Log names the log (see Log.Name); empty means the main log.
	Log string `yaml:"log,omitempty"`
	// Section names the section; empty means the whole log.
	Section string `yaml:"section,omitempty"`
	// Offset is the line index; negative offsets count from the end.
	Offset int    `yaml:"offset"`
	Match  Match  `yaml:"match"`
	Text   string `yaml:"text"`
	From   int    `yaml:"from,omitempty"`
	Mask   string `yaml:"mask,omitempty"`
}

func (a Assertion) validate() error {
	switch a.Match {
	case Equal, Prefix, Suffix, Contains, Compact:
	case Masked:
		if a.Mask != "" {
			if _, err := regexp.Compile(a.Mask); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown match %q", a.Match)
	}
	if a.From < 0 {
		return fmt.Errorf("negative from %d", a.From)
	}
	return nil
}

// Holds reports whether the assertion holds on lines. The "{sample}"
// placeholder in the text is replaced by sample. An offset out of range
// never holds.
func (a Assertion) Holds(lines []string, sample string) bool {
	off := a.Offset
	if off < 0 {
		off += len(lines)
	}
	if off < 0 || off >= len(lines) {
		return false
	}
	line, text := lines[off], Expand(a.Text, sample)
	switch a.Match {
	case Masked:
		if a.From > len(line) {
			return false
		}
		mask := a.Mask
		if mask == "" {
			mask = defaultMask
		}
		re, err := regexp.Compile(mask)
		if err != nil {
			return false
		}
		return re.ReplaceAllString(strings.TrimRight(line[a.From:], "\r\n"), "") == text
	case Compact:
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, line) == text
	}
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	if a.From > 0 {
		if a.From > len(line) {
			return false
		}
		line = line[a.From:]
	}
	switch a.Match {
	case Equal:
		return line == text
	case Prefix:
		return strings.HasPrefix(line, text)
	case Suffix:
		return strings.HasSuffix(line, text)
	case Contains:
		return strings.Contains(line, text)
	}
	return false
}
