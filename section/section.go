// Package section splits a raw console log into named logical sections in a
// single pass.
//
// A Classifier is built from an ordered list of Rules. Each rule has one or
// more opening Matchers. A rule without a closing matcher captures exactly
// one line each time it is triggered; a rule with a closing matcher stays
// open until a line matches it. The rule order is the routing precedence:
// every line is appended to at most one section, the first open one.
//
// The classification is an explicit fold over the lines. State is the set of
// currently open sections, and Step maps (state, line) to (state', emission).
// Rules that were triggered but did not receive the line stay open and
// receive a later line.
package section

import (
	"fmt"
	"regexp"
	"strings"
)

// maxRules is the capacity of State.
const maxRules = 64

// Matcher is a single line predicate. Exactly one of Equal, Prefix,
// Contains and Regexp must be set.
type Matcher struct {
	Equal    string `yaml:"equal,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Contains string `yaml:"contains,omitempty"`
	Regexp   string `yaml:"regexp,omitempty"`
	// Window, if positive, restricts the test to the first Window bytes of
	// the line.
	Window int `yaml:"window,omitempty"`
}

// Rule defines one named section.
type Rule struct {
	Name string `yaml:"name"`
	// Open triggers the section when any of its matchers matches.
	Open []Matcher `yaml:"open"`
	// Close, if set, makes the section a block that stays open until a line
	// matches Close. Otherwise the section captures one line per trigger.
	Close *Matcher `yaml:"close,omitempty"`
	// SkipOpener consumes the opening line without appending it anywhere and
	// without evaluating any other rule on it.
	SkipOpener bool `yaml:"skip_opener,omitempty"`
}

type predicate func(line string) bool

func (m Matcher) compile() (predicate, error) {
	n := 0
	for _, s := range []string{m.Equal, m.Prefix, m.Contains, m.Regexp} {
		if s != "" {
			n++
		}
	}
	if n != 1 {
		return nil, fmt.Errorf("matcher %+v: exactly one of equal, prefix, contains, regexp must be set", m)
	}
	window := func(line string) string {
		if m.Window > 0 && len(line) > m.Window {
			return line[:m.Window]
		}
		return line
	}
	switch {
	case m.Equal != "":
		want := m.Equal
		return func(line string) bool { return window(line) == want }, nil
	case m.Prefix != "":
		want := m.Prefix
		return func(line string) bool { return strings.HasPrefix(window(line), want) }, nil
	case m.Contains != "":
		want := m.Contains
		return func(line string) bool { return strings.Contains(window(line), want) }, nil
	}
	re, err := regexp.Compile(m.Regexp)
	if err != nil {
		return nil, fmt.Errorf("matcher %+v: %v", m, err)
	}
	return func(line string) bool { return re.MatchString(window(line)) }, nil
}

type compiledRule struct {
	name       string
	open       []predicate
	close      predicate
	skipOpener bool
}

func (r *compiledRule) opens(line string) bool {
	for _, p := range r.open {
		if p(line) {
			return true
		}
	}
	return false
}

// State is the set of open sections, one bit per rule.
type State uint64

func (s State) has(i int) bool { return s&(1<<uint(i)) != 0 }

func (s State) with(i int) State { return s | 1<<uint(i) }

func (s State) without(i int) State { return s &^ (1 << uint(i)) }

// Classifier segments lines according to an ordered rule list. It is
// immutable and safe for concurrent use.
type Classifier struct {
	rules []compiledRule
}

// Compile builds a Classifier. Rule names must be unique.
func Compile(rules []Rule) (*Classifier, error) {
	if len(rules) > maxRules {
		return nil, fmt.Errorf("section: %d rules exceed the limit of %d", len(rules), maxRules)
	}
	c := &Classifier{}
	seen := map[string]bool{}
	for _, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("section: rule without a name")
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("section: duplicate rule %q", r.Name)
		}
		seen[r.Name] = true
		if len(r.Open) == 0 {
			return nil, fmt.Errorf("section %s: no opening matcher", r.Name)
		}
		cr := compiledRule{name: r.Name, skipOpener: r.SkipOpener}
		for _, m := range r.Open {
			p, err := m.compile()
			if err != nil {
				return nil, fmt.Errorf("section %s: %v", r.Name, err)
			}
			cr.open = append(cr.open, p)
		}
		if r.Close != nil {
			p, err := r.Close.compile()
			if err != nil {
				return nil, fmt.Errorf("section %s: %v", r.Name, err)
			}
			cr.close = p
		}
		c.rules = append(c.rules, cr)
	}
	return c, nil
}

// MustCompile is Compile that panics on error. It is meant for rule tables
// fixed at compile time.
func MustCompile(rules []Rule) *Classifier {
	c, err := Compile(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Names returns the section names in precedence order.
func (c *Classifier) Names() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.name
	}
	return names
}

// Step consumes one line. It returns the new state and the index (into
// Names) of the section that receives the line, or -1 if none does.
func (c *Classifier) Step(s State, line string) (State, int) {
	for i := range c.rules {
		r := &c.rules[i]
		if r.skipOpener && r.opens(line) {
			return s.with(i), -1
		}
	}
	for i := range c.rules {
		if r := &c.rules[i]; r.close != nil && s.has(i) && r.close(line) {
			s = s.without(i)
		}
	}
	for i := range c.rules {
		if r := &c.rules[i]; !r.skipOpener && r.opens(line) {
			s = s.with(i)
		}
	}
	for i := range c.rules {
		if !s.has(i) {
			continue
		}
		if c.rules[i].close == nil {
			s = s.without(i)
		}
		return s, i
	}
	return s, -1
}

// Split folds Step over lines and collects each section's lines in order.
// Every rule has an entry in the result, possibly empty.
func (c *Classifier) Split(lines []string) Sections {
	out := make(Sections, len(c.rules))
	for _, r := range c.rules {
		out[r.name] = nil
	}
	var (
		s    State
		emit int
	)
	for _, line := range lines {
		if s, emit = c.Step(s, line); emit >= 0 {
			name := c.rules[emit].name
			out[name] = append(out[name], line)
		}
	}
	return out
}

// Sections maps a section name to its lines.
type Sections map[string]Section

// Get returns the named section; unknown names yield an empty section.
func (s Sections) Get(name string) Section { return s[name] }

// Section is an ordered list of lines classified under one name.
type Section []string

// Len returns the number of lines.
func (s Section) Len() int { return len(s) }

// Line returns the line at offset; negative offsets count from the end.
func (s Section) Line(offset int) (string, bool) {
	if offset < 0 {
		offset += len(s)
	}
	if offset < 0 || offset >= len(s) {
		return "", false
	}
	return s[offset], true
}

// Slice returns s[start:end] where a non-positive end counts from the end
// of the section, so Slice(2, -1) drops the first two lines and the last
// one. The result is empty if the bounds cross.
func (s Section) Slice(start, end int) Section {
	if end <= 0 {
		end += len(s)
	}
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return nil
	}
	return s[start:end]
}

// Text joins the lines with newlines.
func (s Section) Text() string { return strings.Join(s, "\n") }
