package pattern

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/habeanf/beamtag/util/conf"

	"github.com/coregx/ahocorasick"
	"github.com/pkg/errors"
)

// AtomSequence is the atom texts of one sentence, in order
type AtomSequence []string

// Match is one occurrence of a pattern over atoms [Start,End).
// ToCheck holds the absolute indexes of the atoms needing a decision.
type Match struct {
	Pattern *TokenPattern
	Start   int
	End     int
	ToCheck []int
}

func (m *Match) Len() int {
	return m.End - m.Start
}

// Checks reports whether atom i is to be tested
func (m *Match) Checks(i int) bool {
	for _, c := range m.ToCheck {
		if c == i {
			return true
		}
	}
	return false
}

func (m *Match) Text(atoms AtomSequence) string {
	return strings.Join(atoms[m.Start:m.End], "")
}

func (m *Match) String() string {
	return fmt.Sprintf("%s[%d,%d)%v", m.Pattern.Name, m.Start, m.End, m.ToCheck)
}

// Match slides a window of the pattern's length over the atoms. A leading or
// trailing \b may also match the sentence boundary.
func (t *TokenPattern) Match(atoms AtomSequence) []*Match {
	n := len(t.Parts)
	lo, hi := 0, len(atoms)
	if t.Parts[0].kind == boundaryPart {
		lo = -1
	}
	if n > 1 && t.Parts[n-1].kind == boundaryPart {
		hi++
	}
	var matches []*Match
	for s := lo; s+n <= hi; s++ {
		if !t.matchAt(atoms, s) {
			continue
		}
		m := &Match{Pattern: t, Start: s, End: s + n}
		if m.Start < 0 {
			m.Start = 0
		}
		if m.End > len(atoms) {
			m.End = len(atoms)
		}
		m.ToCheck = make([]int, len(t.IndexesToTest))
		for i, idx := range t.IndexesToTest {
			m.ToCheck[i] = s + idx
		}
		matches = append(matches, m)
	}
	return matches
}

func (t *TokenPattern) matchAt(atoms AtomSequence, s int) bool {
	for k, part := range t.Parts {
		idx := s + k
		if idx < 0 || idx >= len(atoms) {
			if !part.Matches("", true) {
				return false
			}
			continue
		}
		if !part.Matches(atoms[idx], false) {
			return false
		}
	}
	return true
}

// Manager matches a fixed set of patterns, skipping patterns whose literal
// words do not occur in the sentence
type Manager struct {
	Patterns []*TokenPattern

	ac       *ahocorasick.Automaton
	required [][]int
}

func NewManager(patterns []*TokenPattern) (*Manager, error) {
	m := &Manager{Patterns: patterns, required: make([][]int, len(patterns))}
	var words []string
	wordIDs := make(map[string]int)
	for i, t := range patterns {
		for _, w := range t.Words() {
			w = strings.ToLower(w)
			id, ok := wordIDs[w]
			if !ok {
				id = len(words)
				wordIDs[w] = id
				words = append(words, w)
			}
			m.required[i] = append(m.required[i], id)
		}
	}
	if len(words) == 0 {
		return m, nil
	}
	automaton, err := ahocorasick.NewBuilder().
		AddStrings(words).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, errors.Wrap(err, "building pattern prefilter")
	}
	m.ac = automaton
	return m, nil
}

// Match returns every match of every pattern ordered by start, then shortest
// first, then pattern order
func (m *Manager) Match(atoms AtomSequence) []*Match {
	var present map[int]bool
	if m.ac != nil {
		present = make(map[int]bool)
		haystack := []byte(strings.ToLower(strings.Join(atoms, "")))
		for _, found := range m.ac.FindAllOverlapping(haystack) {
			present[found.PatternID] = true
		}
	}
	var matches []*Match
	for i, t := range m.Patterns {
		if !allPresent(m.required[i], present) {
			continue
		}
		matches = append(matches, t.Match(atoms)...)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].Len() < matches[j].Len()
	})
	return matches
}

func allPresent(ids []int, present map[int]bool) bool {
	for _, id := range ids {
		if !present[id] {
			return false
		}
	}
	return true
}

// LoadPatterns reads one pattern per line as pattern, name<tab>pattern or
// name<tab>group<tab>pattern
func LoadPatterns(r io.Reader) ([]*TokenPattern, error) {
	c, err := conf.Read(r)
	if err != nil {
		return nil, err
	}
	var patterns []*TokenPattern
	names := make(map[string]bool)
	for _, line := range c.Lines {
		var name, group, text string
		fields := line.Fields()
		switch len(fields) {
		case 1:
			name, text = fields[0], fields[0]
		case 2:
			name, text = fields[0], fields[1]
		case 3:
			name, group, text = fields[0], fields[1], fields[2]
		default:
			return nil, errors.Errorf("line %d: expected at most 3 fields, got %d", line.Num, len(fields))
		}
		if names[name] {
			return nil, errors.Errorf("line %d: duplicate pattern name %s", line.Num, name)
		}
		names[name] = true
		t, err := Compile(name, group, text)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line.Num)
		}
		patterns = append(patterns, t)
	}
	return patterns, nil
}

func LoadPatternsFile(filename string) ([]*TokenPattern, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	patterns, err := LoadPatterns(f)
	return patterns, errors.Wrap(err, filename)
}
