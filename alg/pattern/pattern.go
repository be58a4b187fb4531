// Package pattern compiles token patterns and matches them over the atoms of
// a sentence. Each part of a pattern matches exactly one atom; the compiled
// pattern records which of its atoms are ambiguous and need a decision.
package pattern

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/habeanf/beamtag/util"
)

type partKind int

const (
	literalPart partKind = iota
	wordPart
	separatorPart
	whitespacePart
	boundaryPart
	classPart
	alternationPart
)

var kindNames = map[partKind]string{
	literalPart:     "literal",
	wordPart:        "word",
	separatorPart:   "separator",
	whitespacePart:  "whitespace",
	boundaryPart:    "boundary",
	classPart:       "class",
	alternationPart: "alternation",
}

// IsSeparator reports whether r splits words
func IsSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// IsWhitespace reports whether atom is a non-empty whitespace run
func IsWhitespace(atom string) bool {
	return util.IsWhitespace(atom)
}

// IsSeparatorAtom reports whether atom is a whitespace run or a single separator
func IsSeparatorAtom(atom string) bool {
	if IsWhitespace(atom) {
		return true
	}
	r, size := utf8.DecodeRuneInString(atom)
	return size > 0 && size == len(atom) && IsSeparator(r)
}

// Part matches a single atom
type Part struct {
	kind    partKind
	texts   []string
	class   string
	Context bool
}

func (p *Part) Kind() string {
	return kindNames[p.kind]
}

// Matches tests an atom; boundary is the virtual atom past either sentence end
func (p *Part) Matches(atom string, boundary bool) bool {
	if boundary {
		return p.kind == boundaryPart
	}
	switch p.kind {
	case literalPart:
		if IsWhitespace(p.texts[0]) {
			return IsWhitespace(atom)
		}
		return atom == p.texts[0]
	case wordPart:
		return len(atom) > 0 && !IsSeparatorAtom(atom)
	case separatorPart:
		return IsSeparatorAtom(atom) && !IsWhitespace(atom)
	case whitespacePart, boundaryPart:
		return IsWhitespace(atom)
	case classPart:
		r, size := utf8.DecodeRuneInString(atom)
		return size > 0 && size == len(atom) && strings.ContainsRune(p.class, r)
	case alternationPart:
		for _, t := range p.texts {
			if atom == t {
				return true
			}
		}
	}
	return false
}

// Separator reports whether every atom this part can match is a separator
func (p *Part) Separator() bool {
	switch p.kind {
	case separatorPart, whitespacePart, boundaryPart:
		return true
	case literalPart, alternationPart:
		for _, t := range p.texts {
			if !IsSeparatorAtom(t) {
				return false
			}
		}
		return true
	case classPart:
		for _, r := range p.class {
			if !IsSeparator(r) {
				return false
			}
		}
		return true
	}
	return false
}

// wildcard separators are matched but never tested
func (p *Part) wildcard() bool {
	return p.kind == separatorPart || p.kind == whitespacePart || p.kind == boundaryPart
}

// word returns the literal word this part requires, if any
func (p *Part) word() (string, bool) {
	if p.kind != literalPart || IsSeparatorAtom(p.texts[0]) {
		return "", false
	}
	return p.texts[0], true
}

func (p *Part) String() string {
	var s string
	switch p.kind {
	case literalPart:
		s = escape(p.texts[0])
	case wordPart:
		s = "."
	case separatorPart:
		s = `\p`
	case whitespacePart:
		s = `\s`
	case boundaryPart:
		s = `\b`
	case classPart:
		s = "[" + escape(p.class) + "]"
	case alternationPart:
		alts := make([]string, len(p.texts))
		for i, t := range p.texts {
			alts[i] = escape(t)
		}
		s = "(" + strings.Join(alts, "|") + ")"
	}
	if p.Context {
		return "{" + s + "}"
	}
	return s
}

func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if IsSeparator(r) || strings.ContainsRune(`\.[](){}|`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

type SyntaxError struct {
	Pattern string
	Pos     int
	Msg     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pattern %q: %s at position %d", e.Pattern, e.Msg, e.Pos)
}

type ConfigurationError struct {
	Name string
	Msg  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pattern %s: %s", e.Name, e.Msg)
}

// TokenPattern is a compiled pattern
type TokenPattern struct {
	Name          string
	Group         string
	Text          string
	Parts         []*Part
	IndexesToTest []int
}

func (t *TokenPattern) Len() int {
	return len(t.Parts)
}

func (t *TokenPattern) String() string {
	return t.Name
}

// Words returns the literal words every match must contain
func (t *TokenPattern) Words() []string {
	var words []string
	for _, p := range t.Parts {
		if w, ok := p.word(); ok {
			words = append(words, w)
		}
	}
	return words
}

func Compile(name, group, text string) (*TokenPattern, error) {
	parts, err := parse(text)
	if err != nil {
		return nil, err
	}
	t := &TokenPattern{Name: name, Group: group, Text: text, Parts: parts}
	for i, p := range parts {
		if p.Context || p.wildcard() {
			continue
		}
		if p.Separator() || (i > 0 && parts[i-1].Separator()) {
			t.IndexesToTest = append(t.IndexesToTest, i)
		}
	}
	if len(t.IndexesToTest) == 0 {
		return nil, &ConfigurationError{name, "no atoms to test in " + text}
	}
	return t, nil
}

func MustCompile(name, group, text string) *TokenPattern {
	t, err := Compile(name, group, text)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	text    string
	runes   []rune
	pos     int
	parts   []*Part
	word    []rune
	context bool
}

func parse(text string) ([]*Part, error) {
	p := &parser{text: text, runes: []rune(text)}
	for p.pos < len(p.runes) {
		r := p.runes[p.pos]
		switch {
		case r == '\\':
			if p.pos+1 >= len(p.runes) {
				return nil, p.errorf("trailing escape")
			}
			c := p.runes[p.pos+1]
			p.pos += 2
			switch c {
			case 'p':
				p.add(&Part{kind: separatorPart})
			case 's':
				p.add(&Part{kind: whitespacePart})
			case 'b':
				p.add(&Part{kind: boundaryPart})
			default:
				if IsSeparator(c) {
					p.add(&Part{kind: literalPart, texts: []string{string(c)}})
				} else {
					p.word = append(p.word, c)
				}
			}
			continue
		case r == '.':
			p.add(&Part{kind: wordPart})
		case r == '[':
			items, err := p.group(']', false)
			if err != nil {
				return nil, err
			}
			p.add(&Part{kind: classPart, class: items[0]})
			continue
		case r == '(':
			items, err := p.group(')', true)
			if err != nil {
				return nil, err
			}
			p.add(&Part{kind: alternationPart, texts: items})
			continue
		case r == '{':
			if p.context {
				return nil, p.errorf("nested brace")
			}
			p.flush()
			p.context = true
		case r == '}':
			if !p.context {
				return nil, p.errorf("unbalanced brace")
			}
			p.flush()
			p.context = false
		case r == ']' || r == ')' || r == '|':
			return nil, p.errorf(fmt.Sprintf("unexpected %q", r))
		case IsSeparator(r):
			p.add(&Part{kind: literalPart, texts: []string{string(r)}})
		default:
			p.word = append(p.word, r)
		}
		p.pos++
	}
	if p.context {
		return nil, p.errorf("unterminated brace")
	}
	p.flush()
	if len(p.parts) == 0 {
		return nil, p.errorf("empty pattern")
	}
	return p.parts, nil
}

func (p *parser) errorf(msg string) error {
	return &SyntaxError{p.text, p.pos, msg}
}

func (p *parser) flush() {
	if len(p.word) > 0 {
		p.parts = append(p.parts, &Part{kind: literalPart, texts: []string{string(p.word)}, Context: p.context})
		p.word = nil
	}
}

func (p *parser) add(part *Part) {
	p.flush()
	part.Context = p.context
	p.parts = append(p.parts, part)
}

// group reads a bracketed group starting at the opening rune; alternations
// split on unescaped '|'
func (p *parser) group(closing rune, alternation bool) ([]string, error) {
	start := p.pos
	p.pos++
	var (
		items []string
		cur   []rune
	)
	for p.pos < len(p.runes) {
		r := p.runes[p.pos]
		switch {
		case r == '\\':
			if p.pos+1 >= len(p.runes) {
				return nil, p.errorf("trailing escape")
			}
			cur = append(cur, p.runes[p.pos+1])
			p.pos += 2
			continue
		case r == closing:
			items = append(items, string(cur))
			p.pos++
			for _, item := range items {
				if len(item) == 0 {
					return nil, &SyntaxError{p.text, start, "empty group item"}
				}
			}
			return items, nil
		case alternation && r == '|':
			items = append(items, string(cur))
			cur = nil
		default:
			cur = append(cur, r)
		}
		p.pos++
	}
	return nil, &SyntaxError{p.text, start, "unterminated group"}
}
