package pattern

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileParceQue(t *testing.T) {
	p, err := Compile("parce que", "", `parce\ que`)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())
	assert.Equal(t, []int{1, 2}, p.IndexesToTest)
	assert.Equal(t, []string{"parce", "que"}, p.Words())

	atoms := AtomSequence{"Il", " ", "part", " ", "parce", " ", "que", " ", "il", " ", "pleut"}
	matches := p.Match(atoms)
	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, 4, m.Start)
	assert.Equal(t, 7, m.End)
	assert.Equal(t, []int{5, 6}, m.ToCheck)
	assert.Equal(t, "parce que", m.Text(atoms))
	assert.True(t, m.Checks(6))
	assert.False(t, m.Checks(4))
}

func TestCompileParts(t *testing.T) {
	p := MustCompile("elision", "", `[ldjmnst]'.`)
	require.Equal(t, 3, p.Len())
	assert.Equal(t, "class", p.Parts[0].Kind())
	assert.Equal(t, []int{1, 2}, p.IndexesToTest)
	assert.Len(t, p.Match(AtomSequence{"l", "'", "homme"}), 1)
	assert.Empty(t, p.Match(AtomSequence{"x", "'", "homme"}))
	assert.Empty(t, p.Match(AtomSequence{"l", "'", "-"}))

	p = MustCompile("alt", "", `(parce|puisque)\ que`)
	assert.Equal(t, "alternation", p.Parts[0].Kind())
	assert.Len(t, p.Match(AtomSequence{"puisque", " ", "que"}), 1)
	assert.Len(t, p.Match(AtomSequence{"parce", "  ", "que"}), 1)

	p = MustCompile("context", "", `{.}\-t\-(il|elle)`)
	assert.True(t, p.Parts[0].Context)
	assert.Equal(t, []int{1, 2, 3, 4}, p.IndexesToTest)
	assert.Equal(t, `{.}\-t\-(il|elle)`, partsString(p))

	p = MustCompile("separators", "", `.\p\s.`)
	assert.Equal(t, []int{3}, p.IndexesToTest)
}

func partsString(p *TokenPattern) string {
	s := make([]string, len(p.Parts))
	for i, part := range p.Parts {
		s[i] = part.String()
	}
	return strings.Join(s, "")
}

func TestBoundary(t *testing.T) {
	p := MustCompile("start", "", `\bparce\ que`)
	assert.Equal(t, []int{1, 2, 3}, p.IndexesToTest)

	matches := p.Match(AtomSequence{"parce", " ", "que"})
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Start)
	assert.Equal(t, 3, matches[0].End)
	assert.Equal(t, []int{0, 1, 2}, matches[0].ToCheck)

	matches = p.Match(AtomSequence{"Et", " ", "parce", " ", "que"})
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].Start)
	assert.Equal(t, []int{2, 3, 4}, matches[0].ToCheck)

	assert.Empty(t, p.Match(AtomSequence{"x", "parce", " ", "que"}))

	end := MustCompile("end", "", `\-t\-il\b`)
	matches = end.Match(AtomSequence{"va", "-", "t", "-", "il"})
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].Start)
	assert.Equal(t, 5, matches[0].End)
}

func TestCompileErrors(t *testing.T) {
	for _, text := range []string{`(a|b`, `[]`, `a}`, `{a`, `{{a}}`, `a\`, `a)`, `(a|)`, ``} {
		_, err := Compile("bad", "", text)
		var syntaxErr *SyntaxError
		assert.ErrorAs(t, err, &syntaxErr, text)
	}
	for _, text := range []string{`chat`, `{parce\ que}`, `.\p`, `\b`} {
		_, err := Compile("unchecked", "", text)
		var confErr *ConfigurationError
		assert.ErrorAs(t, err, &confErr, text)
	}
}

func TestManager(t *testing.T) {
	long := MustCompile("long", "", `parce\ que\ .`)
	short := MustCompile("short", "", `parce\ que`)
	que := MustCompile("que", "", `\ que`)
	hyphen := MustCompile("hyphen", "", `peut\-être`)
	m, err := NewManager([]*TokenPattern{long, short, que, hyphen})
	require.NoError(t, err)

	atoms := AtomSequence{"parce", " ", "que", " ", "je"}
	matches := m.Match(atoms)
	require.Len(t, matches, 3)
	assert.Equal(t, "short", matches[0].Pattern.Name)
	assert.Equal(t, "long", matches[1].Pattern.Name)
	assert.Equal(t, "que", matches[2].Pattern.Name)
	assert.Equal(t, 1, matches[2].Start)

	matches = m.Match(AtomSequence{"il", " ", "peut", "-", "être", " ", "là"})
	require.Len(t, matches, 1)
	assert.Equal(t, "hyphen", matches[0].Pattern.Name)
	assert.Equal(t, []int{3, 4}, matches[0].ToCheck)

	assert.Empty(t, m.Match(AtomSequence{"rien"}))

	wild, err := NewManager([]*TokenPattern{MustCompile("any", "", `.\-.`)})
	require.NoError(t, err)
	assert.Len(t, wild.Match(AtomSequence{"a", "-", "b"}), 1)
}

func TestLoadPatterns(t *testing.T) {
	src := "# tokeniser patterns\n" +
		`parce\ que` + "\n" +
		"hyphen\t" + `peut\-être` + "\n" +
		"tu\tverbs\t" + `.\-t\-(il|elle)` + "\n"
	patterns, err := LoadPatterns(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, patterns, 3)
	assert.Equal(t, `parce\ que`, patterns[0].Name)
	assert.Equal(t, "hyphen", patterns[1].Name)
	assert.Equal(t, "verbs", patterns[2].Group)

	_, err = LoadPatterns(strings.NewReader("ok\t" + `a\-b` + "\nbad\t(a|b\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = LoadPatterns(strings.NewReader("dup\t" + `a\-b` + "\ndup\t" + `c\-d` + "\n"))
	assert.Error(t, err)
}
