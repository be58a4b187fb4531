package types

import (
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/habeanf/beamtag/alg/decision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var testTagset = NewTagset("test", language.French,
	Tag{Code: "DET"},
	Tag{Code: "NC", Open: true},
	Tag{Code: "V", Open: true},
	Tag{Code: "PONCT"},
	NullTag,
)

func tagAll(t *testing.T, tokens *TokenSequence, decisions ...decision.Decision) *PosTagSequence {
	seq := NewPosTagSequence(tokens)
	for i, d := range decisions {
		tag, err := testTagset.Tag(d.Outcome)
		require.NoError(t, err)
		seq = seq.Append(NewTaggedToken(tokens.Tokens[i], d, tag))
	}
	return seq
}

func TestTokenSequence(t *testing.T) {
	s := FromWords("Le", "chat", "dort", ".")
	assert.Equal(t, "Le chat dort .", s.Text)
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 14, s.Length())
	assert.Equal(t, "dort", s.Tokens[2].Text)
	assert.Equal(t, 8, s.Tokens[2].Start)
	assert.Equal(t, 12, s.Tokens[2].End)

	s.Tokens[1].Attributes = map[string]string{POS_TAG_ATTRIBUTE: "NC"}
	c := s.Clone()
	c.Tokens[1].Attributes[POS_TAG_ATTRIBUTE] = "V"
	v, ok := s.Tokens[1].Attribute(POS_TAG_ATTRIBUTE)
	assert.True(t, ok)
	assert.Equal(t, "NC", v)
	assert.NotSame(t, s.Tokens[0], c.Tokens[0])
}

func TestTagset(t *testing.T) {
	tag, err := testTagset.Tag("NC")
	require.NoError(t, err)
	assert.True(t, tag.Open)

	root, err := testTagset.Tag("ROOT")
	require.NoError(t, err)
	assert.Equal(t, RootTag, root)

	_, err = testTagset.Tag("XYZ")
	var unknown *UnknownTagError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "XYZ", unknown.Code)
	assert.Equal(t, "test", unknown.Tagset)
}

func TestLoadTagset(t *testing.T) {
	src := "# french tags\nftb\tfr\nDET\tdeterminer\tclosed\nNC\tcommon noun\topen\nV\tverb\n"
	ts, err := LoadTagset(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "ftb", ts.Name)
	assert.Equal(t, "fr", ts.Locale.String())
	assert.Equal(t, 3, ts.Len())
	det, _ := ts.Tag("DET")
	assert.False(t, det.Open)
	codes := []string{}
	for _, tag := range ts.Tags() {
		codes = append(codes, tag.Code)
	}
	assert.Equal(t, []string{"DET", "NC", "V"}, codes)

	_, err = LoadTagset(strings.NewReader("ftb\tfr\nDET\td\tmaybe\n"))
	assert.Error(t, err)
	_, err = LoadTagset(strings.NewReader("ftb\tfr\nDET\nDET\n"))
	assert.Error(t, err)
}

func TestSequenceScore(t *testing.T) {
	tokens := FromWords("Le", "chat", "dort", ".")
	seq := tagAll(t, tokens,
		decision.New("DET", 0.9), decision.New("NC", 0.95),
		decision.New("V", 0.97), decision.New("PONCT", 0.99))
	expected := math.Pow(0.9*0.95*0.97*0.99, 0.25)
	assert.InDelta(t, expected, seq.Score(), 1e-12)
	assert.Equal(t, "Le/DET chat/NC dort/V ./PONCT", seq.String())
	assert.Len(t, seq.Decisions(), 4)
	assert.True(t, seq.Complete())
	assert.Nil(t, seq.NextToken())

	forced := tagAll(t, tokens, decision.Forced("DET", "attribute"))
	assert.Equal(t, 1.0, forced.Score())
	assert.Empty(t, forced.Decisions())

	tokens.Score = 0.5
	upstream := tagAll(t, tokens, decision.New("DET", 0.81))
	assert.InDelta(t, 0.405, upstream.Score(), 1e-12)
}

func TestSequencePersistence(t *testing.T) {
	tokens := FromWords("Le", "chat")
	det, _ := testTagset.Tag("DET")
	nc, _ := testTagset.Tag("NC")
	v, _ := testTagset.Tag("V")
	head := NewPosTagSequence(tokens).Append(NewTaggedToken(tokens.Tokens[0], decision.New("DET", 0.9), det))
	a := head.Append(NewTaggedToken(tokens.Tokens[1], decision.New("NC", 0.8), nc))
	b := head.Append(NewTaggedToken(tokens.Tokens[1], decision.New("V", 0.1), v))

	assert.Equal(t, 1, head.Len())
	assert.Equal(t, "Le/DET", head.String())
	assert.Equal(t, "Le/DET chat/NC", a.String())
	assert.Equal(t, "Le/DET chat/V", b.String())
	assert.Same(t, a.Get(0), b.Get(0))
	assert.Same(t, head, a.Prefix(1))
	assert.Equal(t, 0, a.Prefix(0).Len())
	assert.Nil(t, a.Prefix(3))
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))

	seqs := []*PosTagSequence{b, head, a}
	sort.Sort(ByScore(seqs))
	assert.Equal(t, []*PosTagSequence{head, a, b}, seqs)
}

func TestRootRoundTrip(t *testing.T) {
	tokens := FromWords("Le", "chat")
	seq := tagAll(t, tokens, decision.New("DET", 0.9), decision.New("NC", 0.7))
	score := seq.Score()

	seq.PrependRoot()
	require.Equal(t, 3, seq.Len())
	assert.True(t, seq.HasRoot())
	assert.Equal(t, "ROOT/ROOT Le/DET chat/NC", seq.String())
	assert.InDelta(t, score, seq.Score(), 1e-12)

	seq.PrependRoot()
	assert.Equal(t, 3, seq.Len())

	seq.RemoveRoot()
	assert.Equal(t, 2, seq.Len())
	assert.False(t, seq.HasRoot())
	assert.Equal(t, "Le/DET chat/NC", seq.String())
	assert.InDelta(t, score, seq.Score(), 1e-12)
}

func TestRemoveEmptyNullTokens(t *testing.T) {
	tokens := NewTokenSequence("du chat")
	tokens.Add(0, 2)
	tokens.AddEmpty(2, "le")
	tokens.Add(3, 7)
	seq := tagAll(t, tokens, decision.New("DET", 0.9), decision.New("NULL", 0.8), decision.New("NC", 0.7))
	score := seq.Score()
	original := seq.Get(2)

	RemoveNullTokens.Apply(seq)
	require.Equal(t, 2, seq.Len())
	assert.Equal(t, "du/DET chat/NC", seq.String())
	assert.Equal(t, 1, seq.Get(1).Token.Index)
	assert.NotSame(t, original, seq.Get(1))
	assert.Equal(t, 2, original.Token.Index)
	assert.Equal(t, 3, tokens.Len())
	assert.Equal(t, 2, seq.Tokens.Len())
	assert.InDelta(t, score, seq.Score(), 1e-12)

	PrependRootFilter.Apply(seq)
	assert.True(t, seq.HasRoot())
}

func TestAppendAfterDetach(t *testing.T) {
	tokens := FromWords("Le", "chat")
	det, _ := testTagset.Tag("DET")
	nc, _ := testTagset.Tag("NC")
	seq := NewPosTagSequence(tokens).Append(NewTaggedToken(tokens.Tokens[0], decision.New("DET", 0.9), det))
	seq.PrependRoot()
	seq.RemoveRoot()
	next := seq.Append(NewTaggedToken(tokens.Tokens[1], decision.New("NC", 0.4), nc))
	assert.Equal(t, "Le/DET chat/NC", next.String())
	assert.InDelta(t, math.Sqrt(0.9*0.4), next.Score(), 1e-12)
	assert.Len(t, next.Decisions(), 2)
}
