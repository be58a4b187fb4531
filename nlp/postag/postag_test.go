package postag

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/habeanf/beamtag/alg/decision"
	"github.com/habeanf/beamtag/alg/feature"
	"github.com/habeanf/beamtag/alg/rules"
	"github.com/habeanf/beamtag/nlp/types"
	"github.com/habeanf/beamtag/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var testTagset = types.NewTagset("test", language.French,
	types.Tag{Code: "DET"},
	types.Tag{Code: "PONCT"},
	types.Tag{Code: "P"},
	types.Tag{Code: "NC", Open: true},
	types.Tag{Code: "V", Open: true},
	types.Tag{Code: "X", Open: true},
	types.Tag{Code: "Y", Open: true},
	types.Tag{Code: "Q", Open: true},
)

var testRegistry = NewRegistry(feature.NewRegistry())

func testFeatures(t *testing.T) *feature.Set {
	loader := &feature.Loader{Registry: testRegistry}
	set, err := loader.LoadLines("word\tWord()", "prev\tPosTag(Offset(-1))")
	require.NoError(t, err)
	return set
}

// wordSource looks decisions up by word, then by word|previous tag
type wordSource map[string][]decision.Decision

func (s wordSource) Decide(results []*feature.Result) ([]decision.Decision, error) {
	var word, prev string
	for _, r := range results {
		switch r.Feature {
		case "word":
			word = r.Str()
		case "prev":
			prev = r.Str()
		}
	}
	ds, ok := s[word+"|"+prev]
	if !ok {
		ds, ok = s[word]
	}
	if !ok {
		ds = []decision.Decision{decision.New("NC", 0.5, "test"), decision.New("V", 0.5, "test")}
	}
	return append([]decision.Decision(nil), ds...), nil
}

func d(outcome string, p float64) decision.Decision {
	return decision.New(outcome, p, "test")
}

var sentenceSource = wordSource{
	"Le":   {d("DET", 0.9), d("NC", 0.1)},
	"chat": {d("NC", 0.95), d("V", 0.05)},
	"dort": {d("V", 0.97), d("NC", 0.03)},
	".":    {d("PONCT", 0.99), d("NC", 0.01)},
}

func newTagger(t *testing.T, opts ...Option) *Tagger {
	base := []Option{
		WithTagset(testTagset),
		WithFeatures(testFeatures(t)),
		WithSource(sentenceSource),
		WithBeamWidth(3),
	}
	tagger, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return tagger
}

func loadRules(t *testing.T, src string) *rules.Rules {
	rs, err := rules.Load(strings.NewReader(src), feature.NewCompiler(testRegistry))
	require.NoError(t, err)
	return rs
}

type stepCounter map[string]int

func (s stepCounter) OnStep(token *types.Token, results []*feature.Result, decisions []decision.Decision) {
	s[token.Text]++
}

func TestLeChatDort(t *testing.T) {
	tagger := newTagger(t)
	best, err := tagger.TagBest(types.FromWords("Le", "chat", "dort", "."))
	require.NoError(t, err)
	assert.Equal(t, "Le/DET chat/NC dort/V ./PONCT", best.String())
	assert.InDelta(t, math.Pow(0.9*0.95*0.97*0.99, 0.25), best.Score(), 1e-12)
	for _, tagged := range best.Tagged() {
		assert.True(t, tagged.Decision.Statistical)
		assert.Equal(t, []string{"test"}, tagged.Decision.Authorities())
	}
}

func TestDeterminism(t *testing.T) {
	tagger := newTagger(t, WithBeamWidth(4))
	tokens := types.FromWords("Le", "chat", "dort", ".")
	first, err := tagger.TagSentence([]*types.TokenSequence{tokens})
	require.NoError(t, err)
	second, err := tagger.TagSentence([]*types.TokenSequence{tokens})
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].String(), second[i].String())
		assert.Equal(t, first[i].Score(), second[i].Score())
	}
}

var gardenPath = wordSource{
	"a":   {d("X", 0.6), d("Y", 0.4)},
	"b|X": {d("P", 0.5), d("Q", 0.5)},
	"b|Y": {d("P", 0.99), d("Q", 0.01)},
}

func TestBeamWidthMonotonicity(t *testing.T) {
	tokens := types.FromWords("a", "b")
	prev := 0.0
	scores := make(map[int]float64)
	for width := 1; width <= 4; width++ {
		tagger := newTagger(t, WithSource(gardenPath), WithBeamWidth(width))
		result, err := tagger.TagSentence([]*types.TokenSequence{tokens})
		require.NoError(t, err)
		require.NotEmpty(t, result)
		assert.LessOrEqual(t, len(result), width)
		assert.GreaterOrEqual(t, result[0].Score(), prev)
		prev = result[0].Score()
		scores[width] = prev
		for i := 1; i < len(result); i++ {
			assert.GreaterOrEqual(t, result[i-1].Score(), result[i].Score())
		}
	}
	assert.InDelta(t, math.Sqrt(0.3), scores[1], 1e-12)
	assert.InDelta(t, math.Sqrt(0.4*0.99), scores[2], 1e-12)
}

func TestExplicitAttribute(t *testing.T) {
	steps := stepCounter{}
	tagger := newTagger(t, WithObserver(steps))
	tokens := types.FromWords("Le", "chat", "dort", ".")
	tokens.Tokens[1].Attributes = map[string]string{types.POS_TAG_ATTRIBUTE: "V"}

	best, err := tagger.TagBest(tokens)
	require.NoError(t, err)
	assert.Equal(t, "Le/DET chat/V dort/V ./PONCT", best.String())
	chat := best.Get(1).Decision
	assert.False(t, chat.Statistical)
	assert.Equal(t, 1.0, chat.Probability)
	assert.Equal(t, []string{ATTRIBUTE_AUTHORITY}, chat.Authorities())
	assert.InDelta(t, math.Pow(0.9*0.97*0.99, 1.0/3), best.Score(), 1e-12)
	assert.Zero(t, steps["chat"])
	assert.NotZero(t, steps["dort"])
}

func TestPositiveRule(t *testing.T) {
	steps := stepCounter{}
	tagger := newTagger(t, WithObserver(steps), WithRules(loadRules(t, "dortNC\tNC\tWord()==\"dort\"\n")))
	best, err := tagger.TagBest(types.FromWords("Le", "chat", "dort", "."))
	require.NoError(t, err)
	assert.Equal(t, "Le/DET chat/NC dort/NC ./PONCT", best.String())
	dort := best.Get(2).Decision
	assert.False(t, dort.Statistical)
	assert.Equal(t, []string{"dortNC"}, dort.Authorities())
	assert.Zero(t, steps["dort"])
	assert.InDelta(t, math.Pow(0.9*0.95*0.99, 1.0/3), best.Score(), 1e-12)
}

func TestNegativeRules(t *testing.T) {
	tagger := newTagger(t, WithRules(loadRules(t, "!DET\tWord()==\"Le\"\n")))
	result, err := tagger.TagSentence([]*types.TokenSequence{types.FromWords("Le", "chat")})
	require.NoError(t, err)
	for _, seq := range result {
		assert.Equal(t, "NC", seq.Get(0).Tag.Code)
	}

	metrics := util.NewMetrics()
	tagger = newTagger(t, WithMetrics(metrics), WithBeamWidth(1),
		WithRules(loadRules(t, "!DET\tWord()==\"Le\"\n!NC\tWord()==\"Le\"\n")))
	best, err := tagger.TagBest(types.FromWords("Le", "chat"))
	require.NoError(t, err)
	assert.Equal(t, "Le/DET chat/NC", best.String())
	assertMetric(t, metrics, "beamtag_decision_starvation_total 1")
}

func assertMetric(t *testing.T, metrics *util.Metrics, line string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, metrics.Write(&buf))
	assert.Contains(t, buf.String(), line)
}

func TestProbabilityFloor(t *testing.T) {
	source := wordSource{"Le": {d("DET", 0.9995), d("NC", 0.0005)}}
	tagger := newTagger(t, WithSource(source))
	result, err := tagger.TagSentence([]*types.TokenSequence{types.FromWords("Le")})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Le/DET", result[0].String())

	metrics := util.NewMetrics()
	source = wordSource{"Le": {d("DET", 0.0005), d("NC", 0.0004)}}
	tagger = newTagger(t, WithSource(source), WithMetrics(metrics))
	result, err = tagger.TagSentence([]*types.TokenSequence{types.FromWords("Le")})
	require.NoError(t, err)
	assert.Len(t, result, 2)
	assertMetric(t, metrics, "beamtag_floor_restored_total 1")
}

func TestRenormalise(t *testing.T) {
	source := wordSource{"Le": {d("DET", 0.6), d("NC", 0.2)}}
	tagger := newTagger(t, WithSource(source), WithRenormalise(true))
	best, err := tagger.TagBest(types.FromWords("Le"))
	require.NoError(t, err)
	assert.InDelta(t, 0.75, best.Score(), 1e-12)
}

func TestUnknownTag(t *testing.T) {
	metrics := util.NewMetrics()
	source := wordSource{"dort": {d("ZZZ", 1)}}
	tagger := newTagger(t, WithSource(source), WithMetrics(metrics))
	result, err := tagger.TagSentence([]*types.TokenSequence{types.FromWords("Le", "dort")})
	assert.Nil(t, result)
	var unknown *types.UnknownTagError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ZZZ", unknown.Code)
	assertMetric(t, metrics, "beamtag_sentences_failed_total 1")
}

func TestLexiconConstraint(t *testing.T) {
	tagger := newTagger(t)
	tokens := types.FromWords("Le", "chat")
	tokens.Tokens[0].PossibleTags = []string{"NC"}
	best, err := tagger.TagBest(tokens)
	require.NoError(t, err)
	assert.Equal(t, "Le/NC chat/NC", best.String())

	metrics := util.NewMetrics()
	source := wordSource{"?": {d("PONCT", 0.99), d("DET", 0.01)}}
	tagger = newTagger(t, WithSource(source), WithMetrics(metrics))
	tokens = types.FromWords("?")
	tokens.Tokens[0].PossibleTags = []string{"P"}
	best, err = tagger.TagBest(tokens)
	require.NoError(t, err)
	assert.Equal(t, "?/PONCT", best.String())
	assertMetric(t, metrics, "beamtag_lexicon_restored_total 1")
}

func TestPropagateBeam(t *testing.T) {
	source := wordSource{"du": {d("P", 0.9), d("DET", 0.1)}}
	whole := types.NewTokenSequence("du chat")
	whole.Add(0, 2)
	whole.Add(3, 7)
	whole.Score = 0.6
	split := types.NewTokenSequence("du chat")
	split.Add(0, 2).Attributes = map[string]string{types.POS_TAG_ATTRIBUTE: "P"}
	split.AddEmpty(2, "le")
	split.Add(3, 7)
	split.Score = 0.4
	lattice := []*types.TokenSequence{whole, split}

	tagger := newTagger(t, WithSource(source), WithBeamWidth(4))
	result, err := tagger.TagSentence(lattice)
	require.NoError(t, err)
	for _, seq := range result {
		assert.Same(t, whole, seq.Tokens)
	}

	tagger = newTagger(t, WithSource(source), WithBeamWidth(4), WithPropagateBeam(true))
	result, err = tagger.TagSentence(lattice)
	require.NoError(t, err)
	fromSplit := 0
	for _, seq := range result {
		if seq.Tokens == split {
			fromSplit++
			assert.Equal(t, 3, seq.Len())
		}
	}
	assert.NotZero(t, fromSplit)
	assert.Same(t, whole, result[0].Tokens)
	assert.InDelta(t, 0.6*math.Sqrt(0.9*0.5), result[0].Score(), 1e-12)
}

func TestConsecutiveEmptyTokens(t *testing.T) {
	seq := types.NewTokenSequence("au chat")
	seq.Add(0, 2).Text = "à"
	seq.AddEmpty(2, "le")
	seq.AddEmpty(2, "")
	seq.Add(3, 7)

	tagger := newTagger(t, WithBeamWidth(2))
	best, err := tagger.TagBest(seq)
	require.NoError(t, err)
	assert.Equal(t, 4, best.Len())
	assert.True(t, strings.HasSuffix(best.String(), " chat/NC"), best.String())
}

func TestFilters(t *testing.T) {
	tagger := newTagger(t, WithFilters(types.PrependRootFilter))
	best, err := tagger.TagBest(types.FromWords("Le", "chat"))
	require.NoError(t, err)
	assert.Equal(t, "ROOT/ROOT Le/DET chat/NC", best.String())
	assert.InDelta(t, math.Sqrt(0.9*0.95), best.Score(), 1e-12)
}

func TestNewErrors(t *testing.T) {
	_, err := New(WithSource(sentenceSource))
	assert.Error(t, err)
	_, err = New(WithTagset(testTagset))
	assert.Error(t, err)
	_, err = New(WithTagset(testTagset), WithSource(sentenceSource), WithBeamWidth(0))
	assert.Error(t, err)
}

func TestTagAll(t *testing.T) {
	source := wordSource{
		"Le":   {d("DET", 0.9), d("NC", 0.1)},
		"boum": {d("ZZZ", 1)},
	}
	factory := func() (*Tagger, error) {
		return New(WithTagset(testTagset), WithFeatures(testFeatures(t)), WithSource(source), WithBeamWidth(2))
	}
	sentences := [][]*types.TokenSequence{
		{types.FromWords("Le", "chat")},
		{types.FromWords("Le", "boum")},
		{types.FromWords("chat")},
	}
	results, err := TagAll(context.Background(), factory, sentences, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "Le/DET chat/NC", results[0].Best().String())
	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Best())
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 2, results[2].Index)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = TagAll(ctx, factory, sentences, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvents(t *testing.T) {
	tagger := newTagger(t)
	tokens := types.FromWords("Le", "chat", "dort")
	tokens.Tokens[2].Attributes = map[string]string{types.POS_TAG_ATTRIBUTE: "V"}
	gold, err := tagger.TagBest(tokens)
	require.NoError(t, err)

	events, err := tagger.Events(gold)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "DET", events[0].Outcome)
	assert.Equal(t, "NC", events[1].Outcome)
	var prev string
	for _, r := range events[1].Results {
		if r.Feature == "prev" {
			prev = r.Str()
		}
	}
	assert.Equal(t, "DET", prev)
}

func evaluate(t *testing.T, descriptor string, ctx *Context) *feature.Result {
	t.Helper()
	f, err := feature.NewCompiler(testRegistry).Compile(descriptor)
	require.NoError(t, err, descriptor)
	r, err := feature.Eval(f, ctx, feature.NewEnv())
	require.NoError(t, err, descriptor)
	return r
}

func TestAccessors(t *testing.T) {
	tokens := types.FromWords("Le", "chat", "dort")
	tokens.Tokens[1].Attributes = map[string]string{"lemma": "chat"}
	tokens.Tokens[2].PossibleTags = []string{"V", "NC"}
	det, _ := testTagset.Tag("DET")
	history := types.NewPosTagSequence(tokens).Append(types.NewTaggedToken(tokens.Tokens[0], d("DET", 0.9), det))
	ctx := NewContext(tokens.Tokens[1], history)

	strs := map[string]string{
		`Word()`:                  "chat",
		`Word(Offset(-1))`:        "Le",
		`PosTag(Offset(-1))`:      "DET",
		`Word(Offset(1))`:         "dort",
		`Word(History(1))`:        "Le",
		`Attribute("lemma")`:      "chat",
		`Lower(Word(Offset(-1)))`: "le",
	}
	for desc, expected := range strs {
		r := evaluate(t, desc, ctx)
		require.NotNil(t, r, desc)
		assert.Equal(t, expected, r.Str(), desc)
	}
	for _, desc := range []string{`PosTag()`, `PosTag(Offset(1))`, `Word(Offset(5))`, `Word(History(2))`, `Attribute("x")`, `LexiconPosTags()`} {
		assert.Nil(t, evaluate(t, desc, ctx), desc)
	}
	assert.Equal(t, 1, evaluate(t, `TokenIndex()`, ctx).Int())
	assert.False(t, evaluate(t, `FirstWordInSentence()`, ctx).Bool())
	assert.True(t, evaluate(t, `FirstWordInSentence(Offset(-1))`, ctx).Bool())
	assert.True(t, evaluate(t, `LastWordInSentence(Offset(1))`, ctx).Bool())
	assert.False(t, evaluate(t, `IsEmpty()`, ctx).Bool())
	items := evaluate(t, `LexiconPosTags(Offset(1))`, ctx).Items()
	require.Len(t, items, 2)
	assert.Equal(t, "V", items[0].Value)

	// results on a tagged token are cached on it
	evaluate(t, `Word(Offset(-1))`, ctx)
	assert.NotZero(t, history.Get(0).FeatureCache().Len())
}
