package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/habeanf/beamtag/alg/decision"
	"github.com/habeanf/beamtag/alg/feature"
	"github.com/habeanf/beamtag/alg/pattern"
	"github.com/habeanf/beamtag/alg/perceptron"
	"github.com/habeanf/beamtag/nlp/format/conll"
	"github.com/habeanf/beamtag/nlp/tokeniser"
	"github.com/habeanf/beamtag/util"

	"github.com/gonuts/flag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testTagset = "ftb\tfr\n" +
		"DET\tdeterminer\tclosed\n" +
		"NC\tcommon noun\topen\n" +
		"V\tverb\topen\n" +
		"PONCT\tpunctuation\tclosed\n"

	testFeatures = "word\tWord()\n"

	testTable = `feature: word
rows:
  - value: Le
    outcomes: {DET: 0.9, NC: 0.1}
  - value: chat
    outcomes: {NC: 0.95, V: 0.05}
  - value: dort
    outcomes: {V: 0.97, NC: 0.03}
  - value: "."
    outcomes: {PONCT: 0.99, NC: 0.01}
default: {NC: 0.5, V: 0.5}
`

	testLexicon = "Le\tDET\n.\tPONCT\n"

	testGold = "1\tLe\tDET\n2\tchat\tNC\n3\tdort\tV\n4\t.\tPONCT\n"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func parseFlags(t *testing.T, args ...string) *flag.FlagSet {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	ConfigFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "beamtag.yaml", `
beam:
  width: 3
files:
  tagset: ftb.tagset
  tokeniserFeatures: tok.features
features:
  groups: [lexical]
`)
	t.Setenv("BEAMTAG_TAGGER_WORKERS", "4")

	cfg, err := LoadConfig(path, parseFlags(t, "-b", "5", "-res", "suf=suffixes.tsv,pre=prefixes.tsv"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Beam.Width)
	assert.Equal(t, 4, cfg.Tagger.Workers)
	assert.InDelta(t, 0.001, cfg.Tagger.Floor, 1e-12)
	assert.Equal(t, "ftb.tagset", cfg.Files.Tagset)
	assert.Equal(t, "tok.features", cfg.Files.TokeniserFeatures)
	assert.Equal(t, []string{"lexical"}, cfg.Features.Groups)
	assert.Equal(t, "interval", cfg.Tokeniser.Mode)

	resources, err := cfg.ResourceFiles()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"suf": "suffixes.tsv", "pre": "prefixes.tsv"}, resources)

	fromFile, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, fromFile.Beam.Width)
}

func TestLoadConfigInvalid(t *testing.T) {
	_, err := LoadConfig("", parseFlags(t, "-b", "0"))
	assert.Error(t, err)

	_, err = LoadConfig("", parseFlags(t, "-mode", "greedy"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	cfg, err := LoadConfig("", parseFlags(t, "-res", "nopath"))
	require.NoError(t, err)
	_, err = cfg.ResourceFiles()
	assert.Error(t, err)
}

func testPipeline(t *testing.T, extra ...string) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	args := append([]string{
		"-tagset", writeFile(t, dir, "ftb.tagset", testTagset),
		"-f", writeFile(t, dir, "pos.features", testFeatures),
		"-table", writeFile(t, dir, "pos.yaml", testTable),
		"-lex", writeFile(t, dir, "ftb.lex", testLexicon),
	}, extra...)
	cfg, err := LoadConfig("", parseFlags(t, args...))
	require.NoError(t, err)
	p, err := NewPipeline(cfg, zap.NewNop(), util.NewMetrics())
	require.NoError(t, err)
	return p, dir
}

func TestPipelineTag(t *testing.T) {
	p, dir := testPipeline(t)
	assert.Equal(t, 4, p.Tagset.Len())
	assert.Equal(t, 2, p.Lexicon.Len())
	require.Len(t, p.Features.Features, 1)

	sentences, err := p.ReadSentences(writeFile(t, dir, "in.conll", "1\tLe\n2\tchat\n3\tdort\n4\t.\n"), FORMAT_CONLL, false)
	require.NoError(t, err)
	require.Len(t, sentences.Sentences, 1)
	assert.Equal(t, []string{"DET"}, sentences.Sentences[0][0].Tokens[0].PossibleTags)

	results, err := p.Tag(sentences)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "Le/DET chat/NC dort/V ./PONCT", results[0].Best().String())

	raw, err := p.ReadSentences(writeFile(t, dir, "in.txt", "Le chat dort .\n\n"), FORMAT_TEXT, false)
	require.NoError(t, err)
	require.Len(t, raw.Sentences, 1)
	assert.NoError(t, raw.Err(0))
	assert.Equal(t, []string{"Le", "chat", "dort", "."}, raw.Sentences[0][0].Words())

	results, err = p.Tag(raw)
	require.NoError(t, err)
	assert.Equal(t, "Le/DET chat/NC dort/V ./PONCT", results[0].Best().String())

	tokens, err := p.ReadSentences(writeFile(t, dir, "in.raw", "Le\nchat\n\nIl\npleut\n"), FORMAT_RAW, false)
	require.NoError(t, err)
	require.Len(t, tokens.Sentences, 2)
	results, err = p.Tag(tokens)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTagged(&buf, FORMAT_TAGGED, tokens.Sentences, results))
	assert.Equal(t, "Le/DET chat/NC\nIl/NC pleut/NC\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteTagged(&buf, FORMAT_CONLL, tokens.Sentences[:1], results[:1]))
	assert.Equal(t, "1\tLe\t_\tDET\tDET\t_\t_\t_\t_\t_\n2\tchat\t_\tNC\tNC\t_\t_\t_\t_\t_\n\n", buf.String())

	assert.Error(t, WriteTagged(&buf, FORMAT_RAW, tokens.Sentences, results))
	_, err = p.ReadSentences(writeFile(t, dir, "in.xml", "<s/>"), "xml", false)
	assert.Error(t, err)
}

func TestPipelineTokeniserFailure(t *testing.T) {
	p, dir := testPipeline(t)
	manager, err := pattern.NewManager([]*pattern.TokenPattern{pattern.MustCompile("parce que", "", `parce\ que`)})
	require.NoError(t, err)
	broken := decision.SourceFunc(func(results []*feature.Result) ([]decision.Decision, error) {
		return nil, errors.New("no join model")
	})
	p.Tokeniser, err = tokeniser.New(tokeniser.WithPatterns(manager), tokeniser.WithSource(broken))
	require.NoError(t, err)

	in, err := p.ReadSentences(writeFile(t, dir, "in.txt", "Il part parce que il pleut\nLe chat dort .\n"), FORMAT_TEXT, false)
	require.NoError(t, err)
	require.Len(t, in.Sentences, 2)
	assert.Error(t, in.Err(0))
	assert.NoError(t, in.Err(1))
	assert.Equal(t, []string{"Il part parce que il pleut"}, in.Sentences[0][0].Words())

	results, err := p.Tag(in)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.ErrorContains(t, results[0].Err, "no join model")
	assert.Equal(t, 0, results[0].Index)
	assert.Nil(t, results[0].Best())
	require.NoError(t, results[1].Err)
	assert.Equal(t, 1, results[1].Index)
	assert.Equal(t, "Le/DET chat/NC dort/V ./PONCT", results[1].Best().String())

	var buf bytes.Buffer
	require.NoError(t, WriteTagged(&buf, FORMAT_TAGGED, in.Sentences, results))
	assert.Equal(t, "Il_part_parce_que_il_pleut\nLe/DET chat/NC dort/V ./PONCT\n", buf.String())
}

func TestPipelineGoldAttributes(t *testing.T) {
	p, dir := testPipeline(t)
	sentences, err := p.ReadSentences(writeFile(t, dir, "gold.txt", "Le/DET chat/V\n"), FORMAT_TAGGED, true)
	require.NoError(t, err)
	results, err := p.Tag(sentences)
	require.NoError(t, err)
	assert.Equal(t, "Le/DET chat/V", results[0].Best().String())
}

func TestPipelineNeedsTagset(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	_, err = NewPipeline(cfg, nil, nil)
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	p, _ := testPipeline(t)
	gold, err := conll.Read(strings.NewReader(testGold + "\n1\tLe\tDET\n2\tchat\tV\n"))
	require.NoError(t, err)

	total, err := p.Evaluate(gold)
	require.NoError(t, err)
	assert.Equal(t, 2, total.Population)
	assert.Equal(t, 1, total.Exact)
	assert.Equal(t, 5, total.TP)
	assert.Equal(t, 1, total.FP)

	var buf bytes.Buffer
	WriteReport(&buf, total, 0)
	assert.Contains(t, buf.String(), "exact 1/2")
	assert.Contains(t, buf.String(), "V->NC\t1\n")
}

func TestTrain(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig("", parseFlags(t,
		"-tagset", writeFile(t, dir, "ftb.tagset", testTagset),
		"-f", writeFile(t, dir, "pos.features", testFeatures)))
	require.NoError(t, err)
	p, err := NewPipeline(cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Nil(t, p.Source)
	_, err = p.NewTagger()
	assert.Error(t, err)

	gold, err := conll.Read(strings.NewReader(testGold))
	require.NoError(t, err)
	model, err := p.Train(gold, 3, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"DET", "NC", "PONCT", "V"}, model.Outcomes)

	var buf bytes.Buffer
	require.NoError(t, model.Write(&buf))
	read, err := perceptron.Read(&buf)
	require.NoError(t, err)
	p.Source = read
	tagger, err := p.NewTagger()
	require.NoError(t, err)
	tagged, err := tagger.TagBest(gold[0].TokenSequence(false))
	require.NoError(t, err)
	assert.Equal(t, 4, tagged.Len())

	_, err = p.Train(conll.Sentences{}, 3, true)
	assert.Error(t, err)
}
