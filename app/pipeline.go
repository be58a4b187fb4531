package app

import (
	"os"

	"github.com/habeanf/beamtag/alg/decision"
	"github.com/habeanf/beamtag/alg/feature"
	"github.com/habeanf/beamtag/alg/pattern"
	"github.com/habeanf/beamtag/alg/perceptron"
	"github.com/habeanf/beamtag/alg/rules"
	"github.com/habeanf/beamtag/nlp/lexicon"
	"github.com/habeanf/beamtag/nlp/postag"
	"github.com/habeanf/beamtag/nlp/tokeniser"
	"github.com/habeanf/beamtag/nlp/types"
	"github.com/habeanf/beamtag/util"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const LEXICON_RESOURCE = "lexicon"

// Pipeline holds everything loaded from the configured files. Compiled
// features, rules and sources are shared by every tagger it creates.
type Pipeline struct {
	Config  *Config
	Log     *zap.Logger
	Metrics *util.Metrics

	Tagset   *types.Tagset
	Lexicon  *lexicon.Lexicon
	Registry *feature.Registry
	Features *feature.Set
	Rules    *rules.Rules
	Source   decision.Source

	Patterns  []*pattern.TokenPattern
	Tokeniser *tokeniser.PatternTokeniser
}

func NewPipeline(cfg *Config, log *zap.Logger, metrics *util.Metrics) (*Pipeline, error) {
	p := &Pipeline{Config: cfg, Log: util.OrNop(log), Metrics: metrics}
	for _, load := range []func() error{
		p.loadTagset,
		p.loadResources,
		p.loadTagger,
		p.loadSource,
		p.loadTokeniser,
	} {
		if err := load(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Pipeline) logFile(kind, filename string) {
	sum, size, err := util.FileDigest(filename)
	if err != nil {
		p.Log.Warn("checksum failed", zap.String("kind", kind), zap.String("file", filename), zap.Error(err))
		return
	}
	p.Log.Info("loaded", zap.String("kind", kind), zap.String("file", filename), zap.String("md5", sum), zap.Int64("bytes", size))
}

func (p *Pipeline) loadTagset() error {
	filename := p.Config.Files.Tagset
	if filename == "" {
		return errors.New("no tagset configured (files.tagset / -tagset)")
	}
	ts, err := types.LoadTagsetFile(filename)
	if err != nil {
		return err
	}
	p.Tagset = ts
	p.logFile("tagset", filename)
	p.Log.Info("tagset", zap.String("name", ts.Name), zap.Stringer("locale", ts.Locale), zap.Int("tags", ts.Len()))
	return nil
}

// loadResources fills the base registry shared by tagger and tokeniser
func (p *Pipeline) loadResources() error {
	base := feature.NewRegistry()
	base.Locale = p.Tagset.Locale
	files, err := p.Config.ResourceFiles()
	if err != nil {
		return err
	}
	for name, filename := range files {
		f, err := os.Open(filename)
		if err != nil {
			return errors.Wrapf(err, "resource %s", name)
		}
		res, err := feature.LoadTableResource(name, f)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "resource %s", filename)
		}
		base.AddResource(name, res)
		p.logFile("resource "+name, filename)
	}
	if filename := p.Config.Files.Lexicon; filename != "" {
		lex, err := lexicon.LoadFile(filename, p.Tagset.Locale)
		if err != nil {
			return err
		}
		if err := lex.Validate(p.Tagset); err != nil {
			return err
		}
		p.Lexicon = lex
		base.AddResource(LEXICON_RESOURCE, lex)
		p.logFile("lexicon", filename)
		p.Log.Info("lexicon", zap.Int("words", lex.Len()))
	}
	p.Registry = base
	return nil
}

func (p *Pipeline) loadTagger() error {
	reg := postag.NewRegistry(p.Registry)
	loader := &feature.Loader{Registry: reg, Log: p.Log}
	p.Features = feature.NewSet()
	if filename := p.Config.Files.Features; filename != "" {
		set, err := loader.LoadFile(filename)
		if err != nil {
			return err
		}
		p.Features = set.Select(p.Config.Features.Groups...)
		p.logFile("features", filename)
		p.Log.Info("features", zap.Int("loaded", len(set.Features)), zap.Int("selected", len(p.Features.Features)), zap.Strings("groups", p.Config.Features.Groups))
	}
	p.Rules = &rules.Rules{}
	if filename := p.Config.Files.Rules; filename != "" {
		rs, err := rules.LoadFile(filename, feature.NewCompiler(reg))
		if err != nil {
			return err
		}
		p.Rules = rs
		p.logFile("rules", filename)
		p.Log.Info("rules", zap.Int("rules", rs.Len()))
	}
	return nil
}

// loadSource prefers a trained model over a decision table. Having neither
// is not an error here; training starts without a source.
func (p *Pipeline) loadSource() error {
	switch {
	case p.Config.Files.Model != "":
		filename := p.Config.Files.Model
		f, err := os.Open(filename)
		if err != nil {
			return errors.Wrap(err, "opening model")
		}
		defer f.Close()
		model, err := perceptron.Read(f)
		if err != nil {
			return errors.Wrapf(err, "model %s", filename)
		}
		p.Source = model
		p.logFile("model", filename)
		p.Log.Info("model", zap.Strings("outcomes", model.Outcomes))
	case p.Config.Files.Table != "":
		table, err := decision.LoadTableFile(p.Config.Files.Table)
		if err != nil {
			return err
		}
		p.Source = table
		p.logFile("decision table", p.Config.Files.Table)
	}
	return nil
}

// separateAll splits at every checked atom when no tokeniser table is given
var separateAll = decision.SourceFunc(func(results []*feature.Result) ([]decision.Decision, error) {
	return []decision.Decision{decision.New(tokeniser.SEPARATE, 1, tokeniser.DEFAULT_AUTHORITY)}, nil
})

func (p *Pipeline) loadTokeniser() error {
	mode, err := tokeniser.ParseMode(p.Config.Tokeniser.Mode)
	if err != nil {
		return err
	}
	if filename := p.Config.Files.Patterns; filename != "" {
		patterns, err := pattern.LoadPatternsFile(filename)
		if err != nil {
			return err
		}
		p.Patterns = patterns
		p.logFile("patterns", filename)
	}
	manager, err := pattern.NewManager(p.Patterns)
	if err != nil {
		return err
	}
	features := feature.NewSet()
	if filename := p.Config.Files.TokeniserFeatures; filename != "" {
		loader := &feature.Loader{Registry: tokeniser.NewRegistry(p.Registry), Log: p.Log}
		if features, err = loader.LoadFile(filename); err != nil {
			return err
		}
		p.logFile("tokeniser features", filename)
	}
	var source decision.Source = separateAll
	if filename := p.Config.Files.TokeniserTable; filename != "" {
		table, err := decision.LoadTableFile(filename)
		if err != nil {
			return err
		}
		source = table
		p.logFile("tokeniser table", filename)
	}
	tok, err := tokeniser.New(
		tokeniser.WithMode(mode),
		tokeniser.WithPatterns(manager),
		tokeniser.WithFeatures(features),
		tokeniser.WithSource(source),
		tokeniser.WithBeamWidth(p.Config.Beam.Width),
		tokeniser.WithFloor(p.Config.Tagger.Floor),
		tokeniser.WithLogger(p.Log.Named("tokeniser")),
	)
	if err != nil {
		return err
	}
	p.Tokeniser = tok
	return nil
}

// TaggerOptions are the configured tagger options; extra options apply last
func (p *Pipeline) TaggerOptions(extra ...postag.Option) []postag.Option {
	opts := []postag.Option{
		postag.WithTagset(p.Tagset),
		postag.WithFeatures(p.Features),
		postag.WithRules(p.Rules),
		postag.WithBeamWidth(p.Config.Beam.Width),
		postag.WithPropagateBeam(p.Config.Beam.Propagate),
		postag.WithFloor(p.Config.Tagger.Floor),
		postag.WithRenormalise(p.Config.Tagger.Renormalise),
		postag.WithLogger(p.Log.Named("tagger")),
		postag.WithMetrics(p.Metrics),
	}
	if p.Source != nil {
		opts = append(opts, postag.WithSource(p.Source))
	}
	return append(opts, extra...)
}

func (p *Pipeline) NewTagger(extra ...postag.Option) (*postag.Tagger, error) {
	if p.Source == nil && len(extra) == 0 {
		return nil, errors.New("no model or decision table configured (files.model / files.table)")
	}
	return postag.New(p.TaggerOptions(extra...)...)
}

// Annotate attaches lexicon tags to every candidate tokenisation
func (p *Pipeline) Annotate(seqs ...*types.TokenSequence) {
	if p.Lexicon == nil {
		return
	}
	for _, seq := range seqs {
		p.Lexicon.Annotate(seq)
	}
}
