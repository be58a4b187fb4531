// Package postag assigns part-of-speech tags with a beam search over the
// candidate token sequences of a sentence.
package postag

import (
	"time"

	"github.com/habeanf/beamtag/alg/decision"
	"github.com/habeanf/beamtag/alg/feature"
	"github.com/habeanf/beamtag/alg/rules"
	"github.com/habeanf/beamtag/alg/search"
	"github.com/habeanf/beamtag/nlp/types"
	"github.com/habeanf/beamtag/util"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	ATTRIBUTE_AUTHORITY = "attribute"
	DEFAULT_BEAM_WIDTH  = 1
	DEFAULT_FLOOR       = 0.001
)

// Observer is told about every statistical step
type Observer interface {
	OnStep(token *types.Token, results []*feature.Result, decisions []decision.Decision)
}

type ObserverFunc func(token *types.Token, results []*feature.Result, decisions []decision.Decision)

func (f ObserverFunc) OnStep(token *types.Token, results []*feature.Result, decisions []decision.Decision) {
	f(token, results, decisions)
}

type Tagger struct {
	Tagset      *types.Tagset
	Features    *feature.Set
	Source      decision.Source
	Rules       *rules.Rules
	Filters     []types.Filter
	BeamWidth   int
	Propagate   bool
	Floor       float64
	Renormalise bool
	Observer    Observer
	Log         *zap.Logger
	Metrics     *util.Metrics

	// ShowFeats logs every feature result at debug level
	ShowFeats bool
	AgendaOut bool
}

type Option func(*Tagger)

func WithTagset(ts *types.Tagset) Option { return func(t *Tagger) { t.Tagset = ts } }
func WithFeatures(set *feature.Set) Option { return func(t *Tagger) { t.Features = set } }
func WithSource(src decision.Source) Option { return func(t *Tagger) { t.Source = src } }
func WithRules(rs *rules.Rules) Option { return func(t *Tagger) { t.Rules = rs } }
func WithFilters(filters ...types.Filter) Option { return func(t *Tagger) { t.Filters = filters } }
func WithBeamWidth(width int) Option { return func(t *Tagger) { t.BeamWidth = width } }
func WithPropagateBeam(propagate bool) Option { return func(t *Tagger) { t.Propagate = propagate } }
func WithFloor(floor float64) Option { return func(t *Tagger) { t.Floor = floor } }
func WithRenormalise(renormalise bool) Option { return func(t *Tagger) { t.Renormalise = renormalise } }
func WithObserver(o Observer) Option { return func(t *Tagger) { t.Observer = o } }
func WithLogger(log *zap.Logger) Option { return func(t *Tagger) { t.Log = log } }
func WithMetrics(m *util.Metrics) Option { return func(t *Tagger) { t.Metrics = m } }
func WithShowFeats(show bool) Option { return func(t *Tagger) { t.ShowFeats = show } }

func New(opts ...Option) (*Tagger, error) {
	t := &Tagger{BeamWidth: DEFAULT_BEAM_WIDTH, Floor: DEFAULT_FLOOR}
	for _, opt := range opts {
		opt(t)
	}
	if t.Tagset == nil {
		return nil, errors.New("postag: tagger needs a tagset")
	}
	if t.Source == nil {
		return nil, errors.New("postag: tagger needs a decision source")
	}
	if t.BeamWidth < 1 {
		return nil, errors.Errorf("postag: beam width must be positive, got %d", t.BeamWidth)
	}
	if t.Features == nil {
		t.Features = feature.NewSet()
	}
	if t.Rules == nil {
		t.Rules = &rules.Rules{}
	}
	t.Log = util.OrNop(t.Log)
	return t, nil
}

// TagSentence decodes the candidate token sequences of one sentence and
// returns the tagged sequences in descending score order
func (t *Tagger) TagSentence(seqs []*types.TokenSequence) ([]*types.PosTagSequence, error) {
	if len(seqs) == 0 {
		return nil, nil
	}
	start := time.Now()
	if !t.Propagate {
		seqs = seqs[:1]
	}
	initial := make([]search.Candidate, len(seqs))
	for i, s := range seqs {
		initial[i] = types.NewPosTagSequence(s)
	}
	terminal := float64(seqs[0].Length())
	beam := &search.Beam{Width: t.BeamWidth, Log: t.Log, AgendaOut: t.AgendaOut}
	expander := search.ExpanderFunc(func(c search.Candidate) ([]search.Expansion, error) {
		return t.expand(c.(*types.PosTagSequence), terminal)
	})
	candidates, err := beam.Decode(initial, terminal, expander)
	if err != nil {
		t.Metrics.Failed()
		return nil, errors.Wrapf(err, "tagging %q", seqs[0].Text)
	}
	result := make([]*types.PosTagSequence, len(candidates))
	for i, c := range candidates {
		result[i] = c.(*types.PosTagSequence)
		for _, f := range t.Filters {
			f.Apply(result[i])
		}
	}
	t.Metrics.Tagged(time.Since(start), len(result))
	return result, nil
}

// TagBest returns the best tagging of a single token sequence
func (t *Tagger) TagBest(seq *types.TokenSequence) (*types.PosTagSequence, error) {
	result, err := t.TagSentence([]*types.TokenSequence{seq})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, errors.New("postag: no tagging returned")
	}
	return result[0], nil
}

func (t *Tagger) expand(seq *types.PosTagSequence, terminal float64) ([]search.Expansion, error) {
	token := seq.NextToken()
	if token == nil {
		return []search.Expansion{{Key: terminal, Candidate: seq}}, nil
	}
	last := token.Index == seq.Tokens.Len()-1
	key := search.HeapKey(token.Start, token.End, last, seq.Tokens.Length())
	decisions, err := t.Decide(token, seq)
	if err != nil {
		return nil, err
	}
	expansions := make([]search.Expansion, 0, len(decisions))
	for _, d := range decisions {
		tag, err := t.Tagset.Tag(d.Outcome)
		if err != nil {
			return nil, err
		}
		expansions = append(expansions, search.Expansion{
			Key:       key,
			Candidate: seq.Append(types.NewTaggedToken(token, d, tag)),
		})
	}
	return expansions, nil
}

// Decide returns the decisions for the next token after history
func (t *Tagger) Decide(token *types.Token, history *types.PosTagSequence) ([]decision.Decision, error) {
	if forced, ok := forcedTag(token); ok {
		return []decision.Decision{decision.Forced(forced, ATTRIBUTE_AUTHORITY)}, nil
	}
	ctx := NewContext(token, history)
	env := feature.NewEnv()
	rule, err := t.Rules.Match(ctx, env)
	if err != nil {
		return nil, err
	}
	if rule != nil {
		return []decision.Decision{decision.Forced(rule.Tag, rule.Name)}, nil
	}

	results, err := t.Features.Extract(ctx, env)
	if err != nil {
		return nil, err
	}
	if t.ShowFeats {
		for _, r := range results {
			t.Log.Debug("feature", zap.String("token", token.Text), zap.Stringer("result", r))
		}
	}
	decisions, err := t.Source.Decide(results)
	if err != nil {
		return nil, errors.Wrapf(err, "deciding %q", token.Text)
	}
	if len(decisions) == 0 {
		return nil, search.ErrNoDecisions
	}

	decisions, restored, err := t.Rules.Prune(ctx, env, decisions, t.Log)
	if err != nil {
		return nil, err
	}
	if restored {
		t.Metrics.Starved()
	}
	decisions, restored = t.constrain(token, decisions)
	if restored {
		t.Metrics.LexiconRestore()
	}
	decisions, restored = decision.Floor(decisions, t.Floor)
	if restored {
		t.Metrics.FloorRestore()
		t.Log.Warn("every decision below probability floor, restoring",
			zap.String("token", token.Text), zap.Float64("floor", t.Floor))
	}
	if t.Renormalise {
		decisions = decision.Renormalise(decisions)
	}
	if t.Observer != nil {
		t.Observer.OnStep(token, results, decisions)
	}
	return decisions, nil
}

func forcedTag(token *types.Token) (string, bool) {
	tag, ok := token.Attribute(types.POS_TAG_ATTRIBUTE)
	return tag, ok && tag != ""
}

// constrain drops closed-class outcomes the lexicon does not allow for token
func (t *Tagger) constrain(token *types.Token, decisions []decision.Decision) ([]decision.Decision, bool) {
	if len(token.PossibleTags) == 0 {
		return decisions, false
	}
	possible := make(map[string]bool, len(token.PossibleTags))
	for _, tag := range token.PossibleTags {
		possible[tag] = true
	}
	kept := make([]decision.Decision, 0, len(decisions))
	for _, d := range decisions {
		tag, err := t.Tagset.Tag(d.Outcome)
		if err != nil || tag.Open || possible[d.Outcome] {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		t.Log.Debug("lexicon allows no decision, restoring", zap.String("token", token.Text))
		return decisions, true
	}
	return kept, false
}
