// Package tokeniser decides which atoms of a sentence join into tokens. Only
// atoms that some pattern asks to check are decided statistically; every
// other atom starts a new token.
package tokeniser

import (
	"fmt"
	"strings"

	"github.com/habeanf/beamtag/alg/decision"
	"github.com/habeanf/beamtag/alg/feature"
	"github.com/habeanf/beamtag/alg/pattern"
	"github.com/habeanf/beamtag/alg/search"
	"github.com/habeanf/beamtag/nlp/types"
	"github.com/habeanf/beamtag/util"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DEFAULT_AUTHORITY  = "default"
	COMPOUND_AUTHORITY = "compound"
	DEFAULT_BEAM_WIDTH = 1
	DEFAULT_FLOOR      = 0.001
)

type Mode int

const (
	// Interval decides each checked atom on its own
	Interval Mode = iota
	// Compound decides whole matches at once
	Compound
)

var modeNames = []string{"interval", "compound"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, errors.Errorf("unknown tokeniser mode %q", s)
}

type PatternTokeniser struct {
	Mode      Mode
	Patterns  *pattern.Manager
	Features  *feature.Set
	Source    decision.Source
	BeamWidth int
	Floor     float64
	Log       *zap.Logger
	AgendaOut bool
}

type Option func(*PatternTokeniser)

func WithMode(mode Mode) Option { return func(t *PatternTokeniser) { t.Mode = mode } }
func WithPatterns(m *pattern.Manager) Option { return func(t *PatternTokeniser) { t.Patterns = m } }
func WithFeatures(set *feature.Set) Option { return func(t *PatternTokeniser) { t.Features = set } }
func WithSource(src decision.Source) Option { return func(t *PatternTokeniser) { t.Source = src } }
func WithBeamWidth(width int) Option { return func(t *PatternTokeniser) { t.BeamWidth = width } }
func WithFloor(floor float64) Option { return func(t *PatternTokeniser) { t.Floor = floor } }
func WithLogger(log *zap.Logger) Option { return func(t *PatternTokeniser) { t.Log = log } }
func WithAgendaOut(out bool) Option { return func(t *PatternTokeniser) { t.AgendaOut = out } }

func New(opts ...Option) (*PatternTokeniser, error) {
	t := &PatternTokeniser{BeamWidth: DEFAULT_BEAM_WIDTH, Floor: DEFAULT_FLOOR}
	for _, opt := range opts {
		opt(t)
	}
	if t.Source == nil {
		return nil, errors.New("tokeniser: needs a decision source")
	}
	if t.BeamWidth < 1 {
		return nil, errors.Errorf("tokeniser: beam width must be positive, got %d", t.BeamWidth)
	}
	if t.Patterns == nil {
		m, err := pattern.NewManager(nil)
		if err != nil {
			return nil, err
		}
		t.Patterns = m
	}
	if t.Features == nil {
		t.Features = feature.NewSet()
	}
	t.Log = util.OrNop(t.Log)
	return t, nil
}

// Tokenise returns the candidate tokenisations of text in descending score
// order
func (t *PatternTokeniser) Tokenise(text string) ([]*TokenisedAtomicTokenSequence, error) {
	atoms := Atomise(text)
	start := NewTokenisedAtomicTokenSequence(atoms)
	if atoms.Len() == 0 {
		return []*TokenisedAtomicTokenSequence{start}, nil
	}
	s := newSentence(atoms, t.Patterns.Match(Texts(atoms)))
	for _, m := range s.matches {
		t.Log.Debug("pattern match", zap.Stringer("match", m), zap.String("text", m.Text(s.texts)))
	}
	terminal := float64(atoms.Length())
	beam := &search.Beam{Width: t.BeamWidth, Log: t.Log, AgendaOut: t.AgendaOut}
	expander := search.ExpanderFunc(func(c search.Candidate) ([]search.Expansion, error) {
		seq := c.(*TokenisedAtomicTokenSequence)
		if t.Mode == Compound {
			return t.expandCompound(s, seq)
		}
		return t.expandInterval(s, seq)
	})
	candidates, err := beam.Decode([]search.Candidate{start}, terminal, expander)
	if err != nil {
		return nil, errors.Wrapf(err, "tokenising %q", text)
	}
	result := make([]*TokenisedAtomicTokenSequence, len(candidates))
	for i, c := range candidates {
		result[i] = c.(*TokenisedAtomicTokenSequence)
	}
	return result, nil
}

// Lattice tokenises text into candidate token sequences for the tagger
func (t *PatternTokeniser) Lattice(text string) ([]*types.TokenSequence, error) {
	seqs, err := t.Tokenise(text)
	if err != nil {
		return nil, err
	}
	result := make([]*types.TokenSequence, len(seqs))
	for i, s := range seqs {
		result[i] = s.TokenSequence()
	}
	return result, nil
}

// TokeniseBest returns the best tokenisation of text
func (t *PatternTokeniser) TokeniseBest(text string) (*types.TokenSequence, error) {
	seqs, err := t.Lattice(text)
	if err != nil {
		return nil, err
	}
	return seqs[0], nil
}

func (t *PatternTokeniser) key(s *sentence, last int) float64 {
	atom := s.atoms.Tokens[last]
	return search.HeapKey(atom.Start, atom.End, last == s.atoms.Len()-1, s.atoms.Length())
}

func (t *PatternTokeniser) separate(s *sentence, seq *TokenisedAtomicTokenSequence) []search.Expansion {
	next := seq.Append(decision.Forced(SEPARATE, DEFAULT_AUTHORITY))
	return []search.Expansion{{Key: t.key(s, seq.Len()), Candidate: next}}
}

func (t *PatternTokeniser) expandInterval(s *sentence, seq *TokenisedAtomicTokenSequence) ([]search.Expansion, error) {
	i := seq.Len()
	if i == 0 || !s.tested[i] {
		return t.separate(s, seq), nil
	}
	ctx := newAtomContext(s, i, seq)
	decisions, err := t.decide(ctx)
	if err != nil {
		return nil, err
	}
	key := t.key(s, i)
	expansions := make([]search.Expansion, len(decisions))
	for j, d := range decisions {
		expansions[j] = search.Expansion{Key: key, Candidate: seq.Append(d)}
	}
	return expansions, nil
}

// decide asks the source about a context and keeps JOIN and SEPARATE
// decisions above the floor
func (t *PatternTokeniser) decide(ctx *Context) ([]decision.Decision, error) {
	results, err := t.Features.Extract(ctx, feature.NewEnv())
	if err != nil {
		return nil, err
	}
	decisions, err := t.Source.Decide(results)
	if err != nil {
		return nil, errors.Wrapf(err, "deciding atom %d %q", ctx.Atom, ctx.Text())
	}
	if len(decisions) == 0 {
		return nil, search.ErrNoDecisions
	}
	for _, d := range decisions {
		if d.Outcome != JOIN && d.Outcome != SEPARATE {
			return nil, errors.Errorf("tokeniser: unexpected outcome %q for atom %d", d.Outcome, ctx.Atom)
		}
	}
	decisions, restored := decision.Floor(decisions, t.Floor)
	if restored {
		t.Log.Warn("every decision below probability floor, restoring",
			zap.Int("atom", ctx.Atom), zap.Float64("floor", t.Floor))
	}
	return decisions, nil
}

// joinProbability is the source's JOIN probability for a match
func (t *PatternTokeniser) joinProbability(s *sentence, m *pattern.Match, seq *TokenisedAtomicTokenSequence) (float64, []string, error) {
	ctx := newMatchContext(s, m, seq)
	results, err := t.Features.Extract(ctx, feature.NewEnv())
	if err != nil {
		return 0, nil, err
	}
	decisions, err := t.Source.Decide(results)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "deciding match %v", m)
	}
	if len(decisions) == 0 {
		return 0, nil, search.ErrNoDecisions
	}
	for _, d := range decisions {
		if d.Outcome == JOIN {
			return d.Probability, d.Authorities(), nil
		}
	}
	return 0, nil, nil
}

type span struct {
	match       *pattern.Match
	p           float64
	authorities []string
}

// spans merges matches starting at the same atom with identical ends. The
// merged span keeps the highest join probability; ties go to the earlier
// pattern.
func (t *PatternTokeniser) spans(s *sentence, matches []*pattern.Match, seq *TokenisedAtomicTokenSequence) ([]*span, error) {
	var spans []*span
	byEnd := make(map[int]*span)
	for _, m := range matches {
		p, authorities, err := t.joinProbability(s, m, seq)
		if err != nil {
			return nil, err
		}
		if existing, ok := byEnd[m.End]; ok {
			t.Log.Debug("merging matches over the same span",
				zap.Stringer("kept", existing.match), zap.Stringer("other", m),
				zap.Float64("keptP", existing.p), zap.Float64("otherP", p))
			if p > existing.p {
				existing.match, existing.p, existing.authorities = m, p, authorities
			}
			continue
		}
		sp := &span{match: m, p: p, authorities: authorities}
		byEnd[m.End] = sp
		spans = append(spans, sp)
	}
	return spans, nil
}

// partition gives, for spans ordered shortest first, the probability that
// span j is the longest one joined, and last the probability that none is
func partition(spans []*span) []float64 {
	k := len(spans)
	probs := make([]float64, k+1)
	none := 1.0
	for j := k - 1; j >= 0; j-- {
		probs[j] = spans[j].p * none
		none *= 1 - spans[j].p
	}
	probs[k] = none
	return probs
}

func (t *PatternTokeniser) expandCompound(s *sentence, seq *TokenisedAtomicTokenSequence) ([]search.Expansion, error) {
	i := seq.Len()
	if len(s.starting[i]) == 0 {
		return t.separate(s, seq), nil
	}
	spans, err := t.spans(s, s.starting[i], seq)
	if err != nil {
		return nil, err
	}
	probs := partition(spans)
	keep := make([]bool, len(probs))
	kept := 0
	for j, p := range probs {
		if p >= t.Floor {
			keep[j] = true
			kept++
		}
	}
	if kept == 0 {
		t.Log.Warn("every partition below probability floor, restoring",
			zap.Int("atom", i), zap.Float64("floor", t.Floor))
		for j := range keep {
			keep[j] = true
		}
	}

	var expansions []search.Expansion
	for j, sp := range spans {
		if !keep[j] {
			continue
		}
		m := sp.match
		next := seq
		for a := m.Start; a < m.End; a++ {
			outcome := SEPARATE
			if a > 0 && m.Checks(a) {
				outcome = JOIN
			}
			if a == m.Start {
				next = next.Append(decision.New(outcome, probs[j], sp.authorities...).WithAuthority(m.Pattern.Name))
			} else {
				next = next.Append(decision.Forced(outcome, m.Pattern.Name))
			}
		}
		expansions = append(expansions, search.Expansion{Key: t.key(s, m.End-1), Candidate: next})
	}
	if keep[len(spans)] {
		next := seq.Append(decision.New(SEPARATE, probs[len(spans)], COMPOUND_AUTHORITY))
		expansions = append(expansions, search.Expansion{Key: t.key(s, i), Candidate: next})
	}
	return expansions, nil
}
