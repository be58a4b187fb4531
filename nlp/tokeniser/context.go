package tokeniser

import (
	"github.com/habeanf/beamtag/alg/feature"
	"github.com/habeanf/beamtag/alg/pattern"
	"github.com/habeanf/beamtag/nlp/types"

	"github.com/pkg/errors"
)

// sentence holds what every context of one sentence shares
type sentence struct {
	atoms    *types.TokenSequence
	texts    pattern.AtomSequence
	matches  []*pattern.Match
	covering [][]*pattern.Match
	starting [][]*pattern.Match
	tested   []bool
}

func newSentence(atoms *types.TokenSequence, matches []*pattern.Match) *sentence {
	n := atoms.Len()
	s := &sentence{
		atoms:    atoms,
		texts:    Texts(atoms),
		matches:  matches,
		covering: make([][]*pattern.Match, n),
		starting: make([][]*pattern.Match, n),
		tested:   make([]bool, n),
	}
	for _, m := range matches {
		if m.End <= m.Start {
			continue
		}
		s.starting[m.Start] = append(s.starting[m.Start], m)
		for i := m.Start; i < m.End; i++ {
			s.covering[i] = append(s.covering[i], m)
		}
		for _, i := range m.ToCheck {
			s.tested[i] = true
		}
	}
	return s
}

// Context is an atom seen from a tokenisation history, together with the
// pattern matches in question. An AtomContext holds every match covering the
// atom; a MatchContext holds the one match being decided, focused on its
// first atom.
type Context struct {
	Atom    int
	Matches []*pattern.Match
	History *TokenisedAtomicTokenSequence

	sentence *sentence
	cache    *feature.Cache
}

func newAtomContext(s *sentence, atom int, history *TokenisedAtomicTokenSequence) *Context {
	return &Context{Atom: atom, Matches: s.covering[atom], History: history, sentence: s, cache: feature.NewCache()}
}

func newMatchContext(s *sentence, m *pattern.Match, history *TokenisedAtomicTokenSequence) *Context {
	return &Context{Atom: m.Start, Matches: []*pattern.Match{m}, History: history, sentence: s, cache: feature.NewCache()}
}

func (c *Context) FeatureCache() *feature.Cache {
	return c.cache
}

func (c *Context) Text() string {
	return c.sentence.texts[c.Atom]
}

// At addresses another atom as an atom context, uncached
func (c *Context) At(atom int) *Context {
	if atom < 0 || atom >= len(c.sentence.texts) {
		return nil
	}
	return &Context{Atom: atom, Matches: c.sentence.covering[atom], History: c.History, sentence: c.sentence}
}

func tokContext(ctx feature.Context) (*Context, error) {
	c, ok := ctx.(*Context)
	if !ok {
		return nil, errors.Errorf("feature needs a tokeniser context, got %T", ctx)
	}
	return c, nil
}

func accessor(typ feature.Type, get func(c *Context) (interface{}, bool)) feature.Builder {
	return feature.Accessor(typ, func(ctx feature.Context, env *feature.Env) (interface{}, bool, error) {
		c, err := tokContext(ctx)
		if err != nil {
			return nil, false, err
		}
		v, ok := get(c)
		return v, ok, nil
	})
}

func firstMatch(c *Context) *pattern.Match {
	if len(c.Matches) == 0 {
		return nil
	}
	return c.Matches[0]
}

// Register adds the tokeniser accessors to reg
func Register(reg *feature.Registry) {
	reg.Register("Word", accessor(feature.StringType, func(c *Context) (interface{}, bool) {
		return c.Text(), true
	}))
	reg.Register("IsSeparator", accessor(feature.BooleanType, func(c *Context) (interface{}, bool) {
		return pattern.IsSeparatorAtom(c.Text()), true
	}))
	reg.Register("IsWhitespace", accessor(feature.BooleanType, func(c *Context) (interface{}, bool) {
		return pattern.IsWhitespace(c.Text()), true
	}))
	reg.Register("InPattern", accessor(feature.CollectionType, func(c *Context) (interface{}, bool) {
		if len(c.Matches) == 0 {
			return nil, false
		}
		items := make([]feature.WeightedValue, len(c.Matches))
		for i, m := range c.Matches {
			items[i] = feature.WeightedValue{Value: m.Pattern.Name, Weight: 1}
		}
		return items, true
	}))
	reg.Register("PatternName", accessor(feature.StringType, func(c *Context) (interface{}, bool) {
		if m := firstMatch(c); m != nil {
			return m.Pattern.Name, true
		}
		return nil, false
	}))
	reg.Register("PatternGroup", accessor(feature.StringType, func(c *Context) (interface{}, bool) {
		if m := firstMatch(c); m != nil && m.Pattern.Group != "" {
			return m.Pattern.Group, true
		}
		return nil, false
	}))
	reg.Register("PatternWordForm", accessor(feature.StringType, func(c *Context) (interface{}, bool) {
		if m := firstMatch(c); m != nil {
			return m.Text(c.sentence.texts), true
		}
		return nil, false
	}))
	reg.Register("PreviousDecision", accessor(feature.StringType, func(c *Context) (interface{}, bool) {
		d, ok := c.History.Outcome(c.Atom - 1)
		if !ok {
			return nil, false
		}
		return d.Outcome, true
	}))
	reg.Register("Offset", feature.Builder{
		Args: []feature.Type{feature.IntegerType},
		Build: func(name string, args []feature.Feature) (feature.Feature, error) {
			return feature.NewFunction(name, feature.AddressType, args, func(ctx feature.Context, env *feature.Env, args []feature.Feature) (interface{}, bool, error) {
				c, err := tokContext(ctx)
				if err != nil {
					return nil, false, err
				}
				ops, ok, err := feature.Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				t := c.At(c.Atom + ops[0].Int())
				if t == nil {
					return nil, false, nil
				}
				return feature.Context(t), true, nil
			}), nil
		},
	})
}

// NewRegistry clones base and adds the tokeniser accessors
func NewRegistry(base *feature.Registry) *feature.Registry {
	reg := base.Clone()
	Register(reg)
	return reg
}
