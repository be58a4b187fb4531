package tokeniser

import (
	"math"
	"strings"
	"unicode"

	"github.com/habeanf/beamtag/alg/decision"
	"github.com/habeanf/beamtag/nlp/types"
)

const (
	JOIN     = "JOIN"
	SEPARATE = "SEPARATE"
)

// TokenisedAtomicTokenSequence records a JOIN or SEPARATE decision for each
// atom in order. JOIN attaches an atom to the token of the atom before it.
// Like types.PosTagSequence it is persistent: Append never changes the parent.
type TokenisedAtomicTokenSequence struct {
	Atoms *types.TokenSequence

	parent   *TokenisedAtomicTokenSequence
	decision decision.Decision
	length   int
	sumLog   float64
	nStat    int

	score  float64
	scored bool
}

func NewTokenisedAtomicTokenSequence(atoms *types.TokenSequence) *TokenisedAtomicTokenSequence {
	return &TokenisedAtomicTokenSequence{Atoms: atoms}
}

// Append decides the next atom
func (s *TokenisedAtomicTokenSequence) Append(d decision.Decision) *TokenisedAtomicTokenSequence {
	n := &TokenisedAtomicTokenSequence{
		Atoms:    s.Atoms,
		parent:   s,
		decision: d,
		length:   s.length + 1,
		sumLog:   s.sumLog,
		nStat:    s.nStat,
	}
	if d.Statistical {
		n.sumLog += math.Log(d.Probability)
		n.nStat++
	}
	return n
}

func (s *TokenisedAtomicTokenSequence) Len() int {
	return s.length
}

func (s *TokenisedAtomicTokenSequence) Complete() bool {
	return s.length >= s.Atoms.Len()
}

// NextAtom is the first undecided atom, nil when complete
func (s *TokenisedAtomicTokenSequence) NextAtom() *types.Token {
	if s.Complete() {
		return nil
	}
	return s.Atoms.Tokens[s.length]
}

// Outcomes returns the decision of every decided atom in order
func (s *TokenisedAtomicTokenSequence) Outcomes() []decision.Decision {
	result := make([]decision.Decision, s.length)
	for cur := s; cur.parent != nil; cur = cur.parent {
		result[cur.length-1] = cur.decision
	}
	return result
}

// Outcome returns the decision of atom i, false when not decided yet
func (s *TokenisedAtomicTokenSequence) Outcome(i int) (decision.Decision, bool) {
	if i < 0 || i >= s.length {
		return decision.Decision{}, false
	}
	cur := s
	for cur.length-1 > i {
		cur = cur.parent
	}
	return cur.decision, true
}

// Decisions returns the statistical decisions contributing to the score
func (s *TokenisedAtomicTokenSequence) Decisions() []decision.Decision {
	result := make([]decision.Decision, s.nStat)
	i := s.nStat - 1
	for cur := s; cur.parent != nil; cur = cur.parent {
		if cur.decision.Statistical {
			result[i] = cur.decision
			i--
		}
	}
	return result
}

func (s *TokenisedAtomicTokenSequence) Score() float64 {
	if s.scored {
		return s.score
	}
	s.score = s.Atoms.Score
	if s.nStat > 0 {
		s.score *= math.Exp(s.sumLog / float64(s.nStat))
	}
	s.scored = true
	return s.score
}

// TokenSequence merges joined atoms into tokens. Tokens are trimmed of
// whitespace and pure-whitespace tokens are dropped. The sequence score
// becomes the token sequence score.
func (s *TokenisedAtomicTokenSequence) TokenSequence() *types.TokenSequence {
	text := s.Atoms.Text
	out := types.NewTokenSequence(text)
	out.Score = s.Score()
	start, end := -1, -1
	flush := func() {
		if start < 0 {
			return
		}
		span := text[start:end]
		lead := len(span) - len(strings.TrimLeftFunc(span, unicode.IsSpace))
		trail := len(span) - len(strings.TrimRightFunc(span, unicode.IsSpace))
		if start+lead < end-trail {
			out.Add(start+lead, end-trail)
		}
	}
	for i, d := range s.Outcomes() {
		atom := s.Atoms.Tokens[i]
		if i == 0 || d.Outcome != JOIN {
			flush()
			start = atom.Start
		}
		end = atom.End
	}
	flush()
	return out
}

func (s *TokenisedAtomicTokenSequence) String() string {
	return s.TokenSequence().String()
}
