package types

import (
	"math"
	"strings"

	"github.com/habeanf/beamtag/alg/decision"
	"github.com/habeanf/beamtag/alg/feature"
)

const ROOT_AUTHORITY = "root"

// TaggedToken binds a token to the decision that tagged it
type TaggedToken struct {
	Token    *Token
	Decision decision.Decision
	Tag      Tag

	cache *feature.Cache
}

func NewTaggedToken(token *Token, d decision.Decision, tag Tag) *TaggedToken {
	return &TaggedToken{Token: token, Decision: d, Tag: tag}
}

// FeatureCache is created on first use and owned by this tagged token
func (t *TaggedToken) FeatureCache() *feature.Cache {
	if t.cache == nil {
		t.cache = feature.NewCache()
	}
	return t.cache
}

// Rebind clones t onto another token with a fresh feature cache
func (t *TaggedToken) Rebind(token *Token) *TaggedToken {
	return &TaggedToken{Token: token, Decision: t.Decision, Tag: t.Tag}
}

func (t *TaggedToken) IsRoot() bool {
	return t.Tag.Code == RootTag.Code && t.Decision.Outcome == RootTag.Code && !t.Decision.Statistical
}

func (t *TaggedToken) String() string {
	return t.Token.Text + "/" + t.Tag.Code
}

// PosTagSequence is a persistent tagging history over a token sequence.
// Append shares the parent as a prefix; the parent is never changed.
// The mutating filters detach a sequence from its chain first.
type PosTagSequence struct {
	Tokens *TokenSequence

	parent *PosTagSequence
	last   *TaggedToken
	length int
	sumLog float64
	nStat  int

	// contents of a detached head
	base          []*TaggedToken
	baseDecisions []decision.Decision

	tagged []*TaggedToken
	score  float64
	scored bool
}

func NewPosTagSequence(tokens *TokenSequence) *PosTagSequence {
	return &PosTagSequence{Tokens: tokens}
}

// Append returns a new sequence extending s by t
func (s *PosTagSequence) Append(t *TaggedToken) *PosTagSequence {
	n := &PosTagSequence{
		Tokens: s.Tokens,
		parent: s,
		last:   t,
		length: s.length + 1,
		sumLog: s.sumLog,
		nStat:  s.nStat,
	}
	if t.Decision.Statistical {
		n.sumLog += math.Log(t.Decision.Probability)
		n.nStat++
	}
	return n
}

func (s *PosTagSequence) Len() int {
	return s.length
}

// Tagged returns the tagged tokens in order
func (s *PosTagSequence) Tagged() []*TaggedToken {
	if s.tagged != nil || s.length == 0 {
		return s.tagged
	}
	result := make([]*TaggedToken, s.length)
	i := s.length - 1
	cur := s
	for ; cur.parent != nil; cur = cur.parent {
		result[i] = cur.last
		i--
	}
	copy(result, cur.base)
	s.tagged = result
	return result
}

func (s *PosTagSequence) Get(i int) *TaggedToken {
	if i < 0 || i >= s.length {
		return nil
	}
	if s.tagged == nil && i == s.length-1 && s.last != nil {
		return s.last
	}
	return s.Tagged()[i]
}

func (s *PosTagSequence) Last() *TaggedToken {
	return s.Get(s.length - 1)
}

// Prefix returns the sequence of the first n tagged tokens, sharing history
// with s where possible
func (s *PosTagSequence) Prefix(n int) *PosTagSequence {
	if n < 0 || n > s.length {
		return nil
	}
	cur := s
	for ; cur.parent != nil; cur = cur.parent {
		if cur.length == n {
			return cur
		}
	}
	if cur.length == n {
		return cur
	}
	prefix := NewPosTagSequence(s.Tokens)
	for _, t := range s.Tagged()[:n] {
		prefix = prefix.Append(t)
	}
	return prefix
}

// NextToken is the first token not yet tagged, nil when complete
func (s *PosTagSequence) NextToken() *Token {
	if s.length >= len(s.Tokens.Tokens) {
		return nil
	}
	return s.Tokens.Tokens[s.length]
}

func (s *PosTagSequence) Complete() bool {
	return s.length >= len(s.Tokens.Tokens)
}

// Decisions returns the statistical decisions contributing to the score
func (s *PosTagSequence) Decisions() []decision.Decision {
	result := make([]decision.Decision, s.nStat)
	i := s.nStat - 1
	cur := s
	for ; cur.parent != nil; cur = cur.parent {
		if cur.last.Decision.Statistical {
			result[i] = cur.last.Decision
			i--
		}
	}
	copy(result, cur.baseDecisions)
	return result
}

// Score is the geometric mean of the statistical decision probabilities
// times the upstream token sequence score
func (s *PosTagSequence) Score() float64 {
	if s.scored {
		return s.score
	}
	s.score = s.Tokens.Score
	if s.nStat > 0 {
		s.score *= math.Exp(s.sumLog / float64(s.nStat))
	}
	s.scored = true
	return s.score
}

// Equal is identity
func (s *PosTagSequence) Equal(other *PosTagSequence) bool {
	return s == other
}

func (s *PosTagSequence) detach(tagged []*TaggedToken) {
	decisions := s.Decisions()
	sumLog := 0.0
	for _, d := range decisions {
		sumLog += math.Log(d.Probability)
	}
	s.parent = nil
	s.last = nil
	s.base = tagged
	s.baseDecisions = decisions
	s.length = len(tagged)
	s.sumLog = sumLog
	s.nStat = len(decisions)
	s.tagged = nil
	s.scored = false
}

func (s *PosTagSequence) HasRoot() bool {
	return s.length > 0 && s.Get(0).IsRoot()
}

// PrependRoot inserts a non-statistical ROOT token at the head
func (s *PosTagSequence) PrependRoot() {
	if s.HasRoot() {
		return
	}
	root := &Token{Index: -1, Text: ROOT_TOKEN}
	tagged := make([]*TaggedToken, 0, s.length+1)
	tagged = append(tagged, NewTaggedToken(root, decision.Forced(RootTag.Code, ROOT_AUTHORITY), RootTag))
	tagged = append(tagged, s.Tagged()...)
	s.detach(tagged)
}

func (s *PosTagSequence) RemoveRoot() {
	if !s.HasRoot() {
		return
	}
	tagged := append([]*TaggedToken(nil), s.Tagged()[1:]...)
	s.detach(tagged)
}

// RemoveEmptyNullTokens drops zero-width tokens tagged NULL. The token
// sequence and tagged tokens are cloned and re-indexed.
func (s *PosTagSequence) RemoveEmptyNullTokens() {
	tokens := &TokenSequence{Text: s.Tokens.Text, Score: s.Tokens.Score}
	var tagged []*TaggedToken
	for _, t := range s.Tagged() {
		if t.IsRoot() {
			tagged = append(tagged, t.Rebind(t.Token.Copy()))
			continue
		}
		if t.Token.Empty() && t.Tag.Code == NullTag.Code {
			continue
		}
		token := t.Token.Copy()
		token.Index = len(tokens.Tokens)
		tokens.Tokens = append(tokens.Tokens, token)
		tagged = append(tagged, t.Rebind(token))
	}
	s.detach(tagged)
	s.Tokens = tokens
}

func (s *PosTagSequence) String() string {
	tagged := s.Tagged()
	parts := make([]string, len(tagged))
	for i, t := range tagged {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// ByScore sorts sequences in descending score
type ByScore []*PosTagSequence

func (b ByScore) Len() int           { return len(b) }
func (b ByScore) Less(i, j int) bool { return b[i].Score() > b[j].Score() }
func (b ByScore) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
