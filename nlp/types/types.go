package types

import (
	"fmt"
	"strings"
)

const (
	ROOT_TOKEN = "ROOT"
	ROOT_LABEL = "ROOT"

	// token attribute holding an externally imposed tag
	POS_TAG_ATTRIBUTE = "posTag"
)

// Token is a [Start,End) byte span over its sentence text
type Token struct {
	Index        int
	Start, End   int
	Text         string
	Attributes   map[string]string
	PossibleTags []string
}

func (t *Token) Empty() bool {
	return t.Start == t.End
}

func (t *Token) Attribute(key string) (string, bool) {
	if t.Attributes == nil {
		return "", false
	}
	v, ok := t.Attributes[key]
	return v, ok
}

func (t *Token) Copy() *Token {
	c := *t
	if t.Attributes != nil {
		c.Attributes = make(map[string]string, len(t.Attributes))
		for k, v := range t.Attributes {
			c.Attributes[k] = v
		}
	}
	if t.PossibleTags != nil {
		c.PossibleTags = append([]string(nil), t.PossibleTags...)
	}
	return &c
}

func (t *Token) String() string {
	return t.Text
}

// TokenSequence is one candidate tokenisation of a sentence
type TokenSequence struct {
	Text   string
	Tokens []*Token
	Score  float64
}

func NewTokenSequence(text string) *TokenSequence {
	return &TokenSequence{Text: text, Score: 1}
}

// FromWords builds a sequence over the words joined by single spaces
func FromWords(words ...string) *TokenSequence {
	s := NewTokenSequence(strings.Join(words, " "))
	offset := 0
	for _, w := range words {
		s.Add(offset, offset+len(w))
		offset += len(w) + 1
	}
	return s
}

// Add appends the token spanning [start,end) of the sentence text
func (s *TokenSequence) Add(start, end int) *Token {
	if start < 0 || end > len(s.Text) || start > end {
		panic(fmt.Sprintf("token span [%d,%d) out of range for %q", start, end, s.Text))
	}
	t := &Token{Index: len(s.Tokens), Start: start, End: end, Text: s.Text[start:end]}
	s.Tokens = append(s.Tokens, t)
	return t
}

// AddEmpty appends a zero-width token at offset carrying the given text
func (s *TokenSequence) AddEmpty(offset int, text string) *Token {
	t := s.Add(offset, offset)
	t.Text = text
	return t
}

func (s *TokenSequence) Len() int {
	return len(s.Tokens)
}

// Length is the length of the sentence text, the decoder's terminal key
func (s *TokenSequence) Length() int {
	return len(s.Text)
}

// Clone deep-copies the tokens and re-indexes them
func (s *TokenSequence) Clone() *TokenSequence {
	c := &TokenSequence{Text: s.Text, Score: s.Score, Tokens: make([]*Token, len(s.Tokens))}
	for i, t := range s.Tokens {
		c.Tokens[i] = t.Copy()
		c.Tokens[i].Index = i
	}
	return c
}

func (s *TokenSequence) Words() []string {
	words := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		words[i] = t.Text
	}
	return words
}

func (s *TokenSequence) String() string {
	return strings.Join(s.Words(), "|")
}
