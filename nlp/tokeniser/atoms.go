package tokeniser

import (
	"unicode"
	"unicode/utf8"

	"github.com/habeanf/beamtag/alg/pattern"
	"github.com/habeanf/beamtag/nlp/types"
)

// Atomise splits text into atoms: runs of word characters, runs of
// whitespace and single separator runes. Atoms cover the text exactly.
func Atomise(text string) *types.TokenSequence {
	atoms := types.NewTokenSequence(text)
	start := 0
	for start < len(text) {
		r, size := utf8.DecodeRuneInString(text[start:])
		end := start + size
		switch {
		case unicode.IsSpace(r):
			end = scan(text, end, unicode.IsSpace)
		case pattern.IsSeparator(r):
		default:
			end = scan(text, end, func(r rune) bool { return !pattern.IsSeparator(r) })
		}
		atoms.Add(start, end)
		start = end
	}
	return atoms
}

func scan(text string, pos int, in func(rune) bool) int {
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if !in(r) {
			break
		}
		pos += size
	}
	return pos
}

// Texts returns the atom texts for pattern matching
func Texts(atoms *types.TokenSequence) pattern.AtomSequence {
	return pattern.AtomSequence(atoms.Words())
}
