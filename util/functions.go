package util

import (
	. "unicode"
	"unicode/utf8"
)

func Max(a, b int) int {
	if a < b {
		return b
	}
	return a
}

func Min(a, b int) int {
	if a > b {
		return b
	}
	return a
}

type RuneTester func(r rune) bool

func TestEach(t RuneTester, s string) byte {
	for _, r := range s {
		if t(r) {
			return 't'
		}
	}
	return 'f'
}

var Testers = []RuneTester{
	IsDigit,
	IsLetter,
	IsLower,
	IsNumber,
	IsPunct,
	IsSpace,
	IsSymbol,
	IsUpper,
}

// Signature returns one t/f indicator per tester, in Testers order
func Signature(s string) string {
	indicators := make([]byte, len(Testers))
	for i, t := range Testers {
		indicators[i] = TestEach(t, s)
	}
	return string(indicators)
}

// Prefix returns the first n runes of s
func Prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Suffix returns the last n runes of s
func Suffix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := utf8.RuneCountInString(s)
	if n >= count {
		return s
	}
	skip := count - n
	i := 0
	for pos := range s {
		if i == skip {
			return s[pos:]
		}
		i++
	}
	return ""
}

// Substring slices s by rune offsets, clamping both ends
func Substring(s string, start, end int) string {
	runes := []rune(s)
	start = Max(0, Min(start, len(runes)))
	end = Max(start, Min(end, len(runes)))
	return string(runes[start:end])
}

func IsWhitespace(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !IsSpace(r) {
			return false
		}
	}
	return true
}
