// Package raw reads raw format files
// raw files contain a token per line
// sentences end with a new line
//
// Text files hold one untokenised sentence per line.
package raw

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/habeanf/beamtag/nlp/types"

	"github.com/pkg/errors"
)

const MAX_LINE = 1024 * 1024

func newScanner(reader io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), MAX_LINE)
	return scanner
}

// Read returns up to limit sentences (all when limit <= 0)
func Read(reader io.Reader, limit int) ([]*types.TokenSequence, error) {
	var (
		sentences []*types.TokenSequence
		current   []string
	)
	flush := func() {
		if len(current) > 0 {
			sentences = append(sentences, types.FromWords(current...))
		}
		current = nil
	}
	scanner := newScanner(reader)
	for scanner.Scan() {
		// an empty line indicates a new record
		token := strings.TrimSpace(scanner.Text())
		if token == "" {
			flush()
			if limit > 0 && len(sentences) >= limit {
				return sentences, nil
			}
			continue
		}
		current = append(current, token)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading raw tokens")
	}
	flush()
	if limit > 0 && len(sentences) > limit {
		sentences = sentences[:limit]
	}
	return sentences, nil
}

func ReadFile(filename string, limit int) ([]*types.TokenSequence, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Read(file, limit)
}

// ReadText returns the non-blank lines of reader, trimmed
func ReadText(reader io.Reader) ([]string, error) {
	var lines []string
	scanner := newScanner(reader)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, errors.Wrap(scanner.Err(), "reading text")
}

func Write(writer io.Writer, sents []*types.TokenSequence) error {
	w := bufio.NewWriter(writer)
	for _, sent := range sents {
		for _, token := range sent.Tokens {
			w.WriteString(token.Text)
			w.WriteByte('\n')
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}

func WriteFile(filename string, sents []*types.TokenSequence) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return Write(file, sents)
}
