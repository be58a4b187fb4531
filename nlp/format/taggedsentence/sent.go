// Package taggedsentence reads and writes one sentence per line as space
// separated word/TAG pairs. Spaces inside a word are written as underscores.
package taggedsentence

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/habeanf/beamtag/nlp/format/conll"
	"github.com/habeanf/beamtag/nlp/types"

	"github.com/pkg/errors"
)

const (
	TAG_SEPARATOR   = "/"
	TOKEN_SEPARATOR = " "
	SPACE_SUBST     = "_"
)

// Read returns the sentences as conll rows carrying only FORM and POSTAG
func Read(reader io.Reader) (conll.Sentences, error) {
	var sentences conll.Sentences
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	i := 0
	for scanner.Scan() {
		i++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		taggedTokenStrings := strings.Fields(line)
		sent := make(conll.Sentence, len(taggedTokenStrings))
		for j, taggedTokenString := range taggedTokenStrings {
			sep := strings.LastIndex(taggedTokenString, TAG_SEPARATOR)
			if sep <= 0 || sep == len(taggedTokenString)-1 {
				return nil, errors.Errorf("Got untagged token %q at line %d", taggedTokenString, i)
			}
			sent[j] = conll.Row{
				ID:     j + 1,
				Form:   taggedTokenString[:sep],
				PosTag: taggedTokenString[sep+1:],
				Head:   -1,
			}
		}
		sentences = append(sentences, sent)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading tagged sentences")
	}
	return sentences, nil
}

func ReadFile(filename string) (conll.Sentences, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Read(file)
}

// Write writes each tagging on its own line, skipping the root token. An
// untagged sequence is written as its bare words.
func Write(writer io.Writer, seqs []*types.PosTagSequence) error {
	w := bufio.NewWriter(writer)
	for _, seq := range seqs {
		if seq.Len() == 0 && seq.Tokens != nil {
			for i, token := range seq.Tokens.Tokens {
				if i > 0 {
					w.WriteString(TOKEN_SEPARATOR)
				}
				w.WriteString(strings.ReplaceAll(token.Text, " ", SPACE_SUBST))
			}
			w.WriteByte('\n')
			continue
		}
		first := true
		for _, tagged := range seq.Tagged() {
			if tagged.IsRoot() {
				continue
			}
			if !first {
				w.WriteString(TOKEN_SEPARATOR)
			}
			first = false
			w.WriteString(strings.ReplaceAll(tagged.Token.Text, " ", SPACE_SUBST))
			w.WriteString(TAG_SEPARATOR)
			w.WriteString(tagged.Tag.Code)
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}
