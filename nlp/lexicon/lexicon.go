// Package lexicon maps word forms to the tags they may take.
package lexicon

import (
	"io"
	"strings"
	"time"

	"github.com/habeanf/beamtag/nlp/types"
	"github.com/habeanf/beamtag/util/conf"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	APPROX_LEX_SIZE = 100000
	TAG_SEPARATOR   = "|"
)

// Lexicon is read once and then only looked up. Misses on the exact form
// fall back to its lower case.
type Lexicon struct {
	Locale language.Tag

	entries map[string][]string
	memo    *gocache.Cache
}

func New(locale language.Tag) *Lexicon {
	return &Lexicon{
		Locale:  locale,
		entries: make(map[string][]string, APPROX_LEX_SIZE),
		memo:    gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

// Add records tags for word, keeping the first occurrence of each tag
func (l *Lexicon) Add(word string, tags ...string) {
	existing := l.entries[word]
	for _, tag := range tags {
		found := false
		for _, e := range existing {
			if e == tag {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, tag)
		}
	}
	l.entries[word] = existing
	if l.memo.ItemCount() > 0 {
		l.memo.Flush()
	}
}

func (l *Lexicon) Len() int {
	return len(l.entries)
}

// Tags returns the tags of word, nil when unknown
func (l *Lexicon) Tags(word string) []string {
	if v, found := l.memo.Get(word); found {
		return v.([]string)
	}
	tags, ok := l.entries[word]
	if !ok {
		tags = l.entries[cases.Lower(l.Locale).String(word)]
	}
	l.memo.SetDefault(word, tags)
	return tags
}

// Lookup serves the lexicon as a feature resource: the tags of one word
// joined with TAG_SEPARATOR
func (l *Lexicon) Lookup(keys ...string) (string, bool, error) {
	if len(keys) != 1 {
		return "", false, errors.Errorf("lexicon takes 1 key, got %d", len(keys))
	}
	tags := l.Tags(keys[0])
	if len(tags) == 0 {
		return "", false, nil
	}
	return strings.Join(tags, TAG_SEPARATOR), true, nil
}

// Annotate fills PossibleTags of every token that has none
func (l *Lexicon) Annotate(seq *types.TokenSequence) {
	for _, token := range seq.Tokens {
		if len(token.PossibleTags) > 0 {
			continue
		}
		if tags := l.Tags(token.Text); len(tags) > 0 {
			token.PossibleTags = append([]string(nil), tags...)
		}
	}
}

// Validate checks every tag against ts
func (l *Lexicon) Validate(ts *types.Tagset) error {
	for word, tags := range l.entries {
		for _, tag := range tags {
			if _, err := ts.Tag(tag); err != nil {
				return errors.Wrapf(err, "lexicon entry %q", word)
			}
		}
	}
	return nil
}

// Load reads word \t TAG [\t TAG ...] lines. Repeated words accumulate tags.
func Load(reader io.Reader, locale language.Tag) (*Lexicon, error) {
	c, err := conf.Read(reader)
	if err != nil {
		return nil, errors.Wrap(err, "reading lexicon")
	}
	return fromConf(c, locale)
}

func LoadFile(filename string, locale language.Tag) (*Lexicon, error) {
	c, err := conf.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "reading lexicon %s", filename)
	}
	l, err := fromConf(c, locale)
	return l, errors.Wrap(err, filename)
}

func fromConf(c *conf.Conf, locale language.Tag) (*Lexicon, error) {
	l := New(locale)
	for _, line := range c.Lines {
		fields := line.Fields()
		if len(fields) < 2 {
			return nil, errors.Errorf("lexicon line %d: expected word and tag", line.Num)
		}
		for _, tag := range fields[1:] {
			if tag == "" {
				return nil, errors.Errorf("lexicon line %d: empty tag", line.Num)
			}
		}
		l.Add(fields[0], fields[1:]...)
	}
	return l, nil
}
