package types

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/habeanf/beamtag/util/conf"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

// Tag is a part-of-speech tag; tags compare by code
type Tag struct {
	Code        string
	Description string
	Open        bool
}

var (
	NullTag = Tag{Code: "NULL", Description: "empty token"}
	RootTag = Tag{Code: ROOT_LABEL, Description: "root"}
)

func (t Tag) String() string {
	return t.Code
}

type UnknownTagError struct {
	Code   string
	Tagset string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown tag %q in tagset %s", e.Code, e.Tagset)
}

type Tagset struct {
	Name   string
	Locale language.Tag
	tags   map[string]Tag
}

func NewTagset(name string, locale language.Tag, tags ...Tag) *Tagset {
	ts := &Tagset{Name: name, Locale: locale, tags: make(map[string]Tag, len(tags))}
	for _, t := range tags {
		ts.tags[t.Code] = t
	}
	return ts
}

// Tag resolves a code; ROOT always resolves
func (ts *Tagset) Tag(code string) (Tag, error) {
	if t, ok := ts.tags[code]; ok {
		return t, nil
	}
	if code == RootTag.Code {
		return RootTag, nil
	}
	return Tag{}, &UnknownTagError{code, ts.Name}
}

func (ts *Tagset) Contains(code string) bool {
	_, ok := ts.tags[code]
	return ok
}

func (ts *Tagset) Len() int {
	return len(ts.tags)
}

// Tags returns the tags sorted by code
func (ts *Tagset) Tags() []Tag {
	tags := make([]Tag, 0, len(ts.tags))
	for _, t := range ts.tags {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Code < tags[j].Code })
	return tags
}

// LoadTagset reads a tagset file. The first line holds the name and the
// locale; every following line is CODE<tab>description<tab>open|closed.
func LoadTagset(r io.Reader) (*Tagset, error) {
	c, err := conf.Read(r)
	if err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, errors.New("empty tagset")
	}
	header := c.Lines[0].Fields()
	if len(header) != 2 {
		return nil, errors.Errorf("line %d: expected name and locale", c.Lines[0].Num)
	}
	locale, err := language.Parse(header[1])
	if err != nil {
		return nil, errors.Wrapf(err, "line %d", c.Lines[0].Num)
	}
	ts := NewTagset(header[0], locale)
	for _, line := range c.Lines[1:] {
		fields := line.Fields()
		if len(fields) < 1 || len(fields) > 3 {
			return nil, errors.Errorf("line %d: expected code, description and class", line.Num)
		}
		tag := Tag{Code: fields[0], Open: true}
		if len(fields) > 1 {
			tag.Description = fields[1]
		}
		if len(fields) > 2 {
			switch strings.ToLower(fields[2]) {
			case "open":
			case "closed":
				tag.Open = false
			default:
				return nil, errors.Errorf("line %d: unknown class %q", line.Num, fields[2])
			}
		}
		if ts.Contains(tag.Code) {
			return nil, errors.Errorf("line %d: duplicate tag %s", line.Num, tag.Code)
		}
		ts.tags[tag.Code] = tag
	}
	return ts, nil
}

func LoadTagsetFile(filename string) (*Tagset, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ts, err := LoadTagset(f)
	return ts, errors.Wrap(err, filename)
}
