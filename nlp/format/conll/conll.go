// Package conll reads and writes CoNLL-X style token files.
// For a description see http://ilk.uvt.nl/conll/#dataformat
//
// Input rows carry ID and FORM, optionally followed by POSTAG alone or by
// the remaining eight CoNLL-X columns. Sentences are separated by blank lines
// or by a row with ID 1.
package conll

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/habeanf/beamtag/alg/decision"
	"github.com/habeanf/beamtag/nlp/types"

	"github.com/pkg/errors"
)

const (
	FIELD_SEPARATOR      = '\t'
	NUM_FIELDS           = 10
	FEATURES_SEPARATOR   = "|"
	FEATURE_SEPARATOR    = "="
	FEATURE_CONCAT_DELIM = ","
	LEMMA_ATTRIBUTE      = "lemma"
	GOLD_AUTHORITY       = "gold"
)

type Features map[string]string

func (f Features) String() string {
	return FormatFeatures(f)
}

func FormatFeatures(feat map[string]string) string {
	if len(feat) == 0 {
		return "_"
	}
	strs := make([]string, 0, len(feat))
	for k, v := range feat {
		strs = append(strs, fmt.Sprintf("%v%v%v", k, FEATURE_SEPARATOR, v))
	}
	sort.Strings(strs)
	return strings.Join(strs, FEATURES_SEPARATOR)
}

// A Row is a single parsed row of a conll data set. Head is -1 when absent.
type Row struct {
	ID      int
	Form    string
	Lemma   string
	CPosTag string
	PosTag  string
	Feats   Features
	Head    int
	DepRel  string
}

func formatString(s string) string {
	if s == "" {
		return "_"
	}
	return s
}

func (r Row) String() string {
	head := "_"
	if r.Head >= 0 {
		head = strconv.Itoa(r.Head)
	}
	fields := []string{
		strconv.Itoa(r.ID),
		r.Form,
		formatString(r.Lemma),
		formatString(r.CPosTag),
		formatString(r.PosTag),
		FormatFeatures(r.Feats),
		head,
		formatString(r.DepRel),
		"_",
		"_"}
	return strings.Join(fields, string(FIELD_SEPARATOR))
}

// Tag is POSTAG, falling back to CPOSTAG
func (r Row) Tag() string {
	if r.PosTag != "" {
		return r.PosTag
	}
	return r.CPosTag
}

type Sentence []Row

type Sentences []Sentence

func (s Sentence) Forms() []string {
	forms := make([]string, len(s))
	for i, row := range s {
		forms[i] = row.Form
	}
	return forms
}

// TokenSequence builds the tokens of the sentence over its space-joined
// forms. Lemma and features become token attributes; with gold set the
// row's tag becomes the posTag attribute.
func (s Sentence) TokenSequence(gold bool) *types.TokenSequence {
	seq := types.FromWords(s.Forms()...)
	for i, row := range s {
		token := seq.Tokens[i]
		attrs := make(map[string]string, len(row.Feats)+2)
		for k, v := range row.Feats {
			attrs[k] = v
		}
		if row.Lemma != "" {
			attrs[LEMMA_ATTRIBUTE] = row.Lemma
		}
		if tag := row.Tag(); gold && tag != "" {
			attrs[types.POS_TAG_ATTRIBUTE] = tag
		}
		if len(attrs) > 0 {
			token.Attributes = attrs
		}
	}
	return seq
}

// Gold builds the reference tagging of the sentence. Every row must be tagged.
func (s Sentence) Gold(ts *types.Tagset) (*types.PosTagSequence, error) {
	tokens := s.TokenSequence(false)
	seq := types.NewPosTagSequence(tokens)
	for i, row := range s {
		code := row.Tag()
		if code == "" {
			return nil, errors.Errorf("row %d (%s) has no tag", row.ID, row.Form)
		}
		tag, err := ts.Tag(code)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d (%s)", row.ID, row.Form)
		}
		seq = seq.Append(types.NewTaggedToken(tokens.Tokens[i], decision.Forced(code, GOLD_AUTHORITY), tag))
	}
	return seq, nil
}

// FromTagged converts a tagged sequence into rows, skipping the root token
func FromTagged(seq *types.PosTagSequence) Sentence {
	sent := make(Sentence, 0, seq.Len())
	for _, tagged := range seq.Tagged() {
		if tagged.IsRoot() {
			continue
		}
		sent = append(sent, tokenRow(len(sent)+1, tagged.Token, tagged.Tag.Code))
	}
	return sent
}

// FromTokens converts untagged tokens into rows
func FromTokens(seq *types.TokenSequence) Sentence {
	sent := make(Sentence, 0, seq.Len())
	for i, token := range seq.Tokens {
		sent = append(sent, tokenRow(i+1, token, ""))
	}
	return sent
}

func tokenRow(id int, token *types.Token, code string) Row {
	row := Row{
		ID:      id,
		Form:    token.Text,
		CPosTag: code,
		PosTag:  code,
		Head:    -1,
	}
	for k, v := range token.Attributes {
		switch k {
		case LEMMA_ATTRIBUTE:
			row.Lemma = v
		case types.POS_TAG_ATTRIBUTE:
		default:
			if row.Feats == nil {
				row.Feats = make(Features)
			}
			row.Feats[k] = v
		}
	}
	return row
}

func ParseInt(value string) (int, error) {
	if value == "_" {
		return -1, nil
	}
	i, err := strconv.ParseInt(value, 10, 0)
	return int(i), err
}

func ParseString(value string) string {
	if value == "_" {
		return ""
	}
	return value
}

func ParseFeatures(featuresStr string) (Features, error) {
	var featureMap Features
	if featuresStr == "_" || featuresStr == "" {
		return featureMap, nil
	}

	featureList := strings.Split(featuresStr, FEATURES_SEPARATOR)
	featureMap = make(Features, len(featureList))
	for _, featureStr := range featureList {
		featureKV := strings.Split(featureStr, FEATURE_SEPARATOR)
		if len(featureKV) != 2 {
			return nil, errors.New("Wrong number of fields for split of feature " + featureStr)
		}
		featName := featureKV[0]
		featValue := featureKV[1]
		if existing, exists := featureMap[featName]; exists {
			featureMap[featName] = existing + FEATURE_CONCAT_DELIM + featValue
		} else {
			featureMap[featName] = featValue
		}
	}
	return featureMap, nil
}

// ParseRow accepts 2 (ID FORM), 3 (ID FORM POSTAG) or 8 to 10 fields
func ParseRow(record []string) (Row, error) {
	row := Row{Head: -1}
	if len(record) < 2 || (len(record) > 3 && len(record) < 8) || len(record) > NUM_FIELDS {
		return row, errors.Errorf("expected 2, 3 or 8 to %d fields, got %d", NUM_FIELDS, len(record))
	}
	id, err := strconv.Atoi(record[0])
	if err != nil || id < 1 {
		return row, errors.Errorf("Error parsing ID field (%s)", record[0])
	}
	row.ID = id

	row.Form = ParseString(record[1])
	if row.Form == "" {
		return row, errors.New("Empty FORM field")
	}

	if len(record) == 3 {
		row.PosTag = ParseString(record[2])
		return row, nil
	}
	if len(record) == 2 {
		return row, nil
	}

	row.Lemma = ParseString(record[2])
	row.CPosTag = ParseString(record[3])
	row.PosTag = ParseString(record[4])
	features, err := ParseFeatures(record[5])
	if err != nil {
		return row, errors.Wrapf(err, "Error parsing FEATS field (%s)", record[5])
	}
	row.Feats = features
	head, err := ParseInt(record[6])
	if err != nil {
		return row, errors.Wrapf(err, "Error parsing HEAD field (%s)", record[6])
	}
	row.Head = head
	row.DepRel = ParseString(record[7])
	return row, nil
}

func Read(reader io.Reader) (Sentences, error) {
	var (
		sentences Sentences
		current   Sentence
	)
	flush := func() {
		if len(current) > 0 {
			sentences = append(sentences, current)
		}
		current = nil
	}
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	num := 0
	for scanner.Scan() {
		num++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		row, err := ParseRow(strings.Split(line, string(FIELD_SEPARATOR)))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d at sentence %d", num, len(sentences))
		}
		// a record with id 1 starts a new sentence
		if row.ID == 1 {
			flush()
		}
		if row.ID != len(current)+1 {
			return nil, errors.Errorf("line %d: expected ID %d, got %d", num, len(current)+1, row.ID)
		}
		current = append(current, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "Failure reading conll")
	}
	flush()
	return sentences, nil
}

func ReadFile(filename string) (Sentences, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file)
}

func Write(writer io.Writer, sents []Sentence) error {
	w := bufio.NewWriter(writer)
	for _, sent := range sents {
		for _, row := range sent {
			w.WriteString(row.String())
			w.WriteByte('\n')
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}

func WriteFile(filename string, sents []Sentence) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return Write(file, sents)
}
