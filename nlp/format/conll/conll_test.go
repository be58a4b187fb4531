package conll

import (
	"bytes"
	"strings"
	"testing"

	"github.com/habeanf/beamtag/nlp/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestParseRow(t *testing.T) {
	row := strings.Split("1	chats	chat	N	NC	g=m|n=p	2	suj	_	_", string(FIELD_SEPARATOR))

	parsed, err := ParseRow(row)
	require.NoError(t, err)
	assert.Equal(t, 1, parsed.ID)
	assert.Equal(t, "chats", parsed.Form)
	assert.Equal(t, "chat", parsed.Lemma)
	assert.Equal(t, "N", parsed.CPosTag)
	assert.Equal(t, "NC", parsed.PosTag)
	assert.Equal(t, "NC", parsed.Tag())
	assert.Equal(t, Features{"g": "m", "n": "p"}, parsed.Feats)
	assert.Equal(t, 2, parsed.Head)
	assert.Equal(t, "suj", parsed.DepRel)
}

func TestParseShortRows(t *testing.T) {
	parsed, err := ParseRow([]string{"3", "dort"})
	require.NoError(t, err)
	assert.Equal(t, "", parsed.Tag())
	assert.Equal(t, -1, parsed.Head)

	parsed, err = ParseRow([]string{"3", "dort", "V"})
	require.NoError(t, err)
	assert.Equal(t, "V", parsed.Tag())

	parsed, err = ParseRow(strings.Split("8	que	_	C	_	_	_	_", "\t"))
	require.NoError(t, err)
	assert.Equal(t, "C", parsed.Tag())

	for _, bad := range [][]string{{"1"}, {"x", "dort"}, {"1", "_"}, {"1", "a", "b", "c"}} {
		_, err := ParseRow(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestParseRowWithRepeatingParams(t *testing.T) {
	row := strings.Split("19	PRCWPNW	_	NN	NN_S_PP	gen=M|num=S|suf_gen=F|suf_gen=M|suf_num=P|suf_per=1	18	pobj", "\t")
	parsed, err := ParseRow(row)
	require.NoError(t, err)
	assert.Equal(t, "F,M", parsed.Feats["suf_gen"])
}

const corpus = `1	Le	DET
2	chat	NC
3	dort	V
4	.	PONCT

# comment
1	Il
2	pleut
1	Oui
`

func TestRead(t *testing.T) {
	sents, err := Read(strings.NewReader(corpus))
	require.NoError(t, err)
	require.Len(t, sents, 3)
	assert.Equal(t, []string{"Le", "chat", "dort", "."}, sents[0].Forms())
	assert.Equal(t, []string{"Il", "pleut"}, sents[1].Forms())
	assert.Equal(t, []string{"Oui"}, sents[2].Forms())

	_, err = Read(strings.NewReader("1\tLe\n3\tchat\n"))
	assert.Error(t, err)
}

func TestTokenSequenceAndGold(t *testing.T) {
	sents, err := Read(strings.NewReader(corpus))
	require.NoError(t, err)

	seq := sents[0].TokenSequence(true)
	assert.Equal(t, "Le chat dort .", seq.Text)
	tag, ok := seq.Tokens[1].Attribute(types.POS_TAG_ATTRIBUTE)
	assert.True(t, ok)
	assert.Equal(t, "NC", tag)
	assert.Nil(t, sents[0].TokenSequence(false).Tokens[1].Attributes)

	ts := types.NewTagset("ftb", language.French,
		types.Tag{Code: "DET"}, types.Tag{Code: "NC", Open: true},
		types.Tag{Code: "V", Open: true}, types.Tag{Code: "PONCT"})
	gold, err := sents[0].Gold(ts)
	require.NoError(t, err)
	assert.Equal(t, "Le/DET chat/NC dort/V ./PONCT", gold.String())
	assert.Equal(t, 1.0, gold.Score())

	_, err = sents[1].Gold(ts)
	assert.Error(t, err)
}

func TestWriteTagged(t *testing.T) {
	sents, err := Read(strings.NewReader("1\tLe\tle\tD\tDET\tg=m\t_\t_\n2\tchat\tchat\tN\tNC\t_\t_\t_\n"))
	require.NoError(t, err)
	ts := types.NewTagset("ftb", language.French, types.Tag{Code: "DET"}, types.Tag{Code: "NC", Open: true})
	gold, err := sents[0].Gold(ts)
	require.NoError(t, err)
	gold.PrependRoot()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []Sentence{FromTagged(gold)}))
	expected := "1\tLe\tle\tDET\tDET\tg=m\t_\t_\t_\t_\n" +
		"2\tchat\tchat\tNC\tNC\t_\t_\t_\t_\t_\n\n"
	assert.Equal(t, expected, buf.String())

	again, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, "NC", again[0][1].Tag())
}

func TestFromTokens(t *testing.T) {
	seq := types.FromWords("Il", "pleut")
	seq.Tokens[1].Attributes = map[string]string{LEMMA_ATTRIBUTE: "pleuvoir", types.POS_TAG_ATTRIBUTE: "V"}

	sent := FromTokens(seq)
	require.Len(t, sent, 2)
	assert.Equal(t, "1\tIl\t_\t_\t_\t_\t_\t_\t_\t_", sent[0].String())
	assert.Equal(t, "2\tpleut\tpleuvoir\t_\t_\t_\t_\t_\t_\t_", sent[1].String())
}
