package decision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habeanf/beamtag/alg/feature"
)

func TestAuthoritiesImmutable(t *testing.T) {
	sources := []string{"model"}
	d := New("NC", 0.4, sources...)
	sources[0] = "changed"
	assert.Equal(t, []string{"model"}, d.Authorities())

	e := d.WithAuthority("rule")
	assert.Equal(t, []string{"model"}, d.Authorities())
	assert.Equal(t, []string{"model", "rule"}, e.Authorities())

	got := e.Authorities()
	got[0] = "mutated"
	assert.Equal(t, []string{"model", "rule"}, e.Authorities())
}

func TestRankedAndFloor(t *testing.T) {
	decisions := Ranked([]Decision{New("B", 0.3), New("C", 0.0005), New("A", 0.3), New("D", 0.3995)})
	outcomes := []string{}
	for _, d := range decisions {
		outcomes = append(outcomes, d.Outcome)
	}
	assert.Equal(t, []string{"D", "A", "B", "C"}, outcomes)

	kept, restored := Floor(decisions, 0.001)
	assert.False(t, restored)
	assert.Len(t, kept, 3)

	tiny := []Decision{New("A", 0.0001), New("B", 0.0002)}
	kept, restored = Floor(tiny, 0.001)
	assert.True(t, restored)
	assert.Equal(t, tiny, kept)
}

func TestRenormalise(t *testing.T) {
	r := Renormalise([]Decision{New("A", 0.2), New("B", 0.6)})
	assert.InDelta(t, 0.25, r[0].Probability, 1e-9)
	assert.InDelta(t, 0.75, r[1].Probability, 1e-9)
	assert.True(t, r[0].Statistical)
}

const table = `
feature: word
rows:
  - value: Le
    outcomes: {DET: 0.9, PRON: 0.1}
  - value: chat
    outcomes: {NC: 0.95, V: 0.05}
default: {NC: 0.5, V: 0.5}
`

func TestTableSource(t *testing.T) {
	source, err := LoadTable(strings.NewReader(table))
	require.NoError(t, err)

	word := func(w string) []*feature.Result {
		return []*feature.Result{
			{Feature: "suffix", Type: feature.StringType, Value: "e"},
			{Feature: "word", Type: feature.StringType, Value: w},
		}
	}
	decisions, err := source.Decide(word("Le"))
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, "DET", decisions[0].Outcome)
	assert.InDelta(t, 0.9, decisions[0].Probability, 1e-9)
	assert.True(t, decisions[0].Statistical)
	assert.Equal(t, []string{TABLE_AUTHORITY}, decisions[0].Authorities())

	decisions, err = source.Decide(word("inconnu"))
	require.NoError(t, err)
	assert.Equal(t, "NC", decisions[0].Outcome)

	// returned slices are copies
	decisions[0] = New("X", 1)
	again, _ := source.Decide(word("inconnu"))
	assert.Equal(t, "NC", again[0].Outcome)
}

func TestTableSourceErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"no feature": "default: {A: 1}",
		"no default": "feature: word",
		"range":      "feature: word\ndefault: {A: 1.5}",
		"empty row":  "feature: word\ndefault: {A: 1}\nrows:\n  - value: x\n",
	} {
		_, err := LoadTable(strings.NewReader(doc))
		assert.Error(t, err, name)
	}
}
