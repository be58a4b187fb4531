package decision

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/habeanf/beamtag/alg/feature"
)

const TABLE_AUTHORITY = "table"

// TableSource returns a fixed distribution chosen by the value of one feature.
// The first row whose Value matches wins; Default covers everything else.
//
//	feature: word
//	rows:
//	  - value: Le
//	    outcomes: {DET: 0.9, PRON: 0.1}
//	default: {NC: 0.5, V: 0.5}
type TableSource struct {
	Feature string             `yaml:"feature"`
	Rows    []TableRow         `yaml:"rows"`
	Default map[string]float64 `yaml:"default"`

	index    map[string][]Decision
	fallback []Decision
}

type TableRow struct {
	Value    string             `yaml:"value"`
	Outcomes map[string]float64 `yaml:"outcomes"`
}

var _ Source = &TableSource{}

func LoadTable(reader io.Reader) (*TableSource, error) {
	t := &TableSource{}
	if err := yaml.NewDecoder(reader).Decode(t); err != nil {
		return nil, errors.Wrap(err, "decoding decision table")
	}
	if err := t.Init(); err != nil {
		return nil, err
	}
	return t, nil
}

func LoadTableFile(filename string) (*TableSource, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	t, err := LoadTable(file)
	return t, errors.Wrapf(err, "table %s", filename)
}

// Init validates the table and builds its lookup index. It must be called
// after populating a TableSource by hand.
func (t *TableSource) Init() error {
	if t.Feature == "" {
		return errors.New("decision table has no feature")
	}
	if len(t.Default) == 0 {
		return errors.New("decision table has no default distribution")
	}
	t.index = make(map[string][]Decision, len(t.Rows))
	for i, row := range t.Rows {
		if len(row.Outcomes) == 0 {
			return fmt.Errorf("decision table row %d (%s) has no outcomes", i, row.Value)
		}
		if _, exists := t.index[row.Value]; exists {
			continue
		}
		decisions, err := distribution(row.Outcomes)
		if err != nil {
			return errors.Wrapf(err, "row %d (%s)", i, row.Value)
		}
		t.index[row.Value] = decisions
	}
	fallback, err := distribution(t.Default)
	if err != nil {
		return errors.Wrap(err, "default row")
	}
	t.fallback = fallback
	return nil
}

func distribution(outcomes map[string]float64) ([]Decision, error) {
	decisions := make([]Decision, 0, len(outcomes))
	for outcome, p := range outcomes {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("probability %v for %s out of range", p, outcome)
		}
		decisions = append(decisions, New(outcome, p, TABLE_AUTHORITY))
	}
	return Ranked(decisions), nil
}

func (t *TableSource) Decide(features []*feature.Result) ([]Decision, error) {
	chosen := t.fallback
	for _, f := range features {
		if f.Feature != t.Feature {
			continue
		}
		if decisions, ok := t.index[f.Text()]; ok {
			chosen = decisions
		}
		break
	}
	retval := make([]Decision, len(chosen))
	copy(retval, chosen)
	return retval, nil
}
