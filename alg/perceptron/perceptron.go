// Package perceptron trains a multiclass linear model over feature results
// and exposes it as a decision source with softmax probabilities.
package perceptron

import (
	"encoding/gob"
	"io"
	"math"
	"sort"

	"github.com/habeanf/beamtag/alg/decision"
	"github.com/habeanf/beamtag/alg/feature"
	"github.com/habeanf/beamtag/alg/featurevector"
	"github.com/habeanf/beamtag/util"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Model holds one weight vector per outcome
type Model struct {
	Outcomes []string
	Weights  map[string]featurevector.Sparse
}

var _ decision.Source = &Model{}

func NewModel(outcomes ...string) *Model {
	m := &Model{Weights: make(map[string]featurevector.Sparse)}
	for _, o := range outcomes {
		m.addOutcome(o)
	}
	return m
}

func (m *Model) addOutcome(outcome string) {
	if _, exists := m.Weights[outcome]; exists {
		return
	}
	m.Weights[outcome] = featurevector.NewSparse()
	m.Outcomes = append(m.Outcomes, outcome)
	sort.Strings(m.Outcomes)
}

func (m *Model) New() *Model {
	return NewModel(m.Outcomes...)
}

func (m *Model) Copy() *Model {
	c := &Model{Outcomes: append([]string(nil), m.Outcomes...), Weights: make(map[string]featurevector.Sparse, len(m.Weights))}
	for o, w := range m.Weights {
		c.Weights[o] = w.Copy()
	}
	return c
}

func (m *Model) AddModel(other *Model) {
	for o, w := range other.Weights {
		m.addOutcome(o)
		m.Weights[o].UpdateAdd(w)
	}
}

func (m *Model) ScalarDivide(by float64) {
	for _, w := range m.Weights {
		w.UpdateScalarDivide(by)
	}
}

// Scores returns the raw score of every outcome, in outcome order
func (m *Model) Scores(vec featurevector.Sparse) []float64 {
	scores := make([]float64, len(m.Outcomes))
	for i, o := range m.Outcomes {
		scores[i] = m.Weights[o].DotProduct(vec)
	}
	return scores
}

// Predict returns the best scoring outcome; ties go to the first outcome
func (m *Model) Predict(vec featurevector.Sparse) string {
	scores := m.Scores(vec)
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return m.Outcomes[best]
}

// Decide turns outcome scores into a softmax distribution
func (m *Model) Decide(results []*feature.Result) ([]decision.Decision, error) {
	if len(m.Outcomes) == 0 {
		return nil, errors.New("perceptron model has no outcomes")
	}
	scores := m.Scores(Vector(results))
	max := math.Inf(-1)
	for _, s := range scores {
		max = math.Max(max, s)
	}
	total := 0.0
	for i, s := range scores {
		scores[i] = math.Exp(s - max)
		total += scores[i]
	}
	decisions := make([]decision.Decision, len(scores))
	for i, o := range m.Outcomes {
		decisions[i] = decision.New(o, scores[i]/total, PERCEPTRON_AUTHORITY)
	}
	return decision.Ranked(decisions), nil
}

func (m *Model) Write(writer io.Writer) error {
	return errors.Wrap(gob.NewEncoder(writer).Encode(m), "encoding model")
}

func Read(reader io.Reader) (*Model, error) {
	m := &Model{}
	if err := gob.NewDecoder(reader).Decode(m); err != nil {
		return nil, errors.Wrap(err, "decoding model")
	}
	if m.Weights == nil {
		m.Weights = make(map[string]featurevector.Sparse)
	}
	for _, o := range m.Outcomes {
		if m.Weights[o] == nil {
			m.Weights[o] = featurevector.NewSparse()
		}
	}
	return m, nil
}

type StopCondition func(curIt, numIt, generations int, model *Model) bool

func DefaultStopCondition(iteration, iterations, generations int, model *Model) bool {
	return iteration < iterations
}

type LinearPerceptron struct {
	Updater    UpdateStrategy
	Iterations int
	Model      *Model
	Log        *zap.Logger

	Continue StopCondition
}

// Train runs the perceptron over the instances and returns the final model
func (p *LinearPerceptron) Train(instances []Instance) *Model {
	log := util.OrNop(p.Log)
	if p.Continue == nil {
		p.Continue = DefaultStopCondition
	}
	if p.Updater == nil {
		p.Updater = &TrivialStrategy{}
	}
	if p.Model == nil {
		p.Model = NewModel()
	}
	vectors := make([]featurevector.Sparse, len(instances))
	for i, inst := range instances {
		p.Model.addOutcome(inst.Outcome)
		vectors[i] = Vector(inst.Results)
	}
	p.Updater.Init(p.Model, p.Iterations)
	generations := 0
	for i := 0; p.Continue(i, p.Iterations, generations, p.Model); i++ {
		errs := 0
		for j, inst := range instances {
			predicted := p.Model.Predict(vectors[j])
			if predicted != inst.Outcome {
				p.Model.Weights[inst.Outcome].UpdateAdd(vectors[j])
				p.Model.Weights[predicted].UpdateSubtract(vectors[j])
				errs++
			}
			generations++
			p.Updater.Update(p.Model)
		}
		log.Info("iteration", zap.Int("iteration", i+1), zap.Int("errors", errs), zap.Int("instances", len(instances)))
	}
	p.Model = p.Updater.Finalize(p.Model)
	return p.Model
}

type TrivialStrategy struct{}

func (u *TrivialStrategy) Init(m *Model, iterations int) {

}

func (u *TrivialStrategy) Update(m *Model) {

}

func (u *TrivialStrategy) Finalize(m *Model) *Model {
	return m
}

type AveragedStrategy struct {
	P, N       int64
	accumModel *Model
}

func (u *AveragedStrategy) Init(m *Model, iterations int) {
	u.N = 0
	u.P = int64(iterations)
	u.accumModel = m.New()
}

func (u *AveragedStrategy) Update(m *Model) {
	u.accumModel.AddModel(m)
	u.N += 1
}

func (u *AveragedStrategy) Finalize(m *Model) *Model {
	// N already counts iterations*instances
	if u.N == 0 {
		return m
	}
	u.accumModel.ScalarDivide(float64(u.N))
	return u.accumModel
}
