package perceptron

import (
	"github.com/habeanf/beamtag/alg/feature"
	"github.com/habeanf/beamtag/alg/featurevector"
)

const (
	PERCEPTRON_AUTHORITY = "perceptron"
	BIAS_FEATURE         = "*bias*"
)

// Instance is one training event: the features seen and the gold outcome
type Instance struct {
	Results []*feature.Result
	Outcome string
}

type UpdateStrategy interface {
	Init(m *Model, iterations int)
	Update(m *Model)
	Finalize(m *Model) *Model
}

// Vector converts feature results to a sparse vector. String results become
// name=value indicators, true booleans become name, numbers keep their value
// and collections contribute one weighted indicator per item.
func Vector(results []*feature.Result) featurevector.Sparse {
	vec := featurevector.NewVectorOfOnes(BIAS_FEATURE)
	for _, r := range results {
		if r == nil {
			continue
		}
		name := r.Feature
		switch r.Type {
		case feature.StringType:
			vec[name+"="+r.Str()] += 1
		case feature.BooleanType:
			if r.Bool() {
				vec[name] += 1
			}
		case feature.IntegerType, feature.DoubleType:
			if f := r.Float(); f != 0 {
				vec[name] += f
			}
		case feature.CollectionType:
			for _, item := range r.Items() {
				vec[name+"="+item.Value] += item.Weight
			}
		}
	}
	return vec
}
