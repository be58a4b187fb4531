// Package decision defines scored outcomes and the sources that produce them.
package decision

import (
	"fmt"
	"sort"
	"strings"

	"github.com/habeanf/beamtag/alg/feature"
)

// Decision is one scored candidate outcome for a single step.
// Authorities record provenance and are fixed at construction.
type Decision struct {
	Outcome     string
	Probability float64
	Statistical bool
	authorities []string
}

// New builds a statistical decision
func New(outcome string, probability float64, authorities ...string) Decision {
	return Decision{outcome, probability, true, copyStrings(authorities)}
}

// Forced builds a non-statistical decision with probability 1
func Forced(outcome string, authorities ...string) Decision {
	return Decision{outcome, 1, false, copyStrings(authorities)}
}

func copyStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

// Authorities returns a copy of the provenance list
func (d Decision) Authorities() []string {
	return copyStrings(d.authorities)
}

// WithAuthority returns a copy of d with an extra authority appended
func (d Decision) WithAuthority(authority string) Decision {
	a := make([]string, len(d.authorities), len(d.authorities)+1)
	copy(a, d.authorities)
	d.authorities = append(a, authority)
	return d
}

// WithProbability returns a copy of d with a new probability
func (d Decision) WithProbability(p float64) Decision {
	d.Probability = p
	return d
}

func (d Decision) String() string {
	s := fmt.Sprintf("%s:%.4g", d.Outcome, d.Probability)
	if !d.Statistical {
		s += "!"
	}
	if len(d.authorities) > 0 {
		s += "[" + strings.Join(d.authorities, ",") + "]"
	}
	return s
}

// Source turns extracted features into a non-empty ranked decision list.
// Implementations must not mutate their input and must be safe for concurrent use.
type Source interface {
	Decide(features []*feature.Result) ([]Decision, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(features []*feature.Result) ([]Decision, error)

func (f SourceFunc) Decide(features []*feature.Result) ([]Decision, error) {
	return f(features)
}

// Ranked sorts by descending probability, breaking ties by outcome
func Ranked(decisions []Decision) []Decision {
	sort.SliceStable(decisions, func(i, j int) bool {
		if decisions[i].Probability != decisions[j].Probability {
			return decisions[i].Probability > decisions[j].Probability
		}
		return decisions[i].Outcome < decisions[j].Outcome
	})
	return decisions
}

// Total sums the probabilities
func Total(decisions []Decision) float64 {
	var total float64
	for _, d := range decisions {
		total += d.Probability
	}
	return total
}

// Renormalise scales probabilities to sum to 1
func Renormalise(decisions []Decision) []Decision {
	total := Total(decisions)
	if total <= 0 {
		return decisions
	}
	retval := make([]Decision, len(decisions))
	for i, d := range decisions {
		retval[i] = d.WithProbability(d.Probability / total)
	}
	return retval
}

// Floor drops decisions below min. If nothing would survive the original
// list is returned with restored set.
func Floor(decisions []Decision, min float64) (kept []Decision, restored bool) {
	kept = make([]Decision, 0, len(decisions))
	for _, d := range decisions {
		if d.Probability >= min {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return decisions, true
	}
	return kept, false
}
