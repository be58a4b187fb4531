// Package featurevector holds the sparse vectors scored by the perceptron.
package featurevector

import (
	"fmt"
	"sort"
	"strings"
)

type Sparse map[string]float64

func (v Sparse) Copy() Sparse {
	copied := make(Sparse, len(v))
	for k, val := range v {
		copied[k] = val
	}
	return copied
}

func (v Sparse) UpdateAdd(other Sparse) Sparse {
	return v.UpdateAddScaled(other, 1)
}

func (v Sparse) UpdateSubtract(other Sparse) Sparse {
	return v.UpdateAddScaled(other, -1)
}

// UpdateAddScaled adds amount*other to v in place, dropping zeroed keys
func (v Sparse) UpdateAddScaled(other Sparse, amount float64) Sparse {
	for key, otherVal := range other {
		// v[key] == 0 if v[key] does not exist
		val := v[key] + amount*otherVal
		if val != 0.0 {
			v[key] = val
		} else {
			delete(v, key)
		}
	}
	return v
}

func (v Sparse) UpdateScalarDivide(byValue float64) Sparse {
	if byValue == 0.0 {
		panic("Divide by 0")
	}
	for i, val := range v {
		v[i] = val / byValue
	}
	return v
}

func (v Sparse) DotProduct(other Sparse) float64 {
	var result float64
	for i, val := range other {
		result += v[i] * val
	}
	return result
}

func (v Sparse) L1Norm() float64 {
	var result float64
	for _, val := range v {
		if val < 0 {
			val = -val
		}
		result += val
	}
	return result
}

// String lists the entries sorted by key
func (v Sparse) String() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	strs := make([]string, len(keys))
	for i, k := range keys {
		strs[i] = fmt.Sprintf("%v %v", k, v[k])
	}
	return strings.Join(strs, "\n")
}

func NewVectorOfOnes(keys ...string) Sparse {
	vec := make(Sparse, len(keys))
	for _, k := range keys {
		vec[k] = 1.0
	}
	return vec
}

func NewSparse() Sparse {
	return make(Sparse)
}
