package featurevector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparse(t *testing.T) {
	v := Sparse{"a": 1, "b": 2}
	w := v.Copy()
	w.UpdateAdd(Sparse{"b": -2, "c": 3})
	assert.Equal(t, Sparse{"a": 1, "c": 3}, w)
	assert.Equal(t, Sparse{"a": 1, "b": 2}, v)

	w.UpdateSubtract(NewVectorOfOnes("a"))
	assert.Equal(t, Sparse{"c": 3}, w)

	assert.Equal(t, 2.0, v.DotProduct(NewVectorOfOnes("b", "z")))
	assert.Equal(t, 5.0, Sparse{"a": -2, "b": 3}.L1Norm())
	assert.Equal(t, Sparse{"a": 0.5, "b": 1}, v.UpdateScalarDivide(2))
	assert.Panics(t, func() { v.UpdateScalarDivide(0) })
	assert.Equal(t, "a 0.5\nb 1", v.String())
}
