package fit

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// CO–He broadening fit.
var coHe = NewRational([8]float64{0.0809, 0.3641, -0.04025, 0.00178, 8.1769, -0.9105, 0.0397, 2.556e-6})

func TestRational_CoHeliumAtSix(t *testing.T) {
	got := coHe.Eval(6)
	assert.InDelta(t, 0.0464381741478206, got, 1e-12)
	assert.Equal(t, "  0.0464", fmt.Sprintf("%8.4f", got))
}

func TestRational_Idempotent(t *testing.T) {
	for _, x := range []float64{0, 1, 6, 40.2, 121} {
		a := coHe.Eval(x)
		b := coHe.Eval(x)
		assert.Equal(t, math.Float64bits(a), math.Float64bits(b), "x=%v", x)
	}
}

func TestRational_AtZeroIsA0(t *testing.T) {
	assert.Equal(t, 0.0809, coHe.Eval(0))
}

func TestLinear_IsDegenerateRational(t *testing.T) {
	l := Linear(0.05915, -0.00104)
	assert.InDelta(t, -0.00104*14+0.05915, l.Eval(14), 1e-15)
	assert.Equal(t, [4]float64{}, l.B)

	var f Func = l
	assert.InDelta(t, 0.05915, f.Eval(0), 1e-15)
}

func TestExpansion(t *testing.T) {
	e := Expansion{Alpha1: 1, Alpha2: 2, Alpha3: 3, Beta2: 0, Beta3: 0}
	assert.Equal(t, 6.0, e.Eval(10))

	e = Expansion{Alpha1: 1, Alpha2: 1, Beta2: math.Ln2}
	assert.InDelta(t, 1.5, e.Eval(1), 1e-15)
}

func TestShift_CoCarbonDioxideRBranch(t *testing.T) {
	s := NewShift([10]float64{
		1.25396, -2.05688, 0.803285, 0.001053, 0.002796,
		0.01503, 0.02691, -0.04405, 0.02746, 0.008576,
	}, 0.5)
	got := s.Eval(6, -1, 1)
	assert.Equal(t, "-0.001950", fmt.Sprintf("%9.6f", got))
}

func TestShift_QBranchNoBandChangeIsZero(t *testing.T) {
	s := NewShift([10]float64{0.104665, -0.19055, 0.08574, -0.00028, -0.000286,
		-0.04897, 0.00056, 0.04842, 0.001196, 0.0012377}, 0.32)
	assert.Equal(t, 0.0, math.Abs(s.Eval(10, 0, 0)))
}

func TestShift_HeliumPBranch(t *testing.T) {
	s := NewShift([10]float64{0.104665, -0.19055, 0.08574, -0.00028, -0.000286,
		-0.04897, 0.00056, 0.04842, 0.001196, 0.0012377}, 0.32)
	assert.Equal(t, "-0.000623", fmt.Sprintf("%9.6f", s.Eval(10, 1, 1)))
}

func TestBipoly(t *testing.T) {
	p := Bipoly{1.134e-01, -1.658e-03, -1.880e-03, -1.956e-05, -7.558e-04,
		7.189e-04, 1.643e-06, -1.943e-05, -3.443e-05, 5.511e-05}
	assert.Equal(t, 0.1134, p.Eval(0, 0))
	assert.Equal(t, "  0.0803", fmt.Sprintf("%8.4f", p.Eval(22, 5)))
	assert.Equal(t, "  0.1052", fmt.Sprintf("%8.4f", p.Eval(4, 2)))
}
