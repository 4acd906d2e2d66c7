// Package fit evaluates the closed-form empirical fits used for line-shape
// parameters: Padé-style rational functions, two-exponential shift
// expansions and the bivariate cubic used for PH3.
package fit

import "math"

// Func is a single-variable fit.
type Func interface {
	Eval(x float64) float64
}

// Rational is (a0 + a1 x + a2 x² + a3 x³) / (1 + b1 x + b2 x² + b3 x³ + b4 x⁴).
// The denominator is not checked; every catalog fit is non-zero over its
// index domain.
type Rational struct {
	A [4]float64
	B [4]float64
}

// NewRational builds a Rational from the eight coefficients a0..a3, b1..b4.
func NewRational(c [8]float64) Rational {
	return Rational{
		A: [4]float64{c[0], c[1], c[2], c[3]},
		B: [4]float64{c[4], c[5], c[6], c[7]},
	}
}

// Linear returns c1·x + c0 as a degenerate Rational.
func Linear(c0, c1 float64) Rational {
	return Rational{A: [4]float64{c0, c1}}
}

// Eval evaluates the rational function at x.
func (r Rational) Eval(x float64) float64 {
	x2 := x * x
	x3 := x2 * x
	x4 := x3 * x
	num := r.A[0] + r.A[1]*x + r.A[2]*x2 + r.A[3]*x3
	den := 1 + r.B[0]*x + r.B[1]*x2 + r.B[2]*x3 + r.B[3]*x4
	return num / den
}

// Expansion is α1 + α2·e^(-β2·x) + α3·e^(-β3·x).
type Expansion struct {
	Alpha1, Alpha2, Alpha3 float64
	Beta2, Beta3           float64
}

// Eval evaluates the expansion at x.
func (e Expansion) Eval(x float64) float64 {
	return e.Alpha1 + e.Alpha2*math.Exp(-x*e.Beta2) + e.Alpha3*math.Exp(-x*e.Beta3)
}

// Shift is a pressure-shift model: a rotational expansion gated by the
// branch sign plus a vibrational expansion gated by the band multiplier.
type Shift struct {
	Rot Expansion
	Vib Expansion
	// BandFactor converts a vibrational quantum change into the multiplier z.
	BandFactor float64
}

// NewShift builds a Shift from rot α1 α2 α3 β2 β3 followed by vib α1 α2 α3 β2 β3.
func NewShift(c [10]float64, bandFactor float64) Shift {
	return Shift{
		Rot:        Expansion{Alpha1: c[0], Alpha2: c[1], Alpha3: c[2], Beta2: c[3], Beta3: c[4]},
		Vib:        Expansion{Alpha1: c[5], Alpha2: c[6], Alpha3: c[7], Beta2: c[8], Beta3: c[9]},
		BandFactor: bandFactor,
	}
}

// Eval returns sign·rot(x) + z·vib(x) with z = BandFactor·dv.
func (s Shift) Eval(x, sign, dv float64) float64 {
	z := s.BandFactor * dv
	return sign*s.Rot.Eval(x) + z*s.Vib.Eval(x)
}

// Bipoly is a full cubic in (m, k):
//
//	c0 + c1 m + c2 k + c3 m² + c4 k² + c5 m k + c6 m³ + c7 k³ + c8 m² k + c9 m k²
type Bipoly [10]float64

// Eval evaluates the polynomial at (m, k).
func (p Bipoly) Eval(m, k float64) float64 {
	return p[0] + p[1]*m + p[2]*k + p[3]*m*m + p[4]*k*k + p[5]*m*k +
		p[6]*m*m*m + p[7]*k*k*k + p[8]*m*m*k + p[9]*m*k*k
}
