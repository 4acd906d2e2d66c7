// Package quanta derives the rotational indices that empirical line-shape
// fits are keyed on.
//
// The reduced index m is |m| in the usual spectroscopic sense:
//
//	P branch: m = -J"  (so |m| = J")
//	Q branch: m =  J"
//	R branch: m =  J" + 1
package quanta

import (
	"github.com/cockroachdb/errors"

	"github.com/rcliao/linebroad/internal/model"
)

var (
	// ErrUnknownBranch is returned for a branch label outside {P, Q, R}.
	ErrUnknownBranch = errors.New("unrecognized branch")

	// ErrUnknownTransition is returned when J' is not J"-1, J" or J"+1.
	ErrUnknownTransition = errors.New("unrecognized transition")
)

// Branch labels.
const (
	BranchP = 'P'
	BranchQ = 'Q'
	BranchR = 'R'
)

// Reduced returns |m| for a branch label and lower-state J.
func Reduced(branch byte, jLower int) (int, error) {
	switch branch {
	case BranchR:
		return jLower + 1, nil
	case BranchP, BranchQ:
		return jLower, nil
	}
	return 0, errors.Wrapf(ErrUnknownBranch, "branch %q", string(branch))
}

// BranchSign returns the rotational shift multiplier: R → -1, P → +1, Q → 0.
func BranchSign(branch byte) (int, error) {
	switch branch {
	case BranchR:
		return -1, nil
	case BranchP:
		return 1, nil
	case BranchQ:
		return 0, nil
	}
	return 0, errors.Wrapf(ErrUnknownBranch, "branch %q", string(branch))
}

// Composite returns J" + 0.2·Ka", the index used for asymmetric tops.
func Composite(jLower, kaLower int) float64 {
	return float64(jLower) + 0.2*float64(kaLower)
}

// Transition classifies a transition by comparing J' to J" and returns |m|.
func Transition(jUpper, jLower int) (int, error) {
	switch jUpper {
	case jLower + 1:
		return jLower + 1, nil
	case jLower - 1, jLower:
		return jLower, nil
	}
	return 0, errors.Wrapf(ErrUnknownTransition, "J'=%d J\"=%d", jUpper, jLower)
}

// BandChange returns v' - v".
func BandChange(vUpper, vLower int) int {
	return vUpper - vLower
}

// Remap applies the first matching rule, or returns x unchanged.
func Remap(x float64, rules []model.Rule) float64 {
	if v, ok := model.FirstMatch(rules, x); ok {
		return v
	}
	return x
}

// Code evaluates an uncertainty step function at x.
func Code(x float64, u model.Uncertainty) int {
	if v, ok := model.FirstMatch(u.Rules, x); ok {
		return int(v)
	}
	return u.Default
}

// IsDropped reports whether err marks a record with no usable index.
func IsDropped(err error) bool {
	return errors.Is(err, ErrUnknownBranch) || errors.Is(err, ErrUnknownTransition)
}
