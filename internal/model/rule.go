package model

// Rule is one step of a first-match table: when x <Op> At holds, the
// result is Set.
type Rule struct {
	Op  string  `toml:"op" json:"op" yaml:"op"`
	At  float64 `toml:"at" json:"at" yaml:"at"`
	Set float64 `toml:"set" json:"set" yaml:"set"`
}

// ValidOps are the allowed rule comparison operators.
var ValidOps = map[string]bool{
	"lt": true,
	"le": true,
	"eq": true,
	"ge": true,
	"gt": true,
}

// Match reports whether x satisfies the rule's comparison.
func (r Rule) Match(x float64) bool {
	switch r.Op {
	case "lt":
		return x < r.At
	case "le":
		return x <= r.At
	case "eq":
		return x == r.At
	case "ge":
		return x >= r.At
	case "gt":
		return x > r.At
	}
	return false
}

// FirstMatch returns the Set value of the first rule x satisfies.
func FirstMatch(rules []Rule, x float64) (float64, bool) {
	for _, r := range rules {
		if r.Match(x) {
			return r.Set, true
		}
	}
	return 0, false
}
