// Package model defines the core line-list and species model data types.
package model

// Functional forms a quantity may take.
const (
	FormRational = "rational"
	FormLinear   = "linear"
	FormConstant = "constant"
	FormShift    = "shift"
	FormBipoly   = "bipoly"
)

// Index derivation kinds.
const (
	KindReduced    = "reduced"
	KindBranchSign = "branch_sign"
	KindBandChange = "band_change"
	KindComposite  = "composite"
	KindTransition = "transition"
	KindJLower     = "j_lower"
	KindKaUpper    = "ka_upper"
	KindAir        = "air"
)

// Parameters a quantity can describe.
const (
	ParamGamma = "gamma"
	ParamN     = "n"
	ParamDelta = "delta"
)

// Catalog is a versioned set of species models.
type Catalog struct {
	Version string    `toml:"version" json:"version" yaml:"version"`
	Species []Species `toml:"species" json:"species" yaml:"species"`
}

// Species is the full model set for one molecule / line-list flavour.
type Species struct {
	ID         string           `toml:"id" json:"id" yaml:"id"`
	Molecule   string           `toml:"molecule" json:"molecule" yaml:"molecule"`
	Title      string           `toml:"title" json:"title" yaml:"title"`
	Layout     map[string][]int `toml:"layout" json:"layout" yaml:"layout"`
	Prefix     []Literal        `toml:"prefix" json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Indices    []Index          `toml:"index" json:"indices" yaml:"indices"`
	Quantities []Quantity       `toml:"quantity" json:"quantities" yaml:"quantities"`
}

// Literal is a fixed column written ahead of the computed groups.
type Literal struct {
	Name  string `toml:"name" json:"name" yaml:"name"`
	Value string `toml:"value" json:"value" yaml:"value"`
}

// Index names a per-record derived value.
type Index struct {
	Name  string `toml:"name" json:"name" yaml:"name"`
	Kind  string `toml:"kind" json:"kind" yaml:"kind"`
	Remap []Rule `toml:"remap" json:"remap,omitempty" yaml:"remap,omitempty"`
}

// Arg binds a quantity argument to an index, with an optional clamp that
// only this quantity sees.
type Arg struct {
	Index string `toml:"index" json:"index" yaml:"index"`
	Clamp []Rule `toml:"clamp" json:"clamp,omitempty" yaml:"clamp,omitempty"`
}

// Uncertainty is a first-match step function from an index to a HITRAN
// uncertainty code.
type Uncertainty struct {
	Index   string `toml:"index" json:"index,omitempty" yaml:"index,omitempty"`
	Rules   []Rule `toml:"rules" json:"rules,omitempty" yaml:"rules,omitempty"`
	Default int    `toml:"default" json:"default" yaml:"default"`
}

// Quantity is one computed output group: value, uncertainty code, reference.
type Quantity struct {
	Name         string      `toml:"name" json:"name" yaml:"name"`
	Partner      string      `toml:"partner" json:"partner" yaml:"partner"`
	Parameter    string      `toml:"parameter" json:"parameter" yaml:"parameter"`
	Form         string      `toml:"form" json:"form" yaml:"form"`
	Args         []Arg       `toml:"args" json:"args,omitempty" yaml:"args,omitempty"`
	Coefficients []float64   `toml:"coefficients" json:"coefficients,omitempty" yaml:"coefficients,omitempty"`
	BandFactor   float64     `toml:"band_factor" json:"band_factor,omitempty" yaml:"band_factor,omitempty"`
	Value        string      `toml:"value" json:"value,omitempty" yaml:"value,omitempty"`
	Scale        string      `toml:"scale" json:"scale,omitempty" yaml:"scale,omitempty"`
	Format       string      `toml:"format" json:"format" yaml:"format"`
	Uncertainty  Uncertainty `toml:"uncertainty" json:"uncertainty" yaml:"uncertainty"`
	Reference    string      `toml:"reference" json:"reference" yaml:"reference"`
}

// ValidForms are the allowed functional forms.
var ValidForms = map[string]bool{
	FormRational: true,
	FormLinear:   true,
	FormConstant: true,
	FormShift:    true,
	FormBipoly:   true,
}

// ValidKinds are the allowed index derivation kinds.
var ValidKinds = map[string]bool{
	KindReduced:    true,
	KindBranchSign: true,
	KindBandChange: true,
	KindComposite:  true,
	KindTransition: true,
	KindJLower:     true,
	KindKaUpper:    true,
	KindAir:        true,
}

// ValidParameters are the allowed quantity parameters.
var ValidParameters = map[string]bool{
	ParamGamma: true,
	ParamN:     true,
	ParamDelta: true,
}
