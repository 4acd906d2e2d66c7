package species

import (
	"fmt"
	"strconv"

	"github.com/rcliao/linebroad/internal/fit"
	"github.com/rcliao/linebroad/internal/hitran"
	"github.com/rcliao/linebroad/internal/model"
	"github.com/rcliao/linebroad/internal/quanta"
)

// Indices holds one record's derived index values, positioned as the
// species' index list.
type Indices []float64

// Result is one evaluated quantity for one record.
type Result struct {
	Quantity    string
	Value       float64
	Text        string
	Uncertainty int
	Reference   string
}

// Fields renders the result as its three output fields.
func (r Result) Fields() []string {
	return []string{r.Text, hitran.Code(strconv.Itoa(r.Uncertainty)), hitran.Code(r.Reference)}
}

type arg struct {
	pos   int
	clamp []model.Rule
}

type quantity struct {
	def   model.Quantity
	args  []arg
	unc   int // -1 when the uncertainty code is constant
	scale int // -1 when unscaled
	eval  func(x []float64) float64
}

// Engine evaluates one species' models. It is immutable after New and safe
// for concurrent use.
type Engine struct {
	species    model.Species
	layout     hitran.Layout
	quantities []quantity
}

// New validates a species entry and compiles it into an Engine.
func New(sp model.Species) (*Engine, error) {
	if err := ValidateSpecies(sp); err != nil {
		return nil, err
	}
	layout, err := LayoutOf(sp)
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int, len(sp.Indices))
	for i, ix := range sp.Indices {
		pos[ix.Name] = i
	}

	e := &Engine{species: sp, layout: layout}
	for _, def := range sp.Quantities {
		q := quantity{def: def, unc: -1, scale: -1}
		for _, a := range def.Args {
			q.args = append(q.args, arg{pos: pos[a.Index], clamp: a.Clamp})
		}
		if len(def.Uncertainty.Rules) > 0 {
			q.unc = pos[def.Uncertainty.Index]
		}
		if def.Scale != "" {
			q.scale = pos[def.Scale]
		}
		q.eval = compile(def)
		e.quantities = append(e.quantities, q)
	}
	return e, nil
}

func compile(def model.Quantity) func(x []float64) float64 {
	c := def.Coefficients
	switch def.Form {
	case model.FormRational:
		var k [8]float64
		copy(k[:], c)
		r := fit.NewRational(k)
		return func(x []float64) float64 { return r.Eval(x[0]) }
	case model.FormLinear:
		r := fit.Linear(c[0], c[1])
		return func(x []float64) float64 { return r.Eval(x[0]) }
	case model.FormShift:
		var k [10]float64
		copy(k[:], c)
		s := fit.NewShift(k, def.BandFactor)
		return func(x []float64) float64 { return s.Eval(x[0], x[1], x[2]) }
	case model.FormBipoly:
		var p fit.Bipoly
		copy(p[:], c)
		return func(x []float64) float64 { return p.Eval(x[0], x[1]) }
	}
	return nil
}

// Species returns the model definition the engine was built from.
func (e *Engine) Species() model.Species { return e.species }

// Layout returns the column layout records must be parsed with.
func (e *Engine) Layout() hitran.Layout { return e.layout }

// Columns names the appended output columns in order.
func (e *Engine) Columns() []string {
	cols := make([]string, 0, len(e.species.Prefix)+len(e.quantities))
	for _, lit := range e.species.Prefix {
		cols = append(cols, lit.Name)
	}
	for _, q := range e.quantities {
		cols = append(cols, q.def.Name)
	}
	return cols
}

// Derive computes every index of the species for one record. Records whose
// branch or transition is unrecognized return an error matching
// quanta.IsDropped.
func (e *Engine) Derive(rec hitran.LineRecord) (Indices, error) {
	ix := make(Indices, len(e.species.Indices))
	for i, def := range e.species.Indices {
		var v float64
		switch def.Kind {
		case model.KindReduced:
			m, err := quanta.Reduced(rec.Branch, rec.JLower)
			if err != nil {
				return nil, err
			}
			v = float64(m)
		case model.KindBranchSign:
			s, err := quanta.BranchSign(rec.Branch)
			if err != nil {
				return nil, err
			}
			v = float64(s)
		case model.KindBandChange:
			v = float64(quanta.BandChange(rec.VUpper, rec.VLower))
		case model.KindComposite:
			v = quanta.Composite(rec.JLower, rec.KaLower)
		case model.KindTransition:
			m, err := quanta.Transition(rec.JUpper, rec.JLower)
			if err != nil {
				return nil, err
			}
			v = float64(m)
		case model.KindJLower:
			v = float64(rec.JLower)
		case model.KindKaUpper:
			v = float64(rec.KaUpper)
		case model.KindAir:
			v = rec.AirBroadening
		}
		ix[i] = quanta.Remap(v, def.Remap)
	}
	return ix, nil
}

// Evaluate runs every quantity against a record's indices.
func (e *Engine) Evaluate(ix Indices) []Result {
	out := make([]Result, len(e.quantities))
	x := make([]float64, 3)
	for i, q := range e.quantities {
		r := Result{Quantity: q.def.Name, Reference: q.def.Reference}

		if q.unc >= 0 {
			r.Uncertainty = quanta.Code(ix[q.unc], q.def.Uncertainty)
		} else {
			r.Uncertainty = q.def.Uncertainty.Default
		}

		if q.def.Form == model.FormConstant {
			r.Value, _ = strconv.ParseFloat(q.def.Value, 64)
			r.Text = hitran.Code(q.def.Value)
			out[i] = r
			continue
		}

		for j, a := range q.args {
			x[j] = quanta.Remap(ix[a.pos], a.clamp)
		}
		v := q.eval(x[:len(q.args)])
		if q.scale >= 0 {
			v *= ix[q.scale]
		}
		r.Value = v
		r.Text = fmt.Sprintf(q.def.Format, v)
		out[i] = r
	}
	return out
}

// Row assembles the output row for a record and its results.
func (e *Engine) Row(rec hitran.LineRecord, results []Result) hitran.Row {
	fields := make([]string, 0, len(e.species.Prefix)+3*len(results))
	for _, lit := range e.species.Prefix {
		fields = append(fields, hitran.Code(lit.Value))
	}
	for _, r := range results {
		fields = append(fields, r.Fields()...)
	}
	return hitran.Row{Payload: rec.Payload(), Fields: fields}
}
