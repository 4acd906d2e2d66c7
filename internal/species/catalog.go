// Package species holds the declarative species model catalog and the
// engine that evaluates it against parsed line records.
package species

import (
	_ "embed"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"

	"github.com/rcliao/linebroad/internal/hitran"
	"github.com/rcliao/linebroad/internal/model"
)

//go:embed catalog.toml
var builtin []byte

var (
	// ErrUnknownSpecies is returned by Lookup for an id not in the catalog.
	ErrUnknownSpecies = errors.New("unknown species")

	// ErrInvalidCatalog marks a catalog entry that fails validation.
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// floatVerb is the only output verb a computed quantity may use: %<w>.<p>f.
var floatVerb = regexp.MustCompile(`^%[1-9][0-9]*\.[0-9]+f$`)

// coefficient counts per form
var coefficientCount = map[string]int{
	model.FormRational: 8,
	model.FormLinear:   2,
	model.FormShift:    10,
	model.FormBipoly:   10,
}

// argument counts per form
var argCount = map[string]int{
	model.FormRational: 1,
	model.FormLinear:   1,
	model.FormConstant: 0,
	model.FormShift:    3,
	model.FormBipoly:   2,
}

// fields each index kind reads
var kindFields = map[string][]string{
	model.KindReduced:    {hitran.FieldBranch, hitran.FieldJLower},
	model.KindBranchSign: {hitran.FieldBranch},
	model.KindBandChange: {hitran.FieldVUpper, hitran.FieldVLower},
	model.KindComposite:  {hitran.FieldJLower, hitran.FieldKaLower},
	model.KindTransition: {hitran.FieldJUpper, hitran.FieldJLower},
	model.KindJLower:     {hitran.FieldJLower},
	model.KindKaUpper:    {hitran.FieldKaUpper},
	model.KindAir:        {hitran.FieldAir},
}

// Builtin returns the catalog compiled into the binary.
func Builtin() (*model.Catalog, error) {
	return Decode(strings.NewReader(string(builtin)))
}

// LoadFile reads and validates a catalog from a TOML file.
func LoadFile(path string) (*model.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer f.Close()

	cat, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", path)
	}
	return cat, nil
}

// Decode parses and validates a TOML catalog.
func Decode(r io.Reader) (*model.Catalog, error) {
	var cat model.Catalog
	md, err := toml.NewDecoder(r).Decode(&cat)
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.WithHint(
			errors.Wrapf(ErrInvalidCatalog, "unknown keys: %s", strings.Join(keys, ", ")),
			"check the key spelling against the built-in catalog (linebroad species show <id> --format yaml)")
	}
	if err := Validate(&cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Lookup finds a species by id (case-insensitive).
func Lookup(cat *model.Catalog, id string) (model.Species, error) {
	for _, sp := range cat.Species {
		if strings.EqualFold(sp.ID, id) {
			return sp, nil
		}
	}
	return model.Species{}, errors.WithHintf(
		errors.Wrapf(ErrUnknownSpecies, "%q", id),
		"available: %s", strings.Join(IDs(cat), ", "))
}

// IDs returns the catalog's species ids in catalog order.
func IDs(cat *model.Catalog) []string {
	ids := make([]string, len(cat.Species))
	for i, sp := range cat.Species {
		ids[i] = sp.ID
	}
	return ids
}

// Validate checks every species entry in the catalog.
func Validate(cat *model.Catalog) error {
	seen := map[string]bool{}
	for _, sp := range cat.Species {
		if sp.ID == "" {
			return errors.Wrap(ErrInvalidCatalog, "species with empty id")
		}
		key := strings.ToLower(sp.ID)
		if seen[key] {
			return errors.Wrapf(ErrInvalidCatalog, "duplicate species %q", sp.ID)
		}
		seen[key] = true
		if err := ValidateSpecies(sp); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSpecies checks one species entry.
func ValidateSpecies(sp model.Species) error {
	bad := func(format string, args ...interface{}) error {
		return errors.Wrapf(ErrInvalidCatalog, "species %s: "+format, append([]interface{}{sp.ID}, args...)...)
	}

	if _, err := LayoutOf(sp); err != nil {
		return bad("%v", err)
	}
	if len(sp.Quantities) == 0 {
		return bad("no quantities")
	}

	indices := map[string]bool{}
	for _, ix := range sp.Indices {
		if ix.Name == "" {
			return bad("index with empty name")
		}
		if indices[ix.Name] {
			return bad("duplicate index %q", ix.Name)
		}
		if !model.ValidKinds[ix.Kind] {
			return bad("index %s: unknown kind %q", ix.Name, ix.Kind)
		}
		for _, f := range kindFields[ix.Kind] {
			if _, ok := sp.Layout[f]; !ok {
				return bad("index %s: kind %s needs layout field %q", ix.Name, ix.Kind, f)
			}
		}
		if err := validateRules(ix.Remap); err != nil {
			return bad("index %s: %v", ix.Name, err)
		}
		indices[ix.Name] = true
	}

	for _, lit := range sp.Prefix {
		if lit.Name == "" || lit.Value == "" {
			return bad("prefix column needs a name and a value")
		}
	}

	names := map[string]bool{}
	for _, q := range sp.Quantities {
		if q.Name == "" {
			return bad("quantity with empty name")
		}
		if names[q.Name] {
			return bad("duplicate quantity %q", q.Name)
		}
		names[q.Name] = true

		if !model.ValidForms[q.Form] {
			return bad("%s: unknown form %q", q.Name, q.Form)
		}
		if !model.ValidParameters[q.Parameter] {
			return bad("%s: unknown parameter %q", q.Name, q.Parameter)
		}
		if q.Reference == "" {
			return bad("%s: empty reference", q.Name)
		}
		if want := argCount[q.Form]; len(q.Args) != want {
			return bad("%s: form %s takes %d index arguments, got %d", q.Name, q.Form, want, len(q.Args))
		}
		if q.Form == model.FormConstant {
			if q.Value == "" {
				return bad("%s: constant form needs a value", q.Name)
			}
		} else {
			if want := coefficientCount[q.Form]; len(q.Coefficients) != want {
				return bad("%s: form %s takes %d coefficients, got %d", q.Name, q.Form, want, len(q.Coefficients))
			}
			if q.Format == "" {
				return bad("%s: empty format", q.Name)
			}
			if !floatVerb.MatchString(q.Format) {
				return bad("%s: format %q is not a fixed-width float verb like %%8.4f", q.Name, q.Format)
			}
		}
		for _, a := range q.Args {
			if !indices[a.Index] {
				return bad("%s: unknown index %q", q.Name, a.Index)
			}
			if err := validateRules(a.Clamp); err != nil {
				return bad("%s: %v", q.Name, err)
			}
		}
		if q.Scale != "" && !indices[q.Scale] {
			return bad("%s: unknown scale index %q", q.Name, q.Scale)
		}
		u := q.Uncertainty
		if len(u.Rules) > 0 && !indices[u.Index] {
			return bad("%s: uncertainty rules need a known index, got %q", q.Name, u.Index)
		}
		if err := validateRules(u.Rules); err != nil {
			return bad("%s: uncertainty: %v", q.Name, err)
		}
	}
	return nil
}

func validateRules(rules []model.Rule) error {
	for _, r := range rules {
		if !model.ValidOps[r.Op] {
			return errors.Newf("unknown rule op %q", r.Op)
		}
	}
	return nil
}

// LayoutOf converts a species' layout table to column spans.
func LayoutOf(sp model.Species) (hitran.Layout, error) {
	if len(sp.Layout) == 0 {
		return nil, errors.New("empty layout")
	}
	names := make([]string, 0, len(sp.Layout))
	for name := range sp.Layout {
		names = append(names, name)
	}
	sort.Strings(names)

	layout := hitran.Layout{}
	for _, name := range names {
		span := sp.Layout[name]
		if !hitran.ValidFields[name] {
			return nil, errors.Newf("unknown layout field %q", name)
		}
		if len(span) != 2 || span[0] < 0 || span[1] <= span[0] {
			return nil, errors.Newf("layout field %s: want [start, end) with start < end, got %v", name, span)
		}
		layout[name] = hitran.Span{Start: span[0], End: span[1]}
	}
	return layout, nil
}
