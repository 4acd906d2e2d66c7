package species

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/linebroad/internal/hitran"
)

const minimal = `
version = "test"

[[species]]
id = "xy"
molecule = "XY"

[species.layout]
branch = [117, 118]
j_lower = [118, 121]

[[species.index]]
name = "m"
kind = "reduced"

[[species.quantity]]
name = "gamma_He"
partner = "He"
parameter = "gamma"
form = "linear"
args = [{ index = "m" }]
coefficients = [0.05, -0.001]
format = "%8.4f"
reference = "1"
[species.quantity.uncertainty]
default = 3
`

func TestBuiltin(t *testing.T) {
	cat, err := Builtin()
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Version)
	assert.Equal(t,
		[]string{"co", "co2", "co-shift-he", "co-shift-h2", "co-shift-co2", "h2co", "ocs", "ph3", "h2s", "hcn", "n2o"},
		IDs(cat))
}

func TestDecode_Minimal(t *testing.T) {
	cat, err := Decode(strings.NewReader(minimal))
	require.NoError(t, err)
	require.Len(t, cat.Species, 1)

	sp := cat.Species[0]
	assert.Equal(t, "xy", sp.ID)
	assert.Equal(t, []int{117, 118}, sp.Layout["branch"])
	assert.Equal(t, []float64{0.05, -0.001}, sp.Quantities[0].Coefficients)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		message string
	}{
		{"unknown key", `molecule = "XY"`, "molecule = \"XY\"\ncolour = \"red\"", "unknown keys"},
		{"unknown form", `form = "linear"`, `form = "spline"`, "unknown form"},
		{"unknown kind", `kind = "reduced"`, `kind = "sideways"`, "unknown kind"},
		{"coefficient count", `coefficients = [0.05, -0.001]`, `coefficients = [0.05]`, "takes 2 coefficients"},
		{"unknown index", `args = [{ index = "m" }]`, `args = [{ index = "k" }]`, "unknown index"},
		{"missing layout field", `j_lower = [118, 121]`, ``, "needs layout field"},
		{"bad span", `j_lower = [118, 121]`, `j_lower = [121, 118]`, "start < end"},
		{"unknown layout field", `j_lower = [118, 121]`, "j_lower = [118, 121]\nspin = [1, 2]", "unknown layout field"},
		{"bad rule op", `args = [{ index = "m" }]`, `args = [{ index = "m", clamp = [{ op = "ne", at = 1, set = 2 }] }]`, "unknown rule op"},
		{"empty reference", `reference = "1"`, `reference = ""`, "empty reference"},
		{"bad parameter", `parameter = "gamma"`, `parameter = "width"`, "unknown parameter"},
		{"integer format", `format = "%8.4f"`, `format = "%d"`, "not a fixed-width float verb"},
		{"format without width", `format = "%8.4f"`, `format = "%.4f"`, "not a fixed-width float verb"},
		{"format with suffix", `format = "%8.4f"`, `format = "%8.4f cm"`, "not a fixed-width float verb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := strings.Replace(minimal, tt.from, tt.to, 1)
			require.NotEqual(t, minimal, src)

			_, err := Decode(strings.NewReader(src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCatalog), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDecode_DuplicateSpecies(t *testing.T) {
	src := minimal + strings.Replace(minimal, `version = "test"`, "", 1)
	_, err := Decode(strings.NewReader(src))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCatalog))
	assert.Contains(t, err.Error(), "duplicate species")
}

func TestDecode_Syntax(t *testing.T) {
	_, err := Decode(strings.NewReader("version = "))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode catalog")
}

func TestLookup(t *testing.T) {
	cat, err := Builtin()
	require.NoError(t, err)

	sp, err := Lookup(cat, "PH3")
	require.NoError(t, err)
	assert.Equal(t, "ph3", sp.ID)

	_, err = Lookup(cat, "ch4")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownSpecies))
	hints := strings.Join(errors.GetAllHints(err), " ")
	assert.Contains(t, hints, "co2")
	assert.Contains(t, hints, "n2o")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.toml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o644))

	cat, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cat.Version)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLayoutOf(t *testing.T) {
	cat, err := Builtin()
	require.NoError(t, err)
	sp, err := Lookup(cat, "co-shift-he")
	require.NoError(t, err)

	layout, err := LayoutOf(sp)
	require.NoError(t, err)
	assert.Equal(t, hitran.Span{Start: 117, End: 118}, layout[hitran.FieldBranch])
	assert.Equal(t, hitran.PayloadWidth, layout.Width())
}
