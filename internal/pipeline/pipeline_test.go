package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rcliao/linebroad/internal/hitran"
	"github.com/rcliao/linebroad/internal/quanta"
	"github.com/rcliao/linebroad/internal/species"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func engine(t *testing.T, id string) *species.Engine {
	t.Helper()
	cat, err := species.Builtin()
	require.NoError(t, err)
	sp, err := species.Lookup(cat, id)
	require.NoError(t, err)
	eng, err := species.New(sp)
	require.NoError(t, err)
	return eng
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "species", "testdata", name))
	require.NoError(t, err)
	return string(b)
}

// withBranch replaces the branch letter of the n-th (0-based) line.
func withBranch(t *testing.T, in string, n int, branch byte) string {
	t.Helper()
	lines := strings.SplitAfter(in, "\n")
	require.Greater(t, len(lines), n)
	b := []byte(lines[n])
	b[117] = branch
	lines[n] = string(b)
	return strings.Join(lines, "")
}

func TestRun_Golden(t *testing.T) {
	for _, workers := range []int{0, 1, 4} {
		var out bytes.Buffer
		res, err := Run(context.Background(), Config{Engine: engine(t, "co"), Workers: workers},
			strings.NewReader(fixture(t, "co.par")), &out)
		require.NoError(t, err)

		if diff := cmp.Diff(fixture(t, "co.golden"), out.String()); diff != "" {
			t.Errorf("workers=%d (-want +got):\n%s", workers, diff)
		}
		assert.Equal(t, 10, res.RecordsRead)
		assert.Equal(t, 10, res.RecordsWritten)
		assert.Equal(t, 0, res.Dropped)
		assert.Len(t, res.Lines, 10)
	}
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	// enough records for several batches
	in := strings.Repeat(fixture(t, "co-shift-he.par"), 400)

	run := func(workers int) string {
		var out bytes.Buffer
		res, err := Run(context.Background(), Config{Engine: engine(t, "co-shift-he"), Workers: workers},
			strings.NewReader(in), &out)
		require.NoError(t, err)
		require.Equal(t, 2400, res.RecordsWritten)
		return out.String()
	}

	seq := run(1)
	assert.Equal(t, seq, run(8))

	// payload round trip, line by line in input order
	inLines := strings.Split(strings.TrimSuffix(in, "\n"), "\n")
	outLines := strings.Split(strings.TrimSuffix(seq, "\n"), "\n")
	require.Len(t, outLines, len(inLines))
	for i := range inLines {
		assert.Equal(t, inLines[i][:hitran.PayloadWidth], outLines[i][:hitran.PayloadWidth], "line %d", i+1)
	}
}

func TestRun_UnknownBranchFails(t *testing.T) {
	in := withBranch(t, fixture(t, "co.par"), 1, 'S')

	var out bytes.Buffer
	res, err := Run(context.Background(), Config{Engine: engine(t, "co")}, strings.NewReader(in), &out)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, quanta.ErrUnknownBranch))
	assert.Contains(t, err.Error(), "line 2")
	assert.NotEmpty(t, errors.GetAllHints(err))
	assert.Zero(t, out.Len(), "nothing written on failure")
}

func TestRun_UnknownBranchSkipsInLockstep(t *testing.T) {
	in := withBranch(t, fixture(t, "co.par"), 1, 'S')

	core, logs := observer.New(zap.WarnLevel)
	var out bytes.Buffer
	res, err := Run(context.Background(),
		Config{Engine: engine(t, "co"), OnUnknown: PolicySkip, Workers: 2, Logger: zap.New(core).Sugar()},
		strings.NewReader(in), &out)
	require.NoError(t, err)

	assert.Equal(t, 10, res.RecordsRead)
	assert.Equal(t, 9, res.RecordsWritten)
	assert.Equal(t, 1, res.Dropped)

	golden := strings.SplitAfter(fixture(t, "co.golden"), "\n")
	want := strings.Join(append(golden[:1:1], golden[2:]...), "")
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(2), logs.All()[0].ContextMap()["line"])
}

func TestRun_PH3UnknownTransitionSkipped(t *testing.T) {
	lines := strings.SplitAfter(fixture(t, "ph3.par"), "\n")
	b := []byte(lines[0])
	copy(b[98:101], "  0")
	copy(b[113:115], " 9")
	lines[0] = string(b)

	var out bytes.Buffer
	res, err := Run(context.Background(), Config{Engine: engine(t, "ph3"), OnUnknown: PolicySkip},
		strings.NewReader(strings.Join(lines, "")), &out)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, res.RecordsRead-1, res.RecordsWritten)
}

func TestRun_MalformedAbortsRegardlessOfPolicy(t *testing.T) {
	in := fixture(t, "co.par") + "too short\n"

	var out bytes.Buffer
	_, err := Run(context.Background(), Config{Engine: engine(t, "co"), OnUnknown: PolicySkip},
		strings.NewReader(in), &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hitran.ErrMalformedRecord))
	assert.Contains(t, err.Error(), "line 11")
	assert.Zero(t, out.Len())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := Run(ctx, Config{Engine: engine(t, "co"), Workers: 4},
		strings.NewReader(fixture(t, "co.par")), &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, out.Len())
}

func TestRun_NoEngine(t *testing.T) {
	_, err := Run(context.Background(), Config{}, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "CO.par")
	out := filepath.Join(dir, "CO_out.par")
	require.NoError(t, os.WriteFile(in, []byte(fixture(t, "n2o.par")), 0o644))

	res, err := RunFile(context.Background(), Config{Engine: engine(t, "n2o")}, in, out)
	require.NoError(t, err)
	assert.Equal(t, 7, res.RecordsWritten)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, fixture(t, "n2o.golden"), string(got))
}

func TestRunFile_RemovesOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.par")
	out := filepath.Join(dir, "bad_out.par")
	require.NoError(t, os.WriteFile(in, []byte(withBranch(t, fixture(t, "co.par"), 0, 'X')), 0o644))

	res, err := RunFile(context.Background(), Config{Engine: engine(t, "co")}, in, out)
	require.Error(t, err)
	assert.Nil(t, res)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))

	_, err = RunFile(context.Background(), Config{Engine: engine(t, "co")}, filepath.Join(dir, "missing.par"), out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open input")
}

func TestRunFile_KeepsExistingOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.par")
	out := filepath.Join(dir, "bad_out.par")
	require.NoError(t, os.WriteFile(in, []byte(withBranch(t, fixture(t, "co.par"), 0, 'X')), 0o644))
	require.NoError(t, os.WriteFile(out, []byte("previous run\n"), 0o644))

	_, err := RunFile(context.Background(), Config{Engine: engine(t, "co")}, in, out)
	require.Error(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "previous run\n", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary output left behind")
}

func TestRunFile_SamePath(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "CO.par")
	src := fixture(t, "co.par")
	require.NoError(t, os.WriteFile(in, []byte(src), 0o644))

	link := filepath.Join(dir, "alias.par")
	require.NoError(t, os.Symlink(in, link))

	for _, out := range []string{in, link} {
		res, err := RunFile(context.Background(), Config{Engine: engine(t, "co")}, in, out)
		require.Error(t, err, out)
		assert.Nil(t, res)
		assert.Contains(t, err.Error(), "is the input file")
		assert.Contains(t, errors.FlattenHints(err), "--out")

		got, err := os.ReadFile(in)
		require.NoError(t, err)
		assert.Equal(t, src, string(got))
	}
}

func TestResult_Values(t *testing.T) {
	in := withBranch(t, fixture(t, "hcn.par"), 0, 'S')
	res, err := Run(context.Background(), Config{Engine: engine(t, "hcn"), OnUnknown: PolicySkip},
		strings.NewReader(in), &bytes.Buffer{})
	require.NoError(t, err)

	vals := res.Values()
	require.Len(t, vals, res.RecordsWritten*4)
	first := vals[0]
	assert.Equal(t, 0, first.Seq)
	assert.Equal(t, 2, first.Line, "line numbers survive dropped records")
	assert.Equal(t, "gamma_He", first.Quantity)
	assert.Equal(t, "1496", first.Reference)
	assert.Equal(t, "n_He", vals[1].Quantity)
	assert.Equal(t, "0.71", vals[1].Text)
	assert.Equal(t, 1, vals[4].Seq)
}

func TestResult_Summary(t *testing.T) {
	res := &Result{Columns: []string{"ref_air", "gamma_He", "n_He"}}
	assert.Equal(t, `output "160.par + ref_air + gamma_He + n_He"`, res.Summary())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFail, p)

	p, err = ParsePolicy("SKIP")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	_, err = ParsePolicy("ignore")
	require.Error(t, err)
}
