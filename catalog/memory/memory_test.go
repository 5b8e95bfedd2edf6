package memory_test

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-nexus/catalog"
	"github.com/robert-malhotra/go-nexus/catalog/memory"
	"github.com/robert-malhotra/go-nexus/errors"
)

func loadString(t *testing.T, doc string) *memory.Node {
	t.Helper()
	run, err := memory.LoadFixture(strings.NewReader(doc))
	require.NoError(t, err)
	return run
}

func childNames(t *testing.T, n catalog.Node) []string {
	t.Helper()
	children, err := n.Children(context.Background())
	require.NoError(t, err)
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.Name
	}
	return names
}

func TestLoadXAFSFixture(t *testing.T) {
	ctx := context.Background()
	run, err := memory.LoadFixtureFile("testdata/xafs.yaml")
	require.NoError(t, err)

	md := run.Metadata()
	assert.Equal(t, []string{"start", "stop", "summary"}, md.Keys())
	summary, ok := md.Map("summary")
	require.True(t, ok)
	when, _ := summary.Get("datetime")
	ts, ok := when.AsTime()
	require.True(t, ok, "datetime should load as a timestamp")
	assert.Equal(t, 363525000, ts.Nanosecond())

	assert.Equal(t, []string{"streams"}, childNames(t, run))
	streams, err := catalog.Lookup(ctx, run, "streams")
	require.NoError(t, err)
	assert.Equal(t, []string{"primary", "baseline"}, childNames(t, streams))

	primary, err := catalog.Lookup(ctx, streams, "primary")
	require.NoError(t, err)
	assert.Equal(t, []string{"internal", "external"}, childNames(t, primary))

	internal, err := catalog.Lookup(ctx, primary, "internal")
	require.NoError(t, err)
	table, err := catalog.ReadTable(ctx, internal)
	require.NoError(t, err)
	assert.Equal(t, 100, table.Rows())
	assert.Equal(t, "energy", table.Columns()[0])

	energy, _ := table.Column("energy")
	values := energy.Data.([]float64)
	assert.Equal(t, 8300.0, values[0])
	assert.Equal(t, 8400.0, values[99])

	it, _ := table.Column("It-net_current")
	for _, v := range it.Data.([]float64) {
		assert.GreaterOrEqual(t, v, 0.0)
	}

	external, err := catalog.Lookup(ctx, primary, "external")
	require.NoError(t, err)
	ge, err := catalog.Lookup(ctx, external, "ge_8element")
	require.NoError(t, err)
	arr, err := catalog.ReadArray(ctx, ge)
	require.NoError(t, err)
	assert.Equal(t, []uint64{100, 8, 4096}, arr.Dims())

	baseline, err := catalog.Lookup(ctx, streams, "baseline")
	require.NoError(t, err)
	internal, err = catalog.Lookup(ctx, baseline, "internal")
	require.NoError(t, err)
	table, err = catalog.ReadTable(ctx, internal)
	require.NoError(t, err)
	fb, _ := table.Column("aps_global_feedback")
	assert.Equal(t, []bool{true, false}, fb.Data)
	fill, _ := table.Column("aps_fill_number")
	assert.Equal(t, []int64{1, 2}, fill.Data)
}

func TestLoadFlatFixture(t *testing.T) {
	run, err := memory.LoadFixtureFile("testdata/grid_scan.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"primary"}, childNames(t, run))
}

func TestColumnSpecs(t *testing.T) {
	ctx := context.Background()
	run := loadString(t, `
flat: true
metadata: {start: {uid: abc}}
streams:
  s:
    internal:
      ints: {values: [1, 2, 3, 4], dtype: uint16}
      grid: [[1, 2], [3, 4], [5, 6], [7, 8]]
      mixed: [1, 2.5, 3, 4]
      names: [a, b, c, d]
      wave: {linspace: [0, 0, 4], transform: [cos]}
      flags: {fill: true, shape: [4]}
`)
	s, err := catalog.Lookup(ctx, run, "s")
	require.NoError(t, err)
	internal, err := catalog.Lookup(ctx, s, "internal")
	require.NoError(t, err)
	table, err := catalog.ReadTable(ctx, internal)
	require.NoError(t, err)
	assert.Equal(t, []string{"ints", "grid", "mixed", "names", "wave", "flags"}, table.Columns())

	col := func(name string) *catalog.Array {
		c, ok := table.Column(name)
		require.True(t, ok, name)
		return c
	}
	assert.Equal(t, []uint16{1, 2, 3, 4}, col("ints").Data)
	assert.Equal(t, []uint64{4, 2}, col("grid").Dims())
	assert.Equal(t, []float64{1, 2.5, 3, 4}, col("mixed").Data)
	assert.Equal(t, []string{"a", "b", "c", "d"}, col("names").Data)
	assert.Equal(t, []float64{1, 1, 1, 1}, col("wave").Data)
	assert.Equal(t, []bool{true, true, true, true}, col("flags").Data)
}

func TestNestedColumnShape(t *testing.T) {
	ctx := context.Background()
	run := loadString(t, `
flat: true
metadata: {}
streams:
  s:
    external:
      img: [[1, 2, 3], [4, 5, 6]]
`)
	s, _ := catalog.Lookup(ctx, run, "s")
	img, err := catalog.Lookup(ctx, s, "img")
	require.NoError(t, err)
	arr, err := catalog.ReadArray(ctx, img)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, arr.Dims())
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, arr.Data)
}

func TestGeneratedUID(t *testing.T) {
	run := loadString(t, `
metadata:
  start: {uid: "<generate>"}
  summary: {uid: "<generate>"}
streams: {}
`)
	start, _ := run.Metadata().Map("start")
	v, _ := start.Get("uid")
	uid, _ := v.AsString()
	_, err := uuid.Parse(uid)
	require.NoError(t, err)

	summary, _ := run.Metadata().Map("summary")
	v, _ = summary.Get("uid")
	same, _ := v.AsString()
	assert.Equal(t, uid, same)
}

func TestFixtureSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing streams", "metadata: {}"},
		{"unknown top-level key", "metadata: {}\nstreams: {}\nextra: 1"},
		{"document not a mapping", "metadata: {start: 3}\nstreams: {}"},
		{"generator without source", "metadata: {}\nstreams: {s: {internal: {x: {dtype: int8}}}}"},
		{"two sources", "metadata: {}\nstreams: {s: {internal: {x: {values: [1], linspace: [0, 1, 2]}}}}"},
		{"fill without shape", "metadata: {}\nstreams: {s: {internal: {x: {fill: 0}}}}"},
		{"bad dtype", "metadata: {}\nstreams: {s: {internal: {x: {values: [1], dtype: complex}}}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := memory.LoadFixture(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrSchemaFailed), err.Error())
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestFixtureBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"ragged rows", "metadata: {}\nstreams: {s: {internal: {a: [1, 2], b: [1]}}}"},
		{"ragged nesting", "metadata: {}\nstreams: {s: {external: {a: [[1, 2], [3]]}}}"},
		{"mixed kinds", "metadata: {}\nstreams: {s: {internal: {a: [1, x]}}}"},
		{"shape mismatch", "metadata: {}\nstreams: {s: {internal: {a: {values: [1, 2, 3], shape: [2]}}}}"},
		{"cast strings", "metadata: {}\nstreams: {s: {internal: {a: {values: [x], dtype: int8}}}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := memory.LoadFixture(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestLoadFixtureBadYAML(t *testing.T) {
	_, err := memory.LoadFixture(strings.NewReader("metadata: [unclosed"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrParsingFailed))

	_, err = memory.LoadFixture(strings.NewReader(""))
	require.Error(t, err)

	_, err = memory.LoadFixtureFile("testdata/does-not-exist.yaml")
	require.Error(t, err)
}

func TestNonFiniteMetadata(t *testing.T) {
	run := loadString(t, "metadata: {start: {limit: .nan}}\nstreams: {}")
	start, _ := run.Metadata().Map("start")
	v, _ := start.Get("limit")
	f, ok := v.AsFloat()
	require.True(t, ok)
	assert.True(t, math.IsNaN(f))
}

func TestNodeReads(t *testing.T) {
	ctx := context.Background()
	arr := &catalog.Array{Data: []float64{1, 2}}
	n := memory.NewArrayNode(arr, nil)

	got, err := catalog.ReadArray(ctx, n)
	require.NoError(t, err)
	assert.Same(t, arr, got)
	_, err = catalog.ReadTable(ctx, n)
	assert.ErrorIs(t, err, catalog.ErrNotReadable)

	boom := errors.New("disk gone")
	n.FailReads(boom)
	_, err = catalog.ReadArray(ctx, n)
	assert.ErrorIs(t, err, boom)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = memory.NewContainer(nil).Children(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNodeAddRejectsDuplicates(t *testing.T) {
	n := memory.NewContainer(nil)
	require.NoError(t, n.Add("a", memory.NewContainer(nil)))
	assert.Error(t, n.Add("a", memory.NewContainer(nil)))
	assert.NotNil(t, n.Metadata())
}

func TestTimestampsStayUTC(t *testing.T) {
	run := loadString(t, "metadata: {summary: {datetime: 2022-10-06 09:14:57}}\nstreams: {}")
	summary, _ := run.Metadata().Map("summary")
	v, _ := summary.Get("datetime")
	ts, ok := v.AsTime()
	require.True(t, ok)
	assert.True(t, time.Date(2022, 10, 6, 9, 14, 57, 0, time.UTC).Equal(ts))
	assert.Equal(t, time.UTC, ts.Location())
}
