package nexus_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-nexus/catalog"
	"github.com/robert-malhotra/go-nexus/catalog/memory"
	"github.com/robert-malhotra/go-nexus/errors"
	"github.com/robert-malhotra/go-nexus/hdf5"
	"github.com/robert-malhotra/go-nexus/metric"
	"github.com/robert-malhotra/go-nexus/nexus"
)

const xafsUID = "7d1daf1d-60c7-4aa7-a668-d1cd97e5335f"

var cdt = time.FixedZone("CDT", -5*60*60)

func loadXAFS(t *testing.T) *memory.Node {
	t.Helper()
	run, err := memory.LoadFixtureFile("../catalog/memory/testdata/xafs.yaml")
	require.NoError(t, err)
	return run
}

// mapOf builds an ordered mapping from key, value pairs.
func mapOf(kv ...any) *catalog.Map {
	m := catalog.NewMap()
	for i := 0; i+1 < len(kv); i += 2 {
		v, err := catalog.FromAny(kv[i+1])
		if err != nil {
			panic(err)
		}
		m.Set(kv[i].(string), v)
	}
	return m
}

// column is one named table column.
type column struct {
	name string
	data any
}

// newRun returns a run whose streams sit in a "streams" container.
func newRun(t *testing.T, docs *catalog.Map) (run, streams *memory.Node) {
	t.Helper()
	run = memory.NewContainer(docs)
	streams = memory.NewContainer(nil)
	require.NoError(t, run.Add("streams", streams))
	return run, streams
}

// addStream adds a stream with an internal table holding cols.
func addStream(t *testing.T, parent *memory.Node, name string, md *catalog.Map, cols ...column) *memory.Node {
	t.Helper()
	stream := memory.NewContainer(md)
	if len(cols) > 0 {
		table := catalog.NewTable()
		for _, c := range cols {
			require.NoError(t, table.AddColumn(c.name, &catalog.Array{Data: c.data}))
		}
		require.NoError(t, stream.Add("internal", memory.NewTableNode(table, nil)))
	}
	require.NoError(t, parent.Add(name, stream))
	return stream
}

func convert(t *testing.T, run catalog.Node, opts ...nexus.Option) (*hdf5.File, *nexus.Report) {
	t.Helper()
	data, report, err := nexus.Convert(context.Background(), run, opts...)
	require.NoError(t, err)
	f, err := hdf5.OpenBytes(data)
	require.NoError(t, err)
	return f, report
}

func attrString(t *testing.T, a *hdf5.Attribute) string {
	t.Helper()
	require.NotNil(t, a)
	s, err := a.ReadString()
	require.NoError(t, err)
	return s
}

func linkTargets(g *hdf5.Group) map[string]string {
	out := map[string]string{}
	for _, l := range g.Links() {
		if l.Kind == hdf5.LinkSoft {
			out[l.Name] = l.Target
		}
	}
	return out
}

func TestConvertXAFS(t *testing.T) {
	f, report := convert(t, loadXAFS(t), nexus.WithLocation(cdt))
	entry := "/" + xafsUID
	streams := entry + "/instrument/bluesky/streams"
	metadata := entry + "/instrument/bluesky/metadata"

	root := f.Root()
	assert.Equal(t, xafsUID, attrString(t, root.Attr("default")))
	assert.Equal(t, "NXroot", attrString(t, root.Attr("NX_class")))
	assert.Equal(t, []string{xafsUID}, root.Members())

	eg, err := f.OpenGroup(entry)
	require.NoError(t, err)
	assert.Equal(t, "NXentry", attrString(t, eg.Attr("NX_class")))
	assert.Equal(t, "data", attrString(t, eg.Attr("default")))

	classes := map[string]string{
		entry + "/data":                   "NXdata",
		entry + "/instrument":             "NXinstrument",
		entry + "/instrument/bluesky":     "NXnote",
		metadata:                          "NXnote",
		streams:                           "NXnote",
		streams + "/primary":              "NXnote",
		streams + "/baseline":             "NXnote",
		streams + "/primary/energy":       "NXdata",
		streams + "/baseline/aps_current": "NXdata",
	}
	for path, class := range classes {
		g, err := f.OpenGroup(path)
		require.NoError(t, err, path)
		assert.Equal(t, class, attrString(t, g.Attr("NX_class")), path)
	}

	data, err := f.OpenGroup(entry + "/data")
	require.NoError(t, err)
	assert.Equal(t, []string{"energy", "energy-id-energy-readback", "It-net_current", "ge_8element"}, data.Members())
	assert.Equal(t, map[string]string{
		"energy":                    streams + "/primary/energy/value",
		"energy-id-energy-readback": streams + "/primary/energy-id-energy-readback/value",
		"It-net_current":            streams + "/primary/It-net_current/value",
		"ge_8element":               streams + "/primary/ge_8element/value",
	}, linkTargets(data))
	assert.Equal(t, "energy", attrString(t, data.Attr("signal")))

	assert.Equal(t, map[string]string{
		"sample_name":      metadata + "/start.sample_name",
		"scan_name":        metadata + "/start.scan_name",
		"plan_name":        metadata + "/start.plan_name",
		"entry_identifier": metadata + "/start.uid",
	}, linkTargets(eg))
	bluesky, err := f.OpenGroup(entry + "/instrument/bluesky")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"plan_name": metadata + "/start.plan_name",
		"uid":       metadata + "/start.uid",
	}, linkTargets(bluesky))

	sample, err := f.OpenDataset(entry + "/sample_name")
	require.NoError(t, err)
	v, err := sample.Value()
	require.NoError(t, err)
	assert.Equal(t, "NMC-811", v)
	assert.Equal(t, metadata+"/start.sample_name", attrString(t, sample.Attr("target")))

	for name, want := range map[string]any{
		"start_time": "2022-10-06T09:14:57.363525-05:00",
		"stop_time":  "2022-10-06T09:15:35.714015-05:00",
	} {
		ds, err := f.OpenDataset(entry + "/" + name)
		require.NoError(t, err)
		got, err := ds.Value()
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
	dur, err := f.OpenDataset(entry + "/duration")
	require.NoError(t, err)
	got, err := dur.Value()
	require.NoError(t, err)
	assert.InDelta(t, 38.35049033164978, got, 1e-9)

	hints, err := f.OpenDataset(metadata + "/start.hints")
	require.NoError(t, err)
	got, err = hints.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"dimensions": [[["pitch2"], "primary"]]}`, got)

	energy, err := f.OpenDataset(streams + "/primary/energy/value")
	require.NoError(t, err)
	assert.Equal(t, "eV", attrString(t, energy.Attr("units")))
	assert.Equal(t, streams+"/primary/energy/value", attrString(t, energy.Attr("target")))
	assert.Equal(t, []uint64{100}, energy.Shape())

	eng, err := f.OpenGroup(streams + "/primary/energy")
	require.NoError(t, err)
	assert.Equal(t, "value", attrString(t, eng.Attr("signal")))
	assert.Equal(t, "time", attrString(t, eng.Attr("axes")))
	assert.Equal(t, []string{"value", "EPOCH", "time"}, eng.Members())

	ge, err := f.OpenGroup(streams + "/primary/ge_8element")
	require.NoError(t, err)
	assert.Equal(t, []string{"value"}, ge.Members())
	assert.False(t, ge.HasAttr("signal"))
	assert.False(t, ge.HasAttr("axes"))
	geValue, err := f.OpenDataset(streams + "/primary/ge_8element/value")
	require.NoError(t, err)
	assert.Equal(t, []uint64{100, 8, 4096}, geValue.Shape())
	assert.Equal(t, "float64", geValue.DtypeName())

	aps, err := f.OpenDataset(streams + "/baseline/aps_current/value")
	require.NoError(t, err)
	vals, err := aps.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{130.0, 204.1}, vals)
	assert.Equal(t, "mA", attrString(t, aps.Attr("units")))
	assert.False(t, aps.HasAttr("target"), "baseline hints are not linked")

	epoch, err := f.OpenDataset(streams + "/baseline/aps_current/EPOCH")
	require.NoError(t, err)
	raw, err := epoch.Read()
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 25}, raw)
	rel, err := f.OpenDataset(streams + "/baseline/aps_current/time")
	require.NoError(t, err)
	raw, err = rel.Read()
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 15}, raw)
	assert.Equal(t, "s", attrString(t, rel.Attr("units")))

	feedback, err := f.OpenDataset(streams + "/baseline/aps_global_feedback/value")
	require.NoError(t, err)
	raw, err = feedback.Read()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, raw)

	assert.Equal(t, xafsUID, report.UID)
	assert.Equal(t, []string{"primary", "baseline"}, report.Streams)
	assert.Empty(t, report.Skipped())
	assert.Len(t, report.Written(), 9)
	assert.Len(t, report.Links, 10)
	assert.Equal(t, nexus.LinkRecord{Name: entry + "/data/energy", Target: streams + "/primary/energy/value"}, report.Links[0])
}

func TestTimeIsOffsetFromFirstTimestamp(t *testing.T) {
	docs := mapOf("start", mapOf("uid", "run-1"))
	run, streams := newRun(t, docs)
	addStream(t, streams, "primary",
		mapOf("data_keys", mapOf("x", mapOf("dtype", "number"))),
		column{"x", []float64{1, 2, 3, 4}},
		column{"ts_x", []float64{1000.5, 1000.25, 1001.75, 1003}},
	)
	f, _ := convert(t, run)

	epochDS, err := f.OpenDataset("/run-1/instrument/bluesky/streams/primary/x/EPOCH")
	require.NoError(t, err)
	epoch, err := epochDS.ReadFloat64()
	require.NoError(t, err)
	timeDS, err := f.OpenDataset("/run-1/instrument/bluesky/streams/primary/x/time")
	require.NoError(t, err)
	rel, err := timeDS.ReadFloat64()
	require.NoError(t, err)

	require.Len(t, rel, 4)
	assert.Equal(t, 0.0, minOf(rel))
	for i := range rel {
		assert.Equal(t, 1000.25, epoch[i]-rel[i])
	}
}

func minOf(xs []float64) float64 {
	lo := xs[0]
	for _, x := range xs[1:] {
		lo = min(lo, x)
	}
	return lo
}

func TestConvertIsDeterministic(t *testing.T) {
	build := func() catalog.Node {
		docs := mapOf("start", mapOf("uid", "run-1", "time", 100, "plan_name", "scan"), "stop", mapOf("time", 160))
		run, streams := newRun(t, docs)
		addStream(t, streams, "primary",
			mapOf(
				"data_keys", mapOf("a", mapOf("units", "mm"), "b", mapOf("units", "s")),
				"hints", mapOf("dev", mapOf("fields", []string{"a", "b"})),
			),
			column{"a", []float64{1, 2, 3}},
			column{"ts_a", []float64{5, 6, 7}},
			column{"b", []int32{4, 5, 6}},
			column{"ts_b", []float64{5, 6, 7}},
		)
		return run
	}

	first, _, err := nexus.Convert(context.Background(), build(), nexus.WithLocation(time.UTC))
	require.NoError(t, err)
	second, _, err := nexus.Convert(context.Background(), build(), nexus.WithLocation(time.UTC), nexus.WithConcurrency(1))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second), "identical runs must produce identical files")
}

func TestRootDefaultIsUID(t *testing.T) {
	for range 3 {
		uid := uuid.NewString()
		run, _ := newRun(t, mapOf("start", mapOf("uid", uid)))
		f, report := convert(t, run)
		assert.Equal(t, uid, attrString(t, f.Root().Attr("default")))
		assert.True(t, f.Root().Contains(uid))
		assert.Equal(t, uid, report.UID)
	}
}

func TestMissingUID(t *testing.T) {
	for name, docs := range map[string]*catalog.Map{
		"no start":  mapOf("stop", mapOf("time", 1)),
		"no uid":    mapOf("start", mapOf("time", 1)),
		"empty uid": mapOf("start", mapOf("uid", "")),
	} {
		t.Run(name, func(t *testing.T) {
			run, _ := newRun(t, docs)
			f := hdf5.NewFile()
			_, err := nexus.ConvertTo(context.Background(), f, run)
			require.Error(t, err)

			var serr *nexus.SerializationError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, nexus.KindMissingIdentifier, serr.Kind)
			assert.True(t, errors.Is(err, nexus.ErrMissingIdentifier))
			assert.True(t, errors.IsFatal(err))
			assert.Empty(t, f.Root().Members(), "nothing is written without a uid")
		})
	}
}

func TestHintCollision(t *testing.T) {
	build := func() catalog.Node {
		run, streams := newRun(t, mapOf("start", mapOf("uid", "run-1")))
		md := mapOf(
			"data_keys", mapOf("aps_current", mapOf("units", "mA")),
			"hints", mapOf("aps", mapOf("fields", []string{"aps_current"})),
		)
		for _, name := range []string{"primary", "baseline"} {
			addStream(t, streams, name, md,
				column{"aps_current", []float64{130.0, 204.1}},
				column{"ts_aps_current", []float64{10, 25}},
			)
		}
		return run
	}

	t.Run("every stream linked", func(t *testing.T) {
		f, report := convert(t, build(), nexus.WithExcludedStreams())
		data, err := f.OpenGroup("/run-1/data")
		require.NoError(t, err)
		assert.Equal(t, []string{"aps_current", "field_baseline"}, data.Members())
		streams := "/run-1/instrument/bluesky/streams"
		want := []nexus.LinkRecord{
			{Name: "/run-1/data/aps_current", Target: streams + "/primary/aps_current/value"},
			{Name: "/run-1/data/field_baseline", Target: streams + "/baseline/aps_current/value"},
			{Name: "/run-1/entry_identifier", Target: "/run-1/instrument/bluesky/metadata/start.uid"},
			{Name: "/run-1/instrument/bluesky/uid", Target: "/run-1/instrument/bluesky/metadata/start.uid"},
		}
		if diff := cmp.Diff(want, report.Links); diff != "" {
			t.Errorf("links mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("baseline excluded by default", func(t *testing.T) {
		f, _ := convert(t, build())
		data, err := f.OpenGroup("/run-1/data")
		require.NoError(t, err)
		assert.Equal(t, []string{"aps_current"}, data.Members())
	})

	t.Run("second collision in a stream", func(t *testing.T) {
		run, streams := newRun(t, mapOf("start", mapOf("uid", "run-1")))
		addStream(t, streams, "primary",
			mapOf("data_keys", mapOf("a", mapOf(), "b", mapOf()), "hints", mapOf("d", mapOf("fields", []string{"a", "b"}))),
			column{"a", []float64{1}}, column{"b", []float64{1}},
		)
		addStream(t, streams, "secondary",
			mapOf("data_keys", mapOf("a", mapOf(), "b", mapOf()), "hints", mapOf("d", mapOf("fields", []string{"a", "b"}))),
			column{"a", []float64{1}}, column{"b", []float64{1}},
		)
		_, _, err := nexus.Convert(context.Background(), run)
		var serr *nexus.SerializationError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, nexus.KindLinkConflict, serr.Kind)
		assert.Equal(t, "secondary", serr.Stream)
		assert.Equal(t, "b", serr.Field)
	})
}

func TestDevicesWithoutHintedFields(t *testing.T) {
	run, streams := newRun(t, mapOf("start", mapOf("uid", "run-1")))
	addStream(t, streams, "primary",
		mapOf(
			"data_keys", mapOf(),
			"hints", mapOf("no_device", mapOf(), "I0", mapOf("fields", []string{}), "odd", "not a mapping"),
		),
	)
	f, report := convert(t, run)
	data, err := f.OpenGroup("/run-1/data")
	require.NoError(t, err)
	assert.Empty(t, data.Members())
	assert.False(t, data.HasAttr("signal"))
	assert.Len(t, report.Links, 2)
	assert.Equal(t, []string{"primary"}, report.Streams)
}

func TestBareListHints(t *testing.T) {
	run, streams := newRun(t, mapOf("start", mapOf("uid", "run-1")))
	addStream(t, streams, "primary",
		mapOf(
			"data_keys", mapOf("x", mapOf(), "y", mapOf()),
			"hints", mapOf("dev", []string{"x"}),
		),
		column{"x", []float64{1, 2}},
		column{"y", []float64{3, 4}},
	)
	f, report := convert(t, run)
	data, err := f.OpenGroup("/run-1/data")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, data.Members())
	assert.Equal(t, map[string]string{"x": "/run-1/instrument/bluesky/streams/primary/x/value"}, linkTargets(data))
	assert.Equal(t, "x", attrString(t, data.Attr("signal")))
	assert.Len(t, report.Written(), 2)
}

func TestHintedFieldMissingColumn(t *testing.T) {
	run, streams := newRun(t, mapOf("start", mapOf("uid", "run-1")))
	addStream(t, streams, "primary",
		mapOf(
			"data_keys", mapOf("I0", mapOf("units", "A")),
			"hints", mapOf("I0", mapOf("fields", []string{"I0"})),
		),
		column{"other", []float64{1}},
	)
	data, _, err := nexus.Convert(context.Background(), run)
	require.Error(t, err)
	assert.Nil(t, data)

	var serr *nexus.SerializationError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, nexus.KindMissingField, serr.Kind)
	assert.Equal(t, "run-1", serr.Run)
	assert.Equal(t, "primary", serr.Stream)
	assert.Equal(t, "I0", serr.Field)
	assert.True(t, errors.Is(err, nexus.ErrMissingField))
	assert.True(t, errors.IsFatal(err))
	assert.Contains(t, err.Error(), `stream="primary"`)
}

func TestUnhintedFieldsAreSkipped(t *testing.T) {
	run, streams := newRun(t, mapOf("start", mapOf("uid", "run-1")))
	addStream(t, streams, "primary",
		mapOf("data_keys", mapOf(
			"missing", mapOf(),
			"complex", mapOf(),
			"good", mapOf(),
			"detector", mapOf("external", "STREAM:"),
		)),
		column{"complex", []complex128{1, 2}},
		column{"good", []float64{1, 2}},
		column{"ts_good", []float64{3, 4}},
	)
	f, report := convert(t, run)

	want := []nexus.Outcome{
		{Stream: "primary", Field: "missing", Status: nexus.StatusSkipped, Reason: "no internal column"},
		{Stream: "primary", Field: "good", Status: nexus.StatusWritten},
		{Stream: "primary", Field: "detector", Status: nexus.StatusSkipped, Reason: "no external array"},
	}
	got := report.Outcomes
	require.Len(t, got, 4)
	assert.Equal(t, "complex", got[1].Field)
	assert.Equal(t, nexus.StatusSkipped, got[1].Status)
	assert.Contains(t, got[1].Reason, "unsupported")
	if diff := cmp.Diff(want, []nexus.Outcome{got[0], got[2], got[3]}); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, report.Skipped(), 3)

	stream, err := f.OpenGroup("/run-1/instrument/bluesky/streams/primary")
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, stream.Members())
}

func TestMissingTimestamps(t *testing.T) {
	run, streams := newRun(t, mapOf("start", mapOf("uid", "run-1")))
	addStream(t, streams, "primary",
		mapOf("data_keys", mapOf("x", mapOf("units", "V"))),
		column{"x", []float64{1, 2}},
	)
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f, report := convert(t, run, nexus.WithLogger(logger))

	x, err := f.OpenGroup("/run-1/instrument/bluesky/streams/primary/x")
	require.NoError(t, err)
	assert.Equal(t, []string{"value"}, x.Members())
	assert.Equal(t, "value", attrString(t, x.Attr("signal")))
	assert.False(t, x.HasAttr("axes"))

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, nexus.StatusWritten, report.Outcomes[0].Status)
	assert.Equal(t, "no timestamps column ts_x", report.Outcomes[0].Reason)

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		if rec["msg"] == "no timestamps for internal field" {
			found = true
			assert.Equal(t, "ERROR", rec["level"])
			assert.Equal(t, "run-1", rec["run"])
			assert.Equal(t, "primary", rec["stream"])
			assert.Equal(t, "x", rec["field"])
		}
	}
	assert.True(t, found, "missing timestamps are logged")
}

func TestDanglingHintFromDescriptors(t *testing.T) {
	run, err := memory.LoadFixtureFile("../catalog/memory/testdata/grid_scan.yaml")
	require.NoError(t, err)

	_, report, err := nexus.Convert(context.Background(), run)
	require.Error(t, err)
	var serr *nexus.SerializationError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, nexus.KindMissingLinkTarget, serr.Kind)
	assert.Equal(t, "primary", serr.Stream)
	assert.Equal(t, "Ipreslit_net_counts", serr.Field)
	assert.True(t, errors.Is(err, nexus.ErrMissingLinkTarget))
	assert.Equal(t, []string{"primary"}, report.Streams)
}

func TestDescriptorFallback(t *testing.T) {
	run := memory.NewContainer(mapOf("start", mapOf("uid", "run-1")))
	addStream(t, run, "primary",
		mapOf("descriptors", []any{
			mapOf("data_keys", mapOf("old", mapOf())),
			mapOf("data_keys", mapOf("x", mapOf()), "hints", mapOf("d", mapOf("fields", []string{"x"}))),
		}),
		column{"x", []float64{1}},
		column{"old", []float64{1}},
	)
	f, report := convert(t, run)
	data, err := f.OpenGroup("/run-1/data")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, data.Members())
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "x", report.Outcomes[0].Field)
}

func TestExternalArrayLocations(t *testing.T) {
	run, streams := newRun(t, mapOf("start", mapOf("uid", "run-1")))
	md := mapOf("data_keys", mapOf(
		"direct", mapOf("external", "STREAM:", "units", "counts"),
		"nested", mapOf("external", "STREAM:"),
	))
	stream := addStream(t, streams, "primary", md)
	direct, err := catalog.NewArray(make([]uint32, 12), 3, 2, 2)
	require.NoError(t, err)
	require.NoError(t, stream.Add("direct", memory.NewArrayNode(direct, nil)))
	holder := memory.NewContainer(nil)
	require.NoError(t, stream.Add("external", holder))
	require.NoError(t, holder.Add("nested", memory.NewArrayNode(&catalog.Array{Data: []float64{1, 1}}, nil)))

	f, report := convert(t, run)
	assert.Empty(t, report.Skipped())

	ds, err := f.OpenDataset("/run-1/instrument/bluesky/streams/primary/direct/value")
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 2, 2}, ds.Shape())
	assert.Equal(t, "uint32", ds.DtypeName())
	assert.Equal(t, "counts", attrString(t, ds.Attr("units")))
	assert.True(t, f.Root().Exists("/run-1/instrument/bluesky/streams/primary/nested/value"))
}

func TestInternalEventsTable(t *testing.T) {
	run, streams := newRun(t, mapOf("start", mapOf("uid", "run-1")))
	stream := memory.NewContainer(mapOf("data_keys", mapOf("x", mapOf())))
	require.NoError(t, streams.Add("primary", stream))
	table := catalog.NewTable()
	require.NoError(t, table.AddColumn("x", &catalog.Array{Data: []float64{1, 2}}))
	internal := memory.NewContainer(nil)
	require.NoError(t, internal.Add("events", memory.NewTableNode(table, nil)))
	require.NoError(t, stream.Add("internal", internal))

	_, report := convert(t, run)
	assert.Len(t, report.Written(), 1)
}

func TestReadFailureIsFatal(t *testing.T) {
	boom := errors.New("store offline")
	run, streams := newRun(t, mapOf("start", mapOf("uid", "run-1")))
	stream := memory.NewContainer(mapOf("data_keys", mapOf("x", mapOf())))
	require.NoError(t, streams.Add("primary", stream))
	table := memory.NewTableNode(catalog.NewTable(), nil)
	table.FailReads(boom)
	require.NoError(t, stream.Add("internal", table))

	f := hdf5.NewFile()
	_, err := nexus.ConvertTo(context.Background(), f, run, nexus.WithConcurrency(2))
	require.Error(t, err)
	var serr *nexus.SerializationError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, nexus.KindReadFailed, serr.Kind)
	assert.Equal(t, "primary", serr.Stream)
	assert.True(t, errors.Is(err, boom))
	assert.True(t, errors.Is(err, nexus.ErrReadFailed))
	assert.True(t, errors.IsFatal(err))
	assert.Empty(t, f.Root().Members(), "reads finish before anything is written")
}

func TestNullMetadataSurfacesStorageError(t *testing.T) {
	run, _ := newRun(t, mapOf("start", mapOf("uid", "run-1", "reason", nil)))
	_, _, err := nexus.Convert(context.Background(), run)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Contains(t, err.Error(), "start.reason")
}

func TestConvertToSharedFile(t *testing.T) {
	f := hdf5.NewFile()
	ctx := context.Background()
	for _, uid := range []string{"run-1", "run-2"} {
		run, _ := newRun(t, mapOf("start", mapOf("uid", uid)))
		_, err := nexus.ConvertTo(ctx, f, run)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"run-1", "run-2"}, f.Root().Members())
	assert.Equal(t, "run-2", attrString(t, f.Root().Attr("default")))

	again, _ := newRun(t, mapOf("start", mapOf("uid", "run-1")))
	_, err := nexus.ConvertTo(ctx, f, again)
	require.ErrorIs(t, err, hdf5.ErrExists)
}

func TestFailedConversionLeavesFileUnchanged(t *testing.T) {
	dangling := func(uid string) catalog.Node {
		run, streams := newRun(t, mapOf("start", mapOf("uid", uid)))
		addStream(t, streams, "primary",
			mapOf(
				"data_keys", mapOf("x", mapOf()),
				"hints", mapOf("d", mapOf("fields", []string{"y"})),
			),
			column{"x", []float64{1}},
		)
		return run
	}
	ctx := context.Background()

	t.Run("fresh file", func(t *testing.T) {
		f := hdf5.NewFile()
		_, err := nexus.ConvertTo(ctx, f, dangling("bad"))
		require.ErrorIs(t, err, nexus.ErrMissingLinkTarget)
		assert.Empty(t, f.Root().Members())
		assert.False(t, f.Root().HasAttr("default"))
	})

	t.Run("after a good run", func(t *testing.T) {
		f := hdf5.NewFile()
		good, _ := newRun(t, mapOf("start", mapOf("uid", "good")))
		_, err := nexus.ConvertTo(ctx, f, good)
		require.NoError(t, err)

		_, err = nexus.ConvertTo(ctx, f, dangling("bad"))
		require.ErrorIs(t, err, nexus.ErrMissingLinkTarget)
		assert.Equal(t, []string{"good"}, f.Root().Members())
		assert.Equal(t, "good", attrString(t, f.Root().Attr("default")))

		data, err := f.Bytes()
		require.NoError(t, err)
		r, err := hdf5.OpenBytes(data)
		require.NoError(t, err)
		assert.Equal(t, []string{"good"}, r.Root().Members())
		assert.False(t, r.Root().Exists("bad"))
		assert.True(t, r.Root().Exists("good/instrument/bluesky/metadata/start.uid"))
	})

	t.Run("existing entry kept", func(t *testing.T) {
		f := hdf5.NewFile()
		run, _ := newRun(t, mapOf("start", mapOf("uid", "run-1")))
		_, err := nexus.ConvertTo(ctx, f, run)
		require.NoError(t, err)

		_, err = nexus.ConvertTo(ctx, f, dangling("run-1"))
		require.ErrorIs(t, err, hdf5.ErrExists)
		assert.True(t, f.Root().Exists("run-1/entry_identifier"))
	})
}

func TestOptionalLinksOmitted(t *testing.T) {
	run, _ := newRun(t, mapOf("start", mapOf("uid", "run-1")))
	f, report := convert(t, run)
	entry, err := f.OpenGroup("/run-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"entry_identifier": "/run-1/instrument/bluesky/metadata/start.uid"}, linkTargets(entry))
	assert.False(t, entry.Contains("start_time"))
	assert.False(t, entry.Contains("duration"))
	assert.Len(t, report.Links, 2)
}

func TestConvertMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metric.NewMetrics(reg)
	require.NoError(t, err)

	run, streams := newRun(t, mapOf("start", mapOf("uid", "run-1")))
	addStream(t, streams, "primary",
		mapOf(
			"data_keys", mapOf("x", mapOf(), "gone", mapOf()),
			"hints", mapOf("d", mapOf("fields", []string{"x"})),
		),
		column{"x", []float64{1}},
	)
	_, _ = convert(t, run, nexus.WithMetrics(m))

	bad, _ := newRun(t, mapOf("start", mapOf()))
	_, _, err = nexus.Convert(context.Background(), bad, nexus.WithMetrics(m))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConversionsTotal.WithLabelValues(metric.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConversionsTotal.WithLabelValues(metric.OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FieldsTotal.WithLabelValues("primary", "written")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FieldsTotal.WithLabelValues("primary", "skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LinksTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ConversionDuration))
}

func TestCompactThreshold(t *testing.T) {
	run, streams := newRun(t, mapOf("start", mapOf("uid", "run-1")))
	addStream(t, streams, "primary",
		mapOf("data_keys", mapOf("x", mapOf())),
		column{"x", []float64{1, 2}},
	)
	path := "/run-1/instrument/bluesky/streams/primary/x/value"

	f, _ := convert(t, run)
	ds, err := f.OpenDataset(path)
	require.NoError(t, err)
	assert.True(t, ds.IsCompact())

	f, _ = convert(t, run, nexus.WithCompactThreshold(0))
	ds, err = f.OpenDataset(path)
	require.NoError(t, err)
	assert.False(t, ds.IsCompact())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := nexus.Convert(ctx, loadXAFS(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
