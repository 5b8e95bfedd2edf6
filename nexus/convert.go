package nexus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-nexus/catalog"
	"github.com/robert-malhotra/go-nexus/errors"
	"github.com/robert-malhotra/go-nexus/hdf5"
	"github.com/robert-malhotra/go-nexus/internal/ctxlog"
)

// entryLinks are the entry-level links into the flattened metadata.
var entryLinks = []struct{ name, key string }{
	{"sample_name", "start.sample_name"},
	{"scan_name", "start.scan_name"},
	{"plan_name", "start.plan_name"},
	{"entry_identifier", "start.uid"},
}

// blueskyLinks are the links placed in instrument/bluesky.
var blueskyLinks = []struct{ name, key string }{
	{"plan_name", "start.plan_name"},
	{"uid", "start.uid"},
}

type builder struct {
	cfg    *config
	file   *hdf5.File
	uid    string
	report *Report

	// entry is set once this conversion has created its entry group.
	entry *hdf5.Group
}

// Convert writes run into a new in-memory NeXus file and returns its bytes.
// On error no bytes are returned; the report still lists what was done.
func Convert(ctx context.Context, run catalog.Node, opts ...Option) ([]byte, *Report, error) {
	f := hdf5.NewFile()
	report, err := ConvertTo(ctx, f, run, opts...)
	if err != nil {
		return nil, report, err
	}
	data, err := f.Bytes()
	if err != nil {
		return nil, report, errors.WrapFatal(err, "nexus", "Convert", "finalize file")
	}
	return data, report, nil
}

// ConvertTo writes run as a new entry in f. The entry is named after the
// run's start.uid, which must not already exist in f. On error the entry is
// removed again and the root group's default is left as it was.
func ConvertTo(ctx context.Context, f *hdf5.File, run catalog.Node, opts ...Option) (_ *Report, err error) {
	cfg := newConfig(opts)
	began := time.Now()
	b := &builder{cfg: cfg, file: f, report: &Report{}}
	defer func() {
		cfg.metrics.RecordConversion(err, time.Since(began))
	}()

	logger := cfg.logger
	if logger == nil {
		logger = ctxlog.FromContext(ctx)
	}

	docs := run.Metadata()
	b.uid = runUID(docs)
	if b.uid == "" {
		return b.report, newSerializationError(KindMissingIdentifier, "", "", "start.uid", "ConvertTo", nil)
	}
	b.report.UID = b.uid
	logger = logger.With("run", b.uid)
	ctx = ctxlog.WithLogger(ctx, logger)

	if err := b.build(ctx, run, docs); err != nil {
		logger.Error("conversion failed", "error", err)
		b.discard(logger)
		return b.report, err
	}
	logger.Info("run converted",
		"streams", len(b.report.Streams),
		"written", len(b.report.Written()),
		"skipped", len(b.report.Skipped()),
		"links", len(b.report.Links),
		"elapsed", time.Since(began))
	return b.report, nil
}

func runUID(docs *catalog.Map) string {
	start, ok := docs.Map("start")
	if !ok {
		return ""
	}
	v, _ := start.Get("uid")
	uid, _ := v.AsString()
	return uid
}

// discard removes a partially written entry.
func (b *builder) discard(logger *slog.Logger) {
	if b.entry == nil {
		return
	}
	if err := b.file.Root().Unlink(b.uid); err != nil {
		logger.Warn("partial entry not removed", "error", err)
	}
}

// build writes the entry for one run. The entry's default names its "data"
// group, which holds the soft links to hinted fields. The root's default is
// pointed at the entry only once everything else has been written.
func (b *builder) build(ctx context.Context, run catalog.Node, docs *catalog.Map) error {
	log := ctxlog.FromContext(ctx)

	flat, err := Flatten(docs, b.cfg.location)
	if err != nil {
		return err
	}
	for _, phase := range []string{"start", "stop"} {
		if flat.Has(phase+".time") && !hasDerived(flat, phase+"_time") {
			log.Warn("timestamp is not a number", "key", phase+".time")
		}
	}

	streams, err := b.enumerateStreams(ctx, run)
	if err != nil {
		return err
	}
	data, err := b.readStreams(ctx, streams)
	if err != nil {
		return err
	}

	root := b.file.Root()
	entry, err := root.CreateGroup(b.uid)
	if err != nil {
		return b.storageError(err, "build", "create entry "+b.uid)
	}
	b.entry = entry
	if err := setAttrs(entry, "NX_class", "NXentry", "default", "data"); err != nil {
		return b.storageError(err, "build", "tag entry")
	}
	groups, err := b.createGroups(entry)
	if err != nil {
		return err
	}

	meta, err := b.writeMetadata(groups.metadata, flat)
	if err != nil {
		return err
	}

	results := make([]*streamResult, 0, len(data))
	for _, sd := range data {
		res, err := b.writeStream(ctx, groups.streams, sd)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	if err := b.resolveHints(ctx, groups.data, results); err != nil {
		return err
	}
	if members := groups.data.Members(); len(members) > 0 {
		if err := groups.data.SetAttr("signal", members[0]); err != nil {
			return b.storageError(err, "build", "tag data group")
		}
	}

	if err := b.metadataLinks(entry, entryLinks, flat, meta); err != nil {
		return err
	}
	if err := b.metadataLinks(groups.bluesky, blueskyLinks, flat, meta); err != nil {
		return err
	}
	for _, d := range flat.Derived {
		if _, err := entry.CreateDataset(d.Key, d.Value, hdf5.WithCompactThreshold(b.cfg.compactThreshold)); err != nil {
			return b.storageError(err, "build", "write "+d.Key)
		}
	}

	if err := setAttrs(root, "NX_class", "NXroot", "default", b.uid); err != nil {
		return b.storageError(err, "build", "tag root")
	}
	b.cfg.metrics.RecordLinks(len(b.report.Links))
	return nil
}

func hasDerived(flat *Flat, key string) bool {
	for _, d := range flat.Derived {
		if d.Key == key {
			return true
		}
	}
	return false
}

type entryGroups struct {
	data, bluesky, metadata, streams *hdf5.Group
}

func (b *builder) createGroups(entry *hdf5.Group) (*entryGroups, error) {
	var g entryGroups
	var instrument *hdf5.Group
	steps := []struct {
		parent **hdf5.Group
		name   string
		class  string
		out    **hdf5.Group
	}{
		{nil, "data", "NXdata", &g.data},
		{nil, "instrument", "NXinstrument", &instrument},
		{&instrument, "bluesky", "NXnote", &g.bluesky},
		{&g.bluesky, "metadata", "NXnote", &g.metadata},
		{&g.bluesky, "streams", "NXnote", &g.streams},
	}
	for _, s := range steps {
		parent := entry
		if s.parent != nil {
			parent = *s.parent
		}
		grp, err := parent.CreateGroup(s.name)
		if err != nil {
			return nil, b.storageError(err, "createGroups", "create "+hdf5.JoinPath(parent.Path(), s.name))
		}
		if err := grp.SetAttr("NX_class", s.class); err != nil {
			return nil, b.storageError(err, "createGroups", "tag "+grp.Path())
		}
		*s.out = grp
	}
	return &g, nil
}

// writeMetadata stores every flattened entry and returns the datasets by key.
func (b *builder) writeMetadata(g *hdf5.Group, flat *Flat) (map[string]*hdf5.Dataset, error) {
	out := make(map[string]*hdf5.Dataset, len(flat.Entries))
	for _, e := range flat.Entries {
		ds, err := g.CreateDataset(e.Key, e.Value, hdf5.WithCompactThreshold(b.cfg.compactThreshold))
		if err != nil {
			return nil, b.storageError(err, "writeMetadata", "store "+e.Key)
		}
		out[e.Key] = ds
	}
	return out, nil
}

// metadataLinks creates each link whose metadata key was flattened. Absent
// keys are skipped.
func (b *builder) metadataLinks(g *hdf5.Group, links []struct{ name, key string }, flat *Flat, meta map[string]*hdf5.Dataset) error {
	for _, l := range links {
		if !flat.Has(l.key) {
			continue
		}
		target, ok := meta[l.key]
		if !ok {
			return newSerializationError(KindMissingLinkTarget, b.uid, "", l.key, "metadataLinks",
				fmt.Errorf("metadata %s was not written", l.key))
		}
		if err := b.link(g, l.name, target); err != nil {
			return err
		}
	}
	return nil
}

// enumerateStreams returns the run's streams: the children of its "streams"
// container when there is one, otherwise its direct children.
func (b *builder) enumerateStreams(ctx context.Context, run catalog.Node) ([]catalog.Child, error) {
	children, err := run.Children(ctx)
	if err != nil {
		return nil, b.readFailed("", "", err)
	}
	for _, c := range children {
		if c.Name != "streams" {
			continue
		}
		streams, err := c.Node.Children(ctx)
		if err != nil {
			return nil, b.readFailed("", "", err)
		}
		return streams, nil
	}
	return children, nil
}

// readStreams reads every stream concurrently, bounded by the configured
// concurrency, and returns them in enumeration order.
func (b *builder) readStreams(ctx context.Context, streams []catalog.Child) ([]*streamData, error) {
	out := make([]*streamData, len(streams))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.concurrency)
	for i, s := range streams {
		b.report.Streams = append(b.report.Streams, s.Name)
		g.Go(func() error {
			ctxlog.FromContext(gctx).Debug("reading stream", "stream", s.Name)
			sd, err := b.readStream(gctx, s.Name, s.Node)
			if err != nil {
				return err
			}
			out[i] = sd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// setAttrs sets name/value pairs on g.
func setAttrs(g *hdf5.Group, kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if err := g.SetAttr(kv[i], kv[i+1]); err != nil {
			return err
		}
	}
	return nil
}
