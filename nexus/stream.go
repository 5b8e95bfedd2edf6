package nexus

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/robert-malhotra/go-nexus/catalog"
	"github.com/robert-malhotra/go-nexus/errors"
	"github.com/robert-malhotra/go-nexus/hdf5"
	"github.com/robert-malhotra/go-nexus/internal/ctxlog"
)

// streamData is everything read from one stream before the write phase.
type streamData struct {
	name     string
	dataKeys *catalog.Map
	hints    *catalog.Map
	// table is nil when the stream has no internal table.
	table    *catalog.Table
	external map[string]*catalog.Array
}

// streamResult holds the handles of one written stream. Links are resolved
// against these handles only.
type streamResult struct {
	name   string
	hints  *catalog.Map
	group  *hdf5.Group
	fields map[string]*hdf5.Dataset
}

// descriptors returns data_keys and hints, falling back to the last
// descriptor document for whichever is missing.
func descriptors(md *catalog.Map) (dataKeys, hints *catalog.Map) {
	dataKeys, _ = md.Map("data_keys")
	hints, _ = md.Map("hints")
	if dataKeys != nil && hints != nil {
		return dataKeys, hints
	}
	v, ok := md.Get("descriptors")
	if !ok {
		return orEmpty(dataKeys), orEmpty(hints)
	}
	list, _ := v.AsList()
	if len(list) == 0 {
		return orEmpty(dataKeys), orEmpty(hints)
	}
	last, _ := list[len(list)-1].AsMap()
	if dataKeys == nil {
		dataKeys, _ = last.Map("data_keys")
	}
	if hints == nil {
		hints, _ = last.Map("hints")
	}
	return orEmpty(dataKeys), orEmpty(hints)
}

func orEmpty(m *catalog.Map) *catalog.Map {
	if m == nil {
		return catalog.NewMap()
	}
	return m
}

func isExternal(desc *catalog.Map) bool {
	return desc.Has("external")
}

// readStream fetches the internal table and every external array the
// stream declares.
func (b *builder) readStream(ctx context.Context, name string, node catalog.Node) (*streamData, error) {
	sd := &streamData{name: name, external: map[string]*catalog.Array{}}
	sd.dataKeys, sd.hints = descriptors(node.Metadata())

	children, err := node.Children(ctx)
	if err != nil {
		return nil, b.readFailed(name, "", err)
	}
	byName := make(map[string]catalog.Node, len(children))
	for _, c := range children {
		byName[c.Name] = c.Node
	}

	if internal, ok := byName["internal"]; ok {
		if sd.table, err = readInternal(ctx, internal); err != nil {
			return nil, b.readFailed(name, "internal", err)
		}
	}

	for field, dv := range sd.dataKeys.All() {
		desc, _ := dv.AsMap()
		if !isExternal(desc) {
			continue
		}
		node, ok := externalNode(ctx, byName, field)
		if !ok {
			continue
		}
		arr, err := catalog.ReadArray(ctx, node)
		if err != nil {
			return nil, b.readFailed(name, field, err)
		}
		sd.external[field] = arr
	}
	return sd, nil
}

// readInternal reads the internal table, which is either the node itself or
// an "events" table inside it.
func readInternal(ctx context.Context, node catalog.Node) (*catalog.Table, error) {
	table, err := catalog.ReadTable(ctx, node)
	if err == nil || !errors.Is(err, catalog.ErrNotReadable) {
		return table, err
	}
	events, lerr := catalog.Lookup(ctx, node, "events")
	if lerr != nil {
		return nil, err
	}
	return catalog.ReadTable(ctx, events)
}

// externalNode finds an external array at <stream>/<field> or
// <stream>/external/<field>.
func externalNode(ctx context.Context, byName map[string]catalog.Node, field string) (catalog.Node, bool) {
	if n, ok := byName[field]; ok {
		return n, true
	}
	holder, ok := byName["external"]
	if !ok {
		return nil, false
	}
	n, err := catalog.Lookup(ctx, holder, field)
	return n, err == nil
}

func (b *builder) readFailed(stream, field string, err error) error {
	return newSerializationError(KindReadFailed, b.uid, stream, field, "readStream", err)
}

// writeStream writes one data group per declared field under parent and
// returns handles to every value dataset written.
func (b *builder) writeStream(ctx context.Context, parent *hdf5.Group, sd *streamData) (*streamResult, error) {
	log := ctxlog.FromContext(ctx).With("stream", sd.name)
	group, err := parent.CreateGroup(sd.name)
	if err != nil {
		return nil, b.storageError(err, "writeStream", "create stream group "+sd.name)
	}
	if err := group.SetAttr("NX_class", "NXnote"); err != nil {
		return nil, b.storageError(err, "writeStream", "tag stream group "+sd.name)
	}

	hinted := hintedFields(sd.hints)
	res := &streamResult{name: sd.name, hints: sd.hints, group: group, fields: map[string]*hdf5.Dataset{}}
	for field, dv := range sd.dataKeys.All() {
		desc, _ := dv.AsMap()
		desc = orEmpty(desc)

		var arr *catalog.Array
		var ok bool
		if isExternal(desc) {
			arr, ok = sd.external[field]
		} else {
			arr, ok = sd.table.Column(field)
		}
		if !ok {
			reason := "no internal column"
			if isExternal(desc) {
				reason = "no external array"
			}
			if hinted[field] {
				return nil, newSerializationError(KindMissingField, b.uid, sd.name, field, "writeStream",
					fmt.Errorf("hinted field %q: %s", field, reason))
			}
			b.skip(log, sd.name, field, reason)
			continue
		}
		if err := placeable(arr); err != nil {
			b.skip(log, sd.name, field, err.Error())
			continue
		}

		value, reason, err := b.writeField(log, group, field, desc, arr, sd.table)
		if err != nil {
			return nil, err
		}
		res.fields[field] = value
		b.record(Outcome{Stream: sd.name, Field: field, Status: StatusWritten, Reason: reason})
	}
	log.Debug("stream written", "fields", len(res.fields))
	return res, nil
}

// writeField writes the data group for one field. Internal fields also get
// EPOCH and time when their ts_<field> column exists.
func (b *builder) writeField(log *slog.Logger, parent *hdf5.Group, field string, desc *catalog.Map, arr *catalog.Array, table *catalog.Table) (*hdf5.Dataset, string, error) {
	path := hdf5.JoinPath(parent.Path(), field)
	group, err := parent.CreateGroup(field)
	if err != nil {
		return nil, "", b.storageError(err, "writeField", "create group "+path)
	}
	if err := group.SetAttr("NX_class", "NXdata"); err != nil {
		return nil, "", b.storageError(err, "writeField", "tag group "+path)
	}

	opts := []hdf5.DatasetOption{hdf5.WithShape(arr.Dims()...), hdf5.WithCompactThreshold(b.cfg.compactThreshold)}
	if u, ok := desc.Get("units"); ok {
		if units := storable(u); units != nil {
			opts = append(opts, hdf5.WithAttribute("units", units))
		}
	}
	value, err := group.CreateDataset("value", arr.Data, opts...)
	if err != nil {
		return nil, "", b.storageError(err, "writeField", "write "+path+"/value")
	}
	if isExternal(desc) {
		return value, "", nil
	}

	if err := group.SetAttr("signal", "value"); err != nil {
		return nil, "", b.storageError(err, "writeField", "tag group "+path)
	}
	ts, ok := table.Column("ts_" + field)
	if !ok {
		log.Error("no timestamps for internal field", "field", field)
		return value, "no timestamps column ts_" + field, nil
	}
	rel, err := sinceFirst(ts.Data)
	if err != nil {
		log.Warn("timestamps not stored", "field", field, "reason", err.Error())
		return value, err.Error(), nil
	}
	if _, err := group.CreateDataset("EPOCH", ts.Data, hdf5.WithShape(ts.Dims()...), hdf5.WithCompactThreshold(b.cfg.compactThreshold)); err != nil {
		return nil, "", b.storageError(err, "writeField", "write "+path+"/EPOCH")
	}
	if _, err := group.CreateDataset("time", rel,
		hdf5.WithShape(ts.Dims()...),
		hdf5.WithCompactThreshold(b.cfg.compactThreshold),
		hdf5.WithAttribute("units", "s"),
	); err != nil {
		return nil, "", b.storageError(err, "writeField", "write "+path+"/time")
	}
	if err := group.SetAttr("axes", "time"); err != nil {
		return nil, "", b.storageError(err, "writeField", "tag group "+path)
	}
	return value, "", nil
}

func (b *builder) skip(log *slog.Logger, stream, field, reason string) {
	log.Warn("field skipped", "field", field, "reason", reason)
	b.record(Outcome{Stream: stream, Field: field, Status: StatusSkipped, Reason: reason})
}

func (b *builder) record(o Outcome) {
	b.report.Outcomes = append(b.report.Outcomes, o)
	b.cfg.metrics.RecordField(o.Stream, o.Status.String())
}

func (b *builder) storageError(err error, method, action string) error {
	return errors.WrapFatal(err, "nexus", method, action)
}

// hintedFields collects every field named by any device's hints.
func hintedFields(hints *catalog.Map) map[string]bool {
	out := map[string]bool{}
	for _, hv := range hints.All() {
		for _, f := range deviceFields(hv) {
			out[f] = true
		}
	}
	return out
}

// deviceFields returns the "fields" list of one device's hints. A device
// hinted with a bare list of names is read as that list. Devices without
// either contribute nothing.
func deviceFields(hv catalog.Value) []string {
	if fields, ok := hv.Strings(); ok {
		return fields
	}
	h, ok := hv.AsMap()
	if !ok {
		return nil
	}
	fv, ok := h.Get("fields")
	if !ok {
		return nil
	}
	fields, _ := fv.Strings()
	return fields
}

// placeable reports whether arr can become a dataset.
func placeable(arr *catalog.Array) error {
	if arr == nil || arr.Data == nil {
		return fmt.Errorf("no data")
	}
	if err := hdf5.Storable(arr.Data); err != nil {
		return err
	}
	n := uint64(1)
	for _, d := range arr.Dims() {
		n *= d
	}
	if n != uint64(arr.Len()) {
		return fmt.Errorf("shape %v does not hold %d elements", arr.Dims(), arr.Len())
	}
	return nil
}

// sinceFirst returns timestamps minus their minimum, keeping integer
// columns integer.
func sinceFirst(data any) (any, error) {
	switch ts := data.(type) {
	case []float64:
		return offset(ts), nil
	case []float32:
		return offset(ts), nil
	case []int64:
		return offset(ts), nil
	case []int32:
		return offset(ts), nil
	case []int16:
		return offset(ts), nil
	case []int8:
		return offset(ts), nil
	case []uint64:
		return offset(ts), nil
	case []uint32:
		return offset(ts), nil
	case []uint16:
		return offset(ts), nil
	case []uint8:
		return offset(ts), nil
	}
	return nil, fmt.Errorf("timestamps are %s, not numeric", reflect.TypeOf(data))
}

func offset[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64](ts []T) []T {
	out := make([]T, len(ts))
	if len(ts) == 0 {
		return out
	}
	lo := ts[0]
	for _, t := range ts[1:] {
		lo = min(lo, t)
	}
	for i, t := range ts {
		out[i] = t - lo
	}
	return out
}
