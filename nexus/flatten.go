package nexus

import (
	"fmt"
	"math"
	"time"

	"github.com/robert-malhotra/go-nexus/catalog"
	"github.com/robert-malhotra/go-nexus/errors"
)

// Entry is one flattened metadata value.
type Entry struct {
	Key   string
	Value any
}

// Flat is the flattened form of a run's documents.
type Flat struct {
	// Entries holds "<document>.<key>" values in document order. Values are
	// string, int64, float64 or bool; a null document value is nil.
	Entries []Entry
	// Derived holds start_time, stop_time and duration when they can be
	// computed from start.time and stop.time.
	Derived []Entry

	index map[string]int
}

// Get returns the flattened value stored under key.
func (f *Flat) Get(key string) (any, bool) {
	i, ok := f.index[key]
	if !ok {
		return nil, false
	}
	return f.Entries[i].Value, true
}

// Has reports whether key was flattened.
func (f *Flat) Has(key string) bool {
	_, ok := f.index[key]
	return ok
}

// Flatten turns a mapping of document name to document into one flat table
// keyed "<document>.<key>". Datetimes become strings, lists and mappings
// become JSON text and other scalars pass through. Timestamps in start.time
// and stop.time, read as Unix seconds, also produce start_time, stop_time
// and duration rendered in loc.
func Flatten(docs *catalog.Map, loc *time.Location) (*Flat, error) {
	if loc == nil {
		loc = time.Local
	}
	flat := &Flat{index: map[string]int{}}
	for name, dv := range docs.All() {
		doc, ok := dv.AsMap()
		if !ok {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: document %q is %s, not a mapping", errors.ErrInvalidData, name, dv.Kind()),
				"nexus", "Flatten", "flatten documents")
		}
		for key, v := range doc.All() {
			k := name + "." + key
			flat.index[k] = len(flat.Entries)
			flat.Entries = append(flat.Entries, Entry{Key: k, Value: storable(v)})
		}
	}

	times := map[string]float64{}
	for _, phase := range []string{"start", "stop"} {
		v, ok := docs.Map(phase)
		if !ok {
			continue
		}
		t, ok := v.Get("time")
		if !ok {
			continue
		}
		secs, ok := t.Number()
		if !ok || math.IsNaN(secs) || math.IsInf(secs, 0) {
			continue
		}
		times[phase] = secs
		flat.Derived = append(flat.Derived, Entry{Key: phase + "_time", Value: formatTimestamp(secs, loc)})
	}
	if _, ok := times["start"]; ok {
		if _, ok := times["stop"]; ok {
			flat.Derived = append(flat.Derived, Entry{Key: "duration", Value: duration(docs)})
		}
	}
	return flat, nil
}

// storable maps a metadata value onto something a dataset can hold. Null
// has no storable form and is passed on as nil.
func storable(v catalog.Value) any {
	switch v.Kind() {
	case catalog.KindBool:
		x, _ := v.AsBool()
		return x
	case catalog.KindInt:
		x, _ := v.AsInt()
		return x
	case catalog.KindFloat:
		x, _ := v.AsFloat()
		return x
	case catalog.KindString:
		x, _ := v.AsString()
		return x
	case catalog.KindTime:
		x, _ := v.AsTime()
		return formatDatetime(x)
	case catalog.KindList, catalog.KindMap:
		return encodeJSON(v)
	}
	return nil
}

// duration is stop.time minus start.time, an integer when both are.
func duration(docs *catalog.Map) any {
	start, _ := docs.Map("start")
	stop, _ := docs.Map("stop")
	a, _ := start.Get("time")
	b, _ := stop.Get("time")
	ai, aInt := a.AsInt()
	bi, bInt := b.AsInt()
	if aInt && bInt {
		return bi - ai
	}
	af, _ := a.Number()
	bf, _ := b.Number()
	return bf - af
}

// formatTimestamp renders Unix seconds as an ISO 8601 time with offset,
// rounded half-even to the microsecond.
func formatTimestamp(secs float64, loc *time.Location) string {
	whole, frac := math.Modf(secs)
	us := math.RoundToEven(frac * 1e6)
	if us >= 1e6 {
		whole++
		us -= 1e6
	} else if us < 0 {
		whole--
		us += 1e6
	}
	t := time.Unix(int64(whole), int64(us)*1000).In(loc)
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05-07:00")
	}
	return t.Format("2006-01-02T15:04:05.000000-07:00")
}

// formatDatetime renders a datetime value with a space separator. Times in
// UTC are treated as zoneless and printed without an offset.
func formatDatetime(t time.Time) string {
	layout := "2006-01-02 15:04:05"
	if t.Nanosecond()/1000 != 0 {
		layout += ".000000"
	}
	if t.Location() != time.UTC {
		layout += "-07:00"
	}
	return t.Format(layout)
}
