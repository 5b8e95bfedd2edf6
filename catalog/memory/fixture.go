package memory

import (
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-nexus/catalog"
	"github.com/robert-malhotra/go-nexus/errors"
)

//go:embed schema.json
var fixtureSchema []byte

// GenerateUID is replaced by a fresh UUID wherever it appears as a string in
// fixture metadata. Every occurrence in one fixture gets the same UUID.
const GenerateUID = "<generate>"

// LoadFixtureFile loads a run fixture from a YAML file.
func LoadFixtureFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "memory", "LoadFixtureFile", "open fixture")
	}
	defer f.Close()
	return LoadFixture(f)
}

// LoadFixture builds a run from a YAML fixture:
//
//	metadata:        # run documents (start, stop, summary, ...)
//	flat: false      # true puts streams directly under the run
//	streams:
//	  primary:
//	    metadata: {data_keys: ..., hints: ...}
//	    internal: {energy: [1, 2], ts_energy: {linspace: [0, 1, 2]}}
//	    external: {image: {fill: 0, shape: [2, 4, 4]}}
//	    external_container: false
//
// Mapping order in the YAML is kept for documents, streams and columns. The
// fixture is validated against a JSON Schema before anything is built.
func LoadFixture(r io.Reader) (*Node, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapInvalid(err, "memory", "LoadFixture", "read fixture")
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err), "memory", "LoadFixture", "decode yaml")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: empty fixture", errors.ErrInvalidData), "memory", "LoadFixture", "decode yaml")
	}
	root := doc.Content[0]

	if err := validateFixture(root); err != nil {
		return nil, errors.WrapInvalid(err, "memory", "LoadFixture", "validate fixture")
	}
	v, err := valueOf(root)
	if err != nil {
		return nil, errors.WrapInvalid(err, "memory", "LoadFixture", "convert fixture")
	}
	top, _ := v.AsMap()
	run, err := buildRun(top)
	if err != nil {
		return nil, errors.WrapInvalid(err, "memory", "LoadFixture", "build run")
	}
	return run, nil
}

func validateFixture(root *yaml.Node) error {
	var generic any
	if err := root.Decode(&generic); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrParsingFailed, err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(fixtureSchema),
		gojsonschema.NewGoLoader(jsonSafe(generic)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrSchemaFailed, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return fmt.Errorf("%w: %s", errors.ErrSchemaFailed, strings.Join(msgs, "; "))
	}
	return nil
}

// jsonSafe rewrites decoded YAML into data encoding/json accepts. JSON has no
// non-finite numbers, so those become null.
func jsonSafe(x any) any {
	switch t := x.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
	case map[string]any:
		for k, v := range t {
			t[k] = jsonSafe(v)
		}
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[fmt.Sprint(k)] = jsonSafe(v)
		}
		return out
	case []any:
		for i, v := range t {
			t[i] = jsonSafe(v)
		}
	}
	return x
}

// valueOf converts a YAML node into a Value, keeping mapping order.
func valueOf(n *yaml.Node) (catalog.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return valueOf(n.Alias)
	case yaml.MappingNode:
		m := catalog.NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return catalog.Value{}, fmt.Errorf("line %d: mapping key is not a scalar", k.Line)
			}
			val, err := valueOf(v)
			if err != nil {
				return catalog.Value{}, err
			}
			m.Set(k.Value, val)
		}
		return catalog.MapValue(m), nil
	case yaml.SequenceNode:
		out := make([]catalog.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := valueOf(c)
			if err != nil {
				return catalog.Value{}, err
			}
			out[i] = v
		}
		return catalog.List(out...), nil
	case yaml.ScalarNode:
		return scalarOf(n)
	}
	return catalog.Value{}, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

func scalarOf(n *yaml.Node) (catalog.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return catalog.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return catalog.Value{}, err
		}
		return catalog.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return catalog.Int(i), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return catalog.Value{}, err
		}
		return catalog.Float(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return catalog.Value{}, err
		}
		return catalog.Float(f), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return catalog.Value{}, err
		}
		return catalog.Time(t), nil
	}
	return catalog.String(n.Value), nil
}

func buildRun(top *catalog.Map) (*Node, error) {
	md, _ := top.Map("metadata")
	if md == nil {
		md = catalog.NewMap()
	}
	generated := ""
	replaceMarker(md, func() string {
		if generated == "" {
			generated = uuid.NewString()
		}
		return generated
	})

	run := NewContainer(md)
	parent := run
	if flat, _ := top.Get("flat"); !isTrue(flat) {
		parent = NewContainer(nil)
		if err := run.Add("streams", parent); err != nil {
			return nil, err
		}
	}

	streams, _ := top.Map("streams")
	for name, sv := range streams.All() {
		body, _ := sv.AsMap()
		stream, err := buildStream(body)
		if err != nil {
			return nil, fmt.Errorf("stream %q: %w", name, err)
		}
		if err := parent.Add(name, stream); err != nil {
			return nil, err
		}
	}
	return run, nil
}

func replaceMarker(m *catalog.Map, uid func() string) {
	for k, v := range m.All() {
		switch v.Kind() {
		case catalog.KindString:
			if s, _ := v.AsString(); s == GenerateUID {
				m.Set(k, catalog.String(uid()))
			}
		case catalog.KindMap:
			sub, _ := v.AsMap()
			replaceMarker(sub, uid)
		}
	}
}

func buildStream(body *catalog.Map) (*Node, error) {
	md, _ := body.Map("metadata")
	stream := NewContainer(md)

	if cols, ok := body.Map("internal"); ok {
		table := catalog.NewTable()
		for name, col := range cols.All() {
			arr, err := buildArray(col)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			if err := table.AddColumn(name, arr); err != nil {
				return nil, err
			}
		}
		if err := stream.Add("internal", NewTableNode(table, nil)); err != nil {
			return nil, err
		}
	}

	if ext, ok := body.Map("external"); ok {
		holder := stream
		if nested, _ := body.Get("external_container"); isTrue(nested) {
			holder = NewContainer(nil)
			if err := stream.Add("external", holder); err != nil {
				return nil, err
			}
		}
		for name, av := range ext.All() {
			arr, err := buildArray(av)
			if err != nil {
				return nil, fmt.Errorf("external %q: %w", name, err)
			}
			if err := holder.Add(name, NewArrayNode(arr, nil)); err != nil {
				return nil, err
			}
		}
	}
	return stream, nil
}

func isTrue(v catalog.Value) bool {
	b, ok := v.AsBool()
	return ok && b
}
