package nexus

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/robert-malhotra/go-nexus/catalog"
	"github.com/robert-malhotra/go-nexus/internal/pyrepr"
)

// encodeJSON renders v the way Python's json.dumps does with its default
// settings: ", " and ": " separators, keys in insertion order, non-ASCII
// escaped, floats in repr form and non-finite floats as NaN or Infinity.
// Datetimes nested in lists or mappings are written as strings.
func encodeJSON(v catalog.Value) string {
	var b strings.Builder
	writeJSON(&b, v)
	return b.String()
}

func writeJSON(b *strings.Builder, v catalog.Value) {
	switch v.Kind() {
	case catalog.KindNull:
		b.WriteString("null")
	case catalog.KindBool:
		x, _ := v.AsBool()
		b.WriteString(strconv.FormatBool(x))
	case catalog.KindInt:
		x, _ := v.AsInt()
		b.WriteString(strconv.FormatInt(x, 10))
	case catalog.KindFloat:
		x, _ := v.AsFloat()
		b.WriteString(jsonFloat(x))
	case catalog.KindString:
		x, _ := v.AsString()
		writeJSONString(b, x)
	case catalog.KindTime:
		x, _ := v.AsTime()
		writeJSONString(b, formatDatetime(x))
	case catalog.KindList:
		xs, _ := v.AsList()
		b.WriteByte('[')
		for i, x := range xs {
			if i > 0 {
				b.WriteString(", ")
			}
			writeJSON(b, x)
		}
		b.WriteByte(']')
	case catalog.KindMap:
		m, _ := v.AsMap()
		b.WriteByte('{')
		i := 0
		for k, x := range m.All() {
			if i > 0 {
				b.WriteString(", ")
			}
			writeJSONString(b, k)
			b.WriteString(": ")
			writeJSON(b, x)
			i++
		}
		b.WriteByte('}')
	}
}

func jsonFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return pyrepr.Float(f)
}

func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r < 0x7f:
				b.WriteRune(r)
			case r > 0xffff:
				r1, r2 := utf16.EncodeRune(r)
				fmt.Fprintf(b, `\u%04x\u%04x`, r1, r2)
			default:
				fmt.Fprintf(b, `\u%04x`, r)
			}
		}
	}
	b.WriteByte('"')
}
