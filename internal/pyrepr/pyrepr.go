// Package pyrepr formats values the way Python and NumPy print them, so
// files written here read the same as files written by the Python tools.
package pyrepr

import (
	"math"
	"strconv"
	"strings"
)

// Float formats f like Python's repr: the shortest digits that round-trip,
// positional for exponents in [-4, 16) and scientific otherwise.
func Float(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Bool returns True or False.
func Bool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Quote wraps s in single quotes, cutting it to limit runes followed by
// "..." when longer. A limit of zero or less never cuts.
func Quote(s string, limit int) string {
	if r := []rune(s); limit > 0 && len(r) > limit {
		s = string(r[:limit]) + "..."
	}
	return "'" + s + "'"
}

// FloatArray formats xs like NumPy's default array printing: positional
// notation with integer parts right-aligned and fractions left-aligned, or
// scientific notation when the magnitudes span too wide a range.
func FloatArray(xs []float64) string {
	if len(xs) == 0 {
		return "[]"
	}
	// lo is the smallest nonzero finite magnitude.
	var lo, hi float64
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) || x == 0 {
			continue
		}
		a := math.Abs(x)
		if lo == 0 || a < lo {
			lo = a
		}
		hi = max(hi, a)
	}
	if hi >= 1e16 || (lo != 0 && (lo < 1e-4 || hi/lo > 1e3)) {
		return joinPadded(xs, func(x float64) (string, string) {
			return sciElem(x), ""
		})
	}
	return joinPadded(xs, func(x float64) (string, string) {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Float(x), ""
		}
		s := strconv.FormatFloat(x, 'f', -1, 64)
		whole, frac, _ := strings.Cut(s, ".")
		return whole + ".", frac
	})
}

// sciElem formats x as NumPy does in scientific mode: "1.5e+03".
func sciElem(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return Float(x)
	}
	s := strconv.FormatFloat(x, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	if !strings.Contains(mant, ".") {
		mant += "."
	}
	return mant + "e" + exp
}

// joinPadded lays out elements split into a head and a tail, padding heads
// on the left and tails on the right to their widest member.
func joinPadded(xs []float64, split func(float64) (string, string)) string {
	heads := make([]string, len(xs))
	tails := make([]string, len(xs))
	var hw, tw int
	for i, x := range xs {
		heads[i], tails[i] = split(x)
		hw = max(hw, len(heads[i]))
		tw = max(tw, len(tails[i]))
	}
	parts := make([]string, len(xs))
	for i := range xs {
		parts[i] = strings.Repeat(" ", hw-len(heads[i])) + heads[i] + tails[i] + strings.Repeat(" ", tw-len(tails[i]))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Array formats already-rendered elements like NumPy: right-aligned to the
// widest and space separated.
func Array(elems []string) string {
	w := 0
	for _, e := range elems {
		w = max(w, len(e))
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = strings.Repeat(" ", w-len(e)) + e
	}
	return "[" + strings.Join(parts, " ") + "]"
}
