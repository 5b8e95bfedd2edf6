package pyrepr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{-2.5, "-2.5"},
		{38.35049033164978, "38.35049033164978"},
		{1665065697.3635247, "1665065697.3635247"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1e16, "1e+16"},
		{123456789012345.0, "123456789012345.0"},
		{math.NaN(), "nan"},
		{math.Inf(-1), "-inf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Float(tt.in), "Float(%v)", tt.in)
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "''", Quote("", 10))
	assert.Equal(t, "'abc'", Quote("abc", 3))
	assert.Equal(t, "'ab...'", Quote("abc", 2))
	assert.Equal(t, "'äö...'", Quote("äöü", 2))
	assert.Equal(t, "'abc'", Quote("abc", 0))
}

func TestFloatArray(t *testing.T) {
	tests := []struct {
		in   []float64
		want string
	}{
		{nil, "[]"},
		{[]float64{130.0, 204.1}, "[130.  204.1]"},
		{[]float64{0, 15}, "[ 0. 15.]"},
		{[]float64{1.25, -3}, "[ 1.25 -3.  ]"},
		{[]float64{1e-5, 1}, "[1.e-05 1.e+00]"},
		{[]float64{1, math.NaN()}, "[ 1. nan]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FloatArray(tt.in), "FloatArray(%v)", tt.in)
	}
}

func TestArray(t *testing.T) {
	assert.Equal(t, "[ 0 15]", Array([]string{"0", "15"}))
	assert.Equal(t, "[ True False]", Array([]string{"True", "False"}))
	assert.Equal(t, "[]", Array(nil))
}
