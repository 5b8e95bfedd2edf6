package hdf5

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildWalkFile(t *testing.T) *File {
	t.Helper()
	f := NewFile()
	root := f.Root()
	require.NoError(t, root.SetAttr("default", "entry"))
	entry, err := root.CreateGroup("entry")
	require.NoError(t, err)
	data, err := entry.CreateGroup("data")
	require.NoError(t, err)
	require.NoError(t, data.SetAttr("NX_class", "NXdata"))
	_, err = data.CreateDataset("value", []float64{1, 2}, WithAttribute("units", "mm"))
	require.NoError(t, err)
	require.NoError(t, entry.CreateSoftLink("alias", "/entry/data/value"))
	_, err = entry.CreateDataset("duration", 3.5)
	require.NoError(t, err)
	return roundTrip(t, f)
}

func TestWalk(t *testing.T) {
	f := buildWalkFile(t)

	var paths []string
	err := Walk(f.Root(), func(path string, obj any, err error) error {
		require.NoError(t, err)
		switch obj.(type) {
		case *Group:
			paths = append(paths, "G "+path)
		case *Dataset:
			paths = append(paths, "D "+path)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"G /",
		"G /entry",
		"G /entry/data",
		"D /entry/data/value",
		"D /entry/duration",
	}, paths)
}

func TestWalkStop(t *testing.T) {
	f := buildWalkFile(t)
	n := 0
	err := Walk(f.Root(), func(string, any, error) error {
		n++
		if n == 2 {
			return ErrStopWalk
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWalkAttrs(t *testing.T) {
	f := buildWalkFile(t)

	got := map[string]any{}
	err := f.WalkAttrs(func(info AttrInfo) error {
		require.NoError(t, info.Err)
		got[info.Path] = info.Value
		if info.Name == "units" {
			assert.Equal(t, "dataset", info.ObjectType)
			assert.Equal(t, "/entry/data/value", info.ObjectPath)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"/@default":               "entry",
		"/entry/data@NX_class":    "NXdata",
		"/entry/data/value@units": "mm",
	}, got)
}

func TestParseAttrPath(t *testing.T) {
	tests := []struct {
		path       string
		wantObject string
		wantAttr   string
		wantErr    bool
	}{
		{"/@default", "/", "default", false},
		{"/entry/data@signal", "/entry/data", "signal", false},
		{"entry@NX_class", "/entry", "NX_class", false},
		{"", "", "", true},
		{"/path/no/at", "", "", true},
		{"/path@", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			obj, attr, err := ParseAttrPath(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantObject, obj)
			assert.Equal(t, tt.wantAttr, attr)
		})
	}
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, []string{}, SplitPath("/"))
	assert.Equal(t, []string{"a", "b"}, SplitPath("/a//b/"))
	assert.Equal(t, "/", CleanPath(""))
	assert.Equal(t, "/a/b", CleanPath("a/b/"))
	assert.Equal(t, "/x", JoinPath("/", "x"))
	assert.Equal(t, "/a/x", JoinPath("/a", "x"))
	assert.Equal(t, "/@x", JoinAttrPath("/", "x"))
	assert.Equal(t, "/a@x", JoinAttrPath("/a", "x"))
}
