package rig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rigscope/internal/constraint"
)

const armGLTF = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "Armature", "children": [1]},
    {"name": "upper", "translation": [3, -2, 0], "children": [2]},
    {"name": "lower", "translation": [-1.5, 1.5, 0], "children": [3]},
    {"name": "hand", "translation": [-1.5, 0.5, 0]}
  ],
  "skins": [{"joints": [1, 2, 3]}]
}`

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "arm", ModelName("/models/arm.glb"))
	assert.Equal(t, "arm.v2", ModelName("arm.v2.gltf"))
}

func TestLoadFile(t *testing.T) {
	model := writeFile(t, "arm.gltf", armGLTF)
	sidecar := writeFile(t, "arm.yaml", "bones:\n  lower: {type: hinge, axis: z, min: -1, max: 1}\n")

	opts := DefaultOptions()
	opts.Constraints.InferFromRest = false
	r, err := LoadFile(model, sidecar, opts)
	require.NoError(t, err)
	t.Cleanup(r.Close)

	assert.Equal(t, "arm", r.Snapshot().Model)
	assert.Equal(t, 3, r.Store().Len())
	assert.Equal(t, constraint.KindHinge, constraint.KindOf(r.Store().Find("lower").UserData.Constraint))
	assert.Equal(t, "hand", r.Handle().BoneName())
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.glb"), "", DefaultOptions())
	assert.Error(t, err)

	model := writeFile(t, "arm.gltf", armGLTF)
	bad := writeFile(t, "bad.yaml", "bones:\n  lower: {type: hinge, axis: w}\n")
	_, err = LoadFile(model, bad, DefaultOptions())
	assert.Error(t, err)

	empty := writeFile(t, "empty.gltf", `{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0]}], "nodes": [{"name": "Mesh"}]}`)
	r, err := LoadFile(empty, "", DefaultOptions())
	assert.True(t, errors.Is(err, ErrNoBones))
	require.NotNil(t, r)
	r.Close()
}
