package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rigscope/internal/constraint"
	"github.com/Faultbox/rigscope/internal/rig"
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "presets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(v float32) *float32 { return &v }

func TestPutGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	spec := constraint.Spec{Type: "hinge", Axis: "z", Min: ptr(-1), Max: ptr(1)}
	require.NoError(t, s.Put(ctx, "arm", "lower", spec))

	got, err := s.Get(ctx, "arm", "lower")
	require.NoError(t, err)
	assert.Equal(t, "arm", got.Model)
	assert.Equal(t, "lower", got.Bone)
	assert.Equal(t, spec, got.Spec)
	assert.True(t, fixed.Equal(got.UpdatedAt))

	// Upsert replaces the spec.
	require.NoError(t, s.Put(ctx, "arm", "lower", constraint.Spec{Type: "fixed"}))
	got, err = s.Get(ctx, "arm", "lower")
	require.NoError(t, err)
	assert.Equal(t, "fixed", got.Spec.Type)

	_, err = s.Get(ctx, "arm", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "arm", "upper", constraint.Spec{Type: "fixed"}))
	require.NoError(t, s.Put(ctx, "arm", "hand", constraint.Spec{Type: "none"}))
	require.NoError(t, s.Put(ctx, "leg", "knee", constraint.Spec{Type: "fixed"}))

	list, err := s.List(ctx, "arm")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "hand", list[0].Bone)
	assert.Equal(t, "upper", list[1].Bone)

	require.NoError(t, s.Delete(ctx, "arm", "hand"))
	assert.ErrorIs(t, s.Delete(ctx, "arm", "hand"), ErrNotFound)

	list, err = s.List(ctx, "arm")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "arm", "upper", constraint.Spec{Type: "fixed"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Get(ctx, "arm", "upper")
	assert.NoError(t, err)
}

func TestApplyTo(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	scene := skeleton.NewNode("Armature")
	upper := skeleton.NewNode("upper")
	upper.IsBone = true
	lower := skeleton.NewNode("lower")
	lower.IsBone = true
	lower.Position = math.Vec3{Y: 1}
	scene.Add(upper)
	upper.Add(lower)

	opts := rig.DefaultOptions()
	opts.Model = "arm"
	opts.Constraints.InferFromRest = false
	r, err := rig.Assemble(scene, opts)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, s.Put(ctx, "arm", "lower", constraint.Spec{Type: "hinge", Axis: "x"}))
	require.NoError(t, s.Put(ctx, "arm", "ghost", constraint.Spec{Type: "fixed"}))
	require.NoError(t, s.Put(ctx, "other", "upper", constraint.Spec{Type: "fixed"}))

	n, err := s.ApplyTo(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, constraint.KindHinge, constraint.KindOf(lower.UserData.Constraint))
	assert.Nil(t, upper.UserData.Constraint)
}
