package constraint

import (
	gomath "math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

func f32(v float32) *float32 { return &v }

// posed is a rest rotation with all three axes non-zero, so rest inference never fires.
var posed = math.Euler{X: 0.2, Y: 0.3, Z: 0.4}

func bone(name string, rest math.Euler) *skeleton.Node {
	n := skeleton.NewNode(name)
	n.IsBone = true
	n.SetRotation(rest)
	n.UserData.InitialRotation = rest
	return n
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		name string
		node func() *skeleton.Node
		want skeleton.Constraint
	}{
		{
			name: "authored constraint beats name",
			node: func() *skeleton.Node {
				n := bone("elbow_L", posed)
				n.UserData.Meta = map[string]any{"constraints": map[string]any{"type": "hinge", "axis": "x", "min": -1.0, "max": 1.0}}
				return n
			},
			want: &Hinge{Axis: math.AxisX, Min: -1, Max: 1},
		},
		{
			name: "authored none stops inference",
			node: func() *skeleton.Node {
				n := bone("rigid_knee", math.Euler{})
				n.UserData.Meta = map[string]any{"constraints": "none"}
				return n
			},
			want: nil,
		},
		{
			name: "authored rotation limits as pairs",
			node: func() *skeleton.Node {
				n := bone("neck", posed)
				n.UserData.Meta = map[string]any{"rotationLimits": map[string]any{"x": []any{-0.5, 0.5}}}
				return n
			},
			want: &LimitRotation{X: Range{-0.5, 0.5}, Y: Unlimited, Z: Unlimited},
		},
		{
			name: "extras constraints",
			node: func() *skeleton.Node {
				n := bone("thing", posed)
				n.UserData.Extras = map[string]any{"constraints": map[string]any{"type": "fixed"}}
				return n
			},
			want: &Fixed{},
		},
		{
			name: "extras rotation limits as objects",
			node: func() *skeleton.Node {
				n := bone("thing", posed)
				n.UserData.Extras = map[string]any{"rotationLimits": map[string]any{"z": map[string]any{"min": 0.0, "max": 2.0}}}
				return n
			},
			want: &LimitRotation{X: Unlimited, Y: Unlimited, Z: Range{0, 2}},
		},
		{
			name: "invalid authored spec falls through",
			node: func() *skeleton.Node {
				n := bone("bounce", posed)
				n.UserData.Meta = map[string]any{"constraints": map[string]any{"type": "hinge"}}
				return n
			},
			want: &Spring{Stiffness: 50, Damping: 5, RestRotation: posed},
		},
		{
			name: "rest all zero is fixed",
			node: func() *skeleton.Node { return bone("spine", math.Euler{}) },
			want: &Fixed{},
		},
		{
			name: "rest with one free axis is hinge",
			node: func() *skeleton.Node { return bone("spine", math.Euler{Z: 0.7, X: 0.00005}) },
			want: &Hinge{Axis: math.AxisZ, Min: -gomath.Pi, Max: gomath.Pi},
		},
		{
			name: "rest beats name",
			node: func() *skeleton.Node { return bone("bounce", math.Euler{}) },
			want: &Fixed{},
		},
		{
			name: "name rigid",
			node: func() *skeleton.Node { return bone("Rigid_Plate", posed) },
			want: &Fixed{},
		},
		{
			name: "name elbow x suffix",
			node: func() *skeleton.Node { return bone("Elbow_X", posed) },
			want: &Hinge{Axis: math.AxisX, Min: -gomath.Pi, Max: gomath.Pi},
		},
		{
			name: "name knee default axis",
			node: func() *skeleton.Node { return bone("knee.L", posed) },
			want: &Hinge{Axis: math.AxisY, Min: -gomath.Pi, Max: gomath.Pi},
		},
		{
			name: "name hinge z suffix",
			node: func() *skeleton.Node { return bone("door_hinge_z", posed) },
			want: &Hinge{Axis: math.AxisZ, Min: -gomath.Pi, Max: gomath.Pi},
		},
		{
			name: "no match",
			node: func() *skeleton.Node { return bone("forearm", posed) },
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.node())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWithoutRestInference(t *testing.T) {
	e := NewEngine(Options{SpringStiffness: 10, SpringDamping: 1})
	got := e.Parse(bone("tail_spring", math.Euler{}))
	assert.Equal(t, &Spring{Stiffness: 10, Damping: 1}, got)
	assert.Nil(t, e.Parse(bone("spine", math.Euler{})))
	assert.Nil(t, e.Parse(nil))
}

func TestParseIdempotent(t *testing.T) {
	nodes := []*skeleton.Node{
		bone("elbow", posed),
		bone("spine", math.Euler{}),
		bone("spring_tail", posed),
		bone("forearm", posed),
	}
	nodes[3].UserData.Meta = map[string]any{"rotationLimits": map[string]any{"y": []any{-1, 1}}}

	for _, n := range nodes {
		first := Parse(n)
		second := Parse(n)
		assert.Equal(t, first, second, n.Name)
		if first != nil {
			assert.NotSame(t, first, second, "Parse must return fresh descriptors")
		}
		assert.Nil(t, n.UserData.Constraint, "Parse must not bind")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"hinge without axis", Spec{Type: "hinge"}},
		{"hinge bad axis", Spec{Type: "hinge", Axis: "w"}},
		{"hinge inverted", Spec{Type: "hinge", Axis: "y", Min: f32(1), Max: f32(-1)}},
		{"limit inverted", Spec{Type: "limitRotation", Limits: map[string]Range{"x": {1, 0}}}},
		{"limit bad axis", Spec{Type: "limitRotation", Limits: map[string]Range{"q": {0, 1}}}},
		{"spring rest length", Spec{Type: "spring", Rest: []float32{1, 2}}},
		{"spring negative", Spec{Type: "spring", Stiffness: f32(-1)}},
		{"unknown type", Spec{Type: "ball"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Build()
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestDescribeRoundTrip(t *testing.T) {
	descriptors := []skeleton.Constraint{
		&Fixed{},
		&Hinge{Axis: math.AxisZ, Min: -0.5, Max: 1.5},
		&LimitRotation{X: Range{-1, 1}, Y: Unlimited, Z: Range{0, 0.3}},
		&Spring{Stiffness: 20, Damping: 2, RestRotation: math.Euler{X: 0.1}},
	}
	for _, c := range descriptors {
		got, err := Describe(c).Build()
		require.NoError(t, err, c.Kind())
		assert.Equal(t, c, got)
	}

	assert.Equal(t, KindNone, Describe(nil).Type)
	none, err := Describe(nil).Build()
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestHingeClamp(t *testing.T) {
	rest := math.Euler{X: 0.3, Y: 0, Z: -0.2}
	for _, prior := range []float32{-3, -1.0001, 1.0001, 2.5, 40} {
		b := bone("hinge", rest)
		Apply(b, &Hinge{Axis: math.AxisY, Min: -1, Max: 1}, ApplyOptions{})
		b.SetRotation(math.Euler{X: 1.2, Y: prior, Z: 0.9})

		Enforce(b, time.Now())

		r := b.Rotation()
		want := float32(1)
		if prior < 0 {
			want = -1
		}
		assert.Equal(t, want, r.Y)
		assert.Equal(t, rest.X, r.X)
		assert.Equal(t, rest.Z, r.Z)
	}
}

func TestLimitRotationClamp(t *testing.T) {
	b := bone("neck", math.Euler{})
	Apply(b, &LimitRotation{X: Range{-0.5, 0.5}, Y: Unlimited, Z: Range{0, 1}}, ApplyOptions{})
	b.SetRotation(math.Euler{X: 2, Y: 7, Z: -1})

	Enforce(b, time.Now())
	assert.Equal(t, math.Euler{X: 0.5, Y: 7, Z: 0}, b.Rotation())
}

func TestFixedResetsToRest(t *testing.T) {
	rest := math.Euler{X: 0.1}
	b := bone("plate", rest)
	Apply(b, &Fixed{}, ApplyOptions{})
	b.SetRotation(math.Euler{Y: 1})

	Enforce(b, time.Now())
	assert.Equal(t, rest, b.Rotation())
}

func TestFixedPreservesWorldPose(t *testing.T) {
	parent := bone("parent", math.Euler{})
	child := bone("child", math.Euler{})
	child.Position = math.Vec3{Y: 1}
	parent.Add(child)
	parent.UpdateMatrixWorld()

	f := &Fixed{}
	Apply(child, f, ApplyOptions{PreservePose: true})
	require.True(t, f.Preserved)

	parent.SetRotation(math.Euler{Z: gomath.Pi / 2})
	parent.Position = math.Vec3{X: 3}
	Enforce(child, time.Now())
	parent.UpdateMatrixWorld()

	p := child.WorldPosition()
	assert.InDelta(t, 0, p.X, 1e-4)
	assert.InDelta(t, 1, p.Y, 1e-4)
	assert.InDelta(t, 0, child.WorldQuaternion().Angle(), 1e-3)
}

func TestDescribePreservedFixed(t *testing.T) {
	b := bone("plate", math.Euler{Z: 0.4})
	b.Position = math.Vec3{X: 2, Y: 1}
	f := &Fixed{}
	Apply(b, f, ApplyOptions{PreservePose: true})

	spec := Describe(f)
	require.Len(t, spec.Pose, 16)

	got, err := spec.Build()
	require.NoError(t, err)
	assert.Equal(t, f, got)

	// Reapplying without preserve keeps the stored pose.
	Apply(b, got, ApplyOptions{})
	assert.Equal(t, f.WorldPose, got.(*Fixed).WorldPose)

	_, err = Spec{Type: "fixed", Pose: []float32{1, 0, 0}}.Build()
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestSpringPrimesThenIntegrates(t *testing.T) {
	b := bone("tail", math.Euler{})
	s := &Spring{Stiffness: 50, Damping: 5}
	Apply(b, s, ApplyOptions{})
	b.SetRotation(math.Euler{X: 1})

	t0 := time.Unix(100, 0)
	Enforce(b, t0)
	assert.True(t, s.Primed())
	assert.Equal(t, float32(1), b.Rotation().X, "first sample must not move the bone")

	// A long gap integrates with the capped step.
	Enforce(b, t0.Add(5*time.Second))
	assert.InDelta(t, 0.525, b.Rotation().X, 1e-5)
	assert.InDelta(t, -4.75, s.Velocity.X, 1e-4)

	// Time going backwards integrates with a zero step.
	before := b.Rotation()
	Enforce(b, t0)
	assert.Equal(t, before, b.Rotation())
}

func TestSpringSettles(t *testing.T) {
	b := bone("tail", math.Euler{})
	Apply(b, &Spring{Stiffness: 50, Damping: 5}, ApplyOptions{})
	b.SetRotation(math.Euler{X: 1})

	now := time.Unix(0, 0)
	Enforce(b, now)

	xs := []float32{1}
	for i := 0; i < 400; i++ {
		now = now.Add(16 * time.Millisecond)
		Enforce(b, now)
		xs = append(xs, b.Rotation().X)
	}

	var peaks []float32
	for i := 1; i < len(xs)-1; i++ {
		a, m, c := abs(xs[i-1]), abs(xs[i]), abs(xs[i+1])
		assert.LessOrEqual(t, m, float32(1), "overshoot at sample %d", i)
		if m >= a && m > c {
			peaks = append(peaks, m)
		}
	}
	require.Greater(t, len(peaks), 3)
	for i := 1; i < len(peaks); i++ {
		assert.Less(t, peaks[i], peaks[i-1], "peak %d", i)
	}
	assert.Less(t, abs(xs[len(xs)-1]), float32(0.2))
}

func TestApplyResetsSpring(t *testing.T) {
	b := bone("tail", posed)
	s := &Spring{Stiffness: 50, Damping: 5, restFromBone: true}
	Apply(b, s, ApplyOptions{})
	assert.Equal(t, posed, s.RestRotation)

	Enforce(b, time.Now())
	require.True(t, s.Primed())
	s.Velocity = math.Euler{X: 3}

	b.SetRotation(math.Euler{Y: 1})
	Apply(b, s, ApplyOptions{PreservePose: true})
	assert.False(t, s.Primed())
	assert.Equal(t, math.Euler{}, s.Velocity)
	assert.Equal(t, math.Euler{Y: 1}, s.RestRotation)
}

func TestNilSafety(t *testing.T) {
	assert.NotPanics(t, func() {
		Apply(nil, &Fixed{}, ApplyOptions{})
		Enforce(nil, time.Now())
		Enforce(skeleton.NewNode("free"), time.Now())

		b := skeleton.NewNode("typed nil")
		b.UserData.Constraint = (*Hinge)(nil)
		Enforce(b, time.Now())

		NewEngine(DefaultOptions()).EnforceAll([]*skeleton.Node{nil, b}, time.Now())
	})

	b := bone("b", posed)
	Apply(b, &Fixed{}, ApplyOptions{})
	Apply(b, nil, ApplyOptions{})
	assert.Nil(t, b.UserData.Constraint)
	assert.Equal(t, KindNone, KindOf(b.UserData.Constraint))
}

func TestEnforceAllAndEnforcer(t *testing.T) {
	e := NewEngine(DefaultOptions())
	a := bone("a", math.Euler{})
	c := bone("c", math.Euler{})
	Apply(a, &LimitRotation{X: Range{0, 0.1}, Y: Unlimited, Z: Unlimited}, ApplyOptions{})
	Apply(c, &Fixed{}, ApplyOptions{})
	a.SetRotation(math.Euler{X: 1})
	c.SetRotation(math.Euler{X: 1})

	e.EnforceAll([]*skeleton.Node{a, c}, time.Now())
	assert.Equal(t, float32(0.1), a.Rotation().X)
	assert.Equal(t, float32(0), c.Rotation().X)

	a.SetRotation(math.Euler{X: -1})
	e.Enforcer(time.Now())(a)
	assert.Equal(t, float32(0), a.Rotation().X)
}

func TestLoadSidecarAndInject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.yaml")
	content := `bones:
  forearm:
    type: hinge
    axis: z
    min: 0
    max: 2.5
  head:
    type: limitRotation
    limits:
      x: [-0.5, 0.5]
  tail:
    type: spring
    stiffness: 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	specs, err := LoadSidecar(path)
	require.NoError(t, err)
	require.Len(t, specs, 3)
	assert.Equal(t, "z", specs["forearm"].Axis)

	root := skeleton.NewNode("root")
	forearm := bone("forearm", math.Euler{})
	head := bone("head", math.Euler{})
	root.Add(forearm)
	root.Add(head)

	assert.Equal(t, 2, Inject(root, specs))
	assert.Equal(t, &Hinge{Axis: math.AxisZ, Min: 0, Max: 2.5}, Parse(forearm))
	assert.Equal(t, &LimitRotation{X: Range{-0.5, 0.5}, Y: Unlimited, Z: Unlimited}, Parse(head))
}

func TestLoadSidecarErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadSidecar(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("bones:\n  arm: {type: hinge}\n"), 0644))
	_, err = LoadSidecar(bad)
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
