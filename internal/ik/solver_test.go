package ik

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

func newBone(name string, pos math.Vec3) *skeleton.Node {
	b := skeleton.NewNode(name)
	b.IsBone = true
	b.Position = pos
	return b
}

// arm builds Armature -> shoulder -> elbow -> wrist with the wrist at the origin.
func arm() (root *skeleton.Node, bones []*skeleton.Node) {
	root = skeleton.NewNode("Armature")
	shoulder := newBone("shoulder", math.Vec3{X: 3, Y: -2})
	elbow := newBone("elbow", math.Vec3{X: -1.5, Y: 1.5})
	wrist := newBone("wrist", math.Vec3{X: -1.5, Y: 0.5})
	root.Add(shoulder)
	shoulder.Add(elbow)
	elbow.Add(wrist)
	root.UpdateMatrixWorld()
	return root, []*skeleton.Node{shoulder, elbow, wrist}
}

func assertNonIncreasing(t *testing.T, res Result) {
	t.Helper()
	prev := res.Initial
	for i, d := range res.Distances {
		assert.LessOrEqual(t, d, prev+1e-4, "pass %d", i)
		prev = d
	}
}

func TestSolveArm(t *testing.T) {
	_, bones := arm()
	wrist := bones[2]
	require.InDelta(t, 0, wrist.WorldPosition().Length(), 1e-6)

	target := math.Vec3{X: 1, Y: 1}
	chain := BuildChain(bones, wrist)
	require.Len(t, chain, 3)

	res := DefaultSolver().Solve(chain, target)
	assert.Equal(t, DefaultIterations, res.Passes)
	assert.Len(t, res.Distances, DefaultIterations)
	assert.InDelta(t, 1.41421, res.Initial, 1e-4)
	assert.Less(t, res.Final, float32(0.1))
	assert.True(t, res.Converged)
	assertNonIncreasing(t, res)

	before := wrist.WorldPosition()
	again := DefaultSolver().Solve(BuildChain(bones, wrist), target)
	moved := wrist.WorldPosition().Distance(before)
	assert.Less(t, moved, float32(0.01))
	assert.Less(t, again.Final, float32(0.1))
}

func TestSolveOrientsLastBone(t *testing.T) {
	_, bones := arm()
	wrist := bones[2]
	target := math.Vec3{X: 1, Y: 1}

	DefaultSolver().Solve(BuildChain(bones, wrist), target)

	dir := target.Sub(wrist.WorldPosition()).Normalize()
	forward := wrist.WorldQuaternion().Rotate(math.Vec3{Y: 1})
	assert.InDelta(t, 1, forward.Dot(dir), 1e-3)
}

func TestSolveCustomForward(t *testing.T) {
	_, bones := arm()
	wrist := bones[2]
	target := math.Vec3{X: 1, Y: 1}

	s := DefaultSolver()
	s.Forward = math.Vec3{Z: 1}
	s.Solve(BuildChain(bones, wrist), target)

	dir := target.Sub(wrist.WorldPosition()).Normalize()
	forward := wrist.WorldQuaternion().Rotate(math.Vec3{Z: 1})
	assert.InDelta(t, 1, forward.Dot(dir), 1e-3)
}

func TestSolveSkipsLockedBones(t *testing.T) {
	_, bones := arm()
	elbow := bones[1]
	elbow.SetRotation(math.Euler{Z: 0.05})
	lockedRot := elbow.Rotation()
	lockedQuat := elbow.Quaternion()

	s := DefaultSolver()
	s.Locked = func(b *skeleton.Node) bool { return b == elbow }

	for _, target := range []math.Vec3{{X: 1, Y: 1}, {X: -2, Y: 0.5, Z: 1}, {X: 4, Y: 2}} {
		s.Solve(BuildChain(bones, bones[2]), target)
		assert.Equal(t, lockedRot, elbow.Rotation())
		assert.Equal(t, lockedQuat, elbow.Quaternion())
	}
}

func TestSolveLockedTipKeepsOrientation(t *testing.T) {
	_, bones := arm()
	wrist := bones[2]
	s := DefaultSolver()
	s.Locked = func(b *skeleton.Node) bool { return b == wrist }

	s.Solve(BuildChain(bones, wrist), math.Vec3{X: 1, Y: 1})
	assert.Equal(t, math.QuatIdentity(), wrist.Quaternion())
}

func TestSolveRunsEnforceStep(t *testing.T) {
	_, bones := arm()
	shoulder := bones[0]

	calls := 0
	s := DefaultSolver()
	s.Enforce = func(b *skeleton.Node) {
		calls++
		if b == shoulder {
			b.SetRotation(math.Euler{})
		}
	}

	s.Solve(BuildChain(bones, bones[2]), math.Vec3{X: 1, Y: 1})
	assert.Greater(t, calls, 0)
	assert.Equal(t, math.Euler{}, shoulder.Rotation())
}

func TestSolveEmptyAndSingle(t *testing.T) {
	s := DefaultSolver()
	assert.Equal(t, Result{}, s.Solve(nil, math.Vec3{X: 1}))

	lone := newBone("lone", math.Vec3{X: 1})
	lone.UpdateMatrixWorld()
	chain := BuildChain(nil, lone)
	require.Equal(t, []*skeleton.Node{lone}, chain)

	res := s.Solve(chain, math.Vec3{X: 5})
	assert.Equal(t, res.Initial, res.Final)
	assert.Equal(t, math.QuatIdentity(), lone.Quaternion())
}

func TestSolveDegenerateTarget(t *testing.T) {
	_, bones := arm()
	chain := BuildChain(bones, bones[2])

	// A target on a joint gives zero-length directions; nothing may blow up.
	res := DefaultSolver().Solve(chain, bones[0].WorldPosition())
	for _, b := range bones {
		q := b.Quaternion()
		assert.False(t, q.X != q.X || q.W != q.W, "NaN rotation on %s", b.Name)
	}
	assert.False(t, res.Final != res.Final)
}

func randomAxis(rng *rand.Rand) math.Vec3 {
	for {
		v := math.Vec3{X: rng.Float32()*2 - 1, Y: rng.Float32()*2 - 1, Z: rng.Float32()*2 - 1}
		if l := v.Length(); l > 0.01 && l <= 1 {
			return v.Normalize()
		}
	}
}

func TestSolveConvergesOnRandomChains(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const trials = 100
	solved, total := 0, 0

	for n := 2; n <= 6; n++ {
		for trial := 0; trial < trials; trial++ {
			bones := []*skeleton.Node{newBone("b0", math.Vec3{})}
			for i := 1; i < n; i++ {
				b := newBone("b", math.Vec3{X: rng.Float32()*0.6 - 0.3, Y: 1, Z: rng.Float32()*0.6 - 0.3})
				bones[i-1].Add(b)
				bones = append(bones, b)
			}

			// pose the chain to find a reachable target, then return to rest
			for _, b := range bones {
				b.SetQuaternion(math.QuatFromAxisAngle(randomAxis(rng), rng.Float32()*0.3))
			}
			bones[0].UpdateMatrixWorld()
			target := bones[n-1].WorldPosition()
			for _, b := range bones {
				b.SetQuaternion(math.QuatIdentity())
			}
			bones[0].UpdateMatrixWorld()

			res := DefaultSolver().Solve(BuildChain(bones, bones[n-1]), target)
			assertNonIncreasing(t, res)
			if res.Final < DefaultTolerance {
				solved++
			}
			total++
		}
	}

	rate := float64(solved) / float64(total)
	assert.GreaterOrEqual(t, rate, 0.9, "converged %d of %d", solved, total)
}
