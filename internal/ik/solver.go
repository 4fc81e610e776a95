// Package ik implements Cyclic Coordinate Descent over skeleton bone chains.
package ik

import (
	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/rigscope/internal/logger"
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

// Solver defaults.
const (
	DefaultIterations = 10
	DefaultMinAngle   = 0.01
	DefaultMaxStep    = 0.1
	DefaultTolerance  = 0.1
)

// minAxisLength below which a rotation axis is treated as undefined.
const minAxisLength = 1e-6

// Solver runs CCD passes over a chain. The zero value is not usable; start
// from DefaultSolver.
type Solver struct {
	// Iterations is the number of tip-to-root passes.
	Iterations int
	// MinAngle skips bones already aligned within this many radians.
	MinAngle float32
	// MaxStep caps the rotation applied to one bone in one step.
	MaxStep float32
	// Tolerance ends a pass once the tip is this close to the target.
	Tolerance float32
	// Forward is the local axis the last bone is turned to face the target with.
	Forward math.Vec3

	// Locked reports bones that must not be rotated. May be nil.
	Locked func(*skeleton.Node) bool
	// Enforce runs on a bone after it is rotated and before matrices are
	// propagated. May be nil.
	Enforce func(*skeleton.Node)
}

// DefaultSolver returns a solver with the stock settings.
func DefaultSolver() *Solver {
	return &Solver{
		Iterations: DefaultIterations,
		MinAngle:   DefaultMinAngle,
		MaxStep:    DefaultMaxStep,
		Tolerance:  DefaultTolerance,
		Forward:    math.Vec3{Y: 1},
	}
}

// Result describes one solve.
type Result struct {
	Passes    int       `json:"passes"`
	Distances []float32 `json:"distances"` // tip distance after each pass
	Initial   float32   `json:"initial"`
	Final     float32   `json:"final"`
	Converged bool      `json:"converged"`
}

// Solve moves the chain tip toward target by rotating unlocked bones.
// The chain is ordered root first. An empty chain is a no-op.
func (s *Solver) Solve(chain []*skeleton.Node, target math.Vec3) Result {
	if len(chain) == 0 {
		return Result{}
	}
	root := chain[0]
	tip := chain[len(chain)-1]
	root.UpdateWorldMatrix()

	res := Result{Initial: tip.WorldPosition().Distance(target)}
	for pass := 0; pass < s.Iterations; pass++ {
		s.pass(chain, target)
		res.Passes++
		res.Distances = append(res.Distances, tip.WorldPosition().Distance(target))
	}

	s.orientLast(chain, target)

	res.Final = tip.WorldPosition().Distance(target)
	res.Converged = res.Final < s.Tolerance
	if ce := logger.Log.Check(zap.DebugLevel, "ik solve"); ce != nil {
		ce.Write(
			zap.String("tip", tip.Name),
			zap.Int("chain", len(chain)),
			zap.Float32("initial", res.Initial),
			zap.Float32("final", res.Final),
		)
	}
	return res
}

func (s *Solver) pass(chain []*skeleton.Node, target math.Vec3) {
	root := chain[0]
	tip := chain[len(chain)-1]

	for i := len(chain) - 1; i >= 0; i-- {
		bone := chain[i]
		if s.locked(bone) {
			continue
		}

		bonePos := bone.WorldPosition()
		toTip := tip.WorldPosition().Sub(bonePos).Normalize()
		toTarget := target.Sub(bonePos).Normalize()

		angle := math32.Acos(math.Clamp(toTip.Dot(toTarget), -1, 1))
		if angle < s.MinAngle {
			continue
		}
		if angle > s.MaxStep {
			angle = s.MaxStep
		}

		axis := toTip.Cross(toTarget)
		if axis.Length() < minAxisLength {
			continue
		}
		axis = axis.Normalize()

		localAxis := bone.WorldQuaternion().Inverse().Rotate(axis).Normalize()
		bone.RotateOnAxis(localAxis, angle)
		if s.Enforce != nil {
			s.Enforce(bone)
		}
		root.UpdateMatrixWorld()

		if tip.WorldPosition().Distance(target) < s.Tolerance {
			return
		}
	}
}

// orientLast turns the last bone so its forward axis faces the target,
// computed in the space of the bone before it.
func (s *Solver) orientLast(chain []*skeleton.Node, target math.Vec3) {
	if len(chain) < 2 {
		return
	}
	last := chain[len(chain)-1]
	if s.locked(last) {
		return
	}
	dir := target.Sub(last.WorldPosition()).Normalize()
	if dir.Length() == 0 {
		return
	}
	local := chain[len(chain)-2].WorldQuaternion().Inverse().Rotate(dir).Normalize()
	last.SetQuaternion(math.QuatFromUnitVectors(s.Forward.Normalize(), local))
	if s.Enforce != nil {
		s.Enforce(last)
	}
	chain[0].UpdateMatrixWorld()
}

func (s *Solver) locked(b *skeleton.Node) bool {
	return s.Locked != nil && s.Locked(b)
}
