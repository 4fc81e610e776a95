// Package constraint parses, binds and enforces joint constraints on skeleton bones.
//
// A bone's constraint is one of *Fixed, *Hinge, *LimitRotation or *Spring,
// stored in UserData.Constraint; nil means unconstrained. Enforcement is an
// explicit step run before world matrices are recomputed.
package constraint

import (
	gomath "math"
	"time"

	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

// Kind names, as used in specs and logs.
const (
	KindNone          = "none"
	KindFixed         = "fixed"
	KindHinge         = "hinge"
	KindLimitRotation = "limitRotation"
	KindSpring        = "spring"
)

// Range is an inclusive angle interval in radians.
type Range struct {
	Min float32 `json:"min" yaml:"min"`
	Max float32 `json:"max" yaml:"max"`
}

// Unlimited leaves an axis free.
var Unlimited = Range{Min: -gomath.MaxFloat32, Max: gomath.MaxFloat32}

// Clamp limits v to the range.
func (r Range) Clamp(v float32) float32 {
	return math.Clamp(v, r.Min, r.Max)
}

// Fixed pins a bone. With a preserved pose the bone holds that world transform,
// otherwise it holds its rest rotation.
type Fixed struct {
	Preserved bool
	WorldPose math.Mat4
}

// Kind implements skeleton.Constraint.
func (*Fixed) Kind() string { return KindFixed }

// Hinge allows rotation about one local axis within [Min, Max].
// The other two axes are held at the rest rotation.
type Hinge struct {
	Axis     math.Axis
	Min, Max float32
}

// Kind implements skeleton.Constraint.
func (*Hinge) Kind() string { return KindHinge }

// LimitRotation clamps each local Euler axis independently.
type LimitRotation struct {
	X, Y, Z Range
}

// Kind implements skeleton.Constraint.
func (*LimitRotation) Kind() string { return KindLimitRotation }

// Spring pulls the rotation toward RestRotation with a damped spring.
type Spring struct {
	Stiffness    float32
	Damping      float32
	RestRotation math.Euler
	Velocity     math.Euler
	LastTime     time.Time

	// restFromBone takes the rest rotation from the bone when applied.
	restFromBone bool
	primed       bool
}

// Kind implements skeleton.Constraint.
func (*Spring) Kind() string { return KindSpring }

// Primed reports whether the spring has taken its first time sample.
func (s *Spring) Primed() bool { return s.primed }

// Reset clears the integration state so the next call only samples time.
func (s *Spring) Reset() {
	s.primed = false
	s.Velocity = math.Euler{}
	s.LastTime = time.Time{}
}

// KindOf returns the kind name of c, or KindNone for nil.
func KindOf(c skeleton.Constraint) string {
	if c == nil {
		return KindNone
	}
	return c.Kind()
}
