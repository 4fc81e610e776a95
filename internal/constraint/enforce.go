package constraint

import (
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

// maxSpringStep caps the spring integration step in seconds.
const maxSpringStep = 0.1

// ApplyOptions control how a descriptor is bound.
type ApplyOptions struct {
	// PreservePose keeps the bone where it is: a Fixed constraint captures the
	// current world transform and a Spring rests at the current rotation.
	PreservePose bool
}

// Apply binds c to bone. A nil bone is ignored; a nil c clears the binding.
// Any spring integration state is reset.
func Apply(bone *skeleton.Node, c skeleton.Constraint, opts ApplyOptions) {
	if bone == nil {
		return
	}
	switch c := c.(type) {
	case *Fixed:
		if opts.PreservePose {
			c.Preserved = true
			c.WorldPose = bone.ComputeWorld()
		}
	case *Spring:
		c.Reset()
		if opts.PreservePose {
			c.RestRotation = bone.Rotation()
			c.restFromBone = false
		} else if c.restFromBone {
			c.RestRotation = bone.UserData.InitialRotation
		}
	}
	bone.UserData.Constraint = c
}

// Enforce applies the bone's bound constraint to its local transform.
// A nil bone or missing constraint is a no-op.
func Enforce(bone *skeleton.Node, now time.Time) {
	if bone == nil {
		return
	}
	switch c := bone.UserData.Constraint.(type) {
	case *Fixed:
		if c == nil {
			return
		}
		enforceFixed(bone, c)
	case *Hinge:
		if c == nil {
			return
		}
		r := bone.UserData.InitialRotation
		free := math.Clamp(bone.Rotation().Get(c.Axis), c.Min, c.Max)
		bone.SetRotation(r.With(c.Axis, free))
	case *LimitRotation:
		if c == nil {
			return
		}
		r := bone.Rotation()
		bone.SetRotation(math.Euler{X: c.X.Clamp(r.X), Y: c.Y.Clamp(r.Y), Z: c.Z.Clamp(r.Z)})
	case *Spring:
		if c == nil {
			return
		}
		enforceSpring(bone, c, now)
	}
}

func enforceFixed(bone *skeleton.Node, c *Fixed) {
	if !c.Preserved {
		bone.SetRotation(bone.UserData.InitialRotation)
		return
	}
	parentWorld := math.Identity()
	if bone.Parent != nil {
		parentWorld = bone.Parent.ComputeWorld()
	}
	local := parentWorld.Inverse().Mul(c.WorldPose)
	pos, rot, _ := local.Decompose()
	bone.Position = pos
	bone.SetQuaternion(rot)
}

func enforceSpring(bone *skeleton.Node, s *Spring, now time.Time) {
	if !s.primed {
		s.primed = true
		s.LastTime = now
		return
	}
	dt := math.Clamp(float32(now.Sub(s.LastTime).Seconds()), 0, maxSpringStep)
	s.LastTime = now

	rot := bone.Rotation()
	force := s.RestRotation.Sub(rot).Scale(s.Stiffness)
	s.Velocity = s.Velocity.Add(force.Scale(dt))
	s.Velocity = s.Velocity.Scale(1 - s.Damping*dt*0.1)
	bone.SetRotation(rot.Add(s.Velocity.Scale(dt)))
}

// EnforceAll enforces every constrained bone, in slice order.
func (e *Engine) EnforceAll(bones []*skeleton.Node, now time.Time) {
	n := 0
	for _, b := range bones {
		if b == nil || b.UserData.Constraint == nil {
			continue
		}
		Enforce(b, now)
		n++
	}
	if ce := e.log.Check(zap.DebugLevel, "constraints enforced"); ce != nil {
		ce.Write(zap.Int("count", n))
	}
}

// Enforcer returns a per-bone enforcement step bound to now, for callers
// that recompute matrices themselves (the IK solver).
func (e *Engine) Enforcer(now time.Time) func(*skeleton.Node) {
	return func(b *skeleton.Node) {
		Enforce(b, now)
	}
}
