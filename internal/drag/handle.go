// Package drag implements the control handle and its pointer-driven drag state machine.
package drag

import (
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

// DefaultRadius is the pick radius of a handle in world units.
const DefaultRadius = 0.08

// Tint is the display state of a handle.
type Tint int

const (
	TintNormal Tint = iota
	TintHover
	TintActive
)

func (t Tint) String() string {
	switch t {
	case TintHover:
		return "hover"
	case TintActive:
		return "active"
	default:
		return "normal"
	}
}

// Color returns the RGB color the overlay draws the handle with.
func (t Tint) Color() [3]float32 {
	switch t {
	case TintHover:
		return [3]float32{1.0, 0.85, 0.2}
	case TintActive:
		return [3]float32{1.0, 0.3, 0.2}
	default:
		return [3]float32{0.2, 0.8, 1.0}
	}
}

// Handle is the draggable end-effector marker of a rig.
type Handle struct {
	Position math.Vec3
	Bone     *skeleton.Node // controlled bone, may be nil
	Radius   float32
	Tint     Tint
	Active   bool
}

// NewHandle creates a handle at the bone's current world position.
func NewHandle(bone *skeleton.Node, radius float32) *Handle {
	if radius <= 0 {
		radius = DefaultRadius
	}
	h := &Handle{Bone: bone, Radius: radius}
	if bone != nil {
		h.Position = bone.WorldPosition()
	}
	return h
}

// BoneName returns the controlled bone's name or an empty string.
func (h *Handle) BoneName() string {
	if h == nil || h.Bone == nil {
		return ""
	}
	return h.Bone.Name
}
