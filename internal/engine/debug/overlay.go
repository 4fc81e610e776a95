// Package debug generates line geometry for the rig overlay.
package debug

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/rigscope/internal/constraint"
	"github.com/Faultbox/rigscope/internal/drag"
	"github.com/Faultbox/rigscope/internal/rig"
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

// LineVertex is one line endpoint in [x, y, z, r, g, b] layout.
type LineVertex struct {
	X, Y, Z float32 // Position
	R, G, B float32 // Color
}

// LineVertexFloats is the number of float32s per LineVertex.
const LineVertexFloats = 6

// Overlay colors.
var (
	ColorGrid   = [3]float32{0.3, 0.3, 0.35}
	ColorBone   = [3]float32{0.85, 0.85, 0.85}
	ColorLocked = [3]float32{0.9, 0.25, 0.25}
	ColorRoot   = [3]float32{0.3, 0.9, 0.4}
	ColorJoint  = [3]float32{0.6, 0.6, 1.0}
	ColorLabel  = [3]float32{0.75, 0.75, 0.55}
)

// constraintColors tints a bone segment by the child's constraint.
var constraintColors = map[string][3]float32{
	constraint.KindFixed:         {0.55, 0.55, 0.55},
	constraint.KindHinge:         {1.0, 0.6, 0.1},
	constraint.KindLimitRotation: {0.9, 0.9, 0.2},
	constraint.KindSpring:        {0.3, 0.8, 0.9},
}

// JointSize is the half-extent of a joint cross in world units.
const JointSize = 0.04

// handleSegments is the number of line segments per handle circle.
const handleSegments = 24

func line(vertices []LineVertex, a, b math.Vec3, color [3]float32) []LineVertex {
	return append(vertices,
		LineVertex{a.X, a.Y, a.Z, color[0], color[1], color[2]},
		LineVertex{b.X, b.Y, b.Z, color[0], color[1], color[2]},
	)
}

// GenerateGridLines generates a square ground grid centered on the origin.
func GenerateGridLines(halfCells int, cellSize, height float32) []LineVertex {
	if halfCells <= 0 || cellSize <= 0 {
		return nil
	}
	extent := float32(halfCells) * cellSize

	var vertices []LineVertex
	for i := -halfCells; i <= halfCells; i++ {
		p := float32(i) * cellSize
		// Lines along Z, then along X
		vertices = line(vertices, math.Vec3{X: p, Y: height, Z: -extent}, math.Vec3{X: p, Y: height, Z: extent}, ColorGrid)
		vertices = line(vertices, math.Vec3{X: -extent, Y: height, Z: p}, math.Vec3{X: extent, Y: height, Z: p}, ColorGrid)
	}
	return vertices
}

// boneColor picks the segment color for the child bone.
func boneColor(r *rig.Rig, b *skeleton.Node) [3]float32 {
	if r.Store().IsLocked(b) {
		return ColorLocked
	}
	if c, ok := constraintColors[constraint.KindOf(b.UserData.Constraint)]; ok {
		return c
	}
	return ColorBone
}

// GenerateRigLines builds segments, joint crosses and the handle for a rig.
// An empty or hidden rig yields no vertices.
func GenerateRigLines(r *rig.Rig) []LineVertex {
	if r == nil || !r.Display() {
		return nil
	}

	var vertices []LineVertex
	for _, s := range r.Segments() {
		from, to := s.Endpoints()
		vertices = line(vertices, from, to, boneColor(r, s.Child))
	}

	for _, j := range r.Joints() {
		color := ColorJoint
		size := float32(JointSize)
		if j.Root {
			color = ColorRoot
			size *= 2
		}
		vertices = appendCross(vertices, j.Bone.WorldPosition(), size, color)
	}

	if h := r.Handle(); h != nil {
		vertices = appendHandle(vertices, h)
	}
	return vertices
}

func appendCross(vertices []LineVertex, p math.Vec3, size float32, color [3]float32) []LineVertex {
	for _, axis := range []math.Vec3{{X: size}, {Y: size}, {Z: size}} {
		vertices = line(vertices, p.Sub(axis), p.Add(axis), color)
	}
	return vertices
}

// appendHandle draws the handle as three orthogonal circles.
func appendHandle(vertices []LineVertex, h *drag.Handle) []LineVertex {
	color := h.Tint.Color()
	step := 2 * math32.Pi / handleSegments
	for plane := 0; plane < 3; plane++ {
		for i := 0; i < handleSegments; i++ {
			a := circlePoint(plane, float32(i)*step, h.Radius)
			b := circlePoint(plane, float32(i+1)*step, h.Radius)
			vertices = line(vertices, h.Position.Add(a), h.Position.Add(b), color)
		}
	}
	return vertices
}

func circlePoint(plane int, angle, radius float32) math.Vec3 {
	s, c := math32.Sincos(angle)
	s *= radius
	c *= radius
	switch plane {
	case 0:
		return math.Vec3{X: c, Y: s}
	case 1:
		return math.Vec3{Y: c, Z: s}
	default:
		return math.Vec3{X: c, Z: s}
	}
}

// Label marker geometry: a leader from the joint to the anchor, then a
// baseline whose length follows the label text.
var (
	LabelOffset    = math.Vec3{X: 0.05, Y: 0.08}
	LabelCharWidth = float32(0.02)
)

// GenerateLabelLines draws one marker per joint label. Empty labels are skipped.
func GenerateLabelLines(r *rig.Rig) []LineVertex {
	if r == nil || !r.Display() {
		return nil
	}
	var vertices []LineVertex
	for _, l := range r.Labels() {
		if l.Text == "" || l.Bone == nil {
			continue
		}
		p := l.Bone.WorldPosition()
		anchor := p.Add(LabelOffset)
		end := anchor.Add(math.Vec3{X: float32(len([]rune(l.Text))) * LabelCharWidth})
		vertices = line(vertices, p, anchor, ColorLabel)
		vertices = line(vertices, anchor, end, ColorLabel)
	}
	return vertices
}

// Flatten packs vertices for upload to a vertex buffer.
func Flatten(vertices []LineVertex) []float32 {
	out := make([]float32, 0, len(vertices)*LineVertexFloats)
	for _, v := range vertices {
		out = append(out, v.X, v.Y, v.Z, v.R, v.G, v.B)
	}
	return out
}
