package debug

import (
	"github.com/Faultbox/rigscope/internal/engine/picking"
	"github.com/Faultbox/rigscope/internal/rig"
	"github.com/Faultbox/rigscope/pkg/math"
)

// BBoxWireframeVertexCount is the number of vertices for a bbox wireframe (12 edges × 2).
const BBoxWireframeVertexCount = 24

// DefaultBBoxPadding is the default padding around rig bounds.
const DefaultBBoxPadding = 0.05

// GenerateBBoxWireframe creates line vertices for a wireframe bounding box,
// expanded by padding on all sides.
func GenerateBBoxWireframe(box picking.AABB, padding float32, color [3]float32) []LineVertex {
	pad := math.Vec3{X: padding, Y: padding, Z: padding}
	lo := box.Min.Sub(pad)
	hi := box.Max.Add(pad)

	corner := func(x, y, z bool) math.Vec3 {
		c := lo
		if x {
			c.X = hi.X
		}
		if y {
			c.Y = hi.Y
		}
		if z {
			c.Z = hi.Z
		}
		return c
	}

	vertices := make([]LineVertex, 0, BBoxWireframeVertexCount)
	for _, top := range []bool{false, true} {
		// Bottom then top face (4 edges each)
		vertices = line(vertices, corner(false, top, false), corner(true, top, false), color)
		vertices = line(vertices, corner(true, top, false), corner(true, top, true), color)
		vertices = line(vertices, corner(true, top, true), corner(false, top, true), color)
		vertices = line(vertices, corner(false, top, true), corner(false, top, false), color)
	}
	// Vertical edges (4 edges)
	for _, xz := range [][2]bool{{false, false}, {true, false}, {true, true}, {false, true}} {
		vertices = line(vertices, corner(xz[0], false, xz[1]), corner(xz[0], true, xz[1]), color)
	}
	return vertices
}

// RigBounds returns the box around every bone's world position.
func RigBounds(r *rig.Rig) picking.AABB {
	points := make([]math.Vec3, 0, len(r.Bones()))
	for _, b := range r.Bones() {
		points = append(points, b.WorldPosition())
	}
	return picking.BoundsOf(points)
}
