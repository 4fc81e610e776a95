// Package picking provides ray casting utilities for handle picking and drag planes.
package picking

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/rigscope/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// Plane is the set of points p with Normal·p + Constant = 0.
type Plane struct {
	Normal   math.Vec3
	Constant float32
}

// PlaneFromNormalAndPoint builds a plane through point facing normal.
func PlaneFromNormalAndPoint(normal, point math.Vec3) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, Constant: -n.Dot(point)}
}

// DistanceToPoint returns the signed distance from the plane to p.
func (p Plane) DistanceToPoint(pt math.Vec3) float32 {
	return p.Normal.Dot(pt) + p.Constant
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates, viewportW/H are viewport dimensions.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj math.Mat4) Ray {
	// Convert screen coords to normalized device coords (-1 to 1)
	ndcX := 2.0*screenX/viewportW - 1.0
	ndcY := 1.0 - 2.0*screenY/viewportH // Flip Y

	near := unproject(invViewProj, math.Vec4{ndcX, ndcY, -1.0, 1.0})
	far := unproject(invViewProj, math.Vec4{ndcX, ndcY, 1.0, 1.0})

	return Ray{Origin: near, Direction: far.Sub(near).Normalize()}
}

func unproject(invViewProj math.Mat4, ndc math.Vec4) math.Vec3 {
	w := invViewProj.MulVec4(ndc)
	// Perspective divide
	if w[3] != 0 {
		return math.Vec3{X: w[0] / w[3], Y: w[1] / w[3], Z: w[2] / w[3]}
	}
	return math.Vec3{X: w[0], Y: w[1], Z: w[2]}
}

// IntersectPlane intersects the ray with a plane.
// Returns the intersection point and whether it lies in front of the origin.
func (r Ray) IntersectPlane(p Plane) (math.Vec3, bool) {
	denom := p.Normal.Dot(r.Direction)
	if math32.Abs(denom) < 1e-6 {
		// Parallel: only a hit when the origin is already on the plane
		if math32.Abs(p.DistanceToPoint(r.Origin)) < 1e-6 {
			return r.Origin, true
		}
		return math.Vec3{}, false
	}

	t := -(r.Origin.Dot(p.Normal) + p.Constant) / denom
	if t < 0 {
		return math.Vec3{}, false // Intersection behind ray origin
	}
	return r.At(t), true
}

// IntersectSphere tests the ray against a sphere.
// Returns the distance to the nearest hit in front of the origin.
func (r Ray) IntersectSphere(center math.Vec3, radius float32) (t float32, hit bool) {
	oc := center.Sub(r.Origin)
	tca := oc.Dot(r.Direction)
	d2 := oc.LengthSquared() - tca*tca
	r2 := radius * radius
	if d2 > r2 {
		return 0, false
	}

	thc := math32.Sqrt(r2 - d2)
	t0 := tca - thc
	t1 := tca + thc
	if t1 < 0 {
		return 0, false
	}
	// Origin inside the sphere
	if t0 < 0 {
		return t1, true
	}
	return t0, true
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box AABB) (t float32, hit bool) {
	tmin := float32(-math32.MaxFloat32)
	tmax := float32(math32.MaxFloat32)

	origin := r.Origin.Array()
	dir := r.Direction.Array()
	lo := box.Min.Array()
	hi := box.Max.Array()

	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if origin[i] < lo[i] || origin[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - origin[i]) / dir[i]
		t2 := (hi[i] - origin[i]) / dir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	// Check if intersection is valid
	if tmax < tmin || tmax < 0 {
		return 0, false
	}

	// Return entry point, or exit point if starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// BoundsOf returns the box enclosing all points. An empty slice yields a zero box.
func BoundsOf(points []math.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	box := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box.Min = math.Vec3{X: math32.Min(box.Min.X, p.X), Y: math32.Min(box.Min.Y, p.Y), Z: math32.Min(box.Min.Z, p.Z)}
		box.Max = math.Vec3{X: math32.Max(box.Max.X, p.X), Y: math32.Max(box.Max.Y, p.Y), Z: math32.Max(box.Max.Z, p.Z)}
	}
	return box
}

// Center returns the midpoint of the box.
func (b AABB) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent of the box along each axis.
func (b AABB) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}
