// Package camera provides the orbit camera used by the rig viewer.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/rigscope/internal/engine/picking"
	"github.com/Faultbox/rigscope/pkg/math"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3

	// Spherical coordinates
	Distance  float32 // Distance from center
	RotationX float32 // Pitch (vertical angle, radians)
	RotationY float32 // Yaw (horizontal angle, radians)

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	// Projection
	FOV         float32 // radians
	Near, Far   float32
	ViewportW   float32
	ViewportH   float32
	orbitPaused bool
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        5.0,
		RotationX:       0.3,
		RotationY:       0.0,
		MinDistance:     0.1,
		MaxDistance:     500.0,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FOV:             math32.Pi / 4,
		Near:            0.01,
		Far:             1000,
		ViewportW:       1280,
		ViewportH:       720,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	sx, cx := math32.Sincos(c.RotationX)
	sy, cy := math32.Sincos(c.RotationY)
	return c.Center.Add(math.Vec3{
		X: c.Distance * cx * sy,
		Y: c.Distance * sx,
		Z: c.Distance * cx * cy,
	})
}

// ViewDirection returns the unit vector the camera looks along.
func (c *OrbitCamera) ViewDirection() math.Vec3 {
	return c.Center.Sub(c.Position()).Normalize()
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	up := math.Vec3{X: 0, Y: 1, Z: 0}
	return math.LookAt(c.Position(), c.Center, up)
}

// ProjectionMatrix returns the perspective projection for the current viewport.
func (c *OrbitCamera) ProjectionMatrix() math.Mat4 {
	aspect := float32(1)
	if c.ViewportH > 0 {
		aspect = c.ViewportW / c.ViewportH
	}
	return math.Perspective(c.FOV, aspect, c.Near, c.Far)
}

// ViewProjection returns projection * view.
func (c *OrbitCamera) ViewProjection() math.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

// SetViewport updates the viewport size used for projection and picking.
func (c *OrbitCamera) SetViewport(w, h int) {
	c.ViewportW = float32(w)
	c.ViewportH = float32(h)
}

// ScreenRay converts pixel coordinates to a world-space ray.
func (c *OrbitCamera) ScreenRay(x, y float32) picking.Ray {
	return picking.ScreenToRay(x, y, c.ViewportW, c.ViewportH, c.ViewProjection().Inverse())
}

// SetOrbitEnabled suspends or resumes orbit drags. Zoom stays available.
func (c *OrbitCamera) SetOrbitEnabled(enabled bool) {
	c.orbitPaused = !enabled
}

// OrbitEnabled reports whether orbit drags are applied.
func (c *OrbitCamera) OrbitEnabled() bool {
	return !c.orbitPaused
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	if c.orbitPaused {
		return
	}
	c.RotationY -= deltaX * c.DragSensitivity
	c.RotationX += deltaY * c.DragSensitivity

	// Clamp pitch
	c.RotationX = math.Clamp(c.RotationX, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = math.Clamp(c.Distance, c.MinDistance, c.MaxDistance)
}

// FitToBounds adjusts camera to view the given bounding box.
func (c *OrbitCamera) FitToBounds(box picking.AABB) {
	c.Center = box.Center()

	size := box.Size()
	maxSize := math32.Max(size.X, math32.Max(size.Y, size.Z))

	// Distance at which the box fills the vertical field of view
	c.Distance = maxSize / (2 * math32.Tan(c.FOV/2)) * 1.5
	if c.Distance < c.MinDistance*2 {
		c.Distance = c.MinDistance * 2
	}
	if c.Distance > c.MaxDistance {
		c.Distance = c.MaxDistance
	}

	c.RotationX = 0.3
	c.RotationY = 0.0
}
