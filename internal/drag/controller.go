package drag

import (
	"go.uber.org/zap"

	"github.com/Faultbox/rigscope/internal/engine/picking"
	"github.com/Faultbox/rigscope/internal/logger"
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

// State is the drag state machine state.
type State int

const (
	StateIdle State = iota
	StateHovering
	StateDragging
)

func (s State) String() string {
	switch s {
	case StateHovering:
		return "hovering"
	case StateDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// Button identifies a pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

// Pointer is a pointer event in viewport pixel coordinates.
type Pointer struct {
	X, Y   float32
	Button Button
}

// Camera builds picking rays and reports the view axis.
type Camera interface {
	ScreenRay(x, y float32) picking.Ray
	ViewDirection() math.Vec3
}

// Orbit is the camera orbit control suspended while dragging.
type Orbit interface {
	SetOrbitEnabled(enabled bool)
	OrbitEnabled() bool
}

// Target receives drag targets for the controlled bone.
type Target interface {
	DragTo(bone *skeleton.Node, target math.Vec3)
}

// Controller drives a Handle from pointer events.
type Controller struct {
	handle *Handle
	target Target
	camera Camera
	orbit  Orbit

	display bool
	state   State
	hovered bool

	plane          picking.Plane
	offset         math.Vec3
	orbitSuspended bool
}

// NewController creates a controller for handle. target may be nil.
func NewController(handle *Handle, target Target) *Controller {
	return &Controller{
		handle:  handle,
		target:  target,
		display: true,
	}
}

// Attach sets the camera used for picking and the orbit control to suspend.
// Either may be nil; without a camera pointer events are ignored.
func (c *Controller) Attach(cam Camera, orbit Orbit) {
	c.camera = cam
	c.orbit = orbit
}

// Handle returns the controlled handle.
func (c *Controller) Handle() *Handle { return c.handle }

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool { return c.state == StateDragging }

// Display reports whether the rig display is enabled.
func (c *Controller) Display() bool { return c.display }

// SetDisplay enables or disables the rig display. Disabling ends a drag.
func (c *Controller) SetDisplay(enabled bool) {
	c.display = enabled
	if !enabled && c.state == StateDragging {
		c.endDrag()
	}
}

// PointerMove updates hover state or moves the handle while dragging.
func (c *Controller) PointerMove(p Pointer) {
	if c.handle == nil || c.camera == nil {
		return
	}
	ray := c.camera.ScreenRay(p.X, p.Y)

	if c.state != StateDragging {
		c.hovered = c.hit(ray)
		if c.hovered {
			c.state = StateHovering
			c.handle.Tint = TintHover
		} else {
			c.state = StateIdle
			c.handle.Tint = TintNormal
		}
		return
	}

	point, ok := ray.IntersectPlane(c.plane)
	if !ok {
		return
	}
	c.handle.Position = point.Add(c.offset)
	if c.handle.Bone != nil && c.target != nil {
		c.target.DragTo(c.handle.Bone, c.handle.Position)
	}
}

// PointerDown starts a drag when the primary button hits the handle.
// Returns true when the event was consumed.
func (c *Controller) PointerDown(p Pointer) bool {
	if c.handle == nil || c.camera == nil {
		return false
	}
	if p.Button != ButtonPrimary || !c.display || c.state == StateDragging {
		return false
	}

	ray := c.camera.ScreenRay(p.X, p.Y)
	if !c.hit(ray) {
		return false
	}

	c.plane = picking.PlaneFromNormalAndPoint(c.camera.ViewDirection(), c.handle.Position)
	point, ok := ray.IntersectPlane(c.plane)
	if !ok {
		return false
	}
	c.offset = c.handle.Position.Sub(point)

	c.state = StateDragging
	c.hovered = true
	c.handle.Active = true
	c.handle.Tint = TintActive

	if c.orbit != nil && c.orbit.OrbitEnabled() {
		c.orbit.SetOrbitEnabled(false)
		c.orbitSuspended = true
	}

	logger.Debug("handle drag started", zap.String("bone", c.handle.BoneName()))
	return true
}

// PointerUp ends a drag.
func (c *Controller) PointerUp(p Pointer) {
	if c.state != StateDragging {
		return
	}
	if c.camera != nil {
		c.hovered = c.hit(c.camera.ScreenRay(p.X, p.Y))
	}
	c.endDrag()
}

// PointerLeave ends a drag and clears hover.
func (c *Controller) PointerLeave() {
	c.hovered = false
	if c.state == StateDragging {
		c.endDrag()
		return
	}
	c.state = StateIdle
	if c.handle != nil {
		c.handle.Tint = TintNormal
	}
}

// Sync moves the handle to its bone unless a drag is in progress.
func (c *Controller) Sync() {
	if c.handle == nil || c.handle.Bone == nil || !c.display || c.state == StateDragging {
		return
	}
	c.handle.Position = c.handle.Bone.WorldPosition()
}

func (c *Controller) endDrag() {
	c.handle.Active = false
	if c.hovered {
		c.state = StateHovering
		c.handle.Tint = TintHover
	} else {
		c.state = StateIdle
		c.handle.Tint = TintNormal
	}

	if c.orbitSuspended && c.orbit != nil {
		c.orbit.SetOrbitEnabled(true)
	}
	c.orbitSuspended = false

	logger.Debug("handle drag ended", zap.String("bone", c.handle.BoneName()))
}

func (c *Controller) hit(ray picking.Ray) bool {
	_, ok := ray.IntersectSphere(c.handle.Position, c.handle.Radius)
	return ok
}
