package math

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

// Axis names a local rotation axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// ParseAxis accepts "x", "y" or "z" (case-insensitive).
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return AxisX, fmt.Errorf("invalid axis %q", s)
}

// Vec3 returns the unit vector along the axis.
func (a Axis) Vec3() Vec3 {
	switch a {
	case AxisY:
		return Vec3{0, 1, 0}
	case AxisZ:
		return Vec3{0, 0, 1}
	}
	return Vec3{1, 0, 0}
}

// Euler holds rotation angles in radians applied in XYZ order.
type Euler struct {
	X, Y, Z float32
}

// Get returns the angle about axis a.
func (e Euler) Get(a Axis) float32 {
	switch a {
	case AxisY:
		return e.Y
	case AxisZ:
		return e.Z
	}
	return e.X
}

// With returns a copy with the angle about axis a replaced.
func (e Euler) With(a Axis, v float32) Euler {
	switch a {
	case AxisY:
		e.Y = v
	case AxisZ:
		e.Z = v
	default:
		e.X = v
	}
	return e
}

// Add returns e + o component-wise.
func (e Euler) Add(o Euler) Euler {
	return Euler{e.X + o.X, e.Y + o.Y, e.Z + o.Z}
}

// Sub returns e - o component-wise.
func (e Euler) Sub(o Euler) Euler {
	return Euler{e.X - o.X, e.Y - o.Y, e.Z - o.Z}
}

// Scale returns e * s component-wise.
func (e Euler) Scale(s float32) Euler {
	return Euler{e.X * s, e.Y * s, e.Z * s}
}

// Quat converts the angles to a quaternion (Rx * Ry * Rz).
func (e Euler) Quat() Quat {
	c1, s1 := math32.Cos(e.X/2), math32.Sin(e.X/2)
	c2, s2 := math32.Cos(e.Y/2), math32.Sin(e.Y/2)
	c3, s3 := math32.Cos(e.Z/2), math32.Sin(e.Z/2)
	return Quat{
		X: s1*c2*c3 + c1*s2*s3,
		Y: c1*s2*c3 - s1*c2*s3,
		Z: c1*c2*s3 + s1*s2*c3,
		W: c1*c2*c3 - s1*s2*s3,
	}
}

// EulerFromRotationMatrix extracts XYZ angles from the upper 3x3 of an unscaled matrix.
func EulerFromRotationMatrix(m Mat4) Euler {
	m11, m12, m13 := m[0], m[4], m[8]
	m22, m23 := m[5], m[9]
	m32, m33 := m[6], m[10]

	var e Euler
	e.Y = math32.Asin(clamp(m13, -1, 1))
	if math32.Abs(m13) < 0.9999999 {
		e.X = math32.Atan2(-m23, m33)
		e.Z = math32.Atan2(-m12, m11)
	} else {
		e.X = math32.Atan2(m32, m22)
		e.Z = 0
	}
	return e
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	return clamp(v, lo, hi)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
