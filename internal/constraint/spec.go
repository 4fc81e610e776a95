package constraint

import (
	"errors"
	"fmt"
	gomath "math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

// ErrInvalidSpec is returned when a spec cannot be turned into a constraint.
var ErrInvalidSpec = errors.New("invalid constraint spec")

// Spec is the flat, serializable form of a constraint. It is what authoring
// metadata, sidecar files, the HTTP API and the preset store exchange.
type Spec struct {
	Type      string           `json:"type" yaml:"type"`
	Axis      string           `json:"axis,omitempty" yaml:"axis,omitempty"`
	Min       *float32         `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float32         `json:"max,omitempty" yaml:"max,omitempty"`
	Limits    map[string]Range `json:"limits,omitempty" yaml:"limits,omitempty"`
	Stiffness *float32         `json:"stiffness,omitempty" yaml:"stiffness,omitempty"`
	Damping   *float32         `json:"damping,omitempty" yaml:"damping,omitempty"`
	Rest      []float32        `json:"rest,omitempty" yaml:"rest,omitempty"`
	// Pose is a captured column-major world matrix for a fixed bone.
	Pose []float32 `json:"pose,omitempty" yaml:"pose,omitempty"`
}

// UnmarshalYAML accepts a range as either {min, max} or [min, max].
func (r *Range) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var pair []float32
		if err := value.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("%w: range needs 2 values, got %d", ErrInvalidSpec, len(pair))
		}
		r.Min, r.Max = pair[0], pair[1]
		return nil
	}
	type plain Range
	return value.Decode((*plain)(r))
}

func normalizeType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "none":
		return KindNone
	case "fixed", "rigid":
		return KindFixed
	case "hinge":
		return KindHinge
	case "limitrotation", "limit_rotation", "limit", "rotationlimits":
		return KindLimitRotation
	case "spring":
		return KindSpring
	}
	return ""
}

// Build validates the spec and returns a fresh descriptor. Type "none" yields nil.
// Springs without an explicit rest rotation take it from the bone when applied.
func (s Spec) Build() (skeleton.Constraint, error) {
	switch normalizeType(s.Type) {
	case KindNone:
		return nil, nil
	case KindFixed:
		switch len(s.Pose) {
		case 0:
			return &Fixed{}, nil
		case len(math.Mat4{}):
			f := &Fixed{Preserved: true}
			copy(f.WorldPose[:], s.Pose)
			return f, nil
		}
		return nil, fmt.Errorf("%w: fixed pose needs 16 values, got %d", ErrInvalidSpec, len(s.Pose))
	case KindHinge:
		if s.Axis == "" {
			return nil, fmt.Errorf("%w: hinge requires an axis", ErrInvalidSpec)
		}
		axis, err := math.ParseAxis(s.Axis)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		h := &Hinge{Axis: axis, Min: -gomath.Pi, Max: gomath.Pi}
		if s.Min != nil {
			h.Min = *s.Min
		}
		if s.Max != nil {
			h.Max = *s.Max
		}
		if h.Min > h.Max {
			return nil, fmt.Errorf("%w: hinge min %v > max %v", ErrInvalidSpec, h.Min, h.Max)
		}
		return h, nil
	case KindLimitRotation:
		return limitsFromMap(s.Limits)
	case KindSpring:
		sp := &Spring{Stiffness: DefaultStiffness, Damping: DefaultDamping, restFromBone: true}
		if s.Stiffness != nil {
			sp.Stiffness = *s.Stiffness
		}
		if s.Damping != nil {
			sp.Damping = *s.Damping
		}
		if sp.Stiffness < 0 || sp.Damping < 0 {
			return nil, fmt.Errorf("%w: spring stiffness and damping must be non-negative", ErrInvalidSpec)
		}
		if len(s.Rest) > 0 {
			if len(s.Rest) != 3 {
				return nil, fmt.Errorf("%w: spring rest needs 3 values", ErrInvalidSpec)
			}
			sp.RestRotation = math.Euler{X: s.Rest[0], Y: s.Rest[1], Z: s.Rest[2]}
			sp.restFromBone = false
		}
		return sp, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSpec, s.Type)
}

func limitsFromMap(limits map[string]Range) (*LimitRotation, error) {
	l := &LimitRotation{X: Unlimited, Y: Unlimited, Z: Unlimited}
	for key, r := range limits {
		if r.Min > r.Max {
			return nil, fmt.Errorf("%w: limit %s min %v > max %v", ErrInvalidSpec, key, r.Min, r.Max)
		}
		axis, err := math.ParseAxis(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		switch axis {
		case math.AxisX:
			l.X = r
		case math.AxisY:
			l.Y = r
		case math.AxisZ:
			l.Z = r
		}
	}
	return l, nil
}

// Describe returns the spec for a descriptor. Runtime state is not included,
// but a preserved fixed pose is, so the spec rebuilds the same hold.
func Describe(c skeleton.Constraint) Spec {
	switch c := c.(type) {
	case *Fixed:
		spec := Spec{Type: KindFixed}
		if c.Preserved {
			spec.Pose = append([]float32(nil), c.WorldPose[:]...)
		}
		return spec
	case *Hinge:
		lo, hi := c.Min, c.Max
		return Spec{Type: KindHinge, Axis: c.Axis.String(), Min: &lo, Max: &hi}
	case *LimitRotation:
		limits := make(map[string]Range)
		for _, a := range []struct {
			name string
			r    Range
		}{{"x", c.X}, {"y", c.Y}, {"z", c.Z}} {
			if a.r != Unlimited {
				limits[a.name] = a.r
			}
		}
		return Spec{Type: KindLimitRotation, Limits: limits}
	case *Spring:
		k, d := c.Stiffness, c.Damping
		spec := Spec{Type: KindSpring, Stiffness: &k, Damping: &d}
		if !c.restFromBone {
			spec.Rest = []float32{c.RestRotation.X, c.RestRotation.Y, c.RestRotation.Z}
		}
		return spec
	}
	return Spec{Type: KindNone}
}

// decodeSpec converts a metadata value into a Spec. Maps decoded from JSON or
// YAML are re-encoded through YAML so both sources share one decoder.
func decodeSpec(v any) (Spec, error) {
	switch v := v.(type) {
	case Spec:
		return v, nil
	case *Spec:
		if v == nil {
			return Spec{}, fmt.Errorf("%w: nil spec", ErrInvalidSpec)
		}
		return *v, nil
	case string:
		return Spec{Type: v}, nil
	}
	var s Spec
	if err := remarshal(v, &s); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// decodeLimits converts rotation-limit metadata ({x: {min, max}, ...}).
func decodeLimits(v any) (*LimitRotation, error) {
	if l, ok := v.(map[string]Range); ok {
		return limitsFromMap(l)
	}
	var limits map[string]Range
	if err := remarshal(v, &limits); err != nil {
		return nil, err
	}
	return limitsFromMap(limits)
}

func remarshal(in, out any) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return nil
}
