package constraint

import (
	gomath "math"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/rigscope/internal/logger"
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

// Metadata keys consulted by Parse, in both UserData.Meta and UserData.Extras.
const (
	MetaConstraints    = "constraints"
	MetaRotationLimits = "rotationLimits"
)

// Spring defaults used by name inference and specs that omit them.
const (
	DefaultStiffness = 50
	DefaultDamping   = 5
)

// nearZero is the tolerance for treating a rest angle as zero.
const nearZero = 1e-4

// Options tune constraint inference.
type Options struct {
	// InferFromRest enables inference from the rest rotation.
	InferFromRest bool
	// SpringStiffness and SpringDamping apply to springs inferred from names.
	SpringStiffness float32
	SpringDamping   float32
}

// DefaultOptions returns the stock inference settings.
func DefaultOptions() Options {
	return Options{
		InferFromRest:   true,
		SpringStiffness: DefaultStiffness,
		SpringDamping:   DefaultDamping,
	}
}

// Engine parses and enforces constraints with a fixed set of options.
type Engine struct {
	opts Options
	log  *zap.Logger
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts, log: logger.Named("constraint")}
}

// Options returns the engine settings.
func (e *Engine) Options() Options {
	return e.opts
}

// Parse infers a descriptor with default options.
func Parse(node *skeleton.Node) skeleton.Constraint {
	return NewEngine(DefaultOptions()).Parse(node)
}

// Parse returns the descriptor for a node, or nil. Sources are tried in order:
// authored constraints, authored rotation limits, asset extras, the rest
// rotation, and finally the bone name. An authored "none" stops the search.
// Parse does not modify the node.
func (e *Engine) Parse(node *skeleton.Node) skeleton.Constraint {
	if node == nil {
		return nil
	}
	ud := &node.UserData

	if c, ok := e.fromMeta(node, ud.Meta); ok {
		return c
	}
	if c, ok := e.fromMeta(node, ud.Extras); ok {
		return c
	}
	if e.opts.InferFromRest {
		if c := fromRest(ud.InitialRotation); c != nil {
			return c
		}
	}
	return e.fromName(node)
}

// fromMeta reads constraints, then rotation limits, from one metadata map.
// ok is true when the map decided the result, including an explicit "none".
func (e *Engine) fromMeta(node *skeleton.Node, meta map[string]any) (skeleton.Constraint, bool) {
	if v, found := meta[MetaConstraints]; found && v != nil {
		spec, err := decodeSpec(v)
		if err == nil {
			var c skeleton.Constraint
			c, err = spec.Build()
			if err == nil {
				return c, true
			}
		}
		e.log.Warn("ignoring constraint metadata", zap.String("bone", node.Name), zap.Error(err))
	}
	if v, found := meta[MetaRotationLimits]; found && v != nil {
		l, err := decodeLimits(v)
		if err == nil {
			return l, true
		}
		e.log.Warn("ignoring rotation limits", zap.String("bone", node.Name), zap.Error(err))
	}
	return nil, false
}

// fromRest infers from the rest rotation: all axes near zero is Fixed,
// exactly one free axis is a Hinge on it.
func fromRest(r math.Euler) skeleton.Constraint {
	var free []math.Axis
	for _, a := range []math.Axis{math.AxisX, math.AxisY, math.AxisZ} {
		if math.Clamp(r.Get(a), -nearZero, nearZero) != r.Get(a) {
			free = append(free, a)
		}
	}
	switch len(free) {
	case 0:
		return &Fixed{}
	case 1:
		return &Hinge{Axis: free[0], Min: -gomath.Pi, Max: gomath.Pi}
	}
	return nil
}

func (e *Engine) fromName(node *skeleton.Node) skeleton.Constraint {
	name := strings.ToLower(node.Name)
	switch {
	case node.NameContains("fixed", "rigid"):
		return &Fixed{}
	case node.NameContains("hinge", "elbow", "knee"):
		axis := math.AxisY
		if strings.HasSuffix(name, "_x") {
			axis = math.AxisX
		} else if strings.HasSuffix(name, "_z") {
			axis = math.AxisZ
		}
		return &Hinge{Axis: axis, Min: -gomath.Pi, Max: gomath.Pi}
	case node.NameContains("spring", "bounce"):
		return &Spring{
			Stiffness:    e.opts.SpringStiffness,
			Damping:      e.opts.SpringDamping,
			RestRotation: node.UserData.InitialRotation,
		}
	}
	return nil
}
