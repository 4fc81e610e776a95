// Package rig assembles a skeleton into an interactive IK rig and owns its
// per-frame state: bones, locks, constraints and the control handle.
package rig

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/rigscope/internal/config"
	"github.com/Faultbox/rigscope/internal/constraint"
	"github.com/Faultbox/rigscope/internal/drag"
	"github.com/Faultbox/rigscope/internal/ik"
	"github.com/Faultbox/rigscope/internal/logger"
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

var (
	// ErrNoBones is returned with an empty rig when a model has no skeleton.
	ErrNoBones = errors.New("no bones found")
	// ErrUnknownBone is returned when a bone name does not resolve.
	ErrUnknownBone = errors.New("unknown bone")
	// ErrClosed is returned when posting to a closed rig.
	ErrClosed = errors.New("rig closed")
)

// Name fragments that mark the armature node and bones.
var (
	armatureNames = []string{"armature", "skeleton", "rig", "root"}
	boneNames     = []string{"bone"}
)

// Options configure assembly.
type Options struct {
	// Model is a display name for the loaded asset.
	Model string
	// Solver settings; Locked and Enforce are set by the rig.
	Solver ik.Solver
	// Constraints tune inference.
	Constraints constraint.Options
	// Sidecar specs are injected by bone name before constraints are parsed.
	Sidecar map[string]constraint.Spec
	// HandleRadius is the pick radius of the control handle.
	HandleRadius float32
	// RestoreLocked forces locked bones back to their snapshot every tick.
	RestoreLocked bool
	// Display enables the rig overlay and handle dragging.
	Display bool
}

// DefaultOptions returns the stock assembly settings.
func DefaultOptions() Options {
	return Options{
		Solver:        *ik.DefaultSolver(),
		Constraints:   constraint.DefaultOptions(),
		HandleRadius:  drag.DefaultRadius,
		RestoreLocked: true,
		Display:       true,
	}
}

// OptionsFromConfig maps the solver, drag and constraint sections of cfg.
// Sidecar specs are not loaded here.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Solver.Iterations = cfg.Solver.Iterations
	opts.Solver.MinAngle = cfg.Solver.MinAngle
	opts.Solver.MaxStep = cfg.Solver.MaxStep
	opts.Solver.Tolerance = cfg.Solver.Tolerance
	if f := math.Vec3FromArray(cfg.Solver.Forward); f.Length() > 0 {
		opts.Solver.Forward = f
	}
	opts.Constraints = constraint.Options{
		InferFromRest:   cfg.Constraints.InferFromRest,
		SpringStiffness: cfg.Constraints.SpringStiffness,
		SpringDamping:   cfg.Constraints.SpringDamping,
	}
	opts.HandleRadius = cfg.Drag.HandleRadius
	opts.RestoreLocked = cfg.Drag.RestoreLocked
	opts.Display = cfg.Drag.Display
	return opts
}

// Assemble builds a rig from a model's node graph. A model without bones
// yields an empty, usable rig together with ErrNoBones.
func Assemble(model *skeleton.Node, opts Options) (*Rig, error) {
	r := newRig(model, opts)
	log := logger.Named("rig")

	if model == nil {
		log.Info("no model, rig left empty", zap.String("model", opts.Model))
		return r, ErrNoBones
	}
	model.UpdateMatrixWorld()

	armature := findArmature(model)
	if n := constraint.Inject(model, opts.Sidecar); n > 0 {
		log.Info("constraint sidecar applied", zap.Int("bones", n))
	}

	inArmature := make(map[*skeleton.Node]bool)
	armature.Traverse(func(n *skeleton.Node) { inArmature[n] = true })

	// Skin joints count wherever they sit; name matches only under the armature.
	model.Traverse(func(n *skeleton.Node) {
		if n.IsBone || (inArmature[n] && n.NameContains(boneNames...)) {
			n.IsBone = true
			n.UserData.InitialRotation = n.Rotation()
			r.store.Add(n)
		}
	})

	if r.store.Len() == 0 {
		log.Info("no bones found, rig left empty",
			zap.String("model", opts.Model),
			zap.String("armature", armature.Name),
		)
		return r, ErrNoBones
	}

	constrained := 0
	for _, b := range r.store.Bones() {
		c := r.engine.Parse(b)
		if c == nil {
			continue
		}
		constraint.Apply(b, c, constraint.ApplyOptions{})
		constrained++
	}

	r.segments, r.joints, r.labels = buildVisuals(r.store.Bones())
	r.handle = drag.NewHandle(farthestBone(r.store.Bones()), opts.HandleRadius)
	r.drag = drag.NewController(r.handle, r)
	r.drag.SetDisplay(opts.Display)

	log.Info("rig assembled",
		zap.String("model", opts.Model),
		zap.String("id", r.ID.String()),
		zap.String("armature", armature.Name),
		zap.Int("bones", r.store.Len()),
		zap.Int("constrained", constrained),
		zap.String("handle", r.handle.BoneName()),
	)
	return r, nil
}

// findArmature returns the first node with an armature word in its name,
// else model.
func findArmature(model *skeleton.Node) *skeleton.Node {
	if a := model.FindFunc(func(n *skeleton.Node) bool {
		return n.NameHasWord(armatureNames...)
	}); a != nil {
		return a
	}
	return model
}
