package rig

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/rigscope/internal/constraint"
	"github.com/Faultbox/rigscope/internal/drag"
	"github.com/Faultbox/rigscope/internal/ik"
	"github.com/Faultbox/rigscope/internal/logger"
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

// Rig is the state of one assembled skeleton. All methods except Do and
// Closed must be called from the goroutine that ticks the rig.
type Rig struct {
	ID    uuid.UUID
	Model string

	root   *skeleton.Node
	store  *Store
	engine *constraint.Engine
	solver ik.Solver

	segments []Segment
	joints   []Joint
	labels   []Label

	handle *drag.Handle
	drag   *drag.Controller

	restoreLocked bool
	lastTick      time.Time

	mailbox   chan func(*Rig)
	done      chan struct{}
	closeOnce sync.Once
	log       *zap.Logger
}

// mailboxSize bounds requests queued between ticks.
const mailboxSize = 64

func newRig(model *skeleton.Node, opts Options) *Rig {
	r := &Rig{
		ID:            uuid.New(),
		Model:         opts.Model,
		root:          model,
		store:         NewStore(),
		engine:        constraint.NewEngine(opts.Constraints),
		solver:        opts.Solver,
		restoreLocked: opts.RestoreLocked,
		mailbox:       make(chan func(*Rig), mailboxSize),
		done:          make(chan struct{}),
		log:           logger.Named("rig"),
	}
	r.solver.Locked = r.store.IsLocked
	r.drag = drag.NewController(nil, r)
	r.drag.SetDisplay(opts.Display)
	return r
}

// Root returns the model root node.
func (r *Rig) Root() *skeleton.Node { return r.root }

// Bones returns the rig bones in discovery order.
func (r *Rig) Bones() []*skeleton.Node { return r.store.Bones() }

// Store returns the bone store.
func (r *Rig) Store() *Store { return r.store }

// Engine returns the constraint engine.
func (r *Rig) Engine() *constraint.Engine { return r.engine }

// Segments returns the parent/child bone pairs drawn by the overlay.
func (r *Rig) Segments() []Segment { return r.segments }

// Joints returns the joint pucks drawn by the overlay.
func (r *Rig) Joints() []Joint { return r.joints }

// Labels returns the joint labels.
func (r *Rig) Labels() []Label { return r.labels }

// Handle returns the control handle, nil for an empty rig.
func (r *Rig) Handle() *drag.Handle { return r.handle }

// Drag returns the handle's drag controller.
func (r *Rig) Drag() *drag.Controller { return r.drag }

// RestoreLocked reports whether locked bones are restored every tick.
func (r *Rig) RestoreLocked() bool { return r.restoreLocked }

// SetRestoreLocked toggles restoring locked rotations.
func (r *Rig) SetRestoreLocked(enabled bool) { r.restoreLocked = enabled }

// Display reports whether the rig overlay is enabled.
func (r *Rig) Display() bool { return r.drag.Display() }

// SetDisplay toggles the rig overlay and handle dragging.
func (r *Rig) SetDisplay(enabled bool) { r.drag.SetDisplay(enabled) }

// Tick runs one frame: queued requests, locked-bone restore, constraint
// enforcement, world matrices, then the handle follows its bone.
func (r *Rig) Tick(now time.Time) {
	r.lastTick = now
	r.drain()
	if r.root == nil {
		return
	}
	if r.restoreLocked {
		r.store.RestoreLocked()
	}
	r.engine.EnforceAll(r.store.Bones(), now)
	r.root.UpdateMatrixWorld()
	r.drag.Sync()
}

// LockBone adds or removes a bone from the locked set. Locking snapshots the
// current rotation.
func (r *Rig) LockBone(bone *skeleton.Node, locked bool) {
	if bone == nil {
		return
	}
	if locked {
		r.store.Lock(bone)
	} else {
		r.store.Unlock(bone)
	}
	r.log.Debug("bone lock changed", zap.String("bone", bone.Name), zap.Bool("locked", locked))
}

// LockBoneByName is LockBone with a name lookup.
func (r *Rig) LockBoneByName(name string, locked bool) error {
	bone, err := r.bone(name)
	if err != nil {
		return err
	}
	r.LockBone(bone, locked)
	return nil
}

// SetConstraint replaces the descriptor bound to a bone. Type "none" clears it.
// With preserve set, a fixed constraint holds the current world pose and a
// spring rests at the current rotation.
func (r *Rig) SetConstraint(name string, spec constraint.Spec, preserve bool) error {
	bone, err := r.bone(name)
	if err != nil {
		return err
	}
	c, err := spec.Build()
	if err != nil {
		return fmt.Errorf("bone %q: %w", name, err)
	}
	constraint.Apply(bone, c, constraint.ApplyOptions{PreservePose: preserve})
	r.log.Info("constraint set",
		zap.String("bone", name),
		zap.String("type", constraint.KindOf(c)),
		zap.Bool("preserve", preserve),
	)
	return nil
}

// ResetPose returns every bone to its rest rotation, releases all locks and
// clears spring state.
func (r *Rig) ResetPose() {
	for _, b := range r.store.Locked() {
		r.store.Unlock(b)
	}
	for _, b := range r.store.Bones() {
		b.SetRotation(b.UserData.InitialRotation)
		if s, ok := b.UserData.Constraint.(*constraint.Spring); ok {
			s.Reset()
		}
	}
	if r.root != nil {
		r.root.UpdateMatrixWorld()
	}
	r.drag.Sync()
	r.log.Debug("pose reset")
}

// Solve runs the IK solver on the chain ending at the named bone.
func (r *Rig) Solve(name string, target math.Vec3) (ik.Result, error) {
	bone, err := r.bone(name)
	if err != nil {
		return ik.Result{}, err
	}
	return r.solve(bone, target), nil
}

// DragTo moves the chain ending at bone toward target. It is the drag
// controller's target.
func (r *Rig) DragTo(bone *skeleton.Node, target math.Vec3) {
	r.solve(bone, target)
}

func (r *Rig) solve(bone *skeleton.Node, target math.Vec3) ik.Result {
	if r.restoreLocked {
		r.store.RestoreLocked()
	}
	s := r.solver
	s.Enforce = r.engine.Enforcer(r.lastTick)
	res := s.Solve(ik.BuildChain(r.store.Bones(), bone), target)
	if r.restoreLocked {
		r.store.RestoreLocked()
	}
	if r.root != nil {
		r.root.UpdateMatrixWorld()
	}
	return res
}

func (r *Rig) bone(name string) (*skeleton.Node, error) {
	b := r.store.Find(name)
	if b == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBone, name)
	}
	return b, nil
}

// Close releases the rig. Pending and later Do calls fail with ErrClosed.
func (r *Rig) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		r.drag.SetDisplay(false)
		r.drag.Attach(nil, nil)
		r.handle = nil
		r.store.Clear()
		r.segments, r.joints, r.labels = nil, nil, nil
		r.log.Info("rig closed", zap.String("id", r.ID.String()))
	})
}

// Closed reports whether Close was called.
func (r *Rig) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
