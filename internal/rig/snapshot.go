package rig

import (
	"github.com/Faultbox/rigscope/internal/constraint"
	"github.com/Faultbox/rigscope/pkg/math"
)

// Snapshot is a read-only summary of a rig.
type Snapshot struct {
	ID             string     `json:"id"`
	Model          string     `json:"model"`
	Bones          int        `json:"bones"`
	HandleBone     string     `json:"handleBone,omitempty"`
	HandlePosition [3]float32 `json:"handlePosition"`
	RestoreLocked  bool       `json:"restoreLocked"`
	Display        bool       `json:"display"`
	Dragging       bool       `json:"dragging"`
	Locked         []string   `json:"locked"`
}

// BoneInfo describes one bone.
type BoneInfo struct {
	Name            string           `json:"name"`
	Parent          string           `json:"parent,omitempty"`
	Rotation        [3]float32       `json:"rotation"`
	InitialRotation [3]float32       `json:"initialRotation"`
	WorldPosition   [3]float32       `json:"worldPosition"`
	Locked          bool             `json:"locked"`
	Constraint      *constraint.Spec `json:"constraint,omitempty"`
}

// JointInfo describes one joint puck and its label.
type JointInfo struct {
	Bone     string     `json:"bone"`
	Label    string     `json:"label"`
	Root     bool       `json:"root"`
	Position [3]float32 `json:"position"`
}

// ConstraintInfo pairs a bone with its bound constraint.
type ConstraintInfo struct {
	Bone string          `json:"bone"`
	Spec constraint.Spec `json:"spec"`
}

// Snapshot returns the rig summary.
func (r *Rig) Snapshot() Snapshot {
	s := Snapshot{
		ID:            r.ID.String(),
		Model:         r.Model,
		Bones:         r.store.Len(),
		RestoreLocked: r.restoreLocked,
		Display:       r.drag.Display(),
		Dragging:      r.drag.Dragging(),
		Locked:        []string{},
	}
	if r.handle != nil {
		s.HandleBone = r.handle.BoneName()
		s.HandlePosition = r.handle.Position.Array()
	}
	for _, b := range r.store.Locked() {
		s.Locked = append(s.Locked, b.Name)
	}
	return s
}

// BoneInfos describes every bone in discovery order.
func (r *Rig) BoneInfos() []BoneInfo {
	out := make([]BoneInfo, 0, r.store.Len())
	for _, b := range r.store.Bones() {
		info := BoneInfo{
			Name:            b.Name,
			Rotation:        eulerArray(b.Rotation()),
			InitialRotation: eulerArray(b.UserData.InitialRotation),
			WorldPosition:   b.WorldPosition().Array(),
			Locked:          r.store.IsLocked(b),
		}
		if b.Parent != nil {
			info.Parent = b.Parent.Name
		}
		if b.UserData.Constraint != nil {
			spec := constraint.Describe(b.UserData.Constraint)
			info.Constraint = &spec
		}
		out = append(out, info)
	}
	return out
}

// JointInfos describes every joint with its label.
func (r *Rig) JointInfos() []JointInfo {
	out := make([]JointInfo, 0, len(r.joints))
	for i, j := range r.joints {
		info := JointInfo{
			Bone:     j.Bone.Name,
			Root:     j.Root,
			Position: j.Bone.WorldPosition().Array(),
		}
		if i < len(r.labels) {
			info.Label = r.labels[i].Text
		}
		out = append(out, info)
	}
	return out
}

// Constraints lists bound constraints in bone order.
func (r *Rig) Constraints() []ConstraintInfo {
	var out []ConstraintInfo
	for _, b := range r.store.Bones() {
		if b.UserData.Constraint == nil {
			continue
		}
		out = append(out, ConstraintInfo{Bone: b.Name, Spec: constraint.Describe(b.UserData.Constraint)})
	}
	return out
}

func eulerArray(e math.Euler) [3]float32 {
	return [3]float32{e.X, e.Y, e.Z}
}
