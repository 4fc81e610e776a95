package rig

import (
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

// Segment is a drawn bone between a parent bone and a child bone.
type Segment struct {
	Parent *skeleton.Node
	Child  *skeleton.Node
}

// Endpoints returns the world positions of both ends.
func (s Segment) Endpoints() (from, to math.Vec3) {
	return s.Parent.WorldPosition(), s.Child.WorldPosition()
}

// Joint is a drawn joint puck. Root joints start a chain.
type Joint struct {
	Bone *skeleton.Node
	Root bool
}

// Label is the text shown next to a joint.
type Label struct {
	Bone *skeleton.Node
	Text string
}

func buildVisuals(bones []*skeleton.Node) ([]Segment, []Joint, []Label) {
	isBone := make(map[*skeleton.Node]bool, len(bones))
	for _, b := range bones {
		isBone[b] = true
	}

	var segments []Segment
	joints := make([]Joint, 0, len(bones))
	labels := make([]Label, 0, len(bones))
	for _, b := range bones {
		root := b.Parent == nil || !isBone[b.Parent]
		if !root {
			segments = append(segments, Segment{Parent: b.Parent, Child: b})
		}
		joints = append(joints, Joint{Bone: b, Root: root})
		labels = append(labels, Label{Bone: b, Text: b.Name})
	}
	return segments, joints, labels
}

// farthestBone picks the handle bone: the first bone with no bone children,
// else the last bone.
func farthestBone(bones []*skeleton.Node) *skeleton.Node {
	if len(bones) == 0 {
		return nil
	}
	for _, b := range bones {
		if !b.HasBoneChildren() {
			return b
		}
	}
	return bones[len(bones)-1]
}
