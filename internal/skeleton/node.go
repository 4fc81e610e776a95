// Package skeleton provides the scene node graph that rigs are built on.
package skeleton

import (
	"strings"
	"unicode"

	"github.com/Faultbox/rigscope/pkg/math"
)

// Constraint is a joint constraint bound to a bone.
// Implementations live in the constraint package.
type Constraint interface {
	Kind() string
}

// UserData is the per-node bag used by rig assembly and constraints.
type UserData struct {
	// InitialRotation is the rest pose captured at rig assembly.
	InitialRotation math.Euler
	// Constraint is the currently bound descriptor, nil for none.
	Constraint Constraint
	// Meta holds authored metadata (sidecars, presets).
	Meta map[string]any
	// Extras holds the asset's own extras block.
	Extras map[string]any
}

// Node is a transform in the scene hierarchy. Bones are nodes with IsBone set.
type Node struct {
	Name     string
	IsBone   bool
	Position math.Vec3
	Scale    math.Vec3
	Parent   *Node
	Children []*Node
	UserData UserData

	rotation    math.Euler
	quaternion  math.Quat
	matrix      math.Mat4
	matrixWorld math.Mat4
}

// NewNode creates a node with identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:        name,
		Scale:       math.Vec3{X: 1, Y: 1, Z: 1},
		quaternion:  math.QuatIdentity(),
		matrix:      math.Identity(),
		matrixWorld: math.Identity(),
	}
}

// Add attaches child to n, detaching it from any previous parent.
func (n *Node) Add(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.Parent != nil {
		child.Parent.remove(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

func (n *Node) remove(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

// Rotation returns the local rotation as XYZ Euler angles.
func (n *Node) Rotation() math.Euler {
	return n.rotation
}

// SetRotation sets the local rotation from Euler angles. The angles are kept
// exactly as given and the quaternion is derived from them.
func (n *Node) SetRotation(e math.Euler) {
	n.rotation = e
	n.quaternion = e.Quat()
}

// Quaternion returns the local rotation as a quaternion.
func (n *Node) Quaternion() math.Quat {
	return n.quaternion
}

// SetQuaternion sets the local rotation and re-derives the Euler angles.
func (n *Node) SetQuaternion(q math.Quat) {
	n.quaternion = q.Normalize()
	n.rotation = n.quaternion.Euler()
}

// RotateOnAxis rotates the node about a unit axis in its own local space.
func (n *Node) RotateOnAxis(axis math.Vec3, angle float32) {
	n.SetQuaternion(n.quaternion.Mul(math.QuatFromAxisAngle(axis, angle)))
}

// Matrix returns the local transform computed by the last update.
func (n *Node) Matrix() math.Mat4 {
	return n.matrix
}

// MatrixWorld returns the world transform computed by the last update.
func (n *Node) MatrixWorld() math.Mat4 {
	return n.matrixWorld
}

// UpdateMatrix recomputes the local transform as T * R * S.
func (n *Node) UpdateMatrix() {
	n.matrix = math.Compose(n.Position, n.quaternion, n.Scale)
}

// UpdateMatrixWorld recomputes the world transforms of n and all descendants
// from the parent's current world transform.
func (n *Node) UpdateMatrixWorld() {
	n.UpdateMatrix()
	if n.Parent != nil {
		n.matrixWorld = n.Parent.matrixWorld.Mul(n.matrix)
	} else {
		n.matrixWorld = n.matrix
	}
	for _, c := range n.Children {
		c.UpdateMatrixWorld()
	}
}

// UpdateWorldMatrix refreshes the ancestors of n first, then n and its subtree.
func (n *Node) UpdateWorldMatrix() {
	var chain []*Node
	visited := make(map[*Node]bool)
	for p := n.Parent; p != nil && !visited[p]; p = p.Parent {
		visited[p] = true
		chain = append(chain, p)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		p := chain[i]
		p.UpdateMatrix()
		if p.Parent != nil {
			p.matrixWorld = p.Parent.matrixWorld.Mul(p.matrix)
		} else {
			p.matrixWorld = p.matrix
		}
	}
	n.UpdateMatrixWorld()
}

// ComputeWorld returns the world transform from the current local transforms
// of n and its ancestors without touching any cached matrices.
func (n *Node) ComputeWorld() math.Mat4 {
	m := math.Compose(n.Position, n.quaternion, n.Scale)
	visited := map[*Node]bool{n: true}
	for p := n.Parent; p != nil && !visited[p]; p = p.Parent {
		visited[p] = true
		m = math.Compose(p.Position, p.quaternion, p.Scale).Mul(m)
	}
	return m
}

// WorldPosition returns the translation of the world transform.
func (n *Node) WorldPosition() math.Vec3 {
	return n.matrixWorld.Translation()
}

// WorldQuaternion returns the rotation of the world transform.
func (n *Node) WorldQuaternion() math.Quat {
	_, q, _ := n.matrixWorld.Decompose()
	return q
}

// ParentWorld returns the parent's world transform, or identity for roots.
func (n *Node) ParentWorld() math.Mat4 {
	if n.Parent == nil {
		return math.Identity()
	}
	return n.Parent.matrixWorld
}

// Traverse calls fn for n and every descendant, depth-first, parents before children.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

// Find returns the first node in the subtree with the given name.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Traverse(func(c *Node) {
		if found == nil && c.Name == name {
			found = c
		}
	})
	return found
}

// FindFunc returns the first node in the subtree for which match returns true.
func (n *Node) FindFunc(match func(*Node) bool) *Node {
	var found *Node
	n.Traverse(func(c *Node) {
		if found == nil && match(c) {
			found = c
		}
	})
	return found
}

// NameContains reports whether the node name contains any of subs, ignoring case.
func (n *Node) NameContains(subs ...string) bool {
	name := strings.ToLower(n.Name)
	for _, s := range subs {
		if strings.Contains(name, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// NameTokens splits a name into lowercase words at separators (_ : . - and
// spaces) and at lower-to-upper case changes. "mixamorig:RightUpLeg" yields
// mixamorig, right, up, leg.
func NameTokens(name string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	var prev rune
	for _, r := range name {
		switch {
		case r == '_' || r == ':' || r == '.' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
		prev = r
	}
	flush()
	return tokens
}

// NameHasWord reports whether a word of the node name equals or ends with
// any of words, ignoring case. "mixamorig" matches "rig"; "Right" does not.
func (n *Node) NameHasWord(words ...string) bool {
	for _, t := range NameTokens(n.Name) {
		for _, w := range words {
			if strings.HasSuffix(t, strings.ToLower(w)) {
				return true
			}
		}
	}
	return false
}

// HasBoneChildren reports whether any direct child is a bone.
func (n *Node) HasBoneChildren() bool {
	for _, c := range n.Children {
		if c.IsBone {
			return true
		}
	}
	return false
}
