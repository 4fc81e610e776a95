package skeleton

import (
	"fmt"

	"github.com/Faultbox/rigscope/pkg/formats"
)

// SceneRootName names the synthetic node that holds a document's scene roots.
const SceneRootName = "Scene"

// FromGLTF builds the node graph of a glTF document under a synthetic scene root.
// Skin joints are marked as bones. World matrices are up to date on return.
func FromGLTF(doc *formats.GLTF) (*Node, error) {
	root := NewNode(SceneRootName)
	nodes := make([]*Node, len(doc.Nodes))
	joints := doc.JointSet()

	for i, gn := range doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		n := NewNode(name)
		pos, rot, scale := gn.LocalTransform()
		n.Position = pos
		n.SetQuaternion(rot)
		n.Scale = scale
		n.IsBone = joints[i]
		if len(gn.Extras) > 0 {
			n.UserData.Extras = gn.Extras
		}
		nodes[i] = n
	}

	for i, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c < 0 || c >= len(nodes) {
				return nil, fmt.Errorf("%w: node %d child %d", formats.ErrInvalidNodeIndex, i, c)
			}
			if nodes[c].Parent == nil && !isAncestor(nodes[c], nodes[i]) {
				nodes[i].Add(nodes[c])
			}
		}
	}

	for _, r := range doc.RootNodes() {
		if r < 0 || r >= len(nodes) {
			return nil, fmt.Errorf("%w: scene root %d", formats.ErrInvalidNodeIndex, r)
		}
		if nodes[r].Parent == nil {
			root.Add(nodes[r])
		}
	}

	root.UpdateMatrixWorld()
	return root, nil
}

// isAncestor reports whether a is n or one of n's ancestors.
func isAncestor(a, n *Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}
