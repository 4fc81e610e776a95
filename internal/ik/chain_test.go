package ik

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

func TestBuildChain(t *testing.T) {
	scene := skeleton.NewNode("Scene")
	root := newBone("root", math.Vec3{})
	a := newBone("A", math.Vec3{Y: 1})
	b := newBone("B", math.Vec3{Y: 1})
	c := newBone("C", math.Vec3{Y: 1})
	scene.Add(root)
	root.Add(a)
	a.Add(b)
	b.Add(c)
	bones := []*skeleton.Node{root, a, b, c}

	assert.Equal(t, []*skeleton.Node{root, a, b, c}, BuildChain(bones, c))
	assert.Equal(t, []*skeleton.Node{root, a}, BuildChain(bones, a))
	assert.Equal(t, []*skeleton.Node{root}, BuildChain(bones, root))
}

func TestBuildChainStopsAtNonBone(t *testing.T) {
	root := newBone("root", math.Vec3{})
	mid := skeleton.NewNode("socket")
	a := newBone("A", math.Vec3{Y: 1})
	b := newBone("B", math.Vec3{Y: 1})
	root.Add(mid)
	mid.Add(a)
	a.Add(b)

	assert.Equal(t, []*skeleton.Node{a, b}, BuildChain([]*skeleton.Node{root, a, b}, b))
}

func TestBuildChainUnknownTarget(t *testing.T) {
	root := newBone("root", math.Vec3{})
	stray := newBone("stray", math.Vec3{Y: 1})
	root.Add(stray)

	assert.Equal(t, []*skeleton.Node{stray}, BuildChain([]*skeleton.Node{root}, stray))
	assert.Nil(t, BuildChain([]*skeleton.Node{root}, nil))
}
