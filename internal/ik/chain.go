package ik

import "github.com/Faultbox/rigscope/internal/skeleton"

// BuildChain returns the bones from the chain root down to target, root first.
// The walk follows parents while they are bones. A target that is not in
// bones yields a single-element chain; a nil target yields nil.
func BuildChain(bones []*skeleton.Node, target *skeleton.Node) []*skeleton.Node {
	if target == nil {
		return nil
	}
	known := false
	for _, b := range bones {
		if b == target {
			known = true
			break
		}
	}
	if !known {
		return []*skeleton.Node{target}
	}

	chain := []*skeleton.Node{target}
	visited := map[*skeleton.Node]bool{target: true}
	for p := target.Parent; p != nil && p.IsBone && !visited[p]; p = p.Parent {
		visited[p] = true
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
