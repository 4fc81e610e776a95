package constraint

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/rigscope/internal/skeleton"
)

// Sidecar is an authoring file that assigns constraint specs to bones by name.
//
//	bones:
//	  forearm_L: {type: hinge, axis: z, min: 0, max: 2.6}
//	  head: {type: limitRotation, limits: {x: [-0.5, 0.5]}}
type Sidecar struct {
	Bones map[string]Spec `yaml:"bones"`
}

// LoadSidecar reads and validates a sidecar file.
func LoadSidecar(path string) (map[string]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading constraint sidecar: %w", err)
	}
	var sc Sidecar
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing constraint sidecar %s: %w", path, err)
	}
	for name, spec := range sc.Bones {
		if _, err := spec.Build(); err != nil {
			return nil, fmt.Errorf("bone %q: %w", name, err)
		}
	}
	return sc.Bones, nil
}

// Inject stores specs into the authored metadata of matching nodes under root
// so that Parse picks them up first. It returns the number of nodes matched.
func Inject(root *skeleton.Node, specs map[string]Spec) int {
	if root == nil || len(specs) == 0 {
		return 0
	}
	n := 0
	root.Traverse(func(node *skeleton.Node) {
		spec, ok := specs[node.Name]
		if !ok {
			return
		}
		if node.UserData.Meta == nil {
			node.UserData.Meta = make(map[string]any)
		}
		node.UserData.Meta[MetaConstraints] = spec
		n++
	})
	return n
}
