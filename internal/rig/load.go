package rig

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Faultbox/rigscope/internal/constraint"
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/formats"
)

// ModelName derives the display name of a model file.
func ModelName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadFile reads a .gltf or .glb model and assembles its rig. A non-empty
// sidecar path is loaded and applied by bone name. An unset opts.Model is
// derived from the file name.
func LoadFile(path, sidecar string, opts Options) (*Rig, error) {
	doc, err := formats.ParseGLTFFile(path)
	if err != nil {
		return nil, err
	}
	model, err := skeleton.FromGLTF(doc)
	if err != nil {
		return nil, fmt.Errorf("building node graph: %w", err)
	}

	if sidecar != "" {
		specs, err := constraint.LoadSidecar(sidecar)
		if err != nil {
			return nil, err
		}
		opts.Sidecar = specs
	}
	if opts.Model == "" {
		opts.Model = ModelName(path)
	}
	return Assemble(model, opts)
}
