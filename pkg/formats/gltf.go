package formats

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/rigscope/pkg/math"
)

// glTF format errors.
var (
	ErrInvalidGLBMagic       = errors.New("invalid GLB magic: expected 'glTF'")
	ErrUnsupportedGLBVersion = errors.New("unsupported GLB version")
	ErrTruncatedGLBData      = errors.New("truncated GLB data")
	ErrMissingJSONChunk      = errors.New("GLB JSON chunk not found")
	ErrInvalidNodeIndex      = errors.New("invalid glTF node index")
)

const (
	glbMagic         = 0x46546C67 // "glTF"
	glbVersion       = 2
	glbHeaderLength  = 12
	glbChunkHeadSize = 8
	glbJSONChunkType = 0x4E4F534A // "JSON"
)

// GLTF is the decoded node graph of a glTF 2.0 asset.
type GLTF struct {
	Asset  GLTFAsset      `json:"asset"`
	Scene  int            `json:"scene"`
	Scenes []GLTFScene    `json:"scenes"`
	Nodes  []GLTFNode     `json:"nodes"`
	Skins  []GLTFSkin     `json:"skins"`
	Extras map[string]any `json:"extras,omitempty"`

	parents []int
}

// GLTFAsset holds asset metadata.
type GLTFAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

// GLTFScene lists the root nodes of a scene.
type GLTFScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes"`
}

// GLTFNode is one node of the glTF hierarchy.
type GLTFNode struct {
	Name        string         `json:"name"`
	Mesh        *int           `json:"mesh,omitempty"`
	Skin        *int           `json:"skin,omitempty"`
	Children    []int          `json:"children,omitempty"`
	Matrix      []float32      `json:"matrix,omitempty"`
	Translation []float32      `json:"translation,omitempty"`
	Rotation    []float32      `json:"rotation,omitempty"` // x, y, z, w
	Scale       []float32      `json:"scale,omitempty"`
	Extras      map[string]any `json:"extras,omitempty"`
}

// GLTFSkin lists the joint nodes of a skin.
type GLTFSkin struct {
	Name     string `json:"name,omitempty"`
	Joints   []int  `json:"joints"`
	Skeleton *int   `json:"skeleton,omitempty"`
}

// ParseGLTFFile reads a .gltf or .glb file from disk.
func ParseGLTFFile(path string) (*GLTF, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading gltf file: %w", err)
	}
	return ParseAsset(data)
}

// ParseAsset detects the container by magic and parses it.
func ParseAsset(data []byte) (*GLTF, error) {
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[0:4]) == glbMagic {
		return ParseGLB(data)
	}
	return ParseGLTF(data)
}

// ParseGLB parses a binary glTF container.
func ParseGLB(data []byte) (*GLTF, error) {
	chunk, err := glbJSONChunk(data)
	if err != nil {
		return nil, err
	}
	return ParseGLTF(chunk)
}

// ParseGLTF parses the JSON form of a glTF document.
func ParseGLTF(data []byte) (*GLTF, error) {
	doc := &GLTF{}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding gltf json: %w", err)
	}
	if err := doc.buildParents(); err != nil {
		return nil, err
	}
	return doc, nil
}

func glbJSONChunk(b []byte) ([]byte, error) {
	if len(b) < glbHeaderLength {
		return nil, ErrTruncatedGLBData
	}
	if binary.LittleEndian.Uint32(b[0:4]) != glbMagic {
		return nil, ErrInvalidGLBMagic
	}
	if v := binary.LittleEndian.Uint32(b[4:8]); v != glbVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedGLBVersion, v)
	}
	if total := binary.LittleEndian.Uint32(b[8:12]); total > uint32(len(b)) {
		return nil, fmt.Errorf("%w: header length %d exceeds %d bytes", ErrTruncatedGLBData, total, len(b))
	}

	offset := glbHeaderLength
	for offset+glbChunkHeadSize <= len(b) {
		chunkLength := int(binary.LittleEndian.Uint32(b[offset : offset+4]))
		chunkType := binary.LittleEndian.Uint32(b[offset+4 : offset+8])
		start := offset + glbChunkHeadSize
		end := start + chunkLength
		if chunkLength < 0 || end > len(b) {
			return nil, fmt.Errorf("%w: chunk at %d", ErrTruncatedGLBData, offset)
		}
		if chunkType == glbJSONChunkType {
			return b[start:end], nil
		}
		offset = end
	}
	return nil, ErrMissingJSONChunk
}

func (g *GLTF) buildParents() error {
	g.parents = make([]int, len(g.Nodes))
	for i := range g.parents {
		g.parents[i] = -1
	}
	for parent, node := range g.Nodes {
		for _, child := range node.Children {
			if child < 0 || child >= len(g.Nodes) || child == parent {
				return fmt.Errorf("%w: node %d child %d", ErrInvalidNodeIndex, parent, child)
			}
			if g.parents[child] == -1 {
				g.parents[child] = parent
			}
		}
	}
	for _, skin := range g.Skins {
		for _, j := range skin.Joints {
			if j < 0 || j >= len(g.Nodes) {
				return fmt.Errorf("%w: skin joint %d", ErrInvalidNodeIndex, j)
			}
		}
	}
	return nil
}

// Parent returns the parent index of node i, or -1 for roots.
func (g *GLTF) Parent(i int) int {
	if i < 0 || i >= len(g.parents) {
		return -1
	}
	return g.parents[i]
}

// RootNodes returns the root node indexes of the default scene.
// Without scenes, every parentless node is a root.
func (g *GLTF) RootNodes() []int {
	if g.Scene >= 0 && g.Scene < len(g.Scenes) {
		return g.Scenes[g.Scene].Nodes
	}
	var roots []int
	for i := range g.Nodes {
		if g.Parent(i) == -1 {
			roots = append(roots, i)
		}
	}
	return roots
}

// JointSet returns the indexes of all nodes referenced as skin joints.
func (g *GLTF) JointSet() map[int]bool {
	joints := make(map[int]bool)
	for _, skin := range g.Skins {
		for _, j := range skin.Joints {
			joints[j] = true
		}
	}
	return joints
}

// LocalTransform returns the node's local translation, rotation and scale.
// A matrix, when present, takes precedence over TRS properties.
func (n GLTFNode) LocalTransform() (math.Vec3, math.Quat, math.Vec3) {
	if len(n.Matrix) == 16 {
		var m math.Mat4
		copy(m[:], n.Matrix)
		return m.Decompose()
	}

	pos := math.Vec3{}
	if len(n.Translation) == 3 {
		pos = math.Vec3{X: n.Translation[0], Y: n.Translation[1], Z: n.Translation[2]}
	}
	rot := math.QuatIdentity()
	if len(n.Rotation) == 4 {
		rot = math.Quat{X: n.Rotation[0], Y: n.Rotation[1], Z: n.Rotation[2], W: n.Rotation[3]}.Normalize()
	}
	scale := math.Vec3{X: 1, Y: 1, Z: 1}
	if len(n.Scale) == 3 {
		scale = math.Vec3{X: n.Scale[0], Y: n.Scale[1], Z: n.Scale[2]}
	}
	return pos, rot, scale
}

// EncodeGLB wraps a glTF document into a GLB container with a single JSON chunk.
func EncodeGLB(doc *GLTF) ([]byte, error) {
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding gltf json: %w", err)
	}
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}

	var buf bytes.Buffer
	total := uint32(glbHeaderLength + glbChunkHeadSize + len(js))
	binary.Write(&buf, binary.LittleEndian, uint32(glbMagic))
	binary.Write(&buf, binary.LittleEndian, uint32(glbVersion))
	binary.Write(&buf, binary.LittleEndian, total)
	binary.Write(&buf, binary.LittleEndian, uint32(len(js)))
	binary.Write(&buf, binary.LittleEndian, uint32(glbJSONChunkType))
	buf.Write(js)
	return buf.Bytes(), nil
}
