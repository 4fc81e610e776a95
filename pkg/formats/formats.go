// Package formats provides readers for 3D asset file formats.
//
// glTF 2.0 is supported in both JSON (.gltf) and binary (.glb) containers.
// Only the node graph is decoded: names, local transforms, hierarchy, skins
// and extras. Mesh and texture payloads are left to the renderer.
package formats
