// Package export writes simplified meshes as binary glTF.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/vrmlopt/pkg/mesh"
)

// Generator is written to the asset block of every exported document.
const Generator = "vrmlopt"

// ErrEmpty is returned when there is no geometry to export.
var ErrEmpty = errors.New("no geometry to export")

// Document builds a glTF document with one mesh and one node per chunk.
// Per-vertex colors become COLOR_0. Normals are taken from the chunk when it
// carries one per vertex and are otherwise computed per face.
func Document(chunks []mesh.Chunk) (*gltf.Document, error) {
	doc := gltf.NewDocument()
	doc.Asset.Generator = Generator

	pbr := &gltf.PBRMetallicRoughness{
		BaseColorFactor: &[4]float32{1, 1, 1, 1},
		MetallicFactor:  gltf.Float(0),
		RoughnessFactor: gltf.Float(1),
	}
	doc.Materials = []*gltf.Material{{
		Name:                 "VertexColor",
		PBRMetallicRoughness: pbr,
		AlphaMode:            gltf.AlphaOpaque,
		DoubleSided:          true,
	}}

	for i, ch := range chunks {
		if len(ch.Vertices) == 0 || ch.FaceCount() == 0 {
			continue
		}
		if err := ch.Validate(); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}

		positions := make([][3]float32, len(ch.Vertices))
		colors := make([][3]float32, len(ch.Colors))
		for j, v := range ch.Vertices {
			positions[j] = [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
		}
		for j, c := range ch.Colors {
			colors[j] = [3]float32{float32(c.X), float32(c.Y), float32(c.Z)}
		}
		indices, err := triangleList(ch.Indices, len(ch.Vertices))
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}

		normals := make([][3]float32, len(ch.Vertices))
		if len(ch.Normals) == len(ch.Vertices) {
			for j, n := range ch.Normals {
				normals[j] = [3]float32{float32(n.X), float32(n.Y), float32(n.Z)}
			}
		} else {
			faceNormals(positions, indices, normals)
		}

		posAccessor := modeler.WritePosition(doc, positions)
		normalAccessor := modeler.WriteNormal(doc, normals)
		colorAccessor := modeler.WriteColor(doc, colors)
		indicesAccessor := modeler.WriteIndices(doc, indices)

		prim := &gltf.Primitive{
			Attributes: map[string]uint32{
				gltf.POSITION: uint32(posAccessor),
				gltf.NORMAL:   uint32(normalAccessor),
				gltf.COLOR_0:  uint32(colorAccessor),
			},
			Indices:  gltf.Index(uint32(indicesAccessor)),
			Material: gltf.Index(0),
		}

		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name:       fmt.Sprintf("Shape%d", i),
			Primitives: []*gltf.Primitive{prim},
		})
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name: fmt.Sprintf("Shape%d", i),
			Mesh: gltf.Index(uint32(len(doc.Meshes) - 1)),
		})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
	}

	if len(doc.Meshes) == 0 {
		return nil, ErrEmpty
	}
	return doc, nil
}

// WriteGLB encodes chunks as a binary glTF stream.
func WriteGLB(w io.Writer, chunks []mesh.Chunk) error {
	doc, err := Document(chunks)
	if err != nil {
		return err
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	return enc.Encode(doc)
}

// SaveGLB writes chunks to a .glb file.
func SaveGLB(path string, chunks []mesh.Chunk) error {
	doc, err := Document(chunks)
	if err != nil {
		return err
	}
	return gltf.SaveBinary(doc, path)
}

// triangleList drops the face sentinels and checks every index against the
// vertex count n.
func triangleList(indices []int, n int) ([]uint32, error) {
	out := make([]uint32, 0, len(indices)/4*3)
	for f := 0; f+3 < len(indices); f += 4 {
		for _, idx := range indices[f : f+3] {
			if idx < 0 || idx >= n {
				return nil, fmt.Errorf("%w: face %d references vertex %d of %d", mesh.ErrIndexStream, f/4, idx, n)
			}
			out = append(out, uint32(idx))
		}
	}
	return out, nil
}

// faceNormals assigns each vertex the normal of the last face that uses it.
func faceNormals(positions [][3]float32, indices []uint32, normals [][3]float32) {
	for i := 0; i+2 < len(indices); i += 3 {
		v0, v1, v2 := indices[i], indices[i+1], indices[i+2]
		p0, p1, p2 := positions[v0], positions[v1], positions[v2]
		e1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		e2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		cross := [3]float32{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}
		length := float32(math.Sqrt(float64(cross[0]*cross[0] + cross[1]*cross[1] + cross[2]*cross[2])))
		if length > 0 {
			cross[0] /= length
			cross[1] /= length
			cross[2] /= length
		}
		normals[v0] = cross
		normals[v1] = cross
		normals[v2] = cross
	}
}
