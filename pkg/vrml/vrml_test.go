package vrml

import (
	"errors"
	"strings"
	"testing"

	vmath "github.com/Faultbox/vrmlopt/pkg/math"
	"github.com/Faultbox/vrmlopt/pkg/mesh"
)

const header = "#VRML V2.0 utf8\nTransform {\n  children [\n"

const coloredShape = `
      appearance Appearance { material Material { diffuseColor 1 1 1 } }
      geometry IndexedFaceSet {
        coord Coordinate { point [ 0 0 0, 1 0 0, 1 1 0, 0 1 0 ] }
        normal Normal { vector [ 0 0 1, 0 0 1, 0 0 1, 0 0 1 ] }
        color Color { color [ 1 0 0, 1 0 0, 0 0 1, 0 0 1 ] }
        coordIndex [ 0, 1, 2, -1, 0, 2, 3, -1 ]
      }
    }
`

const plainShape = `
      geometry IndexedFaceSet {
        coord Coordinate { point [ -1.5 2e-1 3, 4 5 6, 7 8 9 ] }
        coordIndex [ 0 1 2 -1 ]
      }
    }
`

const emptyShape = `
      geometry Box { size 1 1 1 }
    }
`

func TestParse(t *testing.T) {
	content := header + ShapeSeparator + coloredShape + ShapeSeparator + plainShape
	doc, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Header != header {
		t.Errorf("header = %q", doc.Header)
	}
	if len(doc.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(doc.Chunks))
	}

	c0 := doc.Chunks[0]
	if len(c0.Vertices) != 4 || len(c0.Colors) != 4 || len(c0.Normals) != 4 {
		t.Errorf("chunk 0: %d vertices, %d colors, %d normals",
			len(c0.Vertices), len(c0.Colors), len(c0.Normals))
	}
	if c0.Colors[2] != (vmath.Vec3{X: 0, Y: 0, Z: 1}) {
		t.Errorf("chunk 0 color 2 = %v", c0.Colors[2])
	}
	if c0.FaceCount() != 2 {
		t.Errorf("chunk 0 faces = %d, want 2", c0.FaceCount())
	}

	c1 := doc.Chunks[1]
	if c1.Vertices[0] != (vmath.Vec3{X: -1.5, Y: 0.2, Z: 3}) {
		t.Errorf("chunk 1 vertex 0 = %v", c1.Vertices[0])
	}
	for i, c := range c1.Colors {
		if c != DefaultColor {
			t.Errorf("chunk 1 color %d = %v, want default", i, c)
		}
	}
	if len(c1.Normals) != 0 {
		t.Errorf("chunk 1 has %d normals, want none", len(c1.Normals))
	}
	want := []int{0, 1, 2, -1}
	for i := range want {
		if c1.Indices[i] != want[i] {
			t.Fatalf("indices = %v, want %v", c1.Indices, want)
		}
	}
}

func TestParse_SkipsShapesWithoutGeometry(t *testing.T) {
	content := header + ShapeSeparator + emptyShape + ShapeSeparator + plainShape
	doc, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Shapes) != 2 || len(doc.Chunks) != 1 {
		t.Fatalf("got %d shapes, %d chunks", len(doc.Shapes), len(doc.Chunks))
	}
	if doc.Shapes[0].Chunk != -1 || doc.Shapes[1].Chunk != 0 {
		t.Errorf("shape chunk links = %d, %d", doc.Shapes[0].Chunk, doc.Shapes[1].Chunk)
	}
}

func TestParse_CoordCount(t *testing.T) {
	tests := []struct {
		name  string
		shape string
	}{
		{"point", "coord Coordinate { point [ 0 0 0, 1 1 ] }\ncoordIndex [ 0 0 0 -1 ]"},
		{"color", "coord Coordinate { point [ 0 0 0 ] }\ncoordIndex [ 0 0 0 -1 ]\ncolor [ 1 1 ]"},
		{"vector", "coord Coordinate { point [ 0 0 0 ] }\ncoordIndex [ 0 0 0 -1 ]\nvector [ 1 ]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(header + ShapeSeparator + tt.shape)
			if !errors.Is(err, ErrCoordCount) {
				t.Errorf("err = %v, want ErrCoordCount", err)
			}
		})
	}
}

func TestParse_NoShapes(t *testing.T) {
	doc, err := Parse(header)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Shapes) != 0 || len(doc.Chunks) != 0 {
		t.Errorf("expected empty document, got %+v", doc)
	}
}

func TestReplaceBlocks(t *testing.T) {
	m := mesh.Mesh{
		Vertices: []vmath.Vec3{{X: 0.5, Y: 0, Z: -1}, {X: 1, Y: 2, Z: 3}, {X: 0, Y: 1, Z: 0}},
		Colors:   []vmath.Vec3{{X: 1, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}},
		Normals:  []vmath.Vec3{{X: 0, Y: 0, Z: 1}},
		Indices:  []int{0, 1, 2, -1},
	}

	out := ReplaceBlocks(coloredShape, m)
	for _, want := range []string{
		"point [\n0.5 0 -1,\n1 2 3,\n0 1 0\n]",
		"coordIndex [\n0,\n1,\n2,\n-1\n]",
		"color [\n1 0 0,\n1 0 0,\n1 0 0\n]",
		"vector [\n0 0 1\n]",
		"diffuseColor 1 1 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReplaceBlocks_InsertsColor(t *testing.T) {
	m := mesh.Mesh{
		Vertices: []vmath.Vec3{{X: 1, Y: 1, Z: 1}},
		Colors:   []vmath.Vec3{{X: 1, Y: 1, Z: 1}},
		Indices:  []int{0, 0, 0, -1},
	}

	out := ReplaceBlocks(plainShape, m)
	want := "coordIndex [\n0,\n0,\n0,\n-1\n]\ncolor [\n1 1 1\n]"
	if !strings.Contains(out, want) {
		t.Errorf("color block not inserted after coordIndex:\n%s", out)
	}
	if strings.Contains(out, "vector [") {
		t.Errorf("vector block added to a shape without normals")
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	content := header + ShapeSeparator + coloredShape + ShapeSeparator + emptyShape + ShapeSeparator + plainShape
	doc, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	out, err := doc.Serialize(doc.Chunks)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.HasPrefix(out, header+ShapeSeparator) {
		t.Errorf("header not preserved")
	}
	if !strings.Contains(out, emptyShape) {
		t.Errorf("shape without geometry not written back verbatim")
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse(Serialize): %v", err)
	}
	if len(again.Chunks) != len(doc.Chunks) {
		t.Fatalf("got %d chunks after round trip, want %d", len(again.Chunks), len(doc.Chunks))
	}
	for i := range doc.Chunks {
		a, b := doc.Chunks[i], again.Chunks[i]
		if len(a.Vertices) != len(b.Vertices) || len(a.Indices) != len(b.Indices) || len(a.Colors) != len(b.Colors) {
			t.Errorf("chunk %d changed shape across round trip", i)
			continue
		}
		for j := range a.Vertices {
			if a.Vertices[j] != b.Vertices[j] {
				t.Errorf("chunk %d vertex %d: %v != %v", i, j, a.Vertices[j], b.Vertices[j])
			}
		}
	}
}

func TestSerialize_ChunkCount(t *testing.T) {
	doc, err := Parse(header + ShapeSeparator + plainShape)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := doc.Serialize(nil); !errors.Is(err, ErrChunkCount) {
		t.Errorf("err = %v, want ErrChunkCount", err)
	}
}

func TestSerializeFused(t *testing.T) {
	content := header + ShapeSeparator + emptyShape + ShapeSeparator + coloredShape + ShapeSeparator + plainShape
	doc, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	fused := doc.Chunks[0]
	out := doc.SerializeFused(fused)
	if got := strings.Count(out, ShapeSeparator); got != 2 {
		t.Errorf("got %d shapes, want 2:\n%s", got, out)
	}
	if !strings.Contains(out, emptyShape) {
		t.Errorf("shape without geometry dropped")
	}
	if strings.Contains(out, "-1.5") {
		t.Errorf("second geometry shape not removed")
	}
}
