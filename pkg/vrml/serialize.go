package vrml

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	vmath "github.com/Faultbox/vrmlopt/pkg/math"
	"github.com/Faultbox/vrmlopt/pkg/mesh"
)

func splitShapes(content string) []string {
	return strings.Split(content, ShapeSeparator)
}

// Serialize writes the document back with chunks in place of the parsed
// geometry. chunks must line up with d.Chunks; fragments without geometry
// are written unchanged.
func (d *Document) Serialize(chunks []mesh.Chunk) (string, error) {
	if len(chunks) != len(d.Chunks) {
		return "", fmt.Errorf("%w: got %d, document has %d", ErrChunkCount, len(chunks), len(d.Chunks))
	}

	parts := make([]string, 0, len(d.Shapes))
	for _, s := range d.Shapes {
		if s.Chunk < 0 {
			parts = append(parts, s.Raw)
			continue
		}
		parts = append(parts, ReplaceBlocks(chunks[s.Chunk].Raw, chunks[s.Chunk].Mesh))
	}
	return join(d.Header, parts), nil
}

// SerializeFused writes the document with every geometry Shape replaced by
// the single fused chunk, placed where the first one was. Fragments without
// geometry are kept.
func (d *Document) SerializeFused(fused mesh.Chunk) string {
	parts := make([]string, 0, len(d.Shapes))
	placed := false
	for _, s := range d.Shapes {
		switch {
		case s.Chunk < 0:
			parts = append(parts, s.Raw)
		case !placed:
			parts = append(parts, ReplaceBlocks(fused.Raw, fused.Mesh))
			placed = true
		}
	}
	return join(d.Header, parts)
}

func join(header string, parts []string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString(ShapeSeparator)
	b.WriteString(strings.Join(parts, ShapeSeparator))
	return b.String()
}

// ReplaceBlocks rewrites the point, coordIndex, color and vector blocks of
// one Shape fragment with m. A color block is inserted after coordIndex when
// raw has none; the vector block is only rewritten when raw has one.
func ReplaceBlocks(raw string, m mesh.Mesh) string {
	out := replaceFirst(raw, pointBlock, "point [\n"+formatTriples(m.Vertices)+"\n]")
	out = replaceFirst(out, indexBlock, "coordIndex [\n"+formatIndices(m.Indices)+"\n]")

	colors := "color [\n" + formatTriples(m.Colors) + "\n]"
	if colorBlock.MatchString(raw) {
		out = replaceFirst(out, colorBlock, colors)
	} else if loc := indexBlock.FindStringIndex(out); loc != nil {
		out = out[:loc[1]] + "\n" + colors + out[loc[1]:]
	}

	if vectorBlock.MatchString(raw) {
		out = replaceFirst(out, vectorBlock, "vector [\n"+formatTriples(m.Normals)+"\n]")
	}
	return out
}

func replaceFirst(s string, re *regexp.Regexp, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}

func formatTriples(vs []vmath.Vec3) string {
	lines := make([]string, len(vs))
	for i, v := range vs {
		lines[i] = formatFloat(v.X) + " " + formatFloat(v.Y) + " " + formatFloat(v.Z)
	}
	return strings.Join(lines, ",\n")
}

func formatIndices(indices []int) string {
	lines := make([]string, len(indices))
	for i, idx := range indices {
		lines[i] = strconv.Itoa(idx)
	}
	return strings.Join(lines, ",\n")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
