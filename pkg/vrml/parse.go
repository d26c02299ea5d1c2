// Package vrml reads and rewrites the geometry blocks of VRML 2.0
// IndexedFaceSet documents.
//
// Only the numeric blocks are understood: point, coordIndex, color and
// vector. Everything else in a Shape is kept as raw text and written back
// unchanged.
package vrml

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	vmath "github.com/Faultbox/vrmlopt/pkg/math"
	"github.com/Faultbox/vrmlopt/pkg/mesh"
)

// ShapeSeparator splits a document into its header and Shape fragments.
const ShapeSeparator = "Shape {"

// Errors returned by Parse and Serialize.
var (
	ErrCoordCount = errors.New("coordinate count is not a multiple of 3")
	ErrNoShapes   = errors.New("document contains no Shape with geometry")
	ErrChunkCount = errors.New("chunk count does not match document")
)

var (
	pointBlock  = regexp.MustCompile(`point \[([\s\S]*?)\]`)
	indexBlock  = regexp.MustCompile(`coordIndex \[([\s\S]*?)\]`)
	colorBlock  = regexp.MustCompile(`color \[([\s\S]*?)\]`)
	vectorBlock = regexp.MustCompile(`vector \[([\s\S]*?)\]`)

	number  = regexp.MustCompile(`-?\d+(\.\d+)?([eE][+-]?\d+)?`)
	integer = regexp.MustCompile(`-?\d+`)
)

// DefaultColor is assigned to every vertex of a Shape without a color block.
var DefaultColor = vmath.Vec3{X: 1, Y: 1, Z: 1}

// Shape is one fragment of the document following a "Shape {" separator.
type Shape struct {
	Raw string
	// Chunk indexes Document.Chunks, or -1 when the fragment has no
	// usable geometry and is written back verbatim.
	Chunk int
}

// Document is a parsed VRML file.
type Document struct {
	Header string
	Shapes []Shape
	Chunks []mesh.Chunk
}

type options struct {
	log *zap.Logger
}

// Option configures Parse.
type Option func(*options)

// WithLogger routes parse warnings to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Parse splits content on "Shape {" and extracts the geometry of every
// fragment. Fragments without a point or coordIndex block are logged and
// kept as raw text. A coordinate block whose number count is not a multiple
// of 3 fails the whole parse.
func Parse(content string, opts ...Option) (*Document, error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	parts := splitShapes(content)
	doc := &Document{Header: parts[0]}

	for i, raw := range parts[1:] {
		ch, ok, err := parseShape(raw)
		if err != nil {
			return nil, fmt.Errorf("shape %d: %w", i, err)
		}
		if !ok {
			o.log.Warn("no vertices or indices found in shape", zap.Int("shape", i))
			doc.Shapes = append(doc.Shapes, Shape{Raw: raw, Chunk: -1})
			continue
		}
		o.log.Debug("parsed shape",
			zap.Int("shape", i),
			zap.Int("vertices", len(ch.Vertices)),
			zap.Int("faces", ch.FaceCount()),
			zap.Int("normals", len(ch.Normals)))
		doc.Shapes = append(doc.Shapes, Shape{Raw: raw, Chunk: len(doc.Chunks)})
		doc.Chunks = append(doc.Chunks, ch)
	}

	return doc, nil
}

// parseShape extracts the mesh of one fragment. ok is false when the
// fragment lacks point or coordIndex data.
func parseShape(raw string) (mesh.Chunk, bool, error) {
	ch := mesh.Chunk{Raw: raw}

	pm := pointBlock.FindStringSubmatch(raw)
	im := indexBlock.FindStringSubmatch(raw)
	if pm == nil || im == nil {
		return ch, false, nil
	}

	verts, ok, err := parseTriples(pm[1], "point")
	if err != nil || !ok {
		return ch, false, err
	}
	ch.Vertices = verts

	idx := integer.FindAllString(im[1], -1)
	if len(idx) == 0 {
		return ch, false, nil
	}
	ch.Indices = make([]int, len(idx))
	for i, s := range idx {
		n, err := strconv.Atoi(s)
		if err != nil {
			return ch, false, fmt.Errorf("coordIndex %q: %w", s, err)
		}
		ch.Indices[i] = n
	}

	if cm := colorBlock.FindStringSubmatch(raw); cm != nil {
		cols, ok, err := parseTriples(cm[1], "color")
		if err != nil || !ok {
			return ch, false, err
		}
		ch.Colors = cols
	} else {
		ch.Colors = make([]vmath.Vec3, len(ch.Vertices))
		for i := range ch.Colors {
			ch.Colors[i] = DefaultColor
		}
	}

	if vm := vectorBlock.FindStringSubmatch(raw); vm != nil {
		normals, ok, err := parseTriples(vm[1], "vector")
		if err != nil || !ok {
			return ch, false, err
		}
		ch.Normals = normals
	}

	return ch, true, nil
}

// parseTriples reads every number in block and groups them by three.
// ok is false when the block holds no numbers.
func parseTriples(block, name string) ([]vmath.Vec3, bool, error) {
	nums := number.FindAllString(block, -1)
	if len(nums) == 0 {
		return nil, false, nil
	}
	if len(nums)%3 != 0 {
		return nil, false, fmt.Errorf("%w: %s block has %d values", ErrCoordCount, name, len(nums))
	}

	out := make([]vmath.Vec3, 0, len(nums)/3)
	for i := 0; i < len(nums); i += 3 {
		var xyz [3]float64
		for j := range xyz {
			f, err := strconv.ParseFloat(nums[i+j], 64)
			if err != nil {
				return nil, false, fmt.Errorf("%s value %q: %w", name, nums[i+j], err)
			}
			xyz[j] = f
		}
		out = append(out, vmath.FromArray(xyz))
	}
	return out, true, nil
}
