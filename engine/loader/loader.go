package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

var (
	// ErrNoGeometry is returned when a document has no triangle primitive with positions.
	ErrNoGeometry = errors.New("loader: no triangle geometry")

	// ErrIndexOutOfRange is returned when an index references a missing vertex.
	ErrIndexOutOfRange = errors.New("loader: index out of range")
)

// VertexStride is the size in bytes of one vertex of Mesh.VertexData: a vec4 position
// followed by a vec4 normal.
const VertexStride = 32

// Mesh is triangle geometry flattened from every mesh of a glTF document, in mesh space.
type Mesh struct {
	Name      string
	Positions []common.Vec3
	Normals   []common.Vec3
	// Indices holds three entries per triangle, counter-clockwise when front facing.
	Indices []uint32
	Bounds  common.AABB
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// VertexCount returns the number of vertices VertexData expands to.
func (m *Mesh) VertexCount() int {
	return len(m.Indices)
}

// VertexData expands the indexed triangles into VertexStride sized vertices, read by
// vertex index from a storage buffer.
func (m *Mesh) VertexData() []byte {
	verts := make([][8]float32, len(m.Indices))
	for i, idx := range m.Indices {
		p, n := m.Positions[idx], m.Normals[idx]
		verts[i] = [8]float32{p[0], p[1], p[2], 1, n[0], n[1], n[2], 0}
	}
	return common.SliceToBytes(verts)
}

type loader struct {
	logger      *slog.Logger
	scale       float32
	flipWinding bool
}

// Loader reads glTF and GLB files into Meshes.
type Loader interface {
	// Load opens a .gltf or .glb file.
	//
	// Parameters:
	//   - path: the file path
	//
	// Returns:
	//   - *Mesh: the flattened geometry named after the file
	//   - error: an open error, ErrNoGeometry or ErrIndexOutOfRange
	Load(path string) (*Mesh, error)

	// LoadDocument flattens an already decoded document.
	//
	// Parameters:
	//   - doc: the document
	//   - name: the mesh name
	//
	// Returns:
	//   - *Mesh: the flattened geometry
	//   - error: ErrNoGeometry, ErrIndexOutOfRange or an accessor error
	LoadDocument(doc *gltf.Document, name string) (*Mesh, error)
}

var _ Loader = &loader{}

// NewLoader creates a Loader.
//
// Parameters:
//   - options: functional options to configure the loader
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		logger: common.Logger(),
		scale:  1,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *loader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return l.LoadDocument(doc, name)
}

func (l *loader) LoadDocument(doc *gltf.Document, name string) (*Mesh, error) {
	mesh := &Mesh{Name: name, Bounds: common.EmptyAABB()}
	for _, m := range doc.Meshes {
		for i, prim := range m.Primitives {
			if err := l.appendPrimitive(doc, prim, mesh); err != nil {
				return nil, fmt.Errorf("loader: %s mesh %q primitive %d: %w", name, m.Name, i, err)
			}
		}
	}
	if len(mesh.Indices) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoGeometry)
	}
	l.logger.Debug("mesh loaded", "name", name, "vertices", len(mesh.Positions), "triangles", mesh.TriangleCount())
	return mesh, nil
}

// appendPrimitive adds one primitive to mesh. Non-triangle primitives and primitives
// without positions are skipped.
func (l *loader) appendPrimitive(doc *gltf.Document, prim *gltf.Primitive, mesh *Mesh) error {
	if prim.Mode != gltf.PrimitiveTriangles {
		l.logger.Debug("primitive skipped", "name", mesh.Name, "mode", prim.Mode)
		return nil
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[normIdx], nil); err != nil {
			return fmt.Errorf("normals: %w", err)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions)-len(positions)%3)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	base := uint32(len(mesh.Positions))
	for _, p := range positions {
		v := common.Vec3{p[0], p[1], p[2]}.Scale(l.scale)
		mesh.Positions = append(mesh.Positions, v)
		mesh.Bounds = mesh.Bounds.Union(common.AABB{Min: v, Max: v})
	}
	for i := range positions {
		n := common.Vec3{}
		if i < len(normals) {
			n = common.Vec3{normals[i][0], normals[i][1], normals[i][2]}
		}
		mesh.Normals = append(mesh.Normals, n)
	}

	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := indices[t], indices[t+1], indices[t+2]
		if a >= uint32(len(positions)) || b >= uint32(len(positions)) || c >= uint32(len(positions)) {
			return fmt.Errorf("triangle %d: %w", t/3, ErrIndexOutOfRange)
		}
		if l.flipWinding {
			b, c = c, b
		}
		mesh.Indices = append(mesh.Indices, base+a, base+b, base+c)
	}

	if len(normals) == 0 {
		computeNormals(mesh, base)
	}
	return nil
}

// computeNormals fills the normals of vertices [base, len) with the area weighted average
// of their triangle normals.
func computeNormals(mesh *Mesh, base uint32) {
	for t := 0; t+2 < len(mesh.Indices); t += 3 {
		a, b, c := mesh.Indices[t], mesh.Indices[t+1], mesh.Indices[t+2]
		if a < base {
			continue
		}
		pa, pb, pc := mesh.Positions[a], mesh.Positions[b], mesh.Positions[c]
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		for _, i := range [3]uint32{a, b, c} {
			mesh.Normals[i] = mesh.Normals[i].Add(n)
		}
	}
	for i := base; i < uint32(len(mesh.Normals)); i++ {
		mesh.Normals[i] = mesh.Normals[i].Normalize()
	}
}
