package overlay

import (
	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/pkg/formats"
	"github.com/Faultbox/arcalib/pkg/geom"
)

// ProjectMesh projects every mesh vertex, one call per vertex, preserving
// vertex order.
func ProjectMesh(proj Projector, mesh *formats.Mesh, pose camera.Pose, model camera.Model) []geom.Vec2 {
	out := make([]geom.Vec2, 0, len(mesh.Vertices))
	one := make([]geom.Vec3, 1)
	for _, v := range mesh.Vertices {
		one[0] = geom.Vec3{X: v.X, Y: v.Y, Z: v.Z}
		out = append(out, proj.ProjectPoints(one, pose, model)[0])
	}
	return out
}

// DrawMesh marks every projected vertex and outlines every face as a closed
// polygon. Faces referencing a vertex outside projected are skipped; the
// number skipped is returned.
func DrawMesh(c Canvas, mesh *formats.Mesh, projected []geom.Vec2) int {
	for _, p := range projected {
		c.Circle(p, 2, Green, Filled)
	}

	skipped := 0
	for _, face := range mesh.Faces {
		if !faceInRange(face, len(projected)) {
			skipped++
			continue
		}
		n := len(face.VertexIndices)
		for i := 0; i < n; i++ {
			a := projected[face.VertexIndices[i]-1]
			b := projected[face.VertexIndices[(i+1)%n]-1]
			c.Line(a, b, Blue, 1)
		}
	}
	return skipped
}

func faceInRange(f formats.Face, n int) bool {
	for _, idx := range f.VertexIndices {
		if idx < 1 || idx > n {
			return false
		}
	}
	return true
}

// DrawFeatures rings each feature point in black.
func DrawFeatures(c Canvas, pts []geom.Vec2) {
	for _, p := range pts {
		c.Circle(p, 5, Black, 2)
	}
}
