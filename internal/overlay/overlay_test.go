package overlay

import (
	"errors"
	"image/color"
	"testing"

	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/pkg/formats"
	"github.com/Faultbox/arcalib/pkg/geom"
)

// planeProjector drops z and scales x/y; it counts its calls.
type planeProjector struct {
	scale float64
	calls int
}

func (p *planeProjector) ProjectPoints(obj []geom.Vec3, _ camera.Pose, _ camera.Model) []geom.Vec2 {
	p.calls++
	out := make([]geom.Vec2, len(obj))
	for i, v := range obj {
		out[i] = geom.Vec2{X: v.X * p.scale, Y: -v.Y * p.scale}
	}
	return out
}

type stroke struct {
	a, b      geom.Vec2
	color     color.RGBA
	thickness float64
}

type circle struct {
	center    geom.Vec2
	radius    float64
	color     color.RGBA
	thickness float64
}

type recordingCanvas struct {
	lines   []stroke
	circles []circle
}

func (r *recordingCanvas) Line(a, b geom.Vec2, c color.RGBA, thickness float64) {
	r.lines = append(r.lines, stroke{a, b, c, thickness})
}

func (r *recordingCanvas) Circle(center geom.Vec2, radius float64, c color.RGBA, thickness float64) {
	r.circles = append(r.circles, circle{center, radius, c, thickness})
}

var unitSquare = Quad{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}

func TestInsideQuad(t *testing.T) {
	tests := []struct {
		name string
		p    geom.Vec2
		want bool
	}{
		{"center", geom.Vec2{X: 5, Y: 5}, true},
		{"near corner", geom.Vec2{X: 0.5, Y: 9.5}, true},
		{"outside right", geom.Vec2{X: 11, Y: 5}, false},
		{"outside diagonal", geom.Vec2{X: -1, Y: -1}, false},
		{"far away", geom.Vec2{X: 1000, Y: -300}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InsideQuad(tt.p, unitSquare); got != tt.want {
				t.Errorf("InsideQuad(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestInsideQuadEdgeIsDeterministic(t *testing.T) {
	edge := geom.Vec2{X: 10, Y: 4}
	first := InsideQuad(edge, unitSquare)
	for i := 0; i < 10; i++ {
		if InsideQuad(edge, unitSquare) != first {
			t.Fatal("edge classification changed between calls")
		}
	}
}

func TestInsideQuadSkewed(t *testing.T) {
	q := Quad{{X: 100, Y: 80}, {X: 400, Y: 60}, {X: 430, Y: 300}, {X: 90, Y: 320}}
	if !InsideQuad(geom.Vec2{X: 250, Y: 200}, q) {
		t.Error("interior point reported outside")
	}
	if InsideQuad(geom.Vec2{X: 95, Y: 70}, q) {
		t.Error("exterior point reported inside")
	}
}

func TestBoardBoundary(t *testing.T) {
	var corners []geom.Vec2
	for i := 0; i < 6; i++ {
		for j := 0; j < 9; j++ {
			corners = append(corners, geom.Vec2{X: float64(j), Y: float64(i)})
		}
	}

	q, err := BoardBoundary(corners, 9, 6)
	if err != nil {
		t.Fatalf("BoardBoundary: %v", err)
	}
	want := Quad{{X: 0, Y: 0}, {X: 8, Y: 0}, {X: 8, Y: 5}, {X: 0, Y: 5}}
	if q != want {
		t.Errorf("boundary = %v, want %v", q, want)
	}

	if _, err := BoardBoundary(corners[:10], 9, 6); !errors.Is(err, ErrShortCorners) {
		t.Errorf("expected ErrShortCorners, got %v", err)
	}
}

func TestNewPyramid(t *testing.T) {
	p := NewPyramid(9, 6, 1)
	if p.Center != (geom.Vec3{X: 4, Y: -2.5}) {
		t.Errorf("center = %v, want (4, -2.5, 0)", p.Center)
	}
	if p.HalfWidth != 0.5 || p.Height != 0.5 {
		t.Errorf("dimensions = %v/%v, want 0.5/0.5", p.HalfWidth, p.Height)
	}

	pts := p.Points()
	want := []geom.Vec3{
		{X: 3.5, Y: -3}, {X: 4.5, Y: -3}, {X: 4.5, Y: -2}, {X: 3.5, Y: -2},
		{X: 4, Y: -2.5, Z: 0.5},
	}
	for i := range want {
		if pts[i] != want[i] {
			t.Errorf("point %d = %v, want %v", i, pts[i], want[i])
		}
	}
}

func TestNewPyramidScalesWithSquareSize(t *testing.T) {
	tests := []struct {
		name   string
		square float64
		center geom.Vec3
		size   float64
	}{
		{"unit", 1, geom.Vec3{X: 4, Y: -2.5}, 0.5},
		{"25mm", 25, geom.Vec3{X: 100, Y: -62.5}, 12.5},
		{"zero counts as unit", 0, geom.Vec3{X: 4, Y: -2.5}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPyramid(9, 6, tt.square)
			if p.Center != tt.center {
				t.Errorf("center = %v, want %v", p.Center, tt.center)
			}
			if p.HalfWidth != tt.size || p.Height != tt.size {
				t.Errorf("dimensions = %v/%v, want %v", p.HalfWidth, p.Height, tt.size)
			}
		})
	}
}

func TestAxesPointsScaleWithSquareSize(t *testing.T) {
	pts := AxesPoints(24.5)
	want := []geom.Vec3{{}, {X: 73.5}, {Y: 73.5}, {Z: -73.5}}
	for i := range want {
		if pts[i] != want[i] {
			t.Errorf("axis point %d = %v, want %v", i, pts[i], want[i])
		}
	}
}

func TestFitPyramidFits(t *testing.T) {
	proj := &planeProjector{scale: 10}
	boundary := Quad{{X: 0, Y: 0}, {X: 80, Y: 0}, {X: 80, Y: 50}, {X: 0, Y: 50}}

	fit := FitPyramid(proj, camera.Pose{}, camera.Model{}, boundary, NewPyramid(9, 6, 1))
	if fit.Shrunk {
		t.Error("pyramid shrunk although it fits")
	}
	if proj.calls != 1 {
		t.Errorf("projections = %d, want 1", proj.calls)
	}
	if len(fit.Points) != 5 {
		t.Errorf("got %d points, want 5", len(fit.Points))
	}
}

func TestFitPyramidShrinksOnce(t *testing.T) {
	proj := &planeProjector{scale: 10}
	// Nothing fits in a degenerate corner box.
	boundary := Quad{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

	fit := FitPyramid(proj, camera.Pose{}, camera.Model{}, boundary, NewPyramid(9, 6, 1))
	if !fit.Shrunk {
		t.Fatal("expected a shrink")
	}
	if proj.calls != 2 {
		t.Errorf("projections = %d, want exactly 2", proj.calls)
	}
	if fit.Pyramid.HalfWidth != 0.375 || fit.Pyramid.Height != 0.375 {
		t.Errorf("dimensions = %v/%v, want 0.375/0.375", fit.Pyramid.HalfWidth, fit.Pyramid.Height)
	}
	if fit.Pyramid.Center != NewPyramid(9, 6, 1).Center {
		t.Error("shrink moved the center")
	}
	// Shrunk base corner: (4-0.375)*10, (2.5+0.375)*10.
	if got := fit.Points[0]; got != (geom.Vec2{X: 36.25, Y: 28.75}) {
		t.Errorf("first point = %v, want (36.25, 28.75)", got)
	}
}

func TestFitPyramidWithCamera(t *testing.T) {
	model := camera.Model{Intrinsics: camera.NewIntrinsics(800, 800, 320, 240)}
	pose := camera.Pose{Rotation: geom.Identity3(), Translation: geom.Vec3{X: -4, Y: 2.5, Z: 15}}
	pin := camera.NewPinhole()

	var corners []geom.Vec2
	for i := 0; i < 6; i++ {
		for j := 0; j < 9; j++ {
			corners = append(corners, model.ProjectPoint(geom.Vec3{X: float64(j), Y: -float64(i)}, pose))
		}
	}
	boundary, err := BoardBoundary(corners, 9, 6)
	if err != nil {
		t.Fatal(err)
	}

	fit := FitPyramid(pin, pose, model, boundary, NewPyramid(9, 6, 1))
	if fit.Shrunk {
		t.Error("centered pyramid on a frontal board should fit")
	}
	for i, p := range fit.Points {
		if !InsideQuad(p, boundary) {
			t.Errorf("point %d %v outside the board", i, p)
		}
	}
}

func TestDrawPyramid(t *testing.T) {
	c := &recordingCanvas{}
	pts := []geom.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 5, Y: 5}}
	DrawPyramid(c, pts)

	if len(c.lines) != 12 {
		t.Fatalf("drew %d lines, want 12", len(c.lines))
	}
	for i, l := range c.lines[:8] {
		if l.color != Green || l.thickness != 5 {
			t.Errorf("line %d = %v t%v, want green t5", i, l.color, l.thickness)
		}
	}
	for i, l := range c.lines[8:] {
		if l.color != Red || l.thickness != 10 {
			t.Errorf("base line %d = %v t%v, want red t10", i, l.color, l.thickness)
		}
		if l.a != pts[i] || l.b != pts[(i+1)%4] {
			t.Errorf("base line %d runs %v-%v", i, l.a, l.b)
		}
	}
}

func TestDrawAxes(t *testing.T) {
	c := &recordingCanvas{}
	DrawAxes(c, &planeProjector{scale: 1}, camera.Pose{}, camera.Model{}, 1)

	want := []stroke{
		{geom.Vec2{}, geom.Vec2{X: 3}, Red, 3},
		{geom.Vec2{}, geom.Vec2{Y: -3}, Green, 3},
		{geom.Vec2{}, geom.Vec2{}, Blue, 3},
	}
	if len(c.lines) != len(want) {
		t.Fatalf("drew %d lines, want %d", len(c.lines), len(want))
	}
	for i := range want {
		if c.lines[i] != want[i] {
			t.Errorf("axis %d = %+v, want %+v", i, c.lines[i], want[i])
		}
	}
}

func TestProjectMeshOneCallPerVertex(t *testing.T) {
	mesh := &formats.Mesh{Vertices: []formats.Vertex{{X: 1}, {Y: 2}, {Z: 3}}}
	proj := &planeProjector{scale: 2}

	pts := ProjectMesh(proj, mesh, camera.Pose{}, camera.Model{})
	if proj.calls != 3 {
		t.Errorf("projections = %d, want 3", proj.calls)
	}
	want := []geom.Vec2{{X: 2}, {Y: -4}, {}}
	for i := range want {
		if pts[i] != want[i] {
			t.Errorf("vertex %d = %v, want %v", i, pts[i], want[i])
		}
	}
}

func TestDrawMesh(t *testing.T) {
	mesh := &formats.Mesh{
		Vertices: []formats.Vertex{{}, {X: 1}, {Y: 1}},
		Faces: []formats.Face{
			{VertexIndices: []int{1, 2, 3}},
			{VertexIndices: []int{1, 4, 2}},
			{VertexIndices: []int{0, 1}},
		},
	}
	projected := []geom.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	c := &recordingCanvas{}

	skipped := DrawMesh(c, mesh, projected)
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(c.circles) != 3 {
		t.Errorf("drew %d markers, want 3", len(c.circles))
	}
	for _, m := range c.circles {
		if m.color != Green || m.radius != 2 || m.thickness != Filled {
			t.Errorf("marker = %+v, want filled green r2", m)
		}
	}
	if len(c.lines) != 3 {
		t.Fatalf("drew %d edges, want 3", len(c.lines))
	}
	// The polygon closes last to first.
	last := c.lines[2]
	if last.a != projected[2] || last.b != projected[0] {
		t.Errorf("closing edge %v-%v", last.a, last.b)
	}
	if last.color != Blue || last.thickness != 1 {
		t.Errorf("edge style %v t%v, want blue t1", last.color, last.thickness)
	}
}

func TestDrawFeatures(t *testing.T) {
	c := &recordingCanvas{}
	DrawFeatures(c, []geom.Vec2{{X: 1, Y: 1}, {X: 2, Y: 2}})
	if len(c.circles) != 2 {
		t.Fatalf("drew %d rings, want 2", len(c.circles))
	}
	if c.circles[0].radius != 5 || c.circles[0].thickness != 2 || c.circles[0].color != Black {
		t.Errorf("ring = %+v, want black r5 t2", c.circles[0])
	}
}
