package geom

import (
	"math"
	"testing"
)

func TestVec2Add(t *testing.T) {
	a := Vec2{1, 2}
	b := Vec2{3, 4}
	got := a.Add(b)
	want := Vec2{4, 6}
	if got != want {
		t.Errorf("Vec2.Add() = %v, want %v", got, want)
	}
}

func TestVec2Length(t *testing.T) {
	v := Vec2{3, 4}
	if got := v.Length(); got != 5 {
		t.Errorf("Vec2.Length() = %v, want 5", got)
	}
}

func TestVec2Normalize(t *testing.T) {
	n := Vec2{3, 4}.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec2.Normalize().Length() = %v, want ~1", l)
	}
	if (Vec2{}).Normalize() != (Vec2{}) {
		t.Error("zero vector should normalize to zero")
	}
}

func TestVec2IsFinite(t *testing.T) {
	if !(Vec2{1, 2}).IsFinite() {
		t.Error("expected finite")
	}
	if (Vec2{math.NaN(), 0}).IsFinite() {
		t.Error("NaN should not be finite")
	}
	if (Vec2{0, math.Inf(-1)}).IsFinite() {
		t.Error("Inf should not be finite")
	}
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestMat3MulIdentity(t *testing.T) {
	m := Mat3{1, 2, 3, 4, 5, 6, 7, 8, 10}
	if got := m.Mul(Identity3()); got != m {
		t.Errorf("M * I = %v, want %v", got, m)
	}
	if got := Identity3().Mul(m); got != m {
		t.Errorf("I * M = %v, want %v", got, m)
	}
}

func TestMat3Inverse(t *testing.T) {
	m := Mat3{800, 0, 320, 0, 790, 240, 0, 0, 1}
	inv, ok := m.Inverse()
	if !ok {
		t.Fatal("matrix should be invertible")
	}
	got := m.Mul(inv)
	for i := range got {
		if math.Abs(got[i]-Identity3()[i]) > 1e-12 {
			t.Fatalf("M * M^-1 element %d = %f", i, got[i])
		}
	}

	if _, ok := (Mat3{}).Inverse(); ok {
		t.Error("zero matrix should be singular")
	}
}

func TestMat3ColsRows(t *testing.T) {
	m := FromCols(Vec3{1, 2, 3}, Vec3{4, 5, 6}, Vec3{7, 8, 9})
	if m.Row(0) != (Vec3{1, 4, 7}) {
		t.Errorf("Row(0) = %v", m.Row(0))
	}
	if m.Col(2) != (Vec3{7, 8, 9}) {
		t.Errorf("Col(2) = %v", m.Col(2))
	}
	if m.At(1, 2) != 8 {
		t.Errorf("At(1,2) = %v", m.At(1, 2))
	}
}

func TestRodriguesRoundTrip(t *testing.T) {
	tests := []Vec3{
		{0, 0, 0},
		{0.3, 0, 0},
		{0, -0.7, 0},
		{0.1, 0.2, -0.3},
		{1.2, -0.4, 0.9},
	}

	for _, r := range tests {
		m := Rodrigues(r)
		if d := m.Det(); math.Abs(d-1) > 1e-9 {
			t.Errorf("Rodrigues(%v) det = %f, want 1", r, d)
		}
		back := m.RotationVector()
		if back.Distance(r) > 1e-9 {
			t.Errorf("RotationVector(Rodrigues(%v)) = %v", r, back)
		}
	}
}

func TestRodriguesRotatesAxis(t *testing.T) {
	// 90 degrees about Z maps X onto Y.
	m := Rodrigues(Vec3{0, 0, math.Pi / 2})
	got := m.MulVec(Vec3{1, 0, 0})
	if got.Distance(Vec3{0, 1, 0}) > 1e-12 {
		t.Errorf("got %v, want (0, 1, 0)", got)
	}
}

func TestContourArea(t *testing.T) {
	tests := []struct {
		name string
		poly []Vec2
		want float64
	}{
		{"unit square ccw", []Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, 1},
		{"unit square cw", []Vec2{{0, 0}, {0, 1}, {1, 1}, {1, 0}}, 1},
		{"triangle", []Vec2{{0, 0}, {4, 0}, {0, 3}}, 6},
		{"degenerate", []Vec2{{0, 0}, {1, 1}}, 0},
		{"collinear", []Vec2{{0, 0}, {1, 1}, {2, 2}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContourArea(tt.poly); got != tt.want {
				t.Errorf("ContourArea() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignedAreaOrientation(t *testing.T) {
	ccw := []Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	cw := []Vec2{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
	if SignedArea(ccw) <= 0 {
		t.Error("counter-clockwise polygon should be positive")
	}
	if SignedArea(cw) >= 0 {
		t.Error("clockwise polygon should be negative")
	}
}
