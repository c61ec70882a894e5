package volume

import (
	"math"
	"testing"
)

func approxVec(a, b Vec3, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

func TestIdentityMulPoint(t *testing.T) {
	p := Vec3{X: 1, Y: 2, Z: 3}
	got := Identity().MulPoint(p)
	if !approxVec(got, p, 1e-9) {
		t.Fatalf("identity should be a no-op, got %+v", got)
	}
}

func TestBuildAffineScaleTranslation(t *testing.T) {
	lvl := &Level{
		Scale:       []float64{2, 3, 4},
		Translation: []float64{10, 20, 30},
	}
	a, err := BuildAffine(lvl, false, false)
	if err != nil {
		t.Fatalf("BuildAffine: %v", err)
	}
	got := a.MulPoint(Vec3{X: 1, Y: 1, Z: 1})
	want := Vec3{X: 12, Y: 23, Z: 34}
	if !approxVec(got, want, 1e-9) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestBuildAffineArityMismatch(t *testing.T) {
	lvl := &Level{Scale: []float64{1, 1}, Translation: []float64{0, 0, 0}}
	if _, err := BuildAffine(lvl, false, false); err == nil {
		t.Fatal("expected error on scale/translation arity mismatch")
	}
}

func TestInvertRoundTrip(t *testing.T) {
	lvl := &Level{Scale: []float64{2, 3, 4}, Translation: []float64{1, 2, 3}}
	a, err := BuildAffine(lvl, false, false)
	if err != nil {
		t.Fatalf("BuildAffine: %v", err)
	}
	inv, err := a.Invert()
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}
	p := Vec3{X: 5, Y: 7, Z: 9}
	world := a.MulPoint(p)
	back := inv.MulPoint(world)
	if !approxVec(back, p, 1e-6) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", back, p)
	}
}

func TestInvertSingular(t *testing.T) {
	m := Mat4{} // all zero, including diagonal: singular
	if _, err := m.Invert(); err == nil {
		t.Fatal("expected error inverting a singular matrix")
	}
}

func TestAffineForRegionOffsetsOrigin(t *testing.T) {
	lvl := &Level{Scale: []float64{1, 1, 1}, Translation: []float64{0, 0, 0}}
	a, err := BuildAffine(lvl, false, false)
	if err != nil {
		t.Fatalf("BuildAffine: %v", err)
	}
	// regionStart in [z,y,x] order.
	regional := AffineForRegion(a, Voxel{5, 6, 7})
	got := regional.MulPoint(Vec3{})
	want := a.MulPoint(Vec3{X: 7, Y: 6, Z: 5})
	if !approxVec(got, want, 1e-9) {
		t.Fatalf("AffineForRegion origin mismatch: got %+v, want %+v", got, want)
	}
}

func TestBuildAffineFlipY2D(t *testing.T) {
	lvl := &Level{
		Scale:        []float64{1, 1},
		Translation:  []float64{0, 0},
		SpatialShape: []int{100, 50},
	}
	a, err := BuildAffine(lvl, true, true)
	if err != nil {
		t.Fatalf("BuildAffine: %v", err)
	}
	// Row 0 (y=0) should map to the top: world y = extentY = scaleY*shapeY = 50.
	top := a.MulPoint(Vec3{X: 0, Y: 0, Z: 0})
	if math.Abs(top.Y-50) > 1e-9 {
		t.Fatalf("expected row 0 to map to world y=50, got %v", top.Y)
	}
}

func TestWorldBoundsFromShape(t *testing.T) {
	bounds := WorldBoundsFromShape(Identity(), Voxel{2, 3, 4})
	want := AABB3{Min: Vec3{}, Max: Vec3{X: 4, Y: 3, Z: 2}}
	if !approxVec(bounds.Min, want.Min, 1e-9) || !approxVec(bounds.Max, want.Max, 1e-9) {
		t.Fatalf("got %+v, want %+v", bounds, want)
	}
}

func TestOrientationPermutationNegatesRightToLeft(t *testing.T) {
	lvl := &Level{
		Scale:       []float64{1, 1, 1},
		Translation: []float64{10, 0, 0},
		Orientation: []AnatomicalDirection{DirRightToLeft, DirPosteriorToAnterior, DirInferiorToSuperior},
	}
	a, err := BuildAffine(lvl, false, false)
	if err != nil {
		t.Fatalf("BuildAffine: %v", err)
	}
	got := a.MulPoint(Vec3{X: 1, Y: 0, Z: 0})
	if got.X >= 0 {
		t.Fatalf("expected negative x under right-to-left orientation, got %v", got.X)
	}
}
