package volume

import (
	"fmt"
	"math"
)

// Mat4 is a column-major 4x4 affine matrix: m[col*4+row]. The bottom row is
// always [0,0,0,1], so only the 3x3 rotation/scale block and the
// translation column carry information.
//
// This generalizes a hand-rolled 2D affine convention ([a b c d tx ty],
// composed by multiplication) to three dimensions instead of importing a
// linear-algebra package — see DESIGN.md.
type Mat4 [16]float64

// Identity returns the identity affine.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func (m Mat4) at(row, col int) float64 { return m[col*4+row] }

func (m *Mat4) set(row, col int, v float64) { m[col*4+row] = v }

// Mul returns m*o (apply o first, then m).
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += m.at(row, k) * o.at(k, col)
			}
			r.set(row, col, sum)
		}
	}
	return r
}

// MulPoint applies the affine to a point (w=1 implied), returning the
// transformed 3-vector.
func (m Mat4) MulPoint(p Vec3) Vec3 {
	return Vec3{
		X: m.at(0, 0)*p.X + m.at(0, 1)*p.Y + m.at(0, 2)*p.Z + m.at(0, 3),
		Y: m.at(1, 0)*p.X + m.at(1, 1)*p.Y + m.at(1, 2)*p.Z + m.at(1, 3),
		Z: m.at(2, 0)*p.X + m.at(2, 1)*p.Y + m.at(2, 2)*p.Z + m.at(2, 3),
	}
}

// rotScale3x3 returns the upper-left 3x3 block as rows of Vec3, used by
// affineForRegion to push a voxel offset through the orientation/scale
// block without touching translation separately.
func (m Mat4) rotScale3x3() [3]Vec3 {
	return [3]Vec3{
		{m.at(0, 0), m.at(0, 1), m.at(0, 2)},
		{m.at(1, 0), m.at(1, 1), m.at(1, 2)},
		{m.at(2, 0), m.at(2, 1), m.at(2, 2)},
	}
}

// Invert computes the affine inverse, exploiting the fact that the bottom
// row is always [0,0,0,1]: invert the 3x3 block and recompute translation
// as -R^-1 * t.
func (m Mat4) Invert() (Mat4, error) {
	a := [3][3]float64{
		{m.at(0, 0), m.at(0, 1), m.at(0, 2)},
		{m.at(1, 0), m.at(1, 1), m.at(1, 2)},
		{m.at(2, 0), m.at(2, 1), m.at(2, 2)},
	}
	det := a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
	if math.Abs(det) < 1e-12 {
		return Mat4{}, newErr(InvalidGeometry, "Mat4.Invert", fmt.Errorf("singular affine"))
	}
	invDet := 1 / det
	var inv [3][3]float64
	inv[0][0] = (a[1][1]*a[2][2] - a[1][2]*a[2][1]) * invDet
	inv[0][1] = (a[0][2]*a[2][1] - a[0][1]*a[2][2]) * invDet
	inv[0][2] = (a[0][1]*a[1][2] - a[0][2]*a[1][1]) * invDet
	inv[1][0] = (a[1][2]*a[2][0] - a[1][0]*a[2][2]) * invDet
	inv[1][1] = (a[0][0]*a[2][2] - a[0][2]*a[2][0]) * invDet
	inv[1][2] = (a[0][2]*a[1][0] - a[0][0]*a[1][2]) * invDet
	inv[2][0] = (a[1][0]*a[2][1] - a[1][1]*a[2][0]) * invDet
	inv[2][1] = (a[0][1]*a[2][0] - a[0][0]*a[2][1]) * invDet
	inv[2][2] = (a[0][0]*a[1][1] - a[0][1]*a[1][0]) * invDet

	t := Vec3{m.at(0, 3), m.at(1, 3), m.at(2, 3)}
	it := Vec3{
		X: inv[0][0]*t.X + inv[0][1]*t.Y + inv[0][2]*t.Z,
		Y: inv[1][0]*t.X + inv[1][1]*t.Y + inv[1][2]*t.Z,
		Z: inv[2][0]*t.X + inv[2][1]*t.Y + inv[2][2]*t.Z,
	}

	var r Mat4
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r.set(row, col, inv[row][col])
		}
	}
	r.set(0, 3, -it.X)
	r.set(1, 3, -it.Y)
	r.set(2, 3, -it.Z)
	r.set(3, 3, 1)
	return r, nil
}

// BuildAffine constructs the voxel->world affine for a level:
//  1. diag(scale) + translation.
//  2. If orientation is present, compose a signed-permutation orientation
//     matrix (negative anatomical directions contribute sign -1).
//  3. For 2D images with flipY2D, apply an additional y negation plus a
//     compensating translation so pixel (0,0) is the top-left corner.
func BuildAffine(lvl *Level, flipY2D bool, is2D bool) (Mat4, error) {
	n := len(lvl.Scale)
	if n != len(lvl.Translation) {
		return Mat4{}, newErr(InvalidArgument, "BuildAffine", fmt.Errorf("scale/translation arity mismatch"))
	}

	a := Identity()
	for i := 0; i < n && i < 3; i++ {
		a.set(i, i, lvl.Scale[i])
		a.set(i, 3, lvl.Translation[i])
	}

	if len(lvl.Orientation) > 0 {
		perm, err := orientationPermutation(lvl.Orientation)
		if err != nil {
			return Mat4{}, err
		}
		scale := Identity()
		for i := 0; i < n && i < 3; i++ {
			scale.set(i, i, lvl.Scale[i])
		}
		rotScale := perm.Mul(scale)
		a = rotScale
		for i := 0; i < n && i < 3; i++ {
			// translation sign-flipped on axes whose permutation entry is
			// negative.
			sign := 1.0
			for row := 0; row < 3; row++ {
				if rotScale.at(row, i) < 0 {
					sign = -1
					break
				}
			}
			a.set(i, 3, lvl.Translation[i]*sign)
		}
	}

	if is2D && flipY2D {
		// Negate the y row and add a compensating translation of
		// scaleY*extentY so pixel row 0 maps to the top-left world
		// corner instead of the bottom-left.
		for col := 0; col < 3; col++ {
			a.set(1, col, -a.at(1, col))
		}
		if len(lvl.Scale) > 1 && len(lvl.SpatialShape) > 1 {
			extentY := lvl.Scale[1] * float64(lvl.SpatialShape[1])
			a.set(1, 3, a.at(1, 3)+extentY)
		}
	}

	return a, nil
}

// orientationPermutation builds the signed 3x3 permutation matrix that
// maps each storage axis to its physical row (R/L=0, A/P=1, S/I=2). Axes
// lacking a physicalRow fall back to the identity row (no permutation for
// that axis).
func orientationPermutation(dirs []AnatomicalDirection) (Mat4, error) {
	m := Mat4{} // zeroed; we fill explicitly, including the homogeneous row
	m.set(3, 3, 1)
	used := map[int]bool{}
	for axis, d := range dirs {
		if axis >= 3 {
			break
		}
		row := d.physicalRow()
		if row < 0 {
			row = axis // undirected: identity placement
		}
		if used[row] {
			return Mat4{}, newErr(InvalidGeometry, "orientationPermutation", fmt.Errorf("duplicate physical row %d", row))
		}
		used[row] = true
		sign := 1.0
		if d.negative() {
			sign = -1
		}
		m.set(row, axis, sign)
	}
	// With fewer than three entries in dirs, the physical rows no axis
	// mapped to stay zero; no check is made that every row received a
	// nonzero entry.
	return m, nil
}

// WorldToVoxel maps a world point to voxel space using the affine inverse.
func WorldToVoxel(world Vec3, invA Mat4) Vec3 {
	return invA.MulPoint(world)
}

// VoxelToWorld maps a voxel point to world space.
func VoxelToWorld(voxel Vec3, a Mat4) Vec3 {
	return a.MulPoint(voxel)
}

// AffineForRegion composes an offset through the 3x3 rotation/scale block
// so that voxel [0,0,0] in the result lands on the same world position as
// regionStart did under the full affine.
// regionStart is in [z,y,x] order; it is converted to [x,y,z] internally.
func AffineForRegion(a Mat4, regionStart Voxel) Mat4 {
	offsetXYZ := Vec3{X: float64(regionStart[2]), Y: float64(regionStart[1]), Z: float64(regionStart[0])}
	rs := a.rotScale3x3()
	delta := Vec3{
		X: rs[0].Dot(offsetXYZ),
		Y: rs[1].Dot(offsetXYZ),
		Z: rs[2].Dot(offsetXYZ),
	}
	r := a
	r.set(0, 3, a.at(0, 3)+delta.X)
	r.set(1, 3, a.at(1, 3)+delta.Y)
	r.set(2, 3, a.at(2, 3)+delta.Z)
	return r
}

// scaleAffine divides the transform's 3x4 block (rotation/scale and
// translation alike) by factor, producing the affine for a uniformly
// rescaled coordinate system: if a maps voxel->world, the result maps
// voxel->(world/factor). The homogeneous row is left untouched.
func scaleAffine(a Mat4, factor float64) Mat4 {
	r := a
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			r.set(row, col, a.at(row, col)/factor)
		}
	}
	return r
}

// WorldBoundsFromShape returns the world-space AABB of a voxel volume of
// the given shape ([z,y,x] order) under affine a, by transforming all
// eight corners and reducing to min/max.
func WorldBoundsFromShape(a Mat4, shape Voxel) AABB3 {
	z, y, x := float64(shape[0]), float64(shape[1]), float64(shape[2])
	corners := [8]Vec3{
		{0, 0, 0}, {x, 0, 0}, {0, y, 0}, {x, y, 0},
		{0, 0, z}, {x, 0, z}, {0, y, z}, {x, y, z},
	}
	var bounds AABB3
	for i, c := range corners {
		w := a.MulPoint(c)
		if i == 0 {
			bounds = AABB3{Min: w, Max: w}
			continue
		}
		bounds.Min = Vec3{math.Min(bounds.Min.X, w.X), math.Min(bounds.Min.Y, w.Y), math.Min(bounds.Min.Z, w.Z)}
		bounds.Max = Vec3{math.Max(bounds.Max.X, w.X), math.Max(bounds.Max.Y, w.Y), math.Max(bounds.Max.Z, w.Z)}
	}
	return bounds
}
