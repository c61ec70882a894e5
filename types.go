package volume

import "math"

// Vec3 is a 3D vector used for world-space positions, normals, and sizes.
type Vec3 struct {
	X, Y, Z float64
}

// Sub returns a-b.
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// Add returns a+b.
func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

// Scale returns a scaled by s.
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

// Dot returns the dot product of a and b.
func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

// Length returns the Euclidean length of a.
func (a Vec3) Length() float64 { return math.Sqrt(a.Dot(a)) }

// AABB3 is a world-space axis-aligned bounding box.
type AABB3 struct {
	Min, Max Vec3
}

// Valid reports whether the box is non-degenerate (min <= max on every axis).
func (b AABB3) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// Center returns the midpoint of the box.
func (b AABB3) Center() Vec3 {
	return Vec3{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// Extent returns the box's size on each axis.
func (b AABB3) Extent() Vec3 { return b.Max.Sub(b.Min) }

// Intersect returns the intersection of b and o. The result may be
// degenerate (Min > Max on some axis) if the boxes don't overlap; callers
// must check Valid().
func (b AABB3) Intersect(o AABB3) AABB3 {
	return AABB3{
		Min: Vec3{math.Max(b.Min.X, o.Min.X), math.Max(b.Min.Y, o.Min.Y), math.Max(b.Min.Z, o.Min.Z)},
		Max: Vec3{math.Min(b.Max.X, o.Max.X), math.Min(b.Max.Y, o.Max.Y), math.Min(b.Max.Z, o.Max.Z)},
	}
}

// ApproxEqual reports whether b and o differ by no more than absTol in
// absolute terms or relTol of b's extent on every axis — the "significant
// change" test used by the viewport tracker.
func (b AABB3) ApproxEqual(o AABB3, absTol, relTol float64) bool {
	ext := b.Extent()
	axes := [3][2]float64{
		{b.Min.X, o.Min.X}, {b.Min.Y, o.Min.Y}, {b.Min.Z, o.Min.Z},
	}
	extVals := [3]float64{ext.X, ext.Y, ext.Z}
	for i, pair := range axes {
		if !closeEnough(pair[0], pair[1], absTol, relTol*extVals[i]) {
			return false
		}
	}
	maxAxes := [3][2]float64{
		{b.Max.X, o.Max.X}, {b.Max.Y, o.Max.Y}, {b.Max.Z, o.Max.Z},
	}
	for i, pair := range maxAxes {
		if !closeEnough(pair[0], pair[1], absTol, relTol*extVals[i]) {
			return false
		}
	}
	return true
}

func closeEnough(a, b, absTol, relTol float64) bool {
	d := math.Abs(a - b)
	return d <= absTol || d <= relTol
}

// Voxel is an integer [z,y,x] index or extent, the ordering used
// throughout this package for region math.
type Voxel [3]int

// PixelRegion is a half-open voxel interval [Start, End) on a specific
// level, in [z,y,x] order (z=1 for 2D).
type PixelRegion struct {
	Start, End Voxel
}

// Dims returns End-Start on each axis.
func (r PixelRegion) Dims() Voxel {
	return Voxel{r.End[0] - r.Start[0], r.End[1] - r.Start[1], r.End[2] - r.Start[2]}
}

// VoxelCount returns the product of Dims(), i.e. the number of voxels
// covered by the region.
func (r PixelRegion) VoxelCount() int64 {
	d := r.Dims()
	return int64(d[0]) * int64(d[1]) * int64(d[2])
}

// Empty reports whether the region covers zero voxels.
func (r PixelRegion) Empty() bool {
	d := r.Dims()
	return d[0] <= 0 || d[1] <= 0 || d[2] <= 0
}

// ChunkAlignedRegion is a PixelRegion expanded outward to chunk boundaries,
// clamped to the volume.
type ChunkAlignedRegion struct {
	PixelRegion
	AlignedStart, AlignedEnd Voxel
}

// AlignedDims returns AlignedEnd-AlignedStart on each axis.
func (r ChunkAlignedRegion) AlignedDims() Voxel {
	return Voxel{
		r.AlignedEnd[0] - r.AlignedStart[0],
		r.AlignedEnd[1] - r.AlignedStart[1],
		r.AlignedEnd[2] - r.AlignedStart[2],
	}
}

// AlignedVoxelCount returns the product of AlignedDims().
func (r ChunkAlignedRegion) AlignedVoxelCount() int64 {
	d := r.AlignedDims()
	return int64(d[0]) * int64(d[1]) * int64(d[2])
}

// ComponentLayout is the per-voxel component count, a tagged variant
// replacing a runtime-typed pixel array plus type-branching.
type ComponentLayout uint8

const (
	Scalar ComponentLayout = 1
	RGB    ComponentLayout = 3
	RGBA   ComponentLayout = 4
)

// ElementKind distinguishes integer vs float storage.
type ElementKind uint8

const (
	ElementInt ElementKind = iota
	ElementUint
	ElementFloat
)

// ElementType describes a chunk's scalar storage width and kind.
type ElementType struct {
	Kind ElementKind
	Bits int // 8, 16, 32, 64
}

// Uint8 is the normalized-output element type.
var Uint8 = ElementType{Kind: ElementUint, Bits: 8}

// ByteSize returns the storage size of one scalar element in bytes.
func (e ElementType) ByteSize() int { return e.Bits / 8 }

// SliceType identifies a 2D slab orientation.
type SliceType uint8

const (
	SliceAxial SliceType = iota
	SliceCoronal
	SliceSagittal
)

// OrthogonalAxis returns the voxel axis index (0=z,1=y,2=x) that is
// collapsed for this slice type.
func (s SliceType) OrthogonalAxis() int {
	switch s {
	case SliceAxial:
		return 0
	case SliceCoronal:
		return 1
	case SliceSagittal:
		return 2
	default:
		return 0
	}
}

// String implements fmt.Stringer for log/event messages.
func (s SliceType) String() string {
	switch s {
	case SliceAxial:
		return "axial"
	case SliceCoronal:
		return "coronal"
	case SliceSagittal:
		return "sagittal"
	default:
		return "unknown"
	}
}

// OmeroWindow is a per-channel display intensity range.
type OmeroWindow struct {
	Start, End float64
}
