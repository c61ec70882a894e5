package volume

import (
	"fmt"
	"math"
)

const (
	axisAlignedThreshold = 1 - 1e-3
	obliqueThreshold     = 1e-3
	maxClipPlanes        = 6
)

// ClipPlane is a half-space cut (point, normal) in world space; normal is
// unit length and points toward the visible half-space.
type ClipPlane struct {
	Point  Vec3
	Normal Vec3
}

// NewClipPlane normalizes normal and rejects a zero-length normal.
func NewClipPlane(point, normal Vec3) (ClipPlane, error) {
	length := normal.Length()
	if length == 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return ClipPlane{}, newErr(InvalidGeometry, "NewClipPlane", fmt.Errorf("zero-length or non-finite normal"))
	}
	return ClipPlane{Point: point, Normal: normal.Scale(1 / length)}, nil
}

// ClipPlaneSet is an ordered collection of 0 to 6 planes. An empty set
// means the full volume is visible.
type ClipPlaneSet []ClipPlane

// Validate checks that there are at most 6 planes, each normal finite,
// nonzero, and already unit length (within epsilon).
func (s ClipPlaneSet) Validate() error {
	if len(s) > maxClipPlanes {
		return newErr(InvalidArgument, "ClipPlaneSet.Validate", fmt.Errorf("too many clip planes: %d > %d", len(s), maxClipPlanes))
	}
	const eps = 1e-6
	for i, p := range s {
		l := p.Normal.Length()
		if math.IsNaN(l) || math.IsInf(l, 0) || l < 1-eps || l > 1+eps {
			return newErr(InvalidGeometry, "ClipPlaneSet.Validate", fmt.Errorf("plane %d: normal length %f not unit", i, l))
		}
		if !isFinite(p.Point) {
			return newErr(InvalidGeometry, "ClipPlaneSet.Validate", fmt.Errorf("plane %d: non-finite point", i))
		}
	}
	return nil
}

func isFinite(v Vec3) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// axisAligned reports whether normal is aligned to a coordinate axis
// within tolerance, and if so, which axis (0=x,1=y,2=z) and sign.
func axisAligned(n Vec3) (axis int, sign float64, ok bool) {
	comps := [3]float64{n.X, n.Y, n.Z}
	for i, c := range comps {
		abs := math.Abs(c)
		if abs <= axisAlignedThreshold {
			continue
		}
		others := 0.0
		for j, o := range comps {
			if j != i {
				others += math.Abs(o)
			}
		}
		if others < obliqueThreshold {
			if c < 0 {
				return i, -1, true
			}
			return i, 1, true
		}
	}
	return -1, 0, false
}

// ClipAABB computes the clipped world AABB for a plane set against
// volumeBounds. Axis-aligned planes cut exactly; oblique planes apply a
// conservative axis projection that only ever shrinks the box.
func (s ClipPlaneSet) ClipAABB(volumeBounds AABB3) AABB3 {
	result := volumeBounds
	for _, p := range s {
		if axis, sign, ok := axisAligned(p.Normal); ok {
			// Visible half-space is where (x-point)·normal >= 0. For an
			// axis-aligned plane this means: if sign>0 (normal points
			// +axis), voxels with coord >= point[axis] are visible, so
			// Min[axis] is raised; if sign<0, Max[axis] is lowered.
			coord := axisCoord(p.Point, axis)
			if sign > 0 {
				result = setAxisMin(result, axis, math.Max(axisCoord(result.Min, axis), coord))
			} else {
				result = setAxisMax(result, axis, math.Min(axisCoord(result.Max, axis), coord))
			}
			continue
		}
		// Oblique plane: project the normal's influence onto the axis it
		// is most aligned with and shrink conservatively — never expands
		// the box. Only that one axis is shrunk; the other two keep their
		// current bounds.
		result = shrinkForObliquePlane(result, p)
	}
	if !result.Valid() {
		// Degenerate (fully clipped away): collapse to a zero-volume box
		// at the original bounds' min, never expanding beyond input.
		return AABB3{Min: volumeBounds.Min, Max: volumeBounds.Min}
	}
	return result
}

func axisCoord(v Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func setAxisMin(b AABB3, axis int, v float64) AABB3 {
	switch axis {
	case 0:
		b.Min.X = v
	case 1:
		b.Min.Y = v
	default:
		b.Min.Z = v
	}
	return b
}

func setAxisMax(b AABB3, axis int, v float64) AABB3 {
	switch axis {
	case 0:
		b.Max.X = v
	case 1:
		b.Max.Y = v
	default:
		b.Max.Z = v
	}
	return b
}

// shrinkForObliquePlane conservatively shrinks b along the axis the
// oblique normal projects most strongly onto, to the extent along that
// axis of the visible part of the box (its visible corners plus the points
// where the plane crosses the box). This guarantees the shrink never
// expands the box and never removes any voxel that the exact (unprojected)
// clip would have kept.
func shrinkForObliquePlane(b AABB3, p ClipPlane) AABB3 {
	comps := [3]float64{p.Normal.X, p.Normal.Y, p.Normal.Z}
	axis := 0
	best := math.Abs(comps[0])
	for i := 1; i < 3; i++ {
		if math.Abs(comps[i]) > best {
			best = math.Abs(comps[i])
			axis = i
		}
	}
	if best == 0 {
		return b
	}
	// Scan every corner's signed distance and track the axis range covered
	// by the visible corners and by the plane's crossings of the segments
	// from each visible corner to each invisible one.
	corners := aabbCorners(b)
	minCoordVisible := math.Inf(1)
	maxCoordVisible := math.Inf(-1)
	anyVisible := false
	for _, c := range corners {
		d := c.Sub(p.Point).Dot(p.Normal)
		coord := axisCoord(c, axis)
		if d >= 0 {
			anyVisible = true
			if coord < minCoordVisible {
				minCoordVisible = coord
			}
			if coord > maxCoordVisible {
				maxCoordVisible = coord
			}
			// The plane's crossing of the segment to an invisible corner is
			// visible too and can lie further out along axis.
			for _, o := range corners {
				do := o.Sub(p.Point).Dot(p.Normal)
				if do >= 0 {
					continue
				}
				x := coord + d/(d-do)*(axisCoord(o, axis)-coord)
				minCoordVisible = math.Min(minCoordVisible, x)
				maxCoordVisible = math.Max(maxCoordVisible, x)
			}
		}
	}
	if !anyVisible {
		return AABB3{Min: b.Min, Max: b.Min}
	}
	sign := comps[axis]
	if sign >= 0 {
		return setAxisMin(b, axis, math.Max(axisCoord(b.Min, axis), minCoordVisible))
	}
	return setAxisMax(b, axis, math.Min(axisCoord(b.Max, axis), maxCoordVisible))
}

func aabbCorners(b AABB3) [8]Vec3 {
	return [8]Vec3{
		{b.Min.X, b.Min.Y, b.Min.Z}, {b.Max.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z}, {b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z}, {b.Max.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z}, {b.Max.X, b.Max.Y, b.Max.Z},
	}
}

// WorldAABBToPixelRegion converts a world-space AABB to a PixelRegion on a
// level given its inverse affine and voxel shape: transform corners to
// voxel space, take component-wise floor/ceil, clamp to shape.
func WorldAABBToPixelRegion(bounds AABB3, invA Mat4, shape Voxel) PixelRegion {
	corners := aabbCorners(bounds)
	minV := Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	maxV := Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, c := range corners {
		v := WorldToVoxel(c, invA)
		minV = Vec3{math.Min(minV.X, v.X), math.Min(minV.Y, v.Y), math.Min(minV.Z, v.Z)}
		maxV = Vec3{math.Max(maxV.X, v.X), math.Max(maxV.Y, v.Y), math.Max(maxV.Z, v.Z)}
	}
	start := Voxel{int(math.Floor(minV.Z)), int(math.Floor(minV.Y)), int(math.Floor(minV.X))}
	end := Voxel{int(math.Ceil(maxV.Z)), int(math.Ceil(maxV.Y)), int(math.Ceil(maxV.X))}
	for i := 0; i < 3; i++ {
		if start[i] < 0 {
			start[i] = 0
		}
		if end[i] > shape[i] {
			end[i] = shape[i]
		}
		if start[i] > end[i] {
			start[i] = end[i]
		}
	}
	return PixelRegion{Start: start, End: end}
}

// AlignToChunks expands a PixelRegion outward to chunk boundaries, clamped
// to the volume shape.
func AlignToChunks(r PixelRegion, chunkShape, volumeShape Voxel) ChunkAlignedRegion {
	var alignedStart, alignedEnd Voxel
	for i := 0; i < 3; i++ {
		c := chunkShape[i]
		if c < 1 {
			c = 1
		}
		alignedStart[i] = (r.Start[i] / c) * c
		if r.Start[i] < 0 {
			alignedStart[i] = 0
		}
		ceilEnd := ((r.End[i] + c - 1) / c) * c
		if r.End[i] <= 0 {
			ceilEnd = 0
		}
		alignedEnd[i] = ceilEnd
		if alignedEnd[i] > volumeShape[i] {
			alignedEnd[i] = volumeShape[i]
		}
		if alignedStart[i] > volumeShape[i] {
			alignedStart[i] = volumeShape[i]
		}
	}
	return ChunkAlignedRegion{PixelRegion: r, AlignedStart: alignedStart, AlignedEnd: alignedEnd}
}

// ShaderPlane is one entry of the ordered shader clip-plane list.
type ShaderPlane struct {
	Depth     float64
	Azimuth   float64
	Elevation float64
}

// disabledShaderPlane is the sentinel emitted when there are no clip
// planes.
var disabledShaderPlane = ShaderPlane{Depth: 2, Azimuth: 0, Elevation: 0}

// ClipPlanesToShader converts a plane set into a renderer's ordered
// (depth, azimuth, elevation) convention (pinned in DESIGN.md): depth is
// signed distance from the buffer AABB center along the normal, normalized
// by the buffer extent projected onto that normal; azimuth/elevation
// encode the negated normal.
func ClipPlanesToShader(planes ClipPlaneSet, bufferAABB AABB3) []ShaderPlane {
	if len(planes) == 0 {
		return []ShaderPlane{disabledShaderPlane}
	}
	center := bufferAABB.Center()
	extent := bufferAABB.Extent()
	out := make([]ShaderPlane, len(planes))
	for i, p := range planes {
		toCenter := center.Sub(p.Point)
		signedDist := toCenter.Dot(p.Normal)
		proj := math.Abs(p.Normal.X)*extent.X + math.Abs(p.Normal.Y)*extent.Y + math.Abs(p.Normal.Z)*extent.Z
		depth := 0.0
		if proj > 0 {
			depth = signedDist / proj
		}
		neg := p.Normal.Scale(-1)
		out[i] = ShaderPlane{
			Depth:     depth,
			Azimuth:   math.Atan2(neg.Y, neg.X),
			Elevation: math.Asin(clampF(neg.Z, -1, 1)),
		}
	}
	return out
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
