package volume

import "fmt"

// LevelGeometry bundles the derived affine and world bounds for one level,
// computed once per selection pass.
type LevelGeometry struct {
	Affine    Mat4
	InvAffine Mat4
	Bounds    AABB3
}

// ComputeLevelGeometry builds the voxel<->world affine and volume bounds
// for one level.
func ComputeLevelGeometry(m *Multiscales, levelIdx int, flipY2D bool) (LevelGeometry, error) {
	lvl := &m.Levels[levelIdx]
	a, err := BuildAffine(lvl, flipY2D, m.Is2D())
	if err != nil {
		return LevelGeometry{}, err
	}
	inv, err := a.Invert()
	if err != nil {
		return LevelGeometry{}, err
	}
	zi, yi, xi := SpatialAxisIndices(m.Axes)
	shape := Voxel{}
	if zi >= 0 {
		shape[0] = lvl.Shape[zi]
	} else {
		shape[0] = 1
	}
	if yi >= 0 {
		shape[1] = lvl.Shape[yi]
	}
	if xi >= 0 {
		shape[2] = lvl.Shape[xi]
	}
	bounds := WorldBoundsFromShape(a, shape)
	return LevelGeometry{Affine: a, InvAffine: inv, Bounds: bounds}, nil
}

// levelShape returns the [z,y,x] voxel shape of a level.
func levelShape(m *Multiscales, levelIdx int) Voxel {
	lvl := &m.Levels[levelIdx]
	zi, yi, xi := SpatialAxisIndices(m.Axes)
	var s Voxel
	if zi >= 0 {
		s[0] = lvl.Shape[zi]
	} else {
		s[0] = 1
	}
	if yi >= 0 {
		s[1] = lvl.Shape[yi]
	}
	if xi >= 0 {
		s[2] = lvl.Shape[xi]
	}
	return s
}

// levelChunkShape returns the [z,y,x] chunk shape of a level.
func levelChunkShape(m *Multiscales, levelIdx int) Voxel {
	lvl := &m.Levels[levelIdx]
	zi, yi, xi := SpatialAxisIndices(m.Axes)
	var s Voxel
	if zi >= 0 {
		s[0] = lvl.ChunkShape[zi]
	} else {
		s[0] = 1
	}
	if yi >= 0 {
		s[1] = lvl.ChunkShape[yi]
	}
	if xi >= 0 {
		s[2] = lvl.ChunkShape[xi]
	}
	return s
}

// SelectLevel3D picks the finest pyramid level whose chunk-aligned,
// clip+viewport-intersected voxel count fits under budget.
// Levels are tried finest (0) to coarsest; if none fit, the coarsest level
// is returned with its own region.
func SelectLevel3D(m *Multiscales, budget int64, planes ClipPlaneSet, viewport *AABB3, flipY2D bool) (level int, region ChunkAlignedRegion, err error) {
	if err := planes.Validate(); err != nil {
		return 0, ChunkAlignedRegion{}, err
	}
	n := len(m.Levels)
	var lastRegion ChunkAlignedRegion
	for lvl := 0; lvl < n; lvl++ {
		geom, err := ComputeLevelGeometry(m, lvl, flipY2D)
		if err != nil {
			return 0, ChunkAlignedRegion{}, err
		}
		clipBounds := planes.ClipAABB(geom.Bounds)
		effective := clipBounds
		if viewport != nil {
			effective = effective.Intersect(*viewport)
		}
		if !effective.Valid() {
			effective = clipBounds
		}
		shape := levelShape(m, lvl)
		chunkShape := levelChunkShape(m, lvl)
		pr := WorldAABBToPixelRegion(effective, geom.InvAffine, shape)
		aligned := AlignToChunks(pr, chunkShape, shape)
		lastRegion = aligned
		if aligned.AlignedVoxelCount() <= budget {
			return lvl, aligned, nil
		}
	}
	return n - 1, lastRegion, nil
}

// SelectLevel2D mirrors SelectLevel3D but collapses the orthogonal axis of
// each candidate level's region to the single chunk containing
// orthoWorldPos, counting voxels over one slab rather than the full volume.
func SelectLevel2D(m *Multiscales, budget int64, planes ClipPlaneSet, viewport *AABB3, axis SliceType, orthoWorldPos float64, flipY2D bool) (level int, region ChunkAlignedRegion, err error) {
	if err := planes.Validate(); err != nil {
		return 0, ChunkAlignedRegion{}, err
	}
	orthoIdx := axis.OrthogonalAxis()
	n := len(m.Levels)
	var lastRegion ChunkAlignedRegion
	for lvl := 0; lvl < n; lvl++ {
		geom, err := ComputeLevelGeometry(m, lvl, flipY2D)
		if err != nil {
			return 0, ChunkAlignedRegion{}, err
		}
		clipBounds := planes.ClipAABB(geom.Bounds)
		effective := clipBounds
		if viewport != nil {
			effective = effective.Intersect(*viewport)
		}
		if !effective.Valid() {
			effective = clipBounds
		}
		shape := levelShape(m, lvl)
		chunkShape := levelChunkShape(m, lvl)
		pr := WorldAABBToPixelRegion(effective, geom.InvAffine, shape)
		aligned := AlignToChunks(pr, chunkShape, shape)

		orthoWorld := Vec3{}
		switch orthoIdx {
		case 0:
			orthoWorld.Z = orthoWorldPos
		case 1:
			orthoWorld.Y = orthoWorldPos
		case 2:
			orthoWorld.X = orthoWorldPos
		}
		orthoVoxel := WorldToVoxel(orthoWorld, geom.InvAffine)
		var voxelPos float64
		switch orthoIdx {
		case 0:
			voxelPos = orthoVoxel.Z
		case 1:
			voxelPos = orthoVoxel.Y
		case 2:
			voxelPos = orthoVoxel.X
		}
		slabStart, slabEnd := slabBoundsForAxis(int(voxelPos), chunkShape[orthoIdx], shape[orthoIdx])
		aligned.Start[orthoIdx] = slabStart
		aligned.End[orthoIdx] = slabEnd
		aligned.AlignedStart[orthoIdx] = slabStart
		aligned.AlignedEnd[orthoIdx] = slabEnd

		lastRegion = aligned
		if aligned.AlignedVoxelCount() <= budget {
			return lvl, aligned, nil
		}
	}
	return n - 1, lastRegion, nil
}

// slabBoundsForAxis computes [slabStart, slabEnd) for one chunk width
// along an orthogonal axis: slabStart = floor(pos
// / chunk) * chunk, slabEnd = min(slabStart+chunk, shape).
func slabBoundsForAxis(voxelPos, chunk, shape int) (start, end int) {
	if chunk < 1 {
		chunk = 1
	}
	start = (voxelPos / chunk) * chunk
	if voxelPos < 0 {
		// floor division toward -inf for negative positions
		start = -(((-voxelPos + chunk - 1) / chunk) * chunk)
	}
	if start < 0 {
		start = 0
	}
	end = start + chunk
	if end > shape {
		end = shape
	}
	if start > shape {
		start = shape
	}
	return
}

// DirectionAwareReselect implements the direction-aware reselection rule
// comparing voxel counts at a fixed reference level (level
// 0) between the previous and current clip/viewport state.
//
//   - reset (planes went non-empty -> empty): callers should instead run
//     the full selector; this function is not used on reset.
//   - volume reduced AND suggested level is finer than current: adopt it.
//   - volume increased AND suggested level is coarser than current: adopt it.
//   - otherwise: keep the current level (prevents oscillation).
func DirectionAwareReselect(prevCount, newCount int64, currentLevel, suggestedLevel int) int {
	switch {
	case newCount < prevCount && suggestedLevel < currentLevel:
		return suggestedLevel
	case newCount > prevCount && suggestedLevel > currentLevel:
		return suggestedLevel
	default:
		return currentLevel
	}
}

// validateLevelIndex is a small guard used by callers resolving an
// explicit level argument.
func validateLevelIndex(m *Multiscales, level int) error {
	if level < 0 || level >= len(m.Levels) {
		return newErr(InvalidArgument, "validateLevelIndex", fmt.Errorf("level %d out of range [0,%d)", level, len(m.Levels)))
	}
	return nil
}
