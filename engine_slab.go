package volume

import (
	"context"
	"math"
	"runtime"
	"time"
)

// slabState tracks one 2D slice orientation's independent load pipeline.
// Slabs for different axes are independent and may interleave arbitrarily
// with 3D loads and with each other.
type slabState struct {
	axis SliceType

	buffer *Buffer
	header Header

	loading  bool
	abort    context.CancelFunc
	pending  *pendingSlab
	debounce *time.Timer

	slabStart, slabEnd int // voxel bounds on the orthogonal axis, current level
	level              int
	crosshair          Vec3
	haveCrosshair      bool
}

type pendingSlab struct {
	worldCoord Vec3
	trigger    Trigger
}

func (e *Engine) slabFor(axis SliceType) *slabState {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.slabs[axis]
	if !ok {
		s = &slabState{axis: axis, buffer: NewBuffer(e.m.Levels[0].ElementType, e.m.Levels[0].Components)}
		e.slabs[axis] = s
	}
	return s
}

func (e *Engine) slabCrosshair(axis SliceType) Vec3 {
	s := e.slabFor(axis)
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.crosshair
}

// OnSliceTypeChange ensures a slab state exists for axis and starts a load
// if axis is a 2D slab orientation.
func (e *Engine) OnSliceTypeChange(axis SliceType) {
	s := e.slabFor(axis)
	e.mu.Lock()
	coord := s.crosshair
	e.mu.Unlock()
	e.loadSlab(axis, coord, TriggerSliceChanged)
}

// OnCrosshairMove updates the tracked crosshair position and, if it moved
// outside the currently loaded slab bounds, debounces a reload.
func (e *Engine) OnCrosshairMove(axis SliceType, worldCoord Vec3) {
	s := e.slabFor(axis)

	e.mu.Lock()
	s.crosshair = worldCoord
	s.haveCrosshair = true
	level := s.level
	slabStart, slabEnd := s.slabStart, s.slabEnd
	hasSlab := s.buffer.View() != nil
	e.mu.Unlock()

	if !hasSlab {
		e.loadSlab(axis, worldCoord, TriggerSliceChanged)
		return
	}

	geom, err := ComputeLevelGeometry(e.m, level, *e.options.FlipY2D)
	if err != nil {
		debugf("crosshair geometry failed: %v", err)
		return
	}
	voxel := WorldToVoxel(worldCoord, geom.InvAffine)
	orthoIdx := axis.OrthogonalAxis()
	var pos float64
	switch orthoIdx {
	case 0:
		pos = voxel.Z
	case 1:
		pos = voxel.Y
	case 2:
		pos = voxel.X
	}
	if int(pos) >= slabStart && int(pos) < slabEnd {
		return
	}

	e.mu.Lock()
	if s.debounce != nil {
		s.debounce.Stop()
	}
	debounce := e.options.SlabScrollDebounce
	s.debounce = time.AfterFunc(debounce, func() {
		e.loadSlab(axis, worldCoord, TriggerSliceChanged)
	})
	e.mu.Unlock()
}

// loadSlab runs the 2D slab loader for axis at worldCoord. Concurrent
// calls for the same axis are latest-wins, mirroring Populate.
func (e *Engine) loadSlab(axis SliceType, worldCoord Vec3, trigger Trigger) {
	s := e.slabFor(axis)

	e.mu.Lock()
	if s.loading {
		s.pending = &pendingSlab{worldCoord: worldCoord, trigger: trigger}
		abort := s.abort
		e.mu.Unlock()
		if abort != nil {
			abort()
		}
		return
	}
	s.loading = true
	ctx, cancel := context.WithCancel(context.Background())
	s.abort = cancel
	e.mu.Unlock()

	err := e.runSlabLoad(ctx, s, worldCoord, trigger)

	e.mu.Lock()
	s.loading = false
	s.abort = nil
	pending := s.pending
	s.pending = nil
	e.mu.Unlock()

	if pending != nil {
		e.loadSlab(axis, pending.worldCoord, pending.trigger)
		return
	}
	if err != nil && !IsCancelled(err) {
		debugf("slab load failed (axis %s): %v", axis, err)
	}
}

func (e *Engine) runSlabLoad(ctx context.Context, s *slabState, worldCoord Vec3, trigger Trigger) error {
	orthoIdx := s.axis.OrthogonalAxis()
	planes := e.currentPlanes()
	var viewport *AABB3
	if e.viewportAwareSnapshot() {
		if b, ok := e.viewport.CurrentSlab(s.axis); ok {
			viewport = &b
		}
	}

	var orthoWorldPos float64
	switch orthoIdx {
	case 0:
		orthoWorldPos = worldCoord.Z
	case 1:
		orthoWorldPos = worldCoord.Y
	case 2:
		orthoWorldPos = worldCoord.X
	}

	target, _, err := SelectLevel2D(e.m, e.options.MaxPixels, planes, viewport, s.axis, orthoWorldPos, *e.options.FlipY2D)
	if err != nil {
		return err
	}

	startLevel := len(e.m.Levels) - 1
	if trigger == TriggerViewportChanged {
		startLevel = target
	}

	e.sink.emit(Event{Type: EventSlabLoadingStart, Trigger: trigger, Axis: s.axis, Level: target})

	step := -1
	if startLevel < target {
		step = 1
	}
	for lvl := startLevel; ; lvl += step {
		if err := ctx.Err(); err != nil {
			return newErr(Cancelled, "Engine.loadSlab", err)
		}
		if err := e.loadSlabLevel(ctx, s, lvl, orthoWorldPos, trigger); err != nil {
			return err
		}
		if lvl == target {
			break
		}
		// Progressive steps yield so a caller's render loop can paint the
		// intermediate level before the next fetch begins.
		runtime.Gosched()
	}

	e.sink.emit(Event{Type: EventSlabLoadingComplete, Trigger: trigger, Axis: s.axis, Level: target, SlabStart: s.slabStart, SlabEnd: s.slabEnd})
	return nil
}

func (e *Engine) loadSlabLevel(ctx context.Context, s *slabState, level int, orthoWorldPos float64, trigger Trigger) error {
	if err := validateLevelIndex(e.m, level); err != nil {
		return err
	}
	planes := e.currentPlanes()
	geom, err := ComputeLevelGeometry(e.m, level, *e.options.FlipY2D)
	if err != nil {
		return err
	}
	clipBounds := planes.ClipAABB(geom.Bounds)
	shape := levelShape(e.m, level)
	chunkShape := levelChunkShape(e.m, level)
	pr := WorldAABBToPixelRegion(clipBounds, geom.InvAffine, shape)
	region := AlignToChunks(pr, chunkShape, shape)

	orthoIdx := s.axis.OrthogonalAxis()
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
	region.Start[orthoIdx] = slabStart
	region.End[orthoIdx] = slabEnd
	region.AlignedStart[orthoIdx] = slabStart
	region.AlignedEnd[orthoIdx] = slabEnd

	lvl := &e.m.Levels[level]
	arrayID := arrayIDFor(level)
	key := fetchKeyFor(level, region, e.timeIndexSnapshot())
	raw, err := e.coalescer.FetchRegion(ctx, arrayID, key, region, chunkShape, lvl.ElementType, lvl.Components)
	if err != nil {
		return err
	}

	dims := region.AlignedDims()

	e.mu.Lock()
	var out []byte
	if needsNormalization(lvl.Components) {
		s.buffer.SetFormat(Uint8, lvl.Components)
		out = s.buffer.Resize(dims)
		windows := e.channelWindows(raw, lvl.ElementType, int(lvl.Components))
		NormalizeBuffer(raw, lvl.ElementType, int(lvl.Components), windows, out)
	} else {
		s.buffer.SetFormat(lvl.ElementType, lvl.Components)
		out = s.buffer.Resize(dims)
		copy(out, raw)
	}

	sx, sy, sz := lvl.ScaleXYZ()
	regionAffine := AffineForRegion(geom.Affine, region.AlignedStart)
	// Zero the orthogonal axis's size (orthoIdx is [z,y,x], sizes are
	// [x,y,z]) so only the in-plane sizes feed the rescale factor.
	inPlane := [3]float64{sx, sy, sz}
	inPlane[2-orthoIdx] = 0
	scale := slabRescaleFactor(inPlane[0], inPlane[1], inPlane[2])
	s.header = Header{
		Dims:       [8]int{2, dims[2], dims[1], 1, 1, 1, 1, 1},
		PixelSize:  [3]float64{sx / scale, sy / scale, sz / scale},
		Affine:     scaleAffine(regionAffine, scale),
		DType:      s.buffer.ElementType(),
		Components: s.buffer.Components(),
		CoordScale: scale,
	}
	s.level = level
	s.slabStart, s.slabEnd = slabStart, slabEnd
	e.mu.Unlock()
	return nil
}

// slabRescaleFactor returns the geometric mean of the positive sizes among
// sx, sy, sz (the caller passes the in-plane physical pixel sizes and zero
// for the orthogonal axis), the uniform divisor that brings PixelSize near
// unit magnitude for a given slab (spec §4.9 step 3's "coordinate rescale
// ... for renderer numerical stability"). Falls back to 1 (no rescale)
// when the inputs can't produce a sane positive factor.
func slabRescaleFactor(sx, sy, sz float64) float64 {
	vals := make([]float64, 0, 3)
	for _, v := range [3]float64{sx, sy, sz} {
		if v > 0 {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 1
	}
	product := 1.0
	for _, v := range vals {
		product *= v
	}
	factor := math.Pow(product, 1/float64(len(vals)))
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return 1
	}
	return factor
}

func (e *Engine) timeIndexSnapshot() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeIndex
}

// SlabHeader returns a snapshot of one axis's current slab header.
func (e *Engine) SlabHeader(axis SliceType) Header {
	s := e.slabFor(axis)
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.header
}

// SlabBytes returns the live view of one axis's slab buffer.
func (e *Engine) SlabBytes(axis SliceType) []byte {
	s := e.slabFor(axis)
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.buffer.View()
}
