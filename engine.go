package volume

import (
	"context"
	"math"
	"sync"
	"time"
)

// Header is the renderer-facing description of the current buffer: voxel
// dims, physical pixel size, orientation affine, element/component layout,
// and display parameters. It is rebuilt after every successful load.
type Header struct {
	// Dims follows [rank, fx, fy, fz, 1, 1, 1, 1] (x,y,z ordering), the
	// layout a renderer expects regardless of storage axis order.
	Dims [8]int
	// PixelSize is the physical voxel size ([x,y,z]) at the loaded level.
	PixelSize [3]float64
	// Affine maps voxel coordinates of the loaded region to world space.
	Affine Mat4
	DType  ElementType
	// Components is Scalar unless normalization produced RGB/RGBA.
	Components ComponentLayout
	CalMin     float64
	CalMax     float64
	// LabelColormap is non-nil only for label images (engine_label.go).
	LabelColormap []ColorRGBA
	// CoordScale is the uniform factor PixelSize and Affine were divided by
	// to keep pixel dims near unit magnitude for renderer numerical
	// stability (spec §4.9 step 3): world = CoordScale * (affine-mapped
	// point). 1 for the 3D buffer, which is never rescaled.
	CoordScale float64
}

// ColorRGBA is one entry of a discrete label colormap.
type ColorRGBA struct {
	R, G, B, A uint8
}

type pendingPopulate struct {
	skipPreview bool
	trigger     Trigger
	// explicitLevel is set only for a pending LoadLevel request; nil means
	// the pending request is a budget-selected Populate.
	explicitLevel *int
}

// Engine is the central orchestrator: it exclusively owns the 3D
// buffer, the coalescer, the chunk cache, the slab states, and the
// time-frame cache. Components receive shared read access to Multiscales,
// which is treated as immutable after construction.
type Engine struct {
	mu sync.Mutex

	m       *Multiscales
	store   Store
	options Options

	cache     *ChunkCache
	coalescer *Coalescer
	viewport  *ViewportTracker
	sink      *eventSink

	buffer *Buffer
	header Header

	planes       ClipPlaneSet
	currentLevel int
	targetLevel  int
	timeIndex    int

	viewportAware bool

	loading3D   bool
	abort3D     context.CancelFunc
	pending3D   *pendingPopulate
	lastRegion  ChunkAlignedRegion
	lastLevel   int
	haveRegion  bool
	lastCount0  int64
	haveCount0  bool

	clipDebounce *time.Timer

	slabs map[SliceType]*slabState

	timeFrames map[int]timeFrameEntry

	prefetchCancel context.CancelFunc
	prefetching    map[int]bool
}

type timeFrameEntry struct {
	data       []byte
	dims       Voxel
	elemType   ElementType
	components ComponentLayout
	calMin     float64
	calMax     float64
}

// NewEngine constructs an Engine over m, fetching chunks from store. Zero
// Options fields take their documented defaults. If options.AutoLoad is
// true (the default), Populate is kicked off immediately.
func NewEngine(m *Multiscales, store Store, options Options) (*Engine, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	options = options.setDefaults()

	cache := options.Cache
	if cache == nil {
		cache = NewChunkCache(options.MaxCacheEntries)
	}

	e := &Engine{
		m:           m,
		store:       store,
		options:     options,
		cache:       cache,
		coalescer:   NewCoalescer(store, cache),
		viewport:    NewViewportTracker(options.ViewportDebounce),
		sink:        newEventSink(),
		buffer:      NewBuffer(m.Levels[0].ElementType, m.Levels[0].Components),
		timeIndex:   options.TimeIndex,
		slabs:       make(map[SliceType]*slabState),
		timeFrames:  make(map[int]timeFrameEntry),
		prefetching: make(map[int]bool),
	}
	e.viewport.OnSignificantChange3D(e.handleViewport3DChange)
	e.viewport.OnSignificantChangeSlab(e.handleViewportSlabChange)

	if *options.AutoLoad {
		if err := e.Populate(false, TriggerInitial); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Subscribe registers fn for events of type typ, returning a handle that
// can later unsubscribe it.
func (e *Engine) Subscribe(typ EventType, fn func(Event)) CallbackHandle {
	return e.sink.subscribe(typ, fn)
}

// Header returns a snapshot of the current renderer-facing header.
func (e *Engine) Header() Header {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.header
}

// CurrentLevel returns the level most recently loaded into the 3D buffer.
func (e *Engine) CurrentLevel() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentLevel
}

// BufferBytes returns the live view of the 3D buffer.
func (e *Engine) BufferBytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer.View()
}

// SetViewportAware toggles whether viewport bounds narrow resolution
// selection at all; when false, selection always uses the full clipped
// volume bounds.
func (e *Engine) SetViewportAware(aware bool) {
	e.mu.Lock()
	e.viewportAware = aware
	e.mu.Unlock()
}

// SetViewport3D records or updates one 3D view's world bounds under viewID,
// clamping the implied zoom to [MinZoom3D, MaxZoom3D] first.
func (e *Engine) SetViewport3D(viewID string, bounds AABB3) {
	e.viewport.SetView3D(viewID, e.clampZoom3D(bounds))
}

// clampZoom3D rescales bounds around its own center so the ratio of the
// level-0 reference extent to the viewport extent stays within
// [MinZoom3D, MaxZoom3D]. A zero bound on either side leaves that side
// unbounded, matching Options.MinZoom3D/MaxZoom3D's documented default.
func (e *Engine) clampZoom3D(bounds AABB3) AABB3 {
	if e.options.MinZoom3D <= 0 && e.options.MaxZoom3D <= 0 {
		return bounds
	}
	geom, err := ComputeLevelGeometry(e.m, 0, *e.options.FlipY2D)
	if err != nil {
		return bounds
	}
	refExtent := geom.Bounds.Extent()
	viewExtent := bounds.Extent()
	ref := math.Max(refExtent.X, math.Max(refExtent.Y, refExtent.Z))
	view := math.Max(viewExtent.X, math.Max(viewExtent.Y, viewExtent.Z))
	if ref <= 0 || view <= 0 {
		return bounds
	}
	zoom := ref / view
	clamped := zoom
	if e.options.MinZoom3D > 0 && clamped < e.options.MinZoom3D {
		clamped = e.options.MinZoom3D
	}
	if e.options.MaxZoom3D > 0 && clamped > e.options.MaxZoom3D {
		clamped = e.options.MaxZoom3D
	}
	if clamped == zoom {
		return bounds
	}
	factor := zoom / clamped
	center := bounds.Center()
	half := bounds.Extent().Scale(factor / 2)
	return AABB3{
		Min: center.Sub(half),
		Max: center.Add(half),
	}
}

// RemoveViewport3D drops a previously registered 3D view.
func (e *Engine) RemoveViewport3D(viewID string) {
	e.viewport.RemoveView3D(viewID)
}

// SetViewportSlab records the viewport bounds driving resolution selection
// for one slab axis.
func (e *Engine) SetViewportSlab(axis SliceType, bounds AABB3) {
	e.viewport.SetSlabView(axis, bounds)
}

// OnViewportEnd forces an immediate significant-change check instead of
// waiting for the viewport tracker's own debounce, matching an explicit
// "interaction ended" signal from the caller.
func (e *Engine) OnViewportEnd() {
	e.viewport.forceFlush()
}

func (e *Engine) handleViewport3DChange(bounds AABB3) {
	e.mu.Lock()
	if !e.viewportAware {
		e.mu.Unlock()
		return
	}
	prevLevel := e.targetLevel
	prevCount := e.lastCount0
	haveCount := e.haveCount0
	prevRegion := e.lastRegion
	haveRegion := e.haveRegion
	e.mu.Unlock()

	b := bounds
	planes := e.currentPlanes()
	level, _, err := SelectLevel3D(e.m, e.options.MaxPixels, planes, &b, *e.options.FlipY2D)
	if err != nil {
		debugf("viewport reselect failed: %v", err)
		return
	}
	newCount0 := e.count0ForPlanes(planes)
	if haveCount {
		level = DirectionAwareReselect(prevCount, newCount0, prevLevel, level)
	}

	newRegion, err := e.regionForLevel(level, planes, &b)
	if err != nil {
		debugf("viewport region compute failed: %v", err)
		return
	}
	if level == prevLevel && haveRegion && newRegion == prevRegion {
		return
	}
	e.mu.Lock()
	e.invalidateTimeFrames()
	e.mu.Unlock()
	if err := e.Populate(true, TriggerViewportChanged); err != nil {
		debugf("populate after viewport change failed: %v", err)
	}
}

func (e *Engine) handleViewportSlabChange(axis SliceType, bounds AABB3) {
	if !e.viewportAwareSnapshot() {
		return
	}
	e.loadSlab(axis, e.slabCrosshair(axis), TriggerViewportChanged)
}

func (e *Engine) viewportAwareSnapshot() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewportAware
}

func (e *Engine) currentPlanes() ClipPlaneSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(ClipPlaneSet, len(e.planes))
	copy(out, e.planes)
	return out
}

// regionForLevel computes the chunk-aligned pixel region that would be
// fetched for level under planes and viewport, without touching the buffer
// or cache. It is the single source of truth both for the reference voxel
// count direction-aware reselection compares across calls and for deciding
// whether a reselection actually changes what gets fetched.
func (e *Engine) regionForLevel(level int, planes ClipPlaneSet, viewport *AABB3) (ChunkAlignedRegion, error) {
	geom, err := ComputeLevelGeometry(e.m, level, *e.options.FlipY2D)
	if err != nil {
		return ChunkAlignedRegion{}, err
	}
	clipBounds := planes.ClipAABB(geom.Bounds)
	effective := clipBounds
	if viewport != nil {
		if i := effective.Intersect(*viewport); i.Valid() {
			effective = i
		}
	}
	shape := levelShape(e.m, level)
	chunkShape := levelChunkShape(e.m, level)
	pr := WorldAABBToPixelRegion(effective, geom.InvAffine, shape)
	return AlignToChunks(pr, chunkShape, shape), nil
}

// count0ForPlanes computes the aligned voxel count at level 0 under planes
// with no viewport narrowing, the reference quantity direction-aware
// reselection compares across calls.
func (e *Engine) count0ForPlanes(planes ClipPlaneSet) int64 {
	region, err := e.regionForLevel(0, planes, nil)
	if err != nil {
		return 0
	}
	return region.AlignedVoxelCount()
}

// Populate runs the 3D loader: loads an optional coarse preview, then the
// budget-selected target level. Concurrent calls are latest-wins: a call
// arriving while one is in flight replaces the sole pending request and
// aborts the in-flight controller. An aborted load whose fetch had already
// completed still installs that result before the pending request runs;
// the newest request's results are the last to reach the buffer.
func (e *Engine) Populate(skipPreview bool, trigger Trigger) error {
	return e.beginLoad3D(&pendingPopulate{skipPreview: skipPreview, trigger: trigger})
}

// LoadLevel explicitly loads level into the 3D buffer, bypassing
// budget-based resolution selection (spec's public-control-surface
// loadLevel(explicit)). It shares Populate's latest-wins concurrency: a call
// arriving while a 3D load is in flight replaces the sole pending request.
func (e *Engine) LoadLevel(level int, trigger Trigger) error {
	if err := validateLevelIndex(e.m, level); err != nil {
		return err
	}
	lvl := level
	return e.beginLoad3D(&pendingPopulate{trigger: trigger, explicitLevel: &lvl})
}

// beginLoad3D runs req now if no 3D load is in flight, otherwise installs it
// as the sole pending request and aborts the in-flight controller, so the
// newest request's results are the last to reach the buffer (an aborted
// load whose fetch had already completed may still install its result
// first).
func (e *Engine) beginLoad3D(req *pendingPopulate) error {
	e.mu.Lock()
	if e.loading3D {
		replaced := e.pending3D != nil && e.pending3D.trigger != req.trigger
		e.pending3D = req
		abort := e.abort3D
		e.mu.Unlock()
		if abort != nil {
			abort()
		}
		if replaced {
			e.sink.emit(Event{Type: EventLoadingSkipped, Trigger: req.trigger, Reason: "superseded by newer populate"})
		}
		return nil
	}
	e.loading3D = true
	ctx, cancel := context.WithCancel(context.Background())
	e.abort3D = cancel
	e.mu.Unlock()

	var err error
	if req.explicitLevel != nil {
		err = e.runLoadLevel(ctx, *req.explicitLevel, req.trigger)
	} else {
		err = e.runPopulate(ctx, req.skipPreview, req.trigger)
	}

	e.mu.Lock()
	e.loading3D = false
	e.abort3D = nil
	pending := e.pending3D
	e.pending3D = nil
	e.mu.Unlock()

	if pending != nil {
		return e.beginLoad3D(pending)
	}

	if err != nil {
		if IsCancelled(err) {
			return nil
		}
		return err
	}

	e.sink.emit(Event{Type: EventPopulateComplete, Trigger: req.trigger, Level: e.CurrentLevel(), TargetLevel: e.CurrentLevel()})
	if e.m.TimeAxisIndex() >= 0 {
		e.prefetchAdjacentFrames(e.timeIndex)
	}
	return nil
}

// runLoadLevel loads level directly, skipping budget-based selection, then
// maintains the same targetLevel/lastRegion/lastCount0 bookkeeping
// runPopulate does so later direction-aware reselection and region-aware
// reload gating stay consistent with an explicitly loaded level.
func (e *Engine) runLoadLevel(ctx context.Context, level int, trigger Trigger) error {
	e.mu.Lock()
	e.invalidateTimeFrames()
	e.mu.Unlock()

	if err := e.loadLevel(ctx, level, e.timeIndex, trigger, false); err != nil {
		return err
	}

	planes := e.currentPlanes()
	region, err := e.regionForLevel(level, planes, e.currentViewport3D())
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.targetLevel = level
	e.lastRegion = region
	e.lastLevel = level
	e.haveRegion = true
	e.lastCount0 = e.count0ForPlanes(planes)
	e.haveCount0 = true
	e.mu.Unlock()
	return nil
}

func (e *Engine) runPopulate(ctx context.Context, skipPreview bool, trigger Trigger) error {
	viewport := e.currentViewport3D()
	target, region, err := SelectLevel3D(e.m, e.options.MaxPixels, e.currentPlanes(), viewport, *e.options.FlipY2D)
	if err != nil {
		return err
	}

	if !skipPreview {
		coarsest := len(e.m.Levels) - 1
		if coarsest != target {
			if err := e.loadLevel(ctx, coarsest, e.timeIndex, trigger, true); err != nil {
				return err
			}
		}
	}

	if err := e.loadLevel(ctx, target, e.timeIndex, trigger, false); err != nil {
		return err
	}

	e.mu.Lock()
	e.targetLevel = target
	e.lastRegion = region
	e.lastLevel = target
	e.haveRegion = true
	e.lastCount0 = e.count0ForPlanes(e.currentPlanes())
	e.haveCount0 = true
	e.mu.Unlock()
	return nil
}

func (e *Engine) currentViewport3D() *AABB3 {
	if !e.viewportAwareSnapshot() {
		return nil
	}
	if b, ok := e.viewport.Current3D(); ok {
		return &b
	}
	return nil
}

// loadLevel fetches and installs one level into the 3D buffer.
func (e *Engine) loadLevel(ctx context.Context, level int, timeIndex int, trigger Trigger, isPreview bool) error {
	if err := validateLevelIndex(e.m, level); err != nil {
		return err
	}
	e.sink.emit(Event{Type: EventLoadingStart, Trigger: trigger, Level: level})

	viewport := e.currentViewport3D()
	planes := e.currentPlanes()
	geom, err := ComputeLevelGeometry(e.m, level, *e.options.FlipY2D)
	if err != nil {
		e.sink.emit(Event{Type: EventLoadingError, Trigger: trigger, ErrKind: InvalidGeometry, Err: err})
		return err
	}
	clipBounds := planes.ClipAABB(geom.Bounds)
	effective := clipBounds
	if viewport != nil {
		if i := effective.Intersect(*viewport); i.Valid() {
			effective = i
		}
	}
	shape := levelShape(e.m, level)
	chunkShape := levelChunkShape(e.m, level)
	pr := WorldAABBToPixelRegion(effective, geom.InvAffine, shape)
	region := AlignToChunks(pr, chunkShape, shape)

	lvl := &e.m.Levels[level]
	arrayID := arrayIDFor(level)
	key := fetchKeyFor(level, region, timeIndex)
	raw, err := e.coalescer.FetchRegion(ctx, arrayID, key, region, chunkShape, lvl.ElementType, lvl.Components)
	if err != nil {
		if IsCancelled(err) {
			return err
		}
		var ek Kind = StoreFailure
		if ae, ok := err.(*Error); ok {
			ek = ae.Kind
		}
		e.sink.emit(Event{Type: EventLoadingError, Trigger: trigger, ErrKind: ek, Err: err})
		return err
	}

	dims := region.AlignedDims()

	e.mu.Lock()

	isLabel := e.m.Label
	var calMin, calMax float64
	var labelColors []ColorRGBA
	var out []byte

	if isLabel {
		e.buffer.SetFormat(lvl.ElementType, Scalar)
		out = e.buffer.Resize(dims)
		copy(out, raw)
		labelColors = computeLabelColormap(raw, lvl.ElementType)
	} else if needsNormalization(lvl.Components) {
		e.buffer.SetFormat(Uint8, lvl.Components)
		out = e.buffer.Resize(dims)
		windows := e.channelWindows(raw, lvl.ElementType, int(lvl.Components))
		NormalizeBuffer(raw, lvl.ElementType, int(lvl.Components), windows, out)
		if len(windows) > 0 {
			calMin, calMax = windows[0].Start, windows[0].End
		}
	} else {
		e.buffer.SetFormat(lvl.ElementType, lvl.Components)
		out = e.buffer.Resize(dims)
		copy(out, raw)
		if len(e.m.OmeroWindows) > 0 {
			calMin, calMax = e.m.OmeroWindows[0].Start, e.m.OmeroWindows[0].End
		}
	}

	sx, sy, sz := lvl.ScaleXYZ()
	regionAffine := AffineForRegion(geom.Affine, region.AlignedStart)
	e.header = Header{
		Dims:          [8]int{3, dims[2], dims[1], dims[0], 1, 1, 1, 1},
		PixelSize:     [3]float64{sx, sy, sz},
		Affine:        regionAffine,
		DType:         e.buffer.ElementType(),
		Components:    e.buffer.Components(),
		CalMin:        calMin,
		CalMax:        calMax,
		LabelColormap: labelColors,
		CoordScale:    1,
	}

	previous := e.currentLevel
	e.currentLevel = level
	if !isPreview {
		e.timeFrames[timeIndex] = timeFrameEntry{
			data:       append([]byte(nil), out...),
			dims:       dims,
			elemType:   e.buffer.ElementType(),
			components: e.buffer.Components(),
			calMin:     calMin,
			calMax:     calMax,
		}
	}

	changed := previous != level
	e.mu.Unlock()
	if changed {
		e.sink.emit(Event{Type: EventResolutionChange, Trigger: trigger, PreviousLevel: previous, Level: level, TargetLevel: level})
	}
	e.sink.emit(Event{Type: EventLoadingComplete, Trigger: trigger, Level: level})
	return nil
}

func needsNormalization(c ComponentLayout) bool {
	return c == RGB || c == RGBA
}

func (e *Engine) channelWindows(raw []byte, elemType ElementType, components int) []OmeroWindow {
	if e.options.Omero != nil {
		if w, err := e.options.Omero.ChannelWindows(e.m); err == nil && len(w) > 0 {
			return w
		}
	}
	if len(e.m.OmeroWindows) > 0 {
		return e.m.OmeroWindows
	}
	return ComputeChannelMinMax(raw, elemType, components)
}

func arrayIDFor(level int) string {
	return "level-" + itoa(level)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// invalidateTimeFrames clears the time-frame cache. Must be called with mu
// held.
func (e *Engine) invalidateTimeFrames() {
	e.timeFrames = make(map[int]timeFrameEntry)
}

// SetClipPlanes validates and installs a new clip-plane set, debouncing the
// resulting reselection/reload.
func (e *Engine) SetClipPlanes(planes ClipPlaneSet) error {
	if err := planes.Validate(); err != nil {
		return err
	}
	normalized := make(ClipPlaneSet, len(planes))
	for i, p := range planes {
		np, err := NewClipPlane(p.Point, p.Normal)
		if err != nil {
			return err
		}
		normalized[i] = np
	}

	e.mu.Lock()
	wasEmpty := len(e.planes) == 0
	isReset := !wasEmpty && len(normalized) == 0
	e.planes = normalized
	if e.clipDebounce != nil {
		e.clipDebounce.Stop()
	}
	debounce := e.options.ClipPlaneDebounce
	e.mu.Unlock()

	e.sink.emit(Event{Type: EventClipPlanesChange, Trigger: TriggerClipPlanesChanged, Planes: normalized})

	e.mu.Lock()
	e.clipDebounce = time.AfterFunc(debounce, func() {
		e.onClipPlaneDebounceFired(isReset)
	})
	e.mu.Unlock()
	return nil
}

func (e *Engine) onClipPlaneDebounceFired(isReset bool) {
	e.mu.Lock()
	prevLevel := e.targetLevel
	prevCount := e.lastCount0
	haveCount := e.haveCount0
	prevRegion := e.lastRegion
	haveRegion := e.haveRegion
	planes := make(ClipPlaneSet, len(e.planes))
	copy(planes, e.planes)
	e.mu.Unlock()

	viewport := e.currentViewport3D()
	suggested, _, err := SelectLevel3D(e.m, e.options.MaxPixels, planes, viewport, *e.options.FlipY2D)
	if err != nil {
		debugf("clip-plane reselect failed: %v", err)
		return
	}

	newLevel := suggested
	if !isReset && haveCount {
		newCount0 := e.count0ForPlanes(planes)
		newLevel = DirectionAwareReselect(prevCount, newCount0, prevLevel, suggested)
	}

	newRegion, err := e.regionForLevel(newLevel, planes, viewport)
	if err != nil {
		debugf("clip-plane region compute failed: %v", err)
		return
	}
	if newLevel == prevLevel && haveRegion && newRegion == prevRegion {
		return
	}

	e.mu.Lock()
	e.invalidateTimeFrames()
	e.mu.Unlock()

	if err := e.Populate(true, TriggerClipPlanesChanged); err != nil {
		debugf("populate after clip-plane change failed: %v", err)
	}
}

// AddClipPlane appends a plane to the current set and applies it.
func (e *Engine) AddClipPlane(p ClipPlane) error {
	e.mu.Lock()
	next := append(append(ClipPlaneSet{}, e.planes...), p)
	e.mu.Unlock()
	return e.SetClipPlanes(next)
}

// RemoveClipPlane drops the plane at index i and applies the result.
func (e *Engine) RemoveClipPlane(i int) error {
	e.mu.Lock()
	if i < 0 || i >= len(e.planes) {
		e.mu.Unlock()
		return newErr(InvalidArgument, "RemoveClipPlane", nil)
	}
	next := append(append(ClipPlaneSet{}, e.planes[:i]...), e.planes[i+1:]...)
	e.mu.Unlock()
	return e.SetClipPlanes(next)
}

// ClearClipPlanes removes every clip plane.
func (e *Engine) ClearClipPlanes() error {
	return e.SetClipPlanes(nil)
}

// WaitIdle blocks until no 3D or slab load is in flight, no pending
// requests remain, no time-frame prefetch is outstanding, and the coalescer
// reports idle. Armed debounce timers (clip-plane, viewport, slab scroll)
// are not tracked: a change whose debounce has not yet fired is not waited
// for.
func (e *Engine) WaitIdle(ctx context.Context) error {
	const pollInterval = 10 * time.Millisecond
	for {
		if e.isIdle() && e.coalescer.Idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return newErr(Cancelled, "Engine.WaitIdle", ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

func (e *Engine) isIdle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loading3D || e.pending3D != nil {
		return false
	}
	for _, s := range e.slabs {
		if s.loading || s.pending != nil {
			return false
		}
	}
	if len(e.prefetching) > 0 {
		return false
	}
	return true
}

// Close stops all debounce timers and the viewport tracker.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.clipDebounce != nil {
		e.clipDebounce.Stop()
	}
	for _, s := range e.slabs {
		if s.debounce != nil {
			s.debounce.Stop()
		}
	}
	e.mu.Unlock()
	e.viewport.Stop()
}
