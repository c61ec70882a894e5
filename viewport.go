package volume

import (
	"sync"
	"time"
)

// DefaultViewportDebounce is the default viewport debounce duration.
const DefaultViewportDebounce = 500 * time.Millisecond

const (
	viewportAbsTol = 1e-6
	viewportRelTol = 1e-3 // 0.1% of extent
)

// ViewportTracker accumulates 3D and per-slab viewport AABBs with a
// debounce, notifying the engine only on a "significant" change. It is
// grounded on a camera's dirty-flag and union-of-corners visible-bounds
// pattern, turned into a timer instead of a per-frame poll since this
// engine has no frame loop of its own (DESIGN.md).
type ViewportTracker struct {
	mu sync.Mutex

	debounce time.Duration
	timer    *time.Timer

	views3D     map[string]AABB3
	current3D   *AABB3
	slabInput   map[SliceType]AABB3
	currentSlab map[SliceType]AABB3

	onChange3D   func(AABB3)
	onChangeSlab func(SliceType, AABB3)
}

// NewViewportTracker creates a tracker with the given debounce duration.
// debounce <= 0 uses DefaultViewportDebounce.
func NewViewportTracker(debounce time.Duration) *ViewportTracker {
	if debounce <= 0 {
		debounce = DefaultViewportDebounce
	}
	return &ViewportTracker{
		debounce:    debounce,
		views3D:     make(map[string]AABB3),
		slabInput:   make(map[SliceType]AABB3),
		currentSlab: make(map[SliceType]AABB3),
	}
}

// OnSignificantChange3D registers the callback invoked when the unioned
// 3D viewport bounds change significantly after debounce.
func (t *ViewportTracker) OnSignificantChange3D(fn func(AABB3)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange3D = fn
}

// OnSignificantChangeSlab registers the callback invoked per slice type
// whose slab bounds change significantly after debounce.
func (t *ViewportTracker) OnSignificantChangeSlab(fn func(SliceType, AABB3)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChangeSlab = fn
}

// SetView3D records or updates one 3D view's bounds and (re)arms the
// debounce timer. Multiple views are unioned on flush.
func (t *ViewportTracker) SetView3D(viewID string, bounds AABB3) {
	t.mu.Lock()
	t.views3D[viewID] = bounds
	t.arm()
	t.mu.Unlock()
}

// RemoveView3D drops a view (e.g. the view was closed) and re-arms the
// debounce so the union is recomputed without it.
func (t *ViewportTracker) RemoveView3D(viewID string) {
	t.mu.Lock()
	delete(t.views3D, viewID)
	t.arm()
	t.mu.Unlock()
}

// SetSlabView records the viewport bounds for one 2D slab axis and arms
// the debounce timer.
func (t *ViewportTracker) SetSlabView(axis SliceType, bounds AABB3) {
	t.mu.Lock()
	t.slabInput[axis] = bounds
	t.arm()
	t.mu.Unlock()
}

// arm must be called with mu held. It (re)starts the debounce timer,
// matching "debounce from last interaction end" semantics.
func (t *ViewportTracker) arm() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.debounce, t.flush)
}

// flush runs on the timer goroutine once debounce elapses. It unions all
// registered 3D views and compares each tracked quantity against the
// previously notified value, invoking callbacks only on significant
// change.
func (t *ViewportTracker) flush() {
	t.mu.Lock()
	var union AABB3
	haveUnion := false
	for _, b := range t.views3D {
		if !haveUnion {
			union = b
			haveUnion = true
			continue
		}
		union = unionAABB(union, b)
	}

	var notify3D *AABB3
	if haveUnion {
		if t.current3D == nil || !t.current3D.ApproxEqual(union, viewportAbsTol, viewportRelTol) {
			u := union
			t.current3D = &u
			notify3D = &u
		}
	}

	type slabNotify struct {
		axis   SliceType
		bounds AABB3
	}
	var slabNotifies []slabNotify
	for axis, bounds := range t.slabInput {
		prev, ok := t.currentSlab[axis]
		if !ok || !prev.ApproxEqual(bounds, viewportAbsTol, viewportRelTol) {
			t.currentSlab[axis] = bounds
			slabNotifies = append(slabNotifies, slabNotify{axis: axis, bounds: bounds})
		}
	}
	cb3D := t.onChange3D
	cbSlab := t.onChangeSlab
	t.mu.Unlock()

	if notify3D != nil && cb3D != nil {
		cb3D(*notify3D)
	}
	if cbSlab != nil {
		for _, n := range slabNotifies {
			cbSlab(n.axis, n.bounds)
		}
	}
}

func unionAABB(a, b AABB3) AABB3 {
	return AABB3{
		Min: Vec3{minF(a.Min.X, b.Min.X), minF(a.Min.Y, b.Min.Y), minF(a.Min.Z, b.Min.Z)},
		Max: Vec3{maxF(a.Max.X, b.Max.X), maxF(a.Max.Y, b.Max.Y), maxF(a.Max.Z, b.Max.Z)},
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Current3D returns the last notified 3D bounds, if any.
func (t *ViewportTracker) Current3D() (AABB3, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current3D == nil {
		return AABB3{}, false
	}
	return *t.current3D, true
}

// CurrentSlab returns the last notified bounds for a slab axis, if any.
func (t *ViewportTracker) CurrentSlab(axis SliceType) (AABB3, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.currentSlab[axis]
	return b, ok
}

// forceFlush runs flush immediately, bypassing any pending debounce,
// matching an explicit "interaction ended" signal from a caller.
func (t *ViewportTracker) forceFlush() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()
	t.flush()
}

// Stop cancels any pending debounce timer (called when the engine is
// dropped).
func (t *ViewportTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}
