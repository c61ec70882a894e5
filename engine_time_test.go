package volume

import (
	"testing"
	"time"
)

func timeAwareMultiscales() *Multiscales {
	m := testMultiscales()
	m.Axes = append([]Axis{{Name: "t", Type: AxisTime}}, m.Axes...)
	for i := range m.Levels {
		m.Levels[i].Shape = append([]int{5}, m.Levels[i].Shape...)
		m.Levels[i].ChunkShape = append([]int{1}, m.Levels[i].ChunkShape...)
	}
	return m
}

func TestPrefetchAdjacentFramesPopulatesTimeFrameCache(t *testing.T) {
	m := timeAwareMultiscales()
	store := newFakeStore(Uint8, Scalar, Voxel{64, 64, 64})
	opts := testOptions()
	opts.TimePrefetchCount = 1
	e, err := NewEngine(m, store, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	waitIdle(t, e)

	if err := e.SetTimeIndex(2); err != nil {
		t.Fatalf("SetTimeIndex(2): %v", err)
	}
	waitIdle(t, e)

	e.mu.Lock()
	_, haveLeft := e.timeFrames[1]
	_, haveRight := e.timeFrames[3]
	e.mu.Unlock()
	if !haveLeft || !haveRight {
		t.Fatalf("expected adjacent frames 1 and 3 to be prefetched into the cache (left=%v right=%v)", haveLeft, haveRight)
	}
}

func TestPrefetchSkipsOutOfRangeFrames(t *testing.T) {
	m := timeAwareMultiscales()
	store := newFakeStore(Uint8, Scalar, Voxel{64, 64, 64})
	opts := testOptions()
	opts.TimePrefetchCount = 2
	e, err := NewEngine(m, store, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	waitIdle(t, e)

	if err := e.SetTimeIndex(0); err != nil {
		t.Fatalf("SetTimeIndex(0): %v", err)
	}
	waitIdle(t, e)

	e.mu.Lock()
	_, haveNegativeOne := e.timeFrames[-1]
	_, haveNegativeTwo := e.timeFrames[-2]
	e.mu.Unlock()
	if haveNegativeOne || haveNegativeTwo {
		t.Fatal("expected out-of-range negative frame indices to never be cached")
	}
}

func TestPrefetchUsesNativeElementTypeWhenNoNormalizationNeeded(t *testing.T) {
	m := timeAwareMultiscales()
	// Scalar element type requires no RGB/RGBA normalization.
	store := newFakeStore(Uint8, Scalar, Voxel{64, 64, 64})
	opts := testOptions()
	opts.TimePrefetchCount = 1
	e, err := NewEngine(m, store, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	waitIdle(t, e)

	if err := e.SetTimeIndex(2); err != nil {
		t.Fatalf("SetTimeIndex(2): %v", err)
	}
	waitIdle(t, e)

	e.mu.Lock()
	entry := e.timeFrames[1]
	e.mu.Unlock()
	if entry.elemType != Uint8 {
		t.Fatalf("expected cached frame to keep the native scalar element type, got %v", entry.elemType)
	}
}

func TestPrefetchNormalizesRGBFrames(t *testing.T) {
	m := timeAwareMultiscales()
	uint16Type := ElementType{Kind: ElementUint, Bits: 16}
	store := newFakeStore(uint16Type, RGB, Voxel{64, 64, 64})
	opts := testOptions()
	opts.TimePrefetchCount = 1
	e, err := NewEngine(m, store, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	waitIdle(t, e)

	if err := e.SetTimeIndex(2); err != nil {
		t.Fatalf("SetTimeIndex(2): %v", err)
	}
	waitIdle(t, e)

	e.mu.Lock()
	entry, ok := e.timeFrames[1]
	e.mu.Unlock()
	if !ok {
		t.Fatal("expected prefetched RGB frame to be cached")
	}
	if entry.elemType != Uint8 {
		t.Fatalf("expected a normalized RGB frame to be stored as uint8, got %v", entry.elemType)
	}
}

func TestSetTimeIndexSameIndexIsNoOp(t *testing.T) {
	m := timeAwareMultiscales()
	store := newFakeStore(Uint8, Scalar, Voxel{64, 64, 64})
	e, err := NewEngine(m, store, testOptions())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	waitIdle(t, e)

	fired := make(chan struct{}, 1)
	e.Subscribe(EventTimeChange, func(Event) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err := e.SetTimeIndex(0); err != nil {
		t.Fatalf("SetTimeIndex(0): %v", err)
	}
	select {
	case <-fired:
		t.Fatal("did not expect EventTimeChange when setting the already-current time index")
	case <-time.After(100 * time.Millisecond):
	}
}
