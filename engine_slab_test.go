package volume

import (
	"testing"
	"time"
)

func TestOnSliceTypeChangePopulatesAllThreeOrientations(t *testing.T) {
	m := testMultiscales()
	store := newFakeStore(Uint8, Scalar, Voxel{64, 64, 64})
	f := false
	opts := testOptions()
	opts.AutoLoad = &f
	e, err := NewEngine(m, store, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()

	for _, axis := range []SliceType{SliceAxial, SliceCoronal, SliceSagittal} {
		done := make(chan struct{}, 1)
		handle := e.Subscribe(EventSlabLoadingComplete, func(ev Event) {
			if ev.Axis == axis {
				select {
				case done <- struct{}{}:
				default:
				}
			}
		})
		e.OnSliceTypeChange(axis)
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for slab load on axis %s", axis)
		}
		handle.Unsubscribe()

		if e.SlabBytes(axis) == nil {
			t.Fatalf("expected slab buffer for axis %s to be populated", axis)
		}
		hdr := e.SlabHeader(axis)
		if hdr.Dims[0] != 2 {
			t.Fatalf("expected a 2D slab header for axis %s, got Dims %v", axis, hdr.Dims)
		}
	}
}

func TestOnCrosshairMoveReloadsOutsideSlabBoundsAfterDebounce(t *testing.T) {
	m := testMultiscales()
	store := newFakeStore(Uint8, Scalar, Voxel{64, 64, 64})
	f := false
	opts := testOptions()
	opts.AutoLoad = &f
	e, err := NewEngine(m, store, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()

	first := make(chan struct{}, 1)
	e.Subscribe(EventSlabLoadingComplete, func(Event) {
		select {
		case first <- struct{}{}:
		default:
		}
	})
	e.OnSliceTypeChange(SliceAxial)
	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial slab load")
	}

	second := make(chan struct{}, 1)
	e.Subscribe(EventSlabLoadingComplete, func(Event) {
		select {
		case second <- struct{}{}:
		default:
		}
	})
	// Move far enough along the orthogonal (z) axis to fall outside the
	// currently loaded slab bounds.
	e.OnCrosshairMove(SliceAxial, Vec3{X: 0, Y: 0, Z: 200})

	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced reload after crosshair move")
	}
}

func TestOnCrosshairMoveWithinSlabBoundsDoesNotReload(t *testing.T) {
	m := testMultiscales()
	store := newFakeStore(Uint8, Scalar, Voxel{64, 64, 64})
	f := false
	opts := testOptions()
	opts.AutoLoad = &f
	e, err := NewEngine(m, store, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()

	done := make(chan struct{}, 1)
	e.Subscribe(EventSlabLoadingComplete, func(Event) {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	e.OnSliceTypeChange(SliceAxial)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial slab load")
	}

	before := e.SlabHeader(SliceAxial)

	reloaded := make(chan struct{}, 1)
	e.Subscribe(EventSlabLoadingComplete, func(Event) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	// A tiny nudge near the origin should stay within the currently loaded
	// slab's voxel bounds and not trigger a reload.
	e.OnCrosshairMove(SliceAxial, Vec3{X: 0, Y: 0, Z: 0.001})

	select {
	case <-reloaded:
		t.Fatal("did not expect a reload for a crosshair move within slab bounds")
	case <-time.After(150 * time.Millisecond):
	}

	after := e.SlabHeader(SliceAxial)
	if before.Affine != after.Affine {
		t.Fatal("expected slab header to be unchanged when no reload occurred")
	}
}

func TestLoadSlabLatestWinsUnderConcurrentCalls(t *testing.T) {
	m := testMultiscales()
	store := newFakeStore(Uint8, Scalar, Voxel{64, 64, 64})
	store.delay = make(chan struct{})
	f := false
	opts := testOptions()
	opts.AutoLoad = &f
	e, err := NewEngine(m, store, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()

	go e.loadSlab(SliceAxial, Vec3{}, TriggerSliceChanged)
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{}, 1)
	e.Subscribe(EventSlabLoadingComplete, func(Event) {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	go e.loadSlab(SliceAxial, Vec3{Z: 10}, TriggerSliceChanged)
	time.Sleep(20 * time.Millisecond)
	close(store.delay)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the superseding slab load to complete")
	}
}
