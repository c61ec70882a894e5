package volume

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCoalescerFetchRegionAssemblesChunks(t *testing.T) {
	store := newFakeStore(Uint8, Scalar, Voxel{1, 4, 4})
	cache := NewChunkCache(10)
	c := NewCoalescer(store, cache)

	region := AlignToChunks(PixelRegion{Start: Voxel{0, 0, 0}, End: Voxel{1, 8, 8}}, Voxel{1, 4, 4}, Voxel{1, 8, 8})
	key := fetchKeyFor(0, region, 0)
	out, err := c.FetchRegion(context.Background(), "arr", key, region, Voxel{1, 4, 4}, Uint8, Scalar)
	if err != nil {
		t.Fatalf("FetchRegion: %v", err)
	}
	if len(out) != 64 {
		t.Fatalf("got %d bytes, want 64", len(out))
	}
}

func TestCoalescerCachesChunksAcrossFetches(t *testing.T) {
	store := newFakeStore(Uint8, Scalar, Voxel{1, 4, 4})
	cache := NewChunkCache(10)
	c := NewCoalescer(store, cache)

	region := AlignToChunks(PixelRegion{Start: Voxel{0, 0, 0}, End: Voxel{1, 4, 4}}, Voxel{1, 4, 4}, Voxel{1, 4, 4})
	key := fetchKeyFor(0, region, 0)

	if _, err := c.FetchRegion(context.Background(), "arr", key, region, Voxel{1, 4, 4}, Uint8, Scalar); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := c.FetchRegion(context.Background(), "arr", key, region, Voxel{1, 4, 4}, Uint8, Scalar); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if got := store.readCount("arr", ChunkCoord{0, 0, 0}, 0); got != 1 {
		t.Fatalf("expected exactly 1 store read (second hit the cache), got %d", got)
	}
}

func TestCoalescerDeduplicatesConcurrentIdenticalRequests(t *testing.T) {
	store := newFakeStore(Uint8, Scalar, Voxel{1, 4, 4})
	store.delay = make(chan struct{})
	cache := NewChunkCache(10)
	c := NewCoalescer(store, cache)

	region := AlignToChunks(PixelRegion{Start: Voxel{0, 0, 0}, End: Voxel{1, 4, 4}}, Voxel{1, 4, 4}, Voxel{1, 4, 4})
	key := fetchKeyFor(0, region, 0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.FetchRegion(context.Background(), "arr", key, region, Voxel{1, 4, 4}, Uint8, Scalar)
			if err != nil {
				t.Errorf("FetchRegion: %v", err)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond) // let all 5 calls reach the in-flight map
	close(store.delay)
	wg.Wait()

	if got := store.readCount("arr", ChunkCoord{0, 0, 0}, 0); got != 1 {
		t.Fatalf("expected exactly 1 store read across concurrent duplicate requests, got %d", got)
	}
}

func TestCoalescerIdleAndWaitIdle(t *testing.T) {
	store := newFakeStore(Uint8, Scalar, Voxel{1, 4, 4})
	cache := NewChunkCache(10)
	c := NewCoalescer(store, cache)
	if !c.Idle() {
		t.Fatal("expected idle coalescer before any fetch")
	}

	region := AlignToChunks(PixelRegion{Start: Voxel{0, 0, 0}, End: Voxel{1, 4, 4}}, Voxel{1, 4, 4}, Voxel{1, 4, 4})
	key := fetchKeyFor(0, region, 0)
	if _, err := c.FetchRegion(context.Background(), "arr", key, region, Voxel{1, 4, 4}, Uint8, Scalar); err != nil {
		t.Fatalf("FetchRegion: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.WaitIdle(ctx, time.Millisecond); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
}

func TestCoalescerPropagatesStoreFailure(t *testing.T) {
	store := newFakeStore(Uint8, Scalar, Voxel{1, 4, 4})
	store.fail = true
	cache := NewChunkCache(10)
	c := NewCoalescer(store, cache)

	region := AlignToChunks(PixelRegion{Start: Voxel{0, 0, 0}, End: Voxel{1, 4, 4}}, Voxel{1, 4, 4}, Voxel{1, 4, 4})
	key := fetchKeyFor(0, region, 0)
	_, err := c.FetchRegion(context.Background(), "arr", key, region, Voxel{1, 4, 4}, Uint8, Scalar)
	if err == nil {
		t.Fatal("expected an error from a failing store")
	}
}
