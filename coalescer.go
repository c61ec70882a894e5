package volume

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Coalescer deduplicates concurrent chunk-region fetches and assembles
// decoded chunks into one contiguous element buffer. Request dedup uses
// golang.org/x/sync/singleflight (a sibling package of the errgroup
// already pulled in transitively — see DESIGN.md); per-chunk fan-out
// within one region fetch uses errgroup, grounded on an object-storage
// chunk reader's bounded concurrent-fetch pattern (DESIGN.md).
type Coalescer struct {
	store Store
	cache *ChunkCache
	group singleflight.Group

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCoalescer creates a coalescer backed by store and cache.
func NewCoalescer(store Store, cache *ChunkCache) *Coalescer {
	return &Coalescer{store: store, cache: cache, inFlight: make(map[string]struct{})}
}

// Idle reports whether the in-flight map is currently empty.
func (c *Coalescer) Idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight) == 0
}

// WaitIdle blocks, polling at pollInterval, until Idle() or ctx is done.
func (c *Coalescer) WaitIdle(ctx context.Context, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Millisecond
	}
	for {
		if c.Idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return newErr(Cancelled, "Coalescer.WaitIdle", ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

func fetchKeyString(arrayID string, k FetchKey) string {
	return fmt.Sprintf("%s|%d|%v|%v|%d", arrayID, k.Level, k.AlignedStart, k.AlignedEnd, k.Time)
}

// FetchRegion fetches and assembles every chunk covered by region's
// aligned bounds, deduplicating concurrent identical requests. The
// returned bytes hold the region packed in row-major [z,y,x] order at the
// element type/components given.
func (c *Coalescer) FetchRegion(ctx context.Context, arrayID string, key FetchKey, region ChunkAlignedRegion, chunkShape Voxel, elemType ElementType, components ComponentLayout) ([]byte, error) {
	keyStr := fetchKeyString(arrayID, key)

	c.mu.Lock()
	c.inFlight[keyStr] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, keyStr)
		c.mu.Unlock()
	}()

	v, err, _ := c.group.Do(keyStr, func() (any, error) {
		return c.fetchRegionOnce(ctx, arrayID, key.Time, region, chunkShape, elemType, components)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Coalescer) fetchRegionOnce(ctx context.Context, arrayID string, timeIndex int, region ChunkAlignedRegion, chunkShape Voxel, elemType ElementType, components ComponentLayout) ([]byte, error) {
	dims := region.AlignedDims()
	elemSize := elemType.ByteSize()
	voxelStride := elemSize * int(components)
	total := requiredElements(dims, components) * int64(elemSize)
	out := make([]byte, total)

	type chunkJob struct {
		coord      ChunkCoord
		offset     Voxel // offset within region, in voxels
		wantShape  Voxel // expected (unclamped) chunk shape to request
	}

	var jobs []chunkJob
	for z := region.AlignedStart[0]; z < region.AlignedEnd[0]; z += maxInt(chunkShape[0], 1) {
		for y := region.AlignedStart[1]; y < region.AlignedEnd[1]; y += maxInt(chunkShape[1], 1) {
			for x := region.AlignedStart[2]; x < region.AlignedEnd[2]; x += maxInt(chunkShape[2], 1) {
				coord := ChunkCoord{z / maxInt(chunkShape[0], 1), y / maxInt(chunkShape[1], 1), x / maxInt(chunkShape[2], 1)}
				offset := Voxel{z - region.AlignedStart[0], y - region.AlignedStart[1], x - region.AlignedStart[2]}
				jobs = append(jobs, chunkJob{coord: coord, offset: offset})
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	const maxConcurrent = 8
	sem := make(chan struct{}, maxConcurrent)

	for _, job := range jobs {
		job := job
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			if err := gctx.Err(); err != nil {
				return newErr(Cancelled, "Coalescer.fetchRegionOnce", err)
			}
			chunk, err := c.loadChunk(gctx, arrayID, job.coord, timeIndex)
			if err != nil {
				return err
			}
			copyChunkInto(out, dims, job.offset, chunk.Elements, chunk.Shape, voxelStride)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// loadChunk pulls a chunk from the cache or calls the store, caching the
// result on success.
func (c *Coalescer) loadChunk(ctx context.Context, arrayID string, coord ChunkCoord, timeIndex int) (DecodedChunk, error) {
	key := ChunkKey{ArrayID: arrayID, Coord: coord, Time: timeIndex}
	if chunk, ok := c.cache.Get(key); ok {
		return chunk, nil
	}
	chunk, err := c.store.ReadChunk(ctx, arrayID, coord, timeIndex)
	if err != nil {
		if ctx.Err() != nil {
			return DecodedChunk{}, newErr(Cancelled, "Coalescer.loadChunk", ctx.Err())
		}
		return DecodedChunk{}, newErr(StoreFailure, "Coalescer.loadChunk", err)
	}
	c.cache.Add(key, chunk)
	return chunk, nil
}

// copyChunkInto copies a decoded chunk's elements into dst (row-major
// [z,y,x], voxelStride bytes per voxel) at the given voxel offset,
// clipping to whichever of dstDims/chunkDims is smaller on each axis (a
// chunk at the volume edge decodes fewer voxels than a full chunk).
func copyChunkInto(dst []byte, dstDims Voxel, offset Voxel, src []byte, chunkDims Voxel, voxelStride int) {
	copyZ := minInt(chunkDims[0], dstDims[0]-offset[0])
	copyY := minInt(chunkDims[1], dstDims[1]-offset[1])
	copyX := minInt(chunkDims[2], dstDims[2]-offset[2])
	if copyZ <= 0 || copyY <= 0 || copyX <= 0 {
		return
	}
	dstRowStride := dstDims[2] * voxelStride
	dstPlaneStride := dstDims[1] * dstRowStride
	srcRowStride := chunkDims[2] * voxelStride
	srcPlaneStride := chunkDims[1] * srcRowStride
	rowBytes := copyX * voxelStride

	for z := 0; z < copyZ; z++ {
		for y := 0; y < copyY; y++ {
			srcOff := z*srcPlaneStride + y*srcRowStride
			dstOff := (offset[0]+z)*dstPlaneStride + (offset[1]+y)*dstRowStride + offset[2]*voxelStride
			if srcOff+rowBytes > len(src) || dstOff+rowBytes > len(dst) {
				continue
			}
			copy(dst[dstOff:dstOff+rowBytes], src[srcOff:srcOff+rowBytes])
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
