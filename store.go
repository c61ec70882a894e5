package volume

import "context"

// Store is the external chunked tensor store. The engine never formats,
// compresses, or authenticates; it treats arrays as opaque identities and
// chunk coordinates as opaque grid positions.
type Store interface {
	// ReadChunk decodes one chunk, honoring ctx cancellation. Errors are
	// wrapped as Kind StoreFailure by the coalescer before reaching
	// callers.
	ReadChunk(ctx context.Context, arrayID string, coord ChunkCoord, timeIndex int) (DecodedChunk, error)
}

// FetchKey identifies one fetch request by the fields the coalescer
// deduplicates on: level, the chunk-aligned region, and time index.
type FetchKey struct {
	Level        int
	AlignedStart Voxel
	AlignedEnd   Voxel
	Time         int
}

func fetchKeyFor(level int, region ChunkAlignedRegion, time int) FetchKey {
	return FetchKey{Level: level, AlignedStart: region.AlignedStart, AlignedEnd: region.AlignedEnd, Time: time}
}
