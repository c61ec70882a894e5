package volume

import (
	"context"
	"fmt"
	"sync"
)

// fakeStore is an in-memory Store that synthesizes deterministic chunk
// content (one repeated byte per chunk, derived from its coordinate) and
// counts reads per chunk, used to assert coalescing/dedup behavior.
type fakeStore struct {
	mu        sync.Mutex
	reads     map[string]int
	fail      bool
	failAfter int // 0 = never induces a failure via this counter
	calls     int // ReadChunk calls so far, compared against failAfter
	elemType  ElementType
	components ComponentLayout
	chunkShape Voxel
	delay      chan struct{} // if non-nil, ReadChunk blocks until closed
}

func newFakeStore(elemType ElementType, components ComponentLayout, chunkShape Voxel) *fakeStore {
	return &fakeStore{
		reads:      make(map[string]int),
		elemType:   elemType,
		components: components,
		chunkShape: chunkShape,
	}
}

func chunkFillValue(coord ChunkCoord, t int) byte {
	return byte((coord[0]*31 + coord[1]*17 + coord[2]*7 + t) % 256)
}

func (s *fakeStore) readCount(arrayID string, coord ChunkCoord, t int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[chunkReadKey(arrayID, coord, t)]
}

func chunkReadKey(arrayID string, coord ChunkCoord, t int) string {
	return fmt.Sprintf("%s|%v|%d", arrayID, coord, t)
}

func (s *fakeStore) ReadChunk(ctx context.Context, arrayID string, coord ChunkCoord, timeIndex int) (DecodedChunk, error) {
	if s.delay != nil {
		select {
		case <-s.delay:
		case <-ctx.Done():
			return DecodedChunk{}, ctx.Err()
		}
	}
	s.mu.Lock()
	s.reads[chunkReadKey(arrayID, coord, timeIndex)]++
	s.calls++
	induced := s.failAfter > 0 && s.calls > s.failAfter
	s.mu.Unlock()

	if s.fail || induced {
		return DecodedChunk{}, context.DeadlineExceeded
	}

	n := requiredElements(s.chunkShape, s.components) * int64(s.elemType.ByteSize())
	data := make([]byte, n)
	v := chunkFillValue(coord, timeIndex)
	for i := range data {
		data[i] = v
	}
	return DecodedChunk{Elements: data, Shape: s.chunkShape, Type: s.elemType}, nil
}
