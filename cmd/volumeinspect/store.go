package main

import (
	"context"

	"github.com/fideus-labs/volumeengine"
)

// memStore synthesizes deterministic chunk content instead of reading
// from a real OME-Zarr store, the same role willow's examples play for a
// tileset image: a stand-in just real enough to drive the engine.
type memStore struct {
	m          *volume.Multiscales
	chunkShape map[string]volume.Voxel
}

func newMemStore(m *volume.Multiscales) *memStore {
	return &memStore{m: m}
}

func (s *memStore) ReadChunk(ctx context.Context, arrayID string, coord volume.ChunkCoord, timeIndex int) (volume.DecodedChunk, error) {
	if err := ctx.Err(); err != nil {
		return volume.DecodedChunk{}, err
	}
	// The synthetic multiscales uses the same chunk shape and element
	// type on every level's spatial axes, so any level's metadata works
	// as the decode template.
	lvl := s.m.Levels[0]
	shape := volume.Voxel{lvl.ChunkShape[1], lvl.ChunkShape[2], lvl.ChunkShape[3]}
	elemSize := lvl.ElementType.ByteSize()
	n := shape[0] * shape[1] * shape[2] * int(lvl.Components)
	data := make([]byte, n*elemSize)
	fill := byte((coord[0]*31 + coord[1]*17 + coord[2]*7 + timeIndex) % 256)
	for i := range data {
		data[i] = fill
	}
	return volume.DecodedChunk{Elements: data, Shape: shape, Type: lvl.ElementType}, nil
}
