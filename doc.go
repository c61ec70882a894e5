// Package volume is an adaptive volume-data engine for multi-resolution,
// chunked scientific volumes stored in an OME-Zarr-style pyramid.
//
// It sits between an arbitrary chunked tensor store and a 3D/2D renderer
// and answers one question whenever the viewer's state changes: given the
// current clip planes, viewport, slice mode, and pixel budget, which chunks
// should be fetched, decoded, packed into which buffer, with which affine
// transform, and when.
//
// # Quick start
//
// Construct an [Engine] from a [Multiscales] description and a [Store]:
//
//	eng, err := volume.NewEngine(multiscales, store, volume.Options{})
//	eng.Subscribe(volume.EventLoadingComplete, func(e volume.Event) {
//		buf := eng.BufferBytes()
//		hdr := eng.Header()
//		// hand buf / hdr to the renderer
//	})
//	eng.Populate(false, volume.TriggerInitial)
//
// # Component map
//
// [Mat4] and the orientation helpers implement voxel/world coordinate
// mapping. [SelectLevel3D] and [SelectLevel2D] implement resolution
// selection under a pixel budget. [ClipPlane], [ClipPlaneSet] and the
// region helpers implement clip-plane geometry. [Buffer] implements
// the resizable typed pixel buffer. [ChunkCache] implements the
// bounded decoded-chunk LRU. [Coalescer] implements request
// deduplication against the [Store]. [Normalize] and
// [ComputeChannelMinMax] implement RGB/RGBA windowing.
// [ViewportTracker] implements debounced viewport-bounds accumulation.
// [Engine] owns and drives all of the above.
package volume
