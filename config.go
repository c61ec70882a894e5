package volume

import "time"

// Options configures an Engine. Zero-value fields are replaced by their
// documented defaults in setDefaults, mirroring a run-config-with-defaults
// pattern.
type Options struct {
	// MaxPixels bounds the voxel count for the 3D buffer and the 2D slab
	// buffers (default 50,000,000).
	MaxPixels int64
	// MaxCacheEntries bounds the chunk LRU (default 200). Ignored if Cache
	// is set.
	MaxCacheEntries int
	// Cache lets a caller supply an externally-owned chunk cache instead
	// of one sized from MaxCacheEntries.
	Cache *ChunkCache

	// ClipPlaneDebounce is the debounce before a clip-plane change is
	// applied (default 300ms).
	ClipPlaneDebounce time.Duration
	// ViewportDebounce is the debounce before accumulated viewport
	// changes are applied (default 500ms).
	ViewportDebounce time.Duration
	// SlabScrollDebounce is the debounce before a crosshair move beyond
	// the current slab triggers a reload (default 100ms).
	SlabScrollDebounce time.Duration

	// TimePrefetchCount is how many frames on each side of the current
	// time index are prefetched (default 2).
	TimePrefetchCount int

	// FlipY2D applies a y-flip so pixel (0,0) is the top-left corner for
	// 2D images (default true). A *bool, not bool, because the default is
	// true: nil means "unset, use the default" and distinguishes that from
	// an explicit false, which the bool zero value alone cannot do.
	FlipY2D *bool

	// MinZoom3D / MaxZoom3D bound the zoom the viewport tracker will
	// accept from callers driving resolution-aware zoom (0 = unbounded).
	MinZoom3D, MaxZoom3D float64

	// AutoLoad triggers an initial Populate on construction (default
	// true). See FlipY2D's doc comment for why this is a *bool.
	AutoLoad *bool

	// TimeIndex is the initial time index (default 0).
	TimeIndex int

	// Omero supplies per-channel display windows; if nil (or it fails) the
	// engine uses Multiscales.OmeroWindows when present and otherwise
	// falls back to ComputeChannelMinMax over the fetched region.
	Omero OmeroProvider
}

// OmeroProvider is the external dependency that returns per-channel
// display windows.
type OmeroProvider interface {
	ChannelWindows(m *Multiscales) ([]OmeroWindow, error)
}

const (
	DefaultMaxPixels          int64 = 50_000_000
	DefaultClipPlaneDebounce        = 300 * time.Millisecond
	DefaultSlabScrollDebounce       = 100 * time.Millisecond
	DefaultTimePrefetchCount        = 2
)

func (o Options) setDefaults() Options {
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	if o.MaxCacheEntries <= 0 {
		o.MaxCacheEntries = DefaultCacheCapacity
	}
	if o.ClipPlaneDebounce <= 0 {
		o.ClipPlaneDebounce = DefaultClipPlaneDebounce
	}
	if o.ViewportDebounce <= 0 {
		o.ViewportDebounce = DefaultViewportDebounce
	}
	if o.SlabScrollDebounce <= 0 {
		o.SlabScrollDebounce = DefaultSlabScrollDebounce
	}
	if o.TimePrefetchCount <= 0 {
		o.TimePrefetchCount = DefaultTimePrefetchCount
	}
	if o.FlipY2D == nil {
		o.FlipY2D = boolPtr(true)
	}
	if o.AutoLoad == nil {
		o.AutoLoad = boolPtr(true)
	}
	return o
}

func boolPtr(v bool) *bool { return &v }
