// Command volumeinspect drives a volume.Engine against a synthetic
// in-memory store and prints the resulting header and resolution choice.
// It exists to exercise the engine end to end without a real OME-Zarr
// store or renderer, the way willow's examples/ each drove one subsystem
// against a small synthetic scene.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/fideus-labs/volumeengine"
)

func main() {
	var (
		maxPixels = flag.Int64("max-pixels", volume.DefaultMaxPixels, "pixel budget for level selection")
		timeIndex = flag.Int("time", 0, "initial time index")
		clip      = flag.Bool("clip", false, "apply a single axis-aligned clip plane at the volume's x-center")
	)
	flag.Parse()

	m := syntheticMultiscales()

	store := newMemStore(m)
	eng, err := volume.NewEngine(m, store, volume.Options{
		MaxPixels: *maxPixels,
		TimeIndex: *timeIndex,
		AutoLoad:  boolPtr(false),
	})
	if err != nil {
		log.Fatalf("volumeinspect: construct engine: %v", err)
	}
	defer eng.Close()

	eng.Subscribe(volume.EventLoadingComplete, func(e volume.Event) {
		log.Printf("loading-complete level=%d trigger=%s", e.Level, e.Trigger)
	})
	eng.Subscribe(volume.EventLoadingError, func(e volume.Event) {
		log.Printf("loading-error kind=%v trigger=%s", e.ErrKind, e.Trigger)
	})

	if err := eng.Populate(false, volume.TriggerInitial); err != nil {
		log.Fatalf("volumeinspect: populate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := eng.WaitIdle(ctx); err != nil {
		log.Fatalf("volumeinspect: wait idle: %v", err)
	}

	if *clip {
		a, err := volume.BuildAffine(&m.Levels[0], true, m.Is2D())
		if err != nil {
			log.Fatalf("volumeinspect: build affine: %v", err)
		}
		vb := volume.WorldBoundsFromShape(a, volume.Voxel{
			m.Levels[0].Shape[1], m.Levels[0].Shape[2], m.Levels[0].Shape[3],
		})
		center := vb.Center()
		plane, err := volume.NewClipPlane(volume.Vec3{X: center.X}, volume.Vec3{X: 1})
		if err != nil {
			log.Fatalf("volumeinspect: clip plane: %v", err)
		}
		if err := eng.SetClipPlanes(volume.ClipPlaneSet{plane}); err != nil {
			log.Fatalf("volumeinspect: set clip planes: %v", err)
		}
		// setClipPlanes applies behind a debounce timer; give it room to fire.
		time.Sleep(2 * volume.DefaultClipPlaneDebounce)
		if err := eng.WaitIdle(ctx); err != nil {
			log.Fatalf("volumeinspect: wait idle after clip: %v", err)
		}
	}

	hdr := eng.Header()
	fmt.Printf("level=%d dims=%v pixelSize=%v calMin=%.2f calMax=%.2f bufferBytes=%d\n",
		eng.CurrentLevel(), hdr.Dims, hdr.PixelSize, hdr.CalMin, hdr.CalMax, len(eng.BufferBytes()))
}

func boolPtr(v bool) *bool { return &v }

// syntheticMultiscales builds a 3-level pyramid with a time axis, matching
// the shape of scenario A/D in the engine's test scenarios, at a scale
// that visibly changes resolution level depending on -max-pixels.
func syntheticMultiscales() *volume.Multiscales {
	levels := []volume.Level{
		{
			Shape:        []int{10, 512, 512, 512},
			ChunkShape:   []int{1, 64, 64, 64},
			ElementType:  volume.ElementType{Kind: volume.ElementUint, Bits: 8},
			Components:   volume.Scalar,
			Scale:        []float64{1, 1, 1},
			Translation:  []float64{0, 0, 0},
			SpatialShape: []int{512, 512, 512},
		},
		{
			Shape:        []int{10, 256, 256, 256},
			ChunkShape:   []int{1, 64, 64, 64},
			ElementType:  volume.ElementType{Kind: volume.ElementUint, Bits: 8},
			Components:   volume.Scalar,
			Scale:        []float64{2, 2, 2},
			Translation:  []float64{0, 0, 0},
			SpatialShape: []int{256, 256, 256},
		},
		{
			Shape:        []int{10, 64, 64, 64},
			ChunkShape:   []int{1, 64, 64, 64},
			ElementType:  volume.ElementType{Kind: volume.ElementUint, Bits: 8},
			Components:   volume.Scalar,
			Scale:        []float64{8, 8, 8},
			Translation:  []float64{0, 0, 0},
			SpatialShape: []int{64, 64, 64},
		},
	}
	return &volume.Multiscales{
		Axes: []volume.Axis{
			{Name: "t", Type: volume.AxisTime, Unit: "second"},
			{Name: "z", Type: volume.AxisSpace, Unit: "micrometer"},
			{Name: "y", Type: volume.AxisSpace, Unit: "micrometer"},
			{Name: "x", Type: volume.AxisSpace, Unit: "micrometer"},
		},
		Levels: levels,
	}
}
