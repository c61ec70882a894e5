package volume

import "context"

// SetTimeIndex switches the current time frame. A cache hit at the current
// level swaps cached data directly into the buffer; otherwise it falls
// back to a full populate. Either way prefetching of the surrounding frames
// starts: directly after a cache hit, and from the populate's completion
// after a miss.
func (e *Engine) SetTimeIndex(t int) error {
	if t < 0 || t >= e.m.TimeCount() {
		return newErr(InvalidArgument, "Engine.SetTimeIndex", nil)
	}

	e.mu.Lock()
	if t == e.timeIndex {
		e.mu.Unlock()
		return nil
	}
	prev := e.timeIndex
	entry, hit := e.timeFrames[t]
	level := e.currentLevel
	e.mu.Unlock()

	if hit {
		e.mu.Lock()
		e.timeIndex = t
		e.buffer.SetFormat(entry.elemType, entry.components)
		out := e.buffer.Resize(entry.dims)
		copy(out, entry.data)
		e.header.CalMin, e.header.CalMax = entry.calMin, entry.calMax
		e.mu.Unlock()
		e.sink.emit(Event{Type: EventTimeChange, Trigger: TriggerTimeChanged, TimeIndex: t, PreviousTimeIndex: prev, Cached: true, Level: level})
		e.prefetchAdjacentFrames(t)
		return nil
	}

	e.mu.Lock()
	e.timeIndex = t
	e.mu.Unlock()
	if err := e.Populate(true, TriggerTimeChanged); err != nil {
		return err
	}
	e.sink.emit(Event{Type: EventTimeChange, Trigger: TriggerTimeChanged, TimeIndex: t, PreviousTimeIndex: prev, Cached: false, Level: e.CurrentLevel()})
	return nil
}

// prefetchAdjacentFrames aborts any previous prefetch batch and fires off
// fetch-and-cache-only requests for center±1..N (N = TimePrefetchCount),
// skipping frames already cached or already in flight. Errors are
// swallowed; prefetch never touches the live buffer.
func (e *Engine) prefetchAdjacentFrames(center int) {
	if e.m.TimeAxisIndex() < 0 {
		return
	}

	e.mu.Lock()
	if e.prefetchCancel != nil {
		e.prefetchCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.prefetchCancel = cancel
	level := e.currentLevel
	region := e.lastRegion
	haveRegion := e.haveRegion
	chunkShape := levelChunkShape(e.m, level)
	e.mu.Unlock()

	if !haveRegion {
		return
	}

	n := e.m.TimeCount()
	count := e.options.TimePrefetchCount

	for delta := 1; delta <= count; delta++ {
		for _, t := range [2]int{center - delta, center + delta} {
			if t < 0 || t >= n {
				continue
			}
			e.mu.Lock()
			_, cached := e.timeFrames[t]
			already := e.prefetching[t]
			if !cached && !already {
				e.prefetching[t] = true
			}
			e.mu.Unlock()
			if cached || already {
				continue
			}
			go e.prefetchOne(ctx, t, level, region, chunkShape)
		}
	}
}

func (e *Engine) prefetchOne(ctx context.Context, t, level int, region ChunkAlignedRegion, chunkShape Voxel) {
	defer func() {
		e.mu.Lock()
		delete(e.prefetching, t)
		e.mu.Unlock()
	}()

	lvl := &e.m.Levels[level]
	arrayID := arrayIDFor(level)
	key := fetchKeyFor(level, region, t)
	raw, err := e.coalescer.FetchRegion(ctx, arrayID, key, region, chunkShape, lvl.ElementType, lvl.Components)
	if err != nil {
		debugf("prefetch frame %d failed: %v", t, err)
		return
	}

	dims := region.AlignedDims()
	components := lvl.Components
	elemType := lvl.ElementType
	var out []byte
	var calMin, calMax float64
	if needsNormalization(components) {
		elemType = Uint8
		out = make([]byte, requiredElements(dims, components))
		windows := e.channelWindows(raw, lvl.ElementType, int(components))
		NormalizeBuffer(raw, lvl.ElementType, int(components), windows, out)
		if len(windows) > 0 {
			calMin, calMax = windows[0].Start, windows[0].End
		}
	} else {
		out = append([]byte(nil), raw...)
	}

	e.mu.Lock()
	e.timeFrames[t] = timeFrameEntry{data: out, dims: dims, elemType: elemType, components: components, calMin: calMin, calMax: calMax}
	e.mu.Unlock()
}
