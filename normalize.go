package volume

import (
	"encoding/binary"
	"math"
)

// Normalize maps a raw channel value into the [0,255] output range given a
// display window:
//
//	end <= start -> 0
//	else         -> round(clamp((v-start)/(end-start), 0, 1) * 255)
func Normalize(v float64, window OmeroWindow) uint8 {
	if window.End <= window.Start {
		return 0
	}
	t := (v - window.Start) / (window.End - window.Start)
	t = clampF(t, 0, 1)
	return uint8(math.Round(t * 255))
}

// readElement decodes one scalar element at byte offset off of the given
// type, little-endian (the prevailing zarr/NGFF on-disk convention).
func readElement(data []byte, off int, t ElementType) float64 {
	switch t.Kind {
	case ElementFloat:
		switch t.Bits {
		case 32:
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:])))
		case 64:
			return math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
		}
	case ElementUint:
		switch t.Bits {
		case 8:
			return float64(data[off])
		case 16:
			return float64(binary.LittleEndian.Uint16(data[off:]))
		case 32:
			return float64(binary.LittleEndian.Uint32(data[off:]))
		case 64:
			return float64(binary.LittleEndian.Uint64(data[off:]))
		}
	case ElementInt:
		switch t.Bits {
		case 8:
			return float64(int8(data[off]))
		case 16:
			return float64(int16(binary.LittleEndian.Uint16(data[off:])))
		case 32:
			return float64(int32(binary.LittleEndian.Uint32(data[off:])))
		case 64:
			return float64(int64(binary.LittleEndian.Uint64(data[off:])))
		}
	}
	return 0
}

// ComputeChannelMinMax scans src (row-major, components channels per
// voxel, scalar type srcType) and returns one window per channel spanning
// the observed min/max — the fallback used when no OMERO window is
// available.
func ComputeChannelMinMax(src []byte, srcType ElementType, components int) []OmeroWindow {
	windows := make([]OmeroWindow, components)
	for c := range windows {
		windows[c] = OmeroWindow{Start: math.Inf(1), End: math.Inf(-1)}
	}
	elemSize := srcType.ByteSize()
	voxelStride := elemSize * components
	for off := 0; off+voxelStride <= len(src); off += voxelStride {
		for c := 0; c < components; c++ {
			v := readElement(src, off+c*elemSize, srcType)
			if v < windows[c].Start {
				windows[c].Start = v
			}
			if v > windows[c].End {
				windows[c].End = v
			}
		}
	}
	for c := range windows {
		if math.IsInf(windows[c].Start, 1) {
			windows[c] = OmeroWindow{Start: 0, End: 0}
		}
	}
	return windows
}

// NormalizeBuffer converts a multi-component source buffer into a uint8
// output buffer of the same voxel count and component count, applying one
// window per channel. dst must already be sized to voxelCount*components
// bytes.
func NormalizeBuffer(src []byte, srcType ElementType, components int, windows []OmeroWindow, dst []byte) {
	elemSize := srcType.ByteSize()
	voxelStride := elemSize * components
	outStride := components
	voxelCount := len(src) / voxelStride
	for v := 0; v < voxelCount; v++ {
		srcOff := v * voxelStride
		dstOff := v * outStride
		for c := 0; c < components; c++ {
			val := readElement(src, srcOff+c*elemSize, srcType)
			w := OmeroWindow{}
			if c < len(windows) {
				w = windows[c]
			}
			dst[dstOff+c] = Normalize(val, w)
		}
	}
}
