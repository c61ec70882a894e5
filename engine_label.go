package volume

import "sort"

// labelPalette is the deterministic color cycle used for discrete label
// indices 1, 2, 3, ... Index 0 always renders as transparent black.
var labelPalette = []ColorRGBA{
	{R: 230, G: 25, B: 75, A: 255},
	{R: 60, G: 180, B: 75, A: 255},
	{R: 255, G: 225, B: 25, A: 255},
	{R: 0, G: 130, B: 200, A: 255},
	{R: 245, G: 130, B: 48, A: 255},
	{R: 145, G: 30, B: 180, A: 255},
	{R: 70, G: 240, B: 240, A: 255},
	{R: 240, G: 50, B: 230, A: 255},
	{R: 210, G: 245, B: 60, A: 255},
	{R: 250, G: 190, B: 212, A: 255},
	{R: 0, G: 128, B: 128, A: 255},
	{R: 170, G: 110, B: 40, A: 255},
}

// computeLabelColormap scans raw (scalar elements of the given type) for
// unique integer values, sorts them ascending, and assigns index 0 to
// transparent black and every other unique value a color cycling through
// labelPalette.
func computeLabelColormap(raw []byte, elemType ElementType) []ColorRGBA {
	elemSize := elemType.ByteSize()
	seen := make(map[int64]bool)
	var unique []int64
	for off := 0; off+elemSize <= len(raw); off += elemSize {
		v := int64(readElement(raw, off, elemType))
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	out := make([]ColorRGBA, len(unique))
	nonZero := 0
	for i, v := range unique {
		if v == 0 {
			out[i] = ColorRGBA{}
			continue
		}
		out[i] = labelPalette[nonZero%len(labelPalette)]
		nonZero++
	}
	return out
}
