package volume

import "fmt"

// AxisType is the semantic role of one array axis.
type AxisType uint8

const (
	AxisSpace AxisType = iota
	AxisTime
	AxisChannel
)

// Axis is one named, typed axis of a Multiscales array, a subset of
// {t,z,y,x,c}.
type Axis struct {
	Name string
	Type AxisType
	Unit string
}

// AnatomicalDirection labels the physical direction of increasing index
// along a spatial axis (R/L, A/P, S/I — GLOSSARY).
type AnatomicalDirection uint8

const (
	DirNone AnatomicalDirection = iota
	DirRightToLeft
	DirLeftToRight
	DirAnteriorToPosterior
	DirPosteriorToAnterior
	DirSuperiorToInferior
	DirInferiorToSuperior
)

// negative reports whether this direction contributes sign -1 to the
// orientation permutation.
func (d AnatomicalDirection) negative() bool {
	switch d {
	case DirRightToLeft, DirAnteriorToPosterior, DirSuperiorToInferior:
		return true
	default:
		return false
	}
}

// physicalRow returns which of the three physical rows (0=R/L, 1=A/P,
// 2=S/I) this direction belongs to, or -1 if undirected.
func (d AnatomicalDirection) physicalRow() int {
	switch d {
	case DirRightToLeft, DirLeftToRight:
		return 0
	case DirAnteriorToPosterior, DirPosteriorToAnterior:
		return 1
	case DirSuperiorToInferior, DirInferiorToSuperior:
		return 2
	default:
		return -1
	}
}

// Level is one resolution level of an image pyramid.
type Level struct {
	// Shape is the ordered size per axis, matching Axes' order.
	Shape []int
	// ChunkShape is the storage chunk size per axis; same arity as Shape.
	ChunkShape []int
	// ElementType is the on-disk element type.
	ElementType ElementType
	// Components is the per-voxel component count (scalar/RGB/RGBA).
	Components ComponentLayout
	// Scale is physical units per voxel, ordered [x,y,z] (or [x,y] for a
	// 2D level) regardless of storage axis order — callers translate from
	// NGFF's axis-ordered metadata once at load time.
	Scale []float64
	// Translation is the physical origin, ordered [x,y,z] ([x,y] for 2D).
	Translation []float64
	// Orientation is, if present, one AnatomicalDirection per entry of
	// Scale/Translation ([x,y,z] order). Nil means no orientation
	// metadata (identity permutation).
	Orientation []AnatomicalDirection
	// SpatialShape is the voxel extent per spatial axis, ordered [x,y,z]
	// ([x,y] for 2D) — the same convention as Scale/Translation. Used by
	// BuildAffine to compute the 2D y-flip compensation.
	SpatialShape []int
}

// SpatialAxisIndices returns the positions within Shape/ChunkShape
// (axis-ordered, per Axes) that correspond to z,y,x respectively. -1 means
// that axis is absent (e.g. z for a 2D image).
func SpatialAxisIndices(axes []Axis) (zi, yi, xi int) {
	zi, yi, xi = -1, -1, -1
	for i, ax := range axes {
		if ax.Type != AxisSpace {
			continue
		}
		switch ax.Name {
		case "z":
			zi = i
		case "y":
			yi = i
		case "x":
			xi = i
		}
	}
	return
}

// Multiscales is an ordered image pyramid: Levels[0] is the highest
// resolution.
type Multiscales struct {
	Axes   []Axis
	Levels []Level
	// OmeroWindows is one optional display window per channel; nil if
	// unavailable (the engine falls back to ComputeChannelMinMax).
	OmeroWindows []OmeroWindow
	// Label marks this as a label image: rendered with a discrete
	// colormap instead of an OMERO window.
	Label bool
}

// Validate checks the structural invariants every level must satisfy.
func (m *Multiscales) Validate() error {
	if len(m.Levels) == 0 {
		return newErr(InvalidArgument, "Multiscales.Validate", fmt.Errorf("no levels"))
	}
	for li, lvl := range m.Levels {
		if len(lvl.ChunkShape) != len(lvl.Shape) {
			return newErr(InvalidArgument, "Multiscales.Validate",
				fmt.Errorf("level %d: chunk shape arity %d != shape arity %d", li, len(lvl.ChunkShape), len(lvl.Shape)))
		}
		for i, c := range lvl.ChunkShape {
			if c < 1 || c > lvl.Shape[i] {
				return newErr(InvalidArgument, "Multiscales.Validate",
					fmt.Errorf("level %d: chunk dim %d out of range [1,%d]: %d", li, i, lvl.Shape[i], c))
			}
		}
	}
	return nil
}

// TimeAxisIndex returns the position of the time axis in Shape, or -1 if
// this volume has no time dimension.
func (m *Multiscales) TimeAxisIndex() int {
	for i, ax := range m.Axes {
		if ax.Type == AxisTime {
			return i
		}
	}
	return -1
}

// ChannelCount returns the size of the channel axis, or 1 if there is none.
func (m *Multiscales) ChannelCount(level int) int {
	for i, ax := range m.Axes {
		if ax.Type == AxisChannel {
			return m.Levels[level].Shape[i]
		}
	}
	return 1
}

// TimeCount returns the size of the time axis, or 1 if there is none.
func (m *Multiscales) TimeCount() int {
	ti := m.TimeAxisIndex()
	if ti < 0 {
		return 1
	}
	return m.Levels[0].Shape[ti]
}

// ScaleXYZ returns a level's physical voxel size as (x, y, z), padding z
// with 1 for a 2D level whose Scale only carries [x,y].
func (l *Level) ScaleXYZ() (sx, sy, sz float64) {
	sx = l.Scale[0]
	sy = l.Scale[1]
	if len(l.Scale) > 2 {
		sz = l.Scale[2]
	} else {
		sz = 1
	}
	return
}

// Is2D reports whether levels lack a z axis (no "z" spatial axis present).
func (m *Multiscales) Is2D() bool {
	for _, ax := range m.Axes {
		if ax.Type == AxisSpace && ax.Name == "z" {
			return false
		}
	}
	return true
}
