package volume

// Buffer owns one contiguous byte array plus the metadata needed to
// interpret it: current spatial dims, capacity in elements, components per
// voxel, and element type.
//
// The resize policy is grounded on a render-target pool's reuse strategy:
// reuse the existing allocation when it's already big enough and not
// wastefully oversized, otherwise allocate exactly what's needed. Unlike a
// pool of images bucketed by power-of-two dimensions and returned to a free
// list, this buffer is a single owned allocation resized in place — there
// is exactly one buffer per 3D load and one per slab, so pooling across
// many instances doesn't apply.
type Buffer struct {
	data []byte

	dims       Voxel
	components ComponentLayout
	elemType   ElementType

	// capacityBytes is len(data) at last allocation; it can exceed the
	// live view's byte length.
	capacityBytes int64
}

// NewBuffer creates an empty buffer with the given element type and
// component layout. Call Resize before use.
func NewBuffer(elemType ElementType, components ComponentLayout) *Buffer {
	return &Buffer{elemType: elemType, components: components}
}

// SetFormat changes the element type and/or component layout. Normalized
// RGB/RGBA output is always uint8 regardless of the source element type,
// so callers switch format before resizing into normalized mode. Changing
// format invalidates the current allocation
// (the capacity/size relationship no longer holds across dtypes), forcing
// the next Resize to allocate fresh.
func (b *Buffer) SetFormat(elemType ElementType, components ComponentLayout) {
	if b.elemType == elemType && b.components == components {
		return
	}
	b.elemType = elemType
	b.components = components
	b.data = nil
	b.capacityBytes = 0
	b.dims = Voxel{}
}

// ElementType returns the buffer's current element type.
func (b *Buffer) ElementType() ElementType { return b.elemType }

// Components returns the buffer's current per-voxel component count.
func (b *Buffer) Components() ComponentLayout { return b.components }

// Dims returns the buffer's current spatial dims ([z,y,x]).
func (b *Buffer) Dims() Voxel { return b.dims }

// CapacityElements returns the buffer's capacity measured in elements.
func (b *Buffer) CapacityElements() int64 {
	sz := int64(b.elemType.ByteSize())
	if sz == 0 {
		return 0
	}
	return b.capacityBytes / sz
}

// requiredElements returns dims.z*dims.y*dims.x*components for dims.
func requiredElements(dims Voxel, components ComponentLayout) int64 {
	return int64(dims[0]) * int64(dims[1]) * int64(dims[2]) * int64(components)
}

// Resize computes the required element count for dims and either reuses
// the existing allocation (if it fits within [0.25*capacity, capacity]) or
// allocates a fresh buffer of exactly the required size. It returns the
// live typed byte view, whose length equals exactly
// requiredElements*elementSize.
func (b *Buffer) Resize(dims Voxel) []byte {
	required := requiredElements(dims, b.components)
	requiredBytes := required * int64(b.elemType.ByteSize())

	if requiredBytes <= b.capacityBytes && requiredBytes >= b.capacityBytes/4 {
		b.dims = dims
		return b.data[:requiredBytes]
	}

	b.data = make([]byte, requiredBytes)
	b.capacityBytes = requiredBytes
	b.dims = dims
	return b.data[:requiredBytes]
}

// View returns the current live byte view without resizing.
func (b *Buffer) View() []byte {
	required := requiredElements(b.dims, b.components)
	requiredBytes := required * int64(b.elemType.ByteSize())
	if requiredBytes > int64(len(b.data)) {
		return nil
	}
	return b.data[:requiredBytes]
}

// Clear zeroes the live view only, leaving any extra backing capacity
// untouched.
func (b *Buffer) Clear() {
	v := b.View()
	for i := range v {
		v[i] = 0
	}
}
