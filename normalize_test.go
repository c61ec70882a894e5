package volume

import "testing"

func TestNormalizeClampsAndScales(t *testing.T) {
	cases := []struct {
		v      float64
		window OmeroWindow
		want   uint8
	}{
		{v: 0, window: OmeroWindow{Start: 0, End: 100}, want: 0},
		{v: 100, window: OmeroWindow{Start: 0, End: 100}, want: 255},
		{v: 50, window: OmeroWindow{Start: 0, End: 100}, want: 128},
		{v: -10, window: OmeroWindow{Start: 0, End: 100}, want: 0},
		{v: 200, window: OmeroWindow{Start: 0, End: 100}, want: 255},
		{v: 5, window: OmeroWindow{Start: 10, End: 10}, want: 0}, // degenerate window
	}
	for _, c := range cases {
		got := Normalize(c.v, c.window)
		if got != c.want {
			t.Errorf("Normalize(%v, %+v) = %d, want %d", c.v, c.window, got, c.want)
		}
	}
}

func TestReadElementRoundTrip(t *testing.T) {
	// uint16 value 1000, little-endian.
	data := []byte{0xE8, 0x03}
	got := readElement(data, 0, ElementType{Kind: ElementUint, Bits: 16})
	if got != 1000 {
		t.Fatalf("got %v, want 1000", got)
	}
}

func TestComputeChannelMinMax(t *testing.T) {
	// Two scalar (1-component) uint8 voxels: values 10 and 200.
	src := []byte{10, 200}
	windows := ComputeChannelMinMax(src, Uint8, 1)
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if windows[0].Start != 10 || windows[0].End != 200 {
		t.Fatalf("got %+v, want Start=10 End=200", windows[0])
	}
}

func TestComputeChannelMinMaxEmptyFallsBackToZero(t *testing.T) {
	windows := ComputeChannelMinMax(nil, Uint8, 1)
	if windows[0] != (OmeroWindow{Start: 0, End: 0}) {
		t.Fatalf("expected zero window for empty input, got %+v", windows[0])
	}
}

func TestNormalizeBufferTwoChannel(t *testing.T) {
	// One voxel, 2 channels, uint8 source: values 0 and 255.
	src := []byte{0, 255}
	windows := []OmeroWindow{{Start: 0, End: 255}, {Start: 0, End: 255}}
	dst := make([]byte, 2)
	NormalizeBuffer(src, Uint8, 2, windows, dst)
	if dst[0] != 0 || dst[1] != 255 {
		t.Fatalf("got %v, want [0 255]", dst)
	}
}
