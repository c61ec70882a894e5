package volume

import "testing"

func TestMultiscalesValidateRejectsEmpty(t *testing.T) {
	m := &Multiscales{}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for zero levels")
	}
}

func TestMultiscalesValidateRejectsArityMismatch(t *testing.T) {
	m := &Multiscales{Levels: []Level{{Shape: []int{1, 2, 3}, ChunkShape: []int{1, 2}}}}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for chunk/shape arity mismatch")
	}
}

func TestMultiscalesValidateRejectsOversizedChunk(t *testing.T) {
	m := &Multiscales{Levels: []Level{{Shape: []int{10, 10, 10}, ChunkShape: []int{20, 10, 10}}}}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for chunk dim exceeding shape")
	}
}

func TestMultiscalesValidateAccepts(t *testing.T) {
	m := testMultiscales()
	if err := m.Validate(); err != nil {
		t.Fatalf("expected valid multiscales, got %v", err)
	}
}

func TestTimeAxisIndexAbsent(t *testing.T) {
	m := testMultiscales()
	if m.TimeAxisIndex() != -1 {
		t.Fatalf("expected -1 with no time axis, got %d", m.TimeAxisIndex())
	}
	if m.TimeCount() != 1 {
		t.Fatalf("expected TimeCount 1 with no time axis, got %d", m.TimeCount())
	}
}

func TestTimeAxisIndexPresent(t *testing.T) {
	m := testMultiscales()
	m.Axes = append([]Axis{{Name: "t", Type: AxisTime}}, m.Axes...)
	for i := range m.Levels {
		m.Levels[i].Shape = append([]int{5}, m.Levels[i].Shape...)
		m.Levels[i].ChunkShape = append([]int{1}, m.Levels[i].ChunkShape...)
	}
	if m.TimeAxisIndex() != 0 {
		t.Fatalf("expected time axis at 0, got %d", m.TimeAxisIndex())
	}
	if m.TimeCount() != 5 {
		t.Fatalf("expected TimeCount 5, got %d", m.TimeCount())
	}
}

func TestLevelScaleXYZPadsZFor2D(t *testing.T) {
	lvl := &Level{Scale: []float64{1.5, 2.5}}
	sx, sy, sz := lvl.ScaleXYZ()
	if sx != 1.5 || sy != 2.5 || sz != 1 {
		t.Fatalf("got (%v,%v,%v), want (1.5,2.5,1)", sx, sy, sz)
	}
}

func TestLevelScaleXYZ3D(t *testing.T) {
	lvl := &Level{Scale: []float64{1, 2, 3}}
	sx, sy, sz := lvl.ScaleXYZ()
	if sx != 1 || sy != 2 || sz != 3 {
		t.Fatalf("got (%v,%v,%v), want (1,2,3)", sx, sy, sz)
	}
}

func TestIs2D(t *testing.T) {
	m := testMultiscales()
	if m.Is2D() {
		t.Fatal("expected 3D multiscales (has z axis)")
	}
	m2 := &Multiscales{Axes: []Axis{{Name: "y", Type: AxisSpace}, {Name: "x", Type: AxisSpace}}}
	if !m2.Is2D() {
		t.Fatal("expected 2D multiscales (no z axis)")
	}
}

func TestChannelCountAbsent(t *testing.T) {
	m := testMultiscales()
	if m.ChannelCount(0) != 1 {
		t.Fatalf("expected ChannelCount 1 with no channel axis, got %d", m.ChannelCount(0))
	}
}
