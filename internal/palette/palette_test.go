package palette

import "testing"

func TestManager_RootIsSlotZero(t *testing.T) {
	m := NewManager(42)
	if m.Len() != 1 || m.Entries()[0] != 42 {
		t.Fatalf("root label not installed at slot 0: %v", m.Entries())
	}
	if m.Cursor() != 0 {
		t.Fatalf("cursor should start at 0, got %d", m.Cursor())
	}
}

func TestManager_AppendAndFind(t *testing.T) {
	m := NewManager(1)
	i1 := m.Append(7)
	i2 := m.Append(9)
	if i1 != 1 || i2 != 2 {
		t.Fatalf("unexpected indices %d %d", i1, i2)
	}
	if idx, ok := m.Find(9); !ok || idx != 2 {
		t.Fatalf("find(9) = %d, %v", idx, ok)
	}
	if _, ok := m.Find(100); ok {
		t.Fatal("find should miss for an absent label")
	}
	if m.Last() != 9 {
		t.Fatalf("last = %d, want 9", m.Last())
	}
}

func TestManager_DeltaRoundTrip(t *testing.T) {
	m := NewManager(1)
	m.Append(7)  // idx 1, cursor 1
	m.Append(9)  // idx 2, cursor 2
	m.Append(11) // idx 3, cursor 3

	idx, _ := m.Find(7)
	d := m.Delta(idx)
	label, resolvedIdx := m.ResolveDelta(d)
	if label != 7 || resolvedIdx != idx {
		t.Fatalf("resolve(delta(7)) = %d @ %d, want 7 @ %d", label, resolvedIdx, idx)
	}
	if m.Cursor() != 3 {
		t.Fatalf("ResolveDelta must not move the cursor, got %d", m.Cursor())
	}
}
