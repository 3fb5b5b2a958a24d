package value

import "testing"

func TestTableAppendLen(t *testing.T) {
	tb := NewTable()
	for i := 0; i < 5; i++ {
		tb.Append(int64(i))
	}
	if got := tb.Len(); got != 5 {
		t.Errorf("Len() = %d, want 5", got)
	}
}

func TestTableSetNilBorderShrinks(t *testing.T) {
	tb := NewTable()
	tb.Append("a")
	tb.Append("b")
	tb.Append("c")
	tb.Set(int64(3), nil)
	if got := tb.Len(); got != 2 {
		t.Errorf("Len() after removing border key = %d, want 2", got)
	}
	if tb.Get(int64(3)) != nil {
		t.Error("expected key 3 to read back nil")
	}
}

func TestTableHashToArrayMigration(t *testing.T) {
	tb := NewTable()
	tb.Set(int64(2), "two")
	tb.Set(int64(1), "one")
	if got := tb.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2 after filling the gap", got)
	}
	if tb.Get(int64(2)) != "two" {
		t.Error("expected key 2 to have migrated into the array part")
	}
}

func TestTableIntegralFloatKeyAliasesInt(t *testing.T) {
	tb := NewTable()
	tb.Set(int64(1), "x")
	if got := tb.Get(float64(1)); got != "x" {
		t.Errorf("Get(1.0) = %v, want x", got)
	}
}

func TestTableNilNeverStored(t *testing.T) {
	tb := NewTable()
	tb.Set("k", "v")
	tb.Set("k", nil)
	if tb.Get("k") != nil {
		t.Error("expected key to be removed by nil assignment")
	}
}
