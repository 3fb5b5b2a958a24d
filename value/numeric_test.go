package value

import "testing"

func TestRawDivIntFloors(t *testing.T) {
	got, err := RawDiv(int64(7), int64(2))
	if err != nil {
		t.Fatal(err)
	}
	if got != int64(3) {
		t.Errorf("RawDiv(7, 2) = %v, want 3", got)
	}
}

func TestRawDivNegativeFloors(t *testing.T) {
	got, err := RawDiv(int64(-7), int64(2))
	if err != nil {
		t.Fatal(err)
	}
	if got != int64(-4) {
		t.Errorf("RawDiv(-7, 2) = %v, want -4 (floored)", got)
	}
}

func TestRawModSignFollowsDivisor(t *testing.T) {
	got, err := RawMod(int64(-1), int64(3))
	if err != nil {
		t.Fatal(err)
	}
	if got != int64(2) {
		t.Errorf("RawMod(-1, 3) = %v, want 2", got)
	}
}

func TestRawPowAlwaysFloat(t *testing.T) {
	got, err := RawPow(int64(2), int64(3))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(float64); !ok {
		t.Errorf("RawPow result type = %T, want float64", got)
	}
	if got != float64(8) {
		t.Errorf("RawPow(2, 3) = %v, want 8", got)
	}
}

func TestRawAddPromotesToFloat(t *testing.T) {
	got, err := RawAdd(int64(1), float64(2.5))
	if err != nil {
		t.Fatal(err)
	}
	if got != float64(3.5) {
		t.Errorf("RawAdd(1, 2.5) = %v, want 3.5", got)
	}
}

func TestRawConcatCoerces(t *testing.T) {
	got, ok := RawConcat(int64(1), "x")
	if !ok || got != "1x" {
		t.Errorf("RawConcat(1, x) = %v, %v, want 1x, true", got, ok)
	}
}

func TestCompareStrings(t *testing.T) {
	c, ok := Compare("abc", "abd")
	if !ok || c != -1 {
		t.Errorf("Compare(abc, abd) = %d, %v, want -1, true", c, ok)
	}
}
