package runtime

import "testing"

func TestBinaryAddStringConcat(t *testing.T) {
	rt := New()
	a := NewString("foo")
	b := NewString("bar")
	result, err := rt.BinaryAdd(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := GetStringContent(result); got != "foobar" {
		t.Errorf("got %q, want %q", got, "foobar")
	}
	Decref(a)
	Decref(b)
	Decref(result)
}

func TestBinaryModFloorsTowardNegativeInfinity(t *testing.T) {
	rt := New()
	result, err := rt.BinaryMod(FromSmallInt(-7), FromSmallInt(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.SmallInt(); got != 2 {
		t.Errorf("-7 %% 3 = %d, want 2 (Python-style floor modulo)", got)
	}
}

func TestBinaryDivByZeroIsZeroDivisionError(t *testing.T) {
	rt := New()
	_, err := rt.BinaryDiv(FromSmallInt(1), FromSmallInt(0))
	if err == nil {
		t.Fatal("expected an error for division by zero")
	}
}

func TestBinaryFloorDivMatchesMathFloor(t *testing.T) {
	rt := New()
	result, err := rt.BinaryFloorDiv(FromSmallInt(-7), FromSmallInt(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.SmallInt(); got != -4 {
		t.Errorf("-7 // 2 = %d, want -4", got)
	}
}

func TestCompareOrdersIntsAndFloatsConsistently(t *testing.T) {
	rt := New()
	result, err := rt.Compare(CmpLT, FromSmallInt(3), FromFloat64(3.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != True {
		t.Error("expected 3 < 3.5 to be True")
	}
}

func TestTruthy(t *testing.T) {
	rt := New()
	cases := []struct {
		v    Value
		want bool
	}{
		{Nil, false},
		{False, false},
		{True, true},
		{FromSmallInt(0), false},
		{FromSmallInt(1), true},
		{NewString(""), false},
		{NewString("x"), true},
	}
	for _, c := range cases {
		if got := rt.Truthy(c.v); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}
