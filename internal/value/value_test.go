package value

import (
	"testing"

	"anteater/internal/strtable"
)

func TestConstructorsSetKind(t *testing.T) {
	if v := VInt(5); !v.IsInt() || v.I != 5 {
		t.Fatalf("VInt(5) = %+v", v)
	}
	if v := VFloat(2.5); !v.IsFloat() || v.F != 2.5 {
		t.Fatalf("VFloat(2.5) = %+v", v)
	}
	if v := VNull(); !v.IsNull() {
		t.Fatalf("VNull() = %+v", v)
	}
	var zero Value
	if !zero.IsInvalid() {
		t.Fatalf("zero Value should be Invalid, got %+v", zero)
	}
}

func TestIsNumber(t *testing.T) {
	if !VInt(1).IsNumber() || !VFloat(1).IsNumber() {
		t.Fatalf("Int and Float should both be numbers")
	}
	if VString(0).IsNumber() {
		t.Fatalf("String should not be a number")
	}
}

func TestToStringScalars(t *testing.T) {
	tbl := strtable.New()
	id := tbl.Intern("hi")
	cases := []struct {
		v    Value
		want string
	}{
		{VInt(42), "42"},
		{VFloat(0.5), "0.5"},
		{VString(id), "hi"},
		{VNull(), "null"},
	}
	for _, c := range cases {
		if got := c.v.ToString(tbl); got != c.want {
			t.Errorf("ToString(%+v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestToStringArray(t *testing.T) {
	tbl := strtable.New()
	a := VArray([]Value{VInt(10), VInt(20), VInt(30)})
	want := "[10, 20, 30]"
	if got := a.ToString(tbl); got != want {
		t.Fatalf("ToString(array) = %q, want %q", got, want)
	}
}

func TestEqualByKindAndValue(t *testing.T) {
	if !Equal(VInt(3), VInt(3)) {
		t.Fatalf("VInt(3) should equal VInt(3)")
	}
	if Equal(VInt(3), VInt(4)) {
		t.Fatalf("VInt(3) should not equal VInt(4)")
	}
	if Equal(VInt(3), VFloat(3)) {
		t.Fatalf("Int and Float of the same magnitude should not be Equal (no implicit promotion here)")
	}
	// Value identity for Strings: equal iff underlying ids match.
	if !Equal(VString(7), VString(7)) {
		t.Fatalf("same string id should be Equal")
	}
	if Equal(VString(7), VString(8)) {
		t.Fatalf("different string ids should not be Equal")
	}
}

func TestArrayIsCopiedOnAssignmentBySliceCopy(t *testing.T) {
	// Arrays are value-typed: the VM is responsible for copying A on
	// assignment. This test documents that two Values built from a slice
	// and a copy of that slice do not share storage; VArray itself makes no
	// copy, so copying is the VM's job, not value.Value's.
	src := []Value{VInt(1), VInt(2)}
	cp := append([]Value(nil), src...)
	a := VArray(src)
	b := VArray(cp)
	b.A[0] = VInt(99)
	if a.A[0].I != 1 {
		t.Fatalf("mutating the copy's backing slice affected the original")
	}
}
