package neurogc

import "testing"

func TestValueBoolRoundTrip(t *testing.T) {
	v := BoolValue(true)
	if v.Tag() != TagBool {
		t.Fatalf("expected TagBool, got %s", v.Tag())
	}
	if !v.Bool() {
		t.Fatal("expected true")
	}
	if BoolValue(false).Bool() {
		t.Fatal("expected false")
	}
}

func TestValueIntegerRoundTrip(t *testing.T) {
	v := IntegerValue(-42, true)
	n, signed := v.Integer()
	if n != -42 || !signed {
		t.Fatalf("got (%d, %v)", n, signed)
	}

	u := IntegerValue(42, false)
	n2, signed2 := u.Integer()
	if n2 != 42 || signed2 {
		t.Fatalf("got (%d, %v)", n2, signed2)
	}
}

func TestValueByteShortLongRoundTrip(t *testing.T) {
	b, bs := ByteValue(-5, true).Byte()
	if b != -5 || !bs {
		t.Fatalf("byte got (%d, %v)", b, bs)
	}
	s, ss := ShortValue(-300, true).Short()
	if s != -300 || !ss {
		t.Fatalf("short got (%d, %v)", s, ss)
	}
	l, ls := LongValue(-1, true).Long()
	if l != -1 || !ls {
		t.Fatalf("long got (%d, %v)", l, ls)
	}
}

func TestValueFloatDoubleRoundTrip(t *testing.T) {
	if FloatValue(3.5).Float() != 3.5 {
		t.Fatal("float round trip mismatch")
	}
	if DoubleValue(-2.25).Double() != -2.25 {
		t.Fatal("double round trip mismatch")
	}
}

func TestValueNativeObjectRoundTrip(t *testing.T) {
	type payload struct{ n int }
	p := &payload{n: 7}
	v := NativeObjectValue(p)
	got, ok := v.NativeObject().(*payload)
	if !ok || got != p {
		t.Fatal("native object round trip mismatch")
	}
}

func TestValueManagedObjectRoundTrip(t *testing.T) {
	h := Handle[any]{TableIndex: 3, RowUid: 9}
	v := ManagedObjectValue(h)
	if v.ManagedObject() != h {
		t.Fatal("managed object round trip mismatch")
	}
}

func TestValueWrongTagPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic reading Bool from an Integer value")
		}
	}()
	IntegerValue(1, true).Bool()
}

func TestValueTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"undefined", Undefined, false},
		{"zero bool", BoolValue(false), false},
		{"true bool", BoolValue(true), true},
		{"zero integer", IntegerValue(0, true), false},
		{"nonzero integer", IntegerValue(1, true), true},
		{"zero float", FloatValue(0), false},
		{"nonzero float", FloatValue(0.1), true},
		{"zero double", DoubleValue(0), false},
		{"nil native", NativeObjectValue(nil), false},
		{"non-nil native", NativeObjectValue(struct{}{}), true},
		{"unresolvable managed", ManagedObjectValue(Handle[any]{}), false},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("%s: Truthy() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestValueEqual(t *testing.T) {
	if !IntegerValue(5, true).Equal(IntegerValue(5, true)) {
		t.Fatal("expected equal integers to compare equal")
	}
	if IntegerValue(5, true).Equal(IntegerValue(5, false)) {
		t.Fatal("signedness mismatch should not compare equal")
	}
	if IntegerValue(5, true).Equal(LongValue(5, true)) {
		t.Fatal("differing tags should never compare equal")
	}
	if !Undefined.Equal(Undefined) {
		t.Fatal("Undefined should equal itself")
	}
}
