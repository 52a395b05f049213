package vm

import (
	"math"
	"testing"
)

func TestValueTypes(t *testing.T) {
	tests := []struct {
		v    Value
		want ValueType
	}{
		{Nil, ValNil},
		{Value{}, ValNil},
		{True, ValBool},
		{FromBool(false), ValBool},
		{FromFloat64(3), ValNumber},
		{FromString(""), ValString},
	}
	for _, tt := range tests {
		if got := tt.v.Type(); got != tt.want {
			t.Errorf("%v: Type() = %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestValueAccessors(t *testing.T) {
	if !FromBool(true).Bool() {
		t.Error("FromBool(true).Bool() = false")
	}
	if got := FromFloat64(2.5).Float64(); got != 2.5 {
		t.Errorf("Float64() = %v, want 2.5", got)
	}
	if got := FromString("abc").Text(); got != "abc" {
		t.Errorf("Text() = %q, want abc", got)
	}
}

func TestValueAccessorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic from Float64 on a string")
		}
	}()
	FromString("x").Float64()
}

func TestIsFalsey(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Nil, true},
		{False, true},
		{FromFloat64(0), true},
		{FromFloat64(math.Copysign(0, -1)), true},
		{True, false},
		{FromFloat64(1), false},
		{FromFloat64(-0.5), false},
		{FromString(""), false},
		{FromString("false"), false},
	}
	for _, tt := range tests {
		if got := tt.v.IsFalsey(); got != tt.want {
			t.Errorf("IsFalsey(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		a, b Value
		want bool
	}{
		{Nil, Nil, true},
		{True, True, true},
		{True, False, false},
		{FromFloat64(1), FromFloat64(1), true},
		{FromFloat64(1), FromFloat64(2), false},
		{FromString("a"), FromString("a"), true},
		{FromString("a"), FromString("b"), false},
		{FromFloat64(0), False, false},
		{FromFloat64(0), Nil, false},
		{FromString("1"), FromFloat64(1), false},
		{Nil, False, false},
	}
	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.want {
			t.Errorf("%v == %v: got %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{True, "true"},
		{False, "false"},
		{FromFloat64(7), "7"},
		{FromFloat64(3.0), "3"},
		{FromFloat64(2.5), "2.5"},
		{FromFloat64(-1), "-1"},
		{FromFloat64(0.1 + 0.2), "0.30000000000000004"},
		{FromFloat64(1e21), "1e+21"},
		{FromFloat64(1e6), "1e+06"},
		{FromFloat64(1e-4), "1e-04"},
		{FromFloat64(123456), "123456"},
		{FromFloat64(0.001), "0.001"},
		{FromFloat64(10000), "10000"},
		{FromFloat64(-2.5e-7), "-2.5e-07"},
		{FromFloat64(math.Inf(1)), "inf"},
		{FromFloat64(math.Inf(-1)), "-inf"},
		{FromFloat64(math.NaN()), "nan"},
		{FromString("hello world"), "hello world"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
