package value

import (
	"testing"

	"github.com/kr/pretty"

	goiferrors "goif/internal/errors"
)

func TestBinaryArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		op      Op
		a, b    Value
		want    Value
		wantErr bool
	}{
		{"add", OpAdd, NewInt(3), NewInt(4), NewInt(7), false},
		{"sub", OpSub, NewInt(10), NewInt(3), NewInt(7), false},
		{"mul", OpMul, NewInt(6), NewInt(7), NewInt(42), false},
		{"div floors toward -inf", OpDiv, NewInt(-7), NewInt(2), NewInt(-4), false},
		{"mod matches divisor sign", OpMod, NewInt(-7), NewInt(2), NewInt(1), false},
		{"mod matches divisor sign (neg divisor)", OpMod, NewInt(7), NewInt(-2), NewInt(-1), false},
		{"concat", OpConcat, NewString("foo"), NewString("bar"), NewString("foobar"), false},
		{"index 1-based", OpIndex, NewString("HELLO"), NewInt(1), NewString("H"), false},
		{"type mismatch", OpAdd, NewInt(1), NewString("x"), Value{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Binary("MAIN", 1, tc.op, tc.a, tc.b)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %# v", pretty.Formatter(got))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %# v, want %# v", pretty.Formatter(got), pretty.Formatter(tc.want))
			}
		})
	}
}

func TestDivisionByZeroThrowsOpFail(t *testing.T) {
	_, err := Binary("MAIN", 1, OpDiv, NewInt(1), NewInt(0))
	assertOpFail(t, err)

	_, err = Binary("MAIN", 1, OpMod, NewInt(1), NewInt(0))
	assertOpFail(t, err)
}

func TestIndexPastEndThrowsOpFail(t *testing.T) {
	_, err := Binary("MAIN", 1, OpIndex, NewString("HELLO"), NewInt(6))
	assertOpFail(t, err)
}

func assertOpFail(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected OP_FAIL, got nil error")
	}
	if exc, ok := err.(*goiferrors.Exception); !ok || exc.Name != goiferrors.OpFail {
		t.Fatalf("expected OP_FAIL, got %T: %v", err, err)
	}
}

func TestTernary(t *testing.T) {
	got, err := Ternary("MAIN", 1, NewBool(true), NewInt(1), NewInt(2))
	if err != nil || got != NewInt(1) {
		t.Fatalf("true branch: got %v, err %v", got, err)
	}
	got, err = Ternary("MAIN", 1, NewBool(false), NewInt(1), NewInt(2))
	if err != nil || got != NewInt(2) {
		t.Fatalf("false branch: got %v, err %v", got, err)
	}
}
