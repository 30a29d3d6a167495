package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null{}, false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"zero", Number(0), false},
		{"nonzero", Number(1), true},
		{"empty string", String(""), false},
		{"nonempty string", String("x"), true},
		{"empty array", Array{}, false},
		{"nonempty array", Array{Number(0)}, true},
		{"handle always truthy", Handle{Object: fakeHost{}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truthy(tt.v); got != tt.want {
				t.Errorf("Truthy(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null==null", Null{}, Null{}, true},
		{"1==1", Number(1), Number(1), true},
		{"1==2", Number(1), Number(2), false},
		{"string match", String("a"), String("a"), true},
		{"cross variant", Number(1), String("1"), false},
		{"arrays equal", Array{Number(1), String("a")}, Array{Number(1), String("a")}, true},
		{"arrays differ length", Array{Number(1)}, Array{}, false},
		{"bool vs number", Bool(true), Number(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqualNaN(t *testing.T) {
	nan := Number(0)
	nan = Number(nanValue())
	if Equal(nan, nan) {
		t.Errorf("NaN should never equal itself")
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestCompare(t *testing.T) {
	if got, err := Compare(Number(1), Number(2)); err != nil || got != -1 {
		t.Errorf("Compare(1,2) = %v, %v, want -1, nil", got, err)
	}
	if got, err := Compare(String("b"), String("a")); err != nil || got != 1 {
		t.Errorf("Compare(b,a) = %v, %v, want 1, nil", got, err)
	}
	if _, err := Compare(Number(1), String("a")); err == nil {
		t.Errorf("expected TypeError comparing number and string")
	}
	if _, err := Compare(Bool(true), Bool(false)); err == nil {
		t.Errorf("expected TypeError comparing two bools")
	}
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Value
		want    Value
		wantErr bool
	}{
		{"number+number", Number(1), Number(2), Number(3), false},
		{"string+string", String("a"), String("b"), String("ab"), false},
		{"string+number", String("x="), Number(5), String("x=5"), false},
		{"number+string", Number(5), String("!"), String("5!"), false},
		{"array+array", Array{Number(1)}, Array{Number(2)}, Array{Number(1), Number(2)}, false},
		{"bool+bool error", Bool(true), Bool(false), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Add(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Add(%v, %v) expected error, got %v", tt.a, tt.b, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Add(%v, %v) unexpected error: %v", tt.a, tt.b, err)
			}
			// Array results need a real structural diff, not just Equal's
			// bool: a mismatched element should say which one and how.
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Add(%v, %v) mismatch (-want +got):\n%s", tt.a, tt.b, diff)
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	if got, err := Arithmetic("-", Number(5), Number(2)); err != nil || got != Number(3) {
		t.Errorf("5-2 = %v, %v, want 3, nil", got, err)
	}
	if got, err := Arithmetic("*", Number(5), Number(2)); err != nil || got != Number(10) {
		t.Errorf("5*2 = %v, %v, want 10, nil", got, err)
	}
	if got, err := Arithmetic("/", Number(5), Number(2)); err != nil || got != Number(2.5) {
		t.Errorf("5/2 = %v, %v, want 2.5, nil", got, err)
	}
	if _, err := Arithmetic("/", Number(5), Number(0)); err == nil {
		t.Errorf("expected DivisionByZeroError for 5/0")
	}
	if _, err := Arithmetic("%", Number(5), Number(0)); err == nil {
		t.Errorf("expected DivisionByZeroError for 5%%0")
	}
	if got, err := Arithmetic("%", Number(5), Number(3)); err != nil || got != Number(2) {
		t.Errorf("5%%3 = %v, %v, want 2, nil", got, err)
	}
	if _, err := Arithmetic("-", String("a"), Number(1)); err == nil {
		t.Errorf("expected TypeError for string-number")
	}
}

func TestToString(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null{}, "null"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"number", Number(3.5), "3.5"},
		{"integral number", Number(3), "3"},
		{"string", String("hi"), "hi"},
		{"array", Array{Number(1), String("a")}, "[1, a]"},
		{"handle fallback", Handle{Object: fakeHost{}}, "<Fake>"},
		{"handle stringer", Handle{Object: stringerHost{}}, "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToString(tt.v); got != tt.want {
				t.Errorf("ToString(%v) = %q, want %q", tt.v, got, tt.want)
			}
		})
	}
}

// Handle wraps a concrete HostObject value, so two Handles built from
// field-less stub types should diff as equal the same way two structs
// would.
func TestHandleDeepEqual(t *testing.T) {
	a := Handle{Object: fakeHost{}}
	b := Handle{Object: fakeHost{}}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Handle{fakeHost{}} mismatch (-a +b):\n%s", diff)
	}
}

type fakeHost struct{}

func (fakeHost) TypeName() string                    { return "Fake" }
func (fakeHost) Property(string) (Value, bool)       { return nil, false }
func (fakeHost) Method(string) (Method, bool)         { return nil, false }

type stringerHost struct{ fakeHost }

func (stringerHost) ToString() string { return "custom" }
