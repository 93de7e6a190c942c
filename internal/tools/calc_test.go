package tools

import (
	"math"
	"testing"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"200 / 5", 40},
		{"(4500 - 3200) / 4500", 1300.0 / 4500.0},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"-5 + 3", -2},
		{"2 ^ 10", 1024},
		{"2 ^ 3 ^ 2", 512}, // right-associative
		{"10 % 3", 1},
		{"sqrt(16)", 4},
		{"abs(-3.5)", 3.5},
		{"1,300 / 4,500", 1300.0 / 4500.0}, // thousands separators
		{"  42  ", 42},
		{"0.1 + 0.2", 0.30000000000000004},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Evaluate(tc.expr)
			if err != nil {
				t.Fatalf("Evaluate(%q) failed: %v", tc.expr, err)
			}
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	cases := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"spaces only", "   "},
		{"division by zero", "1 / 0"},
		{"modulo by zero", "1 % 0"},
		{"unbalanced paren", "(1 + 2"},
		{"trailing garbage", "1 + 2 x"},
		{"unknown function", "log(10)"},
		{"bare identifier", "revenue / 2"},
		{"sqrt negative", "sqrt(-1)"},
		{"double dot", "1..2 + 3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Evaluate(tc.expr); err == nil {
				t.Errorf("Evaluate(%q) should fail", tc.expr)
			}
		})
	}
}
