package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		err error
	}{
		{"500", "500", nil},
		{"1.0", "1", nil},
		{"1.23", "1.23", nil},
		{"1,23", "1.23", nil},
		{" 2.50 ", "2.5", nil},
		{"0", "0", nil},
		{"-1", "", ErrNegativeAmount},
		{"abc", "", ErrInvalidAmount},
		{"1.2.3", "", ErrInvalidAmount},
		{"", "", ErrInvalidAmount},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%q expected %v, got %v", tc.in, tc.err, err)
			}
			if !IsValidation(err) {
				t.Fatalf("%q expected a ValidationError, got %T", tc.in, err)
			}
			continue
		}
		if err != nil || got.String() != tc.out {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
		}
	}
}

func TestAmountJSONIsNumber(t *testing.T) {
	a, _ := ParseAmount("1250.75")
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "1250.75" {
		t.Fatalf("expected bare number, got %s", data)
	}

	for _, in := range []string{`1250.75`, `"1250.75"`} {
		var b Amount
		if err := json.Unmarshal([]byte(in), &b); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if !b.Equal(a) {
			t.Fatalf("unmarshal %s: got %s", in, b)
		}
	}

	var n Amount
	if err := json.Unmarshal([]byte(`null`), &n); err != nil || !n.IsZero() {
		t.Fatalf("null should decode to zero, got %s err=%v", n, err)
	}
}

func TestSumIsExact(t *testing.T) {
	parts := []string{"0.1", "0.2", "0.3"}
	total := Sum(parts, func(s string) Amount {
		a, err := ParseAmount(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		return a
	})
	want, _ := ParseAmount("0.6")
	if !total.Equal(want) {
		t.Fatalf("expected 0.6, got %s", total)
	}
}
