package validate

import (
	"testing"
	"time"
)

func TestNIC(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"A123456789012B", true},
		{"a1234567890129", true},
		{"A123456789012", false},   // 13 chars
		{"1123456789012B", false},  // leading digit
		{"A12345678901BB", false},  // letter inside digit run
		{"A123456789012B9", false}, // 15 chars
		{"", false},
	}
	for _, tc := range cases {
		if got := NIC(tc.id); got != tc.want {
			t.Errorf("NIC(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestPassport(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"AB12345678901", true},
		{"1234567890123", true},
		{"AB1234567890", false},   // 12 chars
		{"AB123456789012", false}, // 14 chars
		{"AB12345(8901!", false},
	}
	for _, tc := range cases {
		if got := Passport(tc.id); got != tc.want {
			t.Errorf("Passport(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestEmail(t *testing.T) {
	cases := []struct {
		email string
		want  bool
	}{
		{"nurse@hospital.mu", true},
		{"a.b@c.d.e", true},
		{"no-at-sign.mu", false},
		{"no@dot", false},
		{"spaces in@local.mu", false},
	}
	for _, tc := range cases {
		if got := Email(tc.email); got != tc.want {
			t.Errorf("Email(%q) = %v, want %v", tc.email, got, tc.want)
		}
	}
}

func TestDigits(t *testing.T) {
	if !Digits("1234567", 7) {
		t.Error("7-digit landline should pass")
	}
	if Digits("123456", 7) || Digits("12345678", 7) || Digits("123456a", 7) {
		t.Error("wrong length or non-numeric landline should fail")
	}
	if !Digits("12345678", 8) {
		t.Error("8-digit mobile should pass")
	}
}

func TestNotFuture(t *testing.T) {
	if !NotFuture(time.Now()) {
		t.Error("today is not in the future")
	}
	if !NotFuture(time.Now().AddDate(-30, 0, 0)) {
		t.Error("past date is not in the future")
	}
	if NotFuture(time.Now().AddDate(0, 0, 1)) {
		t.Error("tomorrow is in the future")
	}
}

func TestInRange_BoundsInclusive(t *testing.T) {
	cases := []struct {
		v, lo, hi float64
		want      bool
	}{
		{40, 40, 272, true},
		{272, 40, 272, true},
		{39.99, 40, 272, false},
		{272.01, 40, 272, false},
		{1500.00, 60, 1500, true},
		{1500.01, 60, 1500, false},
	}
	for _, tc := range cases {
		if got := InRange(tc.v, tc.lo, tc.hi); got != tc.want {
			t.Errorf("InRange(%v, %v, %v) = %v, want %v", tc.v, tc.lo, tc.hi, got, tc.want)
		}
	}
}

func TestTwoDecimals(t *testing.T) {
	if !TwoDecimals(9.9) || !TwoDecimals(9.25) || !TwoDecimals(10) {
		t.Error("values with <= 2 decimals should pass")
	}
	if TwoDecimals(9.999) {
		t.Error("three decimals should fail")
	}
}

func TestErrors_Accumulate(t *testing.T) {
	var e Errors
	if err := e.Err(); err != nil {
		t.Fatalf("empty list should yield nil error, got %v", err)
	}

	e.Add("first problem")
	e.Add("second problem")

	if e.Empty() {
		t.Error("list should not be empty")
	}
	if got := len(e.Messages()); got != 2 {
		t.Fatalf("got %d messages, want 2", got)
	}

	err := e.Err()
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	ve, ok := AsErrors(err)
	if !ok {
		t.Fatal("AsErrors should recover the list")
	}
	if len(ve.Messages()) != 2 {
		t.Errorf("recovered %d messages, want 2", len(ve.Messages()))
	}
}

func TestErrors_Merge(t *testing.T) {
	var a, b Errors
	a.Add("one")
	b.Add("two")
	b.Add("three")
	a.Merge(&b)
	if len(a.Messages()) != 3 {
		t.Errorf("merged list has %d messages, want 3", len(a.Messages()))
	}
	a.Merge(nil)
	if len(a.Messages()) != 3 {
		t.Error("merging nil should be a no-op")
	}
}
