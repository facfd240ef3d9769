package floor

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestValidators(t *testing.T) {
	cases := []struct {
		name string
		err  error
		ok   bool
	}{
		{"name ok", ValidateName("Jo"), true},
		{"name short", ValidateName(" J "), false},
		{"name long", ValidateName(strings.Repeat("x", 101)), false},
		{"phone formatted", ValidatePhone("(555) 123-4567"), true},
		{"phone short", ValidatePhone("555-1234"), false},
		{"email empty", ValidateEmail(""), true},
		{"email ok", ValidateEmail("a@b.co"), true},
		{"email bad", ValidateEmail("a@b"), false},
		{"party min", ValidatePartySize(1), true},
		{"party max", ValidatePartySize(20), true},
		{"party zero", ValidatePartySize(0), false},
		{"party big", ValidatePartySize(21), false},
		{"date ok", ValidateDate("2025-02-28"), true},
		{"date bad", ValidateDate("2025-02-30"), false},
		{"time ok", ValidateTime("09:15"), true},
		{"time bad", ValidateTime("25:00"), false},
	}
	for _, tc := range cases {
		if (tc.err == nil) != tc.ok {
			t.Fatalf("%s: err = %v", tc.name, tc.err)
		}
	}
}

func TestCustomer_ValidateJoinsErrors(t *testing.T) {
	err := Customer{Name: "x", Phone: "1", Email: "nope"}.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, part := range []string{"name", "phone", "email"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("error %q missing %s", err, part)
		}
	}
	if err := (Customer{Name: "Ada", Phone: "555 123 4567"}).Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestTextHelpers(t *testing.T) {
	if !ContainsFold("The Patio", "PATIO") || ContainsFold("Main", "bar") {
		t.Fatalf("ContainsFold mismatch")
	}
	if got := Fold("  PaTiO "); got != "patio" {
		t.Fatalf("Fold = %q", got)
	}
	if DigitsOnly("+1 (555) 123-4567") != "15551234567" {
		t.Fatalf("DigitsOnly = %q", DigitsOnly("+1 (555) 123-4567"))
	}
}

func TestCodes(t *testing.T) {
	now := time.Date(2025, 7, 4, 19, 0, 0, 0, time.UTC)
	if !regexp.MustCompile(`^RES-20250704-\d{4}$`).MatchString(ReservationCode(now)) {
		t.Fatalf("reservation code = %s", ReservationCode(now))
	}
	if !regexp.MustCompile(`^SVC-20250704-\d{4}$`).MatchString(ServiceCode(now)) {
		t.Fatalf("service code = %s", ServiceCode(now))
	}
	if got := WaitlistCode(now); got != "WAIT-20250704-1751655600000" {
		t.Fatalf("waitlist code = %s", got)
	}
}
