package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/simfield_backend/models"
)

func TestIsValidSerialFormat(t *testing.T) {
	cases := []struct {
		serial string
		want   bool
	}{
		{"12345678901234567890", true},
		{"1234567890123456789", false},
		{"123456789012345678901", false},
		{"1234567890123456789A", false},
		{"", false},
		{" 12345678901234567890", false},
	}
	for _, tc := range cases {
		if got := models.IsValidSerialFormat(tc.serial); got != tc.want {
			t.Errorf("IsValidSerialFormat(%q) = %v, want %v", tc.serial, got, tc.want)
		}
	}
}

func TestExtractSerialFingerprint(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"clean serial", "12345678901234567890", "12345678901234567890"},
		{"noise stripped to exact length", "ICCID: 1234567890-1234567890;", "12345678901234567890"},
		{"concatenated double scan takes first chunk", "1234567890123456789098765432109876543210", "12345678901234567890"},
		{"letters around oversized digits take first chunk", "ABC12345678901234567890XYZ9", "12345678901234567890"},
		{"too few digits", "123456789", ""},
		{"nineteen digits", "1234567890123456789", ""},
		{"empty", "", ""},
		{"no digits", "no-serial-here", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := models.ExtractSerialFingerprint(tc.raw); got != tc.want {
				t.Fatalf("ExtractSerialFingerprint(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestExtractSerialFingerprintThenValidate(t *testing.T) {
	got := models.ExtractSerialFingerprint("scan:89254 02112 33445 56677")
	if got == "" {
		t.Fatal("expected a serial from spaced scanner output")
	}
	if !models.IsValidSerialFormat(got) {
		t.Fatalf("extracted serial %q fails format validation", got)
	}
}
