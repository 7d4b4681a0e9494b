package models

import (
	"regexp"
	"strings"
)

// A SIM serial (ICCID) is exactly 20 decimal digits. Scanners and keyboards
// hand us anything from clean serials to concatenated or noise-wrapped reads;
// ExtractSerialFingerprint reduces raw input to the canonical form.
const serialLength = 20

var serialPattern = regexp.MustCompile(`^\d{20}$`)

// IsValidSerialFormat re-checks the 20-digit invariant. Called before any
// remote lookup even when the value came from ExtractSerialFingerprint, so a
// caller bypassing the extractor cannot push a malformed serial downstream.
func IsValidSerialFormat(serial string) bool {
	return serialPattern.MatchString(serial)
}

// ExtractSerialFingerprint turns a raw scanned or typed string into a
// canonical 20-digit serial. Returns "" when no serial can be derived.
//
// The resolution order is exact match, then aligned 20-digit chunks (handles
// concatenated scans), then a centered 20-digit window (scanners that wrap
// the serial in leading/trailing noise). The order must not change: it ranks
// correctness over permissiveness, and every later pipeline stage assumes the
// 20-digit invariant holds.
func ExtractSerialFingerprint(raw string) string {
	if raw == "" {
		return ""
	}

	digitsOnly := stripNonDigits(raw)

	if len(digitsOnly) == serialLength {
		return digitsOnly
	}

	// Disjoint chunks of up to 20 from the front; accept the first full chunk.
	for i := 0; i < len(digitsOnly); i += serialLength {
		end := i + serialLength
		if end > len(digitsOnly) {
			break
		}
		return digitsOnly[i:end]
	}

	if len(digitsOnly) > serialLength {
		start := (len(digitsOnly) - serialLength) / 2
		return digitsOnly[start : start+serialLength]
	}

	return ""
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
