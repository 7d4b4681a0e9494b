package utils

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "KE"

func IsValidEmail(email string) bool {
	// Basic email validation regex pattern
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err // Phone number is invalid
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil // Phone number is valid for the specified country code
}

// NormalizePhoneNumber returns the E.164 form, or the input unchanged when it
// cannot be parsed. Agent contact fields are denormalized into activation
// records, so they are normalized once here rather than at every read.
func NormalizePhoneNumber(phoneNumber, countryCode string) string {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return phoneNumber
	}
	return libphonenumber.Format(p, libphonenumber.E164)
}

const idSuffixCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func randomIdSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = idSuffixCharset[rand.Intn(len(idSuffixCharset))]
	}
	return string(b)
}

// GenerateScanId builds activation ids in the upstream wire format
// scan_<epoch millis>_<6 random base36 chars>. The id is time-ordered but not a
// uniqueness guarantee; the duplicate-check pipeline owns uniqueness.
func GenerateScanId(at time.Time) string {
	return fmt.Sprintf("scan_%d_%s", at.UnixMilli(), randomIdSuffix(6))
}

// GenerateStartKeyId builds start-key request ids: SK_<epoch millis>_<6 random chars>.
func GenerateStartKeyId(at time.Time) string {
	return fmt.Sprintf("SK_%d_%s", at.UnixMilli(), randomIdSuffix(6))
}

// StartOfToday returns local midnight for the given clock reading.
func StartOfToday(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// FormatActivationDate renders the legacy dd/mm/yyyy display date stored on
// activation records.
func FormatActivationDate(at time.Time) string {
	return at.Format("02/01/2006")
}

func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errorResponse["error"] = err.Error()
		return errorResponse
	}
	for _, fieldErr := range validationErrors {
		field := strings.ToLower(fieldErr.Field())
		errorResponse[field] = fmt.Sprintf("validation failed on '%s'", fieldErr.Tag())
	}
	return errorResponse
}
