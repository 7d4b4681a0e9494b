package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// Fixed user-facing rejection messages for the activation pipeline. These are
// deliberately short and non-technical; stock rejections in particular must not
// leak inventory internals.
var (
	ErrorInvalidSerialFormat = errors.New("Invalid ICCID format - must be exactly 20 digits")
	ErrorDuplicateToday      = errors.New("This SIM was already activated today")
	ErrorDuplicateSerial     = errors.New("This SIM serial has already been activated")
	ErrorSerialNotInStock    = errors.New("This serial isn't registered with MANAAL. Use the SIM from your dealer.")
	ErrorActivationFailed    = errors.New("Failed to submit SIM activation")
)
