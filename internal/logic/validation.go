package logic

import (
	"fmt"
	"regexp"
)

const (
	minPhoneLength = 5
	maxPhoneLength = 15
	otpLength      = 6

	// DemoOTP is the only one-time password the mock verifier accepts
	DemoOTP = "123456"
)

var digitsRegex = regexp.MustCompile(`^\d+$`)

// ValidationError reports a user-correctable problem with one form field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePhone checks the phone sign-in form
func ValidatePhone(countryCode, phoneNumber string) error {
	if len(countryCode) < 1 {
		return &ValidationError{Field: "countryCode", Message: "Please select a country"}
	}
	if len(phoneNumber) < minPhoneLength {
		return &ValidationError{Field: "phoneNumber", Message: "Phone number is too short"}
	}
	if len(phoneNumber) > maxPhoneLength {
		return &ValidationError{Field: "phoneNumber", Message: "Phone number is too long"}
	}
	if !digitsRegex.MatchString(phoneNumber) {
		return &ValidationError{Field: "phoneNumber", Message: "Phone number must contain only digits"}
	}
	return nil
}

// ValidateOTP checks the shape of a one-time password
func ValidateOTP(otp string) error {
	if len([]rune(otp)) != otpLength {
		return &ValidationError{Field: "otp", Message: "OTP must be 6 digits"}
	}
	return nil
}

// VerifyOTP validates and then checks the password against the demo code.
// There is no lockout or rate limiting.
func VerifyOTP(otp string) error {
	if err := ValidateOTP(otp); err != nil {
		return err
	}
	if otp != DemoOTP {
		return &ValidationError{Field: "otp", Message: "Invalid OTP. Use 123456."}
	}
	return nil
}
