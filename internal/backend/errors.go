package backend

import (
	"errors"
	"fmt"
)

// AuthCode categorizes authentication failures.
type AuthCode string

const (
	// CodeInvalidCredentials covers unknown accounts and wrong passwords.
	// The two are deliberately indistinguishable to callers.
	CodeInvalidCredentials AuthCode = "INVALID_CREDENTIALS"

	// CodeDuplicateAccount indicates the email is already registered.
	CodeDuplicateAccount AuthCode = "DUPLICATE_ACCOUNT"

	// CodeWeakPassword indicates the password failed the provider's policy.
	CodeWeakPassword AuthCode = "WEAK_PASSWORD"

	// CodeUnverifiedAccount indicates the account exists but has not
	// confirmed its email address.
	CodeUnverifiedAccount AuthCode = "UNVERIFIED_ACCOUNT"

	// CodeSessionExpired indicates a resume token that is no longer valid.
	CodeSessionExpired AuthCode = "SESSION_EXPIRED"
)

// AuthError is an authentication failure with a stable code for
// programmatic handling and a human-readable message for display.
type AuthError struct {
	Code    AuthCode
	Message string
	Err     error // underlying cause, optional
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates an AuthError with the given code and message.
func NewAuthError(code AuthCode, message string) *AuthError {
	return &AuthError{Code: code, Message: message}
}

// IsAuthCode reports whether err is an AuthError with the given code.
// Uses errors.As to handle wrapped errors.
func IsAuthCode(err error, code AuthCode) bool {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
