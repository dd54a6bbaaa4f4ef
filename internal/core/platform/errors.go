package platform

import "errors"

// Error is a recoverable, user-facing failure carrying a stable machine code.
// The HTTP layers map these to JSON error codes; nothing else leaks outward.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is makes two platform errors equal when their codes match, so handlers can
// branch with errors.Is against the sentinel values below.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

const (
	CodeUserNotFound = "user_not_found"
	CodeInvalidOTP   = "invalid_otp"
	CodeOTPExpired   = "otp_expired"
	CodeAccessDenied = "access_denied"
	CodeLessonLocked = "lesson_locked"
)

var (
	ErrUserNotFound = &Error{Code: CodeUserNotFound, Message: "user not found"}
	ErrInvalidOTP   = &Error{Code: CodeInvalidOTP, Message: "code is wrong or expired"}
	ErrOTPExpired   = &Error{Code: CodeOTPExpired, Message: "code has expired"}
	ErrAccessDenied = &Error{Code: CodeAccessDenied, Message: "access denied"}
	ErrLessonLocked = &Error{Code: CodeLessonLocked, Message: "this lesson is not open for you yet"}
)

// NewError builds a platform error with a custom message but a stable code.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf extracts the machine code from an error, or "internal_error" for
// anything outside the closed taxonomy.
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return "internal_error"
}
