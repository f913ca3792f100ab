package domain

import "errors"

// Kind classifies the recoverable, caller-visible failure modes. The
// HTTP layer maps kinds to status codes; anything that is not a *Error
// is treated as fatal for the request.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidState
	KindCredential
	KindSchedule
	KindConfiguration
	KindPermission
)

type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Msg: msg}
}

func InvalidState(msg string) error {
	return &Error{Kind: KindInvalidState, Code: "INVALID_STATE", Msg: msg}
}

func ScheduleErr(msg string) error {
	return &Error{Kind: KindSchedule, Code: "OUT_OF_WINDOW", Msg: msg}
}

func ConfigurationErr(msg string) error {
	return &Error{Kind: KindConfiguration, Code: "INVALID_INPUT", Msg: msg}
}

func PermissionDenied(msg string) error {
	return &Error{Kind: KindPermission, Code: "FORBIDDEN", Msg: msg}
}

// The two credential failures share a kind but keep distinct codes so
// callers can tell "wrong code" from "no code available".
func OTPMismatch(msg string) error {
	return &Error{Kind: KindCredential, Code: "OTP_MISMATCH", Msg: msg}
}

func OTPConsumed(msg string) error {
	return &Error{Kind: KindCredential, Code: "OTP_CONSUMED", Msg: msg}
}

// KindOf extracts the kind from an error chain; KindUnknown for
// anything that is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// CodeOf extracts the machine-readable code, empty for non-domain errors.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
