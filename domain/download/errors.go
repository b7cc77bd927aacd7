package download

import "errors"

// ErrorKind classifies a recorder failure.
type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindNotEntitled     ErrorKind = "not_entitled"
	KindInvalidRequest  ErrorKind = "invalid_request"
	KindUpstream        ErrorKind = "upstream_failure"
)

// Messages surfaced to callers.
const (
	MsgMissingToken   = "missing auth token"
	MsgAuthFailed     = "authentication failed"
	MsgNotEntitled    = "Please subscribe to a plan to download the image."
	MsgInvalidRequest = "invalid request body"

	// MsgLegacyAuthFailed replaces MsgAuthFailed in legacy error responses.
	MsgLegacyAuthFailed = "supabase auth error"
)

// Error is a tagged recorder failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unauthenticated builds an Unauthenticated error.
func Unauthenticated(msg string, cause error) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg, Err: cause}
}

// NotEntitled builds a NotEntitled error with the standard message.
func NotEntitled(cause error) *Error {
	return &Error{Kind: KindNotEntitled, Message: MsgNotEntitled, Err: cause}
}

// InvalidRequest builds an InvalidRequest error.
func InvalidRequest(cause error) *Error {
	return &Error{Kind: KindInvalidRequest, Message: MsgInvalidRequest, Err: cause}
}

// Upstream builds an UpstreamFailure error for a failed store or provider call.
func Upstream(msg string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: cause}
}

// KindOf returns the kind of a recorder error, or "" for untagged errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
