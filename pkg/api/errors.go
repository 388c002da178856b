package api

import "fmt"

// Kind classifies a gateway failure.
type Kind string

const (
	// KindNetwork means the request never produced a usable response
	// (connection refused, timeout, malformed body).
	KindNetwork Kind = "network"
	// KindServer means the server answered with success=false or a
	// non-2xx status other than 404.
	KindServer Kind = "server"
	// KindValidation means the request was rejected client-side before
	// being sent (e.g. empty title).
	KindValidation Kind = "validation"
	// KindNotFound means the server reported the resource missing.
	KindNotFound Kind = "not_found"
)

// Error is the structured failure returned by every gateway operation.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ValidationError builds a client-side validation failure. Exposed so
// form layers can report failures in the same taxonomy.
func ValidationError(msg string) *Error {
	return validationErr(msg)
}

func networkErr(err error) *Error {
	return &Error{Kind: KindNetwork, Message: err.Error()}
}

func validationErr(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}
