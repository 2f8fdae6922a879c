package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodePermission    Code = "PERMISSION_DENIED"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeTimeout       Code = "TIMEOUT"
	CodeConfiguration Code = "CONFIGURATION_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeInternal      Code = "INTERNAL_ERROR"
)

// Metadata carries the per-code handling policy. UserMessage is the
// fallback reply shown to the acting user when no more specific text exists.
type Metadata struct {
	Retryable      bool
	UserMessage    string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Retryable:      false,
		UserMessage:    "⚠️ That input is not valid.",
		DetailsAllowed: true,
	},
	CodePermission: {
		Retryable:      false,
		UserMessage:    "❌ You don't have permission to do that.",
		DetailsAllowed: true,
	},
	CodeNotFound: {
		Retryable:      false,
		UserMessage:    "⚠️ That no longer exists.",
		DetailsAllowed: false,
	},
	CodeConflict: {
		Retryable:      false,
		UserMessage:    "⚠️ That was already done.",
		DetailsAllowed: true,
	},
	CodeTimeout: {
		Retryable:      true,
		UserMessage:    "⏰ Time expired. Please try again.",
		DetailsAllowed: false,
	},
	CodeConfiguration: {
		Retryable:      false,
		UserMessage:    "❌ The server is misconfigured. Contact an administrator.",
		DetailsAllowed: true,
	},
	CodeDependency: {
		Retryable:      true,
		UserMessage:    "⚠️ A downstream service is unavailable. Try again shortly.",
		DetailsAllowed: true,
	},
	CodeInternal: {
		Retryable:      true,
		UserMessage:    "❌ Something went wrong.",
		DetailsAllowed: false,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// UserMessage returns the reply text for the acting user: the error's own
// message when the code allows details, otherwise the code's canned text.
func (e *Error) UserMessage() string {
	if e == nil {
		return MetadataFor(CodeInternal).UserMessage
	}
	meta := MetadataFor(e.code)
	if meta.DetailsAllowed && e.message != "" {
		return e.message
	}
	return meta.UserMessage
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf extracts the code from any error, defaulting to CodeInternal for
// errors that did not originate in this package.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
