package pkgerror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned by stores when a workspace does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrBusy is returned by stores when a slot is in use by a running load.
	ErrBusy = errors.New("resource busy")
)

// Type classifies errors by who is at fault.
type Type int

const (
	TypeServer     Type = iota // the process failed
	TypeBusiness               // the request is valid but the workspace state forbids it
	TypeValidation             // the request itself is wrong
)

var typeNames = [...]string{
	TypeServer:     "ERROR_TYPE_SERVER",
	TypeBusiness:   "ERROR_TYPE_BUSINESS",
	TypeValidation: "ERROR_TYPE_VALIDATION",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "ERROR_TYPE_UNKNOWN"
	}
	return typeNames[t]
}

// Code is a stable identifier mapped to an HTTP status at the edge.
type Code int

const (
	CodeInternal Code = iota
	CodeInvalidFormat
	CodeInvalidInput
	CodeNotFound
	CodeConflict
	CodeTooLarge
	CodeUnavailable
)

var codeInfo = map[Code]struct {
	name   string
	status int
}{
	CodeInternal:      {"ERROR_CODE_INTERNAL", http.StatusInternalServerError},
	CodeInvalidFormat: {"ERROR_CODE_INVALID_FORMAT", http.StatusBadRequest},
	CodeInvalidInput:  {"ERROR_CODE_INVALID_INPUT", http.StatusUnprocessableEntity},
	CodeNotFound:      {"ERROR_CODE_NOT_FOUND", http.StatusNotFound},
	CodeConflict:      {"ERROR_CODE_CONFLICT", http.StatusConflict},
	CodeTooLarge:      {"ERROR_CODE_TOO_LARGE", http.StatusRequestEntityTooLarge},
	CodeUnavailable:   {"ERROR_CODE_UNAVAILABLE", http.StatusServiceUnavailable},
}

func (c Code) String() string {
	if info, ok := codeInfo[c]; ok {
		return info.name
	}
	return codeInfo[CodeInternal].name
}

// Error carries a client-facing message next to the underlying cause.
// Only validation causes are ever shown to a client, see Detail.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
}

func (e *Error) Error() string {
	switch {
	case e.err != nil:
		return e.err.Error()
	case e.msg != "":
		return e.msg
	}

	switch e.errType {
	case TypeValidation:
		return "invalid request"
	case TypeBusiness:
		return "request not allowed in current state"
	case TypeServer:
		return "internal error"
	default:
		return "unknown error"
	}
}

// String is the verbose form used in server logs.
func (e *Error) String() string {
	return fmt.Sprintf("type=%s code=%s msg=%q cause=%v", e.errType, e.code, e.msg, e.err)
}

// Msg returns the client-facing message.
func (e *Error) Msg() string {
	return e.msg
}

// Detail returns the cause text of a validation error, "" otherwise.
func (e *Error) Detail() string {
	if e.errType != TypeValidation || e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *Error) Type() Type {
	return e.errType
}

func (e *Error) Code() Code {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

// StatusCode maps the error code to an HTTP status code.
func (e *Error) StatusCode() int {
	if info, ok := codeInfo[e.code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return CodeInternal
}

func new(err error, msg string, et Type, code Code) error {
	return &Error{err: err, msg: msg, errType: et, code: code}
}

// NewServer hides err behind a generic message.
func NewServer(err error) error {
	return new(err, "Internal server error", TypeServer, CodeInternal)
}

// NewBusiness reports a request the current workspace state cannot serve.
func NewBusiness(msg string, code Code) error {
	return new(nil, msg, TypeBusiness, code)
}

// NewInvalidInput wraps a validation failure; its text is returned as detail.
func NewInvalidInput(err error) error {
	return new(err, "validation error", TypeValidation, CodeInvalidInput)
}

// NewTooLarge reports a request body over limit bytes.
func NewTooLarge(limit int64) error {
	return new(nil, fmt.Sprintf("request body exceeds %d bytes", limit), TypeValidation, CodeTooLarge)
}

// NewInvalidFormat reports a body that could not be decoded.
func NewInvalidFormat() error {
	return new(nil, "invalid request body", TypeValidation, CodeInvalidFormat)
}
