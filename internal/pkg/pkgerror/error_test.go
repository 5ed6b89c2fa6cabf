package pkgerror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestTypeString(t *testing.T) {
	tests := map[Type]string{
		TypeValidation: "ERROR_TYPE_VALIDATION",
		TypeBusiness:   "ERROR_TYPE_BUSINESS",
		TypeServer:     "ERROR_TYPE_SERVER",
		Type(99):       "ERROR_TYPE_UNKNOWN",
		Type(-1):       "ERROR_TYPE_UNKNOWN",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Fatalf("Type(%d).String() = %q, want %q", int(typ), got, want)
		}
	}
}

func TestCodeMapping(t *testing.T) {
	tests := []struct {
		code   Code
		name   string
		status int
	}{
		{CodeInternal, "ERROR_CODE_INTERNAL", http.StatusInternalServerError},
		{CodeInvalidFormat, "ERROR_CODE_INVALID_FORMAT", http.StatusBadRequest},
		{CodeInvalidInput, "ERROR_CODE_INVALID_INPUT", http.StatusUnprocessableEntity},
		{CodeNotFound, "ERROR_CODE_NOT_FOUND", http.StatusNotFound},
		{CodeConflict, "ERROR_CODE_CONFLICT", http.StatusConflict},
		{CodeTooLarge, "ERROR_CODE_TOO_LARGE", http.StatusRequestEntityTooLarge},
		{CodeUnavailable, "ERROR_CODE_UNAVAILABLE", http.StatusServiceUnavailable},
		{Code(99), "ERROR_CODE_INTERNAL", http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.code.String(); got != tc.name {
				t.Fatalf("String() = %q, want %q", got, tc.name)
			}

			err := NewBusiness("x", tc.code).(*Error)
			if got := err.StatusCode(); got != tc.status {
				t.Fatalf("StatusCode() = %d, want %d", got, tc.status)
			}
		})
	}
}

func TestServerErrorHidesCause(t *testing.T) {
	root := errors.New("disk on fire")
	err := NewServer(root)

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !errors.Is(err, root) {
		t.Fatal("expected cause to be wrapped")
	}
	if perr.Msg() != "Internal server error" {
		t.Fatalf("Msg() = %q", perr.Msg())
	}
	if perr.Type() != TypeServer || perr.Code() != CodeInternal {
		t.Fatalf("unexpected type/code: %s %s", perr.Type(), perr.Code())
	}
	if perr.Error() != "disk on fire" {
		t.Fatalf("Error() = %q", perr.Error())
	}
	if perr.Detail() != "" {
		t.Fatalf("server cause leaked into Detail(): %q", perr.Detail())
	}
}

func TestInvalidInputCarriesDetail(t *testing.T) {
	root := errors.New("missing join key: secondary")
	err := NewInvalidInput(root).(*Error)

	if !errors.Is(err, root) {
		t.Fatal("expected cause to be wrapped")
	}
	if err.Msg() != "validation error" {
		t.Fatalf("Msg() = %q", err.Msg())
	}
	if err.Detail() != "missing join key: secondary" {
		t.Fatalf("Detail() = %q", err.Detail())
	}
	if err.StatusCode() != http.StatusUnprocessableEntity {
		t.Fatalf("StatusCode() = %d", err.StatusCode())
	}
}

func TestTooLarge(t *testing.T) {
	err := NewTooLarge(1024).(*Error)

	if err.Msg() != "request body exceeds 1024 bytes" {
		t.Fatalf("Msg() = %q", err.Msg())
	}
	if err.Type() != TypeValidation {
		t.Fatalf("Type() = %s", err.Type())
	}
	if err.StatusCode() != http.StatusRequestEntityTooLarge {
		t.Fatalf("StatusCode() = %d", err.StatusCode())
	}
	if err.Detail() != "" {
		t.Fatalf("Detail() = %q", err.Detail())
	}
}

func TestInvalidFormat(t *testing.T) {
	err := NewInvalidFormat().(*Error)

	if err.Error() != "invalid request body" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if err.StatusCode() != http.StatusBadRequest {
		t.Fatalf("StatusCode() = %d", err.StatusCode())
	}
}

func TestErrorFallbackMessages(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypeValidation, "invalid request"},
		{TypeBusiness, "request not allowed in current state"},
		{TypeServer, "internal error"},
		{Type(7), "unknown error"},
	}
	for _, tc := range tests {
		if got := new(nil, "", tc.typ, CodeInternal).Error(); got != tc.want {
			t.Fatalf("Error() for %s = %q, want %q", tc.typ, got, tc.want)
		}
	}
}

func TestErrorStringIncludesDetails(t *testing.T) {
	str := NewBusiness("workspace not found", CodeNotFound).(*Error).String()

	for _, want := range []string{"ERROR_TYPE_BUSINESS", "ERROR_CODE_NOT_FOUND", "workspace not found"} {
		if !strings.Contains(str, want) {
			t.Fatalf("String() = %q, missing %q", str, want)
		}
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", NewBusiness("busy", CodeConflict))

	if got := CodeOf(wrapped); got != CodeConflict {
		t.Fatalf("CodeOf(wrapped) = %s", got)
	}
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("CodeOf(plain) = %s", got)
	}
	if got := CodeOf(nil); got != CodeInternal {
		t.Fatalf("CodeOf(nil) = %s", got)
	}
}
