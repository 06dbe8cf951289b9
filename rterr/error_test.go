package rterr

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := New("bvh.construct", BackendFailure, cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}

	var asErr *Error
	if !errors.As(err, &asErr) {
		t.Fatalf("expected errors.As to unwrap to *Error")
	}
	if asErr.Why != BackendFailure {
		t.Fatalf("expected Why %v; got %v", BackendFailure, asErr.Why)
	}
}

func TestErrorMessageIncludesBackendCode(t *testing.T) {
	err := WithBackendCode("device.alloc", Configuration, 42, errors.New("bad size"))
	msg := err.Error()
	if !strings.Contains(msg, "backend code 42") {
		t.Fatalf("expected the message to include the backend code; got %q", msg)
	}
}
