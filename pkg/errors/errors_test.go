package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without underlying error",
			err:  New(CodeInvalidInput, "test message", http.StatusBadRequest),
			want: "[invalid_input] test message",
		},
		{
			name: "with underlying error",
			err:  Wrap(CodeStorageFailure, "test message", http.StatusInternalServerError, errors.New("underlying")),
			want: "[storage_failure] test message: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeStorageFailure, "test", http.StatusInternalServerError, underlying)

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}
}

func TestError_WithDetails(t *testing.T) {
	err := New(CodeInvalidInput, "test", http.StatusBadRequest)
	err.WithDetails("field", "target").WithDetails("reason", "empty")

	if len(err.Details) != 2 {
		t.Fatalf("Details length = %d, want 2", len(err.Details))
	}
	if err.Details["field"] != "target" {
		t.Errorf("Details[field] = %v, want target", err.Details["field"])
	}
}

func TestIs(t *testing.T) {
	err := ServiceNotFound("svc-a")
	if !Is(err, CodeServiceNotFound) {
		t.Fatalf("expected Is to match CodeServiceNotFound")
	}
	if Is(err, CodeStorageFailure) {
		t.Fatalf("did not expect Is to match CodeStorageFailure")
	}

	wrapped := Wrap(CodeTelemetryUnavailable, "retry later", http.StatusServiceUnavailable, err)
	if !Is(wrapped, CodeTelemetryUnavailable) {
		t.Fatalf("expected Is to see through wrapping to the outer code")
	}
}
