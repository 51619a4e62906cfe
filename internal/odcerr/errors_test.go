package odcerr

import (
	"errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  New(CodeRequestTimeout, "timed out"),
			want: "[RequestTimeout] timed out",
		},
		{
			name: "with cause",
			err:  Wrap(CodeDDSCreateSessionFailed, "create failed", errors.New("boom")),
			want: "[DDSCreateSessionFailed] create failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap(CodeFairMQChangeStateFailed, "msg", cause)
	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
}

func TestError_WithDetail(t *testing.T) {
	err := New(CodeDDSSubmitAgentsFailed, "mismatch").
		WithDetail("requested", 4).
		WithDetail("actual", 1)

	if len(err.Details) != 2 {
		t.Fatalf("Details length = %d, want 2", len(err.Details))
	}
	if err.Details["requested"] != 4 {
		t.Errorf("Details[requested] = %v, want 4", err.Details["requested"])
	}
}

func TestCodeOf(t *testing.T) {
	err := New(CodeRequestNotSupported, "already attempted")
	if CodeOf(err) != CodeRequestNotSupported {
		t.Errorf("CodeOf() = %v, want %v", CodeOf(err), CodeRequestNotSupported)
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Errorf("CodeOf(plain) should be empty")
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(New(CodeRequestTimeout, "x")) {
		t.Errorf("expected RequestTimeout to be a timeout")
	}
	if IsTimeout(New(CodeDDSShutdownSessionFailed, "x")) {
		t.Errorf("did not expect DDSShutdownSessionFailed to be a timeout")
	}
}
