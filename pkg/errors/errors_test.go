package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := New("TEST_ERROR", "Test error message", http.StatusBadRequest)
	expected := "TEST_ERROR: Test error message"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestError_WithDetailsLeavesSentinelUntouched(t *testing.T) {
	detailed := ErrMalformedRange.WithDetails(map[string]interface{}{"header": "bytes=x"})

	if detailed.Details == nil {
		t.Error("Details should be set on the copy")
	}
	if ErrMalformedRange.Details != nil {
		t.Error("WithDetails must not mutate the shared sentinel")
	}
}

func TestError_WithErrorLeavesSentinelUntouched(t *testing.T) {
	base := errors.New("boom")
	wrapped := ErrInternal.WithError(base)

	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should unwrap to the base error")
	}
	if ErrInternal.Err != nil {
		t.Error("WithError must not mutate the shared sentinel")
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("connection refused")
	wrapped := Wrap(base, "DATABASE_ERROR", "Database unavailable", http.StatusInternalServerError)

	if wrapped.Err != base {
		t.Error("Should wrap the original error")
	}
	if wrapped.Code != "DATABASE_ERROR" {
		t.Errorf("Code = %v, want DATABASE_ERROR", wrapped.Code)
	}
}

func TestIsError(t *testing.T) {
	if !IsError(ErrTrackNotFound, ErrTrackNotFound) {
		t.Error("Should identify error by matching target")
	}
	if IsError(ErrTrackNotFound, ErrLoginRequired) {
		t.Error("Should not match a different error")
	}
	if IsError(errors.New("plain"), ErrTrackNotFound) {
		t.Error("Should not match non-Error types")
	}
}

func TestGetHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrLoginRequired, http.StatusUnauthorized},
		{ErrSubscriptionRequired, http.StatusForbidden},
		{ErrRangeNotSatisfiable, http.StatusRequestedRangeNotSatisfiable},
		{ErrNonSequentialRange, http.StatusBadRequest},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := GetHTTPStatus(tc.err); got != tc.want {
			t.Errorf("GetHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(ErrPlayTokenMismatch); got != ErrCodePlayTokenMismatch {
		t.Errorf("GetCode = %v, want %v", got, ErrCodePlayTokenMismatch)
	}
	if got := GetCode(errors.New("plain")); got != ErrCodeInternal {
		t.Errorf("GetCode for plain error = %v, want %v", got, ErrCodeInternal)
	}
}
