package errors

import (
	"fmt"
	"testing"
)

func TestResultToError(t *testing.T) {
	tests := []struct {
		result Result
		want   error
	}{
		{ResultOK, nil},
		{ResultBusy, ErrBusy},
		{ResultError, ErrIoFailure},
		{ResultOutOfRange, ErrOutOfRange},
		{ResultNotPresent, ErrDeviceNotDetected},
		{Result(42), ErrIoFailure},
	}

	for _, tt := range tests {
		t.Run(tt.result.String(), func(t *testing.T) {
			if got := ResultToError(tt.result); got != tt.want {
				t.Errorf("ResultToError(%s) = %v, want %v", tt.result, got, tt.want)
			}
		})
	}
}

func TestErrorToResult(t *testing.T) {
	tests := []struct {
		err  error
		want Result
	}{
		{nil, ResultOK},
		{ErrBusy, ResultBusy},
		{Wrap(ErrOutOfRange, "read"), ResultOutOfRange},
		{fmt.Errorf("probe: %w", ErrDeviceNotDetected), ResultNotPresent},
		{ErrNotErased, ResultError},
	}

	for _, tt := range tests {
		if got := ErrorToResult(tt.err); got != tt.want {
			t.Errorf("ErrorToResult(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestCategories(t *testing.T) {
	if !IsDeviceError(Wrapf(ErrBankLocked, "bank %d", 1)) {
		t.Error("bank locked should be a device error")
	}
	if !IsRecordError(ErrInvalidMagic) {
		t.Error("invalid magic should be a record error")
	}
	if !IsNotFound(ErrTimerNotFound) {
		t.Error("timer not found should be a not-found error")
	}
	if !IsRetriable(ErrBusy) {
		t.Error("busy should be retriable")
	}
	if IsRetriable(ErrInvalidRecord) {
		t.Error("invalid record should not be retriable")
	}
	if !IsValidation(NewInvalidValue("network.ip", "x", "not an address")) {
		t.Error("invalid value should be a validation error")
	}
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	if v.Err() != nil {
		t.Fatal("empty collector should return nil")
	}

	v.Add(nil)
	v.AddField("store.sectors", "must be positive")
	v.Add(NewMissingField("backend"))

	if !v.HasErrors() {
		t.Fatal("expected errors")
	}
	if !Is(v.Err(), ErrInvalidConfig) {
		t.Error("expected first error to unwrap to ErrInvalidConfig")
	}
	if len(v.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(v.Errors))
	}
}
