package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// TestParseDateRFC3339 verifies parsing full timestamps with offsets.
func TestParseDateRFC3339(t *testing.T) {
	got, err := ParseDate("2026-03-02T18:30:00+01:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestParseDateOnly verifies the date-only form used by quick-log clients.
func TestParseDateOnly(t *testing.T) {
	got, err := ParseDate("2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2026 || got.Month() != 3 || got.Day() != 2 {
		t.Errorf("got %v, want 2026-03-02", got)
	}
}

// TestDateUnmarshalJSON verifies Date inside a WorkoutInput payload.
func TestDateUnmarshalJSON(t *testing.T) {
	var in WorkoutInput
	raw := `{"date": "2026-03-02", "duration": 45, "exercises": [{"name": "squat", "sets": [{"weight": 100, "reps": 5}]}]}`
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if in.Date.Day() != 2 {
		t.Errorf("day = %d, want 2", in.Date.Day())
	}
	if in.DurationMin == nil || *in.DurationMin != 45 {
		t.Errorf("duration = %v, want 45", in.DurationMin)
	}
}

// TestDateUnmarshalInvalid verifies malformed dates are rejected.
func TestDateUnmarshalInvalid(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"yesterday"`), &d); err == nil {
		t.Fatal("expected error for invalid date")
	}
}

// TestStoreFailureKeepsValidation verifies StoreFailure does not hide validation errors
// behind a generic store message.
func TestStoreFailureKeepsValidation(t *testing.T) {
	err := StoreFailure("Workout not saved successfully", Invalid("exercises", "at least one exercise is required"))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	var se *StoreError
	if errors.As(err, &se) {
		t.Error("validation error should not be wrapped in StoreError")
	}

	err = StoreFailure("Workout not saved successfully", ErrNotFound)
	if !errors.As(err, &se) || !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want StoreError wrapping ErrNotFound", err)
	}
	if StoreFailure("x", nil) != nil {
		t.Error("StoreFailure(nil) should be nil")
	}
}
