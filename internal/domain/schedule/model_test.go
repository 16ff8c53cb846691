package schedule

import (
	"testing"
	"time"

	"courier/internal/domain/mail"
)

var fixedTime = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func validEmail() Email {
	return Email{
		ScheduleID:  NewScheduleID(),
		Recipients:  "a@example.com,b@example.com",
		Subject:     "Schedule Change",
		Body:        "The Monday class is moving to Tuesday.",
		ScheduledAt: fixedTime.Add(2 * time.Minute),
		Status:      StatusScheduled,
		CreatedAt:   fixedTime,
	}
}

// TestNewScheduleID tests that tokens are 32 hex chars and unique.
func TestNewScheduleID(t *testing.T) {
	a := NewScheduleID()
	b := NewScheduleID()
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d: %s", len(a), a)
	}
	if a == b {
		t.Error("expected unique tokens")
	}
	for _, c := range a {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Errorf("unexpected character %q in token %s", c, a)
		}
	}
}

// TestEmail_Validate_Valid tests that a well-formed record passes validation.
func TestEmail_Validate_Valid(t *testing.T) {
	e := validEmail()
	if err := e.Validate(fixedTime); err != nil {
		t.Errorf("expected valid record, got: %v", err)
	}
}

// TestEmail_Validate_PastTime tests that a non-future scheduled time is rejected.
func TestEmail_Validate_PastTime(t *testing.T) {
	e := validEmail()
	e.ScheduledAt = fixedTime.Add(-time.Minute)
	if err := e.Validate(fixedTime); err != ErrNotInFuture {
		t.Errorf("expected ErrNotInFuture, got: %v", err)
	}
}

// TestEmail_Validate_ExactlyNow tests that scheduledTime == now is rejected.
func TestEmail_Validate_ExactlyNow(t *testing.T) {
	e := validEmail()
	e.ScheduledAt = fixedTime
	if err := e.Validate(fixedTime); err != ErrNotInFuture {
		t.Errorf("expected ErrNotInFuture, got: %v", err)
	}
}

// TestEmail_Validate_NoRecipients tests that an empty recipient string is rejected.
func TestEmail_Validate_NoRecipients(t *testing.T) {
	e := validEmail()
	e.Recipients = " , "
	if err := e.Validate(fixedTime); err != mail.ErrNoRecipients {
		t.Errorf("expected ErrNoRecipients, got: %v", err)
	}
}

// TestEmail_IsDue tests due-ness against the wall clock.
func TestEmail_IsDue(t *testing.T) {
	e := validEmail()
	if e.IsDue(fixedTime) {
		t.Error("expected not due before scheduled time")
	}
	if !e.IsDue(e.ScheduledAt) {
		t.Error("expected due exactly at scheduled time")
	}
	if !e.IsDue(e.ScheduledAt.Add(time.Hour)) {
		t.Error("expected due after scheduled time")
	}
	e.Status = StatusSent
	if e.IsDue(e.ScheduledAt.Add(time.Hour)) {
		t.Error("expected sent record never due")
	}
}

// TestEmail_MarkSent tests the scheduled→sent transition.
func TestEmail_MarkSent(t *testing.T) {
	e := validEmail()
	sentAt := fixedTime.Add(3 * time.Minute)
	if err := e.MarkSent(sentAt); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if e.Status != StatusSent {
		t.Errorf("expected sent, got %s", e.Status)
	}
	if e.StatusCode != 200 {
		t.Errorf("expected status code 200, got %d", e.StatusCode)
	}
	if !e.SentAt.Equal(sentAt) {
		t.Errorf("expected SentAt %v, got %v", sentAt, e.SentAt)
	}
}

// TestEmail_MarkFailed tests the scheduled→failed transition.
func TestEmail_MarkFailed(t *testing.T) {
	e := validEmail()
	if err := e.MarkFailed(503); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if e.Status != StatusFailed {
		t.Errorf("expected failed, got %s", e.Status)
	}
	if e.StatusCode != 503 {
		t.Errorf("expected status code 503, got %d", e.StatusCode)
	}
	if !e.SentAt.IsZero() {
		t.Error("expected SentAt to stay zero on failure")
	}
}

// TestEmail_Transitions_Terminal tests that sent and failed are terminal.
func TestEmail_Transitions_Terminal(t *testing.T) {
	e := validEmail()
	e.MarkSent(fixedTime)
	if err := e.MarkFailed(500); err != ErrNotScheduled {
		t.Errorf("expected ErrNotScheduled, got: %v", err)
	}

	f := validEmail()
	f.MarkFailed(500)
	if err := f.MarkSent(fixedTime); err != ErrNotScheduled {
		t.Errorf("expected ErrNotScheduled, got: %v", err)
	}
}
