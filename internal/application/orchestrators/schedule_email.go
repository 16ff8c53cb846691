package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "courier/internal/adapters/email"
	"courier/internal/domain/mail"
	scheduleDomain "courier/internal/domain/schedule"
	sendlogDomain "courier/internal/domain/sendlog"
)

// ScheduleCreator is the schedule access ExecuteScheduleEmail needs.
type ScheduleCreator interface {
	Create(ctx context.Context, e scheduleDomain.Email) error
}

// ScheduleLookup is the schedule access ExecuteGetScheduleStatus needs.
type ScheduleLookup interface {
	GetByScheduleID(ctx context.Context, scheduleID string) (scheduleDomain.Email, error)
}

// ScheduleEmailInput carries input for creating a scheduled email.
type ScheduleEmailInput struct {
	ProgramKey  string
	Recipients  []string
	Subject     string
	Body        string
	HTML        bool
	ScheduledAt time.Time // must be strictly in the future (UTC)
}

// ScheduleEmailDeps holds dependencies for ScheduleEmail.
type ScheduleEmailDeps struct {
	Schedules  ScheduleCreator
	Logs       SendLogAppender
	Sender     emailAdapter.Sender
	GenerateID func() string
	Now        func() time.Time

	// ConfirmationAddress, when set, receives a summary copy after each
	// schedule is created. Empty disables confirmations.
	ConfirmationAddress string
}

// ExecuteScheduleEmail validates and persists a new scheduled email, then
// sends a best-effort confirmation copy to the configured owner address.
// The schedule record commits first; a confirmation failure never fails the
// creation.
// PRE: deps are wired; GenerateID yields unique tokens
// POST: On nil error the record is persisted in scheduled status
func ExecuteScheduleEmail(ctx context.Context, input ScheduleEmailInput, deps ScheduleEmailDeps) (scheduleDomain.Email, error) {
	now := deps.Now()

	recipients := mail.Normalize(input.Recipients)
	if err := mail.ValidateAddresses(recipients); err != nil {
		return scheduleDomain.Email{}, err
	}

	em := scheduleDomain.Email{
		ScheduleID:  deps.GenerateID(),
		ProgramKey:  input.ProgramKey,
		Recipients:  mail.Join(recipients),
		Subject:     input.Subject,
		Body:        input.Body,
		HTML:        input.HTML,
		ScheduledAt: input.ScheduledAt.UTC(),
		Status:      scheduleDomain.StatusScheduled,
		CreatedAt:   now,
	}
	if err := em.Validate(now); err != nil {
		return scheduleDomain.Email{}, err
	}

	if err := deps.Schedules.Create(ctx, em); err != nil {
		return scheduleDomain.Email{}, fmt.Errorf("create scheduled email: %w", err)
	}

	slog.Info("email_event", "event", "email_scheduled", "schedule_id", em.ScheduleID,
		"scheduled_at", em.ScheduledAt, "recipient_count", len(recipients))

	sendConfirmationCopy(ctx, em, deps)
	return em, nil
}

// sendConfirmationCopy notifies the configured owner address that a schedule
// was created, and logs the attempt as its own audit record. Best-effort.
func sendConfirmationCopy(ctx context.Context, em scheduleDomain.Email, deps ScheduleEmailDeps) {
	if deps.ConfirmationAddress == "" {
		return
	}

	subject := "Email scheduled: " + em.ScheduleID
	body := fmt.Sprintf(
		"A new email has been scheduled.\n\nSchedule ID: %s\nRecipients: %s\nSubject: %s\nScheduled time (UTC): %s\n",
		em.ScheduleID, em.Recipients, em.Subject, em.ScheduledAt.Format(time.RFC3339))

	res := deps.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{deps.ConfirmationAddress},
		Subject: subject,
		Body:    body,
	})
	if !res.OK {
		slog.Warn("confirmation_send_failed", "schedule_id", em.ScheduleID,
			"status_code", res.StatusCode, "message", res.Message)
	}

	rec := sendlogDomain.FromOutcome(em.ProgramKey, deps.ConfirmationAddress, subject, body,
		false, res.OK, res.StatusCode, deps.Now())
	if err := deps.Logs.Append(ctx, rec); err != nil {
		slog.Warn("confirmation_log_failed", "schedule_id", em.ScheduleID, "error", err)
	}
}

// ScheduleStatus is the caller-facing view of one scheduled email.
type ScheduleStatus struct {
	Status      string
	ScheduledAt time.Time
	SentAt      time.Time // zero unless Status == sent
	StatusCode  int
}

// ScheduleStatusDeps holds dependencies for GetScheduleStatus.
type ScheduleStatusDeps struct {
	Schedules ScheduleLookup
}

// ExecuteGetScheduleStatus looks up the lifecycle state of a schedule.
// PRE: scheduleID is non-empty
// POST: Returns the current state or schedule.ErrNotFound
func ExecuteGetScheduleStatus(ctx context.Context, scheduleID string, deps ScheduleStatusDeps) (ScheduleStatus, error) {
	if scheduleID == "" {
		return ScheduleStatus{}, errors.New("schedule ID is required")
	}

	em, err := deps.Schedules.GetByScheduleID(ctx, scheduleID)
	if err != nil {
		return ScheduleStatus{}, err
	}
	return ScheduleStatus{
		Status:      em.Status,
		ScheduledAt: em.ScheduledAt,
		SentAt:      em.SentAt,
		StatusCode:  em.StatusCode,
	}, nil
}
