package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"courier/internal/application/orchestrators"
	"courier/internal/domain/schedule"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	jsonError(w, http.StatusInternalServerError, "internal server error")
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{"status": "failed", "message": message})
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ping", handlePing)
	mux.HandleFunc("/api/email/send", handleEmailSend)
	mux.HandleFunc("/api/email/schedule", handleEmailSchedule)
	mux.HandleFunc("/api/email/schedule/status", handleScheduleStatus)
}

// handlePing handles GET /ping
func handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "pong"})
}

// handleEmailSend handles POST /api/email/send
func handleEmailSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if emailSender == nil {
		jsonError(w, http.StatusServiceUnavailable, "email sending is not configured")
		return
	}

	var input struct {
		ProgramKey string   `json:"program_key"`
		Recipients []string `json:"recipients"`
		Subject    string   `json:"subject"`
		Body       string   `json:"body"`
		HTML       bool     `json:"html"`
	}
	if err := strictDecode(r, &input); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res, err := orchestrators.ExecuteSendInstant(r.Context(), orchestrators.SendInstantInput{
		ProgramKey: input.ProgramKey,
		Recipients: input.Recipients,
		Subject:    input.Subject,
		Body:       input.Body,
		HTML:       input.HTML,
	}, orchestrators.SendInstantDeps{
		Logs:   stores.SendLogStore,
		Sender: emailSender,
		Now:    timeNow,
	})
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := "failed"
	if res.OK {
		status = "success"
	}
	writeJSON(w, res.StatusCode, map[string]any{
		"status":     status,
		"statusCode": res.StatusCode,
		"message":    res.Message,
	})
}

// handleEmailSchedule handles POST /api/email/schedule
func handleEmailSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var input struct {
		ProgramKey   string   `json:"program_key"`
		Recipients   []string `json:"recipients"`
		Subject      string   `json:"subject"`
		Body         string   `json:"body"`
		HTML         bool     `json:"html"`
		ScheduleTime string   `json:"schedule_time"`
	}
	if err := strictDecode(r, &input); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, input.ScheduleTime)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "schedule_time must be an RFC 3339 timestamp")
		return
	}

	em, err := orchestrators.ExecuteScheduleEmail(r.Context(), orchestrators.ScheduleEmailInput{
		ProgramKey:  input.ProgramKey,
		Recipients:  input.Recipients,
		Subject:     input.Subject,
		Body:        input.Body,
		HTML:        input.HTML,
		ScheduledAt: scheduledAt,
	}, orchestrators.ScheduleEmailDeps{
		Schedules:           stores.ScheduleStore,
		Logs:                stores.SendLogStore,
		Sender:              emailSender,
		GenerateID:          schedule.NewScheduleID,
		Now:                 timeNow,
		ConfirmationAddress: confirmationAddress,
	})
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":         "success",
		"schedule_id":    em.ScheduleID,
		"scheduled_time": em.ScheduledAt.UTC().Format(time.RFC3339),
	})
}

// handleScheduleStatus handles GET /api/email/schedule/status?id=<schedule_id>
func handleScheduleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, "id query parameter is required")
		return
	}

	st, err := orchestrators.ExecuteGetScheduleStatus(r.Context(), id,
		orchestrators.ScheduleStatusDeps{Schedules: stores.ScheduleStore})
	if errors.Is(err, schedule.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "schedule not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	var sentAt any
	if !st.SentAt.IsZero() {
		sentAt = st.SentAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"email_status":   st.Status,
		"scheduled_time": st.ScheduledAt.UTC().Format(time.RFC3339),
		"sent_at":        sentAt,
		"statusCode":     st.StatusCode,
	})
}
