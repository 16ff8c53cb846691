package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	emailAdapter "courier/internal/adapters/email"
	sendlogStore "courier/internal/adapters/storage/sendlog"
	scheduleDomain "courier/internal/domain/schedule"
	sendlogDomain "courier/internal/domain/sendlog"
)

var fixedTime = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

// --- Mock schedule store ---

type mockScheduleStore struct {
	schedules map[string]scheduleDomain.Email
}

func newMockScheduleStore() *mockScheduleStore {
	return &mockScheduleStore{schedules: make(map[string]scheduleDomain.Email)}
}

func (m *mockScheduleStore) Create(_ context.Context, e scheduleDomain.Email) error {
	m.schedules[e.ScheduleID] = e
	return nil
}

func (m *mockScheduleStore) GetByScheduleID(_ context.Context, scheduleID string) (scheduleDomain.Email, error) {
	e, ok := m.schedules[scheduleID]
	if !ok {
		return scheduleDomain.Email{}, scheduleDomain.ErrNotFound
	}
	return e, nil
}

func (m *mockScheduleStore) ListDue(_ context.Context, now time.Time) ([]scheduleDomain.Email, error) {
	var due []scheduleDomain.Email
	for _, e := range m.schedules {
		if e.IsDue(now) {
			due = append(due, e)
		}
	}
	return due, nil
}

func (m *mockScheduleStore) Save(_ context.Context, e scheduleDomain.Email) error {
	m.schedules[e.ScheduleID] = e
	return nil
}

func (m *mockScheduleStore) PurgeSentBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// --- Mock send log store ---

type mockSendLogStore struct {
	records []sendlogDomain.Record
}

func (m *mockSendLogStore) Append(_ context.Context, rec sendlogDomain.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *mockSendLogStore) List(_ context.Context, filter sendlogStore.ListFilter) ([]sendlogDomain.Record, error) {
	return m.records, nil
}

func (m *mockSendLogStore) PurgeSentBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// --- Mock sender ---

type mockSender struct {
	result   emailAdapter.SendResult
	requests []emailAdapter.SendRequest
}

func (m *mockSender) Send(_ context.Context, req emailAdapter.SendRequest) emailAdapter.SendResult {
	m.requests = append(m.requests, req)
	return m.result
}

type testEnv struct {
	handler   http.Handler
	schedules *mockScheduleStore
	logs      *mockSendLogStore
	sender    *mockSender
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	RateLimitPerSecond = 1000
	env := &testEnv{
		schedules: newMockScheduleStore(),
		logs:      &mockSendLogStore{},
		sender:    &mockSender{result: emailAdapter.SendResult{OK: true, StatusCode: 200, Message: "sent"}},
	}
	SetEmailSender(env.sender, "")
	timeNow = func() time.Time { return fixedTime }
	t.Cleanup(func() { timeNow = time.Now })
	env.handler = NewMux(&Stores{ScheduleStore: env.schedules, SendLogStore: env.logs}, "")
	return env
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var payload map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("response is not JSON: %v: %s", err, rr.Body.String())
		}
	}
	return rr, payload
}

// TestPing tests the health endpoint.
func TestPing(t *testing.T) {
	env := setupTest(t)
	rr, payload := doJSON(t, env.handler, "GET", "/ping", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if payload["status"] != "success" {
		t.Errorf("expected success, got %v", payload["status"])
	}
}

// TestEmailSend_Success tests an immediate send through the API.
func TestEmailSend_Success(t *testing.T) {
	env := setupTest(t)
	rr, payload := doJSON(t, env.handler, "POST", "/api/email/send",
		`{"recipients":["A@Example.com","a@example.com"],"subject":"Hello","body":"World"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if payload["status"] != "success" {
		t.Errorf("expected success, got %v", payload["status"])
	}

	if len(env.sender.requests) != 1 {
		t.Fatalf("expected 1 transport call, got %d", len(env.sender.requests))
	}
	if len(env.sender.requests[0].To) != 1 {
		t.Errorf("expected de-duplicated recipients, got %v", env.sender.requests[0].To)
	}
	if len(env.logs.records) != 1 {
		t.Errorf("expected 1 audit record, got %d", len(env.logs.records))
	}
}

// TestEmailSend_ValidationError tests that bad input yields 400.
func TestEmailSend_ValidationError(t *testing.T) {
	env := setupTest(t)
	rr, payload := doJSON(t, env.handler, "POST", "/api/email/send",
		`{"recipients":[],"subject":"Hello","body":"World"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if payload["status"] != "failed" {
		t.Errorf("expected failed, got %v", payload["status"])
	}
	if len(env.sender.requests) != 0 {
		t.Errorf("expected no transport calls, got %d", len(env.sender.requests))
	}
}

// TestEmailSend_UnknownField tests that strict decoding rejects extra fields.
func TestEmailSend_UnknownField(t *testing.T) {
	env := setupTest(t)
	rr, _ := doJSON(t, env.handler, "POST", "/api/email/send",
		`{"recipients":["a@a.com"],"subject":"s","body":"b","bogus":true}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

// TestEmailSend_MethodNotAllowed tests the method guard.
func TestEmailSend_MethodNotAllowed(t *testing.T) {
	env := setupTest(t)
	req := httptest.NewRequest("GET", "/api/email/send", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

// TestEmailSchedule_Success tests creating a schedule through the API.
func TestEmailSchedule_Success(t *testing.T) {
	env := setupTest(t)
	scheduleTime := fixedTime.Add(2 * time.Minute).Format(time.RFC3339)
	rr, payload := doJSON(t, env.handler, "POST", "/api/email/schedule",
		`{"recipients":["A@Example.com","a@example.com "],"subject":"Reminder","body":"soon","schedule_time":"`+scheduleTime+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if payload["status"] != "success" {
		t.Errorf("expected success, got %v", payload["status"])
	}

	id, _ := payload["schedule_id"].(string)
	if len(id) != 32 {
		t.Fatalf("expected 32-char schedule id, got %q", id)
	}
	stored, ok := env.schedules.schedules[id]
	if !ok {
		t.Fatal("expected record persisted")
	}
	if stored.Recipients != "a@example.com" {
		t.Errorf("expected normalized recipients, got %q", stored.Recipients)
	}
	if stored.Status != scheduleDomain.StatusScheduled {
		t.Errorf("expected scheduled, got %s", stored.Status)
	}
}

// TestEmailSchedule_PastTime tests that a non-future time yields 400.
func TestEmailSchedule_PastTime(t *testing.T) {
	env := setupTest(t)
	past := fixedTime.Add(-time.Minute).Format(time.RFC3339)
	rr, _ := doJSON(t, env.handler, "POST", "/api/email/schedule",
		`{"recipients":["a@a.com"],"subject":"s","body":"b","schedule_time":"`+past+`"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if len(env.schedules.schedules) != 0 {
		t.Error("expected nothing persisted")
	}
}

// TestEmailSchedule_BadTimestamp tests rejection of unparseable times.
func TestEmailSchedule_BadTimestamp(t *testing.T) {
	env := setupTest(t)
	rr, payload := doJSON(t, env.handler, "POST", "/api/email/schedule",
		`{"recipients":["a@a.com"],"subject":"s","body":"b","schedule_time":"next tuesday"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	msg, _ := payload["message"].(string)
	if !strings.Contains(msg, "RFC 3339") {
		t.Errorf("expected timestamp format hint, got %q", msg)
	}
}

// TestScheduleStatus tests the lookup endpoint for scheduled and sent records.
func TestScheduleStatus(t *testing.T) {
	env := setupTest(t)
	em := scheduleDomain.Email{
		ScheduleID:  scheduleDomain.NewScheduleID(),
		Recipients:  "a@example.com",
		Subject:     "Reminder",
		Body:        "soon",
		ScheduledAt: fixedTime.Add(time.Hour),
		Status:      scheduleDomain.StatusScheduled,
		CreatedAt:   fixedTime,
	}
	env.schedules.schedules[em.ScheduleID] = em

	rr, payload := doJSON(t, env.handler, "GET", "/api/email/schedule/status?id="+em.ScheduleID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if payload["email_status"] != "scheduled" {
		t.Errorf("expected scheduled, got %v", payload["email_status"])
	}
	if payload["sent_at"] != nil {
		t.Errorf("expected null sent_at, got %v", payload["sent_at"])
	}

	em.MarkSent(fixedTime.Add(time.Hour))
	env.schedules.schedules[em.ScheduleID] = em
	_, payload = doJSON(t, env.handler, "GET", "/api/email/schedule/status?id="+em.ScheduleID, "")
	if payload["email_status"] != "sent" {
		t.Errorf("expected sent, got %v", payload["email_status"])
	}
	if payload["sent_at"] == nil {
		t.Error("expected non-null sent_at")
	}
	if code, _ := payload["statusCode"].(float64); code != 200 {
		t.Errorf("expected statusCode 200, got %v", payload["statusCode"])
	}
}

// TestScheduleStatus_NotFound tests unknown ids yield 404.
func TestScheduleStatus_NotFound(t *testing.T) {
	env := setupTest(t)
	rr, payload := doJSON(t, env.handler, "GET", "/api/email/schedule/status?id=unknown", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if payload["status"] != "failed" {
		t.Errorf("expected failed, got %v", payload["status"])
	}
}
