package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"fan_controller/internal/models"
	"fan_controller/internal/service"
)

func TestLogsHandler_ListAndValidation(t *testing.T) {
	now := time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC)
	logs := &mockEventLog{resp: []models.LogEntry{
		{Timestamp: now, Category: models.CategoryOverride, Message: "Temperature (82.4F) detected. Forcing min speed 90%."},
		{Timestamp: now.Add(time.Second), Category: models.CategoryOverride, Message: "Override ended."},
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 99}, EventLog: logs})

	bad := []struct {
		name  string
		query string
	}{
		{"bad from", "from=yesterday"},
		{"bad to", "to=2024-13-45"},
		{"reversed range", "from=2024-01-03&to=2024-01-02"},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/logs?"+tc.query, nil)))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
			}
		})
	}
	if logs.calls != 0 {
		t.Fatalf("service should not be called on invalid input, got %d calls", logs.calls)
	}

	q := url.Values{}
	q.Set("from", now.Format(time.RFC3339))
	q.Set("to", "2024-01-02")
	q.Set("category", " override ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/logs?"+q.Encode(), nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count   int               `json:"count"`
		Entries []models.LogEntry `json:"entries"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Entries) != 2 || out.Entries[0].Category != models.CategoryOverride {
		t.Fatalf("unexpected response: %+v", out)
	}
	if logs.lastCategory != "OVERRIDE" {
		t.Fatalf("expected category OVERRIDE, got %q", logs.lastCategory)
	}
	if !logs.lastFrom.Equal(now) {
		t.Fatalf("from=%v, want %v", logs.lastFrom, now)
	}
	wantTo := time.Date(2024, 1, 2, 23, 59, 59, 999999999, time.UTC)
	if !logs.lastTo.Equal(wantTo) {
		t.Fatalf("date-only 'to' should cover the day: got %v", logs.lastTo)
	}
}

func TestLogsHandler_ServiceError(t *testing.T) {
	logs := &mockEventLog{err: errors.New("boom")}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, EventLog: logs})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestMeasurementsHandler(t *testing.T) {
	temp := 72.5
	rows := &mockMeasurements{resp: []models.Measurement{{
		ID:           "m1",
		TakenAt:      time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC),
		Temperatures: []models.SensorValue{{Sensor: "tmp117", Value: &temp}},
		FanSpeed:     65,
		Mode:         models.ModeAuto,
		Status:       "TMP117_OK",
	}}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Measurements: rows})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/measurements?from=2024-01-02%2000:00:00", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count        int                  `json:"count"`
		Measurements []models.Measurement `json:"measurements"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 1 || out.Measurements[0].FanSpeed != 65 || *out.Measurements[0].Temperatures[0].Value != 72.5 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC); !rows.lastFrom.Equal(want) || !rows.lastTo.IsZero() {
		t.Fatalf("range passed: from=%v to=%v", rows.lastFrom, rows.lastTo)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/measurements?to=nope", nil)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestParseQueryTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-01-02T14:35:00Z", time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC), true},
		{"2024-01-02T16:35:00+02:00", time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC), true},
		{"2024-01-02 14:35:00", time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC), true},
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"02/01/2024", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := parseQueryTime(tc.in)
		if (err == nil) != tc.ok {
			t.Fatalf("%q: err=%v, want ok=%v", tc.in, err, tc.ok)
		}
		if tc.ok && !got.Equal(tc.want) {
			t.Fatalf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}
}
