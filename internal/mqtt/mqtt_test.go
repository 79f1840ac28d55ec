package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"fan_controller"
	"fan_controller/internal/models"
)

func TestFormatActivity(t *testing.T) {
	e := models.LogEntry{
		Timestamp: time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC),
		Category:  models.CategoryOverride,
		Message:   "Temperature (82.3F) detected. Forcing min speed 90%.",
	}
	b, err := FormatActivity(e)
	if err != nil {
		t.Fatalf("FormatActivity: %v", err)
	}
	var got ActivityPayload
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Timestamp != "2024-01-02T14:35:00Z" || got.Category != "OVERRIDE" || got.Message != e.Message {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestFormatState_FieldNames(t *testing.T) {
	temp := 72.5
	b, err := FormatState(fan_controller.NodeState{Mode: models.ModeAuto, Running: true, SpeedPercent: 65, TemperatureF: &temp})
	if err != nil {
		t.Fatalf("FormatState: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["mode"] != "AUTO" || m["speed_percent"] != float64(65) || m["temperature_f"] != 72.5 {
		t.Fatalf("unexpected state payload: %v", m)
	}
	if m["humidity_pct"] != nil {
		t.Fatalf("missing humidity should be null, got %v", m["humidity_pct"])
	}
}

func TestNopAndFake(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.PublishState(fan_controller.NodeState{}); err != nil || p.IsConnected() {
		t.Fatalf("nop publisher misbehaves")
	}

	f := NewFakePublisher()
	p = f
	_ = p.PublishActivity(models.LogEntry{Category: models.CategoryRun})
	_ = p.PublishState(fan_controller.NodeState{})
	if f.ActivityCount() != 1 || f.StateCount() != 1 {
		t.Fatalf("fake did not record")
	}
	_ = p.Close()
	if !f.Closed {
		t.Fatalf("fake not closed")
	}
}
