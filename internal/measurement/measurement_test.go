package measurement

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fan_controller/internal/models"
)

var sensors = []string{"tmp117", "shtc3"}

func status(state models.ReadingState, q models.Quantity, v float64) models.ReadingStatus {
	if state == models.ReadingUnavailable {
		return models.ReadingStatus{State: state}
	}
	return models.ReadingStatus{State: state, Reading: models.Reading{Value: v, Quantity: q, Valid: true}}
}

func snapshot(tmp, shtT, shtH models.ReadingState) models.SensorSnapshot {
	return models.SensorSnapshot{Channels: map[models.SensorID]models.ReadingStatus{
		"tmp117.temperature": status(tmp, models.QuantityTemperature, 72.5),
		"shtc3.temperature":  status(shtT, models.QuantityTemperature, 73.25),
		"shtc3.humidity":     status(shtH, models.QuantityHumidity, 41),
	}}
}

func TestHeader(t *testing.T) {
	got := strings.Join(Header(sensors), ",")
	if got != "timestamp,tmp117_f,shtc3_f,humidity,fan_speed,mode,status" {
		t.Fatalf("header: %s", got)
	}
}

func TestStatusFlags(t *testing.T) {
	cases := []struct {
		name string
		snap models.SensorSnapshot
		want string
	}{
		{"all fresh", snapshot(models.ReadingFresh, models.ReadingFresh, models.ReadingFresh), "TMP117_OK|SHTC3_OK"},
		{"one cached channel", snapshot(models.ReadingFresh, models.ReadingFresh, models.ReadingCached), "TMP117_OK|SHTC3_CACHED"},
		{"lost wins over cached", snapshot(models.ReadingUnavailable, models.ReadingCached, models.ReadingUnavailable), "TMP117_LOST|SHTC3_LOST"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusFlags(sensors, tc.snap); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestBuildAndFields(t *testing.T) {
	ts := time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC)
	m := Build(ts, sensors,
		snapshot(models.ReadingUnavailable, models.ReadingFresh, models.ReadingFresh),
		models.RunDecision{Mode: models.ModeAuto, SpeedPercent: 65, Running: true},
		models.FanState{CurrentSpeed: 65, Running: true})

	if m.ID == "" || !m.TakenAt.Equal(ts) {
		t.Fatalf("missing id or time: %+v", m)
	}
	got := strings.Join(Fields(m), ",")
	if got != "N/A,73.25,41.00,65,AUTO,TMP117_LOST|SHTC3_OK" {
		t.Fatalf("fields: %s", got)
	}
}

func TestWriter_HeaderOnceThenRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor_log.csv")
	w := NewWriter(path, Header(sensors))
	ts := time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := w.AppendRow(ts.Add(time.Duration(i)*time.Minute), []string{"72.50", "N/A", "41.00", "65", "AUTO", "TMP117_OK|SHTC3_LOST"}); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(records))
	}
	if records[0][0] != "timestamp" || records[1][0] != "2024-01-02 14:35:00" || records[3][0] != "2024-01-02 14:37:00" {
		t.Fatalf("unexpected records: %v", records)
	}
	if records[2][6] != "TMP117_OK|SHTC3_LOST" {
		t.Fatalf("status column: %q", records[2][6])
	}

	// a second writer on the same file must not repeat the header
	w2 := NewWriter(path, Header(sensors))
	if err := w2.AppendRow(ts, []string{"1", "2", "3", "4", "AUTO", "x"}); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(path)
	if n := strings.Count(string(b), "timestamp,"); n != 1 {
		t.Fatalf("header written %d times", n)
	}
}
