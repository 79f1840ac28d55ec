// Package measurement builds periodic measurement rows and appends them to
// the CSV log.
package measurement

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fan_controller/internal/models"
)

// NotAvailable marks a channel with nothing to report.
const NotAvailable = "N/A"

// Header returns the CSV header for the configured temperature sensors.
func Header(sensors []string) []string {
	h := []string{"timestamp"}
	for _, s := range sensors {
		h = append(h, strings.ToLower(s)+"_f")
	}
	return append(h, "humidity", "fan_speed", "mode", "status")
}

// Build assembles one measurement from the current snapshot and decision.
func Build(ts time.Time, sensors []string, snap models.SensorSnapshot, d models.RunDecision, fan models.FanState) models.Measurement {
	m := models.Measurement{
		ID:       uuid.NewString(),
		TakenAt:  ts,
		FanSpeed: fan.CurrentSpeed,
		Mode:     d.Mode,
		Status:   StatusFlags(sensors, snap),
	}
	for _, s := range sensors {
		sv := models.SensorValue{Sensor: s}
		if st := snap.Status(models.ChannelID(s, models.QuantityTemperature)); st.Available() {
			v := st.Reading.Value
			sv.Value = &v
		}
		m.Temperatures = append(m.Temperatures, sv)
	}
	if h, ok := snap.Average(models.QuantityHumidity); ok {
		m.HumidityPct = &h
	}
	return m
}

// StatusFlags renders one flag per sensor, e.g. "TMP117_OK|SHTC3_CACHED".
// A sensor takes the worst state of its channels.
func StatusFlags(sensors []string, snap models.SensorSnapshot) string {
	if len(sensors) == 0 {
		return "NO_SENSORS"
	}
	flags := make([]string, 0, len(sensors))
	for _, s := range sensors {
		flag := "OK"
		for _, q := range []models.Quantity{models.QuantityTemperature, models.QuantityHumidity} {
			id := models.ChannelID(s, q)
			if _, known := snap.Channels[id]; !known {
				continue
			}
			switch snap.Status(id).State {
			case models.ReadingUnavailable:
				flag = "LOST"
			case models.ReadingCached:
				if flag == "OK" {
					flag = "CACHED"
				}
			}
		}
		flags = append(flags, strings.ToUpper(s)+"_"+flag)
	}
	return strings.Join(flags, "|")
}

// Fields renders a measurement as CSV fields after the timestamp column.
func Fields(m models.Measurement) []string {
	fields := make([]string, 0, len(m.Temperatures)+4)
	for _, t := range m.Temperatures {
		fields = append(fields, formatValue(t.Value))
	}
	return append(fields,
		formatValue(m.HumidityPct),
		strconv.Itoa(m.FanSpeed),
		string(m.Mode),
		m.Status,
	)
}

func formatValue(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// Writer appends rows to a CSV file, writing the header when the file is new
// or empty.
type Writer struct {
	mu     sync.Mutex
	path   string
	header []string
}

func NewWriter(path string, header []string) *Writer {
	return &Writer{path: path, header: header}
}

// AppendRow writes ts followed by fields as one CSV record.
func (w *Writer) AppendRow(ts time.Time, fields []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", w.path, err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(w.header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	record := append([]string{ts.Format(models.LogTimeLayout)}, fields...)
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", w.path, err)
	}
	return nil
}
