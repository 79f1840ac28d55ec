package sensor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"fan_controller/internal/models"
)

// HwmonTransport reads kernel-exported sensor attributes (hwmon or iio sysfs
// files such as temp1_input). Bus framing stays in the kernel driver.
type HwmonTransport struct {
	name     string
	tempPath string
	humPath  string
	scale    float64 // raw units per °C / %RH, 1000 for milli-units
}

func NewHwmonTransport(name, tempPath, humPath string, scale float64) *HwmonTransport {
	if scale <= 0 {
		scale = 1000
	}
	return &HwmonTransport{name: name, tempPath: tempPath, humPath: humPath, scale: scale}
}

func (h *HwmonTransport) Name() string { return h.name }

func (h *HwmonTransport) Channels() []models.SensorID {
	return channelsOf(h.name, h.humPath != "")
}

// Read returns whatever channels could be read; it fails only when none could.
func (h *HwmonTransport) Read(ctx context.Context) ([]models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		out  []models.Reading
		errs []error
	)
	if h.tempPath != "" {
		c, err := h.readAttr(h.tempPath)
		if err != nil {
			errs = append(errs, err)
		} else {
			out = append(out, TemperatureReading(h.name, c))
		}
	}
	if h.humPath != "" {
		pct, err := h.readAttr(h.humPath)
		if err != nil {
			errs = append(errs, err)
		} else {
			out = append(out, HumidityReading(h.name, pct))
		}
	}
	if len(out) == 0 {
		if len(errs) == 0 {
			return nil, errors.New("no attribute paths configured")
		}
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (h *HwmonTransport) readAttr(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	raw, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return raw / h.scale, nil
}
