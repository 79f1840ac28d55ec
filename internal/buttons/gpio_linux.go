//go:build linux

package buttons

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"fan_controller/internal/logger"
)

// GPIOSource watches two active-low buttons with kernel debounce.
type GPIOSource struct {
	*Chorder
	lines []*gpiocdev.Line
}

func NewGPIOSource(chip string, increaseLine, decreaseLine int, debounce time.Duration, log *logger.Logger) (*GPIOSource, error) {
	s := &GPIOSource{Chorder: NewChorder(DefaultChord, log)}
	for _, b := range []struct {
		offset int
		ev     Event
	}{
		{increaseLine, Increase},
		{decreaseLine, Decrease},
	} {
		ev := b.ev
		opts := []gpiocdev.LineReqOption{
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithFallingEdge,
			gpiocdev.WithEventHandler(func(le gpiocdev.LineEvent) {
				s.Press(ev, le.Timestamp)
			}),
		}
		if debounce > 0 {
			opts = append(opts, gpiocdev.WithDebounce(debounce))
		}
		line, err := gpiocdev.RequestLine(chip, b.offset, opts...)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("request %s button line %d: %w", ev, b.offset, err)
		}
		s.lines = append(s.lines, line)
	}
	return s, nil
}

func (s *GPIOSource) Close() error {
	s.Stop()
	var errs []error
	for _, l := range s.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.lines = nil
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
