package display

import (
	"strings"
	"sync"

	"fan_controller/internal/logger"
)

// LogPanel writes frames to the process log at debug level. It is the
// panel for headless nodes.
type LogPanel struct {
	log *logger.Logger
}

func NewLogPanel(log *logger.Logger) *LogPanel {
	if log == nil {
		log = logger.Nop()
	}
	return &LogPanel{log: log}
}

func (p *LogPanel) Show(lines []string) error {
	p.log.Debugw("display_frame", "lines", strings.Join(lines, " | "))
	return nil
}

func (p *LogPanel) Blank() error {
	p.log.Debugw("display_blank")
	return nil
}

// FakePanel records what was drawn.
type FakePanel struct {
	mu     sync.Mutex
	Frames [][]string
	Blanks int
	Err    error
}

func (p *FakePanel) Show(lines []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Frames = append(p.Frames, append([]string(nil), lines...))
	return nil
}

func (p *FakePanel) Blank() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Blanks++
	return nil
}
