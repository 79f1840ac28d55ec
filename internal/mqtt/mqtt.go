// Package mqtt publishes node state and activity entries to a broker.
package mqtt

import (
	"encoding/json"
	"time"

	"fan_controller"
	"fan_controller/internal/models"
)

// Topic suffixes under the configured base topic.
const (
	TopicState    = "/state"
	TopicActivity = "/activity"
	TopicStatus   = "/status"
)

// Publisher publishes to MQTT. Implementations must not block the caller for
// long; the control loops call them.
type Publisher interface {
	PublishState(st fan_controller.NodeState) error
	PublishActivity(e models.LogEntry) error
	IsConnected() bool
	Close() error
}

// ActivityPayload is the JSON body of an activity message.
type ActivityPayload struct {
	Timestamp string `json:"timestamp"`
	Category  string `json:"category"`
	Message   string `json:"message"`
}

func FormatState(st fan_controller.NodeState) ([]byte, error) {
	return json.Marshal(st)
}

func FormatActivity(e models.LogEntry) ([]byte, error) {
	return json.Marshal(ActivityPayload{
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		Category:  string(e.Category),
		Message:   e.Message,
	})
}

// Nop discards everything; used when no broker is configured.
type Nop struct{}

func (Nop) PublishState(fan_controller.NodeState) error { return nil }
func (Nop) PublishActivity(models.LogEntry) error       { return nil }
func (Nop) IsConnected() bool                           { return false }
func (Nop) Close() error                                { return nil }
