package models

import "time"

// ExtStatus tells how far the node's notion of "now" can be trusted.
type ExtStatus string

const (
	ExtSynced           ExtStatus = "SYNCED"
	ExtFallbackUnsynced ExtStatus = "FALLBACK_UNSYNCED"
	ExtNeverAvailable   ExtStatus = "NEVER_AVAILABLE"
)

// ClockState is a read-only copy of the time source state.
type ClockState struct {
	InternalNow    time.Time     `json:"internal_now"`
	ExternalSynced bool          `json:"external_synced"`
	LastSync       *time.Time    `json:"last_sync,omitempty"`
	DriftSource    ExtStatus     `json:"drift_source"`
	LastDrift      time.Duration `json:"last_drift"`
}
