// Package telemetry publishes controller events and status heartbeats to an
// MQTT broker so long-running fault-injection campaigns can be monitored
// remotely.
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/ez-emfi/volod/internal/models"
)

// Topics for pulse-driver telemetry.
const (
	TopicEvents = "emfi/volod/events"
	TopicStatus = "emfi/volod/status"
)

// Event is one controller lifecycle event.
type Event struct {
	Timestamp time.Time
	Type      string // "STARTUP" | "SHUTDOWN" | "FIRED" | "TIMEOUT" | "FAULT"
	State     string
	FireCount uint8
}

// Publisher publishes telemetry. Implementations must never block the tick
// loop; failures are logged, not returned to the controller.
type Publisher interface {
	// PublishEvent sends a lifecycle event to the broker.
	PublishEvent(event Event) error

	// PublishStatus sends a full status snapshot (heartbeat).
	PublishStatus(status models.Status) error

	// Close disconnects from the broker.
	Close() error
}

// eventPayload is the wire format for events.
type eventPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	FireCount uint8  `json:"fire_count"`
}

// FormatEvent creates the JSON payload for a lifecycle event.
func FormatEvent(event Event) ([]byte, error) {
	return json.Marshal(eventPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     event.Type,
		State:     event.State,
		FireCount: event.FireCount,
	})
}

// Nop is a Publisher that discards everything, used when no broker is
// configured.
type Nop struct{}

func (Nop) PublishEvent(Event) error          { return nil }
func (Nop) PublishStatus(models.Status) error { return nil }
func (Nop) Close() error                      { return nil }
