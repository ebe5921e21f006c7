package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ez-emfi/volod/internal/models"
)

// MQTTPublisher publishes to an actual MQTT broker.
type MQTTPublisher struct {
	client paho.Client
}

// NewMQTTPublisher creates a publisher connected to the given broker,
// e.g. "tcp://bench-pi:1883".
func NewMQTTPublisher(broker string) (*MQTTPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("volod").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &MQTTPublisher{client: client}, nil
}

// PublishEvent sends a lifecycle event to the broker at QoS 1; firing events
// are what a campaign log is built from.
func (p *MQTTPublisher) PublishEvent(event Event) error {
	payload, err := FormatEvent(event)
	if err != nil {
		return fmt.Errorf("format event: %w", err)
	}
	token := p.client.Publish(TopicEvents, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishStatus sends a retained status snapshot at QoS 0; the next heartbeat
// supersedes it anyway.
func (p *MQTTPublisher) PublishStatus(status models.Status) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("format status: %w", err)
	}
	token := p.client.Publish(TopicStatus, 0, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish status timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
