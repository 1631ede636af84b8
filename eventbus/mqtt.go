// Package eventbus optionally publishes protocol-switch events to MQTT,
// a lightweight publisher/payload shape for supplementing the flat
// match-log file with a push-based observability channel.
package eventbus

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// SwitchEvent describes one protocol-lane switch.
type SwitchEvent struct {
	Timestamp     int64  `json:"timestamp"`
	Protocol      string `json:"protocol"`
	AbsoluteIndex int    `json:"absolute_index"`
}

// Publisher publishes SwitchEvents to a fixed MQTT topic. A nil *Publisher
// is a legal no-op, the same contract metrics.Collector and matchlog.Writer
// follow.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// NewPublisher connects to an MQTT broker and returns a Publisher that
// publishes to topic. Connection failures are returned to the caller, who
// may choose to run without a Publisher (a nil *Publisher) rather than fail
// construction outright.
func NewPublisher(brokerURL, clientID, topic string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("eventbus: connecting to %s: %w", brokerURL, token.Error())
	}

	return &Publisher{client: client, topic: topic}, nil
}

// PublishSwitch publishes one SwitchEvent. Publish failures are logged and
// otherwise swallowed - a missed observability event must never affect
// detection or routing correctness, the same line match-log I/O errors
// are held to.
func (p *Publisher) PublishSwitch(protocolName string, absoluteIndex int) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(SwitchEvent{
		Timestamp:     time.Now().UnixMilli(),
		Protocol:      protocolName,
		AbsoluteIndex: absoluteIndex,
	})
	if err != nil {
		log.Printf("eventbus: marshaling switch event: %v", err)
		return
	}
	token := p.client.Publish(p.topic, 0, false, payload)
	if token.WaitTimeout(time.Second) && token.Error() != nil {
		log.Printf("eventbus: publish failed: %v", token.Error())
	}
}

// Close disconnects the underlying MQTT client. A nil *Publisher is a legal
// no-op.
func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Disconnect(250)
}
