// Package events publishes tank state transitions to an MQTT broker so that
// other winery systems (dashboards, cellar automation) can follow them.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"

	"winery-tank-backend/config"
	"winery-tank-backend/internal/tank"
)

// Publisher delivers tank transitions.
type Publisher interface {
	Publish(ctx context.Context, t tank.Transition, at time.Time) error
	Close()
}

// NopPublisher drops every event. It is used when MQTT is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, tank.Transition, time.Time) error { return nil }
func (NopPublisher) Close()                                                    {}

// mqttClient is the part of mqtt.Client the publisher needs.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes retained state messages, one topic per tank.
type MQTTPublisher struct {
	client mqttClient
	prefix string
	qos    byte
}

// StateEvent is the JSON payload of a transition message.
type StateEvent struct {
	DepositID  int64     `json:"depositId"`
	Title      string    `json:"title"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Available  bool      `json:"available"`
	ObservedAt time.Time `json:"observedAt"`
}

const connectTimeout = 10 * time.Second

// NewPublisher returns an MQTT publisher when enabled, or a NopPublisher.
func NewPublisher(cfg config.MQTTConfig) (Publisher, error) {
	if !cfg.Enabled {
		return NopPublisher{}, nil
	}
	if cfg.Broker == "" {
		return nil, errors.New("mqtt.broker must be set when mqtt is enabled")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", cfg.Broker, err)
	}
	return newMQTTPublisher(client, cfg.TopicPrefix, cfg.QoS), nil
}

func newMQTTPublisher(client mqttClient, prefix string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix, qos: qos}
}

// Topic is the topic carrying the state of one tank.
func Topic(prefix string, depositID int64) string {
	return fmt.Sprintf("%s/tanks/%d/state", prefix, depositID)
}

// Publish sends the transition and waits for the broker or ctx.
func (p *MQTTPublisher) Publish(ctx context.Context, t tank.Transition, at time.Time) error {
	payload, err := json.Marshal(StateEvent{
		DepositID:  t.DepositID,
		Title:      t.Title,
		From:       t.From.String(),
		To:         t.To.String(),
		Available:  t.To.Available(),
		ObservedAt: at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal state event: %w", err)
	}

	token := p.client.Publish(Topic(p.prefix, t.DepositID), p.qos, true, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish state of deposit %d: %w", t.DepositID, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker, letting in-flight work finish.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
