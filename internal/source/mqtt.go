// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package source

import (
	"context"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/imu_visualizer/internal/frame"
)

const mqttDisconnectQuiesceMs = 250

// MQTT subscribes to a topic carrying raw telemetry, one frame per message.
type MQTT struct {
	opts      *mqtt.ClientOptions
	topic     string
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

// NewMQTT uses opts to connect; its connection handlers are overwritten.
func NewMQTT(opts *mqtt.ClientOptions, topic string) *MQTT {
	return &MQTT{opts: opts, topic: topic, newClient: mqtt.NewClient}
}

// Framing implements Source. Each publish is one frame.
func (m *MQTT) Framing() frame.Framing { return frame.MessageFraming }

// Run connects, subscribes (again after every reconnect) and forwards
// payloads until ctx is cancelled.
func (m *MQTT) Run(ctx context.Context, h Handler) error {
	onMessage := func(_ mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		chunk := make([]byte, len(payload))
		copy(chunk, payload)
		h.OnChunk(chunk)
	}

	m.opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(m.topic, 0, onMessage)
		token.Wait()
		if token.Error() != nil {
			log.Printf("mqtt: subscribe to %s failed: %v", m.topic, token.Error())
			return
		}
		log.Printf("mqtt: subscribed to %s", m.topic)
	})
	m.opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqtt: connection lost: %v", err)
		h.OnDisconnect(err)
	})

	client := m.newClient(m.opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to MQTT broker: %w", token.Error())
	}

	<-ctx.Done()
	client.Unsubscribe(m.topic).Wait()
	client.Disconnect(mqttDisconnectQuiesceMs)
	h.OnDisconnect(nil)
	return ctx.Err()
}
