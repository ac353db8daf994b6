// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/imu_visualizer/internal/config"
	"github.com/relabs-tech/imu_visualizer/internal/imu"
	"github.com/relabs-tech/imu_visualizer/internal/orientation"
)

// MQTTTopics names where each kind of output is published. An empty topic
// disables that output.
type MQTTTopics struct {
	Orientation string
	Sample      string
	Rate        string
	DecodeError string
}

// TopicsFromConfig picks the output topics out of cfg.
func TopicsFromConfig(cfg *config.Config) MQTTTopics {
	return MQTTTopics{
		Orientation: cfg.TopicOrientation,
		Sample:      cfg.TopicSample,
		Rate:        cfg.TopicRate,
		DecodeError: cfg.TopicDecodeError,
	}
}

// RatePayload is published on the rate topic.
type RatePayload struct {
	Hz float64 `json:"hz"`
}

// ErrorPayload is published on the decode error topic.
type ErrorPayload struct {
	Error string `json:"error"`
}

// MQTTPresenter publishes engine output as JSON at QoS 0. Publishes are not
// waited on; failures are logged from a separate goroutine.
type MQTTPresenter struct {
	client mqtt.Client
	topics MQTTTopics
}

// NewMQTTPresenter publishes through an already connected client.
func NewMQTTPresenter(client mqtt.Client, topics MQTTTopics) *MQTTPresenter {
	return &MQTTPresenter{client: client, topics: topics}
}

// NewMQTTClientOptions builds options for broker with a client id made
// unique per process, so several instances can share a broker.
func NewMQTTClientOptions(broker, clientID string) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID + "-" + uuid.NewString()[:8]).
		SetAutoReconnect(true)
}

// ConnectMQTT connects a client and waits for the result.
func ConnectMQTT(opts *mqtt.ClientOptions) (mqtt.Client, error) {
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}

func (p *MQTTPresenter) OnSample(s imu.Sample) { p.publish(p.topics.Sample, s) }

func (p *MQTTPresenter) OnOrientation(st orientation.State) { p.publish(p.topics.Orientation, st) }

func (p *MQTTPresenter) OnRate(hz float64) { p.publish(p.topics.Rate, RatePayload{Hz: hz}) }

func (p *MQTTPresenter) OnDecodeError(err error) {
	p.publish(p.topics.DecodeError, ErrorPayload{Error: err.Error()})
}

func (p *MQTTPresenter) publish(topic string, v any) {
	if topic == "" {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("mqtt: marshal for %s: %v", topic, err)
		return
	}
	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("mqtt: publish to %s failed: %v", topic, token.Error())
		}
	}()
}
