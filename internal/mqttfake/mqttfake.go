// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mqttfake provides an in-memory paho client for tests.
package mqttfake

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Token is an already completed token.
type Token struct {
	Err error
}

func (t *Token) Wait() bool                     { return true }
func (t *Token) WaitTimeout(time.Duration) bool { return true }
func (t *Token) Error() error                   { return t.Err }

func (t *Token) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Message is a received publish.
type Message struct {
	mqtt.Message
	TopicName string
	Body      []byte
}

func (m *Message) Topic() string   { return m.TopicName }
func (m *Message) Payload() []byte { return m.Body }

// Publish is a recorded outgoing message.
type Publish struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// Client records publishes and routes Deliver calls to subscribers. Methods
// not listed here panic through the embedded nil interface.
type Client struct {
	mqtt.Client

	ConnectErr error
	PublishErr error

	mu           sync.Mutex
	opts         *mqtt.ClientOptions
	handlers     map[string]mqtt.MessageHandler
	published    []Publish
	disconnected bool
}

// New returns a client that runs opts' OnConnect handler on Connect.
func New(opts *mqtt.ClientOptions) *Client {
	return &Client{opts: opts, handlers: make(map[string]mqtt.MessageHandler)}
}

func (c *Client) Connect() mqtt.Token {
	if c.ConnectErr != nil {
		return &Token{Err: c.ConnectErr}
	}
	if c.opts != nil && c.opts.OnConnect != nil {
		c.opts.OnConnect(c)
	}
	return &Token{}
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disconnected
}

func (c *Client) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var body []byte
	switch p := payload.(type) {
	case []byte:
		body = append([]byte(nil), p...)
	case string:
		body = []byte(p)
	}
	c.mu.Lock()
	c.published = append(c.published, Publish{Topic: topic, QoS: qos, Retained: retained, Payload: body})
	c.mu.Unlock()
	return &Token{Err: c.PublishErr}
}

func (c *Client) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = callback
	return &Token{}
}

func (c *Client) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		delete(c.handlers, t)
	}
	return &Token{}
}

// Subscribed reports whether topic has a handler.
func (c *Client) Subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handlers[topic]
	return ok
}

// Deliver hands payload to the handler of topic, as the broker would.
func (c *Client) Deliver(topic string, payload []byte) bool {
	c.mu.Lock()
	h, ok := c.handlers[topic]
	c.mu.Unlock()
	if !ok {
		return false
	}
	h(c, &Message{TopicName: topic, Body: payload})
	return true
}

// LoseConnection runs the options' connection lost handler.
func (c *Client) LoseConnection(err error) {
	if c.opts != nil && c.opts.OnConnectionLost != nil {
		c.opts.OnConnectionLost(c, err)
	}
}

// Published returns a copy of everything published so far.
func (c *Client) Published() []Publish {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Publish(nil), c.published...)
}

// Disconnected reports whether Disconnect was called.
func (c *Client) Disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}
