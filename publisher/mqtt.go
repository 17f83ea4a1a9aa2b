// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/fxamacker/cbor/v2"
	uuid "github.com/satori/go.uuid"

	"github.com/platinasystems/log"
)

const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"

	DefaultPrefix      = "goes/psu"
	DefaultMQTTTimeout = 5 * time.Second
)

type MQTTConfig struct {
	Broker   string `mapstructure:"broker" yaml:"broker"`
	ClientID string `mapstructure:"client_id" yaml:"client_id"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"-"`
	// Prefix of every topic; a key is published on PREFIX/KEY and the
	// full state on PREFIX/snapshot.
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	QoS      byte          `mapstructure:"qos" yaml:"qos"`
	Retained bool          `mapstructure:"retained" yaml:"retained"`
	Encoding string        `mapstructure:"encoding" yaml:"encoding"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Snapshot is the payload of the PREFIX/snapshot topic.
type Snapshot struct {
	Time   time.Time         `json:"time" cbor:"time"`
	Values map[string]string `json:"values" cbor:"values"`
}

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type MQTT struct {
	cfg    MQTTConfig
	client mqttClient
	values map[string]string
	tokens []mqtt.Token
	dirty  bool
	now    func() time.Time
}

func (cfg *MQTTConfig) defaults() {
	if len(cfg.ClientID) == 0 {
		cfg.ClientID = "goes-psu-" + uuid.NewV4().String()
	}
	if len(cfg.Prefix) == 0 {
		cfg.Prefix = DefaultPrefix
	}
	if len(cfg.Encoding) == 0 {
		cfg.Encoding = EncodingJSON
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultMQTTTimeout
	}
}

// DialMQTT connects to cfg.Broker, e.g. "tcp://localhost:1883".
func DialMQTT(cfg MQTTConfig) (*MQTT, error) {
	if len(cfg.Broker) == 0 {
		return nil, fmt.Errorf("mqtt: no broker")
	}
	cfg.defaults()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if len(cfg.Username) > 0 {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Print("warning: mqtt: connection lost: ", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt: %s: connect timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: %s: %v", cfg.Broker, err)
	}
	log.Print("notice: mqtt: connected to ", cfg.Broker, " as ",
		cfg.ClientID)
	return newMQTT(cfg, client)
}

func newMQTT(cfg MQTTConfig, client mqttClient) (*MQTT, error) {
	cfg.defaults()
	switch cfg.Encoding {
	case EncodingJSON, EncodingCBOR:
	default:
		return nil, fmt.Errorf("mqtt: %s: unknown encoding",
			cfg.Encoding)
	}
	return &MQTT{
		cfg:    cfg,
		client: client,
		values: make(map[string]string),
		now:    time.Now,
	}, nil
}

func (m *MQTT) topic(key string) string { return m.cfg.Prefix + "/" + key }

func (m *MQTT) publish(topic string, payload []byte) {
	m.tokens = append(m.tokens, m.client.Publish(topic, m.cfg.QoS,
		m.cfg.Retained, payload))
}

func (m *MQTT) Set(key, value string) {
	m.values[key] = value
	m.dirty = true
	m.publish(m.topic(key), []byte(value))
}

// Delete publishes an empty payload, clearing a retained value.
func (m *MQTT) Delete(key string) {
	delete(m.values, key)
	m.dirty = true
	m.publish(m.topic(key), []byte{})
}

func (m *MQTT) encode(snap *Snapshot) ([]byte, error) {
	if m.cfg.Encoding == EncodingCBOR {
		return cbor.Marshal(snap)
	}
	return json.Marshal(snap)
}

// Flush publishes the snapshot if anything changed then waits for every
// outstanding publication.
func (m *MQTT) Flush() (err error) {
	if m.dirty {
		snap := Snapshot{Time: m.now().UTC(), Values: m.values}
		b, terr := m.encode(&snap)
		if terr != nil {
			err = fmt.Errorf("mqtt: snapshot: %v", terr)
		} else {
			m.publish(m.topic("snapshot"), b)
		}
		m.dirty = false
	}
	for _, token := range m.tokens {
		if !token.WaitTimeout(m.cfg.Timeout) {
			if err == nil {
				err = fmt.Errorf("mqtt: publish timed out")
			}
		} else if terr := token.Error(); terr != nil && err == nil {
			err = fmt.Errorf("mqtt: %v", terr)
		}
	}
	m.tokens = m.tokens[:0]
	return
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
