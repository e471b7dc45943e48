package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	customlog "github.com/dinacontroller/bridge/pkg/log"
)

var ErrMQTTNotConnected = errors.New("mqtt client not connected")

const mqttPublishTimeout = 2 * time.Second

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// mqttClient is the part of mqtt.Client the sink uses.
type mqttClient interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes events as JSON to <prefix>/<kind> at QoS 0.
type MQTTSink struct {
	client mqttClient
	prefix string
	logger customlog.Logger
}

// NewMQTTSink starts connecting to the broker in the background and returns
// immediately. Events published before the connection is up fail with
// ErrMQTTNotConnected.
func NewMQTTSink(opts MQTTOptions, logger customlog.Logger) *MQTTSink {
	logger = logger.WithField("component", "mqtt")

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.OnConnect = func(mqtt.Client) {
		logger.Infof("Connected to MQTT broker %s", opts.Broker)
	}
	clientOpts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warnf("MQTT connection lost: %v", err)
	}
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectRetryInterval(5 * time.Second)

	client := mqtt.NewClient(clientOpts)
	client.Connect()

	return newMQTTSink(client, opts.TopicPrefix, logger)
}

func newMQTTSink(client mqttClient, prefix string, logger customlog.Logger) *MQTTSink {
	return &MQTTSink{client: client, prefix: prefix, logger: logger}
}

func (s *MQTTSink) Name() string {
	return "mqtt"
}

func (s *MQTTSink) Publish(ev Event) error {
	if !s.client.IsConnectionOpen() {
		return ErrMQTTNotConnected
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("error marshaling %s event: %w", ev.Kind, err)
	}

	topic := ev.Topic(s.prefix, "/")
	token := s.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	return token.Error()
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
