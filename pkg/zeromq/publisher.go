package zeromq

import (
	"github.com/dinacontroller/bridge/pkg/telemetry"
)

// TopicPrefix prefixes every telemetry topic, e.g. bridge.COMMAND_SENT.
const TopicPrefix = "bridge"

// MessagePublisher is the part of ZeroMQService a sink needs.
type MessagePublisher interface {
	PublishMessage(topic string, message []byte) error
}

// TelemetrySink publishes events as CommandFrame flatbuffers on the PUB
// socket.
type TelemetrySink struct {
	publisher MessagePublisher
}

// NewTelemetrySink creates a sink over publisher.
func NewTelemetrySink(publisher MessagePublisher) *TelemetrySink {
	return &TelemetrySink{publisher: publisher}
}

func (s *TelemetrySink) Name() string {
	return "zeromq"
}

func (s *TelemetrySink) Publish(ev telemetry.Event) error {
	frame, err := telemetry.EncodeFrame(ev)
	if err != nil {
		return err
	}
	return s.publisher.PublishMessage(ev.Topic(TopicPrefix, "."), frame)
}

// Close is a no-op; the service owns the socket.
func (s *TelemetrySink) Close() error {
	return nil
}

var _ telemetry.Sink = (*TelemetrySink)(nil)
