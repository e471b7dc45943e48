// Package telemetry fans bridge events out to observers (ZeroMQ subscribers,
// an MQTT broker) without ever blocking the control path.
package telemetry

import (
	"fmt"
	"time"

	"github.com/dinacontroller/bridge/domain/drive"
)

// Kind names an event. It doubles as the topic suffix.
type Kind string

const (
	KindCommandSent Kind = "COMMAND_SENT"
	KindModeChanged Kind = "MODE_CHANGED"
	KindLinkReady   Kind = "LINK_READY"
	KindLinkDown    Kind = "LINK_DOWN"
)

// Event is one telemetry record. Session, Sequence and Timestamp are stamped
// by the Dispatcher when left empty.
type Event struct {
	Kind       Kind           `json:"kind"`
	Session    string         `json:"session_id"`
	Sequence   uint64         `json:"sequence"`
	Timestamp  time.Time      `json:"timestamp"`
	Mode       drive.Mode     `json:"mode"`
	LinkReady  bool           `json:"link_ready"`
	Peripheral string         `json:"peripheral,omitempty"`
	Command    *drive.Command `json:"command,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// CommandSent records a command the link accepted.
func CommandSent(mode drive.Mode, cmd drive.Command) Event {
	return Event{Kind: KindCommandSent, Mode: mode, LinkReady: true, Command: &cmd}
}

// ModeChanged records a completed mode transition.
func ModeChanged(mode drive.Mode, linkReady bool) Event {
	return Event{Kind: KindModeChanged, Mode: mode, LinkReady: linkReady}
}

// LinkReady records a connection to the vehicle.
func LinkReady(mode drive.Mode, peripheral string) Event {
	return Event{Kind: KindLinkReady, Mode: mode, LinkReady: true, Peripheral: peripheral}
}

// LinkDown records a lost connection.
func LinkDown(mode drive.Mode, peripheral string, err error) Event {
	ev := Event{Kind: KindLinkDown, Mode: mode, Peripheral: peripheral}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// Topic returns the event topic under prefix, joined with sep.
func (e Event) Topic(prefix, sep string) string {
	if prefix == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s%s%s", prefix, sep, e.Kind)
}
