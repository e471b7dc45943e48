package api

import (
	"context"

	"github.com/dinacontroller/bridge/domain/control"
	"github.com/dinacontroller/bridge/domain/drive"
)

// ControlService is the part of the controller the API drives.
type ControlService interface {
	SubmitInput(in drive.PolarInput) (drive.Command, bool)
	ToggleMode(ctx context.Context) (drive.Mode, error)
	Status() control.Status
}

// --- Data Structures for HTTP and WebSocket Messages ---

// JoystickRequest is one joystick reading. Both fields are required.
type JoystickRequest struct {
	Angle        *float64 `json:"angle"`
	Displacement *float64 `json:"displacement"`
}

// JoystickResponse echoes the command computed for a reading.
type JoystickResponse struct {
	Command  drive.Command `json:"command"`
	Accepted bool          `json:"accepted"`
	Mode     drive.Mode    `json:"mode"`
}

// ModeResponse reports the mode after a toggle.
type ModeResponse struct {
	Mode drive.Mode `json:"mode"`
}

// StreamMessage is a text frame on the joystick WebSocket: either a reading
// or a toggle request.
type StreamMessage struct {
	JoystickRequest
	Toggle bool `json:"toggle,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (r JoystickRequest) input() (drive.PolarInput, bool) {
	if r.Angle == nil || r.Displacement == nil {
		return drive.PolarInput{}, false
	}
	return drive.PolarInput{Angle: *r.Angle, Displacement: *r.Displacement}, true
}
