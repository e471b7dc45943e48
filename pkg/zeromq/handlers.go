package zeromq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dinacontroller/bridge/domain/control"
	"github.com/dinacontroller/bridge/domain/drive"
	customlog "github.com/dinacontroller/bridge/pkg/log"
)

// ControlService is the part of the controller remote clients may drive.
type ControlService interface {
	SubmitInput(in drive.PolarInput) (drive.Command, bool)
	ToggleMode(ctx context.Context) (drive.Mode, error)
	Status() control.Status
}

// StatusResponse is the Data of every STATUS_RESPONSE.
type StatusResponse struct {
	Status control.Status `json:"status"`
	// Command and Accepted are set in replies to JOYSTICK_INPUT.
	Command  *drive.Command `json:"command,omitempty"`
	Accepted *bool          `json:"accepted,omitempty"`
}

// JoystickInput is the Data of a JOYSTICK_INPUT request.
type JoystickInput struct {
	Angle        *float64 `json:"angle"`
	Displacement *float64 `json:"displacement"`
}

// toggleTimeout bounds a MODE_TOGGLE; the REP loop is blocked meanwhile.
const toggleTimeout = 2 * time.Second

// ControlHandlers serves the control message types.
type ControlHandlers struct {
	control ControlService
	logger  customlog.Logger
}

// RegisterControlHandlers registers MODE_TOGGLE, JOYSTICK_INPUT and
// STATUS_REQUEST on the dispatcher.
func RegisterControlHandlers(d *MessageDispatcher, ctl ControlService, logger customlog.Logger) *ControlHandlers {
	h := &ControlHandlers{control: ctl, logger: logger}
	d.RegisterHandler(MsgTypeModeToggle, HandlerFunc(h.handleModeToggle))
	d.RegisterHandler(MsgTypeJoystickInput, HandlerFunc(h.handleJoystickInput))
	d.RegisterHandler(MsgTypeStatusRequest, HandlerFunc(h.handleStatusRequest))
	return h
}

func (h *ControlHandlers) handleModeToggle(json.RawMessage) (*ZeroMQMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), toggleTimeout)
	defer cancel()

	mode, err := h.control.ToggleMode(ctx)
	if err != nil {
		return nil, err
	}
	h.logger.Infof("Mode toggled to %s by ZeroMQ client", mode)
	return NewMessage(MsgTypeStatusResponse, StatusResponse{Status: h.control.Status()}), nil
}

func (h *ControlHandlers) handleJoystickInput(data json.RawMessage) (*ZeroMQMessage, error) {
	var in JoystickInput
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s requires data", ErrInvalidMessage, MsgTypeJoystickInput)
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if in.Angle == nil || in.Displacement == nil {
		return nil, fmt.Errorf("%w: angle and displacement are required", ErrInvalidMessage)
	}

	cmd, accepted := h.control.SubmitInput(drive.PolarInput{Angle: *in.Angle, Displacement: *in.Displacement})
	return NewMessage(MsgTypeStatusResponse, StatusResponse{
		Status:   h.control.Status(),
		Command:  &cmd,
		Accepted: &accepted,
	}), nil
}

func (h *ControlHandlers) handleStatusRequest(json.RawMessage) (*ZeroMQMessage, error) {
	return NewMessage(MsgTypeStatusResponse, StatusResponse{Status: h.control.Status()}), nil
}

// errorCode maps an error onto the HTTP-style code of an ERROR reply.
func errorCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidMessage), errors.Is(err, ErrUnknownMessageType):
		return 400
	case errors.Is(err, control.ErrTransitionInProgress):
		return 409
	case errors.Is(err, control.ErrControllerClosed), errors.Is(err, context.DeadlineExceeded):
		return 503
	default:
		return 500
	}
}
