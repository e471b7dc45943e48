package api

import (
	"context"
	"encoding/json"
	"errors"
	"syscall"

	"github.com/gofiber/contrib/websocket"

	customlog "github.com/dinacontroller/bridge/pkg/log"
)

// JoystickWebSocketHandler feeds joystick readings from a WebSocket into the
// controller. Each text frame is a StreamMessage. Readings get no reply so
// the client can stream at its sampling rate; toggles and malformed frames
// are answered.
func JoystickWebSocketHandler(conn *websocket.Conn, logger customlog.Logger, control ControlService) {
	logger = logger.WithField("remote", conn.RemoteAddr().String())
	logger.Infof("Joystick WebSocket connected")

	var readings, rejected int
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				!errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
				logger.Errorf("Joystick WS read error: %v", err)
			}
			break
		}
		if mt != websocket.TextMessage {
			logger.Debugf("Ignoring non-text joystick WS message type: %d", mt)
			continue
		}

		var m StreamMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			logger.Warnf("Malformed joystick WS message: %v", err)
			if !reply(conn, logger, ErrorResponse{Error: "malformed message: " + err.Error()}) {
				break
			}
			continue
		}

		if m.Toggle {
			mode, err := control.ToggleMode(context.Background())
			var resp interface{} = ModeResponse{Mode: mode}
			if err != nil {
				resp = ErrorResponse{Error: err.Error()}
			}
			if !reply(conn, logger, resp) {
				break
			}
			continue
		}

		in, ok := m.input()
		if !ok {
			if !reply(conn, logger, ErrorResponse{Error: "angle and displacement are required"}) {
				break
			}
			continue
		}
		if _, accepted := control.SubmitInput(in); accepted {
			readings++
		} else {
			rejected++
		}
	}

	logger.Infof("Joystick WebSocket disconnected (%d readings, %d ignored)", readings, rejected)
}

func reply(conn *websocket.Conn, logger customlog.Logger, v interface{}) bool {
	if err := conn.WriteJSON(v); err != nil {
		logger.Warnf("Joystick WS write failed: %v", err)
		return false
	}
	return true
}
