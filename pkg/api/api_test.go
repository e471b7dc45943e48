package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinacontroller/bridge/domain/control"
	"github.com/dinacontroller/bridge/domain/drive"
	customlog "github.com/dinacontroller/bridge/pkg/log"
	"github.com/dinacontroller/bridge/services"
)

type fakeControl struct {
	mu        sync.Mutex
	mode      drive.Mode
	inputs    []drive.PolarInput
	toggleErr error
}

func (f *fakeControl) SubmitInput(in drive.PolarInput) (drive.Command, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	return drive.DefaultMapper().Command(in), f.mode == drive.ModeJoystick
}

func (f *fakeControl) ToggleMode(context.Context) (drive.Mode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toggleErr != nil {
		return f.mode, f.toggleErr
	}
	f.mode = f.mode.Other()
	return f.mode, nil
}

func (f *fakeControl) Status() control.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return control.Status{Mode: f.mode, LinkState: "idle", Session: "s-1"}
}

func (f *fakeControl) Inputs() []drive.PolarInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]drive.PolarInput(nil), f.inputs...)
}

func newTestApp(t *testing.T) (*fiber.App, *fakeControl, services.ProfileService) {
	t.Helper()
	ctl := &fakeControl{}
	logger := customlog.NewDiscardLogger()
	profiles, err := services.NewProfileService(filepath.Join(t.TempDir(), "drive_profile.yaml"), logger)
	require.NoError(t, err)
	return NewApp(Options{Control: ctl, Profile: profiles, Logger: logger}), ctl, profiles
}

func do(t *testing.T, app *fiber.App, method, path, contentType, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestRootAndHealth(t *testing.T) {
	app, _, _ := newTestApp(t)

	code, body := do(t, app, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), AppName)

	code, body = do(t, app, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))
}

func TestStatusAndToggle(t *testing.T) {
	app, ctl, _ := newTestApp(t)

	code, body := do(t, app, http.MethodGet, "/api/status", "", "")
	require.Equal(t, http.StatusOK, code)
	var st map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "joystick", st["mode"])
	assert.Equal(t, "s-1", st["session_id"])

	code, body = do(t, app, http.MethodPost, "/api/mode/toggle", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"mode":"path"}`, string(body))

	ctl.toggleErr = control.ErrTransitionInProgress
	code, body = do(t, app, http.MethodPost, "/api/mode/toggle", "", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.JSONEq(t, `{"error":"mode transition in progress"}`, string(body))

	ctl.toggleErr = control.ErrControllerClosed
	code, _ = do(t, app, http.MethodPost, "/api/mode/toggle", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestJoystickEndpoint(t *testing.T) {
	app, ctl, _ := newTestApp(t)

	code, body := do(t, app, http.MethodPost, "/api/joystick", fiber.MIMEApplicationJSON,
		`{"angle":45,"displacement":1}`)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"command":"0,100,50,","accepted":true,"mode":"joystick"}`, string(body))
	assert.Equal(t, []drive.PolarInput{{Angle: 45, Displacement: 1}}, ctl.Inputs())

	code, body = do(t, app, http.MethodPost, "/api/joystick", fiber.MIMEApplicationJSON, `{"angle":45}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(body), "required")

	code, _ = do(t, app, http.MethodPost, "/api/joystick", fiber.MIMEApplicationJSON, `{"angle":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestProfileEndpoints(t *testing.T) {
	app, _, profiles := newTestApp(t)

	code, body := do(t, app, http.MethodGet, "/api/v1/config/profile", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "vertical_angle_offset: 20")

	code, body = do(t, app, http.MethodPut, "/api/v1/config/profile", "application/x-yaml",
		"vertical_angle_offset: 15\n")
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Equal(t, 15.0, profiles.GetCurrentProfile().VerticalAngleOffset)

	code, body = do(t, app, http.MethodGet, "/api/v1/config/profile", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "vertical_angle_offset: 15\n", string(body))

	code, _ = do(t, app, http.MethodPut, "/api/v1/config/profile", "application/x-yaml",
		"displacement_deadzone: 0.95\n")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodPut, "/api/v1/config/profile", "application/x-yaml", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app, _, _ := newTestApp(t)
	code, _ := do(t, app, http.MethodGet, "/ws/joystick", "", "")
	assert.Equal(t, http.StatusUpgradeRequired, code)
}

func TestJoystickWebSocket(t *testing.T) {
	app, ctl, _ := newTestApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/joystick", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"angle":90,"displacement":0.5}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"angle":180,"displacement":1}`)))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"toggle":true}`)))
	var mode ModeResponse
	require.NoError(t, conn.ReadJSON(&mode))
	assert.Equal(t, drive.ModePath, mode.Mode)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	var failure ErrorResponse
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Contains(t, failure.Error, "malformed")

	assert.Equal(t, []drive.PolarInput{
		{Angle: 90, Displacement: 0.5},
		{Angle: 180, Displacement: 1},
	}, ctl.Inputs())
}
