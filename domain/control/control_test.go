package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dinacontroller/bridge/domain/drive"
	customlog "github.com/dinacontroller/bridge/pkg/log"
	"github.com/dinacontroller/bridge/pkg/seriallink"
	"github.com/dinacontroller/bridge/pkg/telemetry"
)

type fakeLink struct {
	mu    sync.Mutex
	ready bool
	sent  []string
}

func (l *fakeLink) Send(message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready {
		return false
	}
	l.sent = append(l.sent, message)
	return true
}

func (l *fakeLink) Sent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.sent...)
}

func (l *fakeLink) SetReady(ready bool) {
	l.mu.Lock()
	l.ready = ready
	l.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (p *recordingPublisher) Publish(ev telemetry.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return true
}

func (p *recordingPublisher) Kinds() []telemetry.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	var kinds []telemetry.Kind
	for _, ev := range p.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func newTestController(t *testing.T, link *fakeLink, settle time.Duration) (*Controller, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	c, err := New(Options{
		Link:         link,
		Params:       drive.DefaultParams(),
		TickInterval: 5 * time.Millisecond,
		SettleDelay:  settle,
		Publisher:    pub,
		Session:      "test-session",
	}, customlog.NewDiscardLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c, pub
}

func TestSchedulerSuppressesDuplicates(t *testing.T) {
	link := &fakeLink{ready: true}
	s := NewScheduler(link, time.Hour, customlog.NewDiscardLogger(), nil)

	s.Offer(drive.Drive(10, 10))
	if !s.Tick() {
		t.Fatal("Expected first tick to send")
	}
	s.Offer(drive.Drive(10, 10))
	if s.Tick() {
		t.Error("Expected identical command to be suppressed")
	}
	if s.Tick() {
		t.Error("Expected tick without pending command to send nothing")
	}

	if diff := cmp.Diff([]string{"0,10,10,"}, link.Sent()); diff != "" {
		t.Errorf("Sends mismatch (-want +got):\n%s", diff)
	}
	if got := s.Stats(); got.Sent != 1 || got.Suppressed != 1 {
		t.Errorf("Expected 1 sent and 1 suppressed, got %+v", got)
	}
}

func TestSchedulerLatestValueWins(t *testing.T) {
	link := &fakeLink{ready: true}
	s := NewScheduler(link, time.Hour, customlog.NewDiscardLogger(), nil)

	s.Offer(drive.Drive(10, 10))
	s.Offer(drive.Drive(20, -20))
	s.Tick()

	if diff := cmp.Diff([]string{"0,20,-20,"}, link.Sent()); diff != "" {
		t.Errorf("Sends mismatch (-want +got):\n%s", diff)
	}
	if _, ok := s.Pending(); ok {
		t.Error("Expected pending command to be cleared after send")
	}
}

func TestSchedulerDroppedSend(t *testing.T) {
	link := &fakeLink{}
	var accepted []drive.Command
	s := NewScheduler(link, time.Hour, customlog.NewDiscardLogger(), func(cmd drive.Command) {
		accepted = append(accepted, cmd)
	})

	s.Offer(drive.Drive(50, 50))
	if s.Tick() {
		t.Fatal("Expected send to be dropped while link is down")
	}
	if _, ok := s.LastSent(); ok {
		t.Error("Expected last sent to stay empty after a dropped send")
	}
	if _, ok := s.Pending(); ok {
		t.Error("Expected dropped command to be discarded, not retried")
	}
	if got := s.Stats().Dropped; got != 1 {
		t.Errorf("Expected 1 dropped, got %d", got)
	}

	link.SetReady(true)
	s.Offer(drive.Drive(50, 50))
	if !s.Tick() {
		t.Fatal("Expected re-offered command to be sent once the link is up")
	}
	if diff := cmp.Diff([]drive.Command{drive.Drive(50, 50)}, accepted); diff != "" {
		t.Errorf("onSent mismatch (-want +got):\n%s", diff)
	}
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	link := &fakeLink{ready: true}
	s := NewScheduler(link, 5*time.Millisecond, customlog.NewDiscardLogger(), nil)

	s.Stop()
	s.Start()
	s.Start()
	if !s.Running() {
		t.Fatal("Expected scheduler to be running")
	}

	s.Offer(drive.Drive(30, 30))
	waitFor(t, "tick to send", func() bool { return len(link.Sent()) == 1 })

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatal("Expected scheduler to be stopped")
	}

	s.Offer(drive.Drive(40, 40))
	time.Sleep(20 * time.Millisecond)
	if got := len(link.Sent()); got != 1 {
		t.Errorf("Expected no sends after stop, got %d", got)
	}
}

func TestToggleJoystickToPath(t *testing.T) {
	link := &fakeLink{ready: true}
	c, pub := newTestController(t, link, time.Millisecond)
	c.Start()

	if _, ok := c.SubmitInput(drive.PolarInput{Angle: 45, Displacement: 1}); !ok {
		t.Fatal("Expected input to be accepted in joystick mode")
	}
	waitFor(t, "drive command", func() bool { return len(link.Sent()) == 1 })

	mode, err := c.ToggleMode(context.Background())
	if err != nil {
		t.Fatalf("ToggleMode failed: %v", err)
	}
	if mode != drive.ModePath {
		t.Fatalf("Expected path mode, got %s", mode)
	}

	if _, ok := c.SubmitInput(drive.PolarInput{Angle: 90, Displacement: 1}); ok {
		t.Error("Expected input to be ignored in path mode")
	}
	time.Sleep(25 * time.Millisecond)

	want := []string{"0,100,50,", "1,"}
	if diff := cmp.Diff(want, link.Sent()); diff != "" {
		t.Errorf("Sends mismatch (-want +got):\n%s", diff)
	}
	if c.scheduler.Running() {
		t.Error("Expected scheduler to stop in path mode")
	}

	wantKinds := []telemetry.Kind{telemetry.KindCommandSent, telemetry.KindCommandSent, telemetry.KindModeChanged}
	if diff := cmp.Diff(wantKinds, pub.Kinds()); diff != "" {
		t.Errorf("Telemetry mismatch (-want +got):\n%s", diff)
	}
}

func TestTogglePathToJoystickStopsFirst(t *testing.T) {
	link := &fakeLink{ready: true}
	c, _ := newTestController(t, link, time.Millisecond)
	c.Start()

	if _, err := c.ToggleMode(context.Background()); err != nil {
		t.Fatalf("ToggleMode to path failed: %v", err)
	}
	mode, err := c.ToggleMode(context.Background())
	if err != nil {
		t.Fatalf("ToggleMode to joystick failed: %v", err)
	}
	if mode != drive.ModeJoystick {
		t.Fatalf("Expected joystick mode, got %s", mode)
	}

	st := c.Status()
	if st.LastSent == nil || !st.LastSent.IsStop() {
		t.Errorf("Expected stop recorded as last sent, got %v", st.LastSent)
	}

	// An idle stick repeats the stop, which must not be resent.
	c.SubmitInput(drive.PolarInput{Angle: 0, Displacement: 0})
	time.Sleep(20 * time.Millisecond)
	c.SubmitInput(drive.PolarInput{Angle: 45, Displacement: 1})
	waitFor(t, "drive command", func() bool { return len(link.Sent()) == 3 })

	want := []string{"1,", "0,0,0,", "0,100,50,"}
	if diff := cmp.Diff(want, link.Sent()); diff != "" {
		t.Errorf("Sends mismatch (-want +got):\n%s", diff)
	}
}

func TestToggleDuringTransition(t *testing.T) {
	link := &fakeLink{ready: true}
	c, _ := newTestController(t, link, 200*time.Millisecond)
	c.Start()

	done := make(chan error, 1)
	go func() {
		_, err := c.ToggleMode(context.Background())
		done <- err
	}()
	waitFor(t, "transition to begin", c.modes.Transitioning)

	if _, err := c.ToggleMode(context.Background()); !errors.Is(err, ErrTransitionInProgress) {
		t.Errorf("Expected ErrTransitionInProgress, got %v", err)
	}
	if _, ok := c.SubmitInput(drive.PolarInput{Angle: 45, Displacement: 1}); ok {
		t.Error("Expected input to be ignored while settling")
	}
	if !c.Status().Transitioning {
		t.Error("Expected status to report the transition")
	}

	if err := <-done; err != nil {
		t.Fatalf("First toggle failed: %v", err)
	}
	if c.Mode() != drive.ModePath {
		t.Errorf("Expected path mode, got %s", c.Mode())
	}
}

func TestToggleCancelledDuringSettle(t *testing.T) {
	link := &fakeLink{ready: true}
	c, _ := newTestController(t, link, 50*time.Millisecond)
	c.Start()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mode, err := c.ToggleMode(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if mode != drive.ModeJoystick || c.Mode() != drive.ModeJoystick {
		t.Errorf("Expected mode to stay joystick, got %s", c.Mode())
	}
	if got := link.Sent(); len(got) != 0 {
		t.Errorf("Expected nothing sent, got %v", got)
	}
	if !c.scheduler.Running() {
		t.Error("Expected scheduler to resume in joystick mode")
	}
}

func TestNoDriveCommandsWhileSettlingIntoPath(t *testing.T) {
	link := &fakeLink{ready: true}
	c, _ := newTestController(t, link, 100*time.Millisecond)
	c.Start()

	done := make(chan error, 1)
	go func() {
		_, err := c.ToggleMode(context.Background())
		done <- err
	}()
	waitFor(t, "path mode", func() bool { return c.Mode() == drive.ModePath })

	// An input that passed the mode check just before the flip.
	c.scheduler.Offer(drive.Drive(100, 100))
	time.Sleep(30 * time.Millisecond)
	if got := link.Sent(); len(got) != 0 {
		t.Errorf("Expected nothing sent while settling, got %v", got)
	}

	if err := <-done; err != nil {
		t.Fatalf("ToggleMode failed: %v", err)
	}
	if diff := cmp.Diff([]string{"1,"}, link.Sent()); diff != "" {
		t.Errorf("Sends mismatch (-want +got):\n%s", diff)
	}
	if _, ok := c.scheduler.Pending(); ok {
		t.Error("Expected stale pending command to be discarded")
	}
}

func TestToggleAfterModeMachineStopped(t *testing.T) {
	link := &fakeLink{ready: true}
	c, _ := newTestController(t, link, time.Millisecond)
	c.Start()

	if _, err := c.ToggleMode(context.Background()); err != nil {
		t.Fatalf("ToggleMode failed: %v", err)
	}

	// Close landing between ToggleMode's closed check and the transition lock.
	c.modes.Stop()
	mode, err := c.modes.Toggle(context.Background())
	if !errors.Is(err, ErrControllerClosed) {
		t.Fatalf("Expected ErrControllerClosed, got %v", err)
	}
	if mode != drive.ModePath {
		t.Errorf("Expected mode to stay path, got %s", mode)
	}
	if c.scheduler.Running() {
		t.Error("Expected scheduler to stay stopped")
	}
	if c.modes.Resync() {
		t.Error("Expected resync to send nothing after stop")
	}
	if diff := cmp.Diff([]string{"1,"}, link.Sent()); diff != "" {
		t.Errorf("Sends mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkLifecycleReactions(t *testing.T) {
	link := &fakeLink{ready: true}
	c, pub := newTestController(t, link, time.Millisecond)
	p := seriallink.Peripheral{Name: "rfcomm0", Path: "/dev/rfcomm0"}

	c.OnStateChanged(seriallink.StateReady)
	c.OnReady(p)
	if diff := cmp.Diff([]string{"0,0,0,"}, link.Sent()); diff != "" {
		t.Errorf("Sends mismatch (-want +got):\n%s", diff)
	}

	st := c.Status()
	if !st.LinkReady || st.Peripheral == nil || st.Peripheral.Name != "rfcomm0" {
		t.Errorf("Expected ready link to rfcomm0, got %+v", st)
	}
	if st.LinkState != "ready" {
		t.Errorf("Expected link state ready, got %s", st.LinkState)
	}
	if st.Session != "test-session" {
		t.Errorf("Expected session id, got %q", st.Session)
	}

	// The recorded stop suppresses an idle stick.
	c.SubmitInput(drive.PolarInput{})
	if c.scheduler.Tick() {
		t.Error("Expected idle stick to be suppressed after the ready stop")
	}

	c.OnDisconnected(p, errors.New("EOF"))
	st = c.Status()
	if st.LinkReady || st.Peripheral != nil || st.LastSent != nil {
		t.Errorf("Expected link down with no last sent, got %+v", st)
	}

	// After a reconnect in path mode the vehicle gets the mode switch again.
	if _, err := c.ToggleMode(context.Background()); err != nil {
		t.Fatalf("ToggleMode failed: %v", err)
	}
	c.OnReady(p)
	want := []string{"0,0,0,", "1,", "1,"}
	if diff := cmp.Diff(want, link.Sent()); diff != "" {
		t.Errorf("Sends mismatch (-want +got):\n%s", diff)
	}

	wantKinds := []telemetry.Kind{
		telemetry.KindLinkReady, telemetry.KindCommandSent,
		telemetry.KindLinkDown,
		telemetry.KindCommandSent, telemetry.KindModeChanged,
		telemetry.KindLinkReady, telemetry.KindCommandSent,
	}
	if diff := cmp.Diff(wantKinds, pub.Kinds()); diff != "" {
		t.Errorf("Telemetry mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyProfile(t *testing.T) {
	link := &fakeLink{ready: true}
	c, _ := newTestController(t, link, time.Millisecond)

	in := drive.PolarInput{Angle: 45, Displacement: 0.4}
	if cmd, _ := c.SubmitInput(in); cmd.IsStop() {
		t.Fatalf("Expected motion with default deadzone, got %s", cmd)
	}

	params := drive.DefaultParams()
	params.DisplacementDeadzone = 0.5
	if err := c.ApplyProfile(params); err != nil {
		t.Fatalf("ApplyProfile failed: %v", err)
	}
	if cmd, _ := c.SubmitInput(in); !cmd.IsStop() {
		t.Errorf("Expected stop inside the wider deadzone, got %s", cmd)
	}
	if c.Params() != params {
		t.Errorf("Expected params %+v, got %+v", params, c.Params())
	}

	bad := params
	bad.DisplacementSaturation = 0
	if err := c.ApplyProfile(bad); !errors.Is(err, drive.ErrInvalidParams) {
		t.Errorf("Expected ErrInvalidParams, got %v", err)
	}
	if c.Params() != params {
		t.Error("Expected rejected profile to leave params unchanged")
	}
}

func TestClosedController(t *testing.T) {
	link := &fakeLink{ready: true}
	c, _ := newTestController(t, link, time.Millisecond)
	c.Start()
	c.Close()
	c.Close()

	if _, err := c.ToggleMode(context.Background()); !errors.Is(err, ErrControllerClosed) {
		t.Errorf("Expected ErrControllerClosed, got %v", err)
	}
	if _, ok := c.SubmitInput(drive.PolarInput{Angle: 45, Displacement: 1}); ok {
		t.Error("Expected input to be refused after close")
	}
}
