package telemetry

import (
	"fmt"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/dinacontroller/bridge/domain/drive"
	fb "github.com/dinacontroller/bridge/pkg/flatbuffers/bridge/telemetry"
)

var frameKinds = map[Kind]fb.FrameKind{
	KindCommandSent: fb.FrameKindCOMMAND_SENT,
	KindModeChanged: fb.FrameKindMODE_CHANGED,
	KindLinkReady:   fb.FrameKindLINK_READY,
	KindLinkDown:    fb.FrameKindLINK_DOWN,
}

// EncodeFrame serializes ev as a CommandFrame flatbuffer.
func EncodeFrame(ev Event) ([]byte, error) {
	kind, ok := frameKinds[ev.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown telemetry event kind %q", ev.Kind)
	}

	builder := flatbuffers.NewBuilder(128)

	// Strings go in before the table is started.
	session := builder.CreateString(ev.Session)
	peripheral := builder.CreateString(ev.Peripheral)
	var wire flatbuffers.UOffsetT
	if ev.Command != nil {
		if w, err := ev.Command.Wire(); err == nil {
			wire = builder.CreateString(w)
		}
	}

	fb.CommandFrameStart(builder)
	fb.CommandFrameAddKind(builder, kind)
	if ev.Command != nil {
		switch ev.Command.Kind {
		case drive.KindDrive:
			fb.CommandFrameAddCommandKind(builder, fb.CommandKindDRIVE)
			fb.CommandFrameAddLeft(builder, int16(ev.Command.Left))
			fb.CommandFrameAddRight(builder, int16(ev.Command.Right))
		case drive.KindModeSwitch:
			fb.CommandFrameAddCommandKind(builder, fb.CommandKindMODE_SWITCH)
		}
	}
	fb.CommandFrameAddMode(builder, int8(ev.Mode))
	fb.CommandFrameAddLinkReady(builder, ev.LinkReady)
	fb.CommandFrameAddSequence(builder, ev.Sequence)
	fb.CommandFrameAddTimestampNs(builder, ev.Timestamp.UnixNano())
	fb.CommandFrameAddSessionId(builder, session)
	fb.CommandFrameAddPeripheral(builder, peripheral)
	if wire != 0 {
		fb.CommandFrameAddWire(builder, wire)
	}
	fb.FinishCommandFrameBuffer(builder, fb.CommandFrameEnd(builder))

	return builder.FinishedBytes(), nil
}

// DecodeFrame is the inverse of EncodeFrame. The command is rebuilt from its
// wire form; Error is not carried by the frame.
func DecodeFrame(data []byte) (ev Event, err error) {
	// The generated accessors panic on truncated input.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupt telemetry frame: %v", r)
		}
	}()

	frame := fb.GetRootAsCommandFrame(data, 0)
	kindName, ok := fb.EnumNamesFrameKind[frame.Kind()]
	if !ok {
		return Event{}, fmt.Errorf("unknown frame kind %d", frame.Kind())
	}

	ev = Event{
		Kind:       Kind(kindName),
		Session:    string(frame.SessionId()),
		Sequence:   frame.Sequence(),
		Timestamp:  time.Unix(0, frame.TimestampNs()),
		Mode:       drive.Mode(frame.Mode()),
		LinkReady:  frame.LinkReady(),
		Peripheral: string(frame.Peripheral()),
	}
	if wire := frame.Wire(); wire != nil {
		cmd, err := drive.ParseCommand(string(wire))
		if err != nil {
			return Event{}, err
		}
		ev.Command = &cmd
	}
	return ev, nil
}
