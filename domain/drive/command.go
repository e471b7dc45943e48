package drive

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Wire type digits.
const (
	wireDrive      = "0"
	wireModeSwitch = "1"
)

// MaxPercent bounds a Drive command's per-wheel percentage.
const MaxPercent = 100

var (
	ErrUnsupportedCommand = errors.New("command has no wire encoding")
	ErrMalformedCommand   = errors.New("malformed command")
)

// Kind tells the Command variants apart.
type Kind int

const (
	KindDrive Kind = iota
	KindModeSwitch
)

func (k Kind) String() string {
	switch k {
	case KindDrive:
		return "drive"
	case KindModeSwitch:
		return "mode_switch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is a message for the vehicle. Commands are plain values and compare
// with ==. JSON and YAML encode a Command as its wire form.
type Command struct {
	Kind   Kind
	Left   int
	Right  int
	Target Mode
}

// Drive returns a drive command, clamping both percentages to [-100,100].
func Drive(left, right int) Command {
	return Command{
		Kind:  KindDrive,
		Left:  clampPercent(left),
		Right: clampPercent(right),
	}
}

// Stop is the drive command that halts both wheels.
func Stop() Command {
	return Drive(0, 0)
}

// ModeSwitch returns a command asking the vehicle to enter target.
func ModeSwitch(target Mode) Command {
	return Command{Kind: KindModeSwitch, Target: target}
}

// FormatDrive scales wheel speeds by the throttle and rounds to whole
// percentages. A zero throttle always yields Drive(0, 0).
func FormatDrive(speeds WheelSpeeds, throttle float64) Command {
	return Drive(percent(speeds.Left, throttle), percent(speeds.Right, throttle))
}

// FormatMode returns the command announcing a switch to mode.
func FormatMode(mode Mode) Command {
	return ModeSwitch(mode)
}

func percent(speed, throttle float64) int {
	return int(math.Round(clamp(speed, -1, 1) * clamp(throttle, 0, 1) * MaxPercent))
}

func clampPercent(p int) int {
	if p > MaxPercent {
		return MaxPercent
	}
	if p < -MaxPercent {
		return -MaxPercent
	}
	return p
}

// IsStop reports whether c is Drive(0, 0).
func (c Command) IsStop() bool {
	return c.Kind == KindDrive && c.Left == 0 && c.Right == 0
}

// MarshalText returns the wire form of c:
//
//	Drive:           "0,<left>,<right>,"
//	ModeSwitch(Path): "1,"
//
// Switching to joystick mode has no wire form; the vehicle learns about it from
// the Drive(0, 0) sent on entry.
func (c Command) MarshalText() ([]byte, error) {
	switch c.Kind {
	case KindDrive:
		var b strings.Builder
		b.WriteString(wireDrive)
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(clampPercent(c.Left)))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(clampPercent(c.Right)))
		b.WriteByte(',')
		return []byte(b.String()), nil
	case KindModeSwitch:
		if c.Target == ModePath {
			return []byte(wireModeSwitch + ","), nil
		}
		return nil, fmt.Errorf("%w: mode switch to %s", ErrUnsupportedCommand, c.Target)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCommand, c.Kind)
}

// Wire is MarshalText as a string.
func (c Command) Wire() (string, error) {
	b, err := c.MarshalText()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalText parses a wire message into c.
func (c *Command) UnmarshalText(text []byte) error {
	parsed, err := ParseCommand(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCommand decodes a wire message. Surrounding whitespace, such as a line
// terminator echoed back by the vehicle, is ignored.
func ParseCommand(text string) (Command, error) {
	s := strings.TrimSpace(text)
	if !strings.HasSuffix(s, ",") {
		return Command{}, fmt.Errorf("%w: %q lacks trailing comma", ErrMalformedCommand, text)
	}
	fields := strings.Split(strings.TrimSuffix(s, ","), ",")

	switch fields[0] {
	case wireDrive:
		if len(fields) != 3 {
			return Command{}, fmt.Errorf("%w: drive %q wants 2 values, got %d", ErrMalformedCommand, text, len(fields)-1)
		}
		left, err := parsePercent(fields[1])
		if err != nil {
			return Command{}, fmt.Errorf("%w: left wheel in %q: %v", ErrMalformedCommand, text, err)
		}
		right, err := parsePercent(fields[2])
		if err != nil {
			return Command{}, fmt.Errorf("%w: right wheel in %q: %v", ErrMalformedCommand, text, err)
		}
		return Drive(left, right), nil
	case wireModeSwitch:
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("%w: mode switch %q takes no values", ErrMalformedCommand, text)
		}
		return ModeSwitch(ModePath), nil
	}
	return Command{}, fmt.Errorf("%w: unknown type %q", ErrMalformedCommand, fields[0])
}

func parsePercent(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < -MaxPercent || v > MaxPercent {
		return 0, fmt.Errorf("%d out of range", v)
	}
	return v, nil
}

func (c Command) String() string {
	switch c.Kind {
	case KindDrive:
		return fmt.Sprintf("Drive(%d,%d)", c.Left, c.Right)
	case KindModeSwitch:
		return fmt.Sprintf("ModeSwitch(%s)", c.Target)
	}
	return c.Kind.String()
}
