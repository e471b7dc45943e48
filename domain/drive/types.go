package drive

import (
	"fmt"
	"math"
	"strings"
)

// PolarInput is a single joystick reading.
// Angle is in degrees with 0 pointing right and 90 pointing up.
// Displacement is the distance of the stick from its rest position, 0 to 1.
type PolarInput struct {
	Angle        float64 `json:"angle" yaml:"angle"`
	Displacement float64 `json:"displacement" yaml:"displacement"`
}

// Normalize wraps the angle into [0,360) and clamps the displacement to [0,1].
// Non-finite angles become 0 and a NaN displacement becomes 0, so any reading
// yields a safe command.
func (p PolarInput) Normalize() PolarInput {
	angle := p.Angle
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		angle = 0
	}
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	// math.Mod(-1e-20, 360) + 360 rounds to 360
	if angle >= 360 {
		angle = 0
	}

	displacement := p.Displacement
	if math.IsNaN(displacement) {
		displacement = 0
	}
	return PolarInput{Angle: angle, Displacement: clamp(displacement, 0, 1)}
}

// WheelSpeeds holds the per-wheel speed, each in [-1,1].
// Positive values drive the wheel forward.
type WheelSpeeds struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

func (w WheelSpeeds) String() string {
	return fmt.Sprintf("L=%.3f R=%.3f", w.Left, w.Right)
}

// Mode is the operating mode of the controller.
type Mode int

const (
	// ModeJoystick streams drive commands derived from joystick input.
	ModeJoystick Mode = iota
	// ModePath hands control to the vehicle's line-following routine.
	ModePath
)

func (m Mode) String() string {
	switch m {
	case ModeJoystick:
		return "joystick"
	case ModePath:
		return "path"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Other returns the mode a toggle switches to.
func (m Mode) Other() Mode {
	if m == ModeJoystick {
		return ModePath
	}
	return ModeJoystick
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case ModeJoystick, ModePath:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("unknown mode %d", int(m))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "joystick":
		*m = ModeJoystick
	case "path":
		*m = ModePath
	default:
		return fmt.Errorf("unknown mode %q", string(text))
	}
	return nil
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
