package drive

import (
	"errors"
	"fmt"
)

// Params tunes the joystick to wheel-speed mapping.
type Params struct {
	// VerticalAngleOffset is the width in degrees of the snap zones around the
	// forward and reverse axes.
	VerticalAngleOffset float64 `yaml:"vertical_angle_offset" json:"vertical_angle_offset"`
	// DisplacementDeadzone: displacements below it count as a centered stick.
	DisplacementDeadzone float64 `yaml:"displacement_deadzone" json:"displacement_deadzone"`
	// DisplacementSaturation: displacements above it count as full throttle.
	DisplacementSaturation float64 `yaml:"displacement_saturation" json:"displacement_saturation"`
	// WheelSaturation: wheel speeds with a larger magnitude snap to ±1.
	WheelSaturation float64 `yaml:"wheel_saturation" json:"wheel_saturation"`
}

// DefaultParams returns the stock mapping parameters.
func DefaultParams() Params {
	return Params{
		VerticalAngleOffset:    20,
		DisplacementDeadzone:   0.2,
		DisplacementSaturation: 0.8,
		WheelSaturation:        0.8,
	}
}

var ErrInvalidParams = errors.New("invalid drive parameters")

// Validate reports whether the parameters describe a usable mapping.
func (p Params) Validate() error {
	if p.VerticalAngleOffset < 0 || p.VerticalAngleOffset >= 45 {
		return fmt.Errorf("%w: vertical_angle_offset %v must be in [0,45)", ErrInvalidParams, p.VerticalAngleOffset)
	}
	if p.DisplacementDeadzone < 0 || p.DisplacementDeadzone >= 1 {
		return fmt.Errorf("%w: displacement_deadzone %v must be in [0,1)", ErrInvalidParams, p.DisplacementDeadzone)
	}
	if p.DisplacementSaturation <= 0 || p.DisplacementSaturation > 1 {
		return fmt.Errorf("%w: displacement_saturation %v must be in (0,1]", ErrInvalidParams, p.DisplacementSaturation)
	}
	if p.DisplacementDeadzone >= p.DisplacementSaturation {
		return fmt.Errorf("%w: displacement_deadzone %v must be below displacement_saturation %v",
			ErrInvalidParams, p.DisplacementDeadzone, p.DisplacementSaturation)
	}
	if p.WheelSaturation <= 0 || p.WheelSaturation > 1 {
		return fmt.Errorf("%w: wheel_saturation %v must be in (0,1]", ErrInvalidParams, p.WheelSaturation)
	}
	return nil
}
