// Package drive converts joystick readings into differential-drive commands
// and encodes them for the serial link.
package drive

// Output is the result of mapping one joystick reading.
type Output struct {
	Speeds WheelSpeeds
	// Throttle is the displacement after the deadzone and saturation snaps.
	Throttle float64
}

// Mapper turns polar joystick readings into wheel speeds.
// The zero value is not usable; use NewMapper or DefaultMapper.
type Mapper struct {
	params Params
}

// NewMapper returns a Mapper with the given parameters.
func NewMapper(params Params) (Mapper, error) {
	if err := params.Validate(); err != nil {
		return Mapper{}, err
	}
	return Mapper{params: params}, nil
}

// DefaultMapper returns a Mapper using DefaultParams.
func DefaultMapper() Mapper {
	return Mapper{params: DefaultParams()}
}

// Params returns the mapper's parameters.
func (m Mapper) Params() Params {
	return m.params
}

// Map converts a joystick reading into wheel speeds and an effective throttle.
// Out-of-range input is normalized first, so Map is total.
func (m Mapper) Map(in PolarInput) Output {
	in = in.Normalize()
	return Output{
		Speeds:   m.Wheels(in.Angle),
		Throttle: m.Throttle(in.Displacement),
	}
}

// Command maps a reading straight to a Drive command.
func (m Mapper) Command(in PolarInput) Command {
	out := m.Map(in)
	return FormatDrive(out.Speeds, out.Throttle)
}

// Wheels returns the wheel speeds for a stick angle in [0,360).
//
// Each quadrant holds one wheel at ±1 and ramps the other linearly. Near the
// forward and reverse axes the ramped wheel snaps to the fixed wheel's value so
// straight driving is easy to hit.
func (m Mapper) Wheels(angle float64) WheelSpeeds {
	offset := m.params.VerticalAngleOffset
	var left, right float64

	switch {
	case angle >= 270 && angle < 360:
		right = 1
		left = linearMap(angle, 270, 360, 0, 1)
		if angle >= 360-offset {
			left = 1
		}
	case angle >= 0 && angle <= 90:
		left = 1
		right = linearMap(angle, 0, 90, 1, 0)
		if angle <= offset {
			right = 1
		}
	case angle > 90 && angle <= 180:
		left = -1
		right = linearMap(angle, 90, 180, 0, -1)
		if angle >= 180-offset {
			right = -1
		}
	case angle > 180 && angle <= 270:
		right = -1
		left = linearMap(angle, 180, 270, -1, 0)
		if angle <= 180+offset {
			left = -1
		}
	}
	// Anything else (NaN, out of range) falls through as a stopped vehicle.

	return WheelSpeeds{
		Left:  m.saturate(left),
		Right: m.saturate(right),
	}
}

// Throttle applies the displacement deadzone and full-throttle snap.
func (m Mapper) Throttle(displacement float64) float64 {
	switch {
	case displacement < m.params.DisplacementDeadzone:
		return 0
	case displacement > m.params.DisplacementSaturation:
		return 1
	}
	return clamp(displacement, 0, 1)
}

func (m Mapper) saturate(speed float64) float64 {
	switch {
	case speed > m.params.WheelSaturation:
		return 1
	case speed < -m.params.WheelSaturation:
		return -1
	}
	return clamp(speed, -1, 1)
}

func linearMap(x, inMin, inMax, outMin, outMax float64) float64 {
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}
