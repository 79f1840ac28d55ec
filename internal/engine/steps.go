package engine

const (
	MinSpeed = 20 // lowest speed the motor runs reliably at
	MaxSpeed = 100
)

// Step returns the manual adjustment applied at the given speed. Steps grow
// with speed so fine control is available at the quiet end.
func Step(speed int) int {
	switch {
	case speed < 40:
		return 2
	case speed < 60:
		return 5
	case speed < 80:
		return 8
	default:
		return 10
	}
}

// Increase returns speed raised by one step, saturating at MaxSpeed.
func Increase(speed int) int {
	return ClampSpeed(speed + Step(speed))
}

// Decrease returns speed lowered by one step, saturating at MinSpeed.
func Decrease(speed int) int {
	return ClampSpeed(speed - Step(speed))
}

// ClampSpeed bounds a running speed to [MinSpeed, MaxSpeed].
func ClampSpeed(speed int) int {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}
