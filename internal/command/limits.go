package command

import "fmt"

// Policy decides what happens to out-of-range readings.
type Policy string

const (
	PolicyClamp  Policy = "clamp"
	PolicyReject Policy = "reject"
)

// Limits is the accepted range for both reading channels.
type Limits struct {
	Min    int
	Max    int
	Policy Policy
}

// DefaultLimits matches the slider range of the panel page.
var DefaultLimits = Limits{Min: 0, Max: 100, Policy: PolicyClamp}

// Apply validates a reading against the limits.
func (l Limits) Apply(r Reading) (Reading, error) {
	if l.Policy == PolicyReject {
		if !l.contains(r.Brightness) {
			return Reading{}, fmt.Errorf("%w: brightness %d outside [%d, %d]", ErrInvalidReading, r.Brightness, l.Min, l.Max)
		}
		if !l.contains(r.Temperature) {
			return Reading{}, fmt.Errorf("%w: temperature %d outside [%d, %d]", ErrInvalidReading, r.Temperature, l.Min, l.Max)
		}
		return r, nil
	}

	return Reading{
		Brightness:  l.Clamp(r.Brightness),
		Temperature: l.Clamp(r.Temperature),
	}, nil
}

// Clamp limits a single value to the range.
func (l Limits) Clamp(v int) int {
	if v < l.Min {
		return l.Min
	}
	if v > l.Max {
		return l.Max
	}
	return v
}

func (l Limits) contains(v int) bool {
	return v >= l.Min && v <= l.Max
}
