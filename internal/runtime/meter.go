package runtime

import (
	"math"
	"time"
)

// DefaultMeterWindow is the smoothing time constant of the processing-time
// meter.
const DefaultMeterWindow = 300 * time.Millisecond

// Meter is an exponentially smoothed RMS of a stream of readings. Each
// reading is weighted by how much time it covers, so the response does not
// depend on block size.
type Meter struct {
	window time.Duration
	square float64
	seeded bool
}

// NewMeter returns a meter with the given time constant. A non-positive
// window disables smoothing.
func NewMeter(window time.Duration) *Meter {
	return &Meter{window: window}
}

// Update folds in a reading that covers elapsed time.
func (m *Meter) Update(value float64, elapsed time.Duration) {
	sq := value * value
	if !m.seeded || m.window <= 0 {
		m.Set(value)
		return
	}
	alpha := 1 - math.Exp(-float64(elapsed)/float64(m.window))
	m.square += alpha * (sq - m.square)
}

// Set discards history and starts from value.
func (m *Meter) Set(value float64) {
	m.square = value * value
	m.seeded = true
}

// Value returns the smoothed reading.
func (m *Meter) Value() float64 {
	return math.Sqrt(m.square)
}
