package capture

import (
	"sync"
	"time"
)

// FPSMeter measures the instantaneous frame rate as 1/(now - previous tick).
type FPSMeter struct {
	now  func() time.Time
	prev time.Time
	fps  float64
	mu   sync.Mutex
}

// NewFPSMeter returns a meter using the wall clock.
func NewFPSMeter() *FPSMeter {
	return &FPSMeter{now: time.Now}
}

// SetClock replaces the time source.
func (m *FPSMeter) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Tick records a frame and returns the current rate. The first tick reports 0.
func (m *FPSMeter) Tick() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !m.prev.IsZero() {
		if dt := now.Sub(m.prev).Seconds(); dt > 0 {
			m.fps = 1 / dt
		}
	}
	m.prev = now
	return m.fps
}

// FPS returns the rate computed by the last Tick.
func (m *FPSMeter) FPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fps
}
