package core

import "time"

type Clock struct {
	startTime time.Time
	lastTick  time.Time
	elapsed   time.Duration
	running   bool
}

func NewClock() *Clock {
	return &Clock{}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = time.Now()
	c.lastTick = c.startTime
	c.elapsed = 0
	c.running = true
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.running {
		c.elapsed = time.Since(c.startTime)
	}
}

// Tick returns the seconds since the previous Tick (or Start).
func (c *Clock) Tick() float32 {
	if !c.running {
		return 0
	}
	now := time.Now()
	delta := now.Sub(c.lastTick)
	c.lastTick = now
	return float32(delta.Seconds())
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.running = false
}

func (c *Clock) Elapsed() time.Duration {
	return c.elapsed
}
