package xps

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	servoPeriod      = 250 * time.Microsecond // 4kHz servo rate on XPS controllers
	servoPeriodSec   = 250e-6                 // Period is for the ticker, PeriodSec is for math
	positioningError = 1e-7                   // up to 100 nm on lengths, 100 nrad on angles
	floatCmpTol      = 1e-12
)

// ErrNotImplemented is returned by mock operations with no simulation
var ErrNotImplemented = errors.New("not implemented")

// Mock simulates enough of a Controller to exercise the axis interfaces
// without hardware.  Axes spring into existence on first use, disabled
// and unhomed, like groups after a controller boot.
type Mock struct {
	sync.Mutex

	// HomeDelay simulates the duration of the home search
	HomeDelay time.Duration

	enabled map[string]bool
	moving  map[string]bool
	homed   map[string]bool
	stop    map[string]bool
	pos     map[string]float64
	vel     map[string]float64
}

// NewMock returns a fresh mock.  The addr argument is discarded; it
// exists so the constructor is interchangeable with New.
func NewMock(addr string) *Mock {
	return &Mock{
		HomeDelay: 10 * time.Millisecond,
		enabled:   make(map[string]bool),
		moving:    make(map[string]bool),
		homed:     make(map[string]bool),
		stop:      make(map[string]bool),
		pos:       make(map[string]float64),
		vel:       make(map[string]float64)}
}

func randN1to1() float64 {
	return rand.Float64()*2 - 1 // [0,1] => [0,2] => [-1,1]
}

func approxEqual(a, b, atol float64) bool {
	return math.Abs(b-a) < atol
}

// Enable enables an axis
func (c *Mock) Enable(axis string) error {
	c.Lock()
	defer c.Unlock()
	c.enabled[axis] = true
	return nil
}

// Disable disables an axis; disabling mid-move is rejected the way the
// hardware rejects it
func (c *Mock) Disable(axis string) error {
	c.Lock()
	defer c.Unlock()
	if c.moving[axis] {
		return Err(-22)
	}
	c.enabled[axis] = false
	return nil
}

// GetEnabled returns true if the axis is enabled
func (c *Mock) GetEnabled(axis string) (bool, error) {
	c.Lock()
	defer c.Unlock()
	return c.enabled[axis], nil
}

// Homed returns true if the axis has been home searched
func (c *Mock) Homed(axis string) (bool, error) {
	c.Lock()
	defer c.Unlock()
	return c.homed[axis], nil
}

// Home simulates the home search
func (c *Mock) Home(axis string) error {
	c.Lock()
	if !c.enabled[axis] {
		c.Unlock()
		return Err(-50)
	}
	c.Unlock()
	time.Sleep(c.HomeDelay)
	c.Lock()
	c.homed[axis] = true
	c.pos[axis] = 0
	c.Unlock()
	return nil
}

// GetPos returns the current position of an axis
func (c *Mock) GetPos(axis string) (float64, error) {
	c.Lock()
	defer c.Unlock()
	return c.pos[axis], nil
}

// GetVelocity returns the velocity setpoint of an axis, defaulting to 1
func (c *Mock) GetVelocity(axis string) (float64, error) {
	c.Lock()
	defer c.Unlock()
	v, ok := c.vel[axis]
	if !ok {
		c.vel[axis] = 1
		v = 1
	}
	return v, nil
}

// SetVelocity changes the velocity setpoint of an axis
func (c *Mock) SetVelocity(axis string, v float64) error {
	c.Lock()
	defer c.Unlock()
	if c.moving[axis] {
		return Err(-22)
	}
	c.vel[axis] = v
	return nil
}

// Initialize marks an axis initialized; on the mock this is a no-op
// beyond creating the axis
func (c *Mock) Initialize(axis string) error {
	c.Lock()
	defer c.Unlock()
	if _, ok := c.pos[axis]; !ok {
		c.pos[axis] = 0
	}
	return nil
}

// moveTo walks the position toward pos at the servo rate until it
// converges or Stop is called.  The caller holds the moving flag.
func (c *Mock) moveTo(axis string, pos float64) {
	c.Lock()
	c.stop[axis] = false
	currPos := c.pos[axis]
	v := c.vel[axis]
	c.Unlock()
	if v == 0 {
		v = 1
	}
	if approxEqual(currPos, pos, floatCmpTol) {
		c.Lock()
		c.moving[axis] = false
		c.Unlock()
		return
	}
	step := v * servoPeriodSec
	if pos < currPos {
		step = -step
	}
	tick := time.NewTicker(servoPeriod)
	defer tick.Stop()
	for range tick.C {
		c.Lock()
		if c.stop[axis] {
			c.moving[axis] = false
			c.stop[axis] = false
			c.Unlock()
			return
		}
		lastPos := c.pos[axis]
		nextPos := lastPos + step
		converged := (lastPos < pos && nextPos > pos) || (lastPos > pos && nextPos < pos)
		if converged {
			nextPos = pos + randN1to1()*positioningError
		}
		c.pos[axis] = nextPos
		if converged {
			c.moving[axis] = false
			c.Unlock()
			return
		}
		c.Unlock()
	}
}

func (c *Mock) beginMove(axis string) error {
	c.Lock()
	defer c.Unlock()
	if !c.enabled[axis] {
		return Err(-50)
	}
	if !c.homed[axis] {
		return Err(-109)
	}
	if c.moving[axis] {
		return Err(-22)
	}
	c.moving[axis] = true
	return nil
}

// MoveAbs moves an axis to an absolute position, blocking until the move
// completes as the hardware does
func (c *Mock) MoveAbs(axis string, pos float64) error {
	if err := c.beginMove(axis); err != nil {
		return err
	}
	c.moveTo(axis, pos)
	return nil
}

// MoveRel moves an axis by a relative amount
func (c *Mock) MoveRel(axis string, dPos float64) error {
	if err := c.beginMove(axis); err != nil {
		return err
	}
	c.Lock()
	pos := c.pos[axis] + dPos
	c.Unlock()
	c.moveTo(axis, pos)
	return nil
}

// Stop aborts an in-flight move
func (c *Mock) Stop(axis string) error {
	c.Lock()
	defer c.Unlock()
	if c.moving[axis] {
		c.stop[axis] = true
	}
	return nil
}

// Raw is not simulated
func (c *Mock) Raw(s string) (string, error) {
	return "", ErrNotImplemented
}
