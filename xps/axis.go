package xps

// This file adapts the Controller to the axis-oriented interfaces in
// generichttp/motion.  An axis label is a stage ("FINE.X") or a group;
// operations that the XPS only exposes per-group are applied to the
// group part of the label.

// group status code ranges, from the programmer's manual.  The full table
// has ~80 entries; these ranges are the ones behavior branches on.
const (
	statusNotInitLow = 0
	statusNotInitHi  = 9
	statusDisableLow = 20
	statusDisableHi  = 23
	statusNotRef     = 42
)

// MoveAbs moves an axis to an absolute position
func (c *Controller) MoveAbs(axis string, pos float64) error {
	return c.MoveStage(axis, pos, false)
}

// MoveRel moves an axis by a relative amount
func (c *Controller) MoveRel(axis string, delta float64) error {
	return c.MoveStage(axis, delta, true)
}

// GetPos returns the current position of an axis
func (c *Controller) GetPos(axis string) (float64, error) {
	return c.StagePosition(axis)
}

// Home runs the home search on the group an axis belongs to
func (c *Controller) Home(axis string) error {
	return c.HomeGroup(groupOf(axis))
}

// Homed returns true if the group an axis belongs to has a home reference
func (c *Controller) Homed(axis string) (bool, error) {
	code, err := c.GroupStatusCode(groupOf(axis))
	if err != nil {
		return false, err
	}
	if code >= statusNotInitLow && code <= statusNotInitHi {
		return false, nil
	}
	if code == statusNotRef {
		return false, nil
	}
	return true, nil
}

// Enable closes the servo loop on the group an axis belongs to
func (c *Controller) Enable(axis string) error {
	return c.EnableGroup(groupOf(axis))
}

// Disable opens the servo loop on the group an axis belongs to
func (c *Controller) Disable(axis string) error {
	return c.DisableGroup(groupOf(axis))
}

// GetEnabled returns true unless the group an axis belongs to is in a
// disable or uninitialized state
func (c *Controller) GetEnabled(axis string) (bool, error) {
	code, err := c.GroupStatusCode(groupOf(axis))
	if err != nil {
		return false, err
	}
	if code >= statusDisableLow && code <= statusDisableHi {
		return false, nil
	}
	if code >= statusNotInitLow && code <= statusNotInitHi {
		return false, nil
	}
	return true, nil
}

// Initialize powers on the group an axis belongs to
func (c *Controller) Initialize(axis string) error {
	return c.InitializeGroup(groupOf(axis))
}

// Stop aborts motion on the group an axis belongs to
func (c *Controller) Stop(axis string) error {
	return c.AbortGroupMove(groupOf(axis))
}
