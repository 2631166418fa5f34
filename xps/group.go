package xps

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/beamline-tools/newportxps/util"
)

// groupOf strips the positioner part off an axis label; "FINE.X" => "FINE",
// "FINE" => "FINE"
func groupOf(axis string) string {
	if idx := strings.Index(axis, "."); idx != -1 {
		return axis[:idx]
	}
	return axis
}

// InitializeGroup powers on the motors of a group.  Groups come up
// uninitialized after boot or a kill.
func (c *Controller) InitializeGroup(group string) error {
	_, err := c.transact(cmd("GroupInitialize", group))
	return err
}

// InitializeGroupWithEncoderCalibration initializes a group and runs the
// encoder calibration cycle, required by some direct-drive stages
func (c *Controller) InitializeGroupWithEncoderCalibration(group string) error {
	_, err := c.transact(cmd("GroupInitializeWithEncoderCalibration", group))
	return err
}

// HomeGroup runs the home search for a group.  The call blocks until the
// search completes.
func (c *Controller) HomeGroup(group string) error {
	_, err := c.transact(cmd("GroupHomeSearch", group))
	return err
}

// EnableGroup takes a group out of the disabled state
func (c *Controller) EnableGroup(group string) error {
	_, err := c.transact(cmd("GroupMotionEnable", group))
	return err
}

// DisableGroup opens the servo loop of a group without losing the home
// reference
func (c *Controller) DisableGroup(group string) error {
	_, err := c.transact(cmd("GroupMotionDisable", group))
	return err
}

// KillGroup cuts motor power to a group.  The group must be reinitialized
// and homed afterward.
func (c *Controller) KillGroup(group string) error {
	_, err := c.transact(cmd("GroupKill", group))
	return err
}

// AbortGroupMove stops a group's motion without killing it
func (c *Controller) AbortGroupMove(group string) error {
	_, err := c.transact(cmd("GroupMoveAbort", group))
	return err
}

// eachGroup applies f to every cached group, stopping at the first error
func (c *Controller) eachGroup(f func(string) error) error {
	for _, name := range c.GroupNames() {
		if err := f(name); err != nil {
			return errors.Wrapf(err, "group %s", name)
		}
	}
	return nil
}

// InitializeAll initializes every group from system.ini
func (c *Controller) InitializeAll() error { return c.eachGroup(c.InitializeGroup) }

// HomeAll home-searches every group from system.ini
func (c *Controller) HomeAll() error { return c.eachGroup(c.HomeGroup) }

// EnableAll enables every group from system.ini
func (c *Controller) EnableAll() error { return c.eachGroup(c.EnableGroup) }

// DisableAll disables every group from system.ini
func (c *Controller) DisableAll() error { return c.eachGroup(c.DisableGroup) }

// KillAll kills every group from system.ini
func (c *Controller) KillAll() error { return c.eachGroup(c.KillGroup) }

// GroupStatusCode returns the raw status code of a group
func (c *Controller) GroupStatusCode(group string) (int, error) {
	body, err := c.transact(cmd("GroupStatusGet", group, outInt))
	if err != nil {
		return 0, err
	}
	is, err := parseInts(body, 1)
	if err != nil {
		return 0, err
	}
	return is[0], nil
}

// GroupStatusString asks the controller to describe a status code
func (c *Controller) GroupStatusString(code int) (string, error) {
	body, err := c.transact(cmd("GroupStatusStringGet", code, outChar))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

// GroupStatus returns the human description of a group's current state
func (c *Controller) GroupStatus(group string) (string, error) {
	code, err := c.GroupStatusCode(group)
	if err != nil {
		return "", err
	}
	return c.GroupStatusString(code)
}

// GroupStatuses returns the status description of every cached group
func (c *Controller) GroupStatuses() (map[string]string, error) {
	out := map[string]string{}
	err := c.eachGroup(func(name string) error {
		s, err := c.GroupStatus(name)
		if err != nil {
			return err
		}
		out[name] = s
		return nil
	})
	return out, err
}

// GroupPosition returns the current position of every positioner in a
// group, in the order they appear in system.ini
func (c *Controller) GroupPosition(group string) ([]float64, error) {
	g, err := c.Group(group)
	if err != nil {
		return nil, err
	}
	n := len(g.Positioners)
	if n == 0 {
		return nil, errors.Errorf("group %q has no positioners", group)
	}
	body, err := c.transact(cmd("GroupPositionCurrentGet", group, outputs(outDouble, n)))
	if err != nil {
		return nil, err
	}
	return parseFloats(body, n)
}

// MoveGroupAbsolute moves every positioner of a group to the given
// positions, one per positioner in system.ini order
func (c *Controller) MoveGroupAbsolute(group string, positions []float64) error {
	if err := c.checkArity(group, positions); err != nil {
		return err
	}
	_, err := c.transact(cmd("GroupMoveAbsolute", group, util.Float64SliceToCSV(positions, 'g', -1)))
	return err
}

// MoveGroupRelative moves every positioner of a group by the given
// deltas, one per positioner in system.ini order
func (c *Controller) MoveGroupRelative(group string, deltas []float64) error {
	if err := c.checkArity(group, deltas); err != nil {
		return err
	}
	_, err := c.transact(cmd("GroupMoveRelative", group, util.Float64SliceToCSV(deltas, 'g', -1)))
	return err
}

// MoveGroupPartial moves a subset of a group's positioners, keyed by full
// stage label or bare positioner name, leaving the rest at their current
// positions.  The controller has no native partial group move, so the
// current positions are read and overlaid.
func (c *Controller) MoveGroupPartial(group string, positions map[string]float64) error {
	g, err := c.Group(group)
	if err != nil {
		return err
	}
	current, err := c.GroupPosition(group)
	if err != nil {
		return err
	}
	for key, val := range positions {
		if !strings.Contains(key, ".") {
			key = group + "." + key
		}
		found := false
		for i, label := range g.Positioners {
			if label == key {
				current[i] = val
				found = true
				break
			}
		}
		if !found {
			return errors.Errorf("positioner %q not in group %q", key, group)
		}
	}
	return c.MoveGroupAbsolute(group, current)
}

func (c *Controller) checkArity(group string, vals []float64) error {
	g, err := c.Group(group)
	if err != nil {
		return err
	}
	if len(vals) != len(g.Positioners) {
		return errors.Errorf("group %q has %d positioners, got %d values",
			group, len(g.Positioners), len(vals))
	}
	return nil
}

// StagePosition returns the current position of one stage
func (c *Controller) StagePosition(stage string) (float64, error) {
	body, err := c.transact(cmd("GroupPositionCurrentGet", stage, outDouble))
	if err != nil {
		return 0, err
	}
	fs, err := parseFloats(body, 1)
	if err != nil {
		return 0, err
	}
	return fs[0], nil
}

// MoveStage moves one stage to an absolute position (relative false) or by
// a delta (relative true) without touching its group mates
func (c *Controller) MoveStage(stage string, pos float64, relative bool) error {
	verb := "GroupMoveAbsolute"
	if relative {
		verb = "GroupMoveRelative"
	}
	_, err := c.transact(cmd(verb, stage, pos))
	return err
}
