package xps

import (
	"sort"
	"strings"
)

// HardwareStatus returns the raw hardware status word of one positioner
func (c *Controller) HardwareStatus(stage string) (int, error) {
	body, err := c.transact(cmd("PositionerHardwareStatusGet", stage, outInt))
	if err != nil {
		return 0, err
	}
	is, err := parseInts(body, 1)
	if err != nil {
		return 0, err
	}
	return is[0], nil
}

// HardwareStatusString asks the controller to describe a hardware status
// word
func (c *Controller) HardwareStatusString(code int) (string, error) {
	body, err := c.transact(cmd("PositionerHardwareStatusStringGet", code, outChar))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

// HardwareStatuses returns the hardware status description of every cached
// stage, keyed by stage label
func (c *Controller) HardwareStatuses() (map[string]string, error) {
	out := map[string]string{}
	for _, name := range c.stageNames() {
		code, err := c.HardwareStatus(name)
		if err != nil {
			return out, err
		}
		s, err := c.HardwareStatusString(code)
		if err != nil {
			return out, err
		}
		out[name] = s
	}
	return out, nil
}

// PositionerError returns the pending error description of one positioner.
// A positioner with nothing to report answers "OK".
func (c *Controller) PositionerError(stage string) (string, error) {
	body, err := c.transact(cmd("PositionerErrorGet", stage, outInt))
	if err != nil {
		return "", err
	}
	is, err := parseInts(body, 1)
	if err != nil {
		return "", err
	}
	body, err = c.transact(cmd("PositionerErrorStringGet", is[0], outChar))
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(body)
	if s == "" {
		s = "OK"
	}
	return s, nil
}

// PositionerErrors returns the pending error description of every cached
// stage, keyed by stage label
func (c *Controller) PositionerErrors() (map[string]string, error) {
	out := map[string]string{}
	for _, name := range c.stageNames() {
		s, err := c.PositionerError(name)
		if err != nil {
			return out, err
		}
		out[name] = s
	}
	return out, nil
}

func (c *Controller) stageNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.stages))
	for k := range c.stages {
		out = append(out, k)
	}
	// deterministic iteration keeps reports stable
	sort.Strings(out)
	return out
}

// SGamma is the profile generator parameter set of a positioner
type SGamma struct {
	// Velocity is the peak velocity of a move
	Velocity float64 `json:"velocity"`

	// Acceleration is the peak acceleration of a move
	Acceleration float64 `json:"acceleration"`

	// MinJerkTime and MaxJerkTime bound the jerk phase of the profile
	MinJerkTime float64 `json:"minJerkTime"`
	MaxJerkTime float64 `json:"maxJerkTime"`
}

// GetSGamma returns the current motion profile parameters of a stage
func (c *Controller) GetSGamma(stage string) (SGamma, error) {
	var s SGamma
	body, err := c.transact(cmd("PositionerSGammaParametersGet", stage, outputs(outDouble, 4)))
	if err != nil {
		return s, err
	}
	fs, err := parseFloats(body, 4)
	if err != nil {
		return s, err
	}
	s.Velocity = fs[0]
	s.Acceleration = fs[1]
	s.MinJerkTime = fs[2]
	s.MaxJerkTime = fs[3]
	return s, nil
}

// SetSGamma replaces the motion profile parameters of a stage
func (c *Controller) SetSGamma(stage string, s SGamma) error {
	_, err := c.transact(cmd("PositionerSGammaParametersSet", stage,
		s.Velocity, s.Acceleration, s.MinJerkTime, s.MaxJerkTime))
	return err
}

// SetVelocity changes the peak velocity of a stage, leaving the rest of
// the profile alone
func (c *Controller) SetVelocity(stage string, velocity float64) error {
	s, err := c.GetSGamma(stage)
	if err != nil {
		return err
	}
	s.Velocity = velocity
	return c.SetSGamma(stage, s)
}

// GetVelocity returns the peak velocity of a stage
func (c *Controller) GetVelocity(stage string) (float64, error) {
	s, err := c.GetSGamma(stage)
	if err != nil {
		return 0, err
	}
	return s.Velocity, nil
}

// PIDFFVelocity is the corrector parameter set of a
// PIDFFVelocity-corrected positioner.  Field order matches the vendor
// call.
type PIDFFVelocity struct {
	ClosedLoop       bool    `json:"closedLoop"`
	KP               float64 `json:"kp"`
	KI               float64 `json:"ki"`
	KD               float64 `json:"kd"`
	KS               float64 `json:"ks"`
	IntegrationTime  float64 `json:"integrationTime"`
	DerivativeCutoff float64 `json:"derivativeCutoff"`
	GKP              float64 `json:"gkp"`
	GKI              float64 `json:"gki"`
	GKD              float64 `json:"gkd"`
	KForm            float64 `json:"kform"`
	FeedForwardGain  float64 `json:"feedForwardGain"`
}

// GetPIDFFVelocity returns the corrector tuning of a stage
func (c *Controller) GetPIDFFVelocity(stage string) (PIDFFVelocity, error) {
	var p PIDFFVelocity
	body, err := c.transact(cmd("PositionerCorrectorPIDFFVelocityGet", stage,
		outInt+","+outputs(outDouble, 11)))
	if err != nil {
		return p, err
	}
	pieces := strings.SplitN(body, ",", 2)
	if len(pieces) != 2 {
		return p, Err(-7)
	}
	p.ClosedLoop = strings.TrimSpace(pieces[0]) == "1"
	fs, err := parseFloats(pieces[1], 11)
	if err != nil {
		return p, err
	}
	p.KP = fs[0]
	p.KI = fs[1]
	p.KD = fs[2]
	p.KS = fs[3]
	p.IntegrationTime = fs[4]
	p.DerivativeCutoff = fs[5]
	p.GKP = fs[6]
	p.GKI = fs[7]
	p.GKD = fs[8]
	p.KForm = fs[9]
	p.FeedForwardGain = fs[10]
	return p, nil
}

// SetPIDFFVelocity replaces the corrector tuning of a stage.  Fetch with
// GetPIDFFVelocity, adjust, and write back to change a subset.
func (c *Controller) SetPIDFFVelocity(stage string, p PIDFFVelocity) error {
	_, err := c.transact(cmd("PositionerCorrectorPIDFFVelocitySet", stage,
		p.ClosedLoop, p.KP, p.KI, p.KD, p.KS, p.IntegrationTime, p.DerivativeCutoff,
		p.GKP, p.GKI, p.GKD, p.KForm, p.FeedForwardGain))
	return err
}
