package xps

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TrajectoryState tracks the client side of the PVT lifecycle
type TrajectoryState string

const (
	// TrajIdle means no trajectory activity
	TrajIdle TrajectoryState = "idle"

	// TrajArming means an arm sequence is in flight
	TrajArming TrajectoryState = "arming"

	// TrajArmed means the controller has verified a trajectory and will
	// run it on the next execution command
	TrajArmed TrajectoryState = "armed"

	// TrajRunning means a trajectory is executing
	TrajRunning TrajectoryState = "running"

	// TrajComplete means execution finished but gathered data has not
	// been read
	TrajComplete TrajectoryState = "complete"

	// TrajWriting and TrajReading cover gathering I/O
	TrajWriting TrajectoryState = "writing"
	TrajReading TrajectoryState = "reading"
)

// Trajectory is a PVT trajectory known to the client.  Define methods
// build these; Arm and Run consume them by name.
type Trajectory struct {
	// Name keys the trajectory; the remote file is Name + ".trj"
	Name string

	// Type is "line" or "array"
	Type string

	// Axes are the stage labels with motion in this trajectory, used to
	// build the gathering columns
	Axes []string

	// Start holds the absolute position each commanded axis must occupy
	// before execution
	Start map[string]float64

	// Stop holds the expected final position of each commanded axis
	// (line trajectories only)
	Stop map[string]float64

	// PixelTime is the trigger pulse interval in seconds
	PixelTime float64

	// NPulses is the number of trigger pulses execution produces
	NPulses int

	// NSegments is the number of PVT segments in the file
	NSegments int

	// Text is the uploaded file body
	Text string

	// Uploaded is true once the file is on the controller
	Uploaded bool
}

func (c *Controller) setTrajState(s TrajectoryState) {
	c.mu.Lock()
	c.trajState = s
	c.mu.Unlock()
}

// TrajectoryState returns the client-side trajectory lifecycle state
func (c *Controller) TrajectoryState() TrajectoryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trajState
}

// TrajectoryGroup returns the group trajectories run on
func (c *Controller) TrajectoryGroup() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trajGroup
}

// Trajectory returns a defined trajectory by name
func (c *Controller) Trajectory(name string) (*Trajectory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.trajectories[name]
	if !ok {
		return nil, errors.Errorf("no trajectory named %q", name)
	}
	return t, nil
}

// TrajectoryNames returns the defined trajectory names in sorted order
func (c *Controller) TrajectoryNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.trajectories))
	for k := range c.trajectories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SetTrajectoryGroup selects the group upcoming trajectories run on.  The
// group must be in a Multiple* category; single axis groups cannot run
// PVT files.  Any trigger events left over from earlier sessions are
// removed.
func (c *Controller) SetTrajectoryGroup(group string) error {
	g, err := c.Group(group)
	if err != nil {
		return err
	}
	if !g.PVTCapable() {
		var pvt []string
		for name, g := range c.Groups() {
			if g.PVTCapable() {
				pvt = append(pvt, name)
			}
		}
		sort.Strings(pvt)
		return errors.Errorf("%q cannot be a trajectory group, must be one of: %s",
			group, strings.Join(pvt, ", "))
	}
	c.mu.Lock()
	c.trajGroup = group
	c.trajPositioners = append([]string{}, g.Positioners...)
	c.mu.Unlock()

	// stale events from a crashed client keep firing gathering actions
	for i := 0; i < 64; i++ {
		c.transact(cmd("EventExtendedRemove", i))
	}
	return nil
}

// resolveTrajAxis maps a bare positioner name or full label onto a stage
// of the trajectory group
func (c *Controller) resolveTrajAxis(axis string) (Stage, error) {
	c.mu.Lock()
	group := c.trajGroup
	c.mu.Unlock()
	if group == "" {
		return Stage{}, errors.New("no trajectory group defined")
	}
	if !strings.Contains(axis, ".") {
		axis = group + "." + axis
	}
	return c.Stage(axis)
}

// LineScan describes a constant velocity scan of one axis
type LineScan struct {
	// Axis is the scanned positioner, bare ("X") or fully qualified
	// ("FINE.X")
	Axis string `json:"axis"`

	// Start and Stop bound the scanned range
	Start float64 `json:"start"`
	Stop  float64 `json:"stop"`

	// Step is the spatial distance between trigger pulses
	Step float64 `json:"step"`

	// PixelTime is the time between trigger pulses.  Zero means derive
	// it from ScanTime.
	PixelTime float64 `json:"pixelTime"`

	// ScanTime is the total scan duration, used only when PixelTime is
	// zero
	ScanTime float64 `json:"scanTime"`

	// Accel caps acceleration; zero means half the stage ceiling
	Accel float64 `json:"accel"`
}

// DefineLineTrajectories builds and uploads "forward" and "backward"
// trajectories for a constant velocity line scan.  Each is three PVT
// segments: accelerate, scan, decelerate.  The start and stop positions
// are pushed outside the scanned range so the axis is already at speed
// when the first pixel fires.
func (c *Controller) DefineLineTrajectories(ls LineScan) error {
	st, err := c.resolveTrajAxis(ls.Axis)
	if err != nil {
		return err
	}
	if ls.Step == 0 {
		return errors.New("line scan step must be nonzero")
	}

	// leave headroom under the stage ceilings so the corrector can
	// track the profile
	maxVelo := 0.75 * st.MaxVelocity
	maxAccel := 0.5 * st.MaxAccel
	accel := ls.Accel
	if accel == 0 {
		accel = maxAccel
	}
	accel = math.Min(accel, maxAccel)

	scandir := 1.0
	if ls.Start > ls.Stop {
		scandir = -1.0
	}
	step := scandir * math.Abs(ls.Step)

	span := math.Abs(ls.Stop - ls.Start)
	npulses := int((span + math.Abs(step)*1.1) / math.Abs(step))
	pixeltime := ls.PixelTime
	if pixeltime == 0 && ls.ScanTime != 0 {
		pixeltime = math.Abs(ls.ScanTime) / float64(npulses-1)
	}
	if pixeltime <= 0 {
		return errors.New("line scan needs a positive pixel time or scan time")
	}
	scantime := pixeltime * float64(npulses)

	distance := span + math.Abs(step)
	velocity := math.Min(distance/scantime, maxVelo)
	ramptime := math.Max(2e-5, math.Abs(velocity/accel))
	rampdist := velocity * ramptime
	offset := step/2 + scandir*rampdist

	// displacements carry the scan direction so a decreasing scan moves
	// the right way
	ramp := scandir * rampdist
	dist := scandir * distance
	velo := scandir * velocity

	text := func(ramp, dist, velo float64) string {
		lines := []string{
			lineSegment(ramptime, st.Name, c.positionersOf(), ramp, velo),
			lineSegment(scantime, st.Name, c.positionersOf(), dist, velo),
			lineSegment(ramptime, st.Name, c.positionersOf(), ramp, 0),
		}
		return strings.Join(lines, "\n") + "\n"
	}

	fore := &Trajectory{
		Name: "forward", Type: "line",
		Axes:      []string{st.Name},
		Start:     map[string]float64{st.Name: ls.Start - offset},
		Stop:      map[string]float64{st.Name: ls.Stop + offset},
		PixelTime: pixeltime,
		NPulses:   npulses + 1,
		NSegments: 3,
		Text:      text(ramp, dist, velo),
	}
	back := &Trajectory{
		Name: "backward", Type: "line",
		Axes:      []string{st.Name},
		Start:     map[string]float64{st.Name: ls.Stop + offset},
		Stop:      map[string]float64{st.Name: ls.Start - offset},
		PixelTime: pixeltime,
		NPulses:   npulses + 1,
		NSegments: 3,
		Text:      text(-ramp, -dist, -velo),
	}
	for _, t := range []*Trajectory{fore, back} {
		if err := c.UploadTrajectory(t.Name+".trj", t.Text); err != nil {
			return errors.Wrapf(err, "uploading %s trajectory", t.Name)
		}
		t.Uploaded = true
		c.mu.Lock()
		c.trajectories[t.Name] = t
		c.mu.Unlock()
	}
	return nil
}

// positionersOf returns the trajectory group's stage labels in file column
// order
func (c *Controller) positionersOf() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.trajPositioners...)
}

// lineSegment renders one PVT line with motion on a single axis and zeros
// for the rest of the group
func lineSegment(dt float64, active string, all []string, delta, velo float64) string {
	pieces := []string{fmtF(dt)}
	for _, ax := range all {
		if ax == active {
			pieces = append(pieces, fmtF(delta), fmtF(velo))
		} else {
			pieces = append(pieces, fmtF(0), fmtF(0))
		}
	}
	return strings.Join(pieces, ",")
}

func fmtF(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// DefineArrayTrajectory builds and uploads a PVT trajectory passing
// through arbitrary position arrays.  positions maps axis (bare or fully
// qualified) to the desired trigger midpoints; all arrays must be the
// same length N, and the file gains a ramp-in and ramp-out segment for
// N+1 total.  Axes of the trajectory group not present in positions hold
// still.  maxAccels optionally tightens the per-axis acceleration
// ceiling.
func (c *Controller) DefineArrayTrajectory(name string, positions map[string][]float64, dtime float64, maxAccels map[string]float64) (*Trajectory, error) {
	c.mu.Lock()
	group := c.trajGroup
	c.mu.Unlock()
	if group == "" {
		return nil, errors.New("no trajectory group defined")
	}
	all := c.positionersOf()
	dtime = math.Abs(dtime)
	if dtime == 0 {
		return nil, errors.New("segment time must be nonzero")
	}

	// canonicalize keys to full stage labels and validate lengths
	cmded := map[string][]float64{}
	npts := -1
	for key, vals := range positions {
		st, err := c.resolveTrajAxis(key)
		if err != nil {
			return nil, err
		}
		if npts == -1 {
			npts = len(vals)
		} else if npts != len(vals) {
			return nil, errors.Errorf("position array for %s has length %d, want %d",
				key, len(vals), npts)
		}
		cmded[st.Name] = vals
	}
	if npts < 2 {
		return nil, errors.New("need at least two points per axis")
	}
	npulses := npts + 1

	traj := &Trajectory{
		Name: name, Type: "array",
		Axes:      all,
		Start:     map[string]float64{},
		PixelTime: dtime,
		NPulses:   npulses + 1,
		NSegments: npulses + 1,
	}

	deltas := map[string][]float64{}
	velos := map[string][]float64{}
	for _, label := range all {
		upos, ok := cmded[label]
		if !ok {
			deltas[label] = make([]float64, npulses+1)
			velos[label] = make([]float64, npulses+1)
			continue
		}
		st, err := c.Stage(label)
		if err != nil {
			return nil, err
		}
		maxv := st.MaxVelocity
		maxa := st.MaxAccel
		if ceil, ok := lookupAxis(maxAccels, label); ok {
			maxa = math.Min(ceil, maxa)
		}

		// trigger pulses fire at the midpoints between requested
		// positions, with extrapolated lead-in and lead-out points
		n := len(upos)
		mid := make([]float64, 0, n+4)
		mid = append(mid, 3*upos[0]-2*upos[1], 2*upos[0]-upos[1])
		mid = append(mid, upos...)
		mid = append(mid, 2*upos[n-1]-upos[n-2], 3*upos[n-1]-2*upos[n-2])
		pos := make([]float64, len(mid)-1)
		for i := range pos {
			pos[i] = 0.5 * (mid[i+1] + mid[i])
		}

		// back the start up so the first real segment is entered at
		// the right velocity without exceeding half the ceilings
		p0, p1, p2 := pos[0], pos[1], pos[2]
		v0 := (p1 - p0) / dtime
		v1 := (p2 - p1) / dtime
		a0 := (v1 - v0) / dtime
		start := p1 - (p1-p0)*dtime*math.Max(v0, 0.5*maxv)/math.Max(a0, 0.5*maxa)
		traj.Start[label] = start

		dp := make([]float64, len(pos)-1)
		for i := range dp {
			dp[i] = pos[i+1] - pos[i]
		}
		vel := gradient(dp)
		for i := range vel {
			vel[i] /= dtime
		}
		vel[len(vel)-1] = 0
		acc := gradient(vel)
		for i := range acc {
			acc[i] /= dtime
		}
		if v := maxAbs(vel); v > maxv {
			return nil, errors.Errorf("max velocity %g violated for %s (%g)", maxv, label, v)
		}
		if a := maxAbs(acc); a > maxa {
			return nil, errors.Errorf("max acceleration %g violated for %s (%g)", maxa, label, a)
		}
		deltas[label] = dp
		velos[label] = vel
	}

	var sb strings.Builder
	for n := 0; n < npulses+1; n++ {
		pieces := []string{strconv.FormatFloat(dtime, 'f', 8, 64)}
		for _, label := range all {
			pieces = append(pieces,
				strconv.FormatFloat(deltas[label][n], 'f', 8, 64),
				strconv.FormatFloat(velos[label][n], 'f', 8, 64))
		}
		sb.WriteString(strings.Join(pieces, ", "))
		sb.WriteString("\n")
	}
	traj.Text = sb.String()

	if err := c.UploadTrajectory(name+".trj", traj.Text); err != nil {
		return nil, errors.Wrapf(err, "uploading trajectory %s", name)
	}
	traj.Uploaded = true
	c.mu.Lock()
	c.trajectories[name] = traj
	c.mu.Unlock()
	return traj, nil
}

// gradient is the second order finite difference with one-sided ends,
// same convention as numerical packages use
func gradient(xs []float64) []float64 {
	n := len(xs)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	out[0] = xs[1] - xs[0]
	out[n-1] = xs[n-1] - xs[n-2]
	for i := 1; i < n-1; i++ {
		out[i] = (xs[i+1] - xs[i-1]) / 2
	}
	return out
}

// lookupAxis finds a value keyed by either a full stage label or its bare
// positioner name
func lookupAxis(m map[string]float64, label string) (float64, bool) {
	if v, ok := m[label]; ok {
		return v, true
	}
	if idx := strings.Index(label, "."); idx != -1 {
		if v, ok := m[label[idx+1:]]; ok {
			return v, true
		}
	}
	return 0, false
}

func maxAbs(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

// MoveToTrajectoryStart moves every commanded axis of a trajectory to its
// ramp-in position
func (c *Controller) MoveToTrajectoryStart(name string) error {
	traj, err := c.Trajectory(name)
	if err != nil {
		return err
	}
	for _, label := range traj.Axes {
		start, ok := traj.Start[label]
		if !ok {
			continue
		}
		if err := c.MoveStage(label, start, false); err != nil {
			return errors.Wrapf(err, "moving %s to trajectory start", label)
		}
	}
	return nil
}

// ArmTrajectory prepares an uploaded trajectory: optionally move to the
// ramp-in position, configure gathering, route trigger pulses, and have
// the controller verify the file
func (c *Controller) ArmTrajectory(name string, moveToStart bool) error {
	traj, err := c.Trajectory(name)
	if err != nil {
		return err
	}
	if !traj.Uploaded {
		return errors.Errorf("trajectory %q has not been uploaded", name)
	}
	c.mu.Lock()
	group := c.trajGroup
	c.mu.Unlock()
	if group == "" {
		return errors.New("no trajectory group defined")
	}

	c.setTrajState(TrajArming)
	if moveToStart {
		if err := c.MoveToTrajectoryStart(name); err != nil {
			return err
		}
	}

	var cols []string
	for _, out := range c.gatherKinds() {
		for _, label := range traj.Axes {
			cols = append(cols, label+"."+out)
		}
	}
	file := name + ".trj"
	c.mu.Lock()
	c.gatherCols = cols
	c.trajFile = file
	c.endSegment = traj.NSegments
	c.mu.Unlock()

	if err := c.GatheringReset(); err != nil {
		return errors.Wrap(err, "gathering reset")
	}
	if err := c.gatheringConfigure(cols); err != nil {
		return errors.Wrap(err, "gathering configuration")
	}
	// pulses from segment 2 through the end; segment 1 is the ramp-in
	if _, err := c.transact(cmd("MultipleAxesPVTPulseOutputSet", group, 2, traj.NSegments, traj.PixelTime)); err != nil {
		return errors.Wrap(err, "pulse output")
	}
	if _, err := c.transact(cmd("MultipleAxesPVTVerification", group, file)); err != nil {
		return errors.Wrap(err, "verification")
	}
	c.setTrajState(TrajArmed)
	return nil
}

// RunTrajectory executes an armed trajectory, recording gathering data on
// every trigger pulse.  If the named trajectory is not armed it is armed
// first.  saveTo, when nonempty, receives the gathered data after the run;
// the sample count is returned in that case.
func (c *Controller) RunTrajectory(name, saveTo string) (int, error) {
	if c.Gen == GenD {
		// the D generation accumulates verification droppings in /tmp
		c.transact(cmd("CleanTmpFolder"))
	}
	if c.TrajectoryState() != TrajArmed {
		if err := c.ArmTrajectory(name, true); err != nil {
			return 0, err
		}
	}
	c.mu.Lock()
	group := c.trajGroup
	file := c.trajFile
	c.mu.Unlock()

	// two chained events: Always, and the group's trajectory pulse; each
	// carries four unused parameters
	_, err := c.transact(cmd("EventExtendedConfigurationTriggerSet",
		"Always", 0, 0, 0, 0,
		group+".PVT.TrajectoryPulse", 0, 0, 0, 0))
	if err != nil {
		return 0, errors.Wrap(err, "event trigger")
	}
	_, err = c.transact(cmd("EventExtendedConfigurationActionSet",
		"GatheringOneData", "", "", "", ""))
	if err != nil {
		return 0, errors.Wrap(err, "event action")
	}
	body, err := c.transact(cmd("EventExtendedStart", outInt))
	if err != nil {
		return 0, errors.Wrap(err, "event start")
	}
	ids, err := parseInts(body, 1)
	if err != nil {
		return 0, err
	}
	eventID := ids[0]

	c.setTrajState(TrajRunning)
	_, err = c.transact(cmd("MultipleAxesPVTExecution", group, file, 1))
	// tear down the event and stop gathering even when execution failed
	c.transact(cmd("EventExtendedRemove", eventID))
	c.GatheringStop()
	if err != nil {
		c.setTrajState(TrajIdle)
		return 0, errors.Wrap(err, "execution")
	}
	c.setTrajState(TrajComplete)

	if saveTo == "" {
		return 0, nil
	}
	n, err := c.SaveGathering(saveTo)
	c.setTrajState(TrajIdle)
	return n, err
}
