package xps

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Generation is a hardware family of XPS controller.  The families differ
// in how files are moved on and off the controller.
type Generation int

const (
	// GenUnknown is an unrecognized firmware string, treated like Q
	GenUnknown Generation = iota

	// GenC is the XPS-C family, FTP rooted at /Admin
	GenC

	// GenQ is the XPS-Q family, FTP rooted at /
	GenQ

	// GenD is the XPS-D / HXP-D / XPS-RL family, SFTP rooted at /
	GenD
)

func (g Generation) String() string {
	switch g {
	case GenC:
		return "C"
	case GenQ:
		return "Q"
	case GenD:
		return "D"
	}
	return "unknown"
}

// FTPHome returns the remote directory that holds Config/ and Public/
func (g Generation) FTPHome() string {
	if g == GenC {
		return "/Admin"
	}
	return ""
}

// generationFromFirmware sniffs the controller family from the reply to
// FirmwareVersionGet
func generationFromFirmware(fw string) Generation {
	up := strings.ToUpper(fw)
	switch {
	case strings.Contains(up, "XPS-D"),
		strings.Contains(up, "HXP-D"),
		strings.Contains(up, "XPS-RL"):
		return GenD
	case strings.Contains(up, "XPS-C"):
		return GenC
	case strings.Contains(up, "XPS-Q"), strings.Contains(up, "HXP"):
		return GenQ
	}
	return GenUnknown
}

// Group is a motion group from system.ini
type Group struct {
	// Name is the group name, e.g. "FINE"
	Name string

	// Category is the vendor category, e.g. "SingleAxisInUse".  Categories
	// beginning with "Multiple" can run PVT trajectories.
	Category string

	// Positioners are the full stage labels, e.g. "FINE.X"
	Positioners []string
}

// PVTCapable returns true if the group can run PVT trajectories
func (g Group) PVTCapable() bool {
	return strings.HasPrefix(strings.ToLower(g.Category), "multiple")
}

// Stage is a positioner from system.ini plus the limits queried from the
// controller at connect time
type Stage struct {
	// Name is the full label, "group.positioner"
	Name string

	// Type is the hardware model from StageName, e.g. "ILS150CC"
	Type string

	// MaxVelocity is the configured maximum velocity
	MaxVelocity float64

	// MaxAccel is one third of the configured maximum acceleration,
	// leaving headroom for the corrector
	MaxAccel float64

	// LowLimit and HighLimit are the user travel limits
	LowLimit  float64
	HighLimit float64
}

// sysINI is the portion of system.ini this package cares about
type sysINI struct {
	groups map[string]Group
	stages map[string]Stage
}

// parseSystemINI extracts groups and stages from system.ini text.  Key
// lookups are case-insensitive because the file is hand-edited in the
// field; section names keep their case since they are group and stage
// labels.
func parseSystemINI(text string) (sysINI, error) {
	out := sysINI{groups: map[string]Group{}, stages: map[string]Stage{}}
	f, err := ini.Load([]byte(text))
	if err != nil {
		return out, errors.Wrap(err, "system.ini")
	}
	groupSec := lookupSection(f, "GROUPS")
	if groupSec == nil {
		return out, errors.New("system.ini has no [GROUPS] section")
	}
	for _, key := range groupSec.Keys() {
		category := key.Name()
		for _, name := range strings.Split(key.Value(), ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			g := Group{Name: name, Category: category}
			if sec := lookupSection(f, name); sec != nil {
				if k := lookupKey(sec, "PositionerInUse"); k != nil {
					for _, pos := range strings.Split(k.Value(), ",") {
						pos = strings.TrimSpace(pos)
						if pos != "" {
							g.Positioners = append(g.Positioners, name+"."+pos)
						}
					}
				}
			}
			out.groups[name] = g
		}
	}
	for _, sec := range f.Sections() {
		if lookupKey(sec, "PlugNumber") == nil {
			continue
		}
		s := Stage{Name: sec.Name()}
		if k := lookupKey(sec, "StageName"); k != nil {
			s.Type = k.Value()
		}
		out.stages[sec.Name()] = s
	}
	return out, nil
}

func lookupSection(f *ini.File, name string) *ini.Section {
	for _, sec := range f.Sections() {
		if strings.EqualFold(sec.Name(), name) {
			return sec
		}
	}
	return nil
}

func lookupKey(sec *ini.Section, name string) *ini.Key {
	for _, k := range sec.Keys() {
		if strings.EqualFold(k.Name(), name) {
			return k
		}
	}
	return nil
}

// Groups returns the cached motion groups, keyed by group name.  The cache
// is populated by Connect.
func (c *Controller) Groups() map[string]Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Group, len(c.groups))
	for k, v := range c.groups {
		out[k] = v
	}
	return out
}

// Stages returns the cached stages, keyed by "group.positioner"
func (c *Controller) Stages() map[string]Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Stage, len(c.stages))
	for k, v := range c.stages {
		out[k] = v
	}
	return out
}

// GroupNames returns the group names in sorted order
func (c *Controller) GroupNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.groups))
	for k := range c.groups {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Stage looks up a stage by its full "group.positioner" label
func (c *Controller) Stage(label string) (Stage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stages[label]
	if !ok {
		return Stage{}, errors.Errorf("stage %q not present in system.ini", label)
	}
	return s, nil
}

// Group looks up a group by name
func (c *Controller) Group(name string) (Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[name]
	if !ok {
		return Group{}, errors.Errorf("group %q not present in system.ini", name)
	}
	return g, nil
}

// ingestSystemINI replaces the cached configuration with the contents of
// sys and fills in stage limits from the controller
func (c *Controller) ingestSystemINI(sys sysINI) error {
	for name, s := range sys.stages {
		vel, acc, err := c.maxVelocityAndAcceleration(name)
		if err != nil {
			return errors.Wrapf(err, "querying limits of %s", name)
		}
		s.MaxVelocity = vel
		// keep a third in reserve so trajectories never saturate the
		// corrector
		s.MaxAccel = acc / 3
		lo, hi, err := c.userTravelLimits(name)
		if err != nil {
			return errors.Wrapf(err, "querying travel limits of %s", name)
		}
		s.LowLimit = lo
		s.HighLimit = hi
		sys.stages[name] = s
	}
	c.mu.Lock()
	c.groups = sys.groups
	c.stages = sys.stages
	c.mu.Unlock()

	// if exactly one group can run trajectories, select it now so the
	// caller does not have to
	var pvt []string
	for name, g := range sys.groups {
		if g.PVTCapable() {
			pvt = append(pvt, name)
		}
	}
	if len(pvt) == 1 {
		return c.SetTrajectoryGroup(pvt[0])
	}
	return nil
}

func (c *Controller) maxVelocityAndAcceleration(stage string) (float64, float64, error) {
	body, err := c.transact(cmd("PositionerMaximumVelocityAndAccelerationGet", stage, outputs(outDouble, 2)))
	if err != nil {
		return 0, 0, err
	}
	fs, err := parseFloats(body, 2)
	if err != nil {
		return 0, 0, err
	}
	return fs[0], fs[1], nil
}

func (c *Controller) userTravelLimits(stage string) (float64, float64, error) {
	body, err := c.transact(cmd("PositionerUserTravelLimitsGet", stage, outputs(outDouble, 2)))
	if err != nil {
		return 0, 0, err
	}
	fs, err := parseFloats(body, 2)
	if err != nil {
		return 0, 0, err
	}
	return fs[0], fs[1], nil
}
