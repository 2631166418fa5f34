package xps

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// StatusReport assembles a printable multi-line summary of the
// controller: identity, uptime, and the state of every group and stage
func (c *Controller) StatusReport() (string, error) {
	uptime, err := c.ElapsedTime()
	if err != nil {
		return "", err
	}
	boot := time.Now().Add(-time.Duration(uptime * float64(time.Second)))
	fqdn := c.Host
	if names, err := net.LookupAddr(c.Host); err == nil && len(names) > 0 {
		fqdn = strings.TrimSuffix(names[0], ".")
	}

	out := []string{
		fmt.Sprintf("# XPS host:         %s (%s)", c.Host, fqdn),
		fmt.Sprintf("# Firmware:         %s", c.Firmware),
		fmt.Sprintf("# Current Time:     %s", time.Now().Format(time.UnixDate)),
		fmt.Sprintf("# Last Reboot:      %s", boot.Format(time.UnixDate)),
		fmt.Sprintf("# Trajectory Group: %s", c.TrajectoryGroup()),
		"# Groups and Stages",
	}

	hstat, err := c.HardwareStatuses()
	if err != nil {
		return "", err
	}
	perrs, err := c.PositionerErrors()
	if err != nil {
		return "", err
	}
	stages := c.Stages()

	for _, name := range c.GroupNames() {
		g, err := c.Group(name)
		if err != nil {
			return "", err
		}
		status, err := c.GroupStatus(name)
		if err != nil {
			return "", err
		}
		out = append(out, fmt.Sprintf("%s (%s), Status: %s", name, g.Category, status))
		for _, label := range g.Positioners {
			out = append(out,
				fmt.Sprintf("# %s (%s)", label, stages[label].Type),
				fmt.Sprintf("      Hardware Status: %s", hstat[label]),
				fmt.Sprintf("      Positioner Errors: %s", perrs[label]))
		}
	}
	return strings.Join(out, "\n"), nil
}
