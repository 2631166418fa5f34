package xps

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// gatherHeader starts every saved gathering file
const gatherHeader = "# XPS Gathering Data\n#--------------"

// DefaultGatherOutputs are the per-axis quantities recorded during a
// trajectory when SetGatherOutputs has not been called
var DefaultGatherOutputs = []string{"CurrentPosition", "SetpointPosition"}

// SetGatherOutputs chooses the per-axis quantities recorded during
// trajectories, e.g. "CurrentPosition", "FollowingError".  Axis prefixes
// are added at arm time.
func (c *Controller) SetGatherOutputs(outputs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gatherOutputs = outputs
}

func (c *Controller) gatherKinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.gatherOutputs) > 0 {
		return append([]string{}, c.gatherOutputs...)
	}
	return append([]string{}, DefaultGatherOutputs...)
}

// GatheringReset discards any gathered data
func (c *Controller) GatheringReset() error {
	_, err := c.transact(cmd("GatheringReset"))
	return err
}

// GatheringStop ends an acquisition
func (c *Controller) GatheringStop() error {
	_, err := c.transact(cmd("GatheringStop"))
	return err
}

// gatheringConfigure sets the recorded data columns.  Each entry is a
// fully qualified mnemonic like "FINE.X.CurrentPosition".
func (c *Controller) gatheringConfigure(columns []string) error {
	_, err := c.transact("GatheringConfigurationSet(" + strings.Join(columns, ",") + ")")
	return err
}

// GatheringCurrentNumber returns the number of samples acquired so far and
// the buffer capacity
func (c *Controller) GatheringCurrentNumber() (acquired, capacity int, err error) {
	body, err := c.transact(cmd("GatheringCurrentNumberGet", outInt+","+outInt))
	if err != nil {
		return 0, 0, err
	}
	is, err := parseInts(body, 2)
	if err != nil {
		return 0, 0, err
	}
	return is[0], is[1], nil
}

func (c *Controller) gatheringLines(start, count int) (string, error) {
	return c.transact(cmd("GatheringDataMultipleLinesGet", start, count, outChar))
}

// defaultGatherWait bounds the wait for the first gathered sample
const defaultGatherWait = 5 * time.Second

// ReadGathering stops nothing and resets nothing; it waits for samples to
// appear (five seconds by default), then drains the buffer.  Large
// buffers exceed what the controller will return in one reply, so the
// read falls back to chunks when the full fetch fails.
func (c *Controller) ReadGathering() (int, string, error) {
	c.setTrajState(TrajReading)
	defer c.setTrajState(TrajIdle)

	c.mu.Lock()
	wait := c.gatherWait
	c.mu.Unlock()
	if wait == 0 {
		wait = defaultGatherWait
	}

	// poll for data at a bounded rate; the controller keeps serving
	// motion while we hammer it, but there is no reason to
	lim := rate.NewLimiter(rate.Every(50*time.Millisecond), 1)
	deadline := time.Now().Add(wait)
	npulses := 0
	for {
		n, _, err := c.GatheringCurrentNumber()
		if err == nil && n >= 1 {
			npulses = n
			break
		}
		if time.Now().After(deadline) {
			return 0, "", errors.Errorf("no gathering data after %s", wait)
		}
		lim.Wait(context.Background())
	}

	buff, err := c.gatheringLines(0, npulses)
	if err != nil {
		buff, err = c.readGatheringChunked(npulses)
		if err != nil {
			return 0, "", err
		}
	}
	clean := strings.NewReplacer(";", " ", "\r", " ", "\t", " ").Replace(buff)
	return npulses, clean, nil
}

// readGatheringChunked reads the buffer in progressively smaller chunks
// until the controller accepts the size
func (c *Controller) readGatheringChunked(npulses int) (string, error) {
	nchunks := 3
	nx := (npulses - 2) / nchunks
	var first string
	for {
		s, err := c.gatheringLines(0, nx)
		if err == nil {
			first = s
			break
		}
		nchunks += 2
		nx = (npulses - 2) / nchunks
		if nchunks > 10 || nx < 1 {
			return "", errors.Wrap(err, "gathering buffer unreadable even in small chunks")
		}
	}
	parts := []string{first}
	for i := 1; i < nchunks; i++ {
		s, err := c.gatheringLines(i*nx, nx)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	s, err := c.gatheringLines(nchunks*nx, npulses-nchunks*nx)
	if err != nil {
		return "", err
	}
	parts = append(parts, s)
	return strings.Join(parts, ""), nil
}

// SaveGathering reads the gathering buffer and writes it to a local file
// with a comment header naming the recorded columns.  It returns the
// number of samples written.
func (c *Controller) SaveGathering(path string) (int, error) {
	npulses, buff, err := c.ReadGathering()
	if err != nil {
		return 0, err
	}
	c.setTrajState(TrajWriting)
	defer c.setTrajState(TrajIdle)
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if _, err := f.WriteString(c.gatherTitles()); err != nil {
		return 0, err
	}
	if _, err := f.WriteString(buff); err != nil {
		return 0, err
	}
	return npulses, nil
}

// gatherTitles renders the saved-file header for the columns configured at
// arm time
func (c *Controller) gatherTitles() string {
	c.mu.Lock()
	cols := append([]string{}, c.gatherCols...)
	c.mu.Unlock()
	return gatherHeader + "\n#" + strings.Join(cols, " ") + "\n"
}
