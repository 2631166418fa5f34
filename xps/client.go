package xps

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"

	"github.com/beamline-tools/newportxps/comm"
	"github.com/beamline-tools/newportxps/xpsftp"
)

const (
	// DefaultPort is the TCP port the XPS command interpreter listens on
	DefaultPort = "5001"

	// DefaultUsername and DefaultPassword are the factory credentials
	DefaultUsername = "Administrator"
	DefaultPassword = "Administrator"

	// commTimeout bounds each request/response exchange.  Homing and
	// initialization of heavy stages can take a while.
	commTimeout = 30 * time.Second
)

// Controller talks to a Newport XPS motion controller.  It maintains a
// single pooled TCP connection, so method calls serialize naturally; the
// controller itself rejects concurrent commands on one socket with
// BUSY SOCKET anyway.
type Controller struct {
	pool    *comm.Pool
	timeout time.Duration

	// Host is the network name of the controller, without port
	Host string

	// Username and Password authenticate both the command socket and the
	// file transfer connection.  Set them before Connect if the factory
	// defaults have been changed.
	Username string
	Password string

	// Filer moves files on and off the controller.  Left nil, Connect
	// builds one suited to the detected hardware generation.
	Filer xpsftp.Filer

	// Firmware is the raw FirmwareVersionGet reply, populated by Connect
	Firmware string

	// Version is the human-meaningful version string.  On generation D
	// hardware FirmwareVersionGet only reveals the family, so Connect
	// fills this from InstallerVersionGet instead.
	Version string

	// Gen is the detected hardware generation
	Gen Generation

	mu     sync.Mutex
	groups map[string]Group
	stages map[string]Stage

	trajGroup       string
	trajPositioners []string
	trajectories    map[string]*Trajectory
	trajState       TrajectoryState
	trajFile        string
	endSegment      int
	gatherOutputs   []string
	gatherCols      []string
	gatherWait      time.Duration
}

// New returns a Controller ready to Connect.  addr may be bare ("xps.lab")
// or carry an explicit port ("xps.lab:5001").
func New(addr string) *Controller {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	} else {
		addr = net.JoinHostPort(addr, DefaultPort)
	}
	maker := comm.BackingOffTCPConnMaker(addr, commTimeout)
	pool := comm.NewPool(1, time.Hour, maker)
	return &Controller{
		pool:         pool,
		timeout:      commTimeout,
		Host:         host,
		Username:     DefaultUsername,
		Password:     DefaultPassword,
		groups:       map[string]Group{},
		stages:       map[string]Stage{},
		trajectories: map[string]*Trajectory{},
		trajState:    TrajIdle,
	}
}

// transact sends one command and returns the reply body with the error
// code and terminator stripped.  Vendor errors come back as Err.
func (c *Controller) transact(msg string) (string, error) {
	conn, err := c.pool.Get()
	if err != nil {
		return "", err
	}
	wrap, err := comm.NewTimeout(conn, c.timeout)
	if err != nil {
		c.pool.ReturnWithError(conn, err)
		return "", err
	}
	_, err = wrap.Write([]byte(msg))
	if err != nil {
		c.pool.ReturnWithError(conn, err)
		return "", errors.Wrap(err, msg)
	}
	raw, err := readReply(wrap)
	c.pool.ReturnWithError(conn, err)
	if err != nil {
		return "", errors.Wrap(err, msg)
	}
	code, body, err := splitReply(raw)
	if err != nil {
		return "", errors.Wrap(err, msg)
	}
	if verr := AsError(code); verr != nil {
		return body, errors.Wrap(verr, msg)
	}
	return body, nil
}

// Raw sends a preformatted command and returns the reply body.  It exists
// for commands this package does not wrap.
func (c *Controller) Raw(s string) (string, error) {
	return c.transact(s)
}

// Connect authenticates, identifies the hardware generation, and caches
// the group and stage layout from system.ini.  It must be called before
// any motion method.
func (c *Controller) Connect() error {
	if _, err := c.transact(cmd("Login", c.Username, c.Password)); err != nil {
		return errors.Wrap(err, "login")
	}
	fw, err := c.transact(cmd("FirmwareVersionGet", outChar))
	if err != nil {
		return errors.Wrap(err, "firmware version")
	}
	c.Firmware = strings.TrimSpace(fw)
	c.Version = c.Firmware
	c.Gen = generationFromFirmware(c.Firmware)
	if c.Gen == GenD {
		ver, err := c.transact(cmd("InstallerVersionGet", outChar))
		if err != nil {
			return errors.Wrap(err, "installer version")
		}
		c.Version = strings.TrimSpace(ver)
	}
	if c.Filer == nil {
		if c.Gen == GenD {
			c.Filer = xpsftp.NewSFTP(c.Host, c.Username, c.Password)
		} else {
			c.Filer = xpsftp.NewFTP(c.Host, c.Username, c.Password, c.Gen.FTPHome())
		}
	}
	return c.ReadSystemINI()
}

// ReadSystemINI refreshes the cached groups and stages from the
// controller's system.ini
func (c *Controller) ReadSystemINI() error {
	text, err := c.DownloadSystemINI()
	if err != nil {
		return err
	}
	sys, err := parseSystemINI(text)
	if err != nil {
		return err
	}
	return c.ingestSystemINI(sys)
}

// ElapsedTime returns seconds since the controller booted
func (c *Controller) ElapsedTime() (float64, error) {
	body, err := c.transact(cmd("ElapsedTimeGet", outDouble))
	if err != nil {
		return 0, err
	}
	fs, err := parseFloats(body, 1)
	if err != nil {
		return 0, err
	}
	return fs[0], nil
}

// HardwareDateTime returns the controller's clock as a string
func (c *Controller) HardwareDateTime() (string, error) {
	body, err := c.transact(cmd("HardwareDateAndTimeGet", outChar))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

// CloseAllOtherSockets boots every other client off the controller.  The
// XPS allows a small fixed number of sockets and leaked ones are a common
// cause of BUSY SOCKET errors.
func (c *Controller) CloseAllOtherSockets() error {
	_, err := c.transact(cmd("CloseAllOtherSockets"))
	return err
}

// Reboot restarts the controller.  If wait is nonzero, Reboot polls until
// the controller answers again or wait elapses, then re-runs the Connect
// sequence.  The reboot takes on the order of 30 seconds.
func (c *Controller) Reboot(wait time.Duration) error {
	// the socket dies mid-command, so a transport error here is expected
	c.transact(cmd("Reboot"))
	if wait == 0 {
		return nil
	}
	time.Sleep(5 * time.Second)
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = wait
	err := backoff.Retry(func() error {
		_, err := c.ElapsedTime()
		return err
	}, bo)
	if err != nil {
		return errors.Wrap(err, "controller did not come back after reboot")
	}
	return c.Connect()
}

// RunTCLScript starts a TCL script from Public/Scripts under the given
// task name
func (c *Controller) RunTCLScript(script, task, args string) error {
	_, err := c.transact(cmd("TCLScriptExecute", script, task, args))
	return err
}

// KillTCLScript stops a running TCL task.  Task "all" stops everything.
func (c *Controller) KillTCLScript(task string) error {
	_, err := c.transact(cmd("TCLScriptKill", task))
	return err
}

// Close releases the TCP connection and the file transfer session
func (c *Controller) Close() error {
	conn, err := c.pool.Get()
	if err == nil {
		c.pool.Destroy(conn)
	}
	if c.Filer != nil {
		return c.Filer.Close()
	}
	return nil
}
