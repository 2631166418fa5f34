package xps

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeXPS is a TCP server that speaks the controller's dialect: commands
// arrive with no terminator (a closing paren ends them), replies are
// "code,body" plus the EndOfAPI marker.  Unscripted commands succeed with
// an empty body.
type fakeXPS struct {
	ln net.Listener

	mu      sync.Mutex
	replies map[string]string
	log     []string
}

func newFakeXPS(t *testing.T) *fakeXPS {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeXPS{ln: ln, replies: map[string]string{}}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeXPS) addr() string { return f.ln.Addr().String() }

func (f *fakeXPS) script(command, reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[command] = reply
}

func (f *fakeXPS) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.log...)
}

func (f *fakeXPS) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.serveConn(conn)
	}
}

func (f *fakeXPS) serveConn(conn net.Conn) {
	defer conn.Close()
	rdr := bufio.NewReader(conn)
	var sb strings.Builder
	for {
		b, err := rdr.ReadByte()
		if err != nil {
			return
		}
		sb.WriteByte(b)
		if b != ')' {
			continue
		}
		command := sb.String()
		sb.Reset()
		f.mu.Lock()
		f.log = append(f.log, command)
		reply, ok := f.replies[command]
		f.mu.Unlock()
		if !ok {
			reply = "0,"
		}
		if _, err := conn.Write([]byte(reply + endOfAPI)); err != nil {
			return
		}
	}
}

// memFiler is an in-memory Filer for tests
type memFiler struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFiler() *memFiler {
	return &memFiler{files: map[string][]byte{}}
}

func (m *memFiler) key(dir, file string) string { return dir + "/" + file }

func (m *memFiler) Download(dir, file string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[m.key(dir, file)]
	if !ok {
		return nil, errors.Errorf("no such file %s/%s", dir, file)
	}
	return b, nil
}

func (m *memFiler) Upload(dir, file string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[m.key(dir, file)] = data
	return nil
}

func (m *memFiler) List(dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.files {
		if strings.HasPrefix(k, dir+"/") {
			out = append(out, strings.TrimPrefix(k, dir+"/"))
		}
	}
	return out, nil
}

func (m *memFiler) Delete(dir, file string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, m.key(dir, file))
	return nil
}

func (m *memFiler) Close() error { return nil }

// connectedController stands up a fake server with the sample
// configuration and a controller connected to it
func connectedController(t *testing.T) (*Controller, *fakeXPS) {
	t.Helper()
	srv := newFakeXPS(t)
	srv.script("FirmwareVersionGet(char *)", "0,XPS-C8 controller, Firmware V2.6.0")
	for _, stage := range []string{"FINE.X", "FINE.Y", "Strip.Th"} {
		srv.script("PositionerMaximumVelocityAndAccelerationGet("+stage+",double *,double *)", "0,150,600")
		srv.script("PositionerUserTravelLimitsGet("+stage+",double *,double *)", "0,-75,75")
	}
	filer := newMemFiler()
	require.NoError(t, filer.Upload("Config", "system.ini", []byte(sampleSystemINI)))

	c := New(srv.addr())
	c.Filer = filer
	require.NoError(t, c.Connect())
	return c, srv
}

func TestConnectDetectsGenerationAndCachesConfig(t *testing.T) {
	c, srv := connectedController(t)

	assert.Equal(t, GenC, c.Gen)
	assert.Equal(t, "XPS-C8 controller, Firmware V2.6.0", c.Firmware)
	assert.Contains(t, srv.commands(), "Login(Administrator,Administrator)")

	groups := c.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"FINE.X", "FINE.Y"}, groups["FINE"].Positioners)

	st, err := c.Stage("FINE.X")
	require.NoError(t, err)
	assert.Equal(t, "ILS150CC", st.Type)
	assert.Equal(t, 150.0, st.MaxVelocity)
	assert.Equal(t, 200.0, st.MaxAccel) // a third of the queried ceiling
	assert.Equal(t, -75.0, st.LowLimit)
	assert.Equal(t, 75.0, st.HighLimit)

	// FINE is the only Multiple* group, so it was selected for
	// trajectories automatically
	assert.Equal(t, "FINE", c.TrajectoryGroup())
}

func TestMoveAndPositionCommands(t *testing.T) {
	c, srv := connectedController(t)
	srv.script("GroupPositionCurrentGet(FINE.X,double *)", "0,1.234567")
	srv.script("GroupPositionCurrentGet(FINE,double *,double *)", "0,1.5,-2.5")

	require.NoError(t, c.MoveStage("FINE.X", 1.5, false))
	assert.Contains(t, srv.commands(), "GroupMoveAbsolute(FINE.X,1.5)")

	require.NoError(t, c.MoveStage("FINE.X", -0.25, true))
	assert.Contains(t, srv.commands(), "GroupMoveRelative(FINE.X,-0.25)")

	pos, err := c.StagePosition("FINE.X")
	require.NoError(t, err)
	assert.Equal(t, 1.234567, pos)

	ps, err := c.GroupPosition("FINE")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2.5}, ps)

	require.NoError(t, c.MoveGroupAbsolute("FINE", []float64{1, 2}))
	assert.Contains(t, srv.commands(), "GroupMoveAbsolute(FINE,1,2)")

	err = c.MoveGroupAbsolute("FINE", []float64{1})
	assert.Error(t, err, "arity mismatch must be rejected before hitting the wire")
}

func TestMoveGroupPartialOverlaysCurrentPositions(t *testing.T) {
	c, srv := connectedController(t)
	srv.script("GroupPositionCurrentGet(FINE,double *,double *)", "0,1.5,-2.5")

	require.NoError(t, c.MoveGroupPartial("FINE", map[string]float64{"Y": 3}))
	assert.Contains(t, srv.commands(), "GroupMoveAbsolute(FINE,1.5,3)")

	err := c.MoveGroupPartial("FINE", map[string]float64{"Q": 1})
	assert.Error(t, err)
}

func TestGroupStatusAndLifecycle(t *testing.T) {
	c, srv := connectedController(t)
	srv.script("GroupStatusGet(FINE,int *)", "0,11")
	srv.script("GroupStatusStringGet(11,char *)", "0,Ready state from homing")

	s, err := c.GroupStatus("FINE")
	require.NoError(t, err)
	assert.Equal(t, "Ready state from homing", s)

	require.NoError(t, c.InitializeGroup("FINE"))
	require.NoError(t, c.HomeGroup("FINE"))
	require.NoError(t, c.KillGroup("FINE"))
	cmds := srv.commands()
	assert.Contains(t, cmds, "GroupInitialize(FINE)")
	assert.Contains(t, cmds, "GroupHomeSearch(FINE)")
	assert.Contains(t, cmds, "GroupKill(FINE)")
}

func TestVendorErrorsSurface(t *testing.T) {
	c, srv := connectedController(t)
	srv.script("GroupKill(NOPE)", "-19,")

	err := c.KillGroup("NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GROUP NAME")
}

func TestPositionerErrorMapsEmptyToOK(t *testing.T) {
	c, srv := connectedController(t)
	srv.script("PositionerErrorGet(FINE.X,int *)", "0,0")
	srv.script("PositionerErrorStringGet(0,char *)", "0,")

	s, err := c.PositionerError("FINE.X")
	require.NoError(t, err)
	assert.Equal(t, "OK", s)
}

func TestSGammaRoundTrip(t *testing.T) {
	c, srv := connectedController(t)
	srv.script("PositionerSGammaParametersGet(FINE.X,double *,double *,double *,double *)",
		"0,20,80,0.005,0.05")

	sg, err := c.GetSGamma("FINE.X")
	require.NoError(t, err)
	assert.Equal(t, SGamma{Velocity: 20, Acceleration: 80, MinJerkTime: 0.005, MaxJerkTime: 0.05}, sg)

	require.NoError(t, c.SetVelocity("FINE.X", 10))
	assert.Contains(t, srv.commands(), "PositionerSGammaParametersSet(FINE.X,10,80,0.005,0.05)")
}

func TestElapsedTime(t *testing.T) {
	c, srv := connectedController(t)
	srv.script("ElapsedTimeGet(double *)", "0,3600.5")

	et, err := c.ElapsedTime()
	require.NoError(t, err)
	assert.Equal(t, 3600.5, et)
}

func TestAxisAdapterRoutesToGroups(t *testing.T) {
	c, srv := connectedController(t)
	srv.script("GroupStatusGet(FINE,int *)", "0,11")

	require.NoError(t, c.Home("FINE.X"))
	assert.Contains(t, srv.commands(), "GroupHomeSearch(FINE)")

	homed, err := c.Homed("FINE.X")
	require.NoError(t, err)
	assert.True(t, homed)

	enabled, err := c.GetEnabled("FINE.X")
	require.NoError(t, err)
	assert.True(t, enabled)

	srv.script("GroupStatusGet(FINE,int *)", "0,20")
	enabled, err = c.GetEnabled("FINE.X")
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, c.Stop("FINE.Y"))
	assert.Contains(t, srv.commands(), "GroupMoveAbort(FINE)")
}
