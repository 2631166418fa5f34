package xps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadGatheringCleansBuffer(t *testing.T) {
	c, srv := connectedController(t)
	srv.script("GatheringCurrentNumberGet(int *,int *)", "0,3,1000000")
	srv.script("GatheringDataMultipleLinesGet(0,3,char *)",
		"0,1.0;2.0\r\n3.0\t4.0\n5.0;6.0\n")

	n, buff, err := c.ReadGathering()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NotContains(t, buff, ";")
	assert.NotContains(t, buff, "\r")
	assert.NotContains(t, buff, "\t")
	assert.Equal(t, TrajIdle, c.TrajectoryState())
}

func TestReadGatheringTimesOutWithoutData(t *testing.T) {
	c, srv := connectedController(t)
	srv.script("GatheringCurrentNumberGet(int *,int *)", "0,0,1000000")
	c.mu.Lock()
	c.gatherWait = 100 * time.Millisecond
	c.mu.Unlock()

	_, _, err := c.ReadGathering()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no gathering data")
	assert.Equal(t, TrajIdle, c.TrajectoryState())
}

func TestSaveGatheringWritesHeaderAndData(t *testing.T) {
	c, srv := connectedController(t)
	srv.script("GatheringCurrentNumberGet(int *,int *)", "0,2,1000000")
	srv.script("GatheringDataMultipleLinesGet(0,2,char *)", "0,1.0 2.0\n3.0 4.0\n")
	c.mu.Lock()
	c.gatherCols = []string{"FINE.X.CurrentPosition", "FINE.X.SetpointPosition"}
	c.mu.Unlock()

	path := filepath.Join(t.TempDir(), "gather.dat")
	n, err := c.SaveGathering(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(b)
	assert.True(t, strings.HasPrefix(text, "# XPS Gathering Data"))
	assert.Contains(t, text, "#FINE.X.CurrentPosition FINE.X.SetpointPosition")
	assert.Contains(t, text, "1.0 2.0")
}

func TestGatherOutputsOverride(t *testing.T) {
	c, srv := connectedController(t)
	c.SetGatherOutputs("FollowingError")
	require.NoError(t, c.UploadTrajectory("scan.trj", "x"))
	c.mu.Lock()
	c.trajectories["scan"] = &Trajectory{
		Name: "scan", Axes: []string{"FINE.X", "FINE.Y"},
		PixelTime: 0.01, NSegments: 3, Uploaded: true,
	}
	c.mu.Unlock()
	require.NoError(t, c.ArmTrajectory("scan", false))
	assert.Contains(t, srv.commands(),
		"GatheringConfigurationSet(FINE.X.FollowingError,FINE.Y.FollowingError)")
}
