package xps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline-tools/newportxps/xpsftp"
)

func TestUploadsNormalizeLineEndings(t *testing.T) {
	c, _ := connectedController(t)

	require.NoError(t, c.UploadSystemINI("[GROUPS]\r\nSingleAxisInUse = A\r"))
	b, err := c.Filer.Download(xpsftp.DirConfig, "system.ini")
	require.NoError(t, err)
	assert.Equal(t, "[GROUPS]\nSingleAxisInUse = A\n", string(b))

	require.NoError(t, c.UploadStagesINI("[ILS150CC]\r\nStage = x\r\n"))
	b, err = c.Filer.Download(xpsftp.DirConfig, "stages.ini")
	require.NoError(t, err)
	assert.NotContains(t, string(b), "\r")

	require.NoError(t, c.UploadTrajectory("scan.trj", "0.1, 1, 10\r\n"))
	b, err = c.Filer.Download(xpsftp.DirTrajectories, "scan.trj")
	require.NoError(t, err)
	assert.Equal(t, "0.1, 1, 10\n", string(b))

	require.NoError(t, c.UploadScript("s.tcl", "puts hi\r\n"))
	b, err = c.Filer.Download(xpsftp.DirScripts, "s.tcl")
	require.NoError(t, err)
	assert.Equal(t, "puts hi\n", string(b))
}
