package xps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSystemINI = `[GENERAL]
BootScriptFileName =
BootScriptArguments =

[GROUPS]
SingleAxisInUse = Strip
MultipleAxesInUse = FINE

[FINE]
PositionerInUse = X, Y

[FINE.X]
PlugNumber = 1
StageName = ILS150CC

[FINE.Y]
PlugNumber = 2
StageName = ILS150CC

[Strip]
PositionerInUse = Th

[Strip.Th]
PlugNumber = 3
StageName = URS75BCC
`

func TestParseSystemINI(t *testing.T) {
	sys, err := parseSystemINI(sampleSystemINI)
	require.NoError(t, err)

	require.Len(t, sys.groups, 2)
	fine := sys.groups["FINE"]
	assert.Equal(t, "MultipleAxesInUse", fine.Category)
	assert.Equal(t, []string{"FINE.X", "FINE.Y"}, fine.Positioners)
	assert.True(t, fine.PVTCapable())

	strip := sys.groups["Strip"]
	assert.Equal(t, "SingleAxisInUse", strip.Category)
	assert.Equal(t, []string{"Strip.Th"}, strip.Positioners)
	assert.False(t, strip.PVTCapable())

	require.Len(t, sys.stages, 3)
	assert.Equal(t, "ILS150CC", sys.stages["FINE.X"].Type)
	assert.Equal(t, "URS75BCC", sys.stages["Strip.Th"].Type)
}

func TestParseSystemINICaseInsensitiveKeys(t *testing.T) {
	text := `[GROUPS]
singleaxisinuse = G1

[G1]
positionerinuse = A

[G1.A]
plugnumber = 1
stagename = FOO
`
	sys, err := parseSystemINI(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"G1.A"}, sys.groups["G1"].Positioners)
	assert.Equal(t, "FOO", sys.stages["G1.A"].Type)
}

func TestParseSystemINIRejectsMissingGroups(t *testing.T) {
	_, err := parseSystemINI("[GENERAL]\nFoo = 1\n")
	assert.Error(t, err)
}
