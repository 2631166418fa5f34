package xps

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmdFormatsArguments(t *testing.T) {
	assert.Equal(t, "GroupMoveAbsolute(FINE.X,1.5)", cmd("GroupMoveAbsolute", "FINE.X", 1.5))
	assert.Equal(t, "GroupStatusGet(FINE,int *)", cmd("GroupStatusGet", "FINE", outInt))
	assert.Equal(t, "Reboot()", cmd("Reboot"))
	assert.Equal(t, "Foo(1,0)", cmd("Foo", true, false))
}

func TestOutputsRepeatsPlaceholder(t *testing.T) {
	assert.Equal(t, "double *,double *,double *", outputs(outDouble, 3))
	assert.Equal(t, "int *", outputs(outInt, 1))
}

func TestReadReplyStopsAtTerminator(t *testing.T) {
	r := strings.NewReader("0,XPS-C8 controller,EndOfAPI")
	raw, err := readReply(r)
	require.NoError(t, err)
	assert.Equal(t, "0,XPS-C8 controller", raw)
}

func TestReadReplyErrorsOnTruncation(t *testing.T) {
	r := strings.NewReader("0,half a reply")
	_, err := readReply(r)
	assert.Error(t, err)
}

func TestSplitReply(t *testing.T) {
	code, body, err := splitReply("0,1.25,2.5")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "1.25,2.5", body)

	code, body, err = splitReply("-22,")
	require.NoError(t, err)
	assert.Equal(t, -22, code)
	assert.Equal(t, "", body)

	_, _, err = splitReply("garbage")
	assert.Error(t, err)
}

func TestParseFloatsAndInts(t *testing.T) {
	fs, err := parseFloats("1.5, -2.5,3", 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2.5, 3}, fs)

	_, err = parseFloats("1.5", 2)
	assert.Error(t, err)

	is, err := parseInts("4,5", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, is)
}

func TestErrStrings(t *testing.T) {
	assert.Contains(t, Err(-2).Error(), "TCP TIMEOUT")
	assert.Contains(t, Err(-109).Error(), "HOMED")
	assert.Contains(t, Err(-999).Error(), "UNKNOWN ERROR CODE")
	assert.NoError(t, AsError(0))
	assert.Error(t, AsError(-22))
}

func TestGenerationFromFirmware(t *testing.T) {
	cases := []struct {
		fw   string
		want Generation
	}{
		{"XPS-C8 controller, Firmware V2.6.0", GenC},
		{"XPS-D controller, Firmware V1.2.3", GenD},
		{"XPS-RL controller", GenD},
		{"HXP-D hexapod", GenD},
		{"XPS-Q8 controller", GenQ},
		{"something else entirely", GenUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, generationFromFirmware(tc.fw), tc.fw)
	}
	assert.Equal(t, "/Admin", GenC.FTPHome())
	assert.Equal(t, "", GenD.FTPHome())
}
