package xpsftp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"a\r\nb\r\nc", "a\nb\nc"},
		{"a\rb", "a\nb"},
		{"mixed\r\nline\rendings\n", "mixed\nline\nendings\n"},
		{"already clean\n", "already clean\n"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanText([]byte(tc.in)))
	}
}

func TestJoinRemote(t *testing.T) {
	assert.Equal(t, "Config/system.ini", joinRemote("", "Config", "system.ini"))
	assert.Equal(t, "/Admin/Config/system.ini", joinRemote("/Admin", "Config", "system.ini"))
	assert.Equal(t, "Public/Trajectories/scan.trj", joinRemote("Public/Trajectories", "scan.trj"))
	assert.Equal(t, "Config", joinRemote("", "Config"))
}
