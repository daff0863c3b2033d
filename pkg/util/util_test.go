package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/skillrt/pkg/util"
)

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"512m": 512 * 1 << 20,
		"2g":   2 * 1 << 30,
		"1024": 1024,
		"4k":   4 * 1 << 10,
	}
	for in, want := range cases {
		got, err := util.ParseSize(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := util.ParseSize("")
	assert.Error(t, err)
	_, err = util.ParseSize("abc")
	assert.Error(t, err)
}

func TestHostMatchesPattern(t *testing.T) {
	assert.True(t, util.HostMatchesPattern("api.example.com", "*.example.com"))
	assert.True(t, util.HostMatchesPattern("example.com", "*.example.com"))
	assert.False(t, util.HostMatchesPattern("evilexample.com", "*.example.com"))
	assert.True(t, util.HostMatchesPattern("api.example.com", "api.example.com"))
	assert.False(t, util.HostMatchesPattern("other.com", "api.example.com"))
}

func TestHostMatchesAny(t *testing.T) {
	assert.True(t, util.HostMatchesAny("a.github.com", []string{"*.google.com", "*.github.com"}))
	assert.False(t, util.HostMatchesAny("a.evil.com", []string{"*.google.com", "*.github.com"}))
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t, 64, len(util.SHA256Hex([]byte("hello"))))
	assert.Equal(t, util.SHA256Hex([]byte("hello")), util.SHA256Hex([]byte("hello")))
}
