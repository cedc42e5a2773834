package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoDefault(t *testing.T) {
	info := Info()
	assert.Contains(t, info, "toolbridge")
	assert.Contains(t, info, Version)
	assert.Contains(t, info, runtime.GOOS)
	assert.Contains(t, info, runtime.GOARCH)
}

func TestInfoWithCustomValues(t *testing.T) {
	origVersion := Version
	origCommit := Commit
	t.Cleanup(func() {
		Version = origVersion
		Commit = origCommit
	})

	Version = "0.3.0"
	Commit = "abc1234567890"

	info := Info()
	assert.Contains(t, info, "0.3.0")
	assert.Contains(t, info, "abc1234")
	assert.NotContains(t, info, "abc1234567890")
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abcdefg", short("abcdefghij"))
	assert.Equal(t, "abc", short("abc"))
	assert.Equal(t, "", short(""))
}
