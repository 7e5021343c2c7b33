package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.BuildMethod)
	assert.Contains(t, info.Platform, "/")
	assert.Regexp(t, `^go`, info.GoVersion)
}

func TestGetVersionString(t *testing.T) {
	s := GetVersionString()

	assert.Contains(t, s, "mailtui")
	assert.Contains(t, s, Version)
}

func TestGetVersionString_ShortCommit(t *testing.T) {
	orig := GitCommit
	t.Cleanup(func() { GitCommit = orig })
	GitCommit = "0123456789abcdef"

	assert.Equal(t, "mailtui "+Version+" (01234567)", GetVersionString())
	assert.Equal(t, "make", getBuildMethod())
}

func TestGetDetailedVersionString(t *testing.T) {
	detailed := GetDetailedVersionString()

	for _, field := range []string{"mailtui", "Git commit:", "Build method:", "Go version:", "Platform:"} {
		assert.Contains(t, detailed, field)
	}
}

func TestIsRelease(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })

	Version, GitCommit = "1.2.0", "abc"
	assert.True(t, IsRelease())
	assert.False(t, IsDevelopment())

	Version = "1.3.0-dev"
	assert.False(t, IsRelease())

	Version, GitCommit = "1.2.0", "unknown"
	assert.True(t, IsDevelopment())
}
