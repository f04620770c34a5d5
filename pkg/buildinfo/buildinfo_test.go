package buildinfo

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuildInfo(t *testing.T, settings ...debug.BuildSetting) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: settings}, true
	}
	t.Cleanup(func() { readBuildInfo = orig })
}

func TestGet_Defaults(t *testing.T) {
	withBuildInfo(t)

	info := Get("breeze")
	assert.Equal(t, "breeze", info.ServiceName)
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "unknown", info.Commit)
	assert.Equal(t, "unknown", info.BuildTime)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestGet_VCSFallback(t *testing.T) {
	withBuildInfo(t,
		debug.BuildSetting{Key: "vcs.revision", Value: "4f1c2d9e8b7a6f5e4d3c2b1a0f9e8d7c6b5a4f3e"},
		debug.BuildSetting{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
	)

	info := Get("breeze")
	assert.Equal(t, "4f1c2d9", info.Commit)
	assert.Equal(t, "2026-10-01T12:00:00Z", info.BuildTime)
	assert.Equal(t, "dev (4f1c2d9, 2026-10-01T12:00:00Z)", String())
}

func TestGet_LdflagsWin(t *testing.T) {
	withBuildInfo(t, debug.BuildSetting{Key: "vcs.revision", Value: "ffffffffffffffff"})

	origCommit, origTime := Commit, BuildTime
	Commit, BuildTime = "abc1234", "2026-01-01T00:00:00Z"
	t.Cleanup(func() { Commit, BuildTime = origCommit, origTime })

	info := Get("breeze")
	assert.Equal(t, "abc1234", info.Commit)
	assert.Equal(t, "2026-01-01T00:00:00Z", info.BuildTime)
}
