package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setVersion(t *testing.T, version, buildTime, commit string) {
	t.Helper()
	origVersion, origBuildTime, origCommit := Version, BuildTime, Commit
	t.Cleanup(func() {
		Version, BuildTime, Commit = origVersion, origBuildTime, origCommit
	})
	Version, BuildTime, Commit = version, buildTime, commit
}

func TestInfo(t *testing.T) {
	setVersion(t, "1.0.0", "2024-01-01", "abcdef0123456789")

	info := Info()
	assert.True(t, strings.HasPrefix(info, "provision 1.0.0 (abcdef01)"), info)
	assert.Contains(t, info, "2024-01-01")
	assert.Contains(t, info, runtime.GOOS+"/"+runtime.GOARCH)

	Commit = "abc123"
	assert.Contains(t, Info(), "(abc123)")
}

func TestMap(t *testing.T) {
	setVersion(t, "1.0.0", "2024-01-01", "abcdef0123456789")

	m := Map()
	assert.Equal(t, "1.0.0", m["version"])
	assert.Equal(t, "abcdef0123456789", m["commit"])
	assert.Equal(t, "2024-01-01", m["buildTime"])
	assert.True(t, strings.HasPrefix(m["goVersion"], "go1."))
}

func TestSemver(t *testing.T) {
	setVersion(t, "v1.2.3", "", "")
	v, err := Semver()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v.String())
	assert.True(t, IsRelease())

	Version = "1.3.0-rc.1"
	assert.False(t, IsRelease())

	Version = "dev"
	_, err = Semver()
	assert.Error(t, err)
	assert.False(t, IsRelease())
}
