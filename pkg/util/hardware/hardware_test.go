package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCPUNum(t *testing.T) {
	assert.GreaterOrEqual(t, GetCPUNum(), 1)
}

func TestGetDiskUsage(t *testing.T) {
	usage, err := GetDiskUsage(t.TempDir())
	require.NoError(t, err)
	assert.Greater(t, usage.Total, uint64(0))
	assert.LessOrEqual(t, usage.Free, usage.Total)
}
