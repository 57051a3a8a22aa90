package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpochTime(t *testing.T) {
	epoch, err := EpochTime("2014-11-07T22:01:45Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1415397705), epoch)
}

func TestEpochTimeWithOffset(t *testing.T) {
	epoch, err := EpochTime("2014-11-07T22:01:45+01:00")
	require.NoError(t, err)
	assert.Equal(t, int64(1415394105), epoch)
}

func TestEpochTimeInvalid(t *testing.T) {
	_, err := EpochTime("not a timestamp")
	assert.Error(t, err)
}

func TestCurrentEpochTime(t *testing.T) {
	now := CurrentEpochTime()
	assert.Greater(t, now, int64(1415397705))
}
