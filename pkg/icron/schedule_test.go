package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo_Daily(t *testing.T) {
	ref := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 3 * * *", ref, 48*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), info.Last)
}

func TestGetTriggerInfo_NoFiringInsideLookback(t *testing.T) {
	ref := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 3 * * *", ref, time.Hour)
	require.NoError(t, err)

	assert.True(t, info.Last.IsZero())
	assert.Equal(t, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), info.Next)
}

func TestParse_RejectsSecondsField(t *testing.T) {
	_, err := Parse("0 0 3 * * *")
	require.Error(t, err)

	_, err = Parse("@daily")
	require.NoError(t, err)
}
