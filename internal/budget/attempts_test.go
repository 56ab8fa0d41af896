package budget

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaxAttempts_Tiers(t *testing.T) {
	tests := []struct {
		chars int
		want  int
	}{
		{chars: 0, want: 150},
		{chars: 9_999, want: 150},
		{chars: 10_000, want: 450},
		{chars: 49_999, want: 450},
		{chars: 50_000, want: 900},
		{chars: 149_999, want: 900},
		{chars: 150_000, want: 1500},
		{chars: 204_800, want: 1500},
		{chars: 299_999, want: 1500},
		{chars: 300_000, want: 2400},
		{chars: 50_000_000, want: 2400},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MaxAttempts(tt.chars), "chars=%d", tt.chars)
	}
}

func TestMaxAttempts_MonotonicOverTierValues(t *testing.T) {
	allowed := []int{150, 450, 900, 1500, 2400}
	prev := 0
	for chars := -10; chars <= 400_000; chars += 997 {
		got := MaxAttempts(chars)
		assert.True(t, slices.Contains(allowed, got), "unexpected tier %d", got)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestTimeout(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Timeout(100, DefaultPollInterval))
	assert.Equal(t, 80*time.Minute, Timeout(1_000_000, DefaultPollInterval))
}
