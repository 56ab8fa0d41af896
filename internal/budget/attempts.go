package budget

import "time"

// DefaultPollInterval is the pause between two status checks.
const DefaultPollInterval = 2000 * time.Millisecond

type tier struct {
	below       int
	maxAttempts int
}

var tiers = []tier{
	{below: 10_000, maxAttempts: 150},
	{below: 50_000, maxAttempts: 450},
	{below: 150_000, maxAttempts: 900},
	{below: 300_000, maxAttempts: 1500},
}

const largestTierAttempts = 2400

// MaxAttempts maps an estimated character count to the poll attempt budget.
func MaxAttempts(estimatedChars int) int {
	for _, t := range tiers {
		if estimatedChars < t.below {
			return t.maxAttempts
		}
	}
	return largestTierAttempts
}

// Timeout is the wall-clock ceiling implied by the attempt budget at the given interval.
func Timeout(estimatedChars int, interval time.Duration) time.Duration {
	return time.Duration(MaxAttempts(estimatedChars)) * interval
}
