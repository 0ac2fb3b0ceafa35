//go:build property

package timestamp_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/c360/ticketfront/pkg/timestamp"
)

// TestSequencerStrictlyIncreasing verifies output never repeats or decreases.
// Property: for any clock readings r1..rn, Next() values are strictly increasing.
func TestSequencerStrictlyIncreasing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Next is strictly increasing for arbitrary clocks", prop.ForAll(
		func(readings []int64) bool {
			if len(readings) == 0 {
				return true
			}
			i := 0
			seq := timestamp.NewSequencerWithClock(func() int64 {
				v := readings[i%len(readings)]
				i++
				return v
			})

			prev := seq.Next()
			for range readings {
				next := seq.Next()
				if next <= prev {
					return false
				}
				prev = next
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(0, 1<<40)),
	))

	properties.TestingRun(t)
}
