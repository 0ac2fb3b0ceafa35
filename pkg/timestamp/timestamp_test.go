package timestamp

import (
	"sync"
	"testing"
	"time"
)

var (
	testTime   = time.Date(2023, 1, 15, 12, 30, 45, 123000000, time.UTC)
	testTimeMs = int64(1673785845123)
)

func TestNow(t *testing.T) {
	before := time.Now().UnixMilli()
	ts := Now()
	after := time.Now().UnixMilli()

	if ts < before || ts > after {
		t.Errorf("Now() = %d, expected between %d and %d", ts, before, after)
	}
}

func TestFromUnixMs(t *testing.T) {
	if !FromUnixMs(0).IsZero() {
		t.Error("FromUnixMs(0) should be zero time")
	}
	if got := FromUnixMs(testTimeMs); !got.Equal(testTime) {
		t.Errorf("FromUnixMs(%d) = %v, expected %v", testTimeMs, got, testTime)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(testTimeMs); got != "2023-01-15T12:30:45Z" {
		t.Errorf("Format = %q", got)
	}
	if got := Format(0); got != "" {
		t.Errorf("Format(0) = %q, expected empty", got)
	}
}

func TestSequencer_FollowsClock(t *testing.T) {
	readings := []int64{100, 200, 300}
	i := 0
	seq := NewSequencerWithClock(func() int64 {
		v := readings[i]
		i++
		return v
	})

	for _, want := range readings {
		if got := seq.Next(); got != want {
			t.Errorf("Next() = %d, expected %d", got, want)
		}
	}
}

func TestSequencer_SameInstant(t *testing.T) {
	seq := NewSequencerWithClock(func() int64 { return 1000 })

	first := seq.Next()
	second := seq.Next()
	third := seq.Next()

	if first != 1000 || second != 1001 || third != 1002 {
		t.Errorf("got %d, %d, %d; expected 1000, 1001, 1002", first, second, third)
	}
}

func TestSequencer_ClockGoesBackwards(t *testing.T) {
	readings := []int64{5000, 4000, 4500, 6000}
	i := 0
	seq := NewSequencerWithClock(func() int64 {
		v := readings[i]
		i++
		return v
	})

	expected := []int64{5000, 5001, 5002, 6000}
	for _, want := range expected {
		if got := seq.Next(); got != want {
			t.Errorf("Next() = %d, expected %d", got, want)
		}
	}
	if seq.Last() != 6000 {
		t.Errorf("Last() = %d, expected 6000", seq.Last())
	}
}

func TestSequencer_Concurrent(t *testing.T) {
	seq := NewSequencerWithClock(func() int64 { return 42 })

	const workers = 8
	const perWorker = 250

	var mu sync.Mutex
	seen := make(map[int64]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < perWorker; n++ {
				v := seq.Next()
				mu.Lock()
				if seen[v] {
					t.Errorf("duplicate value %d", v)
				}
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d distinct values, got %d", workers*perWorker, len(seen))
	}
}

func TestNext_Default(t *testing.T) {
	a := Next()
	b := Next()
	if b <= a {
		t.Errorf("default sequencer not increasing: %d then %d", a, b)
	}
}
