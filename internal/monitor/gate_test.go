package monitor

import (
	"testing"
	"time"
)

func at(minute int) time.Time {
	return time.Date(2026, 3, 14, 9, minute, 5, 0, time.UTC)
}

func TestGateFiresOnMultiplesOfEvery(t *testing.T) {
	t.Parallel()

	g := Gate{Every: 5}
	var st ScheduleState
	var fired []int
	for minute := 11; minute <= 15; minute++ {
		due, next := g.ShouldRun(at(minute), st)
		if due {
			st = next
			fired = append(fired, minute)
		}
	}
	if len(fired) != 1 || fired[0] != 15 {
		t.Fatalf("expected a single run at minute 15, got %v", fired)
	}
}

func TestGateRunsAtMostOncePerMinute(t *testing.T) {
	t.Parallel()

	g := Gate{Every: 5}
	var st ScheduleState

	due, st := g.ShouldRun(at(15), st)
	if !due {
		t.Fatal("first tick at minute 15 should run")
	}
	for i := 0; i < 3; i++ {
		again, next := g.ShouldRun(at(15).Add(time.Duration(i)*time.Second), st)
		if again {
			t.Fatalf("tick %d in the same minute should not run", i)
		}
		st = next
	}

	due, _ = g.ShouldRun(at(20), st)
	if !due {
		t.Fatal("next multiple should run again")
	}
}

func TestGateDefaultsEvery(t *testing.T) {
	t.Parallel()

	g := Gate{}
	if due, _ := g.ShouldRun(at(15), ScheduleState{}); !due {
		t.Fatal("zero Every should behave like 5")
	}
	if due, _ := g.ShouldRun(at(13), ScheduleState{}); due {
		t.Fatal("minute 13 is not a multiple of 5")
	}
}
