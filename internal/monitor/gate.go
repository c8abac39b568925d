package monitor

import "time"

// ScheduleState is the gate's memory: the minute of the last admitted
// cycle. It lives in process memory only; after a restart the history
// window still prevents duplicate deliveries, at the cost of a possible
// extra poll.
type ScheduleState struct {
	LastRun time.Time // truncated to the minute; zero = never ran
}

// Gate decides whether a poll cycle is due. A cycle runs when the wall
// clock minute is a multiple of Every, at most once per calendar minute
// no matter how many ticks arrive within it.
type Gate struct {
	Every int // minutes; values <= 0 fall back to 5
}

// ShouldRun reports whether a cycle is due at now and returns the updated
// state. Callers must commit the returned state before starting the cycle
// so a second tick in the same minute cannot re-enter.
func (g Gate) ShouldRun(now time.Time, st ScheduleState) (bool, ScheduleState) {
	every := g.Every
	if every <= 0 {
		every = 5
	}
	if now.Minute()%every != 0 {
		return false, st
	}
	minute := now.Truncate(time.Minute)
	if !st.LastRun.IsZero() && !minute.After(st.LastRun) {
		return false, st
	}
	return true, ScheduleState{LastRun: minute}
}
