package launchagent

import "fmt"

// ScheduleKind identifies how launchd decides when to run an agent
type ScheduleKind int

const (
	// ScheduleOnDemand runs only when requested
	ScheduleOnDemand ScheduleKind = iota
	// ScheduleKeepAlive keeps the agent running
	ScheduleKeepAlive
	// ScheduleInterval runs every N seconds
	ScheduleInterval
	// ScheduleCalendar runs on a calendar trigger
	ScheduleCalendar
	// ScheduleRunAtLoad runs once when loaded
	ScheduleRunAtLoad
)

// ScheduleType is the schedule derived from a descriptor. Seconds is set only for ScheduleInterval.
type ScheduleType struct {
	Kind    ScheduleKind
	Seconds int
}

// String returns the display text for the schedule
func (s ScheduleType) String() string {
	switch s.Kind {
	case ScheduleKeepAlive:
		return "Keep Alive"
	case ScheduleInterval:
		return "Every " + FormatInterval(s.Seconds)
	case ScheduleCalendar:
		return "Calendar"
	case ScheduleRunAtLoad:
		return "Run at Load"
	default:
		return "On Demand"
	}
}

// FormatInterval renders seconds in the largest whole unit: hours, minutes or seconds
func FormatInterval(seconds int) string {
	switch {
	case seconds >= 3600 && seconds%3600 == 0:
		return plural(seconds/3600, "hour")
	case seconds >= 60 && seconds%60 == 0:
		return plural(seconds/60, "minute")
	default:
		return plural(seconds, "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// scheduleFromDescriptor derives the schedule from raw plist values.
// Priority: KeepAlive, StartInterval, StartCalendarInterval, RunAtLoad, on demand.
func scheduleFromDescriptor(d map[string]any) ScheduleType {
	switch v := d[keyKeepAlive].(type) {
	case bool:
		if v {
			return ScheduleType{Kind: ScheduleKeepAlive}
		}
	case map[string]any:
		if len(v) > 0 {
			return ScheduleType{Kind: ScheduleKeepAlive}
		}
	}

	if secs, ok := plistInt(d[keyStartInterval]); ok && secs > 0 {
		return ScheduleType{Kind: ScheduleInterval, Seconds: secs}
	}

	if _, ok := d[keyStartCalendarInterval]; ok {
		return ScheduleType{Kind: ScheduleCalendar}
	}

	if v, ok := d[keyRunAtLoad].(bool); ok && v {
		return ScheduleType{Kind: ScheduleRunAtLoad}
	}

	return ScheduleType{Kind: ScheduleOnDemand}
}

// plistInt accepts the integer representations produced by howett.net/plist
func plistInt(v any) (int, bool) {
	switch n := v.(type) {
	case uint64:
		return int(n), true
	case int64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
