package broadcast

import (
	"fmt"
	"time"

	"hellwatch/internal/upstream"
)

// Title renders the one-line notification title for an event transition.
// Pure function of its inputs; unrecognized event keys fall back to the key.
func Title(key string, st upstream.EventState, now time.Time) string {
	start := time.Unix(st.Timestamp, 0).UTC()
	switch key {
	case upstream.EventBoss:
		return fmt.Sprintf("%s appears in %s at %s", st.Name, st.Zone, clockTime(start))
	case upstream.EventHelltide:
		end := start.Add(helltideDuration)
		return fmt.Sprintf("Helltide spawns in %s until %s", countdown(now, start), clockTime(end))
	case upstream.EventLegion:
		next := start.Add(legionCadence)
		return fmt.Sprintf("Legion spawns in %s, next legion at %s", countdown(now, start), clockTime(next))
	default:
		return key
	}
}

const (
	// A helltide runs for an hour; legions recur every half hour.
	helltideDuration = 3600 * time.Second
	legionCadence    = 1800 * time.Second
)

func clockTime(t time.Time) string {
	return t.Format("15:04 UTC")
}

func countdown(now, start time.Time) string {
	d := start.Sub(now).Round(time.Minute)
	if d <= 0 {
		return "0m"
	}
	if h := d / time.Hour; h > 0 {
		m := (d % time.Hour) / time.Minute
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm", d/time.Minute)
}
