package scheduler

import "github.com/example/planning-service/internal/interval"

// Window is a single availability record of one user.
type Window struct {
	ID        string
	Available bool
	Period    interval.Interval
}

// Resolution explains the outcome of an availability check.
type Resolution struct {
	Available bool
	// VetoedBy lists unavailable windows overlapping the query.
	VetoedBy []Window
	// CoveredBy is the available window that contains the query, when one exists.
	CoveredBy *Window
}

// ResolveAvailability decides whether the windows make a user available over query.
//
// Any unavailable window overlapping query vetoes the whole range. Otherwise a
// single available window must contain query; several windows that only cover
// it jointly are not enough.
func ResolveAvailability(windows []Window, query interval.Interval) Resolution {
	var res Resolution
	for _, w := range windows {
		if !interval.Overlaps(w.Period, query) {
			continue
		}
		if !w.Available {
			res.VetoedBy = append(res.VetoedBy, w)
		}
	}
	if len(res.VetoedBy) > 0 {
		return res
	}

	for i := range windows {
		w := windows[i]
		if w.Available && interval.Contains(w.Period, query) {
			res.Available = true
			res.CoveredBy = &w
			return res
		}
	}
	return res
}

// OverlappingWindows returns the windows that overlap period, skipping excludeID.
func OverlappingWindows(windows []Window, period interval.Interval, excludeID string) []Window {
	var out []Window
	for _, w := range windows {
		if excludeID != "" && w.ID == excludeID {
			continue
		}
		if interval.Overlaps(w.Period, period) {
			out = append(out, w)
		}
	}
	return out
}
