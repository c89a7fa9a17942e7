package scheduler

import (
	"sort"
	"strings"

	"github.com/example/planning-service/internal/interval"
)

// Booking is the view of a task the conflict detector needs.
type Booking struct {
	TaskID     string
	Title      string
	AssigneeID string
	Done       bool
	Period     interval.Interval
}

// Candidate describes the assignment being validated.
type Candidate struct {
	// TaskID is excluded from the result so a task never conflicts with itself.
	TaskID     string
	AssigneeID string
	Period     interval.Interval
}

// DetectConflicts returns the bookings that prevent the candidate assignment.
// A booking conflicts when it belongs to the same assignee, is not done, is not
// the candidate task itself, and overlaps the candidate period.
func DetectConflicts(existing []Booking, candidate Candidate) []Booking {
	if candidate.AssigneeID == "" {
		return nil
	}

	var conflicts []Booking
	for _, booking := range existing {
		if !IsConflict(booking, candidate) {
			continue
		}
		conflicts = append(conflicts, booking)
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Period.Start.Equal(conflicts[j].Period.Start) {
			return conflicts[i].TaskID < conflicts[j].TaskID
		}
		return conflicts[i].Period.Start.Before(conflicts[j].Period.Start)
	})
	return conflicts
}

// IsConflict applies the conflict predicate to a single booking.
func IsConflict(booking Booking, candidate Candidate) bool {
	if booking.Done {
		return false
	}
	if booking.TaskID != "" && booking.TaskID == candidate.TaskID {
		return false
	}
	if booking.AssigneeID != candidate.AssigneeID {
		return false
	}
	return interval.Overlaps(booking.Period, candidate.Period)
}

// ConflictTitles joins booking titles with ", " in the order given.
func ConflictTitles(conflicts []Booking) string {
	titles := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		titles = append(titles, c.Title)
	}
	return strings.Join(titles, ", ")
}
