package layout

import (
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
)

// Cluster is a run of events that transitively overlap, in sorted order.
type Cluster []calendar.Event

// Overlaps reports whether a and b share time, or whether the gap between
// them is shorter than tol. Touching events overlap whenever tol > 0.
func Overlaps(a, b calendar.Event, tol time.Duration) bool {
	if a.Start.Before(b.End) && a.End.After(b.Start) {
		return true
	}
	if tol <= 0 {
		return false
	}
	var gap time.Duration
	if !a.End.After(b.Start) {
		gap = b.Start.Sub(a.End)
	} else {
		gap = a.Start.Sub(b.End)
	}
	return gap >= 0 && gap < tol
}

// SortEvents returns a sorted copy of events: start ascending, longer
// events first on equal starts, then id.
func SortEvents(events []calendar.Event) []calendar.Event {
	sorted := make([]calendar.Event, len(events))
	copy(sorted, events)
	calendar.SortByStart(sorted)
	return sorted
}

// Group partitions events into clusters. An event joins the open cluster
// when it overlaps any member already in it; otherwise the cluster is
// closed and a new one starts.
func Group(events []calendar.Event, tol time.Duration) []Cluster {
	var clusters []Cluster
	var current Cluster
	for _, ev := range SortEvents(events) {
		if len(current) > 0 && !overlapsAny(current, ev, tol) {
			clusters = append(clusters, current)
			current = nil
		}
		current = append(current, ev)
	}
	if len(current) > 0 {
		clusters = append(clusters, current)
	}
	return clusters
}

func overlapsAny(c Cluster, ev calendar.Event, tol time.Duration) bool {
	for _, member := range c {
		if Overlaps(member, ev, tol) {
			return true
		}
	}
	return false
}
