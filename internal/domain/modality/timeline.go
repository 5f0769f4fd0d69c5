package modality

import (
	"sort"
	"time"
)

// TimelineSlots is the number of episode slots on the registration form:
// slots 1-5 hold historical episodes oldest first, slot 6 holds the current
// episode.
const TimelineSlots = 6

// Timeline is the reconciled slot view of a patient's episodes. Slots holds
// up to six entries; index 5 is reserved for the current episode, indexes
// 0-4 hold historical episodes in ascending start-date order. Empty slots
// are nil.
type Timeline struct {
	Slots [TimelineSlots]*Episode
}

// Current returns the episode in the current slot, or nil.
func (t *Timeline) Current() *Episode {
	return t.Slots[TimelineSlots-1]
}

// First returns the patient's earliest episode, current included, or nil.
func (t *Timeline) First() *Episode {
	var first *Episode
	for _, e := range t.Slots {
		if e == nil {
			continue
		}
		if first == nil || e.StartDate.Before(first.StartDate) {
			first = e
		}
	}
	return first
}

// Historical returns the non-current slots in order, nils excluded.
func (t *Timeline) Historical() []*Episode {
	var out []*Episode
	for _, e := range t.Slots[:TimelineSlots-1] {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// BuildTimeline reconciles a patient's episodes into the six-slot view.
// Slot assignment is recomputed purely from is_current and start_date, so
// rebuilding from the same stored rows always yields the same mapping.
//
// More than one current episode is structurally impossible but can be left
// behind by a partially applied transition; the most recently created one
// wins the current slot and the rest are treated as historical. The number
// of demoted extras is returned so the caller can log an integrity warning.
func BuildTimeline(episodes []*Episode) (Timeline, int) {
	sorted := make([]*Episode, len(episodes))
	copy(sorted, episodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})

	// The current episode is chosen from the full history before any
	// truncation: it owns the last slot no matter how late it started.
	var current *Episode
	extras := 0
	for _, e := range sorted {
		if !e.IsCurrent {
			continue
		}
		if current == nil || e.CreatedAt.After(current.CreatedAt) {
			current = e
		}
	}
	for _, e := range sorted {
		if e.IsCurrent && e != current {
			extras++
		}
	}

	var tl Timeline
	slot := 0
	for _, e := range sorted {
		if e == current {
			continue
		}
		if slot >= TimelineSlots-1 {
			break
		}
		tl.Slots[slot] = e
		slot++
	}
	tl.Slots[TimelineSlots-1] = current
	return tl, extras
}

// FilterByCreatedAt keeps the episodes entered in one specific form
// submission, identified by the shared correlation timestamp.
func FilterByCreatedAt(episodes []*Episode, at time.Time) []*Episode {
	var out []*Episode
	for _, e := range episodes {
		if e.CreatedAt.Equal(at) {
			out = append(out, e)
		}
	}
	return out
}
