package modality

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func episode(m Modality, start time.Time, current bool, createdAt time.Time) *Episode {
	return &Episode{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		Modality:  m,
		StartDate: start,
		IsCurrent: current,
		CreatedAt: createdAt,
	}
}

func TestBuildTimeline_SixEpisodes(t *testing.T) {
	// Current episode has a mid-range start date; it must still land in
	// the last slot with the rest in ascending order.
	current := episode(ModalityTX, day(3), true, day(10))
	eps := []*Episode{
		episode(ModalityHD, day(5), false, day(1)),
		episode(ModalityNK, day(1), false, day(1)),
		current,
		episode(ModalityPD, day(4), false, day(1)),
		episode(ModalityHD, day(2), false, day(1)),
		episode(ModalityPD, day(6), false, day(1)),
	}

	tl, extras := BuildTimeline(eps)
	if extras != 0 {
		t.Errorf("expected no extra currents, got %d", extras)
	}
	if tl.Current() != current {
		t.Fatal("current episode not in last slot")
	}
	var prev time.Time
	for i, e := range tl.Slots[:TimelineSlots-1] {
		if e == nil {
			t.Fatalf("slot %d unexpectedly empty", i+1)
		}
		if e.StartDate.Before(prev) {
			t.Errorf("slot %d out of order: %v before %v", i+1, e.StartDate, prev)
		}
		prev = e.StartDate
	}
}

func TestBuildTimeline_StableAcrossInsertionOrder(t *testing.T) {
	current := episode(ModalityHD, day(9), true, day(9))
	a := episode(ModalityNK, day(1), false, day(1))
	b := episode(ModalityPD, day(5), false, day(5))

	first, _ := BuildTimeline([]*Episode{a, b, current})
	second, _ := BuildTimeline([]*Episode{current, b, a})
	for i := range first.Slots {
		if first.Slots[i] != second.Slots[i] {
			t.Fatalf("slot %d differs across insertion orders", i+1)
		}
	}
}

func TestBuildTimeline_FewerThanSix(t *testing.T) {
	a := episode(ModalityNK, day(1), false, day(1))
	current := episode(ModalityHD, day(2), true, day(2))

	tl, _ := BuildTimeline([]*Episode{current, a})
	if tl.Slots[0] != a {
		t.Error("historical episode should be in slot 1")
	}
	for i := 1; i < TimelineSlots-1; i++ {
		if tl.Slots[i] != nil {
			t.Errorf("slot %d should be empty", i+1)
		}
	}
	if tl.Current() != current {
		t.Error("current episode should be in slot 6")
	}
}

func TestBuildTimeline_MoreThanSixEpisodes(t *testing.T) {
	// A current episode whose start date sorts past the sixth historical
	// entry must still claim the last slot; only the historicals overflow.
	current := episode(ModalityPD, day(7), true, day(7))
	eps := []*Episode{current}
	for n := 1; n <= 6; n++ {
		eps = append(eps, episode(ModalityHD, day(n), false, day(n)))
	}

	tl, extras := BuildTimeline(eps)
	if extras != 0 {
		t.Errorf("expected no extra currents, got %d", extras)
	}
	if tl.Current() != current {
		t.Fatal("late-starting current episode dropped from the last slot")
	}
	hist := tl.Historical()
	if len(hist) != TimelineSlots-1 {
		t.Fatalf("expected %d historical slots, got %d", TimelineSlots-1, len(hist))
	}
	for i, e := range hist {
		if !e.StartDate.Equal(day(i + 1)) {
			t.Errorf("slot %d: expected start %v, got %v", i+1, day(i+1), e.StartDate)
		}
	}
}

func TestBuildTimeline_NoCurrent(t *testing.T) {
	tl, _ := BuildTimeline([]*Episode{episode(ModalityNK, day(1), false, day(1))})
	if tl.Current() != nil {
		t.Error("expected empty current slot")
	}
	if tl.First() == nil {
		t.Error("expected first episode to be found")
	}
}

func TestBuildTimeline_MultiCurrentTieBreak(t *testing.T) {
	older := episode(ModalityHD, day(1), true, day(1))
	newer := episode(ModalityPD, day(2), true, day(5))

	tl, extras := BuildTimeline([]*Episode{older, newer})
	if extras != 1 {
		t.Errorf("expected 1 extra current, got %d", extras)
	}
	if tl.Current() != newer {
		t.Error("most recently created episode should win the current slot")
	}
	if tl.Slots[0] != older {
		t.Error("losing episode should be treated as historical")
	}
}

func TestTimeline_First(t *testing.T) {
	earliest := episode(ModalityNK, day(1), false, day(1))
	current := episode(ModalityHD, day(5), true, day(5))

	tl, _ := BuildTimeline([]*Episode{current, earliest})
	if tl.First() != earliest {
		t.Error("first should be the earliest start date, current included in the comparison")
	}

	only, _ := BuildTimeline([]*Episode{current})
	if only.First() != current {
		t.Error("a lone current episode is also the first")
	}
}

func TestFilterByCreatedAt(t *testing.T) {
	at := day(1)
	in := episode(ModalityHD, day(1), false, at)
	out := episode(ModalityPD, day(2), false, day(9))

	got := FilterByCreatedAt([]*Episode{in, out}, at)
	if len(got) != 1 || got[0] != in {
		t.Errorf("expected only the correlated episode, got %d", len(got))
	}
}
