package notification

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNew_CopiesEvents(t *testing.T) {
	events := []Event{{Time: time.Unix(1, 0), Count: 1}}
	n := New("kitchen", events)

	events[0].Count = 99
	if n.Events[0].Count != 1 {
		t.Fatal("notification shares its events slice with the caller")
	}
	if n.ID == "" {
		t.Error("notification has no ID")
	}
	if n.MeterName != "kitchen" {
		t.Errorf("MeterName = %q", n.MeterName)
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	a := New("m", nil)
	b := New("m", nil)
	if a.ID == b.ID {
		t.Fatalf("two notifications share ID %s", a.ID)
	}
}

func TestNotification_Empty(t *testing.T) {
	if !New("m", nil).Empty() {
		t.Error("notification without events should be empty")
	}
	n := New("m", []Event{{Count: 3}, {Count: 4}})
	if n.Empty() {
		t.Error("notification with events should not be empty")
	}
	if n.TickCount() != 2 || n.LastCount() != 4 {
		t.Errorf("TickCount() = %d, LastCount() = %d", n.TickCount(), n.LastCount())
	}
}

func TestNotification_JSON(t *testing.T) {
	n := Notification{
		ID:        "abc",
		MeterName: "kitchen",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Events:    []Event{{Time: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC), Count: 7}},
	}

	b, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"id", "meterName", "createdAt", "events", "tickCount"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q in %s", key, b)
		}
	}
	if got["tickCount"] != float64(1) {
		t.Errorf("tickCount = %v, want 1", got["tickCount"])
	}
}

func TestPack(t *testing.T) {
	events := make([]Event, 5)
	for i := range events {
		events[i] = Event{Count: uint64(i + 1)}
	}

	tests := []struct {
		name      string
		maxEvents int
		wantSizes []int
	}{
		{"split", 2, []int{2, 2, 1}},
		{"exact", 5, []int{5}},
		{"unbounded", 0, []int{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := Pack("m", events, tt.maxEvents)
			if len(ns) != len(tt.wantSizes) {
				t.Fatalf("got %d notifications, want %d", len(ns), len(tt.wantSizes))
			}
			var next uint64 = 1
			for i, n := range ns {
				if n.TickCount() != tt.wantSizes[i] {
					t.Errorf("notification %d has %d events, want %d", i, n.TickCount(), tt.wantSizes[i])
				}
				for _, e := range n.Events {
					if e.Count != next {
						t.Fatalf("event order broken: got count %d, want %d", e.Count, next)
					}
					next++
				}
			}
		})
	}

	if Pack("m", nil, 2) != nil {
		t.Error("Pack(nil) should return nil")
	}
}
