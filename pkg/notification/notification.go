// Package notification defines the records sent to the collector.
package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one tick. Count is the durable count right after the tick was
// persisted, which lets the collector spot replays and gaps.
type Event struct {
	Time  time.Time `json:"time"`
	Count uint64    `json:"count"`
}

// Notification reports one or more ticks of a meter. Treat it as immutable
// once built.
type Notification struct {
	ID        string    `json:"id"`
	MeterName string    `json:"meterName"`
	CreatedAt time.Time `json:"createdAt"`
	Events    []Event   `json:"events"`
}

// New builds a notification with a fresh ID. The events slice is copied.
func New(meterName string, events []Event) Notification {
	return Notification{
		ID:        uuid.NewString(),
		MeterName: meterName,
		CreatedAt: time.Now().UTC(),
		Events:    append([]Event(nil), events...),
	}
}

// Empty returns true if the notification carries no ticks.
func (n Notification) Empty() bool {
	return len(n.Events) == 0
}

// TickCount returns the number of ticks reported.
func (n Notification) TickCount() int {
	return len(n.Events)
}

// LastCount returns the durable count of the newest event, or 0 if empty.
func (n Notification) LastCount() uint64 {
	if len(n.Events) == 0 {
		return 0
	}
	return n.Events[len(n.Events)-1].Count
}

// MarshalJSON adds the derived tickCount field.
func (n Notification) MarshalJSON() ([]byte, error) {
	type plain Notification
	return json.Marshal(struct {
		plain
		TickCount int `json:"tickCount"`
	}{plain(n), n.TickCount()})
}

// Pack groups events into notifications of at most maxEvents events each,
// keeping event order. maxEvents <= 0 puts everything in one notification.
func Pack(meterName string, events []Event, maxEvents int) []Notification {
	if len(events) == 0 {
		return nil
	}
	if maxEvents <= 0 {
		maxEvents = len(events)
	}
	out := make([]Notification, 0, (len(events)+maxEvents-1)/maxEvents)
	for start := 0; start < len(events); start += maxEvents {
		end := start + maxEvents
		if end > len(events) {
			end = len(events)
		}
		out = append(out, New(meterName, events[start:end]))
	}
	return out
}
