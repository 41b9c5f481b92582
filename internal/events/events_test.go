package events

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/oklog/ulid/v2"
)

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

func TestNewEventID_Monotonic(t *testing.T) {
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = NewEventID(at)
	}

	if !sort.StringsAreSorted(ids) {
		t.Error("expected IDs generated in one millisecond to sort in creation order")
	}
	parsed, err := ulid.Parse(ids[0])
	if err != nil {
		t.Fatalf("invalid ULID: %v", err)
	}
	if !ulid.Time(parsed.Time()).Equal(at) {
		t.Errorf("expected timestamp %s, got %s", at, ulid.Time(parsed.Time()))
	}
}

func TestRedisBroadcaster_Handle(t *testing.T) {
	b := NewRedisBroadcaster(nil, "test", logging.Discard())
	target := &countingInvalidator{}

	peer, _ := json.Marshal(InvalidationMessage{Origin: "other-worker", Reason: "register", EmployeeID: 4})
	if !b.handle(string(peer), target) {
		t.Error("expected peer message to invalidate")
	}

	own, _ := json.Marshal(InvalidationMessage{Origin: b.Origin(), Reason: "register"})
	if b.handle(string(own), target) {
		t.Error("own messages must be ignored")
	}

	if b.handle("{not json", target) {
		t.Error("malformed messages must be ignored")
	}

	if target.n != 1 {
		t.Errorf("expected 1 invalidation, got %d", target.n)
	}
}

func TestRedisBroadcaster_UniqueOrigins(t *testing.T) {
	a := NewRedisBroadcaster(nil, "c", logging.Discard())
	b := NewRedisBroadcaster(nil, "c", logging.Discard())
	if a.Origin() == b.Origin() {
		t.Error("expected distinct origins per worker")
	}
}
