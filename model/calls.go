package model

import (
	"encoding/json"
	"fmt"
)

// CallTracker synthesizes call identifiers for providers whose wire format
// links a tool result to its call by id. Stored turns carry no ids, so the
// tracker pairs each response with the oldest open call of the same name.
type CallTracker struct {
	seq  int
	open []trackedCall
}

type trackedCall struct {
	id   string
	name string
}

// Call registers a new call and returns its id.
func (t *CallTracker) Call(name string) string {
	t.seq++
	id := fmt.Sprintf("call_%d", t.seq)
	t.open = append(t.open, trackedCall{id: id, name: name})
	return id
}

// Respond returns the id of the oldest open call with the given name and
// closes it. ok is false when no call matches.
func (t *CallTracker) Respond(name string) (id string, ok bool) {
	for i, c := range t.open {
		if c.name == name {
			t.open = append(t.open[:i], t.open[i+1:]...)
			return c.id, true
		}
	}
	return "", false
}

// Pending reports the number of calls still waiting for a response.
func (t *CallTracker) Pending() int { return len(t.open) }

// ResponseJSON renders a function response payload as a JSON string for
// providers that only accept text tool results.
func ResponseJSON(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
