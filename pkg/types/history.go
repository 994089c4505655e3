package types

import "time"

// Agent is the actor credited with a change to a node.
type Agent string

const (
	AgentOperator    Agent = "operator"
	AgentSystem      Agent = "system"
	AgentApplication Agent = "application"
	AgentMaintainer  Agent = "maintainer"
)

// EventType names a recorded event in a node's history.
type EventType string

const (
	EventProvisioned      EventType = "provisioned"
	EventReadied          EventType = "readied"
	EventReserved         EventType = "reserved"
	EventActivated        EventType = "activated"
	EventDeactivated      EventType = "deactivated"
	EventDirtied          EventType = "dirtied"
	EventFailed           EventType = "failed"
	EventParked           EventType = "parked"
	EventDeprovisioned    EventType = "deprovisioned"
	EventDeallocated      EventType = "deallocated"
	EventRebooted         EventType = "rebooted"
	EventRestarted        EventType = "restarted"
	EventOsUpgraded       EventType = "osUpgraded"
	EventFirmwareVerified EventType = "firmwareVerified"
	EventWantToRetire     EventType = "wantToRetire"
)

// Event is the latest occurrence of an event type.
type Event struct {
	Type  EventType `json:"type" yaml:"type"`
	Agent Agent     `json:"agent" yaml:"agent"`
	At    time.Time `json:"at" yaml:"at"`
}

// History holds the latest event of each type. Like Reports it is copied on write.
type History map[EventType]Event

// Event returns the latest event of the given type.
func (h History) Event(eventType EventType) (Event, bool) {
	e, ok := h[eventType]
	return e, ok
}

// With returns a copy recording the given event.
func (h History) With(eventType EventType, agent Agent, at time.Time) History {
	out := make(History, len(h)+1)
	for k, v := range h {
		out[k] = v
	}
	out[eventType] = Event{Type: eventType, Agent: agent, At: at}
	return out
}
