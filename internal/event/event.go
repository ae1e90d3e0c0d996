package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action is what happened to an entity
type Action string

const (
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionDeleted     Action = "deleted"
	ActionSoftDeleted Action = "soft_deleted"
	ActionImported    Action = "imported"
	ActionArchived    Action = "archived"
)

// Entity identifies the kind of record an event is about
type Entity string

const (
	EntityCategory    Entity = "category"
	EntityTransaction Entity = "transaction"
	EntityReport      Entity = "report"
)

// Event is the message fanned out to WebSocket clients and the broker.
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"` // e.g. "transaction.created"
	Entity    Entity      `json:"entity"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// New creates an event stamped with the current UTC time
func New(action Action, entity Entity, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entity, action),
		Entity:    entity,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func CategoryCreated(payload interface{}) Event {
	return New(ActionCreated, EntityCategory, payload)
}

func CategoryUpdated(payload interface{}) Event {
	return New(ActionUpdated, EntityCategory, payload)
}

// CategoryDeleted reports a hard or soft delete depending on soft
func CategoryDeleted(payload interface{}, soft bool) Event {
	if soft {
		return New(ActionSoftDeleted, EntityCategory, payload)
	}
	return New(ActionDeleted, EntityCategory, payload)
}

func TransactionCreated(payload interface{}) Event {
	return New(ActionCreated, EntityTransaction, payload)
}

func TransactionUpdated(payload interface{}) Event {
	return New(ActionUpdated, EntityTransaction, payload)
}

func TransactionDeleted(payload interface{}) Event {
	return New(ActionDeleted, EntityTransaction, payload)
}

// TransactionsImported carries an import summary rather than a single transaction
func TransactionsImported(payload interface{}) Event {
	return New(ActionImported, EntityTransaction, payload)
}

func ReportArchived(payload interface{}) Event {
	return New(ActionArchived, EntityReport, payload)
}
