package amqp

import (
	"encoding/json"
	"time"
)

// Event names published by the service layer.
const (
	EventUserRegistered     = "user.registered"
	EventAccountDeleted     = "account.deleted"
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
)

// Event is a lightweight notification about a mutating operation. Consumers
// that need the full record fetch it themselves.
type Event struct {
	Name      string    `json:"name"`
	EntityID  string    `json:"entityId"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(name, entityID, userID string) *Event {
	return &Event{
		Name:      name,
		EntityID:  entityID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
