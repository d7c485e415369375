// Package documents stores recording URLs against the caller's phone number.
//
// Each collection has a parent row per phone number and an append-only list of
// records. Parents are created on first write and never updated afterwards.
package documents

import (
	"errors"
	"time"
)

type Collection string

const (
	CollectionAppointmentSuggestions Collection = "appointment_suggestions"
	CollectionClients                Collection = "clients"
)

// Collections lists every collection a successful upload is written to.
var Collections = []Collection{CollectionAppointmentSuggestions, CollectionClients}

var (
	ErrUnknownCollection = errors.New("documents: unknown collection")
	ErrInvalidArgument   = errors.New("documents: invalid argument")
	ErrNotFound          = errors.New("documents: not found")
)

func (c Collection) Valid() bool {
	switch c {
	case CollectionAppointmentSuggestions, CollectionClients:
		return true
	}
	return false
}

// Parent is the per-number document. Name is the contact name for
// appointment_suggestions and the client name for clients; it may be empty.
type Parent struct {
	Collection  Collection `json:"collection"`
	PhoneNumber string     `json:"phone_number"`
	Name        string     `json:"name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Record struct {
	ID          string     `json:"id"`
	Collection  Collection `json:"collection"`
	PhoneNumber string     `json:"phone_number"`
	URL         string     `json:"url"`
	Timestamp   time.Time  `json:"timestamp"`
}
