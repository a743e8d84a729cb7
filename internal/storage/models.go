package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// UserDocument is a schema-less user profile. Fields holds every stored
// attribute (including uid and email) decoded from JSON.
type UserDocument struct {
	ID        string
	UID       string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HealthRecord is one image analysis result. Records are append-only.
type HealthRecord struct {
	ID        string
	UserID    string
	ImageURL  string
	Analysis  string
	Medicines []string
	Tips      []string
	CreatedAt time.Time
}
