package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// RegistrySnapshot is one cached registry snapshot. Data holds the encoded
// snapshot, compressed as named by Encoding.
type RegistrySnapshot struct {
	ID            int64     `json:"id" db:"id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	Encoding      string    `json:"encoding" db:"encoding"`
	RawSize       int64     `json:"raw_size" db:"raw_size"`
	StoredSize    int64     `json:"stored_size" db:"stored_size"`
	Entities      int       `json:"entities" db:"entities"`
	Devices       int       `json:"devices" db:"devices"`
	Areas         int       `json:"areas" db:"areas"`
	Labels        int       `json:"labels" db:"labels"`
	ConfigEntries int       `json:"config_entries" db:"config_entries"`
	States        int       `json:"states" db:"states"`
	Data          []byte    `json:"-" db:"data"`
}

// ActionCall is one served action call
type ActionCall struct {
	ID         int64          `json:"id" db:"id"`
	RequestID  string         `json:"request_id" db:"request_id"`
	Action     string         `json:"action" db:"action"`
	Transport  string         `json:"transport" db:"transport"`
	Matched    int            `json:"matched" db:"matched"`
	DurationMS float64        `json:"duration_ms" db:"duration_ms"`
	Error      sql.NullString `json:"-" db:"error"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// MarshalJSON renders Error as a string or null
func (c ActionCall) MarshalJSON() ([]byte, error) {
	type alias ActionCall
	var errText *string
	if c.Error.Valid {
		errText = &c.Error.String
	}
	return json.Marshal(struct {
		alias
		Error *string `json:"error"`
	}{alias(c), errText})
}
