package entities

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Operation is the kind of row change carried by a ChangeEvent
type Operation string

const (
	OperationInsert Operation = "INSERT"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// Table names of the data service
const (
	TablePatients     = "patients"
	TableAppointments = "appointments"
	TableMessages     = "messages"
	TableUsers        = "users"
)

// ChangeEvent is a row-level change notification emitted by the data service
type ChangeEvent struct {
	ID         string          `json:"id"`
	Table      string          `json:"table"`
	Operation  Operation       `json:"type"`
	Record     json.RawMessage `json:"record,omitempty"`
	OldRecord  json.RawMessage `json:"old_record,omitempty"`
	CommitTime time.Time       `json:"commit_timestamp"`
	// Partial is set when the row images were cut down to their key columns
	// to fit the notification size limit. Readers must refetch the row.
	Partial bool `json:"partial,omitempty"`
}

// NewChangeEvent builds an event for a row, marshalling record and oldRecord
func NewChangeEvent(table string, op Operation, record, oldRecord any) (*ChangeEvent, error) {
	event := &ChangeEvent{
		ID:         generateEventID(),
		Table:      table,
		Operation:  op,
		CommitTime: time.Now(),
	}
	if record != nil {
		data, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record: %w", err)
		}
		event.Record = data
	}
	if oldRecord != nil {
		data, err := json.Marshal(oldRecord)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal old record: %w", err)
		}
		event.OldRecord = data
	}
	return event, nil
}

// DecodeRecord unmarshals the new row image into v
func (e *ChangeEvent) DecodeRecord(v any) error {
	if len(e.Record) == 0 {
		return fmt.Errorf("%s event on %s has no record", e.Operation, e.Table)
	}
	return json.Unmarshal(e.Record, v)
}

// DecodeOldRecord unmarshals the previous row image into v
func (e *ChangeEvent) DecodeOldRecord(v any) error {
	if len(e.OldRecord) == 0 {
		return fmt.Errorf("%s event on %s has no old record", e.Operation, e.Table)
	}
	return json.Unmarshal(e.OldRecord, v)
}

// Field returns a top-level column of the row as a string. DELETE events are
// read from the old row image. Missing or non-scalar values yield "".
func (e *ChangeEvent) Field(name string) string {
	raw := e.Record
	if len(raw) == 0 {
		raw = e.OldRecord
	}
	return fieldOf(raw, name)
}

// HasField reports whether the row image read by Field carries the column
func (e *ChangeEvent) HasField(name string) bool {
	raw := e.Record
	if len(raw) == 0 {
		raw = e.OldRecord
	}
	if len(raw) == 0 {
		return false
	}
	var row map[string]json.RawMessage
	if err := json.Unmarshal(raw, &row); err != nil {
		return false
	}
	_, ok := row[name]
	return ok
}

// OldField returns a top-level column of the previous row image, or ""
func (e *ChangeEvent) OldField(name string) string {
	return fieldOf(e.OldRecord, name)
}

func fieldOf(raw json.RawMessage, name string) string {
	if len(raw) == 0 {
		return ""
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return ""
	}
	switch v := row[name].(type) {
	case string:
		return v
	case bool, float64:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

func generateEventID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405.000000")
	}
	return time.Now().Format("20060102150405") + "-" + hex.EncodeToString(b)
}
