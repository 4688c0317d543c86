package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSONAndScan(t *testing.T) {
	d, err := ParseDate("2026-10-15")
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-10-15"`, string(data))

	var fromTimestamp Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-10-15T00:00:00+00:00"`), &fromTimestamp))
	assert.Equal(t, d, fromTimestamp)

	var scanned Date
	require.NoError(t, scanned.Scan(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, d, scanned)

	require.NoError(t, scanned.Scan([]byte("2026-01-02")))
	assert.Equal(t, "2026-01-02", scanned.String())
}

func TestDate_Arithmetic(t *testing.T) {
	d := Date{Year: 2026, Month: time.December, Day: 30}

	assert.Equal(t, Date{Year: 2027, Month: time.January, Day: 2}, d.AddDays(3))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.Equal(t, time.Wednesday, d.Weekday())
}

func TestAppointment_Hour(t *testing.T) {
	cases := map[string]struct {
		hour int
		ok   bool
	}{
		"09:00":    {9, true},
		"18:30:00": {18, true},
		"00:15":    {0, true},
		"":         {0, false},
		"25:00":    {0, false},
		"noon":     {0, false},
	}
	for in, want := range cases {
		a := &Appointment{Time: in}
		h, ok := a.Hour()
		assert.Equal(t, want.ok, ok, in)
		assert.Equal(t, want.hour, h, in)
	}
}

func TestAppointmentView_PatientFallback(t *testing.T) {
	v := &AppointmentView{}
	assert.Equal(t, UnknownPatientName, v.PatientName())
	assert.Empty(t, v.PatientPhone())

	v.Patient = &PatientSummary{Name: "Ana López", Phone: "5551234"}
	assert.Equal(t, "Ana López", v.PatientName())
}

func TestChangeEvent_Field(t *testing.T) {
	ev, err := NewChangeEvent(TableMessages, OperationInsert, &Message{ID: "m1", ReceiverID: "u2", IsRead: false}, nil)
	require.NoError(t, err)

	assert.Equal(t, "u2", ev.Field("receiver_id"))
	assert.Equal(t, "false", ev.Field("is_read"))
	assert.Empty(t, ev.Field("missing"))

	deleted := &ChangeEvent{Table: TableMessages, Operation: OperationDelete, OldRecord: json.RawMessage(`{"receiver_id":"u3"}`)}
	assert.Equal(t, "u3", deleted.Field("receiver_id"))

	moved := &ChangeEvent{
		Table:     TableAppointments,
		Operation: OperationUpdate,
		Record:    json.RawMessage(`{"patient_id":"p2"}`),
		OldRecord: json.RawMessage(`{"patient_id":"p1"}`),
	}
	assert.Equal(t, "p2", moved.Field("patient_id"))
	assert.Equal(t, "p1", moved.OldField("patient_id"))
	assert.Empty(t, ev.OldField("receiver_id"))
}

func TestChangeEvent_HasField(t *testing.T) {
	ev, err := NewChangeEvent(TableMessages, OperationInsert, &Message{ID: "m1", Body: "hola"}, nil)
	require.NoError(t, err)
	assert.True(t, ev.HasField("body"))
	assert.False(t, ev.HasField("missing"))

	keysOnly := &ChangeEvent{Table: TableMessages, Operation: OperationUpdate, Record: json.RawMessage(`{"id":"m1","is_read":true}`), Partial: true}
	assert.True(t, keysOnly.HasField("is_read"))
	assert.False(t, keysOnly.HasField("body"))

	deleted := &ChangeEvent{Table: TableMessages, Operation: OperationDelete, OldRecord: json.RawMessage(`{"id":"m1","body":""}`)}
	assert.True(t, deleted.HasField("body"))

	assert.False(t, (&ChangeEvent{}).HasField("id"))
}

func TestPreferences_Validation(t *testing.T) {
	assert.True(t, ThemeOcean.Valid())
	assert.False(t, Theme("dark").Valid())
	assert.True(t, PageMessages.Valid())
	assert.False(t, Page("admin").Valid())
}
