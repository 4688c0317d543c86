package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_UsesConfiguredNotifyChannel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`pg_notify\('clinic_changes'`).WillReturnResult(sqlmock.NewResult(0, 0))

	client := NewClientFromDB(db)
	require.NoError(t, client.Migrate(context.Background(), "clinic_changes"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_DefaultChannel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`pg_notify\('row_changes'`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewClientFromDB(db).Migrate(context.Background(), ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaKeepsAppointmentsOnPatientDelete(t *testing.T) {
	assert.NotContains(t, schemaSQL, "REFERENCES patients")
	assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS appointments")
}

func TestSchemaAnnouncesOversizedRowsByKey(t *testing.T) {
	assert.Contains(t, schemaSQL, "octet_length(payload) > 7900")
	assert.Contains(t, schemaSQL, "'partial', true")
	assert.Contains(t, schemaSQL, "'record', notify_keys(new_row)")
	assert.Contains(t, schemaSQL, "'old_record', notify_keys(old_row)")
	for _, key := range []string{"'id'", "'sender_id'", "'receiver_id'", "'patient_id'", "'is_read'"} {
		assert.Contains(t, schemaSQL, key)
	}
	assert.NotContains(t, schemaSQL, "'body')", "message bodies never ride in a key-only payload")
}
