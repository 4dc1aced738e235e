package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTableColumns(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	err = db.Exec("CREATE TABLE employees (id INTEGER PRIMARY KEY, Login TEXT, email TEXT)").Error
	require.NoError(t, err)

	ctx := context.Background()
	columns, err := GetTableColumns(ctx, db, "employees")
	require.NoError(t, err)
	assert.Len(t, columns, 3)

	colMap := make(map[string]string)
	for _, col := range columns {
		colMap[col.Field] = col.Type
	}
	assert.Equal(t, "integer", colMap["id"])
	assert.Equal(t, "text", colMap["login"])
	assert.Equal(t, "text", colMap["email"])

	// PRAGMA table_info returns an empty result for a non-existent table.
	cols, err := GetTableColumns(ctx, db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestMissingColumns(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE employees (login TEXT, email TEXT)").Error)

	missing, err := MissingColumns(context.Background(), db, "employees", []string{"LOGIN", "email", "surname"})
	require.NoError(t, err)
	assert.Equal(t, []string{"surname"}, missing)
}
