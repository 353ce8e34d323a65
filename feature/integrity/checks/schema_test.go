package checks

import (
	"testing"

	"price-pipeline/core/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type widget struct {
	ID    uint
	Name  string
	Price int
}

type gadget struct {
	ID    uint
	Label string
}

type gizmo struct {
	ID uint
}

func TestCheckSchema(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widget{}))
	require.NoError(t, db.Exec("CREATE TABLE gadgets (id integer)").Error)

	report, err := CheckSchema(db, &widget{}, &gadget{}, &gizmo{})
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.Equal(t, "ok", report.Tables["widgets"].Status)
	assert.Empty(t, report.Tables["widgets"].MissingColumns)
	assert.Equal(t, []string{"label"}, report.Tables["gadgets"].MissingColumns)
	assert.Equal(t, []string{"id"}, report.Tables["gizmos"].MissingColumns)

	report, err = CheckSchema(db, &widget{})
	require.NoError(t, err)
	assert.True(t, report.Matched)
}

func TestCheckSchema_NilDB(t *testing.T) {
	report, err := CheckSchema(nil)
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestCheckSchema_InspectError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery("SHOW COLUMNS FROM `widgets`").WillReturnError(assert.AnError)

	report, err := CheckSchema(db, &widget{})
	require.NoError(t, err)
	assert.False(t, report.Matched)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "widgets")
	assert.NoError(t, mock.ExpectationsWereMet())
}
