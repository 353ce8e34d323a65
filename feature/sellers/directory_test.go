package sellers

import (
	"context"
	"strings"
	"testing"
	"time"

	"price-pipeline/core/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, &Seller{}))
	return db
}

func TestDirectory_Resolve(t *testing.T) {
	db := setupDB(t)
	dir := NewDirectory(db, time.Minute)
	ctx := context.Background()

	n, err := dir.Upsert(ctx, []Seller{
		{FolderName: "ACME", CompanyName: "Acme Corp", Active: true},
		{FolderName: "globex", CompanyName: "Globex", Active: false},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s, err := dir.Resolve(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", s.FolderName)
	assert.Equal(t, "Acme Corp", s.CompanyName)

	_, err = dir.Resolve(ctx, "globex")
	assert.ErrorIs(t, err, ErrInactiveSeller)

	_, err = dir.Resolve(ctx, "initech")
	assert.ErrorIs(t, err, ErrUnknownSeller)
}

func TestDirectory_CacheTTL(t *testing.T) {
	db := setupDB(t)
	dir := NewDirectory(db, time.Minute)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	dir.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := dir.Resolve(ctx, "acme")
	assert.ErrorIs(t, err, ErrUnknownSeller)

	// Written behind the directory's back, invisible until the cache expires.
	require.NoError(t, db.Create(&Seller{FolderName: "acme", CompanyName: "Acme", Active: true}).Error)
	_, err = dir.Resolve(ctx, "acme")
	assert.ErrorIs(t, err, ErrUnknownSeller)

	now = now.Add(2 * time.Minute)
	_, err = dir.Resolve(ctx, "acme")
	assert.NoError(t, err)
}

func TestDirectory_UpsertAndToggle(t *testing.T) {
	db := setupDB(t)
	dir := NewDirectory(db, time.Hour)
	ctx := context.Background()

	_, err := dir.Upsert(ctx, []Seller{{FolderName: "acme", CompanyName: "Acme", Active: true}})
	require.NoError(t, err)
	_, err = dir.Resolve(ctx, "acme")
	require.NoError(t, err)

	_, err = dir.Upsert(ctx, []Seller{{FolderName: "acme", CompanyName: "Acme Renamed", Active: true}})
	require.NoError(t, err)
	s, err := dir.Resolve(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Renamed", s.CompanyName)

	require.NoError(t, dir.SetActive(ctx, "acme", false))
	_, err = dir.Resolve(ctx, "acme")
	assert.ErrorIs(t, err, ErrInactiveSeller)

	assert.ErrorIs(t, dir.SetActive(ctx, "nobody", true), ErrUnknownSeller)

	rows, err := dir.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = dir.Upsert(ctx, []Seller{{FolderName: " / "}})
	assert.Error(t, err)
}

func TestParseYAML(t *testing.T) {
	input := `
sellers:
  - folder: Acme
    company: ACME Corp
  - folder: globex
    active: false
`
	rows, err := ParseYAML(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Seller{FolderName: "acme", CompanyName: "ACME Corp", Active: true}, rows[0])
	assert.Equal(t, Seller{FolderName: "globex", CompanyName: "globex", Active: false}, rows[1])
}

func TestParseYAML_Errors(t *testing.T) {
	_, err := ParseYAML(strings.NewReader("sellers:\n  - company: nameless\n"))
	assert.Error(t, err)

	_, err = ParseYAML(strings.NewReader("sellers:\n  - folder: a\n  - folder: A\n"))
	assert.ErrorContains(t, err, "listed twice")

	_, err = ParseYAML(strings.NewReader("sellers:\n  - folder: a\n    colour: red\n"))
	assert.Error(t, err)

	rows, err := ParseYAML(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, rows)
}
