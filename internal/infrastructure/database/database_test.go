package database

import (
	"testing"

	"ecotrack-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteMemoryMigrates(t *testing.T) {
	db, err := Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	for _, m := range domain.Models() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestOpen_SeparateMemoryDatabases(t *testing.T) {
	a, err := Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(a))
	require.NoError(t, a.Create(&domain.User{Username: "a", Email: "a@example.com", PasswordHash: "x"}).Error)

	b, err := Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(b))

	var count int64
	require.NoError(t, b.Model(&domain.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
