package database

import (
	"path/filepath"
	"testing"

	"github.com/OCAP2/ibt/internal/config"
	"github.com/OCAP2/ibt/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ConnectSqliteAndSetup(t *testing.T) {
	m := NewManager(zerolog.Nop())
	err := m.Connect(config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "ibt.db")})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	assert.Equal(t, "sqlite", m.Driver)
	require.NoError(t, m.Setup())

	assert.True(t, m.DB.Migrator().HasTable(&model.Setting{}))
	assert.True(t, m.DB.Migrator().HasTable(&model.CaptureRecord{}))
}

func TestManager_UnknownDriver(t *testing.T) {
	m := NewManager(zerolog.Nop())
	err := m.Connect(config.DBConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown db driver")
}

func TestManager_CloseWithoutConnect(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.NoError(t, m.Close())
}

func TestGetSqliteDB_InMemory(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&model.Setting{}))
	require.NoError(t, db.Create(&model.Setting{Key: "k", Value: "v"}).Error)

	var got model.Setting
	require.NoError(t, db.Where("key = ?", "k").First(&got).Error)
	assert.Equal(t, "v", got.Value)
}
