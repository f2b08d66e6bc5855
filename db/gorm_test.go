package db

import (
	"path/filepath"
	"testing"

	"SampleFinder/config"
	"SampleFinder/model"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	gormlogger "gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBUser: "sf", DBPassword: "p@ss", DBHost: "db.local", DBPort: "3307", DBName: "samples"}

	parsed, err := mysqldriver.ParseDSN(DSN(cfg))
	require.NoError(t, err)

	assert.Equal(t, "sf", parsed.User)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, "db.local:3307", parsed.Addr)
	assert.Equal(t, "samples", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Contains(t, DSN(cfg), "charset=utf8mb4")
}

func TestAutoMigrate_SQLite(t *testing.T) {
	gdb, err := Open(sqlite.Open(filepath.Join(t.TempDir(), "remote.db")), gormlogger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	require.NoError(t, AutoMigrate(gdb))

	for _, table := range []string{"profiles", "assets", "palettes", "palette_items", "receipts", "subscriptions"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}
	assert.True(t, gdb.Migrator().HasIndex(&model.RemoteAsset{}, "idx_assets_user_hash"))
	assert.True(t, gdb.Migrator().HasIndex(&model.RemoteReceipt{}, "idx_receipts_user_asset"))
}
