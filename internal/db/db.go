package db

import (
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"imagenbot/internal/logger"
	"imagenbot/internal/store"
)

// Connect opens the database named by dsn and migrates the schema.
// A DSN containing "@tcp(" is treated as MySQL; anything else is a
// sqlite file path (the default is bot_data.db next to the binary).
func Connect(dsn string) *gorm.DB {
	var dialector gorm.Dialector
	if strings.Contains(dsn, "@tcp(") {
		dialector = mysql.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Fatal().Err(err).Str("dsn", dsn).Msg("database open failed")
	}

	if err := gdb.AutoMigrate(
		&store.User{},
		&store.Ban{},
		&store.Setting{},
		&store.LogEntry{},
	); err != nil {
		logger.Fatal().Err(err).Msg("automigrate failed")
	}

	return gdb
}
