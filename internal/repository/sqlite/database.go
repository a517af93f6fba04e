package sqlite

import (
	errwrap "github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
)

// Open opens (or creates) the local telemetry store and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errwrap.Wrap(err, "sqlite.Open")
	}

	err = db.AutoMigrate(
		&entity.OracleConnection{},
		&entity.CollectionSettings{},
		&entity.CollectionLog{},
		&entity.PerformanceRecord{},
		&entity.DailySummary{},
	)
	if err != nil {
		return nil, errwrap.Wrap(err, "sqlite.Open")
	}
	return db, nil
}
