package postgresql

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts = 5
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// Initialize opens the db session, retrying while the server comes up, and auto migrates given models
func Initialize(connStr string, models []any, log *slog.Logger) (db *gorm.DB, err error) {
	retryTicker := time.NewTicker(time.Second * 2)
	defer retryTicker.Stop()

	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	// retry connect
	for attempt := range connectAttempts {
		db, err = gorm.Open(postgres.Open(connStr), cfg)
		if err == nil {
			break
		}
		log.Warn("failed to connect to postgres", "attempt", attempt+1, "error", err.Error())
		<-retryTicker.C
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", connectAttempts, err)
	}

	sqlDb, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDb.SetMaxOpenConns(maxOpenConns)
	sqlDb.SetMaxIdleConns(maxIdleConns)
	sqlDb.SetConnMaxLifetime(connMaxLifetime)

	if err = Migrate(db, models...); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the tables of the given models
func Migrate(db *gorm.DB, models ...any) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDb, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDb.Close()
}
