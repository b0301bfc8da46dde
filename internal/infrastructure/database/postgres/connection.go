package postgres

import (
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"vltd-dashboard/internal/config"
	"vltd-dashboard/internal/infrastructure/database/postgres/models"
	"vltd-dashboard/internal/logger"
)

type DB struct {
	*gorm.DB
	Driver string
}

// NewDB opens Postgres when it is configured and the local SQLite file
// otherwise.
func NewDB(cfg *config.Config) (*DB, error) {
	var gormLogLevel gormLogger.LogLevel
	if cfg.Server.Environment == "production" {
		gormLogLevel = gormLogger.Warn
	} else {
		gormLogLevel = gormLogger.Info
	}

	if !cfg.Database.UsePostgres() {
		db, err := Open(sqlite.Open(cfg.Database.SQLitePath), gormLogLevel)
		if err != nil {
			return nil, err
		}
		logger.Info("Document cache using SQLite",
			zap.String("path", cfg.Database.SQLitePath),
		)
		return db, nil
	}

	// pgx's database/sql driver, registered by the stdlib import.
	dialector := postgres.New(postgres.Config{
		DriverName: "pgx",
		DSN:        cfg.Database.DSN(),
	})
	db, err := Open(dialector, gormLogLevel)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
		zap.Int("max_open_connections", 25),
		zap.Int("max_idle_connections", 5),
	)
	return db, nil
}

// Open connects through dialector, pings and migrates the cache tables.
func Open(dialector gorm.Dialector, level gormLogger.LogLevel) (*DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	wrapped := &DB{DB: db, Driver: dialector.Name()}
	if err := wrapped.Migrate(); err != nil {
		return nil, err
	}
	return wrapped, nil
}

func (d *DB) Migrate() error {
	if err := d.DB.AutoMigrate(&models.DocumentUploadModel{}); err != nil {
		return fmt.Errorf("error migrating document cache: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *DB) Health() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
