package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options selects and configures the storage backend.
type Options struct {
	Driver      string // "postgres" or "sqlite"
	DatabaseURL string
	Host        string
	User        string
	Password    string
	Name        string
	Port        string
	SQLitePath  string
	Verbose     bool
}

// Open connects to the configured database. The caller owns the handle.
func Open(opts Options) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		// Orders, subscriptions and reports outlive the rows they reference.
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
	}
	if opts.Verbose {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	switch opts.Driver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(opts.SQLitePath), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite %s: %w", opts.SQLitePath, err)
		}
		// SQLite allows a single writer; serialize everything through one connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	case "postgres", "":
		db, err := gorm.Open(postgres.Open(postgresDSN(opts)), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

func postgresDSN(opts Options) string {
	if opts.DatabaseURL != "" {
		return opts.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		valueOrDefault(opts.Host, "localhost"),
		valueOrDefault(opts.User, "postgres"),
		opts.Password,
		valueOrDefault(opts.Name, "fandomspace"),
		valueOrDefault(opts.Port, "5432"),
	)
}

func valueOrDefault(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}
