package db

import (
	"fmt" // DSN formatting

	"art_market/internal/config" // Application configuration

	"gorm.io/driver/mysql"    // MySQL driver for GORM
	"gorm.io/driver/postgres" // Postgres driver for GORM
	"gorm.io/driver/sqlite"   // SQLite driver for GORM
	"gorm.io/gorm"            // GORM ORM library
)

// Dialector picks the GORM dialector for the configured driver
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		// Setup Data Source Name (DSN) for MySQL
		dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true&charset=utf8mb4"
		return mysql.Open(dsn), nil
	case config.DriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
		return postgres.Open(dsn), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.DBPath + "?_foreign_keys=on&_busy_timeout=5000"), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}

// Open connects to the configured database
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg) // Choose the driver
	if err != nil {
		return nil, err
	}
	// TranslateError maps unique violations to gorm.ErrDuplicatedKey
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.DBDriver, err)
	}
	return db, nil
}
