package store

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps the database and provides typed access to all models.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// seedEntityTypes is the fixed classification vocabulary, created
// idempotently at open.
var seedEntityTypes = []string{
	"GEOPOLITICAL",
	"LOCATION",
	"NATIONALITY",
	"PERSON",
	"ORGANIZATION",
	"EVENT",
	"FACILITY",
	"PRODUCT",
	"WORK_OF_ART",
	"LANGUAGE",
	"LAW",
	"MISC",
}

// Open connects to the database, migrates the schema, and seeds the
// entity type vocabulary. driver is "sqlite" or "postgres".
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	if err := s.seed(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	err := s.db.AutoMigrate(
		&Job{},
		&Resource{},
		&EntityType{},
		&Entity{},
		&PendingEntity{},
		&ResourceEntity{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *Store) seed() error {
	for _, name := range seedEntityTypes {
		et := EntityType{Name: name}
		if err := s.db.Where("name = ?", name).FirstOrCreate(&et).Error; err != nil {
			return fmt.Errorf("failed to seed entity type %s: %w", name, err)
		}
	}
	return nil
}

// DB exposes the underlying connection for operations the typed
// helpers don't cover.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
