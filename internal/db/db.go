package db

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	// DriverCGO is the mattn/go-sqlite3 driver
	DriverCGO = "sqlite3"
	// DriverPure is the pure-Go modernc.org/sqlite driver
	DriverPure = "sqlite"
)

// DB wraps the SQLite database with semaphore-based exclusive access
type DB struct {
	db     *sql.DB
	driver string
	mutex  sync.Mutex
	logger *zap.Logger
}

// dsn enables WAL mode and foreign keys using each driver's own syntax
func dsn(driver, path string) (string, error) {
	switch driver {
	case DriverCGO:
		return path + "?_journal_mode=WAL&_foreign_keys=on", nil
	case DriverPure:
		return path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", driver)
	}
}

// NewDB opens the database at dbPath with the named driver.
// An empty driver selects the cgo driver.
func NewDB(driver, dbPath string, logger *zap.Logger) (*DB, error) {
	if driver == "" {
		driver = DriverCGO
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	source, err := dsn(driver, dbPath)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}

	// Set connection pool to 1 to ensure single connection
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	logger = logger.Named("db")
	logger.Debug("Database opened", zap.String("driver", driver), zap.String("path", dbPath))

	return &DB{db: sqlDB, driver: driver, logger: logger}, nil
}

// Driver returns the name of the SQL driver in use
func (d *DB) Driver() string {
	return d.driver
}

// WithLock executes a function with exclusive database access
func (d *DB) WithLock(fn func() error) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return fn()
}

// WithLockResult executes a function with exclusive database access and returns a result
func WithLockResult[T any](d *DB, fn func() (T, error)) (T, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return fn()
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// tableExists checks if a table exists in the database
func (d *DB) tableExists(tableName string) (bool, error) {
	return WithLockResult(d, func() (bool, error) {
		var count int
		err := d.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
			tableName,
		).Scan(&count)
		if err != nil {
			return false, err
		}
		return count > 0, nil
	})
}
