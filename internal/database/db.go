package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB creates a new database connection with optimized pooling
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vote_latent.db")

	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 25, 5, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized with connection pooling",
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns,
		"max_lifetime", pool.maxLifetime)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bills (
			id INTEGER PRIMARY KEY,
			passed BOOLEAN NOT NULL DEFAULT FALSE,
			deliberation_completed BOOLEAN NOT NULL DEFAULT FALSE,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL
		)`,

		// Insertion order matters: a later vote by the same member on
		// the same bill overwrites the earlier one during matrix
		// construction, so rows keep their arrival order via rowid.
		`CREATE TABLE IF NOT EXISTS vote_scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bill_id INTEGER NOT NULL,
			member_id INTEGER NOT NULL,
			member_name TEXT NOT NULL DEFAULT '',
			score REAL NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (bill_id) REFERENCES bills(id)
		)`,

		`CREATE TABLE IF NOT EXISTS bill_cluster_assignments (
			cluster_id INTEGER NOT NULL,
			bill_id INTEGER NOT NULL,
			cluster_label INTEGER NOT NULL,
			PRIMARY KEY (cluster_id, bill_id)
		)`,

		`CREATE TABLE IF NOT EXISTS cluster_results (
			id TEXT PRIMARY KEY,
			cluster_id INTEGER NOT NULL,
			cluster_label INTEGER NOT NULL,
			n_components INTEGER NOT NULL,
			result TEXT NOT NULL, -- JSON ClusterResult
			created_at DATETIME NOT NULL,
			UNIQUE(cluster_id, cluster_label)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_vote_scores_bill ON vote_scores(bill_id)`,
		`CREATE INDEX IF NOT EXISTS idx_vote_scores_member ON vote_scores(member_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_cluster ON bill_cluster_assignments(cluster_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cluster_results_cluster ON cluster_results(cluster_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"upsert_bill": `INSERT INTO bills (id, passed, deliberation_completed, title, description, updated_at)
			VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET
			passed = excluded.passed,
			deliberation_completed = excluded.deliberation_completed,
			title = excluded.title,
			description = excluded.description,
			updated_at = excluded.updated_at`,

		"insert_vote": `INSERT INTO vote_scores (bill_id, member_id, member_name, score, created_at)
			VALUES (?, ?, ?, ?, ?)`,

		"upsert_assignment": `INSERT INTO bill_cluster_assignments (cluster_id, bill_id, cluster_label)
			VALUES (?, ?, ?) ON CONFLICT(cluster_id, bill_id) DO UPDATE SET
			cluster_label = excluded.cluster_label`,

		"upsert_result": `INSERT INTO cluster_results (id, cluster_id, cluster_label, n_components, result, created_at)
			VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(cluster_id, cluster_label) DO UPDATE SET
			n_components = excluded.n_components,
			result = excluded.result,
			created_at = excluded.created_at`,

		"get_result": `SELECT result FROM cluster_results
			WHERE cluster_id = ? AND cluster_label = ?`,

		"get_results_by_cluster": `SELECT cluster_label, n_components, result FROM cluster_results
			WHERE cluster_id = ? ORDER BY cluster_label ASC`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}

	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
