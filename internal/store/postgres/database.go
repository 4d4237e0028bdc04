// Package postgres implements store.Store on the fulfillment Postgres
// database using pgx connection pooling.
package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Database holds the database connection pool.
type Database struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewDatabase creates a new database connection with retry logic.
func NewDatabase(ctx context.Context) (*Database, error) {
	return NewDatabaseWithRetry(ctx, 5, time.Second)
}

// NewDatabaseWithRetry creates a new database connection with configurable
// retry logic. Serverless Postgres (e.g. Neon) cold starts need a few
// attempts after idle periods.
func NewDatabaseWithRetry(ctx context.Context, maxRetries int, initialDelay time.Duration) (*Database, error) {
	// Prefer DATABASE_URL if provided (single DSN)
	var poolConfig *pgxpool.Config
	var err error
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		poolConfig, err = pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
	} else {
		config := getConfigFromEnv()

		var connStr string
		if config.Password == "" {
			connStr = fmt.Sprintf(
				"host=%s port=%d user=%s dbname=%s sslmode=%s",
				config.Host, config.Port, config.User, config.DBName, config.SSLMode,
			)
		} else {
			connStr = fmt.Sprintf(
				"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode,
			)
		}

		poolConfig, err = pgxpool.ParseConfig(connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse database config: %w", err)
		}
	}

	// A batch tool does not need a large pool.
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("[FULFILLMENT-DB] Connection attempt %d/%d to database %s@%s:%d",
			attempt, maxRetries, poolConfig.ConnConfig.User, poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Port)

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			lastErr = fmt.Errorf("failed to create connection pool: %w", err)
			log.Printf("[FULFILLMENT-DB] Failed to create pool (attempt %d): %v", attempt, err)
			if attempt < maxRetries {
				time.Sleep(time.Duration(attempt-1) * initialDelay)
			}
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = pool.Ping(pingCtx)
		cancel()

		if err == nil {
			log.Printf("[FULFILLMENT-DB] Successfully connected to database on attempt %d", attempt)
			break
		}

		lastErr = fmt.Errorf("failed to ping database: %w", err)
		log.Printf("[FULFILLMENT-DB] Connection failed (attempt %d): %v", attempt, err)
		pool.Close()
		pool = nil

		if attempt < maxRetries {
			// Exponential backoff: 1s, 2s, 4s, 8s, 16s
			delay := initialDelay * time.Duration(1<<(attempt-1))
			log.Printf("[FULFILLMENT-DB] Retrying in %v...", delay)
			time.Sleep(delay)
		}
	}

	if pool == nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, lastErr)
	}

	db := &Database{Pool: pool}
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.InitSchema(initCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Println("[FULFILLMENT-DB] Database connection established successfully")
	return db, nil
}

// Close closes the database connection pool.
func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("Fulfillment store connection pool closed")
	}
}

// Health checks if the database is healthy.
func (db *Database) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// InitSchema creates the synthetic-data tables if they do not exist.
// This tool only ever runs against staging databases, where owning the
// schema of its own tables is intentional.
func (db *Database) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS locations (
			id VARCHAR(50) PRIMARY KEY,
			name TEXT NOT NULL,
			region VARCHAR(10) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS collection_preps (
			id VARCHAR(50) NOT NULL,
			region VARCHAR(10) NOT NULL,
			carrier VARCHAR(50) NOT NULL,
			location_id VARCHAR(50) NOT NULL,
			day DATE NOT NULL,
			PRIMARY KEY (id, region)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(50) PRIMARY KEY,
			external_id VARCHAR(100) NOT NULL UNIQUE,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			region VARCHAR(10) NOT NULL,
			customer_ref VARCHAR(100) NOT NULL DEFAULT '',
			location_id VARCHAR(50) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS variant_orders (
			id VARCHAR(50) PRIMARY KEY,
			order_id VARCHAR(50) NOT NULL REFERENCES orders(id),
			variant_id VARCHAR(50) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity >= 0),
			region VARCHAR(10) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS preps (
			id VARCHAR(50) PRIMARY KEY,
			order_id VARCHAR(50) NOT NULL REFERENCES orders(id),
			collection_prep_id VARCHAR(50),
			region VARCHAR(10) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS prep_parts (
			id VARCHAR(50) PRIMARY KEY,
			prep_id VARCHAR(50) NOT NULL REFERENCES preps(id),
			part_id VARCHAR(50) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity >= 0),
			region VARCHAR(10) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS packed_boxes (
			id VARCHAR(50) PRIMARY KEY,
			collection_prep_id VARCHAR(50) NOT NULL,
			order_id VARCHAR(50) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'packed'
		)`,
		`CREATE TABLE IF NOT EXISTS prep_part_items (
			id VARCHAR(50) PRIMARY KEY,
			prep_part_id VARCHAR(50) NOT NULL REFERENCES prep_parts(id),
			packed_box_id VARCHAR(50)
		)`,
		`CREATE TABLE IF NOT EXISTS shipments (
			id VARCHAR(50) PRIMARY KEY,
			order_id VARCHAR(50) NOT NULL REFERENCES orders(id),
			collection_prep_id VARCHAR(50),
			status VARCHAR(20) NOT NULL DEFAULT 'pending'
		)`,
		`CREATE TABLE IF NOT EXISTS stock_levels (
			variant_id VARCHAR(50) NOT NULL,
			region VARCHAR(10) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity >= 0),
			PRIMARY KEY (variant_id, region)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_preps_order ON preps(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_preps_collection ON preps(collection_prep_id)`,
		`CREATE INDEX IF NOT EXISTS idx_prep_parts_prep ON prep_parts(prep_id)`,
		`CREATE INDEX IF NOT EXISTS idx_prep_part_items_part ON prep_part_items(prep_part_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_order ON shipments(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_variant_orders_order ON variant_orders(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_collection_preps_lookup ON collection_preps(region, location_id, carrier, day)`,
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	log.Println("[FULFILLMENT-DB] Schema verified successfully")
	return nil
}

// getConfigFromEnv reads database configuration from environment variables.
func getConfigFromEnv() Config {
	config := Config{
		Host:     getEnv("DB_HOST", "localhost"),
		User:     getEnv("DB_USER", "uat_seeder"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "fulfillment_uat"),
		SSLMode:  getEnv("DB_SSLMODE", "prefer"),
	}

	portStr := getEnv("DB_PORT", "5432")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Printf("Invalid DB_PORT value: %s, using default 5432", portStr)
		port = 5432
	}
	config.Port = port

	return config
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
