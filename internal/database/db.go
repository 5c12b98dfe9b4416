package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/SpideeCode/uberPharmaV2/internal/config"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"
)

// Database represents a database connection
type Database struct {
	DB     *sqlx.DB
	logger logger.Logger
}

// New creates a new database connection
func New(cfg *config.Config, logger logger.Logger) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDBConnString())

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Connected to database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	return &Database{
		DB:     db,
		logger: logger,
	}, nil
}

// BeginTx starts a new transaction
func (d *Database) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := d.DB.BeginTxx(ctx, nil)

	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return tx, nil
}

// Ping checks the database connection
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

// RunMigrations creates the schema. Kept as plain DDL for now; a migration
// tool only pays off once the schema starts changing under load.
func (d *Database) RunMigrations() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(50) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(50) PRIMARY KEY,
		pharmacy_id VARCHAR(50) NOT NULL,
		category_id VARCHAR(50),
		name VARCHAR(255) NOT NULL,
		price DECIMAL(10, 2) NOT NULL,
		stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_products_pharmacy_id ON products(pharmacy_id);

	CREATE TABLE IF NOT EXISTS carts (
		id VARCHAR(50) PRIMARY KEY,
		user_id VARCHAR(50) NOT NULL,
		pharmacy_id VARCHAR(50) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		subtotal DECIMAL(10, 2) NOT NULL DEFAULT 0,
		delivery_fee DECIMAL(10, 2) NOT NULL DEFAULT 0,
		service_fee DECIMAL(10, 2) NOT NULL DEFAULT 0,
		total DECIMAL(10, 2) NOT NULL DEFAULT 0,
		expires_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_active_user_pharmacy
		ON carts(user_id, pharmacy_id) WHERE is_active;

	CREATE TABLE IF NOT EXISTS cart_items (
		id VARCHAR(50) PRIMARY KEY,
		cart_id VARCHAR(50) NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		product_id VARCHAR(50) NOT NULL,
		quantity INT NOT NULL CHECK (quantity >= 1),
		price_at_addition DECIMAL(10, 2) NOT NULL,
		line_total DECIMAL(10, 2) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (cart_id, product_id)
	);

	CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(50) PRIMARY KEY,
		user_id VARCHAR(50) NOT NULL,
		pharmacy_id VARCHAR(50) NOT NULL,
		courier_id VARCHAR(50),
		status VARCHAR(30) NOT NULL,
		total_amount DECIMAL(10, 2) NOT NULL,
		payment_status VARCHAR(20) NOT NULL DEFAULT 'unpaid',
		shipping_address VARCHAR(255) NOT NULL,
		shipping_city VARCHAR(100) NOT NULL,
		shipping_postal_code VARCHAR(20) NOT NULL,
		shipping_country VARCHAR(100) NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
	CREATE INDEX IF NOT EXISTS idx_orders_pharmacy_id ON orders(pharmacy_id);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

	CREATE TABLE IF NOT EXISTS order_items (
		id VARCHAR(50) PRIMARY KEY,
		order_id VARCHAR(50) NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id VARCHAR(50) NOT NULL,
		quantity INT NOT NULL CHECK (quantity >= 1),
		unit_price DECIMAL(10, 2) NOT NULL,
		total_price DECIMAL(10, 2) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);

	CREATE TABLE IF NOT EXISTS deliveries (
		id VARCHAR(50) PRIMARY KEY,
		order_id VARCHAR(50) NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
		courier_id VARCHAR(50),
		status VARCHAR(30) NOT NULL DEFAULT 'assigned',
		current_location VARCHAR(255),
		estimated_delivery TIMESTAMP,
		notes TEXT,
		assigned_at TIMESTAMP,
		picked_up_at TIMESTAMP,
		delivered_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_deliveries_courier_id ON deliveries(courier_id);
	CREATE INDEX IF NOT EXISTS idx_deliveries_status ON deliveries(status);

	CREATE TABLE IF NOT EXISTS payments (
		id VARCHAR(50) PRIMARY KEY,
		order_id VARCHAR(50) NOT NULL REFERENCES orders(id),
		user_id VARCHAR(50) NOT NULL,
		amount DECIMAL(10, 2) NOT NULL,
		method VARCHAR(30) NOT NULL,
		transaction_id VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_payments_order_id ON payments(order_id);

	CREATE TABLE IF NOT EXISTS outbox_messages (
		id SERIAL PRIMARY KEY,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(50) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMP,
		processing_attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_messages(status);
	CREATE INDEX IF NOT EXISTS idx_outbox_aggregate ON outbox_messages(aggregate_type, aggregate_id);

	CREATE TABLE IF NOT EXISTS dead_letter_messages (
		id SERIAL PRIMARY KEY,
		original_message_id BIGINT NOT NULL,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(50) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		error_message TEXT NOT NULL,
		failure_reason TEXT NOT NULL,
		retry_count INT NOT NULL DEFAULT 0,
		last_retry_at TIMESTAMP,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		resolved_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_dead_letter_status ON dead_letter_messages(status);

	CREATE TABLE IF NOT EXISTS pharmacies (
		id VARCHAR(50) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		city VARCHAR(100) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_pharmacies_city ON pharmacies(city);

	CREATE TABLE IF NOT EXISTS addresses (
		id VARCHAR(50) PRIMARY KEY,
		user_id VARCHAR(50) NOT NULL REFERENCES users(id),
		label VARCHAR(100) NOT NULL,
		recipient_name VARCHAR(255) NOT NULL,
		phone_number VARCHAR(30) NOT NULL,
		address_line1 VARCHAR(255) NOT NULL,
		address_line2 VARCHAR(255),
		city VARCHAR(100) NOT NULL,
		state VARCHAR(100) NOT NULL,
		postal_code VARCHAR(20) NOT NULL,
		country VARCHAR(100) NOT NULL,
		landmark VARCHAR(255),
		type VARCHAR(20) NOT NULL DEFAULT 'home',
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_addresses_user_id ON addresses(user_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_addresses_one_default
		ON addresses(user_id) WHERE is_default;

	CREATE TABLE IF NOT EXISTS favorites (
		id VARCHAR(50) PRIMARY KEY,
		user_id VARCHAR(50) NOT NULL REFERENCES users(id),
		subject_kind VARCHAR(20) NOT NULL,
		subject_id VARCHAR(50) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, subject_kind, subject_id)
	);

	CREATE INDEX IF NOT EXISTS idx_favorites_user_id ON favorites(user_id);

	CREATE TABLE IF NOT EXISTS reviews (
		id VARCHAR(50) PRIMARY KEY,
		user_id VARCHAR(50) NOT NULL REFERENCES users(id),
		subject_kind VARCHAR(20) NOT NULL,
		subject_id VARCHAR(50) NOT NULL,
		rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, subject_kind, subject_id)
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_subject ON reviews(subject_kind, subject_id);
	`

	_, err := d.DB.Exec(schema)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}
