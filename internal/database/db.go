package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATE/DATETIME -> time.Time | loc=UTC keeps times consistent
	// clientFoundRows=true -> UPDATE reports matched rows, not changed rows
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS reservations (
	id               VARCHAR(64)  NOT NULL PRIMARY KEY,
	event_date       DATE         NOT NULL,
	event_time       VARCHAR(16)  NOT NULL DEFAULT '',
	customer_name    VARCHAR(255) NOT NULL,
	customer_phone   VARCHAR(64)  NOT NULL,
	child_name       VARCHAR(255) NOT NULL,
	package_tier     VARCHAR(16)  NOT NULL,
	total_amount     BIGINT       NOT NULL,
	deposit_amount   BIGINT       NOT NULL,
	remaining_amount BIGINT       NOT NULL,
	is_paid          TINYINT(1)   NOT NULL DEFAULT 0,
	notes            TEXT         NULL,
	created_at       DATETIME     NOT NULL,
	updated_at       DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	KEY idx_reservations_event_date (event_date)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Migrate creates the reservations table when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate reservations: %w", err)
	}
	return nil
}
